//go:build !windows

package fifo

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	requestSuffix  = ".req"
	responseSuffix = ".resp"

	defaultBufferSize = 64 * 1024 // 64 KB
)

// RequestPath returns the path of the FIFO carrying requests for the given endpoint
func RequestPath(endpoint string) string {
	return endpoint + requestSuffix
}

// ResponsePath returns the path of the FIFO carrying responses for the given endpoint
func ResponsePath(endpoint string) string {
	return endpoint + responseSuffix
}

// ensureFifos creates both FIFOs of the endpoint if they don't exist yet
func ensureFifos(endpoint string) error {
	for _, path := range []string{RequestPath(endpoint), ResponsePath(endpoint)} {
		err := unix.Mkfifo(path, 0o600)
		if err == nil || errors.Is(err, unix.EEXIST) {
			continue
		}
		return fmt.Errorf("failed to create fifo %s: %w", path, err)
	}
	return nil
}

// removeFifos removes both FIFOs of the endpoint
func removeFifos(endpoint string) error {
	return errors.Join(
		ignoreNotExist(os.Remove(RequestPath(endpoint))),
		ignoreNotExist(os.Remove(ResponsePath(endpoint))),
	)
}

func ignoreNotExist(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// openWriterNonBlocking opens a FIFO for writing without waiting for a reader.
// It fails with unix.ENXIO if no reader has the FIFO open.
func openWriterNonBlocking(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
}

// --------------------------------------------------------------------------
// Line helpers
// --------------------------------------------------------------------------

// fileStream holds the two open ends of a FIFO connection
type fileStream struct {
	in     *os.File
	out    *os.File
	reader *bufio.Reader
	writer *bufio.Writer
}

func newFileStream(in, out *os.File) *fileStream {
	return &fileStream{
		in:     in,
		out:    out,
		reader: bufio.NewReaderSize(in, defaultBufferSize),
		writer: bufio.NewWriterSize(out, defaultBufferSize),
	}
}

func (f *fileStream) readLine() (string, error) {
	line, err := f.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (f *fileStream) writeLine(line string) error {
	if _, err := f.writer.WriteString(line); err != nil {
		return err
	}
	return f.writer.WriteByte('\n')
}

func (f *fileStream) flush() error {
	return f.writer.Flush()
}

func (f *fileStream) close() error {
	return errors.Join(f.in.Close(), f.out.Close())
}
