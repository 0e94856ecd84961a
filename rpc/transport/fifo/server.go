//go:build !windows

package fifo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ValentinKolb/dPipe/rpc/transport"
	"golang.org/x/sys/unix"
)

// serverTransport serves requests over a pair of named pipes
type serverTransport struct {
	endpoint string

	mu     sync.Mutex // Protects the fields below
	stream *fileStream
	closed bool
}

// NewFifoServerTransport creates a new server transport using the FIFOs
// <endpoint>.req and <endpoint>.resp. Missing FIFOs are created.
func NewFifoServerTransport(endpoint string) (transport.IServerTransport, error) {
	if err := ensureFifos(endpoint); err != nil {
		return nil, err
	}
	return &serverTransport{endpoint: endpoint}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) GetName() string {
	return "fifo"
}

// WaitForConnection opens the request FIFO, which blocks until a client opens it for writing.
// The context is not observed while blocked, Wake unblocks the open.
func (t *serverTransport) WaitForConnection(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return transport.ErrClosed
	}
	if t.stream != nil {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	if err := ensureFifos(t.endpoint); err != nil {
		return err
	}

	in, err := os.OpenFile(RequestPath(t.endpoint), os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open request fifo: %w", err)
	}

	// O_RDWR never blocks on a FIFO, the response end is ready even before the client opens it
	out, err := os.OpenFile(ResponsePath(t.endpoint), os.O_RDWR, 0)
	if err != nil {
		in.Close()
		return fmt.Errorf("failed to open response fifo: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		in.Close()
		out.Close()
		return transport.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		in.Close()
		out.Close()
		return err
	}
	t.stream = newFileStream(in, out)

	Logger.Infof("Peer connected on fifo endpoint %s", t.endpoint)
	return nil
}

func (t *serverTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stream != nil
}

func (t *serverTransport) ReadLine() (string, error) {
	s, err := t.current()
	if err != nil {
		return "", err
	}
	return s.readLine()
}

func (t *serverTransport) WriteLine(line string) error {
	s, err := t.current()
	if err != nil {
		return err
	}
	return s.writeLine(line)
}

func (t *serverTransport) Flush() error {
	s, err := t.current()
	if err != nil {
		return err
	}
	return s.flush()
}

// Wake writes the wake frame into the request FIFO as a client would, with a
// single write. Writes up to PIPE_BUF bytes are atomic on a FIFO.
// It does nothing if the server isn't reading the FIFO (no reader, ENXIO).
func (t *serverTransport) Wake(frame []string) error {
	if t.isClosed() {
		return transport.ErrClosed
	}

	f, err := openWriterNonBlocking(RequestPath(t.endpoint))
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return nil
		}
		return fmt.Errorf("failed to open request fifo for wake up: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(strings.Join(frame, "\n") + "\n"); err != nil {
		return fmt.Errorf("failed to write wake request: %w", err)
	}
	return nil
}

func (t *serverTransport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stream == nil {
		return nil
	}
	err := t.stream.close()
	t.stream = nil
	Logger.Debugf("Peer disconnected from %s", t.endpoint)
	return err
}

// Close closes the FIFOs and removes them from the file system
func (t *serverTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	var errs []error
	if t.stream != nil {
		errs = append(errs, t.stream.close())
		t.stream = nil
	}

	// release a WaitForConnection blocked in open
	if f, err := openWriterNonBlocking(RequestPath(t.endpoint)); err == nil {
		f.Close()
	}
	errs = append(errs, removeFifos(t.endpoint))
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *serverTransport) current() (*fileStream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, transport.ErrClosed
	}
	if t.stream == nil {
		return nil, transport.ErrNotConnected
	}
	return t.stream, nil
}

func (t *serverTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
