//go:build !windows

package fifo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/ValentinKolb/dPipe/rpc/transport"
	"golang.org/x/sys/unix"
)

// clientTransport sends requests over a pair of named pipes
type clientTransport struct {
	endpoint string

	mu     sync.Mutex
	stream *fileStream
}

// NewFifoClientTransport creates a new client transport using the FIFOs
// <endpoint>.req and <endpoint>.resp.
func NewFifoClientTransport(endpoint string) transport.IClientTransport {
	return &clientTransport{endpoint: endpoint}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) GetName() string {
	return "fifo"
}

// Connect opens the request FIFO as soon as the server reads it. If the context
// carries a deadline, the open is retried with exponential backoff until it expires.
func (t *clientTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stream != nil {
		return nil
	}
	if err := ensureFifos(t.endpoint); err != nil {
		return err
	}

	_, retry := ctx.Deadline()
	backoffMs := 20

	var out *os.File
	for attempt := 1; ; attempt++ {
		f, err := openWriterNonBlocking(RequestPath(t.endpoint))
		if err == nil {
			out = f
			break
		}
		if !errors.Is(err, unix.ENXIO) || !retry {
			return fmt.Errorf("failed to open request fifo of %s: %w", t.endpoint, err)
		}

		// Exponential backoff with a small random jitter (+-10%)
		jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
		select {
		case <-ctx.Done():
			return fmt.Errorf("no server reading %s after %d attempts: %w", t.endpoint, attempt, ctx.Err())
		case <-time.After(time.Duration(jitter) * time.Millisecond):
		}
		if backoffMs < 1000 {
			backoffMs *= 2
		}
	}

	// blocks until the server opened its end of the response FIFO
	in, err := os.OpenFile(ResponsePath(t.endpoint), os.O_RDONLY, 0)
	if err != nil {
		out.Close()
		return fmt.Errorf("failed to open response fifo of %s: %w", t.endpoint, err)
	}

	t.stream = newFileStream(in, out)
	Logger.Infof("Connected to fifo endpoint %s", t.endpoint)
	return nil
}

func (t *clientTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stream != nil
}

func (t *clientTransport) ReadLine() (string, error) {
	s, err := t.current()
	if err != nil {
		return "", err
	}
	line, err := s.readLine()
	if err == io.EOF {
		t.drop(s)
	}
	return line, err
}

func (t *clientTransport) WriteLine(line string) error {
	s, err := t.current()
	if err != nil {
		return err
	}
	return s.writeLine(line)
}

func (t *clientTransport) Flush() error {
	s, err := t.current()
	if err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		t.drop(s)
		return err
	}
	return nil
}

func (t *clientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stream == nil {
		return nil
	}
	err := t.stream.close()
	t.stream = nil
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *clientTransport) current() (*fileStream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stream == nil {
		return nil, transport.ErrNotConnected
	}
	return t.stream, nil
}

func (t *clientTransport) drop(s *fileStream) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stream == s {
		s.close()
		t.stream = nil
	}
}
