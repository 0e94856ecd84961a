package mem

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dPipe/rpc/transport"
)

// pipePair holds the two unidirectional pipes shared by both ends
type pipePair struct {
	reqR  *io.PipeReader // server reads requests
	reqW  *io.PipeWriter // client writes requests
	respR *io.PipeReader // client reads responses
	respW *io.PipeWriter // server writes responses

	// reqMu serializes whole frames on the request pipe, from the client end
	// and from Wake
	reqMu sync.Mutex

	clientClosed atomic.Bool
	serverClosed atomic.Bool
}

// NewPipePair creates a connected server and client transport backed by in-memory pipes.
// Writes block until the other end reads, like an unbuffered named pipe.
func NewPipePair() (transport.IServerTransport, transport.IClientTransport) {
	p := &pipePair{}
	p.reqR, p.reqW = io.Pipe()
	p.respR, p.respW = io.Pipe()

	server := &serverEnd{
		pair:   p,
		reader: bufio.NewReader(p.reqR),
		writer: bufio.NewWriter(p.respW),
	}
	client := &clientEnd{
		pair:   p,
		reader: bufio.NewReader(p.respR),
	}
	return server, client
}

// --------------------------------------------------------------------------
// Server End (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

type serverEnd struct {
	pair   *pipePair
	reader *bufio.Reader
	writer *bufio.Writer
}

func (s *serverEnd) GetName() string {
	return "mem"
}

func (s *serverEnd) WaitForConnection(_ context.Context) error {
	if s.pair.serverClosed.Load() || s.pair.clientClosed.Load() {
		return transport.ErrClosed
	}
	return nil
}

func (s *serverEnd) IsConnected() bool {
	return !s.pair.serverClosed.Load() && !s.pair.clientClosed.Load()
}

func (s *serverEnd) ReadLine() (string, error) {
	return readLine(s.reader)
}

func (s *serverEnd) WriteLine(line string) error {
	return writeLine(s.writer, line)
}

func (s *serverEnd) Flush() error {
	return s.writer.Flush()
}

// Wake writes the wake frame into the request pipe, the same way a client would.
// The write happens asynchronously: it completes with the server's next read,
// or fails once the pair is closed.
func (s *serverEnd) Wake(frame []string) error {
	if s.pair.serverClosed.Load() {
		return transport.ErrClosed
	}
	data := []byte(strings.Join(frame, "\n") + "\n")
	go func() {
		if err := s.pair.writeRequest(data); err != nil {
			Logger.Debugf("wake frame not delivered: %v", err)
		}
	}()
	return nil
}

// Disconnect is a no-op, the pipes stay usable until one end is closed
func (s *serverEnd) Disconnect() error {
	return nil
}

func (s *serverEnd) Close() error {
	if s.pair.serverClosed.Swap(true) {
		return nil
	}
	s.pair.reqR.CloseWithError(transport.ErrClosed)
	return s.pair.respW.CloseWithError(transport.ErrClosed)
}

// --------------------------------------------------------------------------
// Client End (docu see transport.IClientTransport)
// --------------------------------------------------------------------------

type clientEnd struct {
	pair    *pipePair
	reader  *bufio.Reader
	pending bytes.Buffer
}

func (c *clientEnd) GetName() string {
	return "mem"
}

func (c *clientEnd) Connect(_ context.Context) error {
	if c.pair.clientClosed.Load() || c.pair.serverClosed.Load() {
		return transport.ErrClosed
	}
	return nil
}

func (c *clientEnd) IsConnected() bool {
	return !c.pair.clientClosed.Load() && !c.pair.serverClosed.Load()
}

func (c *clientEnd) ReadLine() (string, error) {
	return readLine(c.reader)
}

// WriteLine buffers the line, Flush writes all buffered lines at once
func (c *clientEnd) WriteLine(line string) error {
	c.pending.WriteString(line)
	return c.pending.WriteByte('\n')
}

func (c *clientEnd) Flush() error {
	if c.pending.Len() == 0 {
		return nil
	}
	defer c.pending.Reset()
	return c.pair.writeRequest(c.pending.Bytes())
}

// Close closes the client end. The server reads io.EOF afterward
func (c *clientEnd) Close() error {
	if c.pair.clientClosed.Swap(true) {
		return nil
	}
	c.pair.respR.CloseWithError(transport.ErrClosed)
	return c.pair.reqW.Close()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// writeRequest writes data to the request pipe without interleaving with other frames
func (p *pipePair) writeRequest(data []byte) error {
	p.reqMu.Lock()
	defer p.reqMu.Unlock()
	_, err := p.reqW.Write(data)
	return err
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func writeLine(w *bufio.Writer, line string) error {
	if _, err := w.WriteString(line); err != nil {
		return err
	}
	return w.WriteByte('\n')
}
