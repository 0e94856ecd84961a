package base

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dPipe/rpc/transport"
	"net"
	"strings"
	"sync"
	"time"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(endpoint string) (net.Listener, error)

	// Dial opens a client connection to the listener address, used to wake the server
	Dial(address string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// deadliner is implemented by the tcp and unix listeners
type deadliner interface {
	SetDeadline(t time.Time) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport serves one peer at a time over a net listener
type serverTransport struct {
	connector  IServerConnector
	endpoint   string
	bufferSize int

	mu       sync.Mutex // Protects the fields below
	listener net.Listener
	peer     *lineConn
	closed   bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with the specified connector
func NewBaseServerTransport(connector IServerConnector, endpoint string, bufferSize int) transport.IServerTransport {
	if bufferSize <= 0 {
		bufferSize = 4096
	}
	return &serverTransport{
		connector:  connector,
		endpoint:   endpoint,
		bufferSize: bufferSize,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) GetName() string {
	return t.connector.GetName()
}

func (t *serverTransport) WaitForConnection(ctx context.Context) error {
	listener, err := t.ensureListener()
	if err != nil || listener == nil {
		return err
	}

	// Accept ignores the context, a deadline on the listener makes it return early
	if dl, ok := listener.(deadliner); ok {
		_ = dl.SetDeadline(time.Time{})
		stop := context.AfterFunc(ctx, func() { _ = dl.SetDeadline(time.Now()) })
		defer stop()
	}

	conn, err := listener.Accept()
	if err != nil {
		if t.isClosed() {
			return transport.ErrClosed
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("accept failed: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		conn.Close()
		return transport.ErrClosed
	}
	t.peer = newLineConn(conn, t.bufferSize)

	Logger.Infof("Peer connected on %s endpoint %s", t.connector.GetName(), t.endpoint)
	return nil
}

func (t *serverTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.peer != nil
}

func (t *serverTransport) ReadLine() (string, error) {
	peer, err := t.currentPeer()
	if err != nil {
		return "", err
	}
	return peer.readLine()
}

func (t *serverTransport) WriteLine(line string) error {
	peer, err := t.currentPeer()
	if err != nil {
		return err
	}
	return peer.writeLine(line)
}

func (t *serverTransport) Flush() error {
	peer, err := t.currentPeer()
	if err != nil {
		return err
	}
	return peer.flush()
}

func (t *serverTransport) Wake(frame []string) error {
	t.mu.Lock()
	peer, listener, closed := t.peer, t.listener, t.closed
	t.mu.Unlock()

	if closed {
		return transport.ErrClosed
	}

	// Case peer connected: interrupt the pending read
	if peer != nil {
		return peer.conn.SetReadDeadline(time.Now())
	}

	// Case nobody listening yet: nothing blocks
	if listener == nil {
		return nil
	}

	// Case waiting for a peer: connect as a client and deliver the wake frame
	conn, err := t.connector.Dial(listener.Addr().String())
	if err != nil {
		return fmt.Errorf("failed to dial %s for wake up: %w", listener.Addr(), err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	if _, err := conn.Write([]byte(strings.Join(frame, "\n") + "\n")); err != nil {
		return fmt.Errorf("failed to write wake request: %w", err)
	}
	return nil
}

func (t *serverTransport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.peer == nil {
		return nil
	}
	err := t.peer.close()
	t.peer = nil
	Logger.Debugf("Peer disconnected from %s", t.endpoint)
	return err
}

func (t *serverTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	var errs []error
	if t.peer != nil {
		errs = append(errs, t.peer.close())
		t.peer = nil
	}
	if t.listener != nil {
		errs = append(errs, t.listener.Close())
		t.listener = nil
	}
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// ensureListener creates the listener on first use. It returns nil if a peer is already connected
func (t *serverTransport) ensureListener() (net.Listener, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, transport.ErrClosed
	}
	if t.peer != nil {
		return nil, nil
	}
	if t.listener == nil {
		listener, err := t.connector.Listen(t.endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create listener: %w", err)
		}
		t.listener = listener
		Logger.Infof("Listening on %s endpoint %s", t.connector.GetName(), listener.Addr())
	}
	return t.listener, nil
}

func (t *serverTransport) currentPeer() (*lineConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, transport.ErrClosed
	}
	if t.peer == nil {
		return nil, transport.ErrNotConnected
	}
	return t.peer, nil
}

func (t *serverTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
