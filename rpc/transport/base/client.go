package base

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dPipe/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"math/rand"
	"net"
	"sync"
	"time"
)

var Logger = logger.GetLogger("transport")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(ctx context.Context, endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the client side line transport
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector  IClientConnector
	endpoint   string
	bufferSize int

	connMu sync.Mutex // Protects the connection itself
	conn   *lineConn
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector, endpoint string, bufferSize int) transport.IClientTransport {
	if bufferSize <= 0 {
		bufferSize = 4096
	}
	return &clientTransport{
		connector:  connector,
		endpoint:   endpoint,
		bufferSize: bufferSize,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) GetName() string {
	return t.connector.GetName()
}

// Connect connects to the endpoint. If the context carries a deadline, failed
// attempts are retried with exponential backoff until the deadline expires.
func (t *clientTransport) Connect(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn != nil {
		return nil
	}

	_, retry := ctx.Deadline()

	// Initial backoff duration in milliseconds
	backoffMs := 20

	for attempt := 1; ; attempt++ {
		conn, err := t.connector.Connect(ctx, t.endpoint)
		if err == nil {
			t.conn = newLineConn(conn, t.bufferSize)
			Logger.Infof("Connected to %s endpoint %s", t.connector.GetName(), t.endpoint)
			return nil
		}

		if !retry {
			return fmt.Errorf("failed to connect to %s: %w", t.endpoint, err)
		}
		Logger.Debugf("Connect attempt %d to %s failed: %v", attempt, t.endpoint, err)

		// Exponential backoff with a small random jitter (+-10%)
		jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to connect to %s after %d attempts: %w", t.endpoint, attempt, err)
		case <-time.After(time.Duration(jitter) * time.Millisecond):
		}
		if backoffMs < 1000 {
			backoffMs *= 2
		}
	}
}

func (t *clientTransport) IsConnected() bool {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return t.conn != nil
}

func (t *clientTransport) ReadLine() (string, error) {
	conn, err := t.current()
	if err != nil {
		return "", err
	}
	line, err := conn.readLine()
	if err == io.EOF {
		// server went away, the next Connect starts over
		t.drop(conn)
	}
	return line, err
}

func (t *clientTransport) WriteLine(line string) error {
	conn, err := t.current()
	if err != nil {
		return err
	}
	return conn.writeLine(line)
}

func (t *clientTransport) Flush() error {
	conn, err := t.current()
	if err != nil {
		return err
	}
	if err := conn.flush(); err != nil {
		t.drop(conn)
		return err
	}
	return nil
}

func (t *clientTransport) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.close()
	t.conn = nil
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *clientTransport) current() (*lineConn, error) {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	if t.conn == nil {
		return nil, transport.ErrNotConnected
	}
	return t.conn, nil
}

// drop closes conn if it is still the current connection
func (t *clientTransport) drop(conn *lineConn) {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	if t.conn == conn {
		conn.close()
		t.conn = nil
	}
}
