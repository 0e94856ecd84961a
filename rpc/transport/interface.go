package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by transports that have been closed for good
var ErrClosed = errors.New("transport closed")

// ErrNotConnected is returned by line operations on a transport without peer
var ErrNotConnected = errors.New("transport not connected")

// --------------------------------------------------------------------------
// Line Stream
// --------------------------------------------------------------------------

// ILineReader reads one line of text, without its terminator
type ILineReader interface {
	ReadLine() (string, error)
}

// ILineWriter writes lines of text. Written lines may be buffered until Flush is called
type ILineWriter interface {
	WriteLine(line string) error
	Flush() error
}

// ILineStream is the line oriented stream a protocol endpoint talks over
type ILineStream interface {
	ILineReader
	ILineWriter
}

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// IServerTransport is the server side of a line transport.
// Reads return the requests of the connected peer, writes go back to it.
type IServerTransport interface {
	ILineStream
	// WaitForConnection blocks until a peer is connected
	// It returns immediately if a peer is already connected
	WaitForConnection(ctx context.Context) error
	// IsConnected reports whether a peer is connected
	IsConnected() bool
	// Wake unblocks a pending ReadLine or WaitForConnection of the server.
	// Transports that can inject lines deliver the given frame to the server's
	// inbound stream through a client path, with one write for all lines so
	// the frame never interleaves with a client's frame.
	Wake(frame []string) error
	// Disconnect drops the current peer, the transport can wait for the next one
	Disconnect() error
	// Close releases all resources, the transport can't be used afterward
	Close() error
	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IClientTransport is the client side of a line transport.
type IClientTransport interface {
	ILineStream
	// Connect connects to the server, it is a no-op if already connected
	Connect(ctx context.Context) error
	// IsConnected reports whether the client is connected
	IsConnected() bool
	// Close closes the connection
	Close() error
	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}
