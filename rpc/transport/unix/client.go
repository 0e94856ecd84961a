package unix

import (
	"context"
	"github.com/ValentinKolb/dPipe/rpc/transport"
	"github.com/ValentinKolb/dPipe/rpc/transport/base"
	"net"
)

// clientConnector implements the IClientConnector interface for Unix sockets
type clientConnector struct {
	dialer net.Dialer
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "unix"
}

func (c *clientConnector) Connect(ctx context.Context, endpoint string) (net.Conn, error) {
	return c.dialer.DialContext(ctx, "unix", endpoint)
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixClientTransport creates a new Unix client transport for the given socket path
func NewUnixClientTransport(socketPath string) transport.IClientTransport {
	return base.NewBaseClientTransport(&clientConnector{}, socketPath, defaultBufferSize)
}
