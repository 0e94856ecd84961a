package tcp

import (
	"fmt"
	"github.com/ValentinKolb/dPipe/rpc/transport"
	"github.com/ValentinKolb/dPipe/rpc/transport/base"
	"net"
	"time"
)

const (
	defaultBufferSize = 64 * 1024 // 64 KB
)

// serverConnector implements the IServerConnector interface for TCP sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(endpoint string) (net.Listener, error) {
	listener, err := net.Listen("tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %v", err)
	}
	return listener, nil
}

func (c *serverConnector) Dial(address string) (net.Conn, error) {
	return net.DialTimeout("tcp", address, time.Second)
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPServerTransport creates a new TCP server transport listening on the given address
func NewTCPServerTransport(endpoint string) transport.IServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, endpoint, defaultBufferSize)
}
