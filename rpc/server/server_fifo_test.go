//go:build !windows

package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/dPipe/rpc/common"
	"github.com/ValentinKolb/dPipe/rpc/transport/fifo"
)

func fifoEndpoint(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "dpipe")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "pipe")
}

// TestNamedPipes tests the server over a pair of named pipes
func TestNamedPipes(t *testing.T) {
	endpoint := fifoEndpoint(t)
	st, err := fifo.NewFifoServerTransport(endpoint)
	if err != nil {
		t.Fatalf("Failed to create fifo transport: %v", err)
	}

	protocol := common.DefaultProtocolConfig()
	protocol.RequestMultiline = true
	protocol.ResponseMultiline = true
	s, c := startWith(t, protocol, st, fifo.NewFifoClientTransport(endpoint), upper)

	if resp := c.GetServerResponse("hello"); resp != "HELLO" {
		t.Fatalf("GetServerResponse = %q (%s)", resp, c.LastErrorMessage())
	}
	if resp := c.GetServerResponse("line1\nline2"); resp != "LINE1\nLINE2" {
		t.Errorf("GetServerResponse = %q", resp)
	}
	if s.LastRequestString() != "line1\nline2" {
		t.Errorf("server received %q", s.LastRequestString())
	}

	if resp := c.StopServer(); resp != common.DefaultStoppedResponse {
		t.Errorf("StopServer = %q", resp)
	}
	waitDone(t, s)
}

// TestNamedPipesStopWhileReading tests that StopServer releases a worker blocked reading the request fifo
func TestNamedPipesStopWhileReading(t *testing.T) {
	for _, multiline := range []bool{false, true} {
		endpoint := fifoEndpoint(t)
		st, err := fifo.NewFifoServerTransport(endpoint)
		if err != nil {
			t.Fatalf("Failed to create fifo transport: %v", err)
		}

		protocol := common.DefaultProtocolConfig()
		protocol.RequestMultiline = multiline
		s, c := startWith(t, protocol, st, fifo.NewFifoClientTransport(endpoint), upper)

		if resp := c.GetServerResponse("hello"); resp != "HELLO" {
			t.Fatalf("multiline %v: GetServerResponse = %q (%s)", multiline, resp, c.LastErrorMessage())
		}
		time.Sleep(50 * time.Millisecond)

		if err := s.StopServer(); err != nil {
			t.Fatalf("multiline %v: StopServer failed: %v", multiline, err)
		}
		waitDone(t, s)
		if s.State() != StateIdle {
			t.Errorf("multiline %v: state = %s, want idle", multiline, s.State())
		}
	}
}

// TestNamedPipesStopWhileWaiting tests that StopServer releases a worker blocked opening the request fifo
func TestNamedPipesStopWhileWaiting(t *testing.T) {
	st, err := fifo.NewFifoServerTransport(fifoEndpoint(t))
	if err != nil {
		t.Fatalf("Failed to create fifo transport: %v", err)
	}

	protocol := common.DefaultProtocolConfig()
	protocol.RequestMultiline = true
	s, err := NewPipeServer(serverConfig(protocol), st, upper)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	defer st.Close()
	if err := s.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	// give the worker time to block in the open
	time.Sleep(50 * time.Millisecond)
	if s.State() != StateWaitingForConnection {
		t.Fatalf("state = %s, want waiting for connection", s.State())
	}

	if err := s.StopServer(); err != nil {
		t.Fatalf("StopServer failed: %v", err)
	}
	waitDone(t, s)
}
