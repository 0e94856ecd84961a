package unix

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/dPipe/rpc/transport"
)

func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "dpipe")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "t.sock")
}

// TestLineExchange tests a line round trip between the client and server transport
func TestLineExchange(t *testing.T) {
	path := socketPath(t)
	server := NewUnixServerTransport(path)
	defer server.Close()

	accepted := make(chan error, 1)
	go func() { accepted <- server.WaitForConnection(context.Background()) }()

	client := NewUnixClientTransport(path)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := <-accepted; err != nil {
		t.Fatalf("WaitForConnection failed: %v", err)
	}

	_ = client.WriteLine("ping\r")
	if err := client.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	line, err := server.ReadLine()
	if err != nil || line != "ping" {
		t.Fatalf("ReadLine = %q, %v", line, err)
	}

	_ = server.WriteLine("pong")
	_ = server.Flush()
	if line, err := client.ReadLine(); err != nil || line != "pong" {
		t.Fatalf("ReadLine = %q, %v", line, err)
	}

	// the server sees the end of the stream once the client is gone
	_ = client.Close()
	if _, err := server.ReadLine(); err == nil {
		t.Errorf("ReadLine after client close succeeded")
	}
	_ = server.Disconnect()
	if server.IsConnected() {
		t.Errorf("server still connected after Disconnect")
	}
}

// TestWakeInterruptsRead tests that Wake releases a read blocked on a connected peer
func TestWakeInterruptsRead(t *testing.T) {
	path := socketPath(t)
	server := NewUnixServerTransport(path)
	defer server.Close()

	go func() { _ = server.WaitForConnection(context.Background()) }()

	client := NewUnixClientTransport(path)
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !server.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	readErr := make(chan error, 1)
	go func() {
		_, err := server.ReadLine()
		readErr <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := server.Wake([]string{"wake"}); err != nil {
		t.Fatalf("Wake failed: %v", err)
	}

	select {
	case err := <-readErr:
		if !errors.Is(err, os.ErrDeadlineExceeded) {
			t.Errorf("ReadLine error = %v, want deadline exceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("ReadLine still blocked after Wake")
	}
}

// TestWaitForConnectionCanceled tests that a canceled context releases WaitForConnection
func TestWaitForConnectionCanceled(t *testing.T) {
	server := NewUnixServerTransport(socketPath(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.WaitForConnection(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("WaitForConnection error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("WaitForConnection still blocked after cancel")
	}

	_ = server.Close()
	if err := server.WaitForConnection(context.Background()); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("WaitForConnection after Close = %v, want ErrClosed", err)
	}
}
