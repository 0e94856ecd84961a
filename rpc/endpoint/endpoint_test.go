package endpoint

import (
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/dPipe/rpc/common"
	"github.com/ValentinKolb/dPipe/rpc/transport/mem"
)

func newPair(t *testing.T, config common.ProtocolConfig) (*Endpoint, *Endpoint) {
	t.Helper()
	st, ct := mem.NewPipePair()
	t.Cleanup(func() {
		_ = ct.Close()
		_ = st.Close()
	})

	server, err := New(RoleServer, config, st)
	if err != nil {
		t.Fatalf("Failed to create server endpoint: %v", err)
	}
	client, err := New(RoleClient, config, ct)
	if err != nil {
		t.Fatalf("Failed to create client endpoint: %v", err)
	}
	return server, client
}

// TestRoleFraming tests that each role writes and reads with the framing of its direction
func TestRoleFraming(t *testing.T) {
	config := common.DefaultProtocolConfig()
	config.RequestMultiline = true

	server, client := newPair(t, config)

	go func() {
		client.Send("alpha\nbeta")
	}()
	decoded, err := server.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if decoded.IsMessage || decoded.Payload != "alpha\nbeta" {
		t.Errorf("server received %+v", decoded)
	}

	go func() {
		server.Send("IGLibMessage" + "Reply")
	}()
	decoded, err = client.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if decoded.IsMessage || decoded.Payload != "IGLibMessageReply" {
		t.Errorf("client received %+v", decoded)
	}
}

// TestControlMessage tests that messages created by the codec are decoded by the peer
func TestControlMessage(t *testing.T) {
	server, client := newPair(t, common.DefaultProtocolConfig())

	go func() {
		client.Send(client.Codec().CreateMessage("status", "verbose"))
	}()
	decoded, err := server.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if !decoded.IsMessage || decoded.Message.Name != "status" || len(decoded.Message.Args) != 1 {
		t.Errorf("server received %+v", decoded)
	}
}

// TestState tests the per exchange state and the statistics
func TestState(t *testing.T) {
	server, _ := newPair(t, common.DefaultProtocolConfig())

	server.Update(func(s *State) {
		s.LastRequest = "req"
		s.Response = "resp"
	})
	server.RecordError(common.NewApplicationError("bad thing happened", nil))

	st := server.State()
	if !st.IsError || st.LastErrorMessage != "bad thing happened" || st.Response != "" {
		t.Errorf("state after error = %+v", st)
	}
	if !errors.Is(st.LastError, common.ErrApplication) {
		t.Errorf("LastError = %v", st.LastError)
	}
	if st.LastRequest != "req" {
		t.Errorf("LastRequest = %q", st.LastRequest)
	}

	server.ObserveExchange(time.Now().Add(-time.Millisecond))
	stats := server.Stats()
	if stats.Exchanges != 1 || stats.Errors != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Max < time.Millisecond {
		t.Errorf("max latency %s below the observed duration", stats.Max)
	}

	server.ResetState()
	if st := server.State(); st.IsError || st.LastRequest != "" {
		t.Errorf("state after reset = %+v", st)
	}
}

// TestReceiveFailure tests that a read on a closed stream is a transport error
func TestReceiveFailure(t *testing.T) {
	config := common.DefaultProtocolConfig()
	st, ct := mem.NewPipePair()
	_ = ct.Close()
	ep, _ := New(RoleServer, config, st)
	if _, err := ep.Receive(); !errors.Is(err, common.ErrTransport) {
		t.Errorf("Receive error = %v, want transport error", err)
	}
}

// TestInvalidConfig tests that endpoints reject invalid configurations
func TestInvalidConfig(t *testing.T) {
	config := common.DefaultProtocolConfig()
	config.Separator = ' '

	st, _ := mem.NewPipePair()
	if _, err := New(RoleServer, config, st); !errors.Is(err, common.ErrConfiguration) {
		t.Errorf("New error = %v, want configuration error", err)
	}
}

// TestStatsPerEndpoint tests that each endpoint reads its statistics from its own registry
func TestStatsPerEndpoint(t *testing.T) {
	server, client := newPair(t, common.DefaultProtocolConfig())

	for i := 0; i < 3; i++ {
		server.ObserveExchange(time.Now())
	}
	client.RecordError(common.NewTransportError("read frame", errors.New("broken pipe")))

	if stats := server.Stats(); stats.Exchanges != 3 || stats.Errors != 0 {
		t.Errorf("server stats = %+v", stats)
	}
	if stats := client.Stats(); stats.Exchanges != 0 || stats.Errors != 1 {
		t.Errorf("client stats = %+v", stats)
	}
	if n := server.metrics.timer().Count(); n != 3 {
		t.Errorf("registered exchange timer count = %d, want 3", n)
	}
}

// TestRequestFrame tests that the request frame carries the encoded text in the request framing
func TestRequestFrame(t *testing.T) {
	config := common.DefaultProtocolConfig()
	server, _ := newPair(t, config)
	if frame := server.RequestFrame("hello"); len(frame) != 1 || frame[0] != "hello" {
		t.Errorf("single line frame = %q", frame)
	}

	config.RequestMultiline = true
	server, _ = newPair(t, config)
	frame := server.RequestFrame("a\nb")
	if len(frame) != 3 || frame[0] != "a" || frame[1] != "b" || frame[2] != config.RequestEnd {
		t.Errorf("multiline frame = %q", frame)
	}
}
