package endpoint

import (
	"sync"
	"time"

	"github.com/ValentinKolb/dPipe/rpc/codec"
	"github.com/ValentinKolb/dPipe/rpc/common"
	"github.com/ValentinKolb/dPipe/rpc/framer"
	"github.com/ValentinKolb/dPipe/rpc/transport"
)

// --------------------------------------------------------------------------
// Role
// --------------------------------------------------------------------------

// Role is the side of the conversation an endpoint plays
type Role uint8

const (
	RoleServer Role = iota
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleServer:
		return "server"
	case RoleClient:
		return "client"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Per exchange state
// --------------------------------------------------------------------------

// State is the diagnostic state of the last exchange of an endpoint
type State struct {
	// LastRequest is the last request sent (client) or received (server)
	LastRequest string
	// LastResponse is the last response received (client) or sent (server), error responses included
	LastResponse string
	// Response is the last successful response, empty after a failed exchange
	Response string

	IsError          bool
	LastError        error
	LastErrorMessage string
}

// --------------------------------------------------------------------------
// Endpoint
// --------------------------------------------------------------------------

// Endpoint is one side of a pipe conversation. It owns the protocol configuration,
// the line stream, the per exchange state and the lock serializing exchanges.
type Endpoint struct {
	role   Role
	config common.ProtocolConfig
	codec  *codec.MessageCodec
	errs   *codec.ErrorChannel
	stream transport.ILineStream

	exchangeMu sync.Mutex // serializes complete exchanges

	stateMu sync.RWMutex // protects state
	state   State

	metrics *endpointMetrics
}

// New creates a new endpoint for the given role.
// It fails with a configuration error if the configuration is invalid.
func New(role Role, config common.ProtocolConfig, stream transport.ILineStream) (*Endpoint, error) {
	c, err := codec.NewMessageCodec(config)
	if err != nil {
		return nil, err
	}
	errs, err := codec.NewErrorChannel(config)
	if err != nil {
		return nil, err
	}

	return &Endpoint{
		role:    role,
		config:  config,
		codec:   c,
		errs:    errs,
		stream:  stream,
		metrics: newEndpointMetrics(role),
	}, nil
}

// Role returns the role of the endpoint
func (e *Endpoint) Role() Role {
	return e.role
}

// Config returns a copy of the protocol configuration
func (e *Endpoint) Config() common.ProtocolConfig {
	return e.config
}

// Codec returns the message codec of the endpoint
func (e *Endpoint) Codec() *codec.MessageCodec {
	return e.codec
}

// ErrorChannel returns the error channel of the endpoint
func (e *Endpoint) ErrorChannel() *codec.ErrorChannel {
	return e.errs
}

// --------------------------------------------------------------------------
// Exchange lock
// --------------------------------------------------------------------------

// Lock acquires the exchange lock. At most one exchange is in flight per endpoint,
// a second caller blocks until the first one called Unlock.
func (e *Endpoint) Lock() {
	e.exchangeMu.Lock()
}

// Unlock releases the exchange lock
func (e *Endpoint) Unlock() {
	e.exchangeMu.Unlock()
}

// --------------------------------------------------------------------------
// State
// --------------------------------------------------------------------------

// State returns a snapshot of the per exchange state
func (e *Endpoint) State() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

// Update modifies the per exchange state
func (e *Endpoint) Update(fn func(s *State)) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	fn(&e.state)
}

// ResetState clears the per exchange state
func (e *Endpoint) ResetState() {
	e.Update(func(s *State) { *s = State{} })
}

// RecordError marks the last exchange as failed
func (e *Endpoint) RecordError(err *common.Error) {
	e.metrics.observeError(err)
	e.Update(func(s *State) {
		s.IsError = true
		s.LastError = err
		s.LastErrorMessage = err.Reason()
		s.Response = ""
	})
}

// --------------------------------------------------------------------------
// Framing
// --------------------------------------------------------------------------

// outgoing returns the framing of frames this endpoint writes
func (e *Endpoint) outgoing() (bool, string) {
	if e.role == RoleServer {
		return e.config.ResponseMultiline, e.config.ResponseEnd
	}
	return e.config.RequestMultiline, e.config.RequestEnd
}

// incoming returns the framing of frames this endpoint reads
func (e *Endpoint) incoming() (bool, string) {
	if e.role == RoleServer {
		return e.config.RequestMultiline, e.config.RequestEnd
	}
	return e.config.ResponseMultiline, e.config.ResponseEnd
}

// Send encodes text and writes it as one frame. The caller holds the exchange lock.
func (e *Endpoint) Send(text string) common.Result {
	encoded := e.codec.Encode(text)
	multiline, end := e.outgoing()
	if err := framer.WriteFrame(e.stream, encoded, multiline, end); err != nil {
		return common.Fail(asProtocolError(err))
	}
	return common.Ok(encoded)
}

// RequestFrame encodes text and returns the lines of the request frame carrying
// it, independent of the role of this endpoint. The server uses it to inject a
// request into its own inbound stream.
func (e *Endpoint) RequestFrame(text string) []string {
	return framer.Lines(e.codec.Encode(text), e.config.RequestMultiline, e.config.RequestEnd)
}

// Receive reads one frame and decodes it. The caller holds the exchange lock.
func (e *Endpoint) Receive() (codec.Decoded, *common.Error) {
	multiline, end := e.incoming()
	wire, err := framer.ReadFrame(e.stream, multiline, end)
	if err != nil {
		return codec.Decoded{}, asProtocolError(err)
	}
	return e.codec.Decode(wire), nil
}

// --------------------------------------------------------------------------
// Statistics
// --------------------------------------------------------------------------

// ObserveExchange records the duration of a completed exchange
func (e *Endpoint) ObserveExchange(start time.Time) {
	e.metrics.observeExchange(start)
}

// Stats returns the exchange statistics of this endpoint
func (e *Endpoint) Stats() Stats {
	return e.metrics.snapshot()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func asProtocolError(err error) *common.Error {
	if perr, ok := err.(*common.Error); ok {
		return perr
	}
	return common.NewTransportError("", err)
}
