package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dPipe/rpc/codec"
	"github.com/ValentinKolb/dPipe/rpc/common"
	"github.com/ValentinKolb/dPipe/rpc/endpoint"
	"github.com/ValentinKolb/dPipe/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

var Logger = logger.GetLogger("server")

const (
	// WakeMessageName is the control message used to unblock the serving loop
	WakeMessageName = "wake"

	// maxReadFailures is the number of consecutive failed reads after which the peer is dropped
	maxReadFailures = 3

	// connectRetryDelay is the pause after a failed wait for a connection
	connectRetryDelay = 100 * time.Millisecond
)

// ErrWorkerAborted is returned by AbortWorker if the worker did not exit in time
var ErrWorkerAborted = errors.New("server worker aborted")

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// ResponseFunc computes the response to a request.
// It is called under the exchange lock of the server, so it must not call back
// into the same server. Returned errors (and panics) are sent to the client as
// error tagged responses.
type ResponseFunc func(request string) (string, error)

// MessageHandler answers a control message
type MessageHandler func(msg codec.Message) (string, error)

// reply is the outcome of handling one request
type reply struct {
	text string
	err  *common.Error
}

// PipeServer serves requests of one peer at a time on a dedicated worker goroutine.
type PipeServer struct {
	config    common.ServerConfig
	ep        *endpoint.Endpoint
	transport transport.IServerTransport
	respond   ResponseFunc
	handlers  *xsync.MapOf[string, MessageHandler]
	limiter   *rate.Limiter

	lifecycleMu sync.Mutex // Protects done and cancel
	done        chan struct{}
	cancel      context.CancelFunc

	state        atomic.Int32
	stop         atomic.Bool
	readFailures int // only touched by the worker
}

// NewPipeServer creates a new pipe server
// It takes a config, a transport and the response function as parameters.
// A nil response function answers every request with the generic response.
// It fails with a configuration error if the configuration is invalid.
//
// Usage:
//
//	t := unix.NewUnixServerTransport("/tmp/dpipe.sock")
//	s, err := server.NewPipeServer(config, t, func(req string) (string, error) {
//		return strings.ToUpper(req), nil
//	})
//	if err != nil {
//		panic(err)
//	}
//	s.Start()
//	defer s.Shutdown(5 * time.Second)
func NewPipeServer(
	config common.ServerConfig,
	transport transport.IServerTransport,
	respond ResponseFunc,
) (*PipeServer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ep, err := endpoint.New(endpoint.RoleServer, config.Protocol, transport)
	if err != nil {
		return nil, err
	}

	if respond == nil {
		generic := config.Protocol.GenericResponse
		respond = func(string) (string, error) { return generic, nil }
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), max(config.RequestBurst, 1))
	}

	Logger.Infof("Created Pipe Server")
	Logger.Debugf(config.String())

	return &PipeServer{
		config:    config,
		ep:        ep,
		transport: transport,
		respond:   respond,
		handlers:  xsync.NewMapOf[string, MessageHandler](),
		limiter:   limiter,
	}, nil
}

// --------------------------------------------------------------------------
// Control messages
// --------------------------------------------------------------------------

// RegisterMessageHandler registers a handler for the control message with the given name
func (s *PipeServer) RegisterMessageHandler(name string, handler MessageHandler) error {
	if name == "" || name == WakeMessageName {
		return fmt.Errorf("reserved control message name %q", name)
	}
	if handler == nil {
		return fmt.Errorf("nil handler for control message %q", name)
	}
	s.handlers.Store(name, handler)
	return nil
}

// UnregisterMessageHandler removes the handler of the control message with the given name
func (s *PipeServer) UnregisterMessageHandler(name string) {
	s.handlers.Delete(name)
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Start spawns the worker goroutine. It is a no-op if the server is already running.
func (s *PipeServer) Start() error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	switch s.State() {
	case StateWaitingForConnection, StateServing:
		return nil
	case StateStopping:
		return fmt.Errorf("server is stopping")
	}

	s.stop.Store(false)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.setState(StateWaitingForConnection)

	go s.serve(ctx, s.done)
	return nil
}

// StopServer asks the worker to exit after the current exchange.
// It sets the stop flag and wakes the worker, since a pending read can't be canceled otherwise.
// StopServer does not wait for the worker, use Wait or AbortWorker for that.
func (s *PipeServer) StopServer() error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.State() == StateIdle {
		return nil
	}

	s.stop.Store(true)
	s.setState(StateStopping)
	if s.cancel != nil {
		s.cancel()
	}

	wake := s.ep.RequestFrame(s.ep.Codec().CreateMessage(WakeMessageName))
	if err := s.transport.Wake(wake); err != nil {
		return fmt.Errorf("failed to wake server worker: %w", err)
	}
	return nil
}

// AbortWorker waits up to timeout for the worker to exit. If it doesn't, the
// transport is closed to release any blocked I/O and ErrWorkerAborted is returned.
// A worker stuck in the response function is abandoned. The server can't be
// restarted after an abort, since its transport is closed.
func (s *PipeServer) AbortWorker(timeout time.Duration) error {
	done := s.Done()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
	}

	Logger.Warningf("Server worker did not exit within %s, closing transport", timeout)

	s.lifecycleMu.Lock()
	s.stop.Store(true)
	if s.cancel != nil {
		s.cancel()
	}
	s.lifecycleMu.Unlock()

	closeErr := s.transport.Close()

	select {
	case <-done:
	case <-time.After(timeout):
		Logger.Errorf("Server worker still blocked after closing the transport, abandoning it")
		s.setState(StateIdle)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: %v", ErrWorkerAborted, closeErr)
	}
	return ErrWorkerAborted
}

// Shutdown stops the server, waits up to timeout for the worker and closes the transport
func (s *PipeServer) Shutdown(timeout time.Duration) error {
	if err := s.StopServer(); err != nil {
		Logger.Warningf("%v", err)
	}
	if err := s.AbortWorker(timeout); err != nil {
		return err
	}
	return s.transport.Close()
}

// Done returns a channel that is closed when the worker exits
func (s *PipeServer) Done() <-chan struct{} {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Wait blocks until the worker exits
func (s *PipeServer) Wait() {
	<-s.Done()
}

// --------------------------------------------------------------------------
// Serving loop
// --------------------------------------------------------------------------

// serve is the worker loop
func (s *PipeServer) serve(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.finish()

	Logger.Infof("Server worker started on %s transport", s.transport.GetName())

	for !s.stop.Load() {
		if !s.transport.IsConnected() {
			s.setStateUnlessStopping(StateWaitingForConnection)
			if err := s.transport.WaitForConnection(ctx); err != nil {
				if s.stop.Load() || ctx.Err() != nil || errors.Is(err, transport.ErrClosed) {
					break
				}
				s.ep.RecordError(common.NewTransportError("wait for connection", err))
				Logger.Errorf("Waiting for connection failed: %v", err)

				select {
				case <-ctx.Done():
				case <-time.After(connectRetryDelay):
				}
			}
			continue
		}

		s.setStateUnlessStopping(StateServing)

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				break
			}
		}

		if s.serveOne() {
			break
		}
	}
}

// finish resets the server after the worker loop exited
func (s *PipeServer) finish() {
	s.ep.ResetState()
	if err := s.transport.Disconnect(); err != nil {
		Logger.Warningf("Failed to release transport: %v", err)
	}
	s.setState(StateIdle)
	Logger.Infof("Server worker stopped")
}

// serveOne reads one request, responds to it and reports whether the loop should exit.
// The complete cycle runs under the exchange lock.
func (s *PipeServer) serveOne() bool {
	s.ep.Lock()
	defer s.ep.Unlock()

	decoded, err := s.ep.Receive()
	if err != nil {
		if s.stop.Load() {
			return true
		}
		s.handleReadError(err)
		return false
	}
	s.readFailures = 0

	// a wake request is not an exchange, it is never answered or recorded
	if decoded.IsMessage && decoded.Message.Name == WakeMessageName {
		if !s.stop.Load() {
			Logger.Debugf("Ignoring stale wake request")
		}
		return s.stop.Load()
	}
	start := time.Now()

	// a new request resets the state of the previous exchange
	s.ep.Update(func(st *endpoint.State) {
		*st = endpoint.State{LastRequest: decoded.Payload}
	})

	r := s.respondToRequest(decoded)
	if r.err != nil {
		s.ep.RecordError(r.err)
	}
	if res := s.ep.Send(r.text); !res.IsOk() {
		s.ep.RecordError(res.Err)
		Logger.Errorf("Failed to send response: %v", res.Err)
		return s.stop.Load()
	}

	s.ep.Update(func(st *endpoint.State) {
		st.LastResponse = r.text
		if r.err == nil {
			st.Response = r.text
		}
	})
	s.ep.ObserveExchange(start)
	return s.stop.Load()
}

// handleReadError records a failed read. The peer is dropped if it is gone
// or if reads keep failing, otherwise the loop just continues.
func (s *PipeServer) handleReadError(err *common.Error) {
	s.readFailures++

	if errors.Is(err, io.EOF) {
		Logger.Infof("Peer closed the connection")
		s.readFailures = 0
		_ = s.transport.Disconnect()
		return
	}

	s.ep.RecordError(err)
	Logger.Warningf("Failed to read request: %v", err)

	if s.readFailures >= maxReadFailures || isConnectionLost(err) {
		Logger.Warningf("Dropping peer after %d failed reads", s.readFailures)
		s.readFailures = 0
		_ = s.transport.Disconnect()
	}
}

// respondToRequest computes the reply to a decoded request
func (s *PipeServer) respondToRequest(decoded codec.Decoded) reply {
	conf := s.ep.Config()

	if decoded.IsMessage {
		return s.handleMessage(decoded.Message)
	}

	if decoded.Payload == conf.StopRequest {
		Logger.Infof("Stop request received")
		s.stop.Store(true)
		s.setState(StateStopping)
		return reply{text: conf.StoppedResponse}
	}

	resp, err := invoke(func() (string, error) { return s.respond(decoded.Payload) })
	if err != nil {
		Logger.Debugf("Response function failed: %v", err)
		return reply{text: s.ep.ErrorChannel().Wrap(err), err: err}
	}
	return s.responseReply(resp)
}

// responseReply answers with the output of a response function or handler.
// Output with line breaks can't be sent as a single line response, it is
// answered with an application error instead.
func (s *PipeServer) responseReply(resp string) reply {
	if !s.ep.Config().ResponseMultiline && strings.ContainsAny(resp, "\r\n") {
		err := common.NewApplicationError("response contains a line break, but responses are single line", nil)
		Logger.Warningf("Rejected response of %d bytes: %v", len(resp), err)
		return reply{text: s.ep.ErrorChannel().Wrap(err), err: err}
	}
	return reply{text: resp}
}

// handleMessage answers a control message
func (s *PipeServer) handleMessage(msg codec.Message) reply {
	conf := s.ep.Config()

	if msg.Name == "" {
		return reply{
			text: conf.GenericResponse,
			err:  common.NewProtocolError("control message without name"),
		}
	}

	handler, ok := s.handlers.Load(msg.Name)
	if !ok {
		Logger.Warningf("Unhandled control message %q", msg.Name)
		return reply{text: conf.GenericResponse}
	}

	resp, err := invoke(func() (string, error) { return handler(msg) })
	if err != nil {
		return reply{text: s.ep.ErrorChannel().Wrap(err), err: err}
	}
	return s.responseReply(resp)
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Config returns the server configuration
func (s *PipeServer) Config() common.ServerConfig {
	return s.config
}

// IsRunning reports whether the worker is running
func (s *PipeServer) IsRunning() bool {
	return s.State() != StateIdle
}

// LastRequestString returns the last request received
func (s *PipeServer) LastRequestString() string {
	return s.ep.State().LastRequest
}

// LastResponseString returns the last response sent
func (s *PipeServer) LastResponseString() string {
	return s.ep.State().LastResponse
}

// IsError reports whether the last exchange failed
func (s *PipeServer) IsError() bool {
	return s.ep.State().IsError
}

// LastError returns the error of the last failed exchange
func (s *PipeServer) LastError() error {
	return s.ep.State().LastError
}

// LastErrorMessage returns the message of the last failed exchange
func (s *PipeServer) LastErrorMessage() string {
	return s.ep.State().LastErrorMessage
}

// Stats returns the exchange statistics of the server
func (s *PipeServer) Stats() endpoint.Stats {
	return s.ep.Stats()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// invoke calls fn and converts returned errors and panics into application errors
func invoke(fn func() (string, error)) (resp string, perr *common.Error) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("Recovered from panic in response function: %v", r)
			resp = ""
			perr = common.NewApplicationError(fmt.Sprintf("panic: %v", r), nil)
		}
	}()

	resp, err := fn()
	if err == nil {
		return resp, nil
	}
	var e *common.Error
	if errors.As(err, &e) {
		return "", e
	}
	return "", common.NewApplicationError(err.Error(), err)
}

// isConnectionLost reports whether a read error means the peer connection is unusable
func isConnectionLost(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, transport.ErrNotConnected)
}
