package client

import (
	"context"
	"time"

	"github.com/ValentinKolb/dPipe/rpc/common"
	"github.com/ValentinKolb/dPipe/rpc/endpoint"
	"github.com/ValentinKolb/dPipe/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("client")

// PipeClient sends requests to a pipe server and reads its responses.
// Calls run synchronously on the caller's goroutine.
type PipeClient struct {
	config    common.ClientConfig
	ep        *endpoint.Endpoint
	transport transport.IClientTransport
}

// NewPipeClient creates a new pipe client
// The transport is connected lazily by the first request, or explicitly by Connect.
// It fails with a configuration error if the configuration is invalid.
func NewPipeClient(config common.ClientConfig, transport transport.IClientTransport) (*PipeClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ep, err := endpoint.New(endpoint.RoleClient, config.Protocol, transport)
	if err != nil {
		return nil, err
	}

	Logger.Debugf(config.String())

	return &PipeClient{
		config:    config,
		ep:        ep,
		transport: transport,
	}, nil
}

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

// Connect connects the transport to the server
func (c *PipeClient) Connect(ctx context.Context) error {
	if err := c.transport.Connect(ctx); err != nil {
		return common.NewTransportError("connect", err)
	}
	return nil
}

// Close closes the transport
func (c *PipeClient) Close() error {
	c.ep.Lock()
	defer c.ep.Unlock()
	return c.transport.Close()
}

// ensureConnected connects the transport if needed, bounded by the connect timeout
func (c *PipeClient) ensureConnected() *common.Error {
	if c.transport.IsConnected() {
		return nil
	}

	ctx := context.Background()
	if c.config.ConnectTimeoutSecond > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.config.ConnectTimeoutSecond)*time.Second)
		defer cancel()
	}

	if err := c.transport.Connect(ctx); err != nil {
		return common.NewTransportError("connect", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Requests
// --------------------------------------------------------------------------

// SendRequest sends one request. Failures are not returned but recorded,
// check IsError and LastErrorMessage afterward.
func (c *PipeClient) SendRequest(payload string) {
	c.ep.Lock()
	defer c.ep.Unlock()
	c.sendRequest(payload)
}

// ReadResponse reads the response to the last request.
// It returns the response, or an error tagged string if the exchange failed.
func (c *PipeClient) ReadResponse() string {
	c.ep.Lock()
	defer c.ep.Unlock()
	c.readResponse()
	return c.ep.State().LastResponse
}

// GetServerResponse sends a request and returns the response of the server.
// The exchange lock is held for the complete round trip.
//
// GetServerResponse always returns a string: either the response or an error
// tagged string. Use IsError and LastErrorMessage to tell them apart.
func (c *PipeClient) GetServerResponse(request string) string {
	c.ep.Lock()
	defer c.ep.Unlock()
	c.exchange(request)
	return c.ep.State().LastResponse
}

// Exchange sends a request and returns the outcome as a Result instead of a string.
// The per exchange state is updated the same way GetServerResponse updates it.
func (c *PipeClient) Exchange(request string) common.Result {
	c.ep.Lock()
	defer c.ep.Unlock()
	return c.exchange(request)
}

// StopServer sends the stop request to the server.
// It returns the stopped response on success.
func (c *PipeClient) StopServer() string {
	return c.GetServerResponse(c.config.Protocol.StopRequest)
}

// exchange runs one round trip, the caller holds the exchange lock
func (c *PipeClient) exchange(request string) common.Result {
	start := time.Now()
	if res := c.sendRequest(request); !res.IsOk() {
		return res
	}
	res := c.readResponse()
	if res.IsOk() {
		c.ep.ObserveExchange(start)
	}
	return res
}

// sendRequest connects if needed and writes one request, the caller holds the exchange lock
func (c *PipeClient) sendRequest(payload string) common.Result {
	c.ep.Update(func(s *endpoint.State) {
		*s = endpoint.State{LastRequest: payload, LastResponse: s.LastResponse}
	})

	if err := c.ensureConnected(); err != nil {
		return c.fail(err)
	}

	if res := c.ep.Send(payload); !res.IsOk() {
		return c.fail(res.Err)
	}
	return common.Ok(payload)
}

// readResponse reads and decodes one response, the caller holds the exchange lock
func (c *PipeClient) readResponse() common.Result {
	decoded, err := c.ep.Receive()
	if err != nil {
		return c.fail(err)
	}

	text := decoded.Payload
	errs := c.ep.ErrorChannel()
	if !errs.IsError(text) {
		c.ep.Update(func(s *endpoint.State) {
			s.LastResponse = text
			s.Response = text
		})
		return common.Ok(text)
	}

	perr, parseErr := errs.Parse(text)
	if parseErr != nil {
		perr = common.NewProtocolError(parseErr.Error())
	}
	message, _ := errs.Unwrap(text)

	c.ep.RecordError(perr)
	c.ep.Update(func(s *endpoint.State) {
		s.LastResponse = text
		s.LastErrorMessage = message
	})
	Logger.Debugf("Server responded with error: %s", message)
	return common.Fail(perr)
}

// fail records a local failure. The error tagged string becomes the last response.
func (c *PipeClient) fail(err *common.Error) common.Result {
	Logger.Warningf("Request failed: %v", err)
	c.ep.RecordError(err)
	wrapped := c.ep.ErrorChannel().Wrap(err)
	c.ep.Update(func(s *endpoint.State) {
		s.LastResponse = wrapped
	})
	return common.Fail(err)
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Config returns the client configuration
func (c *PipeClient) Config() common.ClientConfig {
	return c.config
}

// IsConnected reports whether the transport is connected
func (c *PipeClient) IsConnected() bool {
	return c.transport.IsConnected()
}

// IsError reports whether the last exchange failed
func (c *PipeClient) IsError() bool {
	return c.ep.State().IsError
}

// LastError returns the error of the last failed exchange
func (c *PipeClient) LastError() error {
	return c.ep.State().LastError
}

// LastErrorMessage returns the message of the last failed exchange.
// For errors reported by the server it is the unwrapped error response.
func (c *PipeClient) LastErrorMessage() string {
	return c.ep.State().LastErrorMessage
}

// LastRequestString returns the last request sent
func (c *PipeClient) LastRequestString() string {
	return c.ep.State().LastRequest
}

// LastResponseString returns the last response received, error responses included
func (c *PipeClient) LastResponseString() string {
	return c.ep.State().LastResponse
}

// ResponseString returns the last successful response, empty after a failed exchange
func (c *PipeClient) ResponseString() string {
	return c.ep.State().Response
}

// Stats returns the exchange statistics of the client
func (c *PipeClient) Stats() endpoint.Stats {
	return c.ep.Stats()
}
