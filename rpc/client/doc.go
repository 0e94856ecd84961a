// Package client implements the requesting side of the pipe protocol.
//
// A PipeClient wraps a client transport and an endpoint in the client role.
// All calls run synchronously on the caller's goroutine, and the exchange lock
// makes sure that requests of concurrent callers never interleave.
//
// Key Components:
//
//   - GetServerResponse: Sends a request and reads the response while holding
//     the exchange lock for the complete round trip. It always returns a string,
//     either the response of the server or an error tagged string.
//
//   - SendRequest/ReadResponse: The two halves of an exchange, for callers
//     that want to do something in between.
//
//   - Exchange: Same as GetServerResponse, but returns a common.Result.
//
//   - State accessors: IsError, LastErrorMessage, LastRequestString,
//     LastResponseString and ResponseString describe the last exchange.
//
// Usage Example:
//
//	c, _ := client.NewPipeClient(config, unix.NewUnixClientTransport("/tmp/dpipe.sock"))
//	defer c.Close()
//
//	resp := c.GetServerResponse("hello")
//	if c.IsError() {
//	  log.Printf("request failed: %s", c.LastErrorMessage())
//	}
//
// Error Handling:
//
//	Only configuration errors are returned (by NewPipeClient). Transport failures
//	and errors raised by the server's response function are recorded in the state
//	of the client. A transport that is not connected is connected on the next
//	request, bounded by ClientConfig.ConnectTimeoutSecond.
package client
