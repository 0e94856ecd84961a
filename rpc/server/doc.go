// Package server implements the serving side of the pipe protocol.
//
// A PipeServer owns one dedicated worker goroutine that runs the serving loop:
//
//	Idle -> WaitingForConnection -> Serving -> Stopping -> Idle
//
// Each iteration reads one request frame, decodes it, computes the response
// and writes it back, all under the exchange lock of the server endpoint.
//
// The package focuses on:
//   - Robustness: a failed read is recorded and the loop continues, a failing
//     or panicking response function is turned into an error tagged response
//   - Cooperative shutdown on top of blocking I/O
//   - In-band control messages with pluggable handlers
//
// Key Components:
//
//   - ResponseFunc: The pluggable function computing the response to a request.
//     It runs under the exchange lock and must not call back into the server.
//
//   - Stop request: A request equal to the configured stop literal is answered
//     with the stopped response, after which the worker exits.
//
//   - StopServer: Sets the stop flag and wakes the worker. Transports that can
//     inject lines deliver the wake control message (<prefix><separator>wake)
//     through a client path, framed like any other request (followed by the
//     request end marker in multiline mode), network transports interrupt a pending read with a
//     deadline. A wake request is never answered. A wake that arrives while no
//     stop is pending (left over from an earlier stop) is ignored.
//
//   - AbortWorker: The escape hatch. If the worker doesn't exit in time, the
//     transport is closed, which fails every blocked read.
//
//   - RegisterMessageHandler: Control messages with a registered name are
//     answered by their handler; unknown control messages get the generic
//     response.
//
// Usage Example:
//
//	s, err := server.NewPipeServer(config, mem.NewPipePair(), respond)
//	if err != nil {
//	  log.Fatal(err)
//	}
//	_ = s.Start()
//	...
//	_ = s.StopServer()
//	s.Wait()
//
// Thread Safety:
//
//	Start, StopServer, AbortWorker and all accessors are safe for concurrent use.
//	Exchanges are strictly sequential.
package server
