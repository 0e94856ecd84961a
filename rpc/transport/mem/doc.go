// Package mem implements an in-process line transport: a server and a client
// end connected by two io.Pipes, one per direction. It behaves like a pair of
// unbuffered named pipes, which makes it the transport of choice for tests and
// for embedding a server into the same process as its client.
//
// Wake follows the classic named pipe technique: the wake frame is written
// into the request pipe exactly as a client would write a request, which
// unblocks the server's pending read. Frames of the client and of Wake are
// written whole, one at a time.
package mem

import "github.com/lni/dragonboat/v4/logger"

var Logger = logger.GetLogger("transport")
