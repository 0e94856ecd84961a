// Package fifo implements the line transport of the pipe protocol over POSIX
// named pipes. An endpoint path P maps to two FIFOs: P.req carries requests
// from the client to the server, P.resp carries responses back.
//
// Connection semantics follow the FIFO open rules: the server's open of the
// request FIFO blocks until a client opens it for writing, and a client
// reading the response FIFO sees io.EOF once the server closes its end. The
// server opens the response FIFO read-write so that opening it never blocks.
//
// Wake writes the wake frame into the request FIFO like any other client, the
// textbook way to release a reader blocked on a named pipe.
//
// Only one client may use an endpoint at a time. Lines written by two
// concurrent clients would interleave on the request FIFO.
package fifo

import "github.com/lni/dragonboat/v4/logger"

var Logger = logger.GetLogger("transport")
