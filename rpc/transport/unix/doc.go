// Package unix implements the line transport of the pipe protocol over Unix
// domain sockets, the closest analogue of a named pipe with connection
// semantics. It is meant for processes running on the same machine.
//
// This package extends the base transport layer with Unix socket-specific
// connectors while inheriting line framing, connection retries and wake up
// handling from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners (removing a stale socket
//     file first) and dials its own socket to wake a waiting server
//
// The default buffer size is 64 KB.
package unix
