// Package rpc provides a half-duplex request/response protocol over line
// oriented text streams. A client process drives a server process over a pair
// of streams (a named pipe, a unix socket or a tcp connection), one exchange
// at a time.
//
// The package is organized into several subpackages:
//
//   - common: Configuration structures, the error taxonomy, the tagged Result
//     and logging.
//
//   - codec: The message codec multiplexing control messages and payload on the
//     same channel, and the error channel turning errors into response data.
//
//   - framer: Conversion between logical requests or responses and wire lines,
//     in single line or multiline mode.
//
//   - transport: Line stream abstractions with pluggable implementations
//     (unix sockets, tcp, named pipes, in-memory pipes).
//
//   - endpoint: The state and behavior shared by both sides of a conversation.
//
//   - server: The serving loop with cooperative shutdown on top of blocking reads.
//
//   - client: The synchronous client that always gets a string back.
package rpc
