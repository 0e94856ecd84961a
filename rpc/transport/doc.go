// Package transport defines the boundary between the pipe protocol and the
// streams it runs over. The protocol only needs four operations from a
// transport: read a line, write a line, flush, and wait for (or establish) a
// connection. Everything else about the stream is opaque.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - A cooperative way to unblock a server stuck in a blocking read (Wake)
//   - Enabling multiple transport implementations (Unix sockets, TCP, FIFOs, in-memory)
//
// Key Components:
//
//   - ILineStream: ReadLine, WriteLine and Flush, shared by both roles.
//
//   - IServerTransport: Waits for a peer, reads requests and writes responses.
//     Wake lets the server engine interrupt its own pending read when stopping.
//
//   - IClientTransport: Connects to a server, writes requests and reads responses.
package transport
