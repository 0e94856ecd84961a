// Package base provides the line transport shared by all net.Conn based
// transports (TCP, Unix sockets). It implements buffered line reading and
// writing and the connection lifecycle, and is extended with protocol-specific
// connectors.
//
// The package focuses on:
//   - Protocol-agnostic client and server line transports
//   - One peer per server at a time, matching the half-duplex protocol
//   - Connection retries with exponential backoff on the client side
//   - Waking a server blocked in Accept or ReadLine
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - clientTransport: Connects lazily, retries until the context deadline and
//     drops the connection when the server closes it.
//
//   - serverTransport: Creates the listener on first use and accepts one peer.
//     Wake sets a read deadline on a connected peer, or dials the listener and
//     delivers the wake frame when the server is still waiting for a peer.
//
// Thread Safety:
//
//	Connection state is guarded by a mutex. Reads and writes themselves are not
//	synchronized here, the protocol endpoint serializes them.
package base
