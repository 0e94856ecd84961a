// Package endpoint implements the state and behavior shared by both sides of a
// pipe conversation. The server and client engines are built by composing an
// Endpoint with a role, instead of deriving from a common base.
//
// Key Components:
//
//   - Endpoint: Holds the immutable ProtocolConfig, the message codec and
//     error channel derived from it, the line stream, and the per exchange
//     state (last request, last response, error flag and last error).
//
//   - Exchange lock: Lock/Unlock serialize complete exchanges. The protocol is
//     half-duplex, so a second caller blocks until the first exchange is done.
//     The diagnostic state has its own short lived lock, so it can be inspected
//     while an exchange is blocked in a read.
//
//   - Send/Receive: Encode plus framed write, and framed read plus decode, in
//     the direction given by the role (a server reads requests and writes
//     responses, a client the other way around).
//
//   - Stats: Exchange count, error count and latency distribution of this
//     endpoint (go-metrics), mirrored into process wide prometheus metrics
//     (VictoriaMetrics) labelled by role.
package endpoint
