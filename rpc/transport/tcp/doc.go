// Package tcp implements the TCP socket-based line transport of the pipe
// protocol. It provides concrete implementations of the base package's
// connector interfaces, so a client and a server can talk across machines.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector,
//     disables Nagle's algorithm since every request waits for its response
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
//
// The default buffer size is 64 KB.
package tcp
