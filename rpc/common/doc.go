// Package common provides the core data structures and utilities shared by all
// parts of the pipe protocol: configuration, the error taxonomy and logging.
//
// The package focuses on:
//   - Immutable protocol configuration with fail-fast validation
//   - Server and client configuration structures for the cli
//   - A single error type classified by kind, plus a tagged Result
//   - Custom logging implementation integrated with Dragonboat's logger facade
//
// Key Components:
//
//   - ProtocolConfig: Message prefix, separator and false separator, framing
//     mode and end markers of both directions, and the reserved literals (stop
//     request, stopped response, generic response, error marker). A config is
//     validated once when an endpoint is created; Validate fails with a
//     configuration error if the separators are equal, if one of them is
//     whitespace, or if the prefix is shorter than MinPrefixLength.
//
//   - ServerConfig / ClientConfig: Transport selection, endpoint address and
//     role specific options, with String methods for startup logging.
//
//   - Error: Error type carrying an ErrorKind (Configuration, Transport,
//     Application, Protocol). The sentinels ErrConfiguration, ErrTransport,
//     ErrApplication and ErrProtocol match any Error of their kind with errors.Is.
//
//   - Result: Either a value or an Error, used as the internal outcome of every
//     exchange step.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's
//     logger factory and prints consistent LEVEL | package | message lines.
package common
