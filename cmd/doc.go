// Package cmd implements the command-line interface of dPipe. It provides
// commands for running a pipe server and for talking to it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts a pipe server with one of the built-in responders
//   - send: Sends requests (arguments or stdin lines) and prints the responses
//   - stop: Sends the stop request to a running server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dpipe -help for a list of all commands.
package cmd
