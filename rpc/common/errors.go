package common

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// ErrorKind classifies the failures of the pipe protocol.
type ErrorKind uint8

const (
	KindNone          ErrorKind = iota
	KindConfiguration           // invalid protocol configuration, raised at construction
	KindTransport               // I/O failure on the underlying stream
	KindApplication             // failure of the response function on the server
	KindProtocol                // malformed control message
)

// String returns the label of the kind as it appears in error tagged responses
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindConfiguration:
		return "ConfigurationError"
	case KindTransport:
		return "TransportError"
	case KindApplication:
		return "ApplicationError"
	case KindProtocol:
		return "ProtocolError"
	default:
		return "UnknownError"
	}
}

// ParseErrorKind converts a kind label back into an ErrorKind.
// Unknown labels are reported as KindApplication since they originate from the remote side.
func ParseErrorKind(label string) ErrorKind {
	switch label {
	case "ConfigurationError":
		return KindConfiguration
	case "TransportError":
		return KindTransport
	case "ProtocolError":
		return KindProtocol
	default:
		return KindApplication
	}
}

// --------------------------------------------------------------------------
// Error type
// --------------------------------------------------------------------------

// Error is the error type of the pipe protocol. It carries a kind,
// a human-readable message and optionally the underlying cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Sentinel errors for errors.Is checks. A sentinel matches every Error of the same kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrTransport     = &Error{Kind: KindTransport}
	ErrApplication   = &Error{Kind: KindApplication}
	ErrProtocol      = &Error{Kind: KindProtocol}
)

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err == nil:
		return e.Kind.String()
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Message == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Reason returns the message of the error and its cause, without the kind label
func (e *Error) Reason() string {
	if e.Message != "" {
		if e.Err != nil && e.Err.Error() != e.Message {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

// --------------------------------------------------------------------------
// Error Factory Functions
// --------------------------------------------------------------------------

// NewConfigurationError creates a new configuration error
func NewConfigurationError(msg string) *Error {
	return &Error{Kind: KindConfiguration, Message: msg}
}

// NewTransportError creates a new transport error for the failed operation op
func NewTransportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Message: op, Err: err}
}

// NewApplicationError creates a new application error
func NewApplicationError(msg string, err error) *Error {
	return &Error{Kind: KindApplication, Message: msg, Err: err}
}

// NewProtocolError creates a new protocol error
func NewProtocolError(msg string) *Error {
	return &Error{Kind: KindProtocol, Message: msg}
}

// --------------------------------------------------------------------------
// Result
// --------------------------------------------------------------------------

// Result is the outcome of one protocol operation: either a value or an error, never both.
type Result struct {
	Value string
	Err   *Error
}

// Ok creates a successful result
func Ok(value string) Result {
	return Result{Value: value}
}

// Fail creates a failed result
func Fail(err *Error) Result {
	return Result{Err: err}
}

// IsOk reports whether the result holds a value
func (r Result) IsOk() bool {
	return r.Err == nil
}
