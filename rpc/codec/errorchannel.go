package codec

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dPipe/rpc/common"
)

const reasonSeparator = ", reason: "

// ErrorChannel turns errors into response text and back.
// An error tagged response has the form <marker><kind>, reason: <message>.
type ErrorChannel struct {
	marker string
}

// NewErrorChannel creates a new error channel for the given configuration
func NewErrorChannel(config common.ProtocolConfig) (*ErrorChannel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ErrorChannel{marker: config.ErrorBegin}, nil
}

// Wrap converts an error into an error tagged response string.
// Errors of type *common.Error keep their kind, all other errors are application errors.
func (e *ErrorChannel) Wrap(err error) string {
	if err == nil {
		return e.WrapKind(common.KindApplication, "")
	}
	if perr, ok := err.(*common.Error); ok {
		return e.WrapKind(perr.Kind, perr.Reason())
	}
	return e.WrapKind(common.KindApplication, err.Error())
}

// WrapKind builds an error tagged response from a kind and a message
func (e *ErrorChannel) WrapKind(kind common.ErrorKind, message string) string {
	return e.marker + kind.String() + reasonSeparator + flattenLines(message)
}

// IsError reports whether the response string is error tagged
func (e *ErrorChannel) IsError(response string) bool {
	return strings.HasPrefix(response, e.marker)
}

// Unwrap strips the marker from an error tagged response.
// It fails if the response is not error tagged.
func (e *ErrorChannel) Unwrap(response string) (string, error) {
	if !e.IsError(response) {
		return "", fmt.Errorf("response is not an error response: %q", response)
	}
	return response[len(e.marker):], nil
}

// Parse converts an error tagged response back into a *common.Error
func (e *ErrorChannel) Parse(response string) (*common.Error, error) {
	text, err := e.Unwrap(response)
	if err != nil {
		return nil, err
	}
	label, message, found := strings.Cut(text, reasonSeparator)
	if !found {
		return common.NewApplicationError(text, nil), nil
	}
	return &common.Error{Kind: common.ParseErrorKind(label), Message: message}, nil
}

// flattenLines keeps error messages on one line so they survive single line framing
func flattenLines(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }), " ")
}
