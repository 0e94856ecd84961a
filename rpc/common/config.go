package common

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// --------------------------------------------------------------------------
// Protocol defaults
// --------------------------------------------------------------------------

const (
	DefaultPrefix          = "IGLibMessage"
	DefaultSeparator       = '_'
	DefaultFalseSeparator  = '.'
	DefaultRequestEnd      = "RequestEnd"
	DefaultResponseEnd     = "ResponseEnd"
	DefaultStopRequest     = "stop"
	DefaultStoppedResponse = "IGLib_PipeServer_StoppedResponse"
	DefaultGenericResponse = "IGLib_PipeServer_GenericResponse"
	DefaultErrorBegin      = "$$ERROR__83753093759$$: "

	// MinPrefixLength is the minimal number of characters of a message prefix
	MinPrefixLength = 3
)

// --------------------------------------------------------------------------
// Protocol configuration struct
// --------------------------------------------------------------------------

// ProtocolConfig holds the parameters of the line protocol spoken by one endpoint.
// A ProtocolConfig is a plain value: an endpoint copies it on construction and never
// changes it afterward. Use DefaultProtocolConfig to get sensible defaults.
type ProtocolConfig struct {
	// Prefix starts every control message (and every escaped payload)
	Prefix string
	// Separator follows the prefix in genuine control messages
	Separator rune
	// FalseSeparator is inserted after the prefix to escape payload that collides with it
	FalseSeparator rune

	// Framing of requests (client -> server)
	RequestMultiline bool
	RequestEnd       string

	// Framing of responses (server -> client)
	ResponseMultiline bool
	ResponseEnd       string

	// Reserved literals
	StopRequest     string
	StoppedResponse string
	GenericResponse string
	ErrorBegin      string
}

// DefaultProtocolConfig returns the default protocol configuration (single line framing)
func DefaultProtocolConfig() ProtocolConfig {
	return ProtocolConfig{
		Prefix:          DefaultPrefix,
		Separator:       DefaultSeparator,
		FalseSeparator:  DefaultFalseSeparator,
		RequestEnd:      DefaultRequestEnd,
		ResponseEnd:     DefaultResponseEnd,
		StopRequest:     DefaultStopRequest,
		StoppedResponse: DefaultStoppedResponse,
		GenericResponse: DefaultGenericResponse,
		ErrorBegin:      DefaultErrorBegin,
	}
}

// Validate checks the invariants of the configuration.
// It returns a configuration error describing the first violation found.
func (c ProtocolConfig) Validate() error {
	if utf8.RuneCountInString(c.Prefix) < MinPrefixLength {
		return NewConfigurationError(fmt.Sprintf("message prefix %q is shorter than %d characters", c.Prefix, MinPrefixLength))
	}
	if strings.IndexFunc(c.Prefix, unicode.IsSpace) >= 0 {
		return NewConfigurationError(fmt.Sprintf("message prefix %q contains whitespace", c.Prefix))
	}
	if c.Separator == c.FalseSeparator {
		return NewConfigurationError(fmt.Sprintf("message separator and false separator are both %q", c.Separator))
	}
	if unicode.IsSpace(c.Separator) || c.Separator == 0 {
		return NewConfigurationError(fmt.Sprintf("invalid message separator %q", c.Separator))
	}
	if unicode.IsSpace(c.FalseSeparator) || c.FalseSeparator == 0 {
		return NewConfigurationError(fmt.Sprintf("invalid message false separator %q", c.FalseSeparator))
	}
	if c.RequestMultiline && c.RequestEnd == "" {
		return NewConfigurationError("multiline requests need a request end marker")
	}
	if c.ResponseMultiline && c.ResponseEnd == "" {
		return NewConfigurationError("multiline responses need a response end marker")
	}
	if c.StopRequest == "" {
		return NewConfigurationError("stop request literal must not be empty")
	}
	if c.ErrorBegin == "" {
		return NewConfigurationError("error begin marker must not be empty")
	}
	if !c.RequestMultiline && strings.ContainsAny(c.StopRequest, "\r\n") {
		return NewConfigurationError("stop request contains a line break, but requests are single line")
	}
	if !c.ResponseMultiline && strings.ContainsAny(c.StoppedResponse+c.GenericResponse, "\r\n") {
		return NewConfigurationError("stopped or generic response contains a line break, but responses are single line")
	}
	return nil
}

// String returns a formatted string representation of the protocol configuration
func (c ProtocolConfig) String() string {
	var sb strings.Builder
	writeProtocolSection(&sb, c)
	return sb.String()
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of a pipe server.
type ServerConfig struct {
	Protocol ProtocolConfig

	// Transport settings
	Transport string
	Endpoint  string

	// Rate limit of the serving loop, 0 disables the limiter
	RequestsPerSecond float64
	RequestBurst      int

	// Address of the prometheus metrics endpoint, empty disables it
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// Validate checks the server configuration
func (c *ServerConfig) Validate() error {
	if c.RequestsPerSecond < 0 {
		return NewConfigurationError(fmt.Sprintf("invalid requests per second: %v", c.RequestsPerSecond))
	}
	return c.Protocol.Validate()
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection(&sb, "Pipe Server")
	addField(&sb, "Transport", c.Transport)
	addField(&sb, "Endpoint", c.Endpoint)
	if c.RequestsPerSecond > 0 {
		addField(&sb, "Rate Limit", fmt.Sprintf("%.2f req/sec (burst %d)", c.RequestsPerSecond, c.RequestBurst))
	} else {
		addField(&sb, "Rate Limit", "disabled")
	}
	if c.MetricsEndpoint != "" {
		addField(&sb, "Metrics", c.MetricsEndpoint)
	}

	addSection(&sb, "Logging")
	addField(&sb, "Log Level", c.LogLevel)

	writeProtocolSection(&sb, c.Protocol)
	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters of a pipe client.
type ClientConfig struct {
	Protocol ProtocolConfig

	// Transport settings
	Transport            string
	Endpoint             string
	ConnectTimeoutSecond int
}

// Validate checks the client configuration
func (c *ClientConfig) Validate() error {
	return c.Protocol.Validate()
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection(&sb, "Client Configuration")
	addField(&sb, "Transport", c.Transport)
	addField(&sb, "Endpoint", c.Endpoint)
	addField(&sb, "Connect Timeout", fmt.Sprintf("%d sec", c.ConnectTimeoutSecond))

	writeProtocolSection(&sb, c.Protocol)
	return sb.String()
}

// --------------------------------------------------------------------------
// Formatting helpers
// --------------------------------------------------------------------------

func addSection(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
}

func addField(sb *strings.Builder, name, value string) {
	sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
}

func writeProtocolSection(sb *strings.Builder, c ProtocolConfig) {
	addSection(sb, "Protocol")
	addField(sb, "Message Prefix", c.Prefix)
	addField(sb, "Separator", strconv.QuoteRune(c.Separator))
	addField(sb, "False Separator", strconv.QuoteRune(c.FalseSeparator))
	addField(sb, "Multiline Requests", fmt.Sprintf("%t (end: %s)", c.RequestMultiline, c.RequestEnd))
	addField(sb, "Multiline Responses", fmt.Sprintf("%t (end: %s)", c.ResponseMultiline, c.ResponseEnd))
	addField(sb, "Stop Request", c.StopRequest)
}
