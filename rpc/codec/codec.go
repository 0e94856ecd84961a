package codec

import (
	"strings"

	"github.com/ValentinKolb/dPipe/rpc/common"
)

// --------------------------------------------------------------------------
// Message
// --------------------------------------------------------------------------

// Message is a control message: a name plus an ordered list of arguments.
type Message struct {
	Name string
	Args []string
}

// Decoded is the result of decoding a string received from the wire.
// If IsMessage is set, Message holds the decoded control message, otherwise
// Payload holds the original (unescaped) payload.
type Decoded struct {
	IsMessage bool
	Message   Message
	Payload   string
}

// --------------------------------------------------------------------------
// Message Codec
// --------------------------------------------------------------------------

// MessageCodec distinguishes control messages from ordinary payload.
// A control message starts with prefix+separator. Payload that starts with the
// prefix but not with prefix+separator is escaped by inserting the false separator
// right after the prefix, so it can never be mistaken for a control message.
type MessageCodec struct {
	prefix         string
	separator      string
	falseSeparator string
}

// NewMessageCodec creates a new codec for the given configuration
// It fails with a configuration error if the configuration is invalid
func NewMessageCodec(config common.ProtocolConfig) (*MessageCodec, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &MessageCodec{
		prefix:         config.Prefix,
		separator:      string(config.Separator),
		falseSeparator: string(config.FalseSeparator),
	}, nil
}

// Encode prepares a payload for the wire.
// Strings starting with prefix+separator are well-formed control messages and pass unchanged.
// Every other string starting with the prefix gets the false separator inserted after the prefix.
func (c *MessageCodec) Encode(payload string) string {
	if !strings.HasPrefix(payload, c.prefix) || c.IsMessage(payload) {
		return payload
	}
	return c.prefix + c.falseSeparator + payload[len(c.prefix):]
}

// Decode interprets a string received from the wire.
func (c *MessageCodec) Decode(wire string) Decoded {
	if !strings.HasPrefix(wire, c.prefix) {
		return Decoded{Payload: wire}
	}

	rest := wire[len(c.prefix):]

	// Case genuine control message
	if strings.HasPrefix(rest, c.separator) {
		fields := strings.Fields(rest[len(c.separator):])
		msg := Message{Args: []string{}}
		if len(fields) > 0 {
			msg.Name = fields[0]
			msg.Args = fields[1:]
		} else {
			Logger.Warningf("control message without name: %q", wire)
		}
		return Decoded{IsMessage: true, Message: msg, Payload: wire}
	}

	// Case escaped payload: remove the inserted false separator
	if strings.HasPrefix(rest, c.falseSeparator) {
		return Decoded{Payload: c.prefix + rest[len(c.falseSeparator):]}
	}

	// Prefix collision that was never escaped, keep as is
	return Decoded{Payload: wire}
}

// IsMessage reports whether s is a control message (starts with prefix+separator)
func (c *MessageCodec) IsMessage(s string) bool {
	return strings.HasPrefix(s, c.prefix+c.separator)
}

// CreateMessage builds the wire form of a control message
func (c *MessageCodec) CreateMessage(name string, args ...string) string {
	var sb strings.Builder
	sb.WriteString(c.prefix)
	sb.WriteString(c.separator)
	sb.WriteString(name)
	for _, arg := range args {
		sb.WriteString(" ")
		sb.WriteString(arg)
	}
	return sb.String()
}
