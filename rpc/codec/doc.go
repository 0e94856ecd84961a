// Package codec implements the text level encoding of the pipe protocol:
// the escaping scheme that separates in-band control messages from payload,
// and the error channel that transports server side failures as response text.
//
// Wire forms (with the default configuration):
//
//	IGLibMessage_name arg1 arg2    control message
//	IGLibMessage.Xyz               escaped payload "IGLibMessageXyz"
//	$$ERROR__83753093759$$: ApplicationError, reason: <message>
//
// Encode never touches strings that already are well-formed control messages:
// any string starting with prefix+separator is a control message regardless of
// who produced it. Arbitrary payload that may collide with the prefix must go
// through Encode before it is written.
package codec

import "github.com/lni/dragonboat/v4/logger"

var Logger = logger.GetLogger("codec")
