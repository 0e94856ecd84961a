// Package framer converts a logical request or response string into lines on
// the wire and back.
//
// In single line mode a frame is exactly one line. In multiline mode a frame is
// any number of payload lines followed by a line equal to the end marker. The
// end marker must never occur as a line of the payload itself, and in single
// line mode the payload must not contain line breaks. The framer can't detect
// either violation.
package framer

import (
	"strings"

	"github.com/ValentinKolb/dPipe/rpc/common"
	"github.com/ValentinKolb/dPipe/rpc/transport"
)

// Lines splits text into the lines of one frame, including the end marker in
// multiline mode.
func Lines(text string, multiline bool, endMarker string) []string {
	if !multiline {
		return []string{text}
	}
	return append(strings.Split(text, "\n"), endMarker)
}

// WriteFrame writes text as one frame and flushes the writer.
// I/O failures are returned as transport errors, nothing is retried.
func WriteFrame(w transport.ILineWriter, text string, multiline bool, endMarker string) error {
	for _, line := range Lines(text, multiline, endMarker) {
		if err := w.WriteLine(line); err != nil {
			return common.NewTransportError("write frame", err)
		}
	}

	if err := w.Flush(); err != nil {
		return common.NewTransportError("flush frame", err)
	}
	return nil
}

// ReadFrame reads one frame. In multiline mode the lines up to the end marker are
// joined with '\n' and trailing line terminators are trimmed.
// I/O failures are returned as transport errors.
func ReadFrame(r transport.ILineReader, multiline bool, endMarker string) (string, error) {
	if !multiline {
		line, err := r.ReadLine()
		if err != nil {
			return "", common.NewTransportError("read frame", err)
		}
		return line, nil
	}

	var sb strings.Builder
	for {
		line, err := r.ReadLine()
		if err != nil {
			return "", common.NewTransportError("read frame", err)
		}
		if line == endMarker {
			break
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\r\n"), nil
}
