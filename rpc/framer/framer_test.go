package framer

import (
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/ValentinKolb/dPipe/rpc/common"
)

// lineBuffer is an in-memory line stream
type lineBuffer struct {
	lines    []string
	pending  []string
	flushes  int
	writeErr error
}

func (b *lineBuffer) ReadLine() (string, error) {
	if len(b.lines) == 0 {
		return "", io.EOF
	}
	line := b.lines[0]
	b.lines = b.lines[1:]
	return line, nil
}

func (b *lineBuffer) WriteLine(line string) error {
	if b.writeErr != nil {
		return b.writeErr
	}
	b.pending = append(b.pending, line)
	return nil
}

func (b *lineBuffer) Flush() error {
	b.flushes++
	b.lines = append(b.lines, b.pending...)
	b.pending = nil
	return nil
}

// TestSingleLineFrame tests writing and reading of single line frames
func TestSingleLineFrame(t *testing.T) {
	buf := &lineBuffer{}

	if err := WriteFrame(buf, "hello", false, "End"); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if !reflect.DeepEqual(buf.lines, []string{"hello"}) {
		t.Errorf("wire lines = %#v", buf.lines)
	}
	if buf.flushes != 1 {
		t.Errorf("expected 1 flush, got %d", buf.flushes)
	}

	got, err := ReadFrame(buf, false, "End")
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("ReadFrame = %q", got)
	}
}

// TestMultiLineFrame tests the multiline round trip
func TestMultiLineFrame(t *testing.T) {
	tests := []string{
		"line1\nline2",
		"single",
		"",
		"a\n\nb",
	}

	for _, text := range tests {
		buf := &lineBuffer{}
		if err := WriteFrame(buf, text, true, common.DefaultRequestEnd); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
		if last := buf.lines[len(buf.lines)-1]; last != common.DefaultRequestEnd {
			t.Errorf("last wire line = %q, want end marker", last)
		}

		got, err := ReadFrame(buf, true, common.DefaultRequestEnd)
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if got != text {
			t.Errorf("round trip of %q = %q", text, got)
		}
		if len(buf.lines) != 0 {
			t.Errorf("unread lines left: %#v", buf.lines)
		}
	}
}

// TestMultiLineFrameWireFormat tests the exact wire lines of a multiline frame
func TestMultiLineFrameWireFormat(t *testing.T) {
	buf := &lineBuffer{}
	_ = WriteFrame(buf, "alpha\nbeta", true, "RequestEnd")

	want := []string{"alpha", "beta", "RequestEnd"}
	if !reflect.DeepEqual(buf.lines, want) {
		t.Errorf("wire lines = %#v, want %#v", buf.lines, want)
	}
}

// TestLines tests that Lines matches what WriteFrame puts on the wire
func TestLines(t *testing.T) {
	for _, multiline := range []bool{false, true} {
		buf := &lineBuffer{}
		_ = WriteFrame(buf, "IGLibMessage:wake", multiline, "RequestEnd")
		if lines := Lines("IGLibMessage:wake", multiline, "RequestEnd"); !reflect.DeepEqual(lines, buf.lines) {
			t.Errorf("multiline %v: Lines = %#v, wire lines = %#v", multiline, lines, buf.lines)
		}
	}
}

// TestReadFrameTrimsTrailingTerminators tests that trailing empty lines are dropped
func TestReadFrameTrimsTrailingTerminators(t *testing.T) {
	buf := &lineBuffer{lines: []string{"x", "y", "", "End"}}
	got, err := ReadFrame(buf, true, "End")
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if got != "x\ny" {
		t.Errorf("ReadFrame = %q", got)
	}
}

// TestFrameErrors tests that I/O failures are reported as transport errors
func TestFrameErrors(t *testing.T) {
	buf := &lineBuffer{}
	if _, err := ReadFrame(buf, false, "End"); !errors.Is(err, common.ErrTransport) {
		t.Errorf("ReadFrame error = %v, want transport error", err)
	}

	// end of stream before the end marker
	buf = &lineBuffer{lines: []string{"a", "b"}}
	_, err := ReadFrame(buf, true, "End")
	if !errors.Is(err, common.ErrTransport) || !errors.Is(err, io.EOF) {
		t.Errorf("ReadFrame error = %v, want transport error wrapping io.EOF", err)
	}

	buf = &lineBuffer{writeErr: io.ErrClosedPipe}
	if err := WriteFrame(buf, "x", false, "End"); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("WriteFrame error = %v", err)
	}
}
