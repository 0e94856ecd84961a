package common

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

// TestParseLogLevel tests the accepted level names
func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name string
		want logger.LogLevel
	}{
		{"debug", logger.DEBUG},
		{"INFO", logger.INFO},
		{"", logger.INFO},
		{"warn", logger.WARNING},
		{" Warning ", logger.WARNING},
		{"error", logger.ERROR},
		{"critical", logger.CRITICAL},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.name)
		if err != nil {
			t.Errorf("ParseLogLevel(%q) failed: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}

	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Errorf("ParseLogLevel accepted an unknown level")
	}
}

// TestLevelFiltering tests that only messages at or above the level are written
func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newPipeLogger("server", &logSink{w: &buf})
	l.SetLevel(logger.WARNING)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warningf("peer %s dropped", "p1")
	l.Errorf("read failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "WARN  [server] peer p1 dropped") {
		t.Errorf("warning line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "ERROR [server] read failed") {
		t.Errorf("error line = %q", lines[1])
	}
}

// TestPanicf tests that Panicf writes the message and panics with it
func TestPanicf(t *testing.T) {
	var buf bytes.Buffer
	l := newPipeLogger("codec", &logSink{w: &buf})
	l.SetLevel(logger.ERROR)

	defer func() {
		r := recover()
		if r != "broken invariant 7" {
			t.Errorf("recovered %v", r)
		}
		if !strings.Contains(buf.String(), "CRIT  [codec] broken invariant 7") {
			t.Errorf("log output = %q", buf.String())
		}
	}()
	l.Panicf("broken invariant %d", 7)
}

// TestInitLoggers tests that the loggers can be initialized more than once
func TestInitLoggers(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(os.Stderr)

	if err := InitLoggers("error"); err != nil {
		t.Fatalf("InitLoggers failed: %v", err)
	}
	if err := InitLoggers("debug"); err != nil {
		t.Fatalf("second InitLoggers failed: %v", err)
	}
	if err := InitLoggers("loud"); err == nil {
		t.Errorf("InitLoggers accepted an unknown level")
	}

	logger.GetLogger("client").Debugf("connected to %s", "/tmp/x")
	if !strings.Contains(buf.String(), "DEBUG [client] connected to /tmp/x") {
		t.Errorf("log output = %q", buf.String())
	}
}
