package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

// LoggerNames lists the named loggers used across the module
var LoggerNames = []string{"rpc", "server", "client", "transport", "codec"}

// levelNames maps the accepted level names to dragonboat levels
var levelNames = map[string]logger.LogLevel{
	"debug":    logger.DEBUG,
	"info":     logger.INFO,
	"":         logger.INFO,
	"warn":     logger.WARNING,
	"warning":  logger.WARNING,
	"error":    logger.ERROR,
	"critical": logger.CRITICAL,
}

// levelTags are the tags written in front of each log line
var levelTags = map[logger.LogLevel]string{
	logger.DEBUG:    "DEBUG",
	logger.INFO:     "INFO",
	logger.WARNING:  "WARN",
	logger.ERROR:    "ERROR",
	logger.CRITICAL: "CRIT",
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

// logSink is the writer shared by all loggers, lines are written whole
type logSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *logSink) writeLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, line)
}

// defaultSink writes to stderr, stdout is reserved for the responses printed by the cli
var defaultSink = &logSink{w: os.Stderr}

// SetLogOutput redirects the output of all loggers created by CreateLogger
func SetLogOutput(w io.Writer) {
	defaultSink.mu.Lock()
	defer defaultSink.mu.Unlock()
	defaultSink.w = w
}

// --------------------------------------------------------------------------
// Logger (implements dragonboat's logger.ILogger)
// --------------------------------------------------------------------------

// pipeLogger writes lines of the form "<time> <LEVEL> [<name>] <message>"
type pipeLogger struct {
	name  string
	level atomic.Int32
	sink  *logSink
}

func newPipeLogger(name string, sink *logSink) *pipeLogger {
	l := &pipeLogger{name: name, sink: sink}
	l.level.Store(int32(logger.INFO))
	return l
}

// CreateLogger is the dragonboat logger factory of the module
func CreateLogger(pkgName string) logger.ILogger {
	return newPipeLogger(pkgName, defaultSink)
}

func (l *pipeLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *pipeLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args...)
}

func (l *pipeLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args...)
}

func (l *pipeLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args...)
}

func (l *pipeLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args...)
}

// Panicf logs the message regardless of the level and panics with it
func (l *pipeLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.write(logger.CRITICAL, msg)
	panic(msg)
}

func (l *pipeLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if logger.LogLevel(l.level.Load()) < level {
		return
	}
	l.write(level, fmt.Sprintf(format, args...))
}

func (l *pipeLogger) write(level logger.LogLevel, msg string) {
	l.sink.writeLine(fmt.Sprintf("%s %-5s [%s] %s\n",
		time.Now().Format("2006-01-02T15:04:05.000"), levelTags[level], l.name, msg))
}

// --------------------------------------------------------------------------
// Setup
// --------------------------------------------------------------------------

// ParseLogLevel converts a level name (case insensitive) to a logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]; ok {
		return lvl, nil
	}
	return logger.INFO, fmt.Errorf("invalid log level %q, must be one of debug, info, warn, error, critical", level)
}

var installFactory sync.Once

// InitLoggers installs the logger factory (once per process) and sets the
// level of all loggers in LoggerNames
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	installFactory.Do(func() {
		logger.SetLoggerFactory(CreateLogger)
	})

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
