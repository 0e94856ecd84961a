package base

import (
	"bufio"
	"io"
	"net"
	"strings"
)

// lineConn wraps a net connection with buffered line reading and writing.
// Lines are terminated by '\n', a trailing '\r' is stripped on read.
type lineConn struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
}

func newLineConn(conn net.Conn, bufferSize int) *lineConn {
	return &lineConn{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, bufferSize),
		writer: bufio.NewWriterSize(conn, bufferSize),
	}
}

// readLine reads the next line. A final unterminated line is returned before io.EOF
func (l *lineConn) readLine() (string, error) {
	line, err := l.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return trimLineEnd(line), nil
		}
		return "", err
	}
	return trimLineEnd(line), nil
}

// writeLine writes a line into the write buffer
func (l *lineConn) writeLine(line string) error {
	if _, err := l.writer.WriteString(line); err != nil {
		return err
	}
	return l.writer.WriteByte('\n')
}

func (l *lineConn) flush() error {
	return l.writer.Flush()
}

func (l *lineConn) close() error {
	return l.conn.Close()
}

func trimLineEnd(line string) string {
	return strings.TrimRight(line, "\r\n")
}
