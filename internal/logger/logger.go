// Package logger contains a levelled logger.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gookit/color"
	"golang.org/x/term"
)

// Level is a log level.
type Level int

// Log levels.
const (
	Debug Level = iota + 1
	Info
	Warn
	Error
)

// Destination is a log destination.
type Destination int

const (
	// DestinationStdout writes logs to the standard output.
	DestinationStdout Destination = iota

	// DestinationFile writes logs to a file.
	DestinationFile
)

// Writer is an object that provides a log method.
type Writer interface {
	Log(Level, string, ...any)
}

// Logger is a log handler.
type Logger struct {
	Level        Level
	Destinations []Destination
	File         string

	timeNow func() time.Time
	stdout  io.Writer

	mutex    sync.Mutex
	useColor bool
	file     *os.File
	buf      bytes.Buffer
}

// Initialize opens the destinations.
func (l *Logger) Initialize() error {
	if l.Level == 0 {
		l.Level = Info
	}
	if l.timeNow == nil {
		l.timeNow = time.Now
	}
	if l.stdout == nil {
		l.stdout = os.Stdout
		l.useColor = term.IsTerminal(int(os.Stdout.Fd()))
	}

	for _, d := range l.Destinations {
		if d == DestinationFile {
			var err error
			l.file, err = os.OpenFile(l.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("logger: opening file failed: %w", err)
			}
		}
	}

	return nil
}

// Close closes the destinations.
func (l *Logger) Close() {
	if l.file != nil {
		l.file.Close()
	}
}

func writeTime(buf *bytes.Buffer, t time.Time, useColor bool) {
	s := t.Format("2006/01/02 15:04:05 ")
	if useColor {
		buf.WriteString(color.RenderString(color.Gray.Code(), s))
	} else {
		buf.WriteString(s)
	}
}

func writeLevel(buf *bytes.Buffer, level Level, useColor bool) {
	var tag, code string

	switch level {
	case Debug:
		tag, code = "DEB", color.Debug.Code()
	case Info:
		tag, code = "INF", color.Green.Code()
	case Warn:
		tag, code = "WAR", color.Warn.Code()
	case Error:
		tag, code = "ERR", color.Error.Code()
	}

	if useColor {
		buf.WriteString(color.RenderString(code, tag))
	} else {
		buf.WriteString(tag)
	}
	buf.WriteByte(' ')
}

// Log writes a log entry.
func (l *Logger) Log(level Level, format string, args ...any) {
	if level < l.Level {
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	t := l.timeNow()

	for _, d := range l.Destinations {
		switch d {
		case DestinationStdout:
			l.buf.Reset()
			writeTime(&l.buf, t, l.useColor)
			writeLevel(&l.buf, level, l.useColor)
			fmt.Fprintf(&l.buf, format, args...)
			l.buf.WriteByte('\n')
			l.stdout.Write(l.buf.Bytes()) //nolint:errcheck

		case DestinationFile:
			l.buf.Reset()
			writeTime(&l.buf, t, false)
			writeLevel(&l.buf, level, false)
			fmt.Fprintf(&l.buf, format, args...)
			l.buf.WriteByte('\n')
			l.file.Write(l.buf.Bytes()) //nolint:errcheck
		}
	}
}

type prefixed struct {
	parent Writer
	prefix string
}

// WithPrefix returns a Writer that prepends prefix to every entry.
func WithPrefix(parent Writer, prefix string) Writer {
	return &prefixed{parent: parent, prefix: prefix}
}

func (p *prefixed) Log(level Level, format string, args ...any) {
	p.parent.Log(level, p.prefix+format, args...)
}

type nilWriter struct{}

func (nilWriter) Log(Level, string, ...any) {}

// Discard is a Writer that drops everything.
var Discard Writer = nilWriter{}
