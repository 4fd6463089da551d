// Package klog is a small leveled logger that writes newline-delimited
// lines through a Sink, the same shape as the HAL's own line logger so the
// kernel and board-level code share one logging idiom.
package klog

import "fmt"

// Level is a log severity.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "?"
	}
}

// Sink writes a single already-formatted log line. Implementations are
// typically backed by a HAL Logger.
type Sink interface {
	WriteLineString(s string)
}

// Logger writes leveled, line-oriented log records through a Sink.
type Logger struct {
	sink   Sink
	min    Level
	prefix string
}

// New returns a Logger that writes to sink, filtering out records below
// min. A nil sink makes every call a no-op, which is convenient for tests
// and for subsystems that run with logging disabled.
func New(sink Sink, min Level) *Logger {
	return &Logger{sink: sink, min: min}
}

// WithPrefix returns a copy of l that tags every line with prefix.
func (l *Logger) WithPrefix(prefix string) *Logger {
	if l == nil {
		return nil
	}
	cp := *l
	cp.prefix = prefix
	return &cp
}

func (l *Logger) log(level Level, format string, args ...any) {
	if l == nil || l.sink == nil || level < l.min {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		l.sink.WriteLineString("[" + level.String() + "] " + l.prefix + ": " + msg)
		return
	}
	l.sink.WriteLineString("[" + level.String() + "] " + msg)
}

func (l *Logger) Debugf(format string, args ...any) { l.log(Debug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(Info, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(Warn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(Error, format, args...) }
