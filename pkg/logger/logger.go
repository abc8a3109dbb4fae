package logger

import (
	"io"
	"log"
	"os"
)

// Logger writes leveled, printf-style log lines.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	error *log.Logger
	debug *log.Logger

	debugEnabled bool
}

// New returns a Logger writing to stdout (info, debug) and stderr (warn, error).
func New() *Logger {
	return &Logger{
		info:  log.New(os.Stdout, "[INFO] ", log.LstdFlags),
		warn:  log.New(os.Stderr, "[WARN] ", log.LstdFlags),
		error: log.New(os.Stderr, "[ERROR] ", log.LstdFlags|log.Lshortfile),
		debug: log.New(os.Stdout, "[DEBUG] ", log.LstdFlags),
	}
}

// NewWithWriter sends every level to w.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{
		info:  log.New(w, "[INFO] ", 0),
		warn:  log.New(w, "[WARN] ", 0),
		error: log.New(w, "[ERROR] ", 0),
		debug: log.New(w, "[DEBUG] ", 0),
	}
}

// Discard returns a Logger that drops everything. Useful in tests.
func Discard() *Logger {
	return NewWithWriter(io.Discard)
}

// SetDebug toggles debug output.
func (l *Logger) SetDebug(enabled bool) {
	l.debugEnabled = enabled
}

func (l *Logger) Info(format string, v ...interface{}) {
	if l == nil {
		return
	}
	l.info.Printf(format, v...)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	if l == nil {
		return
	}
	l.warn.Printf(format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	if l == nil {
		return
	}
	l.error.Printf(format, v...)
}

func (l *Logger) Debug(format string, v ...interface{}) {
	if l == nil || !l.debugEnabled {
		return
	}
	l.debug.Printf(format, v...)
}
