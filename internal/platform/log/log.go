// Package log is the leveled logger of the agent. Status output (debug and
// info) goes to standard output, problems (warn, error, fatal) go to
// standard error.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

// A Logger writes leveled lines to two streams. It is safe for concurrent
// use by multiple goroutines.
type Logger struct {
	out *log.Logger
	err *log.Logger

	session string
	level   Level
}

// New creates a Logger writing to os.Stdout and os.Stderr.
func New() *Logger {
	return NewWithWriters(os.Stdout, os.Stderr)
}

// NewWithWriters creates a Logger with explicit status and error streams.
func NewWithWriters(out, errOut io.Writer) *Logger {
	return &Logger{
		out:   log.New(out, "", log.LstdFlags),
		err:   log.New(errOut, "", log.LstdFlags),
		level: InfoLevel,
	}
}

// UseRFC3339 replaces the default timestamp prefix with a UTC RFC3339 one.
func (l *Logger) UseRFC3339() {
	l.out = log.New(&rfc3339Writer{w: l.out.Writer()}, "", 0)
	l.err = log.New(&rfc3339Writer{w: l.err.Writer()}, "", 0)
}

func (l *Logger) SetLevel(lvl Level) {
	l.level = lvl
}

// Level reports the current level.
func (l *Logger) Level() Level {
	return l.level
}

// Session returns a new Logger with the given session name.
func (l *Logger) Session(s string) *Logger {
	if l.session != "" {
		s = fmt.Sprintf("%s: %s", l.session[:len(l.session)-2], s)
	}
	return &Logger{
		out:     l.out,
		err:     l.err,
		session: s + ": ",
		level:   l.level,
	}
}

func (l *Logger) Debugf(format string, v ...any) {
	if l.level < DebugLevel {
		return
	}
	l.out.Printf("DEBUG "+l.session+format, v...)
}

func (l *Logger) Infof(format string, v ...any) {
	if l.level < InfoLevel {
		return
	}
	l.out.Printf("INFO "+l.session+format, v...)
}

func (l *Logger) Warnf(format string, v ...any) {
	if l.level < WarnLevel {
		return
	}
	l.err.Printf("WARN "+l.session+format, v...)
}

func (l *Logger) Errorf(format string, v ...any) {
	if l.level < ErrorLevel {
		return
	}
	l.err.Printf("ERROR "+l.session+format, v...)
}

// Fatalf logs to the error stream and panics.
func (l *Logger) Fatalf(format string, v ...any) {
	l.err.Panicf("FATAL "+l.session+format, v...)
}
