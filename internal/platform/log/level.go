package log

import (
	"fmt"
	"strings"
)

// Level type.
type Level int

// Logging levels, from least to most verbose.
const (
	// FatalLevel level. Logs and then panics.
	FatalLevel Level = iota
	// ErrorLevel level. Used for errors that should definitely be noted.
	ErrorLevel
	// WarnLevel level. Non-critical entries that deserve eyes.
	WarnLevel
	// InfoLevel level. Status of the collection loop. Default level.
	InfoLevel
	// DebugLevel level. Per source and per line detail.
	DebugLevel
)

// ParseLevel maps a level name such as "debug" or "WARN" to a Level.
// An empty name is InfoLevel.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fatal":
		return FatalLevel, nil
	case "error":
		return ErrorLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", name)
}

func (l Level) String() string {
	switch l {
	case FatalLevel:
		return "fatal"
	case ErrorLevel:
		return "error"
	case WarnLevel:
		return "warn"
	case InfoLevel:
		return "info"
	case DebugLevel:
		return "debug"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// UnmarshalEnv implements envstruct.Unmarshaller.
func (l *Level) UnmarshalEnv(v string) error {
	lvl, err := ParseLevel(v)
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}
