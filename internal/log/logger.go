// Package log configures the process-wide zerolog logger.
package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
)

// Config selects level and output format.
type Config struct {
	Level  string // debug|info|warn|error
	Format string // console|json
	Output io.Writer
}

// ParseLevel maps a user supplied level name to a zerolog level.
// Unknown names fall back to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Configure replaces the base logger.
func Configure(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	var l zerolog.Logger
	if strings.EqualFold(cfg.Format, "json") {
		l = zerolog.New(out)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	}
	l = l.Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	mu.Lock()
	base = l
	mu.Unlock()
	return l
}

// L returns the base logger.
func L() *zerolog.Logger {
	mu.RLock()
	l := base
	mu.RUnlock()
	return &l
}

// WithComponent returns the base logger annotated with a component name.
func WithComponent(name string) zerolog.Logger {
	return L().With().Str("component", name).Logger()
}
