// Package logging configures the zerolog logger shared by plat-parks.
//
// Output is a console writer when stderr is a terminal and JSON otherwise
// (or when LOG_FORMAT=json). LOG_LEVEL selects the level (default info).
//
//	log := logging.Default()
//	log.Info().Str("park", "crla").Msg("Marker created")
//
//	ctx = logging.WithLogger(ctx, &sessionLog)
//	logging.FromContext(ctx).Debug().Msg("Favorites saved")
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var defaultLogger = newDefault()

// Nop discards everything.
var Nop = zerolog.Nop()

func newDefault() zerolog.Logger {
	var w io.Writer = os.Stderr
	if isTerminal(os.Stderr) && os.Getenv("LOG_FORMAT") != "json" {
		w = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}
	return zerolog.New(w).Level(Level(os.Getenv("LOG_LEVEL"))).With().Timestamp().Logger()
}

// Level parses a level name, falling back to info.
func Level(name string) zerolog.Level {
	if name == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l zerolog.Logger) {
	defaultLogger = l
}

// New creates a JSON logger writing to w at the default logger's level.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(defaultLogger.GetLevel()).With().Timestamp().Logger()
}

type contextKey struct{}

// WithLogger attaches l to ctx.
func WithLogger(ctx context.Context, l *zerolog.Logger) context.Context {
	if l == nil {
		l = Default()
	}
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger attached to ctx, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*zerolog.Logger); ok && l != nil {
			return l
		}
	}
	return Default()
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
