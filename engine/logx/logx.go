// Package logx builds the slog loggers used across shaderview. Records are written by a text
// handler whose level names are colored when the output supports it.
package logx

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/muesli/termenv"
)

// ParseLevel parses a level name as written in configuration files.
//
// Parameters:
//   - s: one of "debug", "info", "warn" or "error", case-insensitive; empty means info
//
// Returns:
//   - slog.Level: the parsed level
//   - error: an error for an unknown name
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// LevelFromFlags returns the level selected by the command-line verbosity flags. Verbose wins
// over quiet.
//
// Parameters:
//   - verbose: true for debug output
//   - quiet: true to log errors only
//   - fallback: the level when neither flag is set
//
// Returns:
//   - slog.Level: the selected level
func LevelFromFlags(verbose, quiet bool, fallback slog.Level) slog.Level {
	switch {
	case verbose:
		return slog.LevelDebug
	case quiet:
		return slog.LevelError
	default:
		return fallback
	}
}

// NewLogger creates a text logger writing to w.
//
// Parameters:
//   - w: the output
//   - level: the minimum level
//   - color: color level names when w is a terminal; false never colors
//
// Returns:
//   - *slog.Logger: the logger
func NewLogger(w io.Writer, level slog.Leveler, color bool) *slog.Logger {
	profile := termenv.Ascii
	if color {
		profile = termenv.NewOutput(w).EnvColorProfile()
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: levelColorizer(profile),
	}))
}

// levelColorizer returns a ReplaceAttr function that renders the level of each record in a
// color chosen by severity.
func levelColorizer(profile termenv.Profile) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 0 || a.Key != slog.LevelKey || profile == termenv.Ascii {
			return a
		}
		level, ok := a.Value.Any().(slog.Level)
		if !ok {
			return a
		}
		a.Value = slog.StringValue(profile.String(level.String()).Foreground(profile.Color(levelColor(level))).Bold().String())
		return a
	}
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "1" // red
	case level >= slog.LevelWarn:
		return "3" // yellow
	case level >= slog.LevelInfo:
		return "4" // blue
	default:
		return "8" // bright black
	}
}
