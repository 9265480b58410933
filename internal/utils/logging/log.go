// Package logging provides fetcharr's leveled program logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"fetcharr/internal/domain/regex"

	"github.com/rs/zerolog"
)

var (
	// Level gates D calls. Messages with l > Level are skipped.
	Level int = 0

	mu     sync.RWMutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
)

// Setup replaces the program logger.
//
// With asJSON set, output is one JSON object per line; otherwise a
// human readable console format is used.
func Setup(w io.Writer, level int, asJSON bool) {
	if w == nil {
		w = os.Stderr
	}
	if !asJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	mu.Lock()
	defer mu.Unlock()
	Level = level
	logger = zerolog.New(w).With().Timestamp().Logger()
}

// Logger returns the underlying zerolog logger for structured fields.
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// I logs info.
func I(format string, args ...any) {
	Logger().Info().Msg(msg(format, args...))
}

// S logs a success.
func S(format string, args ...any) {
	Logger().Info().Bool("success", true).Msg(msg(format, args...))
}

// W logs a warning.
func W(format string, args ...any) {
	Logger().Warn().Msg(msg(format, args...))
}

// E logs an error.
func E(format string, args ...any) {
	Logger().Error().Msg(msg(format, args...))
}

// D logs debug output if l is within the configured debug level.
func D(l int, format string, args ...any) {
	mu.RLock()
	lvl := Level
	mu.RUnlock()
	if l > lvl {
		return
	}
	Logger().Debug().Int("lvl", l).Msg(msg(format, args...))
}

func msg(format string, args ...any) string {
	if len(args) != 0 {
		format = fmt.Sprintf(format, args...)
	}
	return regex.AnsiEscapeCompile().ReplaceAllString(format, "")
}
