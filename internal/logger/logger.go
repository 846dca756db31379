package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	base zerolog.Logger
	once sync.Once
)

// Init configures the process-wide logger. Level comes from LOG_LEVEL,
// falling back to debug outside production.
func Init(level string) {
	once.Do(func() {
		setup(os.Stdout, level)
	})
}

// SetOutput replaces the logger sink. Tests use it to silence or capture output.
func SetOutput(w io.Writer, level string) {
	once.Do(func() {})
	setup(w, level)
}

func setup(w io.Writer, level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl := parseLevel(level)
	zerolog.SetGlobalLevel(lvl)

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	base = zerolog.New(out).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		if os.Getenv("APP_ENV") == "production" {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// For returns a logger scoped to one component ("engine", "session", ...).
func For(component string) zerolog.Logger {
	Init("")
	return base.With().Str("component", component).Logger()
}

// ForRun returns a component logger carrying the run id and platform.
func ForRun(component, runID, platform string) zerolog.Logger {
	Init("")
	return base.With().
		Str("component", component).
		Str("run_id", runID).
		Str("platform", platform).
		Logger()
}

// Nop discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
