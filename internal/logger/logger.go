package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Unknown levels fall back to info.
func Init(level string, production bool) {
	if production {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Use ConsoleWriter for human-readable, colorized output in development
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	// Add a hook to include the caller's file and line number
	log.Logger = log.With().Caller().Logger()
}
