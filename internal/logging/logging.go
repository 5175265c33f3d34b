// Package logging configures the process-wide zerolog logger used by
// every Livermore component. Call Init once, at the top of main, before
// any other subsystem logs a line.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/livermore/internal/secrets"
)

var redactor = secrets.NewRedactor()

// Init sets the global zerolog logger. When pretty is true (an
// interactive TTY) output goes through a ConsoleWriter; otherwise it is
// newline-delimited JSON suitable for a log collector.
func Init(exchangeName string, level zerolog.Level, pretty bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	var w zerolog.ConsoleWriter
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		log.Logger = log.Output(w).Level(level).With().Str("exchange", exchangeName).Logger()
		return
	}
	log.Logger = zerolog.New(os.Stderr).Level(level).With().
		Timestamp().
		Str("exchange", exchangeName).
		Logger()
}

// SafeErr wraps an error so a DSN or bearer token accidentally embedded
// in its message (a driver's connection error, a provider's HTTP error
// body) never reaches a log sink unredacted.
func SafeErr(err error) error {
	if err == nil {
		return nil
	}
	return safeError{msg: redactor.RedactString(err.Error())}
}

type safeError struct{ msg string }

func (e safeError) Error() string { return e.msg }

// ParseLevel maps a config string to a zerolog.Level, defaulting to Info
// on anything unrecognized rather than failing boot over a log setting.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
