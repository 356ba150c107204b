package logsvc

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/practrac/practrac/core"
)

// NewZerolog builds the process logger: human readable when debugging, JSON lines otherwise.
func NewZerolog(w io.Writer, conf *core.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("app", conf.AppName).
		Str("env", conf.Env).
		Str("build", conf.Build).
		Logger()
}
