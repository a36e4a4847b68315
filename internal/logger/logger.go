package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FieldFERequestID  = "fe_request_id"
	FieldBFFRequestID = "bff_request_id"
	FieldPath         = "path"
)

// Setup configures the global zerolog logger. DEV gets a console writer.
func Setup(env, level string) {
	SetupWithWriter(env, level, os.Stderr)
}

func SetupWithWriter(env, level string, w io.Writer) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	out := w
	if env == "DEV" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// WithRequest returns a context carrying a child logger tagged with the
// request correlation identifiers.
func WithRequest(ctx context.Context, feID, bffID, path string) context.Context {
	l := log.Logger.With().
		Str(FieldFERequestID, feID).
		Str(FieldBFFRequestID, bffID).
		Str(FieldPath, path).
		Logger()
	return l.WithContext(ctx)
}

// From returns the request logger, or the global logger outside a request.
func From(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	return &log.Logger
}
