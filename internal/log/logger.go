package log

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"

	"github.com/felixgeelhaar/makeflow/internal/errors"
)

// Logger wraps slog with the level and format model of the CLI.
type Logger struct {
	slog   *slog.Logger
	config Config
}

// New creates a Logger from config.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.ToSlogLevel()}

	var handler slog.Handler
	if config.Format == FormatText {
		handler = slog.NewTextHandler(config.Output.Writer(), opts)
	} else {
		handler = slog.NewJSONHandler(config.Output.Writer(), opts)
	}

	logger := slog.New(handler)
	if config.ServiceName != "" {
		logger = logger.With("service", config.ServiceName, "version", config.ServiceVersion)
	}
	return &Logger{slog: logger, config: config}
}

// Discard creates a logger that drops every record.
func Discard() *Logger {
	return New(Config{Level: LevelOff, Format: FormatText, Output: NewOutput(io.Discard)})
}

// With returns a Logger adding args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), config: l.config}
}

// WithError attaches err to the records. Coded errors anywhere in the chain
// contribute their code, suggestions and cause.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}

	var mfErr *errors.MakeflowError
	if !stderrors.As(err, &mfErr) {
		return l.With("error", err.Error())
	}

	msg := err.Error()
	if err == error(mfErr) {
		msg = mfErr.Message
	}
	args := []any{"error", msg, "error_code", string(mfErr.Code)}
	if len(mfErr.Suggestions) > 0 {
		args = append(args, "suggestions", mfErr.Suggestions)
	}
	if mfErr.Cause != nil {
		args = append(args, "cause", mfErr.Cause.Error())
	}
	return l.With(args...)
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// Enabled reports whether records at level are written.
func (l *Logger) Enabled(ctx context.Context, level Level) bool {
	return l.slog.Enabled(ctx, level.ToSlogLevel())
}

// Config returns the configuration the logger was created with.
func (l *Logger) Config() Config {
	return l.config
}
