// Custom logging utility used internally all over Wanna.

package log

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Output of Logger based on what environment Wanna is being run on.
var output io.Writer

func init() {
	// setting configurations for logger
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if os.Getenv("ENV") == "DEV" {
		// Set output of Logger to prettified ConsoleOutput for local environment
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	} else {
		// ConsoleWriter prettifies log, inefficient in prod
		output = os.Stdout
	}
}

// Key used by gin.Context and context.Context to carry the request ID.
const reqIDKey = "ReqID"

type ctxKey string

// Logger acts as a wrapper for zerolog with custom features.
type Logger interface {
	// WithCtx returns a sub-logger based of root logger with added context.
	WithCtx(context.Context) Logger
	// Info level log starts a log message with INFO level.
	Info() *zerolog.Event
	// Debug level log starts a log message with DEBUG level.
	Debug() *zerolog.Event
	// Warn level log starts a log message with WARNING level.
	Warn() *zerolog.Event
	// Error level log starts a log message with ERROR level.
	Error() *zerolog.Event
	// Fatal level log starts a log message with FATAL level.
	Fatal() *zerolog.Event
}

type logger struct {
	zerolog.Logger
}

// Creates a new logger instance for other packages to use the internal zerolog.
func New(version string) Logger {
	return NewWithWriter(version, output)
}

// Same as New but writes into w, tests use it to capture or silence output.
func NewWithWriter(version string, w io.Writer) Logger {
	return &logger{zerolog.New(w).With().Str("Version", version).Timestamp().Caller().Stack().Logger()}
}

// WithRequestID returns a copy of ctx carrying requestID, picked up later by WithCtx.
// Used outside of gin, e.g. per websocket message.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey(reqIDKey), requestID)
}

// RequestID returns the request ID stored in ctx, either by gin or by WithRequestID.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	// gin.Context resolves string keys through its own key store
	if requestID, ok := ctx.Value(reqIDKey).(string); ok {
		return requestID
	}
	if requestID, ok := ctx.Value(ctxKey(reqIDKey)).(string); ok {
		return requestID
	}
	return ""
}

// Returns a sub-logger by adding additional requestID context to it.
// Helps in debugging issues.
func (l *logger) WithCtx(ctx context.Context) Logger {
	if requestID := RequestID(ctx); requestID != "" {
		return &logger{l.With().Str(reqIDKey, requestID).Logger()}
	}
	return l
}
