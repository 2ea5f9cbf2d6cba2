package logger

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// New builds the process-wide structured logger. Output is JSON on stdout
// so log shippers can pick it up without extra parsing. Local and dev
// environments log at debug; everything else at info.
func New(appEnv string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFor(appEnv)}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func levelFor(appEnv string) slog.Level {
	switch appEnv {
	case "local", "dev":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

type ctxKey struct{}

// With stores a logger in the context. Handlers and services use this to
// carry request- or call-scoped attributes (request_id, call_id) downstream.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the context-scoped logger, or slog.Default() when none was set.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// ShutdownFlush exists so main can flush buffered sinks on shutdown.
// The JSON handler writes synchronously, so there is nothing to flush yet.
func ShutdownFlush(_ context.Context, _ time.Duration) error { return nil }
