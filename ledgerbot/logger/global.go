package logger

import (
	"log/slog"
	"time"
)

// LogQuery logs a storage operation.
func LogQuery(operation string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "db"),
		slog.String("operation", operation),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Query failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Debug("Query executed", attrs...)
	}
}

func LogSystem(msg string, attrs ...any) {
	slog.Info(msg, append([]any{slog.String("type", "sys")}, attrs...)...)
}

func LogError(msg string, err error, attrs ...any) {
	base := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(base, attrs...)...)
}
