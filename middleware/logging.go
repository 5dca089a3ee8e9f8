package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/loomchat/fedwire"
)

// LoggingInterceptor creates a server interceptor that logs endpoint calls
// using slog, including duration and error status.
func LoggingInterceptor(logger *slog.Logger) fedwire.UnaryInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, info *fedwire.CallInfo, req any, next fedwire.HandlerFunc) (any, error) {
		start := time.Now()

		logger.InfoContext(ctx, "request started",
			slog.String("endpoint", info.Endpoint),
			slog.String("method", info.Method),
		)

		res, err := next(ctx, req)
		duration := time.Since(start)

		if err != nil {
			logger.ErrorContext(ctx, "request failed",
				slog.String("endpoint", info.Endpoint),
				slog.Duration("duration", duration),
				slog.Any("error", err),
			)
		} else {
			logger.InfoContext(ctx, "request completed",
				slog.String("endpoint", info.Endpoint),
				slog.Duration("duration", duration),
			)
		}

		return res, err
	}
}
