package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/reflexhq/reflex"
	"github.com/reflexhq/reflex/job"
)

// Logging returns middleware that logs job start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (any, error) {
		name := j.ResolvedName()
		corr := j.Options.CorrelationID
		if corr == "" {
			if tok, ok := reflex.TrackingTokenFrom(ctx); ok {
				corr = tok.CorrelationID
			}
		}

		logger.Info("job started",
			slog.String("job", name),
			slog.String("correlation_id", corr),
		)

		start := time.Now()
		v, err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("job failed",
				slog.String("job", name),
				slog.String("correlation_id", corr),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("job completed",
				slog.String("job", name),
				slog.String("correlation_id", corr),
				slog.Duration("elapsed", elapsed),
			)
		}

		return v, err
	}
}
