package trackhook

import (
	"context"
	"log/slog"

	"github.com/reflexhq/reflex"
	"github.com/reflexhq/reflex/plugin"
	"github.com/reflexhq/reflex/token"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin        = (*Hook)(nil)
	_ plugin.PreConfigurer = (*Hook)(nil)
)

// Hook extracts tracking tokens from notification after-images and
// continues their correlation chain.
type Hook struct {
	logger *slog.Logger
}

// New creates the tracking hook.
func New(opts ...Option) *Hook {
	h := &Hook{logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements plugin.Plugin.
func (h *Hook) Name() string { return "track-hook" }

// OnPreConfigure implements plugin.PreConfigurer. It reads the configured
// tracking field from the notification's after-image and injects the
// embedded correlation id, unless the caller supplied one.
func (h *Hook) OnPreConfigure(_ context.Context, n *reflex.Notification, cfg reflex.DispatchConfig) (reflex.DispatchConfig, error) {
	if cfg.CorrelationID != "" {
		return cfg, nil
	}
	if cfg.TrackingField == "" || n == nil || n.Event == nil || n.Event.Data == nil {
		return cfg, nil
	}

	raw, ok := n.Event.Data.New[cfg.TrackingField].(string)
	if !ok || raw == "" {
		return cfg, nil
	}

	tok, err := token.Parse(raw)
	if err != nil {
		// Ordinary writers share the column; non-token values are expected.
		h.logger.Debug("tracking field does not hold a token",
			slog.String("field", cfg.TrackingField),
			slog.String("value", raw),
		)
		return cfg, nil
	}

	h.logger.Debug("continuing tracking chain",
		slog.String("correlation_id", tok.CorrelationID),
		slog.String("origin", tok.Source),
		slog.String("origin_job", tok.JobID),
	)
	cfg.CorrelationID = tok.CorrelationID
	return cfg, nil
}
