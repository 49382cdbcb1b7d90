package notify

import (
	"context"
	"log/slog"
)

// LogConsumer logs every event.
type LogConsumer struct {
	logger *slog.Logger
}

func NewLogConsumer(logger *slog.Logger) *LogConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogConsumer{logger: logger}
}

func (c *LogConsumer) HandleEvent(ctx context.Context, evt Event) error {
	c.logger.InfoContext(ctx, "expression changed",
		"component", "notify",
		"session", evt.SessionID,
		"entity", evt.Entity,
		"conditions", evt.ConditionCount,
		"raw", evt.Raw,
		"expression", evt.Expression,
	)
	return nil
}
