package services

import (
	"context"
	"strings"

	"moneycoach/internal/log"
)

// ViewInvalidator drops cached views of a user on this instance.
type ViewInvalidator interface {
	Invalidate(userID string, views ...string) int
}

// ChangePublisher tells peer instances about a change.
type ChangePublisher interface {
	PublishChange(ctx context.Context, userID string, views ...string) error
}

// Changes invalidates local views and publishes change events after a
// successful mutation. Both sides are optional.
type Changes struct {
	views     ViewInvalidator
	publisher ChangePublisher
	logger    *log.Logger
}

func NewChanges(views ViewInvalidator, publisher ChangePublisher, logger *log.Logger) *Changes {
	if logger == nil {
		logger = log.Nop()
	}
	return &Changes{views: views, publisher: publisher, logger: logger.WithComponent(log.ComponentCache)}
}

// Notify never fails the caller: the mutation already happened.
func (c *Changes) Notify(ctx context.Context, userID string, views ...string) {
	if c == nil {
		return
	}
	if c.views != nil {
		c.views.Invalidate(userID, views...)
	}
	if c.publisher == nil {
		c.logger.DebugContext(ctx, "AMQP publisher not available, skipping change event")
		return
	}
	if err := c.publisher.PublishChange(ctx, userID, views...); err != nil {
		c.logger.ErrorContext(ctx, "Failed to publish change event",
			log.FieldUserID, userID,
			"views", strings.Join(views, ","),
			log.FieldError, err)
	}
}
