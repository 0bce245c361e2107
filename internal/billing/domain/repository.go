package domain

import (
	"context"
	"time"
)

// EventLogRepository appends to the immutable subscription_events table.
type EventLogRepository interface {
	// Append inserts one record, deduplicating on the provider event id.
	Append(ctx context.Context, record *EventRecord) error
	// FindByStripeEventID returns a previously recorded event, or nil.
	FindByStripeEventID(ctx context.Context, stripeEventID string) (*EventRecord, error)
	// ListByUser returns a user's events, newest first.
	ListByUser(ctx context.Context, userID string, since time.Time, limit int) ([]*EventRecord, error)
}
