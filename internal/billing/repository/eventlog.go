package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/andreymarc/magnex-billing/internal/billing/domain"
	"gorm.io/gorm"
)

type eventLog struct {
	db *gorm.DB
}

// Provide constructs the gorm-backed event log repository.
func Provide(db *gorm.DB) domain.EventLogRepository {
	return &eventLog{db: db}
}

// Append inserts one immutable record. The unique index on stripe_event_id
// makes provider redeliveries a no-op.
func (r *eventLog) Append(ctx context.Context, record *domain.EventRecord) error {
	if record == nil || strings.TrimSpace(record.StripeEventID) == "" {
		return domain.ErrInvalidEvent
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	return r.db.WithContext(ctx).Exec(
		`INSERT INTO subscription_events (id, user_id, event_type, stripe_event_id, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (stripe_event_id) DO NOTHING`,
		record.ID,
		record.UserID,
		record.EventType,
		record.StripeEventID,
		record.Data,
		record.CreatedAt,
	).Error
}

func (r *eventLog) FindByStripeEventID(ctx context.Context, stripeEventID string) (*domain.EventRecord, error) {
	stripeEventID = strings.TrimSpace(stripeEventID)
	if stripeEventID == "" {
		return nil, domain.ErrInvalidEvent
	}

	var record domain.EventRecord
	err := r.db.WithContext(ctx).
		Where("stripe_event_id = ?", stripeEventID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *eventLog) ListByUser(ctx context.Context, userID string, since time.Time, limit int) ([]*domain.EventRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidEvent
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit)
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}

	var records []*domain.EventRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
