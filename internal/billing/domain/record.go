package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord is an immutable audit row for a verified billing event.
// Rows are appended once per event and never updated or deleted.
type EventRecord struct {
	ID            snowflake.ID   `gorm:"primaryKey"`
	UserID        *string        `gorm:"column:user_id;type:text;index"`
	EventType     string         `gorm:"type:text;not null;index"`
	StripeEventID string         `gorm:"column:stripe_event_id;type:text;not null;uniqueIndex"`
	Data          datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (EventRecord) TableName() string { return "subscription_events" }
