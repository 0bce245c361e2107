package domain

import (
	"time"
)

// Plan is the coarse tier a tenant is entitled to.
type Plan string

const (
	PlanFree  Plan = "free"
	PlanTrial Plan = "trial"
	PlanPro   Plan = "pro"
)

// BillingCycle is how the subscription renews.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleAnnual  BillingCycle = "annual"
)

// SubscriptionStatusActive is the provider status that maps to the pro plan.
const SubscriptionStatusActive = "active"

// SubscriptionStatusCanceled is the terminal status forced by a
// subscription-deleted event.
const SubscriptionStatusCanceled = "canceled"

// Profile is the per-tenant user record. Billing fields are mutated only by
// the webhook pipeline; settings edits touch non-billing columns only.
// Profiles are never deleted.
type Profile struct {
	UserID   string `gorm:"primaryKey;column:user_id;type:text"`
	Email    string `gorm:"type:text"`
	FullName string `gorm:"type:text"`
	Company  string `gorm:"type:text"`

	Plan Plan `gorm:"type:text;not null;default:'trial'"`

	StripeCustomerID     *string `gorm:"column:stripe_customer_id;type:text;index"`
	StripeSubscriptionID *string `gorm:"column:stripe_subscription_id;type:text"`
	SubscriptionStatus   *string `gorm:"type:text"`
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool          `gorm:"not null;default:false"`
	PriceID              *string       `gorm:"type:text"`
	BillingCycle         *BillingCycle `gorm:"type:text"`

	TrialEndsAt     *time.Time
	DataInitialized bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Profile) TableName() string { return "profiles" }

// HasSubscriptionTracking reports whether the profile carries subscription
// state from the billing pipeline. Legacy pro profiles predate tracking.
func (p *Profile) HasSubscriptionTracking() bool {
	return p != nil && p.SubscriptionStatus != nil && *p.SubscriptionStatus != ""
}
