package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrProfileNotFound = errors.New("profile_not_found")
	ErrInvalidProfile  = errors.New("invalid_profile")
)

// BillingState is the full subscription snapshot mirrored onto a profile by
// the webhook pipeline. Nil pointer fields are left untouched so partial
// mirrors (for example a checkout link-up) reuse the same write path.
type BillingState struct {
	Plan                 *Plan
	StripeCustomerID     *string
	StripeSubscriptionID *string
	SubscriptionStatus   *string
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    *bool
	PriceID              *string
	BillingCycle         *BillingCycle
}

// Changes flattens the snapshot into column updates.
func (s BillingState) Changes() map[string]any {
	changes := map[string]any{}
	if s.Plan != nil {
		changes["plan"] = *s.Plan
	}
	if s.StripeCustomerID != nil {
		changes["stripe_customer_id"] = *s.StripeCustomerID
	}
	if s.StripeSubscriptionID != nil {
		changes["stripe_subscription_id"] = *s.StripeSubscriptionID
	}
	if s.SubscriptionStatus != nil {
		changes["subscription_status"] = *s.SubscriptionStatus
	}
	if s.CurrentPeriodEnd != nil {
		changes["current_period_end"] = *s.CurrentPeriodEnd
	}
	if s.CancelAtPeriodEnd != nil {
		changes["cancel_at_period_end"] = *s.CancelAtPeriodEnd
	}
	if s.PriceID != nil {
		changes["price_id"] = *s.PriceID
	}
	if s.BillingCycle != nil {
		changes["billing_cycle"] = *s.BillingCycle
	}
	return changes
}

// SettingsUpdate covers the user-editable, non-billing profile fields.
type SettingsUpdate struct {
	Email           *string
	FullName        *string
	Company         *string
	DataInitialized *bool
}

// Changes flattens the update into column updates.
func (s SettingsUpdate) Changes() map[string]any {
	changes := map[string]any{}
	if s.Email != nil {
		changes["email"] = *s.Email
	}
	if s.FullName != nil {
		changes["full_name"] = *s.FullName
	}
	if s.Company != nil {
		changes["company"] = *s.Company
	}
	if s.DataInitialized != nil {
		changes["data_initialized"] = *s.DataInitialized
	}
	return changes
}

// Repository is the injected profile store. Two implementations exist: the
// gorm-backed production store and an in-memory store for tests.
type Repository interface {
	FindByUserID(ctx context.Context, userID string) (*Profile, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*Profile, error)
	Create(ctx context.Context, profile *Profile) error
	ApplyBillingState(ctx context.Context, userID string, state BillingState) error
	UpdateSettings(ctx context.Context, userID string, update SettingsUpdate) error
}
