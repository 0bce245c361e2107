package domain

import (
	"context"
	"errors"

	profiledomain "github.com/andreymarc/magnex-billing/internal/profile/domain"
)

var (
	// ErrNotCustomerOwner is returned when the claimed billing-customer id
	// does not exactly match the one stored on the user's profile.
	ErrNotCustomerOwner = errors.New("not_customer_owner")
	ErrInvalidRequest   = errors.New("invalid_session_request")
	ErrProviderFailure  = errors.New("provider_session_failure")
)

// PortalRequest asks for a billing-portal session for an existing customer.
type PortalRequest struct {
	UserID     string
	CustomerID string
}

// CheckoutRequest asks for a subscription checkout session.
type CheckoutRequest struct {
	UserID       string
	CustomerID   string
	PriceID      string
	BillingCycle profiledomain.BillingCycle
}

// Service issues provider-side billing sessions. Issuance is idempotent:
// repeated calls simply create additional provider sessions. No local
// state is mutated.
type Service interface {
	CreatePortalSession(ctx context.Context, req PortalRequest) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
}

// SessionParams carries everything the provider needs for a checkout
// session. The user id and billing cycle are stamped into subscription
// metadata so webhook resolution can find the tenant later.
type SessionParams struct {
	CustomerID   string
	PriceID      string
	UserID       string
	BillingCycle string
	SuccessURL   string
	CancelURL    string
}

// ProviderClient is the outbound surface to the billing provider. Tests
// substitute a fake to count and deny calls.
type ProviderClient interface {
	NewPortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	NewCheckoutSession(ctx context.Context, params SessionParams) (string, error)
}
