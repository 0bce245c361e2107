package domain

import "time"

// EventType is the provider's event type string.
type EventType string

const (
	EventTypeCheckoutCompleted       EventType = "checkout.session.completed"
	EventTypeSubscriptionCreated     EventType = "customer.subscription.created"
	EventTypeSubscriptionUpdated     EventType = "customer.subscription.updated"
	EventTypeSubscriptionDeleted     EventType = "customer.subscription.deleted"
	EventTypeInvoicePaymentSucceeded EventType = "invoice.payment_succeeded"
	EventTypeInvoicePaymentFailed    EventType = "invoice.payment_failed"
)

// Recognized reports whether the type drives business-logic handling.
// Unrecognized events are accepted and logged only.
func (t EventType) Recognized() bool {
	switch t {
	case EventTypeCheckoutCompleted,
		EventTypeSubscriptionCreated,
		EventTypeSubscriptionUpdated,
		EventTypeSubscriptionDeleted,
		EventTypeInvoicePaymentSucceeded,
		EventTypeInvoicePaymentFailed:
		return true
	}
	return false
}

// Event is a verified, parsed billing event.
type Event struct {
	ProviderEventID string
	Type            EventType
	CustomerID      string
	Subscription    *SubscriptionSnapshot
	Checkout        *CheckoutSnapshot
	RawPayload      []byte
	OccurredAt      time.Time
}

// Metadata returns the tenant metadata carried by the event object, if any.
func (e *Event) Metadata() map[string]string {
	if e == nil {
		return nil
	}
	if e.Subscription != nil {
		return e.Subscription.Metadata
	}
	if e.Checkout != nil {
		return e.Checkout.Metadata
	}
	return nil
}

// SubscriptionSnapshot is the full subscription state carried by a
// subscription event. It is a snapshot, not a delta, so re-applying it is
// idempotent.
type SubscriptionSnapshot struct {
	ID                string
	CustomerID        string
	Status            string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  int64 // epoch seconds
	PriceID           string
	RecurringInterval string
	Metadata          map[string]string
}

// CheckoutSnapshot is the slice of a completed checkout session this
// service cares about.
type CheckoutSnapshot struct {
	SessionID      string
	CustomerID     string
	SubscriptionID string
	Mode           string
	Metadata       map[string]string
}
