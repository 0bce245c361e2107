package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/andreymarc/magnex-billing/internal/billing/domain"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ProviderName identifies this adapter in the registry and in routes.
const ProviderName = "stripe"

const signatureHeader = "Stripe-Signature"

// Adapter verifies and parses Stripe webhook deliveries.
type Adapter struct {
	webhookSecret string
}

// New constructs the Stripe adapter with the webhook signing secret.
func New(webhookSecret string) *Adapter {
	return &Adapter{webhookSecret: strings.TrimSpace(webhookSecret)}
}

func (a *Adapter) Provider() string { return ProviderName }

// Verify checks the Stripe-Signature header against the signing secret.
// The check includes Stripe's default timestamp tolerance, so replayed
// deliveries outside the window are rejected as well.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sig := strings.TrimSpace(headers.Get(signatureHeader))
	if sig == "" || a.webhookSecret == "" {
		return domain.ErrInvalidSignature
	}
	if _, err := webhook.ConstructEventWithOptions(payload, sig, a.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}); err != nil {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Parse decodes the event envelope into the discriminated domain event.
// Parsing works off the raw payload snapshot; unrecognized event types
// still parse so they can be logged.
func (a *Adapter) Parse(ctx context.Context, payload []byte) (*domain.Event, error) {
	var envelope struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Created int64  `json:"created"`
		Data    struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(envelope.ID) == "" || strings.TrimSpace(envelope.Type) == "" {
		return nil, domain.ErrInvalidEvent
	}

	event := &domain.Event{
		ProviderEventID: envelope.ID,
		Type:            domain.EventType(envelope.Type),
		RawPayload:      payload,
	}
	if envelope.Created > 0 {
		event.OccurredAt = time.Unix(envelope.Created, 0).UTC()
	}

	switch event.Type {
	case domain.EventTypeSubscriptionCreated,
		domain.EventTypeSubscriptionUpdated,
		domain.EventTypeSubscriptionDeleted:
		snapshot, err := parseSubscription(envelope.Data.Object)
		if err != nil {
			return nil, err
		}
		event.Subscription = snapshot
		event.CustomerID = snapshot.CustomerID
	case domain.EventTypeCheckoutCompleted:
		checkout, err := parseCheckout(envelope.Data.Object)
		if err != nil {
			return nil, err
		}
		event.Checkout = checkout
		event.CustomerID = checkout.CustomerID
	default:
		// Invoice payment events and unrecognized types only need the
		// customer reference for resolution and logging.
		event.CustomerID = parseCustomerRef(envelope.Data.Object)
	}

	return event, nil
}

type subscriptionItem struct {
	CurrentPeriodEnd int64 `json:"current_period_end"`
	Price            struct {
		ID        string `json:"id"`
		Recurring struct {
			Interval string `json:"interval"`
		} `json:"recurring"`
	} `json:"price"`
	Plan struct {
		ID       string `json:"id"`
		Interval string `json:"interval"`
	} `json:"plan"`
}

func parseSubscription(raw json.RawMessage) (*domain.SubscriptionSnapshot, error) {
	var object struct {
		ID                string            `json:"id"`
		Customer          string            `json:"customer"`
		Status            string            `json:"status"`
		CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
		CurrentPeriodEnd  int64             `json:"current_period_end"`
		Metadata          map[string]string `json:"metadata"`
		Items             struct {
			Data []subscriptionItem `json:"data"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(object.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	snapshot := &domain.SubscriptionSnapshot{
		ID:                object.ID,
		CustomerID:        object.Customer,
		Status:            object.Status,
		CancelAtPeriodEnd: object.CancelAtPeriodEnd,
		CurrentPeriodEnd:  object.CurrentPeriodEnd,
		Metadata:          object.Metadata,
	}

	if len(object.Items.Data) > 0 {
		item := object.Items.Data[0]
		snapshot.PriceID = item.Price.ID
		snapshot.RecurringInterval = item.Price.Recurring.Interval
		if snapshot.PriceID == "" {
			snapshot.PriceID = item.Plan.ID
		}
		if snapshot.RecurringInterval == "" {
			snapshot.RecurringInterval = item.Plan.Interval
		}
		// Newer API versions carry the period end on the item.
		if snapshot.CurrentPeriodEnd == 0 {
			snapshot.CurrentPeriodEnd = item.CurrentPeriodEnd
		}
	}

	return snapshot, nil
}

func parseCheckout(raw json.RawMessage) (*domain.CheckoutSnapshot, error) {
	var object struct {
		ID           string            `json:"id"`
		Customer     string            `json:"customer"`
		Subscription string            `json:"subscription"`
		Mode         string            `json:"mode"`
		Metadata     map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(object.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}
	return &domain.CheckoutSnapshot{
		SessionID:      object.ID,
		CustomerID:     object.Customer,
		SubscriptionID: object.Subscription,
		Mode:           object.Mode,
		Metadata:       object.Metadata,
	}, nil
}

func parseCustomerRef(raw json.RawMessage) string {
	var object struct {
		Customer string `json:"customer"`
	}
	if err := json.Unmarshal(raw, &object); err != nil {
		return ""
	}
	return object.Customer
}
