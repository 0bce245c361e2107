package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/andreymarc/magnex-billing/internal/billing/adapters"
	"github.com/andreymarc/magnex-billing/internal/billing/domain"
	"github.com/andreymarc/magnex-billing/internal/billing/resolver"
	"github.com/andreymarc/magnex-billing/internal/clock"
	obscontext "github.com/andreymarc/magnex-billing/internal/observability/context"
	"github.com/andreymarc/magnex-billing/internal/observability/metrics"
	profiledomain "github.com/andreymarc/magnex-billing/internal/profile/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// metadataBillingCycleKey is the explicit billing cycle override stamped
// into subscription metadata at checkout time. It always wins over
// interval inference.
const metadataBillingCycleKey = "billing_cycle"

const (
	resultProcessed  = "processed"
	resultIgnored    = "ignored"
	resultUnresolved = "unresolved"
	resultFailed     = "failed"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Profiles profiledomain.Repository
	EventLog domain.EventLogRepository
	Resolver *resolver.Resolver
	Adapters *adapters.Registry
	Metrics  *metrics.WebhookMetrics
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	profiles profiledomain.Repository
	eventLog domain.EventLogRepository
	resolver *resolver.Resolver
	adapters *adapters.Registry
	metrics  *metrics.WebhookMetrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("billing.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		profiles: p.Profiles,
		eventLog: p.EventLog,
		resolver: p.Resolver,
		adapters: p.Adapters,
		metrics:  p.Metrics,
	}
}

// IngestWebhook verifies, resolves, and applies one billing event.
//
// A signature failure aborts before any side effect. After verification the
// event log append is unconditional: it happens whether business handling
// succeeded, was skipped, or failed. Profile writes use the mustSucceed
// policy (the error propagates and the provider redelivers); the event log
// append uses the bestEffort policy (failures are absorbed so a broken
// audit trail never triggers redelivery storms).
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return domain.ErrInvalidProvider
	}
	adapter, ok := s.adapters.Lookup(provider)
	if !ok {
		return domain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return domain.ErrInvalidPayload
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook signature rejected", zap.String("provider", provider))
		return err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		return err
	}
	ctx = obscontext.WithStripeEventID(ctx, event.ProviderEventID)

	start := s.clock.Now()
	userID, handleErr := s.handleEvent(ctx, event)
	s.bestEffortAppend(ctx, userID, event)

	result := resultProcessed
	switch {
	case handleErr != nil:
		result = resultFailed
	case userID == "":
		result = resultUnresolved
	case !event.Type.Recognized():
		result = resultIgnored
	}
	s.metrics.ObserveEvent(string(event.Type), result, s.clock.Now().Sub(start))

	return handleErr
}

// handleEvent resolves the target user and applies business handling.
// It returns the resolved user id (empty when unresolvable) alongside any
// fatal error from the mustSucceed path.
func (s *Service) handleEvent(ctx context.Context, event *domain.Event) (string, error) {
	userID, err := s.resolver.Resolve(ctx, event)
	if err != nil {
		if errors.Is(err, domain.ErrUnresolvedUser) {
			// Redelivery cannot fix an unmapped event; acknowledge and
			// leave a null-user audit row for manual investigation.
			s.log.Warn("billing event user unresolved",
				zap.String("stripe_event_id", event.ProviderEventID),
				zap.String("event_type", string(event.Type)),
				zap.String("customer_id", event.CustomerID),
			)
			return "", nil
		}
		return "", err
	}
	ctx = obscontext.WithUserID(ctx, userID)

	return userID, s.mustSucceed(ctx, userID, event)
}

// mustSucceed applies the profile mutation for an event. Errors propagate:
// the webhook reports failure and the provider redelivers. Every mutation
// is a full snapshot, so re-application is idempotent.
func (s *Service) mustSucceed(ctx context.Context, userID string, event *domain.Event) error {
	switch event.Type {
	case domain.EventTypeCheckoutCompleted:
		return s.applyCheckout(ctx, userID, event.Checkout)
	case domain.EventTypeSubscriptionCreated, domain.EventTypeSubscriptionUpdated:
		return s.applySubscription(ctx, userID, event.Subscription)
	case domain.EventTypeSubscriptionDeleted:
		return s.applySubscriptionDeleted(ctx, userID)
	case domain.EventTypeInvoicePaymentSucceeded, domain.EventTypeInvoicePaymentFailed:
		// Informational only; the subscription-updated event is the sole
		// source of truth for plan status.
		return nil
	default:
		return nil
	}
}

// applyCheckout links the billing customer and subscription onto the
// profile. The full subscription snapshot arrives with the subsequent
// subscription event.
func (s *Service) applyCheckout(ctx context.Context, userID string, checkout *domain.CheckoutSnapshot) error {
	if checkout == nil {
		return domain.ErrInvalidEvent
	}
	if checkout.Mode != "" && checkout.Mode != "subscription" {
		return nil
	}

	state := profiledomain.BillingState{}
	if checkout.CustomerID != "" {
		state.StripeCustomerID = &checkout.CustomerID
	}
	if checkout.SubscriptionID != "" {
		state.StripeSubscriptionID = &checkout.SubscriptionID
	}
	if len(state.Changes()) == 0 {
		return nil
	}

	if err := s.profiles.ApplyBillingState(ctx, userID, state); err != nil {
		return fmt.Errorf("link checkout session %s: %w", checkout.SessionID, err)
	}
	s.log.Info("checkout session linked",
		zap.String("user_id", userID),
		zap.String("session_id", checkout.SessionID),
	)
	return nil
}

func (s *Service) applySubscription(ctx context.Context, userID string, sub *domain.SubscriptionSnapshot) error {
	if sub == nil {
		return domain.ErrInvalidEvent
	}

	plan := profiledomain.PlanFree
	if sub.Status == profiledomain.SubscriptionStatusActive {
		plan = profiledomain.PlanPro
	}
	cycle := inferBillingCycle(sub)

	state := profiledomain.BillingState{
		Plan:                 &plan,
		StripeSubscriptionID: &sub.ID,
		SubscriptionStatus:   &sub.Status,
		CancelAtPeriodEnd:    &sub.CancelAtPeriodEnd,
		BillingCycle:         &cycle,
	}
	if sub.CustomerID != "" {
		state.StripeCustomerID = &sub.CustomerID
	}
	if sub.PriceID != "" {
		state.PriceID = &sub.PriceID
	}
	if sub.CurrentPeriodEnd > 0 {
		periodEnd := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		state.CurrentPeriodEnd = &periodEnd
	}

	if err := s.profiles.ApplyBillingState(ctx, userID, state); err != nil {
		return fmt.Errorf("apply subscription %s: %w", sub.ID, err)
	}
	s.log.Info("subscription state mirrored",
		zap.String("user_id", userID),
		zap.String("subscription_id", sub.ID),
		zap.String("status", sub.Status),
		zap.String("plan", string(plan)),
	)
	return nil
}

// applySubscriptionDeleted forces the terminal state regardless of what the
// profile held before. Applying it twice yields the same result.
func (s *Service) applySubscriptionDeleted(ctx context.Context, userID string) error {
	plan := profiledomain.PlanFree
	status := profiledomain.SubscriptionStatusCanceled
	cancel := false

	err := s.profiles.ApplyBillingState(ctx, userID, profiledomain.BillingState{
		Plan:               &plan,
		SubscriptionStatus: &status,
		CancelAtPeriodEnd:  &cancel,
	})
	if err != nil {
		return fmt.Errorf("apply subscription deletion: %w", err)
	}
	s.log.Info("subscription canceled", zap.String("user_id", userID))
	return nil
}

// inferBillingCycle prefers the explicit metadata value and falls back to
// the recurring interval.
func inferBillingCycle(sub *domain.SubscriptionSnapshot) profiledomain.BillingCycle {
	switch strings.ToLower(strings.TrimSpace(sub.Metadata[metadataBillingCycleKey])) {
	case string(profiledomain.BillingCycleAnnual):
		return profiledomain.BillingCycleAnnual
	case string(profiledomain.BillingCycleMonthly):
		return profiledomain.BillingCycleMonthly
	}
	if strings.EqualFold(strings.TrimSpace(sub.RecurringInterval), "year") {
		return profiledomain.BillingCycleAnnual
	}
	return profiledomain.BillingCycleMonthly
}

// bestEffortAppend writes the audit row for a verified event. Failures are
// logged and counted, never propagated: an audit-log outage must not make
// the webhook report failure and trigger redelivery.
func (s *Service) bestEffortAppend(ctx context.Context, userID string, event *domain.Event) {
	record := &domain.EventRecord{
		ID:            s.genID.Generate(),
		EventType:     string(event.Type),
		StripeEventID: event.ProviderEventID,
		Data:          datatypes.JSON(event.RawPayload),
		CreatedAt:     s.clock.Now(),
	}
	if userID != "" {
		record.UserID = &userID
	}

	if err := s.eventLog.Append(ctx, record); err != nil {
		s.metrics.ObserveEventLogDrop()
		s.log.Error("event log append failed",
			zap.String("stripe_event_id", event.ProviderEventID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
	}
}
