package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/andreymarc/magnex-billing/internal/billing/adapters"
	stripeadapter "github.com/andreymarc/magnex-billing/internal/billing/adapters/stripe"
	"github.com/andreymarc/magnex-billing/internal/billing/domain"
	billingrepository "github.com/andreymarc/magnex-billing/internal/billing/repository"
	"github.com/andreymarc/magnex-billing/internal/billing/resolver"
	"github.com/andreymarc/magnex-billing/internal/clock"
	profiledomain "github.com/andreymarc/magnex-billing/internal/profile/domain"
	profilerepository "github.com/andreymarc/magnex-billing/internal/profile/repository"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeAdapter skips signature verification but parses with the real Stripe
// adapter, so service tests exercise real payload decoding.
type fakeAdapter struct {
	verifyErr error
	parser    *stripeadapter.Adapter
}

func (f *fakeAdapter) Provider() string { return "stripe" }

func (f *fakeAdapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	return f.verifyErr
}

func (f *fakeAdapter) Parse(ctx context.Context, payload []byte) (*domain.Event, error) {
	return f.parser.Parse(ctx, payload)
}

type failingEventLog struct{}

func (failingEventLog) Append(ctx context.Context, record *domain.EventRecord) error {
	return errors.New("event log unavailable")
}

func (failingEventLog) FindByStripeEventID(ctx context.Context, id string) (*domain.EventRecord, error) {
	return nil, nil
}

func (failingEventLog) ListByUser(ctx context.Context, userID string, since time.Time, limit int) ([]*domain.EventRecord, error) {
	return nil, nil
}

type failingProfiles struct {
	profiledomain.Repository
}

func (f failingProfiles) ApplyBillingState(ctx context.Context, userID string, state profiledomain.BillingState) error {
	return errors.New("profile store unavailable")
}

type fixture struct {
	svc      *Service
	profiles *profilerepository.MemoryRepository
	eventLog domain.EventLogRepository
	db       *gorm.DB
}

func setupEventLogDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.EventRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupEventLogDB(t)
	profiles := profilerepository.NewMemory()
	eventLog := billingrepository.Provide(db)

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	svc := NewService(Params{
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.SystemClock{},
		Profiles: profiles,
		EventLog: eventLog,
		Resolver: resolver.NewDefault(zap.NewNop(), profiles),
		Adapters: adapters.NewRegistry(&fakeAdapter{parser: stripeadapter.New("whsec_test")}),
	}).(*Service)

	return &fixture{svc: svc, profiles: profiles, eventLog: eventLog, db: db}
}

func (f *fixture) createProfile(t *testing.T, userID, customerID string, plan profiledomain.Plan) {
	t.Helper()
	profile := &profiledomain.Profile{UserID: userID, Plan: plan}
	if customerID != "" {
		profile.StripeCustomerID = &customerID
	}
	if err := f.profiles.Create(context.Background(), profile); err != nil {
		t.Fatalf("create profile: %v", err)
	}
}

func (f *fixture) countEvents(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&domain.EventRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return count
}

func subscriptionPayload(eventID, subID, customerID, status, interval string, metadata string) []byte {
	return fmt.Appendf(nil, `{
		"id": %q,
		"type": "customer.subscription.updated",
		"created": 1712000000,
		"data": {"object": {
			"id": %q,
			"customer": %q,
			"status": %q,
			"cancel_at_period_end": false,
			"current_period_end": 1714000000,
			"metadata": %s,
			"items": {"data": [{"price": {"id": "price_1", "recurring": {"interval": %q}}}]}
		}}
	}`, eventID, subID, customerID, status, metadata, interval)
}

func TestActiveSubscriptionSetsProPlan(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "user-1", "cus_1", profiledomain.PlanTrial)

	payload := subscriptionPayload("evt_1", "sub_1", "cus_1", "active", "month", `{"user_id": "user-1"}`)
	if err := f.svc.IngestWebhook(context.Background(), "stripe", payload, http.Header{}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	got, err := f.profiles.FindByUserID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Plan != profiledomain.PlanPro {
		t.Fatalf("expected pro, got %s", got.Plan)
	}
	if got.SubscriptionStatus == nil || *got.SubscriptionStatus != "active" {
		t.Fatalf("status not mirrored: %v", got.SubscriptionStatus)
	}
	if got.BillingCycle == nil || *got.BillingCycle != profiledomain.BillingCycleMonthly {
		t.Fatalf("expected monthly cycle, got %v", got.BillingCycle)
	}
	if got.CurrentPeriodEnd == nil || !got.CurrentPeriodEnd.Equal(time.Unix(1714000000, 0).UTC()) {
		t.Fatalf("period end not converted: %v", got.CurrentPeriodEnd)
	}
	if got.PriceID == nil || *got.PriceID != "price_1" {
		t.Fatalf("price id not mirrored: %v", got.PriceID)
	}
}

func TestNonActiveStatusSetsFreePlan(t *testing.T) {
	f := newFixture(t)

	for i, status := range []string{"past_due", "unpaid", "incomplete", "trialing"} {
		userID := fmt.Sprintf("user-%d", i)
		customerID := fmt.Sprintf("cus_%d", i)
		f.createProfile(t, userID, customerID, profiledomain.PlanPro)

		payload := subscriptionPayload(fmt.Sprintf("evt_%d", i), "sub_x", customerID, status, "month", `{}`)
		if err := f.svc.IngestWebhook(context.Background(), "stripe", payload, http.Header{}); err != nil {
			t.Fatalf("ingest %s: %v", status, err)
		}

		got, err := f.profiles.FindByUserID(context.Background(), userID)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Plan != profiledomain.PlanFree {
			t.Fatalf("status %s: expected free, got %s", status, got.Plan)
		}
	}
}

func TestBillingCycleMetadataOverridesInterval(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "user-1", "cus_1", profiledomain.PlanTrial)

	// Interval says month, metadata says annual: metadata wins.
	payload := subscriptionPayload("evt_1", "sub_1", "cus_1", "active", "month", `{"billing_cycle": "annual"}`)
	if err := f.svc.IngestWebhook(context.Background(), "stripe", payload, http.Header{}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	got, _ := f.profiles.FindByUserID(context.Background(), "user-1")
	if got.BillingCycle == nil || *got.BillingCycle != profiledomain.BillingCycleAnnual {
		t.Fatalf("expected annual from metadata, got %v", got.BillingCycle)
	}
}

func TestBillingCycleInferredFromYearInterval(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "user-1", "cus_1", profiledomain.PlanTrial)

	payload := subscriptionPayload("evt_1", "sub_1", "cus_1", "active", "year", `{}`)
	if err := f.svc.IngestWebhook(context.Background(), "stripe", payload, http.Header{}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	got, _ := f.profiles.FindByUserID(context.Background(), "user-1")
	if got.BillingCycle == nil || *got.BillingCycle != profiledomain.BillingCycleAnnual {
		t.Fatalf("expected annual from interval, got %v", got.BillingCycle)
	}
}

func TestSubscriptionDeletedIsTerminalAndIdempotent(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "user-1", "cus_1", profiledomain.PlanPro)

	// No metadata mapping; resolution must fall back to the customer id.
	deleted := []byte(`{
		"id": "evt_del",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "customer": "cus_1", "metadata": {}}}
	}`)

	for i := 0; i < 2; i++ {
		if err := f.svc.IngestWebhook(context.Background(), "stripe", deleted, http.Header{}); err != nil {
			t.Fatalf("ingest #%d: %v", i, err)
		}

		got, err := f.profiles.FindByUserID(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Plan != profiledomain.PlanFree {
			t.Fatalf("expected free, got %s", got.Plan)
		}
		if got.SubscriptionStatus == nil || *got.SubscriptionStatus != "canceled" {
			t.Fatalf("expected canceled, got %v", got.SubscriptionStatus)
		}
		if got.CancelAtPeriodEnd {
			t.Fatalf("cancel_at_period_end must be forced false")
		}
	}
}

func TestCheckoutCompletedLinksBillingIDs(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "user-1", "", profiledomain.PlanTrial)

	payload := []byte(`{
		"id": "evt_co",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"customer": "cus_new",
			"subscription": "sub_new",
			"mode": "subscription",
			"metadata": {"user_id": "user-1"}
		}}
	}`)
	if err := f.svc.IngestWebhook(context.Background(), "stripe", payload, http.Header{}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	got, _ := f.profiles.FindByUserID(context.Background(), "user-1")
	if got.StripeCustomerID == nil || *got.StripeCustomerID != "cus_new" {
		t.Fatalf("customer id not linked: %v", got.StripeCustomerID)
	}
	if got.StripeSubscriptionID == nil || *got.StripeSubscriptionID != "sub_new" {
		t.Fatalf("subscription id not linked: %v", got.StripeSubscriptionID)
	}
}

func TestInvoicePaymentEventsDoNotMutateProfile(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "user-1", "cus_1", profiledomain.PlanPro)

	for _, eventType := range []string{"invoice.payment_succeeded", "invoice.payment_failed"} {
		payload := fmt.Appendf(nil, `{"id": "evt_%s", "type": %q, "data": {"object": {"customer": "cus_1"}}}`, eventType, eventType)
		if err := f.svc.IngestWebhook(context.Background(), "stripe", payload, http.Header{}); err != nil {
			t.Fatalf("ingest %s: %v", eventType, err)
		}
	}

	got, _ := f.profiles.FindByUserID(context.Background(), "user-1")
	if got.Plan != profiledomain.PlanPro {
		t.Fatalf("payment events must not change plan, got %s", got.Plan)
	}
	if f.countEvents(t) != 2 {
		t.Fatalf("expected 2 event rows, got %d", f.countEvents(t))
	}
}

func TestUnresolvedEventIsAcknowledgedAndRecordedWithNullUser(t *testing.T) {
	f := newFixture(t)

	payload := subscriptionPayload("evt_orphan", "sub_1", "cus_unknown", "active", "month", `{}`)
	if err := f.svc.IngestWebhook(context.Background(), "stripe", payload, http.Header{}); err != nil {
		t.Fatalf("unresolved events must not fail the webhook: %v", err)
	}

	record, err := f.eventLog.FindByStripeEventID(context.Background(), "evt_orphan")
	if err != nil {
		t.Fatalf("find record: %v", err)
	}
	if record == nil {
		t.Fatalf("expected event row for unresolved event")
	}
	if record.UserID != nil {
		t.Fatalf("expected null user id, got %v", *record.UserID)
	}
}

func TestInvalidSignatureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "user-1", "cus_1", profiledomain.PlanTrial)
	f.svc.adapters = adapters.NewRegistry(&fakeAdapter{
		verifyErr: domain.ErrInvalidSignature,
		parser:    stripeadapter.New("whsec_test"),
	})

	payload := subscriptionPayload("evt_bad", "sub_1", "cus_1", "active", "month", `{}`)
	err := f.svc.IngestWebhook(context.Background(), "stripe", payload, http.Header{})
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}

	if f.countEvents(t) != 0 {
		t.Fatalf("rejected event must not be logged")
	}
	got, _ := f.profiles.FindByUserID(context.Background(), "user-1")
	if got.Plan != profiledomain.PlanTrial {
		t.Fatalf("rejected event must not mutate profile")
	}
}

func TestProfileWriteFailureIsFatalButStillLogged(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "user-1", "cus_1", profiledomain.PlanTrial)
	f.svc.profiles = failingProfiles{Repository: f.profiles}

	payload := subscriptionPayload("evt_fail", "sub_1", "cus_1", "active", "month", `{"user_id": "user-1"}`)
	if err := f.svc.IngestWebhook(context.Background(), "stripe", payload, http.Header{}); err == nil {
		t.Fatalf("expected fatal error from profile write")
	}

	if f.countEvents(t) != 1 {
		t.Fatalf("event must be logged despite handler failure, got %d rows", f.countEvents(t))
	}
}

func TestEventLogFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "user-1", "cus_1", profiledomain.PlanTrial)
	f.svc.eventLog = failingEventLog{}

	payload := subscriptionPayload("evt_1", "sub_1", "cus_1", "active", "month", `{"user_id": "user-1"}`)
	if err := f.svc.IngestWebhook(context.Background(), "stripe", payload, http.Header{}); err != nil {
		t.Fatalf("event log failure must never surface: %v", err)
	}

	got, _ := f.profiles.FindByUserID(context.Background(), "user-1")
	if got.Plan != profiledomain.PlanPro {
		t.Fatalf("profile update must still apply, got %s", got.Plan)
	}
}

func TestEventLogDeduplicatesRedeliveries(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "user-1", "cus_1", profiledomain.PlanTrial)

	payload := subscriptionPayload("evt_same", "sub_1", "cus_1", "active", "month", `{}`)
	for i := 0; i < 3; i++ {
		if err := f.svc.IngestWebhook(context.Background(), "stripe", payload, http.Header{}); err != nil {
			t.Fatalf("ingest #%d: %v", i, err)
		}
	}

	if f.countEvents(t) != 1 {
		t.Fatalf("expected dedup to one row, got %d", f.countEvents(t))
	}
}

func TestUnrecognizedEventTypeIsLogOnly(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "user-1", "cus_1", profiledomain.PlanPro)

	payload := []byte(`{"id": "evt_unknown", "type": "charge.refunded", "data": {"object": {"customer": "cus_1"}}}`)
	if err := f.svc.IngestWebhook(context.Background(), "stripe", payload, http.Header{}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if f.countEvents(t) != 1 {
		t.Fatalf("unrecognized event must be recorded")
	}
	got, _ := f.profiles.FindByUserID(context.Background(), "user-1")
	if got.Plan != profiledomain.PlanPro {
		t.Fatalf("unrecognized event must not mutate profile")
	}
}

func TestUnknownProviderRejected(t *testing.T) {
	f := newFixture(t)
	err := f.svc.IngestWebhook(context.Background(), "paypal", []byte(`{}`), http.Header{})
	if !errors.Is(err, domain.ErrProviderNotFound) {
		t.Fatalf("expected provider_not_found, got %v", err)
	}
}
