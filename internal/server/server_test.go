package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	billingdomain "github.com/andreymarc/magnex-billing/internal/billing/domain"
	checkoutdomain "github.com/andreymarc/magnex-billing/internal/checkout/domain"
	"github.com/andreymarc/magnex-billing/internal/clock"
	"github.com/andreymarc/magnex-billing/internal/config"
	profiledomain "github.com/andreymarc/magnex-billing/internal/profile/domain"
	profilerepo "github.com/andreymarc/magnex-billing/internal/profile/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type fakeBillingService struct {
	mu       sync.Mutex
	calls    int
	provider string
	payload  []byte
	err      error
}

func (f *fakeBillingService) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.provider = provider
	f.payload = payload
	return f.err
}

type fakeCheckoutService struct {
	portalCalls   int
	checkoutCalls int
	url           string
	err           error
	lastCheckout  checkoutdomain.CheckoutRequest
}

func (f *fakeCheckoutService) CreatePortalSession(ctx context.Context, req checkoutdomain.PortalRequest) (string, error) {
	f.portalCalls++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func (f *fakeCheckoutService) CreateCheckoutSession(ctx context.Context, req checkoutdomain.CheckoutRequest) (string, error) {
	f.checkoutCalls++
	f.lastCheckout = req
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type memoryEventLog struct {
	mu      sync.Mutex
	records []*billingdomain.EventRecord
}

func (m *memoryEventLog) Append(ctx context.Context, record *billingdomain.EventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.StripeEventID == record.StripeEventID {
			return nil
		}
	}
	copied := *record
	m.records = append(m.records, &copied)
	return nil
}

func (m *memoryEventLog) FindByStripeEventID(ctx context.Context, stripeEventID string) (*billingdomain.EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.StripeEventID == stripeEventID {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memoryEventLog) ListByUser(ctx context.Context, userID string, since time.Time, limit int) ([]*billingdomain.EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*billingdomain.EventRecord
	for _, rec := range m.records {
		if rec.UserID == nil || *rec.UserID != userID {
			continue
		}
		if !since.IsZero() && rec.CreatedAt.Before(since) {
			continue
		}
		copied := *rec
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type serverFixture struct {
	engine     *gin.Engine
	billing    *fakeBillingService
	checkout   *fakeCheckoutService
	profiles   *profilerepo.MemoryRepository
	eventLog   *memoryEventLog
	clockValue clock.FixedClock
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	billing := &fakeBillingService{}
	checkout := &fakeCheckoutService{url: "https://billing.stripe.com/session/test"}
	profiles := profilerepo.NewMemory()
	eventLog := &memoryEventLog{}
	fixed := clock.FixedClock{Instant: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	cfg := config.Config{
		Environment: "test",
		Port:        "0",
		SiteURL:     "https://app.example.com",
	}

	engine := NewEngine(cfg)
	srv := NewServer(Params{
		Cfg:         cfg,
		Log:         zap.NewNop(),
		Clock:       fixed,
		BillingSvc:  billing,
		CheckoutSvc: checkout,
		Profiles:    profiles,
		EventLog:    eventLog,
	}, engine)
	srv.RegisterRoutes()

	return &serverFixture{
		engine:     engine,
		billing:    billing,
		checkout:   checkout,
		profiles:   profiles,
		eventLog:   eventLog,
		clockValue: fixed,
	}
}

func (f *serverFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) seedProfile(t *testing.T, profile profiledomain.Profile) {
	t.Helper()
	if err := f.profiles.Create(context.Background(), &profile); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func snowflakeID(t *testing.T) snowflake.ID {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node.Generate()
}

func TestHealthEndpoint(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
