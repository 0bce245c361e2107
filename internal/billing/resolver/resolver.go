package resolver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/andreymarc/magnex-billing/internal/billing/domain"
	"github.com/andreymarc/magnex-billing/internal/cache"
	profiledomain "github.com/andreymarc/magnex-billing/internal/profile/domain"
	"go.uber.org/zap"
)

// metadataUserIDKey is the tenant user id stamped into subscription and
// checkout metadata at checkout time.
const metadataUserIDKey = "user_id"

const customerCacheTTL = 5 * time.Minute

// Strategy maps a billing event to an internal user id. An empty id with a
// nil error means "no match, try the next strategy".
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, event *domain.Event) (string, error)
}

// MetadataStrategy reads the tenant user id embedded in event metadata.
type MetadataStrategy struct{}

func (MetadataStrategy) Name() string { return "metadata" }

func (MetadataStrategy) Resolve(ctx context.Context, event *domain.Event) (string, error) {
	if event == nil {
		return "", nil
	}
	return strings.TrimSpace(event.Metadata()[metadataUserIDKey]), nil
}

// CustomerIDStrategy looks up the profile whose stored billing-customer id
// matches the event's customer reference. Hits are cached per instance to
// absorb event bursts for the same customer.
type CustomerIDStrategy struct {
	profiles profiledomain.Repository
	cache    *cache.TTLCache[string, string]
}

func NewCustomerIDStrategy(profiles profiledomain.Repository) *CustomerIDStrategy {
	return &CustomerIDStrategy{
		profiles: profiles,
		cache:    cache.NewTTLCache[string, string](),
	}
}

func (s *CustomerIDStrategy) Name() string { return "customer_id" }

func (s *CustomerIDStrategy) Resolve(ctx context.Context, event *domain.Event) (string, error) {
	if event == nil {
		return "", nil
	}
	customerID := strings.TrimSpace(event.CustomerID)
	if customerID == "" {
		return "", nil
	}

	if userID, ok := s.cache.Get(customerID); ok {
		return userID, nil
	}

	profile, err := s.profiles.FindByStripeCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, profiledomain.ErrProfileNotFound) {
			return "", nil
		}
		return "", err
	}

	s.cache.Set(customerID, profile.UserID, customerCacheTTL)
	return profile.UserID, nil
}

// Resolver runs an ordered strategy chain, first match wins. Adding a third
// resolution source means appending one strategy here.
type Resolver struct {
	strategies []Strategy
	log        *zap.Logger
}

// New constructs a resolver over the given strategies, in order.
func New(log *zap.Logger, strategies ...Strategy) *Resolver {
	return &Resolver{
		strategies: strategies,
		log:        log.Named("billing.resolver"),
	}
}

// NewDefault wires the production chain: metadata first, then the
// customer-id lookup.
func NewDefault(log *zap.Logger, profiles profiledomain.Repository) *Resolver {
	return New(log, MetadataStrategy{}, NewCustomerIDStrategy(profiles))
}

// Resolve returns the internal user id for an event, or ErrUnresolvedUser
// when no strategy matches. Unresolvable events never become resolvable by
// retry alone, so callers treat this as non-fatal.
func (r *Resolver) Resolve(ctx context.Context, event *domain.Event) (string, error) {
	for _, strategy := range r.strategies {
		userID, err := strategy.Resolve(ctx, event)
		if err != nil {
			return "", err
		}
		if userID != "" {
			r.log.Debug("resolved billing event user",
				zap.String("strategy", strategy.Name()),
				zap.String("user_id", userID),
			)
			return userID, nil
		}
	}
	return "", domain.ErrUnresolvedUser
}
