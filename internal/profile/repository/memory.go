package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/andreymarc/magnex-billing/internal/profile/domain"
)

// MemoryRepository is an in-memory profile store for tests and for running
// without a configured database. It honors the same contract as the gorm
// implementation.
type MemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

// NewMemory constructs an empty in-memory repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{profiles: make(map[string]domain.Profile)}
}

func (r *MemoryRepository) FindByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidProfile
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	copied := profile
	return &copied, nil
}

func (r *MemoryRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*domain.Profile, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, domain.ErrInvalidProfile
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, profile := range r.profiles {
		if profile.StripeCustomerID != nil && *profile.StripeCustomerID == customerID {
			copied := profile
			return &copied, nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (r *MemoryRepository) Create(ctx context.Context, profile *domain.Profile) error {
	if profile == nil || strings.TrimSpace(profile.UserID) == "" {
		return domain.ErrInvalidProfile
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	stored := *profile
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.profiles[stored.UserID] = stored
	return nil
}

func (r *MemoryRepository) ApplyBillingState(ctx context.Context, userID string, state domain.BillingState) error {
	return r.update(userID, state.Changes())
}

func (r *MemoryRepository) UpdateSettings(ctx context.Context, userID string, update domain.SettingsUpdate) error {
	return r.update(userID, update.Changes())
}

func (r *MemoryRepository) update(userID string, changes map[string]any) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrInvalidProfile
	}
	if len(changes) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[userID]
	if !ok {
		return domain.ErrProfileNotFound
	}

	for column, value := range changes {
		applyColumn(&profile, column, value)
	}
	profile.UpdatedAt = time.Now().UTC()
	r.profiles[userID] = profile
	return nil
}

func applyColumn(profile *domain.Profile, column string, value any) {
	switch column {
	case "plan":
		if v, ok := value.(domain.Plan); ok {
			profile.Plan = v
		}
	case "stripe_customer_id":
		if v, ok := value.(string); ok {
			profile.StripeCustomerID = &v
		}
	case "stripe_subscription_id":
		if v, ok := value.(string); ok {
			profile.StripeSubscriptionID = &v
		}
	case "subscription_status":
		if v, ok := value.(string); ok {
			profile.SubscriptionStatus = &v
		}
	case "current_period_end":
		if v, ok := value.(time.Time); ok {
			profile.CurrentPeriodEnd = &v
		}
	case "cancel_at_period_end":
		if v, ok := value.(bool); ok {
			profile.CancelAtPeriodEnd = v
		}
	case "price_id":
		if v, ok := value.(string); ok {
			profile.PriceID = &v
		}
	case "billing_cycle":
		if v, ok := value.(domain.BillingCycle); ok {
			profile.BillingCycle = &v
		}
	case "email":
		if v, ok := value.(string); ok {
			profile.Email = v
		}
	case "full_name":
		if v, ok := value.(string); ok {
			profile.FullName = v
		}
	case "company":
		if v, ok := value.(string); ok {
			profile.Company = v
		}
	case "data_initialized":
		if v, ok := value.(bool); ok {
			profile.DataInitialized = v
		}
	}
}
