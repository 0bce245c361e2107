package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/andreymarc/magnex-billing/internal/profile/domain"
	"gorm.io/gorm"
)

type gormRepository struct {
	db *gorm.DB
}

// Provide constructs the gorm-backed profile repository.
func Provide(db *gorm.DB) domain.Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrInvalidProfile
	}

	var profile domain.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *gormRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*domain.Profile, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, domain.ErrInvalidProfile
	}

	var profile domain.Profile
	err := r.db.WithContext(ctx).
		Where("stripe_customer_id = ?", customerID).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *gormRepository) Create(ctx context.Context, profile *domain.Profile) error {
	if profile == nil || strings.TrimSpace(profile.UserID) == "" {
		return domain.ErrInvalidProfile
	}
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *gormRepository) ApplyBillingState(ctx context.Context, userID string, state domain.BillingState) error {
	return r.update(ctx, userID, state.Changes())
}

func (r *gormRepository) UpdateSettings(ctx context.Context, userID string, update domain.SettingsUpdate) error {
	return r.update(ctx, userID, update.Changes())
}

func (r *gormRepository) update(ctx context.Context, userID string, changes map[string]any) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrInvalidProfile
	}
	if len(changes) == 0 {
		return nil
	}
	changes["updated_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("user_id = ?", userID).
		Updates(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}
