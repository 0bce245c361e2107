package seed

import (
	"context"
	"errors"
	"time"

	"github.com/andreymarc/magnex-billing/internal/clock"
	"github.com/andreymarc/magnex-billing/internal/config"
	profiledomain "github.com/andreymarc/magnex-billing/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	demoUserID      = "demo-user"
	demoEmail       = "demo@magnex.local"
	demoFullName    = "Demo Owner"
	demoCompany     = "Magnex Demo Co"
	demoTrialLength = 14 * 24 * time.Hour
)

// EnsureDemoProfile seeds a trial-tier demo profile for local development.
// No-op in production and when the profile already exists.
func EnsureDemoProfile(cfg config.Config, repo profiledomain.Repository, clk clock.Clock, log *zap.Logger) error {
	if !cfg.Bootstrap.SeedDemoProfile || cfg.IsProduction() {
		return nil
	}

	ctx := context.Background()
	if _, err := repo.FindByUserID(ctx, demoUserID); err == nil {
		return nil
	} else if !errors.Is(err, profiledomain.ErrProfileNotFound) {
		return err
	}

	now := clk.Now()
	trialEnd := now.Add(demoTrialLength)
	profile := profiledomain.Profile{
		UserID:      demoUserID,
		Email:       demoEmail,
		FullName:    demoFullName,
		Company:     demoCompany,
		Plan:        profiledomain.PlanTrial,
		TrialEndsAt: &trialEnd,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(ctx, &profile); err != nil {
		return err
	}

	log.Named("seed").Info("demo profile created",
		zap.String("user_id", demoUserID),
		zap.Time("trial_ends_at", trialEnd),
	)
	return nil
}

var Module = fx.Module("seed",
	fx.Invoke(EnsureDemoProfile),
)
