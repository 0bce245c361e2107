package billing

import (
	"github.com/andreymarc/magnex-billing/internal/billing/adapters"
	stripeadapter "github.com/andreymarc/magnex-billing/internal/billing/adapters/stripe"
	"github.com/andreymarc/magnex-billing/internal/billing/repository"
	"github.com/andreymarc/magnex-billing/internal/billing/resolver"
	"github.com/andreymarc/magnex-billing/internal/billing/service"
	"github.com/andreymarc/magnex-billing/internal/config"
	profiledomain "github.com/andreymarc/magnex-billing/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("billing",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) *adapters.Registry {
		return adapters.NewRegistry(stripeadapter.New(cfg.StripeWebhookSecret))
	}),
	fx.Provide(func(log *zap.Logger, profiles profiledomain.Repository) *resolver.Resolver {
		return resolver.NewDefault(log, profiles)
	}),
	fx.Provide(service.NewService),
)
