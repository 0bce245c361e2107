package checkout

import (
	checkoutdomain "github.com/andreymarc/magnex-billing/internal/checkout/domain"
	"github.com/andreymarc/magnex-billing/internal/checkout/service"
	"github.com/andreymarc/magnex-billing/internal/checkout/stripeclient"
	"go.uber.org/fx"
)

var Module = fx.Module("checkout",
	fx.Provide(func(client *stripeclient.Client) checkoutdomain.ProviderClient {
		return client
	}),
	fx.Provide(stripeclient.New),
	fx.Provide(service.NewService),
)
