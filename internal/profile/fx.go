package profile

import (
	"github.com/andreymarc/magnex-billing/internal/profile/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("profile",
	fx.Provide(repository.Provide),
)
