package main

import (
	"github.com/andreymarc/magnex-billing/internal/billing"
	"github.com/andreymarc/magnex-billing/internal/checkout"
	"github.com/andreymarc/magnex-billing/internal/clock"
	"github.com/andreymarc/magnex-billing/internal/config"
	"github.com/andreymarc/magnex-billing/internal/migration"
	"github.com/andreymarc/magnex-billing/internal/observability"
	"github.com/andreymarc/magnex-billing/internal/profile"
	"github.com/andreymarc/magnex-billing/internal/seed"
	"github.com/andreymarc/magnex-billing/internal/server"
	"github.com/andreymarc/magnex-billing/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		profile.Module,
		billing.Module,
		checkout.Module,
		seed.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
