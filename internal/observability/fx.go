package observability

import (
	"github.com/andreymarc/magnex-billing/internal/config"
	"github.com/andreymarc/magnex-billing/internal/observability/logger"
	"github.com/andreymarc/magnex-billing/internal/observability/metrics"
	"github.com/andreymarc/magnex-billing/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

const serviceName = "magnex-billing"

var Module = fx.Module("observability",
	fx.Provide(func(cfg config.Config) logger.Config {
		return logger.Config{Environment: cfg.Environment}
	}),
	fx.Provide(logger.New),
	fx.Provide(func(cfg config.Config) tracing.Config {
		return tracing.Config{
			Enabled:          cfg.Tracing.Enabled,
			ServiceName:      serviceName,
			Environment:      cfg.Environment,
			ExporterEndpoint: cfg.Tracing.ExporterEndpoint,
			ExporterProtocol: cfg.Tracing.ExporterProtocol,
			SamplingRatio:    cfg.Tracing.SamplingRatio,
		}
	}),
	fx.Provide(tracing.NewProvider),
	// Force provider construction; nothing injects it directly.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
	fx.Provide(func(cfg config.Config) *metrics.WebhookMetrics {
		return metrics.Webhook(metrics.Config{
			ServiceName: serviceName,
			Environment: cfg.Environment,
		})
	}),
)
