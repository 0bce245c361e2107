package logger

import (
	"context"
	"strings"

	obscontext "github.com/andreymarc/magnex-billing/internal/observability/context"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures the root logger.
type Config struct {
	Environment string
	Level       string
}

// New builds the root zap logger and installs it as the global.
// Production environments log JSON; everything else gets console output.
func New(cfg Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if strings.EqualFold(cfg.Environment, "production") {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if level := strings.TrimSpace(cfg.Level); level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err == nil {
			zapCfg.Level = zap.NewAtomicLevelAt(parsed)
		}
	}

	log, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

// FromContext returns the global logger enriched with trace correlation and
// request-scoped identifiers carried in the context.
func FromContext(ctx context.Context) *zap.Logger {
	log := zap.L()
	if ctx == nil {
		return log
	}

	fields := make([]zap.Field, 0, 5)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if userID := obscontext.UserIDFromContext(ctx); userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}
	if eventID := obscontext.StripeEventIDFromContext(ctx); eventID != "" {
		fields = append(fields, zap.String("stripe_event_id", eventID))
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}
