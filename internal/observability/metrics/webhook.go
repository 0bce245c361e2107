package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries constant labels shared by all metric families.
type Config struct {
	ServiceName string
	Environment string
}

// WebhookMetrics tracks billing event ingestion outcomes.
type WebhookMetrics struct {
	eventsProcessed *prometheus.CounterVec
	handlerDuration *prometheus.HistogramVec
	eventLogDropped prometheus.Counter
}

var (
	webhookMetricsOnce sync.Once
	webhookMetrics     *WebhookMetrics
)

// Webhook returns the process-wide webhook metrics, registering them on
// first use.
func Webhook(cfg Config) *WebhookMetrics {
	webhookMetricsOnce.Do(func() {
		webhookMetrics = newWebhookMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return webhookMetrics
}

// ResetWebhookMetricsForTest clears the singleton between test runs.
func ResetWebhookMetricsForTest() {
	webhookMetricsOnce = sync.Once{}
	webhookMetrics = nil
}

func newWebhookMetrics(registerer prometheus.Registerer, cfg Config) *WebhookMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "magnex_billing"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	eventsProcessed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "billing_webhook_events_total",
			Help:        "Billing webhook events by type and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"event_type", "result"}, // result: processed | ignored | unresolved | failed | rejected
	)

	handlerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "billing_webhook_handler_duration_seconds",
			Help:        "Time spent handling a verified billing event.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			ConstLabels: constLabels,
		},
		[]string{"event_type"},
	)

	eventLogDropped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "billing_event_log_dropped_total",
			Help:        "Audit-log appends that failed and were absorbed.",
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(eventsProcessed, handlerDuration, eventLogDropped)

	return &WebhookMetrics{
		eventsProcessed: eventsProcessed,
		handlerDuration: handlerDuration,
		eventLogDropped: eventLogDropped,
	}
}

// ObserveEvent records one webhook event outcome.
func (m *WebhookMetrics) ObserveEvent(eventType, result string, duration time.Duration) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.eventsProcessed.WithLabelValues(eventType, result).Inc()
	m.handlerDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

// ObserveEventLogDrop records an absorbed event-log failure.
func (m *WebhookMetrics) ObserveEventLogDrop() {
	if m == nil {
		return
	}
	m.eventLogDropped.Inc()
}
