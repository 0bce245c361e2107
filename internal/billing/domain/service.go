package domain

import (
	"context"
	"net/http"
)

// Service ingests billing provider webhooks and reconciles profile
// subscription state.
type Service interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}
