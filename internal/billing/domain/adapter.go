package domain

import (
	"context"
	"net/http"
)

// ProviderAdapter verifies and parses inbound billing provider webhooks.
// Verify is a single-attempt signature check; the provider's redelivery
// mechanism is the retry layer.
type ProviderAdapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*Event, error)
}
