package server

import (
	"errors"
	"net/http"

	billingdomain "github.com/andreymarc/magnex-billing/internal/billing/domain"
	checkoutdomain "github.com/andreymarc/magnex-billing/internal/checkout/domain"
	"github.com/andreymarc/magnex-billing/internal/observability/logger"
	profiledomain "github.com/andreymarc/magnex-billing/internal/profile/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not_found")
)

type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string { return e.code }

func invalidRequestError() *apiError {
	return &apiError{status: http.StatusBadRequest, code: "invalid_request", message: "invalid request body"}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{status: http.StatusBadRequest, code: code, message: field + ": " + message}
}

// AbortWithError maps domain errors onto the HTTP response envelope.
func AbortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal error"

	var typed *apiError
	switch {
	case errors.As(err, &typed):
		status = typed.status
		code = typed.code
		message = typed.message
	case errors.Is(err, billingdomain.ErrInvalidSignature):
		status = http.StatusBadRequest
		code = "invalid_signature"
		message = "webhook signature verification failed"
	case errors.Is(err, billingdomain.ErrInvalidPayload),
		errors.Is(err, billingdomain.ErrInvalidEvent):
		status = http.StatusBadRequest
		code = "invalid_payload"
		message = "event payload could not be parsed"
	case errors.Is(err, billingdomain.ErrProviderNotFound),
		errors.Is(err, billingdomain.ErrInvalidProvider):
		status = http.StatusNotFound
		code = "unknown_provider"
		message = "unknown billing provider"
	case errors.Is(err, checkoutdomain.ErrNotCustomerOwner):
		status = http.StatusForbidden
		code = "customer_mismatch"
		message = "billing customer does not belong to this user"
	case errors.Is(err, checkoutdomain.ErrInvalidRequest):
		status = http.StatusBadRequest
		code = "invalid_request"
		message = "missing or invalid session fields"
	case errors.Is(err, profiledomain.ErrProfileNotFound), errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
		code = "not_found"
		message = "resource not found"
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusUnauthorized
		code = "unauthorized"
		message = "authentication required"
	case errors.Is(err, ErrForbidden):
		status = http.StatusForbidden
		code = "forbidden"
		message = "operation not allowed"
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed", zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}
