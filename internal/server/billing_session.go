package server

import (
	"net/http"
	"strings"

	checkoutdomain "github.com/andreymarc/magnex-billing/internal/checkout/domain"
	profiledomain "github.com/andreymarc/magnex-billing/internal/profile/domain"
	"github.com/gin-gonic/gin"
)

type portalSessionRequest struct {
	CustomerID string `json:"customerId"`
	UserID     string `json:"userId"`
}

type checkoutSessionRequest struct {
	CustomerID   string `json:"customerId"`
	UserID       string `json:"userId"`
	PriceID      string `json:"priceId"`
	BillingCycle string `json:"billingCycle"`
}

// CreatePortalSession issues a billing-portal session for the caller's own
// billing customer and returns the provider redirect URL unmodified.
func (s *Server) CreatePortalSession(c *gin.Context) {
	var req portalSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.CustomerID == "" {
		AbortWithError(c, newValidationError("customerId", "required", "customerId is required"))
		return
	}
	if req.UserID == "" {
		AbortWithError(c, newValidationError("userId", "required", "userId is required"))
		return
	}

	url, err := s.checkoutSvc.CreatePortalSession(c.Request.Context(), checkoutdomain.PortalRequest{
		UserID:     req.UserID,
		CustomerID: req.CustomerID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CreateCheckoutSession issues a subscription checkout session.
func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req checkoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.CustomerID = strings.TrimSpace(req.CustomerID)
	req.UserID = strings.TrimSpace(req.UserID)
	req.PriceID = strings.TrimSpace(req.PriceID)
	if req.CustomerID == "" {
		AbortWithError(c, newValidationError("customerId", "required", "customerId is required"))
		return
	}
	if req.UserID == "" {
		AbortWithError(c, newValidationError("userId", "required", "userId is required"))
		return
	}
	if req.PriceID == "" {
		AbortWithError(c, newValidationError("priceId", "required", "priceId is required"))
		return
	}

	url, err := s.checkoutSvc.CreateCheckoutSession(c.Request.Context(), checkoutdomain.CheckoutRequest{
		UserID:       req.UserID,
		CustomerID:   req.CustomerID,
		PriceID:      req.PriceID,
		BillingCycle: profiledomain.BillingCycle(strings.ToLower(req.BillingCycle)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
