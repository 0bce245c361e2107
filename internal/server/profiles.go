package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	billingdomain "github.com/andreymarc/magnex-billing/internal/billing/domain"
	profiledomain "github.com/andreymarc/magnex-billing/internal/profile/domain"
	"github.com/gin-gonic/gin"
)

type profileResponse struct {
	UserID               string     `json:"userId"`
	Email                string     `json:"email"`
	FullName             string     `json:"fullName,omitempty"`
	Company              string     `json:"company,omitempty"`
	Plan                 string     `json:"plan"`
	StripeCustomerID     *string    `json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID *string    `json:"stripeSubscriptionId,omitempty"`
	SubscriptionStatus   *string    `json:"subscriptionStatus,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd    bool       `json:"cancelAtPeriodEnd"`
	PriceID              *string    `json:"priceId,omitempty"`
	BillingCycle         *string    `json:"billingCycle,omitempty"`
	TrialEndsAt          *time.Time `json:"trialEndsAt,omitempty"`
	DataInitialized      bool       `json:"dataInitialized"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

func toProfileResponse(p *profiledomain.Profile) profileResponse {
	resp := profileResponse{
		UserID:               p.UserID,
		Email:                p.Email,
		FullName:             p.FullName,
		Company:              p.Company,
		Plan:                 string(p.Plan),
		StripeCustomerID:     p.StripeCustomerID,
		StripeSubscriptionID: p.StripeSubscriptionID,
		SubscriptionStatus:   p.SubscriptionStatus,
		CurrentPeriodEnd:     p.CurrentPeriodEnd,
		CancelAtPeriodEnd:    p.CancelAtPeriodEnd,
		PriceID:              p.PriceID,
		TrialEndsAt:          p.TrialEndsAt,
		DataInitialized:      p.DataInitialized,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if p.BillingCycle != nil {
		cycle := string(*p.BillingCycle)
		resp.BillingCycle = &cycle
	}
	return resp
}

func (s *Server) GetProfile(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userID"))
	if userID == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	profile, err := s.profiles.FindByUserID(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProfileResponse(profile))
}

type updateSettingsRequest struct {
	Email           *string `json:"email"`
	FullName        *string `json:"fullName"`
	Company         *string `json:"company"`
	DataInitialized *bool   `json:"dataInitialized"`
}

// UpdateProfileSettings applies a partial update to the profile's
// user-editable fields. Billing columns are never writable here; they
// belong to the webhook pipeline.
func (s *Server) UpdateProfileSettings(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userID"))
	if userID == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := profiledomain.SettingsUpdate{
		Email:           req.Email,
		FullName:        req.FullName,
		Company:         req.Company,
		DataInitialized: req.DataInitialized,
	}
	if len(update.Changes()) == 0 {
		AbortWithError(c, newValidationError("body", "empty", "no updatable fields provided"))
		return
	}

	if err := s.profiles.UpdateSettings(c.Request.Context(), userID, update); err != nil {
		AbortWithError(c, err)
		return
	}

	profile, err := s.profiles.FindByUserID(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProfileResponse(profile))
}

type eventRecordResponse struct {
	ID            string          `json:"id"`
	UserID        *string         `json:"userId,omitempty"`
	EventType     string          `json:"eventType"`
	StripeEventID string          `json:"stripeEventId"`
	Data          json.RawMessage `json:"data,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ListBillingEvents returns a user's subscription audit trail, newest
// first. Supports ?since=<RFC3339> and ?limit=<n>.
func (s *Server) ListBillingEvents(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userID"))
	if userID == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			AbortWithError(c, newValidationError("since", "format", "since must be RFC3339"))
			return
		}
		since = parsed
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			AbortWithError(c, newValidationError("limit", "format", "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	records, err := s.eventLog.ListByUser(c.Request.Context(), userID, since, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items := make([]eventRecordResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, toEventRecordResponse(rec))
	}

	c.JSON(http.StatusOK, gin.H{"events": items})
}

func toEventRecordResponse(rec *billingdomain.EventRecord) eventRecordResponse {
	return eventRecordResponse{
		ID:            rec.ID.String(),
		UserID:        rec.UserID,
		EventType:     rec.EventType,
		StripeEventID: rec.StripeEventID,
		Data:          json.RawMessage(rec.Data),
		CreatedAt:     rec.CreatedAt,
	}
}
