package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/andreymarc/magnex-billing/internal/entitlement"
	profiledomain "github.com/andreymarc/magnex-billing/internal/profile/domain"
	"github.com/gin-gonic/gin"
)

// CheckEntitlement evaluates feature access for one user. A missing
// profile evaluates with a nil profile, which the evaluator treats as a
// trial-tier caller rather than an error.
func (s *Server) CheckEntitlement(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userID"))
	feature := strings.TrimSpace(c.Query("feature"))
	if userID == "" || feature == "" {
		AbortWithError(c, newValidationError("feature", "required", "feature query parameter is required"))
		return
	}

	profile, err := s.profiles.FindByUserID(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, profiledomain.ErrProfileNotFound) {
		AbortWithError(c, err)
		return
	}

	now := s.clock.Now()
	c.JSON(http.StatusOK, gin.H{
		"feature": feature,
		"allowed": entitlement.CanAccess(profile, entitlement.Feature(feature), now),
		"plan":    string(entitlement.DerivePlan(profile, now)),
	})
}
