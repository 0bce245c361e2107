package entitlement

import (
	"time"

	profiledomain "github.com/andreymarc/magnex-billing/internal/profile/domain"
)

// DerivePlan computes the effective plan tier from profile state at a given
// instant. Precedence, first match wins:
//
//  1. No profile yet: trial, permissive while state is loading.
//  2. Pro with a confirmed active subscription: pro.
//  3. Legacy pro records without subscription tracking: pro.
//  4. Trial window still open: trial.
//  5. Otherwise: free.
//
// Pure function, no I/O; safe to call on every request.
func DerivePlan(profile *profiledomain.Profile, now time.Time) profiledomain.Plan {
	if profile == nil {
		return profiledomain.PlanTrial
	}
	if profile.Plan == profiledomain.PlanPro {
		if profile.SubscriptionStatus != nil && *profile.SubscriptionStatus == profiledomain.SubscriptionStatusActive {
			return profiledomain.PlanPro
		}
		if !profile.HasSubscriptionTracking() {
			return profiledomain.PlanPro
		}
	}
	if profile.TrialEndsAt != nil && now.Before(*profile.TrialEndsAt) {
		return profiledomain.PlanTrial
	}
	return profiledomain.PlanFree
}

// CanAccess answers whether the profile's derived tier may use a feature.
// Unlisted features are allowed for everyone.
func CanAccess(profile *profiledomain.Profile, feature Feature, now time.Time) bool {
	allowed, ok := featureAccess[feature]
	if !ok {
		return true
	}
	plan := DerivePlan(profile, now)
	for _, tier := range allowed {
		if tier == plan {
			return true
		}
	}
	return false
}
