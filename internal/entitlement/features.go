package entitlement

import profiledomain "github.com/andreymarc/magnex-billing/internal/profile/domain"

// Feature names the gateable surfaces of the CRM.
type Feature string

const (
	FeatureLeads      Feature = "leads"
	FeatureContacts   Feature = "contacts"
	FeatureDeals      Feature = "deals"
	FeatureTasks      Feature = "tasks"
	FeatureScheduling Feature = "scheduling"
	FeatureDocuments  Feature = "documents"
	FeatureInvoicing  Feature = "invoicing"
	FeatureAnalytics  Feature = "analytics"
	FeatureBulkExport Feature = "bulk_export"
	FeatureAPIAccess  Feature = "api_access"
)

// featureAccess maps each gated feature to the plan tiers allowed to use
// it. A feature absent from this table is allowed for every tier: access
// fails open so a newly shipped feature is usable until explicitly
// restricted. Changing that policy to fail-closed needs a product
// decision, not a code cleanup.
var featureAccess = map[Feature][]profiledomain.Plan{
	FeatureLeads:      {profiledomain.PlanTrial, profiledomain.PlanPro},
	FeatureContacts:   {profiledomain.PlanTrial, profiledomain.PlanPro},
	FeatureDeals:      {profiledomain.PlanTrial, profiledomain.PlanPro},
	FeatureTasks:      {profiledomain.PlanTrial, profiledomain.PlanPro},
	FeatureScheduling: {profiledomain.PlanTrial, profiledomain.PlanPro},
	FeatureDocuments:  {profiledomain.PlanTrial, profiledomain.PlanPro},
	FeatureInvoicing:  {profiledomain.PlanTrial, profiledomain.PlanPro},
	FeatureAnalytics:  {profiledomain.PlanTrial, profiledomain.PlanPro},
	FeatureBulkExport: {profiledomain.PlanPro},
	FeatureAPIAccess:  {profiledomain.PlanPro},
}
