package eligibility

const (
	StatusEligible              = "eligible"
	StatusDeferred              = "deferred"
	StatusPendingHRReview       = "pending_hr_review"
	StatusNotEligibleMinService = "not_eligible_min_service"
	StatusNotEligibleProbation  = "not_eligible_probation"
	StatusNotEligibleProrataOff = "not_eligible_prorata_disabled"

	PolicyAutoInclude    = "auto_include"
	PolicyManualHRReview = "manual_hr_review"
	PolicyAlwaysDefer    = "always_defer"

	EmploymentTypeProbation = "probation"

	PolicyUnknown                 = "unknown"
	PolicyFeedbackOnly            = "feedback_only"
	PolicyEligibleHikeShortTenure = "eligible_hike_short_tenure"
	PolicyProRatedHike            = "pro_rated_hike"
	PolicyFullHike                = "full_hike"

	RuleAll                 = "all"
	RuleFullHikeOnly        = "full_hike_only"
	RuleEligibleForHike     = "eligible_for_hike"
	RuleProbationOrFeedback = "probation_or_feedback"
	RuleAuto                = "auto"
)

var NewJoinerPolicies = []string{PolicyAutoInclude, PolicyManualHRReview, PolicyAlwaysDefer}

var RewardRules = []string{RuleAll, RuleFullHikeOnly, RuleEligibleForHike, RuleProbationOrFeedback, RuleAuto}
