package appraisals

const (
	StatusNotStarted     = "not_started"
	StatusGoalsPending   = "goals_pending_approval"
	StatusGoalsApproved  = "goals_approved"
	StatusSelfAssessment = "self_assessment_in_progress"
	StatusManagerReview  = "manager_review"
	StatusCompleted      = "completed"

	ScopeMine = "mine"
	ScopeTeam = "team"
	ScopeAll  = "all"

	MinRating = 1
	MaxRating = 5

	// goal approval status that counts toward readiness
	goalApproved = "approved"
)

var Statuses = []string{
	StatusNotStarted,
	StatusGoalsPending,
	StatusGoalsApproved,
	StatusSelfAssessment,
	StatusManagerReview,
	StatusCompleted,
}

// Transitions lists every legal status edge. goals_pending_approval back to
// not_started is the only backward edge.
var Transitions = map[string][]string{
	StatusNotStarted:     {StatusGoalsPending, StatusGoalsApproved},
	StatusGoalsPending:   {StatusGoalsApproved, StatusNotStarted},
	StatusGoalsApproved:  {StatusSelfAssessment},
	StatusSelfAssessment: {StatusManagerReview},
	StatusManagerReview:  {StatusCompleted},
	StatusCompleted:      {},
}

var selfAssessmentStatuses = []string{StatusGoalsApproved, StatusSelfAssessment}
