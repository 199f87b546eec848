package notifications

const (
	EventCycleStarted        = "cycle_started"
	EventGoalAssignedPending = "goal_assigned_pending"
	EventGoalApproved        = "goal_approved"
	EventGoalRejected        = "goal_rejected"
	EventGoalCommented       = "goal_commented"

	ResourceCycle     = "appraisal_cycle"
	ResourceGoal      = "goal"
	ResourceAppraisal = "appraisal"
)

var eventTitles = map[string]string{
	EventCycleStarted:        "Appraisal cycle started",
	EventGoalAssignedPending: "Goal awaiting approval",
	EventGoalApproved:        "Goal approved",
	EventGoalRejected:        "Goal rejected",
	EventGoalCommented:       "New comment on goal",
}
