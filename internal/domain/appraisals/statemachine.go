package appraisals

import (
	"slices"

	"appraisal/internal/domain/eligibility"
)

func CanTransition(from, to string) bool {
	return slices.Contains(Transitions[from], to)
}

// Recompute derives the appraisal status from its goals and submission
// flags. The step function is applied until it stops moving, so feeding the
// result back in with the same goals is a no-op. Appraisals waiting on HR
// review stay where they are.
func Recompute(a Appraisal, goals []GoalSnapshot) Appraisal {
	if a.EligibilityStatus == eligibility.StatusPendingHRReview {
		return a
	}
	for range len(Statuses) {
		next := step(a, goals)
		if next == a.Status || !CanTransition(a.Status, next) {
			break
		}
		a.Status = next
	}
	return a
}

func step(a Appraisal, goals []GoalSnapshot) string {
	switch a.Status {
	case StatusNotStarted, StatusGoalsPending:
		if len(goals) == 0 {
			return StatusNotStarted
		}
		for _, g := range goals {
			if g.ApprovalStatus != goalApproved {
				return StatusGoalsPending
			}
		}
		return StatusGoalsApproved
	case StatusSelfAssessment:
		if a.SelfSubmitted {
			return StatusManagerReview
		}
	case StatusManagerReview:
		if a.ManagerSubmitted {
			return StatusCompleted
		}
	}
	return a.Status
}
