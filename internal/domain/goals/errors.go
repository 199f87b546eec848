package goals

import (
	"errors"

	"appraisal/internal/domain/apperror"
)

var (
	ErrGoalNotFound      = errors.New("goal not found")
	ErrStaleTransition   = errors.New("goal approval status changed concurrently")
	ErrKeyResultNotFound = errors.New("key result not found")
)

func notFound(id string) error {
	return apperror.NotFound("goal not found").With("goalId", id)
}

func transitionConflict(message string, g Goal, allowed ...string) error {
	return apperror.StateConflict(message, g.ApprovalStatus, allowed...).With("goalId", g.ID)
}
