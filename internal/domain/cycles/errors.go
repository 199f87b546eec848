package cycles

import (
	"errors"

	"appraisal/internal/domain/apperror"
)

var (
	ErrCycleNotFound = errors.New("cycle not found")

	errNotFound = apperror.NotFound("appraisal cycle not found")
)

func conflictWithActive(target, active Cycle) error {
	return apperror.StateConflict("another cycle is already active", target.Status, StatusDraft, StatusActive).
		With("conflictingCycleId", active.ID).
		With("conflictingCycleName", active.Name)
}

func statusConflict(message string, c Cycle, allowed ...string) error {
	return apperror.StateConflict(message, c.Status, allowed...).With("cycleId", c.ID)
}
