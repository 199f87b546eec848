package appraisals

import (
	"errors"

	"appraisal/internal/domain/apperror"
)

var (
	ErrAppraisalNotFound = errors.New("appraisal not found")
	// ErrStaleAppraisal means the row no longer has the status the update
	// expected.
	ErrStaleAppraisal = errors.New("appraisal status changed concurrently")
)

func notFound(id string) error {
	return apperror.NotFound("appraisal not found").With("appraisalId", id)
}

func statusConflict(message string, a Appraisal, allowed ...string) error {
	return apperror.StateConflict(message, a.Status, allowed...).With("appraisalId", a.ID)
}
