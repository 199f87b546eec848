package shared

import (
	"context"
	"errors"

	"appraisal/internal/domain/apperror"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/directory"
)

// CanActFor reports whether user may act on employeeID's records: HR always,
// the employee themself, or anyone in the employee's manager chain.
func CanActFor(ctx context.Context, dir directory.Directory, user auth.UserContext, employeeID string) (bool, error) {
	if user.IsHR() || user.UserID == employeeID {
		return true, nil
	}
	if dir == nil {
		return false, nil
	}
	ok, err := directory.IsInManagerChain(ctx, dir, employeeID, user.UserID)
	if errors.Is(err, directory.ErrEmployeeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperror.Upstream("employee directory unavailable", err)
	}
	return ok, nil
}
