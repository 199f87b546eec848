package appraisals

import (
	"context"
	"errors"
	"log/slog"

	"appraisal/internal/domain/apperror"
	"appraisal/internal/platform/metrics"
)

const resyncAttempts = 3

// Resync recomputes the appraisal status from its goals and persists it
// when it changed. With nil goals the current set is fetched from the goal
// source.
func (s *Service) Resync(ctx context.Context, id string, goals []GoalSnapshot) (Appraisal, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Appraisal{}, err
	}
	if goals == nil {
		if s.Goals == nil {
			return Appraisal{}, apperror.Upstream("goal source not configured", nil)
		}
		goals, err = s.Goals.GoalsFor(ctx, a.EmployeeID, a.CycleID)
		if err != nil {
			return Appraisal{}, apperror.Upstream("goal source unavailable", err)
		}
	}

	for attempt := 1; ; attempt++ {
		next := Recompute(a, goals)
		if next.Status == a.Status {
			return a, nil
		}
		err := s.store.UpdateAppraisal(ctx, next, a.Status)
		if err == nil {
			metrics.RecordAppraisalTransition(next.Status)
			slog.Info("appraisal status recomputed", "appraisalId", a.ID, "from", a.Status, "to", next.Status)
			return s.Get(ctx, id)
		}
		if !errors.Is(err, ErrStaleAppraisal) || attempt == resyncAttempts {
			return Appraisal{}, s.staleOr(err, a)
		}
		if a, err = s.Get(ctx, id); err != nil {
			return Appraisal{}, err
		}
	}
}

// SyncEmployeeCycle resyncs the appraisal for an employee and cycle, if
// there is one.
func (s *Service) SyncEmployeeCycle(ctx context.Context, employeeID, cycleID string) error {
	a, err := s.store.FindByEmployeeCycle(ctx, employeeID, cycleID)
	if errors.Is(err, ErrAppraisalNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.Resync(ctx, a.ID, nil)
	return err
}
