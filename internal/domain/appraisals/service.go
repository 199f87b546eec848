package appraisals

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"appraisal/internal/domain/apperror"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/cycles"
	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/eligibility"
	"appraisal/internal/platform/metrics"
)

type CycleSource interface {
	Get(ctx context.Context, id string) (cycles.Cycle, error)
	Active(ctx context.Context) (cycles.Cycle, error)
}

// GoalSource returns the goals an employee holds for a cycle.
type GoalSource interface {
	GoalsFor(ctx context.Context, employeeID, cycleID string) ([]GoalSnapshot, error)
}

type Service struct {
	store     StoreAPI
	Cycles    CycleSource
	Directory directory.Directory
	Goals     GoalSource
	Now       func() time.Time
}

func NewService(store StoreAPI, cycleSource CycleSource, dir directory.Directory, goals GoalSource) *Service {
	return &Service{store: store, Cycles: cycleSource, Directory: dir, Goals: goals, Now: time.Now}
}

func (s *Service) today() time.Time {
	y, m, d := s.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) Get(ctx context.Context, id string) (Appraisal, error) {
	a, err := s.store.GetAppraisal(ctx, id)
	if errors.Is(err, ErrAppraisalNotFound) {
		return Appraisal{}, notFound(id)
	}
	return a, err
}

// CanView reports whether the actor may read the appraisal: its employee,
// anyone in the employee's manager chain, or HR.
func (s *Service) CanView(ctx context.Context, a Appraisal, actor Actor) (bool, error) {
	if actor.Role == auth.RoleHR || actor.ID == a.EmployeeID || actor.ID == a.ManagerID {
		return true, nil
	}
	ok, err := directory.IsInManagerChain(ctx, s.Directory, a.EmployeeID, actor.ID)
	if err != nil {
		return false, apperror.Upstream("employee directory unavailable", err)
	}
	return ok, nil
}

func (s *Service) List(ctx context.Context, actor Actor, filter ListFilter) ([]Appraisal, error) {
	if filter.Status != "" && !slices.Contains(Statuses, filter.Status) {
		return nil, apperror.Validation("invalid status filter").With("allowed", Statuses)
	}
	switch filter.Scope {
	case "", ScopeMine:
		filter.EmployeeID = actor.ID
	case ScopeTeam:
		filter.ManagerID = actor.ID
	case ScopeAll:
		if actor.Role != auth.RoleHR {
			return nil, apperror.Forbidden("only HR can list all appraisals")
		}
	default:
		return nil, apperror.Validation("invalid scope").With("allowed", []string{ScopeMine, ScopeTeam, ScopeAll})
	}
	return s.store.ListAppraisals(ctx, filter)
}

// Ensure returns the employee's appraisal for the active cycle, creating it
// when the employee is eligible.
func (s *Service) Ensure(ctx context.Context, employeeID string) (Appraisal, error) {
	c, err := s.Cycles.Active(ctx)
	if err != nil {
		return Appraisal{}, err
	}
	a, err := s.store.FindByEmployeeCycle(ctx, employeeID, c.ID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, ErrAppraisalNotFound) {
		return Appraisal{}, err
	}

	emp, err := s.Directory.Lookup(ctx, employeeID)
	if errors.Is(err, directory.ErrEmployeeNotFound) {
		return Appraisal{}, apperror.NotFound("employee not found").With("employeeId", employeeID)
	}
	if err != nil {
		return Appraisal{}, apperror.Upstream("employee directory unavailable", err)
	}
	verdict := eligibility.Evaluate(emp.TenureFacts(), c.EligibilityConfig())
	if !verdict.IsEligible {
		return Appraisal{}, apperror.Forbidden("employee is not eligible for this cycle").
			With("eligibilityStatus", verdict.Status).
			With("reason", verdict.Reason)
	}

	id, created, err := s.store.InsertAppraisal(ctx, newAppraisal(c, emp, verdict))
	if err != nil {
		return Appraisal{}, err
	}
	if !created {
		// lost a race with another request creating the same row
		return s.store.FindByEmployeeCycle(ctx, employeeID, c.ID)
	}
	metrics.RecordAppraisalProvisioned()
	return s.Resync(ctx, id, nil)
}

// ExistingEmployeeIDs lists employees that already hold an appraisal for
// the cycle.
func (s *Service) ExistingEmployeeIDs(ctx context.Context, cycleID string) (map[string]bool, error) {
	return s.store.ExistingEmployeeIDs(ctx, cycleID)
}

// StatusCounts counts a cycle's appraisals per workflow status, listing
// every status even when none hold it.
func (s *Service) StatusCounts(ctx context.Context, cycleID string) (map[string]int, error) {
	counts, err := s.store.CountByStatus(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(Statuses))
	for _, status := range Statuses {
		out[status] = counts[status]
	}
	return out, nil
}

// Provision inserts the appraisal if absent and reports whether it was
// created. A fresh eligible appraisal is synced against goals already
// filed for the cycle.
func (s *Service) Provision(ctx context.Context, c cycles.Cycle, emp directory.Employee, verdict eligibility.Result) (bool, error) {
	id, created, err := s.store.InsertAppraisal(ctx, newAppraisal(c, emp, verdict))
	if err != nil || !created {
		return created, err
	}
	if verdict.IsEligible && s.Goals != nil {
		if _, err := s.Resync(ctx, id, nil); err != nil {
			slog.Warn("initial appraisal sync failed", "err", err, "appraisalId", id)
		}
	}
	return true, nil
}

func newAppraisal(c cycles.Cycle, emp directory.Employee, verdict eligibility.Result) Appraisal {
	return Appraisal{
		CycleID:           c.ID,
		EmployeeID:        emp.ID,
		ManagerID:         emp.ManagerID,
		EligibilityStatus: verdict.Status,
		EligibilityReason: verdict.Reason,
		IsProrated:        verdict.IsProrated,
		Status:            StatusNotStarted,
	}
}

// ResolveHRReview settles a placeholder created for an employee awaiting
// HR review. Approval makes it a regular appraisal, rejection removes it.
func (s *Service) ResolveHRReview(ctx context.Context, id string, approve bool, actor Actor) (*Appraisal, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.EligibilityStatus != eligibility.StatusPendingHRReview {
		return nil, apperror.StateConflict("appraisal is not awaiting HR review", a.EligibilityStatus, eligibility.StatusPendingHRReview).
			With("appraisalId", a.ID)
	}

	if !approve {
		if err := s.store.DeleteAppraisal(ctx, id); err != nil {
			if errors.Is(err, ErrAppraisalNotFound) {
				return nil, notFound(id)
			}
			return nil, err
		}
		slog.Info("hr review placeholder rejected", "appraisalId", id, "actorId", actor.ID)
		return nil, nil
	}

	next := a
	next.EligibilityStatus = eligibility.StatusEligible
	next.EligibilityReason = "approved by HR review"
	if err := s.store.UpdateAppraisal(ctx, next, a.Status); err != nil {
		return nil, s.staleOr(err, a)
	}
	slog.Info("hr review placeholder approved", "appraisalId", id, "actorId", actor.ID)
	out, err := s.Resync(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// save writes next when the stored status still equals current.Status.
func (s *Service) save(ctx context.Context, current, next Appraisal) (Appraisal, error) {
	if err := s.store.UpdateAppraisal(ctx, next, current.Status); err != nil {
		return Appraisal{}, s.staleOr(err, current)
	}
	if next.Status != current.Status {
		metrics.RecordAppraisalTransition(next.Status)
		slog.Info("appraisal status changed", "appraisalId", next.ID, "from", current.Status, "to", next.Status)
	}
	return s.Get(ctx, next.ID)
}

func (s *Service) staleOr(err error, a Appraisal) error {
	if errors.Is(err, ErrStaleAppraisal) {
		return statusConflict("appraisal changed concurrently", a, a.Status)
	}
	return err
}
