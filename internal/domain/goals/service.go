package goals

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"appraisal/internal/domain/apperror"
	"appraisal/internal/domain/cycles"
	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/notifications"
	"appraisal/internal/platform/metrics"
)

// Syncer is told after every change that may affect an employee's
// appraisal for a cycle.
type Syncer interface {
	SyncEmployeeCycle(ctx context.Context, employeeID, cycleID string) error
}

type CycleLookup interface {
	Get(ctx context.Context, id string) (cycles.Cycle, error)
	Active(ctx context.Context) (cycles.Cycle, error)
}

type Notifier interface {
	Emit(ctx context.Context, ev notifications.Event)
}

type Service struct {
	store  StoreAPI
	Cycles CycleLookup
	Notify Notifier
	Sync   Syncer
	// Directory resolves management lines for approval decisions and
	// submission notices. Without it only HR and the assignee can decide.
	Directory directory.Directory
	Now       func() time.Time
}

func NewService(store StoreAPI, cycleLookup CycleLookup, notify Notifier) *Service {
	return &Service{store: store, Cycles: cycleLookup, Notify: notify, Now: time.Now}
}

func (s *Service) today() time.Time {
	y, m, d := s.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Create stores a new draft goal. Without an explicit cycle the goal is
// attached to the active cycle when there is one.
func (s *Service) Create(ctx context.Context, in CreateInput, actor Actor) (Goal, error) {
	if strings.TrimSpace(in.EmployeeID) == "" {
		return Goal{}, apperror.Validation("employeeId is required")
	}
	content, err := normalizeContent(in.Content)
	if err != nil {
		return Goal{}, err
	}
	if in.Progress < 0 || in.Progress > 100 {
		return Goal{}, apperror.Validation("progress must be between 0 and 100")
	}

	cycleID := in.CycleID
	if cycleID != "" {
		if _, err := s.Cycles.Get(ctx, cycleID); err != nil {
			return Goal{}, err
		}
	} else if active, err := s.Cycles.Active(ctx); err == nil {
		cycleID = active.ID
	} else if !apperror.Is(err, apperror.CodeNotFound) {
		return Goal{}, err
	}

	if content.ParentGoalID != "" {
		if err := s.checkParent(ctx, "", content.ParentGoalID); err != nil {
			return Goal{}, err
		}
	}

	return s.store.CreateGoal(ctx, Goal{
		EmployeeID:     in.EmployeeID,
		CreatedBy:      actor.ID,
		CycleID:        cycleID,
		ParentGoalID:   content.ParentGoalID,
		Title:          content.Title,
		Description:    content.Description,
		Category:       content.Category,
		Priority:       content.Priority,
		Weight:         content.Weight,
		StartDate:      content.StartDate,
		TargetDate:     content.TargetDate,
		Progress:       in.Progress,
		Status:         StatusDraft,
		ApprovalStatus: ApprovalDraft,
		VersionNumber:  1,
	})
}

// Get returns a live goal. Withdrawn goals read as not found.
func (s *Service) Get(ctx context.Context, id string) (Goal, error) {
	g, err := s.Lookup(ctx, id)
	if err != nil {
		return Goal{}, err
	}
	if g.WithdrawnAt != nil {
		return Goal{}, notFound(id)
	}
	return g, nil
}

// Lookup returns the goal whether or not it has been withdrawn, for reading
// its history.
func (s *Service) Lookup(ctx context.Context, id string) (Goal, error) {
	g, err := s.store.GetGoal(ctx, id)
	if errors.Is(err, ErrGoalNotFound) {
		return Goal{}, notFound(id)
	}
	return g, err
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Goal, error) {
	if filter.ApprovalStatus != "" && !slices.Contains(ApprovalStatuses, filter.ApprovalStatus) {
		return nil, apperror.Validation("invalid approval status filter").With("allowed", ApprovalStatuses)
	}
	return s.store.ListGoals(ctx, filter)
}

// UpdateContent edits the snapshotted fields. Only draft and rejected goals
// may change, so each submitted version matches what the approver saw.
func (s *Service) UpdateContent(ctx context.Context, id string, c Content) (Goal, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return Goal{}, err
	}
	if g.ApprovalStatus != ApprovalDraft && g.ApprovalStatus != ApprovalRejected {
		return Goal{}, transitionConflict("goal content is locked while pending or approved", g, ApprovalDraft, ApprovalRejected)
	}
	content, err := normalizeContent(c)
	if err != nil {
		return Goal{}, err
	}
	if content.ParentGoalID != "" && content.ParentGoalID != g.ParentGoalID {
		if err := s.checkParent(ctx, g.ID, content.ParentGoalID); err != nil {
			return Goal{}, err
		}
	}
	if err := s.store.UpdateContent(ctx, id, g.ApprovalStatus, content); err != nil {
		if errors.Is(err, ErrStaleTransition) {
			return Goal{}, transitionConflict("goal changed while editing", g, ApprovalDraft, ApprovalRejected)
		}
		return Goal{}, err
	}
	return s.Get(ctx, id)
}

func (s *Service) UpdateProgress(ctx context.Context, id string, in ProgressInput) (Goal, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return Goal{}, err
	}
	if in.Progress < 0 || in.Progress > 100 {
		return Goal{}, apperror.Validation("progress must be between 0 and 100")
	}
	if in.Status == "" {
		in.Status = g.Status
	}
	if !slices.Contains(Statuses, in.Status) {
		return Goal{}, apperror.Validation("invalid goal status").With("allowed", Statuses)
	}
	if in.Status == StatusCompleted && in.CompletedDate == nil {
		today := s.today()
		in.CompletedDate = &today
	}
	if err := s.store.UpdateProgress(ctx, id, in); err != nil {
		if errors.Is(err, ErrGoalNotFound) {
			return Goal{}, notFound(id)
		}
		return Goal{}, err
	}
	return s.Get(ctx, id)
}

// Delete withdraws a goal that has not been approved and resyncs the
// owning appraisal. The row stays behind so its audit trail and versions
// remain readable.
func (s *Service) Delete(ctx context.Context, id string, actor Actor) error {
	g, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if g.ApprovalStatus == ApprovalApproved {
		return transitionConflict("approved goals cannot be deleted", g, ApprovalDraft, ApprovalPending, ApprovalRejected)
	}
	err = s.store.WithdrawGoal(ctx, id, g.ApprovalStatus, AuditEntry{
		GoalID:        g.ID,
		OldStatus:     g.ApprovalStatus,
		NewStatus:     AuditWithdrawn,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		VersionNumber: g.VersionNumber,
	})
	if errors.Is(err, ErrStaleTransition) {
		return transitionConflict("goal changed concurrently", g, g.ApprovalStatus)
	}
	if err != nil {
		return err
	}
	metrics.RecordGoalTransition(AuditWithdrawn)
	s.sync(ctx, g)
	return nil
}

func (s *Service) AuditTrail(ctx context.Context, goalID string) ([]AuditEntry, error) {
	if _, err := s.Lookup(ctx, goalID); err != nil {
		return nil, err
	}
	return s.store.ListAudit(ctx, goalID)
}

func (s *Service) Versions(ctx context.Context, goalID string) ([]Version, error) {
	if _, err := s.Lookup(ctx, goalID); err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, goalID)
}

// Readiness reports whether every goal an employee holds for a cycle is
// approved.
func (s *Service) Readiness(ctx context.Context, employeeID, cycleID string) (Readiness, error) {
	counts, err := s.store.CountByApprovalStatus(ctx, employeeID, cycleID)
	if err != nil {
		return Readiness{}, err
	}
	out := Readiness{EmployeeID: employeeID, CycleID: cycleID, Counts: map[string]int{}}
	for _, status := range ApprovalStatuses {
		out.Counts[status] = counts[status]
		out.Total += counts[status]
	}
	out.Ready = out.Total > 0 && out.Counts[ApprovalApproved] == out.Total
	return out, nil
}

// ParentChain returns ancestor ids nearest first, stopping after
// MaxParentDepth hops.
func (s *Service) ParentChain(ctx context.Context, goalID string) ([]string, error) {
	g, err := s.Get(ctx, goalID)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{g.ID: true}
	var chain []string
	next := g.ParentGoalID
	for next != "" && len(chain) < MaxParentDepth {
		if seen[next] {
			break
		}
		seen[next] = true
		chain = append(chain, next)
		parent, err := s.store.GetGoal(ctx, next)
		if err != nil {
			if errors.Is(err, ErrGoalNotFound) {
				break
			}
			return chain, err
		}
		next = parent.ParentGoalID
	}
	return chain, nil
}

// checkParent rejects a parent link that would form a loop through goalID
// or produce a chain deeper than MaxParentDepth.
func (s *Service) checkParent(ctx context.Context, goalID, parentID string) error {
	if parentID == goalID {
		return apperror.Validation("a goal cannot be its own parent")
	}
	current := parentID
	for depth := 1; current != ""; depth++ {
		if depth > MaxParentDepth {
			return apperror.Validation("parent goal chain is too deep").With("maxDepth", MaxParentDepth)
		}
		parent, err := s.store.GetGoal(ctx, current)
		if err == nil && parent.WithdrawnAt != nil {
			err = ErrGoalNotFound
		}
		if errors.Is(err, ErrGoalNotFound) {
			if current == parentID {
				return apperror.Validation("parent goal not found").With("parentGoalId", parentID)
			}
			return nil
		}
		if err != nil {
			return err
		}
		if goalID != "" && parent.ParentGoalID == goalID {
			return apperror.Validation("parent goal would create a loop").With("parentGoalId", parentID)
		}
		current = parent.ParentGoalID
	}
	return nil
}

func normalizeContent(c Content) (Content, error) {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return c, apperror.Validation("title is required")
	}
	if c.Category == "" {
		c.Category = DefaultCategory
	}
	if c.Priority == "" {
		c.Priority = DefaultPriority
	}
	if !slices.Contains(Priorities, c.Priority) {
		return c, apperror.Validation("invalid priority").With("allowed", Priorities)
	}
	if c.Weight < 0 || c.Weight > 100 {
		return c, apperror.Validation("weight must be between 0 and 100")
	}
	if c.StartDate != nil && c.TargetDate != nil && c.TargetDate.Before(*c.StartDate) {
		return c, apperror.Validation("target date must not be before start date")
	}
	return c, nil
}

func (s *Service) emit(ctx context.Context, ev notifications.Event) {
	if s.Notify != nil {
		s.Notify.Emit(ctx, ev)
	}
}

func (s *Service) sync(ctx context.Context, g Goal) {
	if s.Sync == nil || g.CycleID == "" {
		return
	}
	if err := s.Sync.SyncEmployeeCycle(ctx, g.EmployeeID, g.CycleID); err != nil {
		slog.Warn("appraisal sync failed", "err", err, "goalId", g.ID, "employeeId", g.EmployeeID, "cycleId", g.CycleID)
	}
}
