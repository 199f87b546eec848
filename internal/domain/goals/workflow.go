package goals

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"appraisal/internal/domain/apperror"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/directory"
	"appraisal/internal/domain/notifications"
	"appraisal/internal/platform/metrics"
)

// Submit sends a draft or rejected goal for approval. The content is
// snapshotted under the version being submitted: the first submission keeps
// version 1, every resubmission after a rejection takes the next number.
func (s *Service) Submit(ctx context.Context, id string, actor Actor) (Goal, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return Goal{}, err
	}
	if g.ApprovalStatus != ApprovalDraft && g.ApprovalStatus != ApprovalRejected {
		return Goal{}, transitionConflict("goal cannot be submitted", g, ApprovalDraft, ApprovalRejected)
	}

	next := g
	if g.ApprovalStatus == ApprovalRejected {
		next.VersionNumber = g.VersionNumber + 1
	}
	next.ApprovalStatus = ApprovalPending
	next.SubmittedBy = actor.ID
	next.RejectionReason = ""
	next.ApprovedBy = ""
	next.ApprovedDate = nil

	updated, err := s.apply(ctx, g, next, actor, "", &Version{
		GoalID:        g.ID,
		VersionNumber: next.VersionNumber,
		Title:         g.Title,
		Description:   g.Description,
		Category:      g.Category,
		Priority:      g.Priority,
		Weight:        g.Weight,
		StartDate:     g.StartDate,
		TargetDate:    g.TargetDate,
		CreatedBy:     actor.ID,
	})
	if err != nil {
		return Goal{}, err
	}

	if recipient := s.counterpart(ctx, updated, actor); recipient != "" {
		s.emit(ctx, notifications.Event{
			RecipientID:  recipient,
			Event:        notifications.EventGoalAssignedPending,
			ResourceType: notifications.ResourceGoal,
			ResourceID:   updated.ID,
			ActorID:      actor.ID,
			Body:         "Goal \"" + updated.Title + "\" is awaiting approval.",
		})
	}
	s.sync(ctx, updated)
	return updated, nil
}

// counterpart picks who hears about a submission: the employee when someone
// else submitted, otherwise the employee's direct manager.
func (s *Service) counterpart(ctx context.Context, g Goal, actor Actor) string {
	if actor.ID != g.EmployeeID {
		return g.EmployeeID
	}
	if s.Directory == nil {
		return ""
	}
	emp, err := s.Directory.Lookup(ctx, g.EmployeeID)
	if err != nil {
		slog.Warn("submission notice skipped", "err", err, "goalId", g.ID, "employeeId", g.EmployeeID)
		return ""
	}
	return emp.ManagerID
}

// authorizeDecision settles who may approve or reject a pending goal. The
// submitter never decides on their own submission. The employee decides on
// goals someone else wrote for them, while goals the employee wrote go to
// HR or the employee's management line.
func (s *Service) authorizeDecision(ctx context.Context, g Goal, actor Actor) error {
	if g.SubmittedBy != "" && actor.ID == g.SubmittedBy {
		return apperror.Forbidden("the submitter cannot decide on their own submission").With("goalId", g.ID)
	}
	if actor.ID == g.EmployeeID {
		if g.CreatedBy != g.EmployeeID {
			return nil
		}
		return apperror.Forbidden("goals an employee wrote are decided by their managers or HR").With("goalId", g.ID)
	}
	if actor.Role == auth.RoleHR {
		return nil
	}
	if s.Directory == nil {
		return apperror.Forbidden("only the employee's managers or HR may decide on this goal").With("goalId", g.ID)
	}
	above, err := directory.IsInManagerChain(ctx, s.Directory, g.EmployeeID, actor.ID)
	if err != nil && !errors.Is(err, directory.ErrEmployeeNotFound) {
		return apperror.Upstream("employee directory unavailable", err)
	}
	if !above {
		return apperror.Forbidden("only the employee's managers or HR may decide on this goal").With("goalId", g.ID)
	}
	return nil
}

func (s *Service) Approve(ctx context.Context, id string, actor Actor) (Goal, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return Goal{}, err
	}
	if g.ApprovalStatus != ApprovalPending {
		return Goal{}, transitionConflict("goal is not pending approval", g, ApprovalPending)
	}
	if err := s.authorizeDecision(ctx, g, actor); err != nil {
		return Goal{}, err
	}

	today := s.today()
	next := g
	next.ApprovalStatus = ApprovalApproved
	next.ApprovedBy = actor.ID
	next.ApprovedDate = &today

	updated, err := s.apply(ctx, g, next, actor, "", nil)
	if err != nil {
		return Goal{}, err
	}
	if updated.CreatedBy != actor.ID {
		s.emit(ctx, notifications.Event{
			RecipientID:  updated.CreatedBy,
			Event:        notifications.EventGoalApproved,
			ResourceType: notifications.ResourceGoal,
			ResourceID:   updated.ID,
			ActorID:      actor.ID,
			Body:         "Goal \"" + updated.Title + "\" was approved.",
		})
	}
	s.sync(ctx, updated)
	return updated, nil
}

func (s *Service) Reject(ctx context.Context, id, reason string, actor Actor) (Goal, error) {
	reason = strings.TrimSpace(reason)
	g, err := s.Get(ctx, id)
	if err != nil {
		return Goal{}, err
	}
	if g.ApprovalStatus != ApprovalPending {
		return Goal{}, transitionConflict("goal is not pending approval", g, ApprovalPending)
	}
	if reason == "" {
		return Goal{}, apperror.Validation("a rejection reason is required")
	}
	if err := s.authorizeDecision(ctx, g, actor); err != nil {
		return Goal{}, err
	}

	next := g
	next.ApprovalStatus = ApprovalRejected
	next.RejectionReason = reason
	next.ApprovedBy = ""
	next.ApprovedDate = nil

	updated, err := s.apply(ctx, g, next, actor, reason, nil)
	if err != nil {
		return Goal{}, err
	}
	if updated.CreatedBy != actor.ID {
		s.emit(ctx, notifications.Event{
			RecipientID:  updated.CreatedBy,
			Event:        notifications.EventGoalRejected,
			ResourceType: notifications.ResourceGoal,
			ResourceID:   updated.ID,
			ActorID:      actor.ID,
			Body:         "Goal \"" + updated.Title + "\" was rejected: " + reason,
		})
	}
	s.sync(ctx, updated)
	return updated, nil
}

func (s *Service) apply(ctx context.Context, current, next Goal, actor Actor, comment string, snapshot *Version) (Goal, error) {
	updated, err := s.store.ApplyTransition(ctx, Transition{
		Goal:     next,
		From:     current.ApprovalStatus,
		Snapshot: snapshot,
		Audit: AuditEntry{
			GoalID:        current.ID,
			OldStatus:     current.ApprovalStatus,
			NewStatus:     next.ApprovalStatus,
			ActorID:       actor.ID,
			ActorRole:     actor.Role,
			VersionNumber: next.VersionNumber,
			Comment:       comment,
		},
	})
	if errors.Is(err, ErrStaleTransition) {
		return Goal{}, transitionConflict("goal changed concurrently", current, current.ApprovalStatus)
	}
	if err != nil {
		return Goal{}, err
	}
	metrics.RecordGoalTransition(next.ApprovalStatus)
	return updated, nil
}
