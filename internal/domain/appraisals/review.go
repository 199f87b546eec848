package appraisals

import (
	"context"
	"slices"
	"strings"
	"time"

	"appraisal/internal/domain/apperror"
)

// SelfSave stores a draft self-assessment. The first save moves an
// appraisal with approved goals into self_assessment_in_progress.
func (s *Service) SelfSave(ctx context.Context, id string, actor Actor, in SelfInput) (Appraisal, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Appraisal{}, err
	}
	if actor.ID != a.EmployeeID {
		return Appraisal{}, apperror.Forbidden("only the appraised employee can edit the self-assessment")
	}
	if !slices.Contains(selfAssessmentStatuses, a.Status) {
		return Appraisal{}, statusConflict("self-assessment is not open", a, selfAssessmentStatuses...)
	}
	if err := validateDraftRatings(in.GoalRatings); err != nil {
		return Appraisal{}, err
	}

	next := a
	if in.GoalRatings != nil {
		next.GoalRatings = in.GoalRatings
	}
	if in.Answers != nil {
		next.SelfAssessment = in.Answers
	}
	if next.Status == StatusGoalsApproved {
		next.Status = StatusSelfAssessment
	}
	return s.save(ctx, a, next)
}

// SelfSubmit finalises the self-assessment and hands the appraisal to the
// manager.
func (s *Service) SelfSubmit(ctx context.Context, id string, actor Actor, in SelfInput) (Appraisal, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Appraisal{}, err
	}
	if actor.ID != a.EmployeeID {
		return Appraisal{}, apperror.Forbidden("only the appraised employee can submit the self-assessment")
	}
	if !slices.Contains(selfAssessmentStatuses, a.Status) {
		return Appraisal{}, statusConflict("self-assessment cannot be submitted", a, selfAssessmentStatuses...)
	}
	c, err := s.Cycles.Get(ctx, a.CycleID)
	if err != nil {
		return Appraisal{}, err
	}
	if err := s.checkDeadline(c.SelfAssessmentDeadline, "self-assessment deadline has passed"); err != nil {
		return Appraisal{}, err
	}

	ratings := in.GoalRatings
	if len(ratings) == 0 {
		ratings = a.GoalRatings
	}
	if len(ratings) == 0 {
		return Appraisal{}, apperror.Validation("goal ratings are required")
	}
	if err := validateRatings(ratings); err != nil {
		return Appraisal{}, err
	}

	next := a
	next.GoalRatings = ratings
	if in.Answers != nil {
		next.SelfAssessment = in.Answers
	}
	for _, to := range []string{StatusSelfAssessment, StatusManagerReview} {
		if next.Status == to {
			continue
		}
		if !CanTransition(next.Status, to) {
			return Appraisal{}, statusConflict("self-assessment cannot be submitted", a, selfAssessmentStatuses...)
		}
		next.Status = to
	}
	now := s.Now().UTC()
	next.SelfSubmitted = true
	next.SelfSubmittedAt = &now
	return s.save(ctx, a, next)
}

// ManagerSubmit records the manager's review and completes the appraisal.
func (s *Service) ManagerSubmit(ctx context.Context, id string, actor Actor, in ManagerInput) (Appraisal, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Appraisal{}, err
	}
	if a.ManagerID == "" || actor.ID != a.ManagerID {
		return Appraisal{}, apperror.Forbidden("only the assigned manager can submit the review")
	}
	if a.Status != StatusManagerReview {
		return Appraisal{}, statusConflict("manager review cannot be submitted", a, StatusManagerReview)
	}
	c, err := s.Cycles.Get(ctx, a.CycleID)
	if err != nil {
		return Appraisal{}, err
	}
	if err := s.checkDeadline(c.ManagerReviewDeadline, "manager review deadline has passed"); err != nil {
		return Appraisal{}, err
	}
	if in.OverallRating != nil && (*in.OverallRating < MinRating || *in.OverallRating > MaxRating) {
		return Appraisal{}, apperror.Validation("overall rating must be between 1 and 5").With("overallRating", *in.OverallRating)
	}
	if err := validateRatings(in.GoalRatings); err != nil {
		return Appraisal{}, err
	}

	next := a
	if in.GoalRatings != nil {
		next.ManagerGoalRatings = in.GoalRatings
	}
	if in.Assessment != nil {
		next.ManagerAssessment = in.Assessment
	}
	if in.OverallRating != nil {
		next.OverallRating = in.OverallRating
	}
	if in.MeetingDate != nil {
		next.MeetingDate = in.MeetingDate
	}
	if notes := strings.TrimSpace(in.MeetingNotes); notes != "" {
		next.MeetingNotes = notes
	}
	now := s.Now().UTC()
	next.ManagerSubmitted = true
	next.ManagerSubmittedAt = &now
	next.Status = StatusCompleted
	return s.save(ctx, a, next)
}

func (s *Service) LogMeeting(ctx context.Context, id string, actor Actor, date *time.Time, notes string) (Appraisal, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Appraisal{}, err
	}
	if a.ManagerID == "" || actor.ID != a.ManagerID {
		return Appraisal{}, apperror.Forbidden("only the assigned manager can log the review meeting")
	}
	if a.Status != StatusManagerReview && a.Status != StatusCompleted {
		return Appraisal{}, statusConflict("review meeting cannot be logged yet", a, StatusManagerReview, StatusCompleted)
	}
	if date == nil {
		return Appraisal{}, apperror.Validation("meeting date is required")
	}

	next := a
	next.MeetingDate = date
	next.MeetingNotes = strings.TrimSpace(notes)
	return s.save(ctx, a, next)
}

// Acknowledge lets the employee sign off a completed appraisal. Repeating
// it keeps the first acknowledgement date.
func (s *Service) Acknowledge(ctx context.Context, id string, actor Actor, comments string) (Appraisal, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Appraisal{}, err
	}
	if actor.ID != a.EmployeeID {
		return Appraisal{}, apperror.Forbidden("only the appraised employee can acknowledge the review")
	}
	if a.Status != StatusCompleted {
		return Appraisal{}, statusConflict("only completed appraisals can be acknowledged", a, StatusCompleted)
	}

	next := a
	next.Acknowledged = true
	next.AcknowledgementComments = strings.TrimSpace(comments)
	if next.AcknowledgedAt == nil {
		today := s.today()
		next.AcknowledgedAt = &today
	}
	return s.save(ctx, a, next)
}

func (s *Service) checkDeadline(deadline *time.Time, message string) error {
	if deadline == nil {
		return nil
	}
	if s.today().After(*deadline) {
		return apperror.DeadlinePassed(message, *deadline)
	}
	return nil
}

func validateRatings(ratings map[string]GoalRating) error {
	for goalID, r := range ratings {
		if r.Rating < MinRating || r.Rating > MaxRating {
			return apperror.Validation("rating must be between 1 and 5").With("goalId", goalID)
		}
		if err := validateProgress(goalID, r); err != nil {
			return err
		}
	}
	return nil
}

// validateDraftRatings accepts an unrated entry (rating 0) so a draft can
// carry progress and comments before the employee settles on a rating.
func validateDraftRatings(ratings map[string]GoalRating) error {
	for goalID, r := range ratings {
		if r.Rating != 0 && (r.Rating < MinRating || r.Rating > MaxRating) {
			return apperror.Validation("rating must be between 1 and 5").With("goalId", goalID)
		}
		if err := validateProgress(goalID, r); err != nil {
			return err
		}
	}
	return nil
}

func validateProgress(goalID string, r GoalRating) error {
	if r.Progress != nil && (*r.Progress < 0 || *r.Progress > 100) {
		return apperror.Validation("progress must be between 0 and 100").With("goalId", goalID)
	}
	return nil
}
