package goals

import (
	"context"
	"slices"
	"strings"

	"appraisal/internal/domain/apperror"
	"appraisal/internal/domain/notifications"
)

// AddComment records a comment on a live goal. The employee hears about
// comments others leave on their goals.
func (s *Service) AddComment(ctx context.Context, goalID, content, commentType string, actor Actor) (Comment, error) {
	g, err := s.Get(ctx, goalID)
	if err != nil {
		return Comment{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Comment{}, apperror.Validation("content is required")
	}
	if commentType == "" {
		commentType = CommentUpdate
	}
	if !slices.Contains(CommentTypes, commentType) {
		return Comment{}, apperror.Validation("invalid comment type").With("allowed", CommentTypes)
	}

	c, err := s.store.CreateComment(ctx, Comment{
		GoalID:      g.ID,
		AuthorID:    actor.ID,
		Content:     content,
		CommentType: commentType,
	})
	if err != nil {
		return Comment{}, err
	}
	if actor.ID != g.EmployeeID {
		s.emit(ctx, notifications.Event{
			RecipientID:  g.EmployeeID,
			Event:        notifications.EventGoalCommented,
			ResourceType: notifications.ResourceGoal,
			ResourceID:   g.ID,
			ActorID:      actor.ID,
			Body:         "New " + commentType + " on goal \"" + g.Title + "\".",
		})
	}
	return c, nil
}

// Comments lists a goal's comments oldest first.
func (s *Service) Comments(ctx context.Context, goalID string) ([]Comment, error) {
	if _, err := s.Get(ctx, goalID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, goalID)
}

// Stats counts an employee's live goals by progress status.
func (s *Service) Stats(ctx context.Context, employeeID string) (Stats, error) {
	counts, err := s.store.CountByStatus(ctx, employeeID)
	if err != nil {
		return Stats{}, err
	}
	out := Stats{EmployeeID: employeeID, ByStatus: map[string]int{}}
	for _, status := range Statuses {
		out.ByStatus[status] = counts[status]
		out.Total += counts[status]
	}
	out.Completed = out.ByStatus[StatusCompleted]
	return out, nil
}
