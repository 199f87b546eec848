package cycles

import (
	"context"
	"slices"
	"strings"

	"appraisal/internal/domain/apperror"
)

// StatusCounter reports how many of a cycle's appraisals sit in each status.
type StatusCounter interface {
	StatusCounts(ctx context.Context, cycleID string) (map[string]int, error)
}

// AddQuestions appends questions to a cycle that is still open. Questions
// without an explicit order follow the ones already on the cycle.
func (s *Service) AddQuestions(ctx context.Context, cycleID string, in []QuestionInput) ([]Question, error) {
	c, err := s.Get(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusDraft && c.Status != StatusActive {
		return nil, statusConflict("questions can only be added to open cycles", c, StatusDraft, StatusActive)
	}
	if len(in) == 0 {
		return nil, apperror.Validation("at least one question is required")
	}
	existing, err := s.store.ListQuestions(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	next := 0
	for _, q := range existing {
		next = max(next, q.Order+1)
	}

	qs := make([]Question, 0, len(in))
	for i, item := range in {
		q, invalid := newQuestion(item)
		if invalid != nil {
			return nil, invalid.With("index", i)
		}
		if item.Order == nil {
			q.Order = next
		}
		next = max(next, q.Order+1)
		qs = append(qs, q)
	}
	return s.store.AddQuestions(ctx, cycleID, qs)
}

func newQuestion(in QuestionInput) (Question, *apperror.Error) {
	q := Question{
		Text:       strings.TrimSpace(in.Text),
		Type:       in.Type,
		Category:   strings.TrimSpace(in.Category),
		Required:   true,
		ForSelf:    true,
		ForManager: true,
	}
	if q.Text == "" {
		return Question{}, apperror.Validation("question text is required")
	}
	if q.Type == "" {
		q.Type = QuestionText
	}
	if !slices.Contains(QuestionTypes, q.Type) {
		return Question{}, apperror.Validation("invalid question type").With("allowed", QuestionTypes)
	}
	if in.Order != nil {
		if *in.Order < 0 {
			return Question{}, apperror.Validation("sort order must not be negative")
		}
		q.Order = *in.Order
	}
	if in.Required != nil {
		q.Required = *in.Required
	}
	if in.ForSelf != nil {
		q.ForSelf = *in.ForSelf
	}
	if in.ForManager != nil {
		q.ForManager = *in.ForManager
	}
	if !q.ForSelf && !q.ForManager {
		return Question{}, apperror.Validation("question must be asked of the employee or the manager")
	}
	return q, nil
}

func (s *Service) Questions(ctx context.Context, cycleID string) ([]Question, error) {
	if _, err := s.Get(ctx, cycleID); err != nil {
		return nil, err
	}
	return s.store.ListQuestions(ctx, cycleID)
}

// Summary counts the cycle's appraisals by status, listing every status.
func (s *Service) Summary(ctx context.Context, cycleID string) (Summary, error) {
	c, err := s.Get(ctx, cycleID)
	if err != nil {
		return Summary{}, err
	}
	if s.Appraisals == nil {
		return Summary{}, apperror.Upstream("appraisal counts unavailable", nil)
	}
	counts, err := s.Appraisals.StatusCounts(ctx, cycleID)
	if err != nil {
		return Summary{}, err
	}
	out := Summary{CycleID: c.ID, CycleName: c.Name, Status: c.Status, ByStatus: counts}
	for _, n := range counts {
		out.Total += n
	}
	return out, nil
}
