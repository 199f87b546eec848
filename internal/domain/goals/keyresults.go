package goals

import (
	"context"
	"errors"
	"slices"
	"strings"

	"appraisal/internal/domain/apperror"
)

func (s *Service) KeyResults(ctx context.Context, goalID string) ([]KeyResult, error) {
	if _, err := s.Get(ctx, goalID); err != nil {
		return nil, err
	}
	return s.store.ListKeyResults(ctx, goalID)
}

// AddKeyResult attaches a key result and rederives the goal's progress.
// Without a due date the key result inherits the goal's target date.
func (s *Service) AddKeyResult(ctx context.Context, goalID string, in KeyResultInput) (KeyResult, Goal, error) {
	g, err := s.Get(ctx, goalID)
	if err != nil {
		return KeyResult{}, Goal{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return KeyResult{}, Goal{}, apperror.Validation("title is required")
	}
	if in.TargetValue <= 0 {
		return KeyResult{}, Goal{}, apperror.Validation("target value must be positive")
	}
	if in.CurrentValue < 0 {
		return KeyResult{}, Goal{}, apperror.Validation("current value must not be negative")
	}
	if in.Unit == "" {
		in.Unit = UnitPercentage
	}
	if !slices.Contains(Units, in.Unit) {
		return KeyResult{}, Goal{}, apperror.Validation("invalid unit").With("allowed", Units)
	}
	due := in.DueDate
	if due == nil {
		due = g.TargetDate
	}

	kr, err := s.store.CreateKeyResult(ctx, KeyResult{
		GoalID:       g.ID,
		Title:        in.Title,
		Description:  strings.TrimSpace(in.Description),
		TargetValue:  in.TargetValue,
		CurrentValue: in.CurrentValue,
		Unit:         in.Unit,
		Status:       keyResultStatus(in.CurrentValue, in.TargetValue),
		DueDate:      due,
	})
	if err != nil {
		return KeyResult{}, Goal{}, err
	}
	updated, err := s.rederiveProgress(ctx, g)
	if err != nil {
		return KeyResult{}, Goal{}, err
	}
	return kr, updated, nil
}

func (s *Service) UpdateKeyResult(ctx context.Context, goalID, id string, in KeyResultUpdate) (KeyResult, Goal, error) {
	g, err := s.Get(ctx, goalID)
	if err != nil {
		return KeyResult{}, Goal{}, err
	}
	kr, err := s.store.GetKeyResult(ctx, goalID, id)
	if errors.Is(err, ErrKeyResultNotFound) {
		return KeyResult{}, Goal{}, apperror.NotFound("key result not found").With("keyResultId", id)
	}
	if err != nil {
		return KeyResult{}, Goal{}, err
	}
	if in.CurrentValue != nil {
		if *in.CurrentValue < 0 {
			return KeyResult{}, Goal{}, apperror.Validation("current value must not be negative")
		}
		kr.CurrentValue = *in.CurrentValue
	}
	switch {
	case in.Status != "":
		if !slices.Contains(KeyResultStatuses, in.Status) {
			return KeyResult{}, Goal{}, apperror.Validation("invalid key result status").With("allowed", KeyResultStatuses)
		}
		kr.Status = in.Status
	case in.CurrentValue != nil:
		kr.Status = keyResultStatus(kr.CurrentValue, kr.TargetValue)
	}

	if err := s.store.UpdateKeyResult(ctx, kr); err != nil {
		if errors.Is(err, ErrKeyResultNotFound) {
			return KeyResult{}, Goal{}, apperror.NotFound("key result not found").With("keyResultId", id)
		}
		return KeyResult{}, Goal{}, err
	}
	updated, err := s.rederiveProgress(ctx, g)
	if err != nil {
		return KeyResult{}, Goal{}, err
	}
	return kr, updated, nil
}

// rederiveProgress sets the goal's progress to the mean completion of its
// key results. An active goal whose key results are all met is completed.
func (s *Service) rederiveProgress(ctx context.Context, g Goal) (Goal, error) {
	items, err := s.store.ListKeyResults(ctx, g.ID)
	if err != nil {
		return Goal{}, err
	}
	if len(items) == 0 {
		return g, nil
	}
	in := ProgressInput{
		Progress:      DerivedProgress(items),
		Status:        g.Status,
		CompletedDate: g.CompletedDate,
	}
	if in.Progress == 100 && g.Status == StatusActive {
		today := s.today()
		in.Status = StatusCompleted
		in.CompletedDate = &today
	}
	if in.Progress == g.Progress && in.Status == g.Status {
		return g, nil
	}
	if err := s.store.UpdateProgress(ctx, g.ID, in); err != nil {
		if errors.Is(err, ErrGoalNotFound) {
			return Goal{}, notFound(g.ID)
		}
		return Goal{}, err
	}
	updated, err := s.Get(ctx, g.ID)
	if err != nil {
		return Goal{}, err
	}
	if updated.Status != g.Status {
		s.sync(ctx, updated)
	}
	return updated, nil
}

// DerivedProgress is the mean of each key result's completion, each capped
// to 0..100, truncated to a whole percent.
func DerivedProgress(items []KeyResult) int {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, kr := range items {
		if kr.TargetValue <= 0 {
			continue
		}
		sum += min(100, max(0, kr.CurrentValue/kr.TargetValue*100))
	}
	return int(sum / float64(len(items)))
}

func keyResultStatus(current, target float64) string {
	switch {
	case current <= 0:
		return KeyResultNotStarted
	case current >= target:
		return KeyResultCompleted
	default:
		return KeyResultInProgress
	}
}
