package cycles

import (
	"context"
	"time"
)

type StoreAPI interface {
	CreateCycle(ctx context.Context, c Cycle) (Cycle, error)
	GetCycle(ctx context.Context, id string) (Cycle, error)
	UpdateCycle(ctx context.Context, c Cycle) error
	ListCycles(ctx context.Context) ([]Cycle, error)
	ActiveCycle(ctx context.Context) (Cycle, error)
	// ActivateCycle flips id to active unless another cycle holds that
	// status, in which case the holder is returned and nothing changes.
	ActivateCycle(ctx context.Context, id string) (*Cycle, error)
	SetStatus(ctx context.Context, id, from, to string) (bool, error)
	ExpireCycles(ctx context.Context, today time.Time) (int64, error)
	// DeleteCycle removes the cycle and its appraisals unless any appraisal
	// has progressed, returning how many block the delete.
	DeleteCycle(ctx context.Context, id, initialStatus string) (int, error)
	// AddQuestions inserts all questions or none.
	AddQuestions(ctx context.Context, cycleID string, qs []Question) ([]Question, error)
	ListQuestions(ctx context.Context, cycleID string) ([]Question, error)
}
