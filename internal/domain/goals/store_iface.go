package goals

import "context"

type StoreAPI interface {
	CreateGoal(ctx context.Context, g Goal) (Goal, error)
	GetGoal(ctx context.Context, id string) (Goal, error)
	ListGoals(ctx context.Context, filter ListFilter) ([]Goal, error)
	UpdateContent(ctx context.Context, id, expectedApproval string, c Content) error
	UpdateProgress(ctx context.Context, id string, in ProgressInput) error
	// WithdrawGoal marks the goal withdrawn, detaches its children and
	// records the audit row in one transaction. It fails with
	// ErrStaleTransition when the goal is already withdrawn or its approval
	// status no longer equals expectedApproval.
	WithdrawGoal(ctx context.Context, id, expectedApproval string, audit AuditEntry) error
	// ApplyTransition writes the snapshot, the status change and the audit
	// row in one transaction. It fails with ErrStaleTransition when the
	// stored approval status no longer equals t.From.
	ApplyTransition(ctx context.Context, t Transition) (Goal, error)
	ListAudit(ctx context.Context, goalID string) ([]AuditEntry, error)
	ListVersions(ctx context.Context, goalID string) ([]Version, error)
	CountByApprovalStatus(ctx context.Context, employeeID, cycleID string) (map[string]int, error)
	CountByStatus(ctx context.Context, employeeID string) (map[string]int, error)

	CreateKeyResult(ctx context.Context, kr KeyResult) (KeyResult, error)
	GetKeyResult(ctx context.Context, goalID, id string) (KeyResult, error)
	UpdateKeyResult(ctx context.Context, kr KeyResult) error
	ListKeyResults(ctx context.Context, goalID string) ([]KeyResult, error)

	CreateComment(ctx context.Context, c Comment) (Comment, error)
	ListComments(ctx context.Context, goalID string) ([]Comment, error)
}
