package appraisals

import "context"

type StoreAPI interface {
	// InsertAppraisal creates the row unless one exists for the same
	// employee and cycle. It reports whether a row was created.
	InsertAppraisal(ctx context.Context, a Appraisal) (string, bool, error)
	GetAppraisal(ctx context.Context, id string) (Appraisal, error)
	FindByEmployeeCycle(ctx context.Context, employeeID, cycleID string) (Appraisal, error)
	ExistingEmployeeIDs(ctx context.Context, cycleID string) (map[string]bool, error)
	ListAppraisals(ctx context.Context, filter ListFilter) ([]Appraisal, error)
	// UpdateAppraisal writes every mutable field when the stored status
	// still equals expectedStatus, else returns ErrStaleAppraisal.
	UpdateAppraisal(ctx context.Context, a Appraisal, expectedStatus string) error
	DeleteAppraisal(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, cycleID string) (map[string]int, error)
}
