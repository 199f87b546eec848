package goals

import "time"

type Goal struct {
	ID              string     `json:"id"`
	EmployeeID      string     `json:"employeeId"`
	CreatedBy       string     `json:"createdBy"`
	CycleID         string     `json:"cycleId,omitempty"`
	ParentGoalID    string     `json:"parentGoalId,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Priority        string     `json:"priority"`
	Weight          float64    `json:"weight"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	TargetDate      *time.Time `json:"targetDate,omitempty"`
	CompletedDate   *time.Time `json:"completedDate,omitempty"`
	Progress        int        `json:"progress"`
	Status          string     `json:"status"`
	ApprovalStatus  string     `json:"approvalStatus"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	VersionNumber   int        `json:"versionNumber"`
	SubmittedBy     string     `json:"submittedBy,omitempty"`
	ApprovedBy      string     `json:"approvedBy,omitempty"`
	ApprovedDate    *time.Time `json:"approvedDate,omitempty"`
	// WithdrawnAt is set once the goal is deleted. Withdrawn goals keep their
	// audit trail and versions but drop out of every listing.
	WithdrawnAt *time.Time `json:"withdrawnAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Content is the part of a goal captured in version snapshots.
type Content struct {
	Title        string
	Description  string
	Category     string
	Priority     string
	Weight       float64
	StartDate    *time.Time
	TargetDate   *time.Time
	ParentGoalID string
}

type CreateInput struct {
	EmployeeID string
	CycleID    string
	Content
	Progress int
}

type ProgressInput struct {
	Progress      int
	Status        string
	CompletedDate *time.Time
}

type AuditEntry struct {
	ID            string    `json:"id"`
	GoalID        string    `json:"goalId"`
	OldStatus     string    `json:"oldStatus"`
	NewStatus     string    `json:"newStatus"`
	ActorID       string    `json:"actorId"`
	ActorRole     string    `json:"actorRole"`
	VersionNumber int       `json:"versionNumber"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Version struct {
	GoalID        string     `json:"goalId"`
	VersionNumber int        `json:"versionNumber"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Priority      string     `json:"priority"`
	Weight        float64    `json:"weight"`
	StartDate     *time.Time `json:"startDate,omitempty"`
	TargetDate    *time.Time `json:"targetDate,omitempty"`
	CreatedBy     string     `json:"createdBy"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type Readiness struct {
	EmployeeID string         `json:"employeeId"`
	CycleID    string         `json:"cycleId"`
	Total      int            `json:"total"`
	Counts     map[string]int `json:"counts"`
	Ready      bool           `json:"ready"`
}

type ListFilter struct {
	EmployeeID     string
	CycleID        string
	ApprovalStatus string
	// EmployeeIDs restricts results to these employees when non-nil.
	EmployeeIDs []string
}

// Actor is whoever triggers a workflow step.
type Actor struct {
	ID   string
	Role string
}

// Transition is the full set of changes a workflow step commits at once.
type Transition struct {
	Goal     Goal
	From     string
	Snapshot *Version
	Audit    AuditEntry
}

// KeyResult is a measurable outcome under a goal. A goal with key results
// takes its progress from them.
type KeyResult struct {
	ID           string     `json:"id"`
	GoalID       string     `json:"goalId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	TargetValue  float64    `json:"targetValue"`
	CurrentValue float64    `json:"currentValue"`
	Unit         string     `json:"unit"`
	Status       string     `json:"status"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type KeyResultInput struct {
	Title        string
	Description  string
	TargetValue  float64
	CurrentValue float64
	Unit         string
	DueDate      *time.Time
}

// KeyResultUpdate changes the measured value and, optionally, the status.
// A blank status is derived from the value.
type KeyResultUpdate struct {
	CurrentValue *float64
	Status       string
}

type Comment struct {
	ID          string    `json:"id"`
	GoalID      string    `json:"goalId"`
	AuthorID    string    `json:"authorId"`
	Content     string    `json:"content"`
	CommentType string    `json:"commentType"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Stats struct {
	EmployeeID string         `json:"employeeId"`
	Total      int            `json:"total"`
	Completed  int            `json:"completed"`
	ByStatus   map[string]int `json:"byStatus"`
}
