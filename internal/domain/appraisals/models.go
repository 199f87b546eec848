package appraisals

import "time"

type Appraisal struct {
	ID                      string                `json:"id"`
	CycleID                 string                `json:"cycleId"`
	EmployeeID              string                `json:"employeeId"`
	ManagerID               string                `json:"managerId,omitempty"`
	EligibilityStatus       string                `json:"eligibilityStatus"`
	EligibilityReason       string                `json:"eligibilityReason"`
	IsProrated              bool                  `json:"isProrated"`
	Status                  string                `json:"status"`
	SelfSubmitted           bool                  `json:"selfSubmitted"`
	SelfSubmittedAt         *time.Time            `json:"selfSubmittedAt,omitempty"`
	ManagerSubmitted        bool                  `json:"managerSubmitted"`
	ManagerSubmittedAt      *time.Time            `json:"managerSubmittedAt,omitempty"`
	SelfAssessment          map[string]any        `json:"selfAssessment,omitempty"`
	ManagerAssessment       map[string]any        `json:"managerAssessment,omitempty"`
	GoalRatings             map[string]GoalRating `json:"goalRatings"`
	ManagerGoalRatings      map[string]GoalRating `json:"managerGoalRatings"`
	OverallRating           *int                  `json:"overallRating,omitempty"`
	MeetingDate             *time.Time            `json:"meetingDate,omitempty"`
	MeetingNotes            string                `json:"meetingNotes,omitempty"`
	Acknowledged            bool                  `json:"acknowledged"`
	AcknowledgedAt          *time.Time            `json:"acknowledgedAt,omitempty"`
	AcknowledgementComments string                `json:"acknowledgementComments,omitempty"`
	CreatedAt               time.Time             `json:"createdAt"`
	UpdatedAt               time.Time             `json:"updatedAt"`
}

// GoalRating is one rating entry keyed by goal id.
type GoalRating struct {
	Rating   int    `json:"rating"`
	Progress *int   `json:"progress,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

// GoalSnapshot is the part of a goal the status recompute looks at, plus
// what the summary PDF prints.
type GoalSnapshot struct {
	ID             string  `json:"id"`
	ApprovalStatus string  `json:"approvalStatus"`
	Title          string  `json:"title,omitempty"`
	Weight         float64 `json:"weight,omitempty"`
	Progress       int     `json:"progress,omitempty"`
}

type SelfInput struct {
	GoalRatings map[string]GoalRating
	Answers     map[string]any
}

type ManagerInput struct {
	GoalRatings   map[string]GoalRating
	Assessment    map[string]any
	OverallRating *int
	MeetingDate   *time.Time
	MeetingNotes  string
}

type ListFilter struct {
	Scope      string
	CycleID    string
	Status     string
	EmployeeID string
	ManagerID  string
}

type Actor struct {
	ID   string
	Role string
}

// Summary is everything the one-page PDF renders.
type Summary struct {
	Appraisal    Appraisal
	CycleName    string
	EmployeeName string
	ManagerName  string
	Goals        []GoalSnapshot
	GeneratedAt  time.Time
}
