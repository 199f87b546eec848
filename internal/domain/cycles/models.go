package cycles

import (
	"time"

	"appraisal/internal/domain/eligibility"
)

type Cycle struct {
	ID                     string     `json:"id"`
	Name                   string     `json:"name"`
	Description            string     `json:"description"`
	Type                   string     `json:"type"`
	Status                 string     `json:"status"`
	StartDate              time.Time  `json:"startDate"`
	EndDate                time.Time  `json:"endDate"`
	SelfAssessmentDeadline *time.Time `json:"selfAssessmentDeadline,omitempty"`
	ManagerReviewDeadline  *time.Time `json:"managerReviewDeadline,omitempty"`
	MinimumServiceMonths   int        `json:"minimumServiceMonths"`
	EligibilityCutoffDate  *time.Time `json:"eligibilityCutoffDate,omitempty"`
	IncludeProbation       bool       `json:"includeProbation"`
	ProrationAllowed       bool       `json:"prorationAllowed"`
	NewJoinerPolicy        string     `json:"newJoinerPolicy"`
	CreatedBy              string     `json:"createdBy,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

func (c Cycle) EligibilityConfig() eligibility.CycleConfig {
	return eligibility.CycleConfig{
		StartDate:             c.StartDate,
		EndDate:               c.EndDate,
		MinimumServiceMonths:  c.MinimumServiceMonths,
		EligibilityCutoffDate: c.EligibilityCutoffDate,
		IncludeProbation:      c.IncludeProbation,
		ProrationAllowed:      c.ProrationAllowed,
		NewJoinerPolicy:       c.NewJoinerPolicy,
	}
}

// Input carries the editable fields of a cycle for create and update.
type Input struct {
	Name                   string
	Description            string
	Type                   string
	StartDate              time.Time
	EndDate                time.Time
	SelfAssessmentDeadline *time.Time
	ManagerReviewDeadline  *time.Time
	MinimumServiceMonths   int
	EligibilityCutoffDate  *time.Time
	IncludeProbation       bool
	ProrationAllowed       bool
	NewJoinerPolicy        string
}

type ActivateCriteria struct {
	DepartmentID   string `json:"departmentId"`
	EmploymentType string `json:"employmentType"`
	RewardRule     string `json:"rewardRule"`
}

type ActivationSummary struct {
	CycleID      string         `json:"cycleId"`
	Resync       bool           `json:"resync"`
	Considered   int            `json:"considered"`
	Created      int            `json:"created"`
	Existing     int            `json:"existing"`
	Placeholders int            `json:"placeholders"`
	Skipped      map[string]int `json:"skipped"`
}

// Question is an appraisal question asked during a cycle. Each question is
// shown on the self assessment, the manager review, or both.
type Question struct {
	ID         string    `json:"id"`
	CycleID    string    `json:"cycleId"`
	Text       string    `json:"questionText"`
	Type       string    `json:"questionType"`
	Category   string    `json:"category,omitempty"`
	Order      int       `json:"sortOrder"`
	Required   bool      `json:"isRequired"`
	ForSelf    bool      `json:"isForSelf"`
	ForManager bool      `json:"isForManager"`
	CreatedAt  time.Time `json:"createdAt"`
}

type QuestionInput struct {
	Text       string
	Type       string
	Category   string
	Order      *int
	Required   *bool
	ForSelf    *bool
	ForManager *bool
}

// Summary counts a cycle's appraisals by workflow status.
type Summary struct {
	CycleID   string         `json:"cycleId"`
	CycleName string         `json:"cycleName"`
	Status    string         `json:"status"`
	Total     int            `json:"total"`
	ByStatus  map[string]int `json:"byStatus"`
}
