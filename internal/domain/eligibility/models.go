package eligibility

import "time"

// TenureFacts is what the directory knows about an employee that matters
// for eligibility.
type TenureFacts struct {
	StartDate      *time.Time `json:"startDate,omitempty"`
	EmploymentType string     `json:"employmentType"`
}

type CycleConfig struct {
	StartDate             time.Time  `json:"startDate"`
	EndDate               time.Time  `json:"endDate"`
	MinimumServiceMonths  int        `json:"minimumServiceMonths"`
	EligibilityCutoffDate *time.Time `json:"eligibilityCutoffDate,omitempty"`
	IncludeProbation      bool       `json:"includeProbation"`
	ProrationAllowed      bool       `json:"prorationAllowed"`
	NewJoinerPolicy       string     `json:"newJoinerPolicy"`
}

type Result struct {
	IsEligible bool   `json:"isEligible"`
	Status     string `json:"status"`
	Reason     string `json:"reason"`
	IsProrated bool   `json:"isProrated"`
}

type PolicyResult struct {
	Status       string    `json:"status"`
	Cutoff       time.Time `json:"cutoff"`
	TenureMonths int       `json:"tenureMonths"`
}
