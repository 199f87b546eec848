package directory

import (
	"time"

	"appraisal/internal/domain/eligibility"
)

type Employee struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	ManagerID      string     `json:"managerId"`
	DepartmentID   string     `json:"departmentId"`
	EmploymentType string     `json:"employmentType"`
	Active         bool       `json:"active"`
}

func (e Employee) TenureFacts() eligibility.TenureFacts {
	return eligibility.TenureFacts{StartDate: e.StartDate, EmploymentType: e.EmploymentType}
}

// Filter narrows List. Empty fields and the literal "all" match everything.
type Filter struct {
	DepartmentID   string
	EmploymentType string
	ActiveOnly     bool
}
