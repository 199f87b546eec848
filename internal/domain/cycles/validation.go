package cycles

import (
	"slices"
	"strings"
	"time"

	"appraisal/internal/domain/apperror"
	"appraisal/internal/domain/eligibility"
)

func validateInput(in Input) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperror.Validation("name is required")
	}
	if !slices.Contains(Types, in.Type) {
		return apperror.Validation("invalid cycle type").With("allowed", Types)
	}
	policy := in.NewJoinerPolicy
	if policy == "" {
		policy = eligibility.PolicyAutoInclude
	}
	if !slices.Contains(eligibility.NewJoinerPolicies, policy) {
		return apperror.Validation("invalid new joiner policy").With("allowed", eligibility.NewJoinerPolicies)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return apperror.Validation("start and end dates are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return apperror.Validation("end date must not be before start date")
	}
	if in.MinimumServiceMonths < 0 {
		return apperror.Validation("minimum service months must not be negative")
	}
	latest := in.EndDate.AddDate(0, 0, deadlineGraceDays)
	for field, deadline := range map[string]*time.Time{
		"selfAssessmentDeadline": in.SelfAssessmentDeadline,
		"managerReviewDeadline":  in.ManagerReviewDeadline,
	} {
		if deadline == nil {
			continue
		}
		if deadline.Before(in.StartDate) || deadline.After(latest) {
			return apperror.Validation("deadline outside cycle window").With("field", field)
		}
	}
	if in.SelfAssessmentDeadline != nil && in.ManagerReviewDeadline != nil && in.ManagerReviewDeadline.Before(*in.SelfAssessmentDeadline) {
		return apperror.Validation("manager review deadline must not precede self assessment deadline")
	}
	return nil
}

func applyInput(c Cycle, in Input) Cycle {
	c.Name = strings.TrimSpace(in.Name)
	c.Description = in.Description
	c.Type = in.Type
	c.StartDate = in.StartDate
	c.EndDate = in.EndDate
	c.SelfAssessmentDeadline = in.SelfAssessmentDeadline
	c.ManagerReviewDeadline = in.ManagerReviewDeadline
	c.MinimumServiceMonths = in.MinimumServiceMonths
	c.EligibilityCutoffDate = in.EligibilityCutoffDate
	c.IncludeProbation = in.IncludeProbation
	c.ProrationAllowed = in.ProrationAllowed
	c.NewJoinerPolicy = in.NewJoinerPolicy
	if c.NewJoinerPolicy == "" {
		c.NewJoinerPolicy = eligibility.PolicyAutoInclude
	}
	return c
}
