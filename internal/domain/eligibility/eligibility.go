package eligibility

import "fmt"

// Evaluate decides whether an employee takes part in a cycle. Rules are
// checked in a fixed order and the first match wins. It touches no storage.
func Evaluate(facts TenureFacts, cfg CycleConfig) Result {
	if facts.StartDate == nil {
		return ineligible(StatusDeferred, "employee start date is not recorded")
	}
	start := dateOnly(*facts.StartDate)

	switch cfg.NewJoinerPolicy {
	case PolicyAlwaysDefer:
		return ineligible(StatusDeferred, "cycle defers all new joiners")
	case PolicyManualHRReview:
		return ineligible(StatusPendingHRReview, "cycle requires HR review of eligibility")
	}

	if cfg.EligibilityCutoffDate != nil && start.After(dateOnly(*cfg.EligibilityCutoffDate)) {
		return ineligible(StatusDeferred, fmt.Sprintf("joined after eligibility cutoff %s", cfg.EligibilityCutoffDate.Format("2006-01-02")))
	}

	if months := ServiceMonths(start, cfg.EndDate); months < cfg.MinimumServiceMonths {
		return ineligible(StatusNotEligibleMinService, fmt.Sprintf("%d months of service, %d required", months, cfg.MinimumServiceMonths))
	}

	if facts.EmploymentType == EmploymentTypeProbation && !cfg.IncludeProbation {
		return ineligible(StatusNotEligibleProbation, "probation employees are excluded from this cycle")
	}

	prorated := start.After(dateOnly(cfg.StartDate))
	if prorated && !cfg.ProrationAllowed {
		out := ineligible(StatusNotEligibleProrataOff, "joined after cycle start and proration is disabled")
		out.IsProrated = true
		return out
	}

	reason := "meets all eligibility rules"
	if prorated {
		reason = "eligible with prorated evaluation"
	}
	return Result{IsEligible: true, Status: StatusEligible, Reason: reason, IsProrated: prorated}
}

func ineligible(status, reason string) Result {
	return Result{IsEligible: false, Status: status, Reason: reason}
}
