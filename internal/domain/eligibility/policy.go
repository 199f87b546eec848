package eligibility

import (
	"slices"
	"time"
)

// PolicyCutoff is Feb 28 of the cycle-end year, or of the year before when
// the cycle ends earlier than that.
func PolicyCutoff(cycleEnd time.Time) time.Time {
	end := dateOnly(cycleEnd)
	cutoff := time.Date(end.Year(), time.February, 28, 0, 0, 0, 0, time.UTC)
	if cutoff.After(end) {
		cutoff = cutoff.AddDate(-1, 0, 0)
	}
	return cutoff
}

// PolicyStatus buckets tenure at the cutoff for compensation decisions.
func PolicyStatus(start *time.Time, cycleEnd time.Time) PolicyResult {
	cutoff := PolicyCutoff(cycleEnd)
	if start == nil {
		return PolicyResult{Status: PolicyUnknown, Cutoff: cutoff}
	}
	if dateOnly(*start).After(cutoff) {
		return PolicyResult{Status: PolicyFeedbackOnly, Cutoff: cutoff}
	}

	months := ServiceMonths(*start, cutoff)
	out := PolicyResult{Cutoff: cutoff, TenureMonths: months}
	switch {
	case months < 3:
		out.Status = PolicyFeedbackOnly
	case months < 6:
		out.Status = PolicyEligibleHikeShortTenure
	case months < 12:
		out.Status = PolicyProRatedHike
	default:
		out.Status = PolicyFullHike
	}
	return out
}

func ValidRewardRule(rule string) bool {
	return rule == "" || slices.Contains(RewardRules, rule)
}

// MatchesRewardRule reports whether a policy bucket passes a named reward
// filter. An empty rule matches everything.
func MatchesRewardRule(rule, policy string) bool {
	switch rule {
	case "", RuleAll:
		return true
	case RuleFullHikeOnly:
		return policy == PolicyFullHike
	case RuleEligibleForHike:
		return policy == PolicyFullHike || policy == PolicyProRatedHike || policy == PolicyEligibleHikeShortTenure
	case RuleProbationOrFeedback:
		return policy == PolicyFeedbackOnly
	case RuleAuto:
		return policy != PolicyUnknown
	default:
		return false
	}
}
