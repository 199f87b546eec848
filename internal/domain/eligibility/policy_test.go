package eligibility

import (
	"testing"
	"time"
)

func TestPolicyStatusBrackets(t *testing.T) {
	end := day(2025, time.March, 31)
	cases := []struct {
		start *time.Time
		want  string
	}{
		{nil, PolicyUnknown},
		{ptr(day(2024, time.February, 28)), PolicyFullHike},
		{ptr(day(2024, time.June, 1)), PolicyProRatedHike},
		{ptr(day(2024, time.September, 1)), PolicyEligibleHikeShortTenure},
		{ptr(day(2024, time.December, 15)), PolicyFeedbackOnly},
		{ptr(day(2025, time.March, 1)), PolicyFeedbackOnly},
	}
	for _, tc := range cases {
		got := PolicyStatus(tc.start, end)
		if got.Status != tc.want {
			t.Fatalf("start %v: expected %s, got %+v", tc.start, tc.want, got)
		}
		if !got.Cutoff.Equal(day(2025, time.February, 28)) {
			t.Fatalf("unexpected cutoff %s", got.Cutoff)
		}
	}
}

func TestPolicyCutoffPrecedesEarlyYearEnd(t *testing.T) {
	if got := PolicyCutoff(day(2025, time.January, 31)); !got.Equal(day(2024, time.February, 28)) {
		t.Fatalf("expected previous year cutoff, got %s", got)
	}
	if got := PolicyCutoff(day(2025, time.February, 28)); !got.Equal(day(2025, time.February, 28)) {
		t.Fatalf("expected same day cutoff, got %s", got)
	}
}

func TestMatchesRewardRule(t *testing.T) {
	if !MatchesRewardRule(RuleEligibleForHike, PolicyEligibleHikeShortTenure) {
		t.Fatal("short tenure should be eligible for hike")
	}
	if MatchesRewardRule(RuleFullHikeOnly, PolicyProRatedHike) {
		t.Fatal("pro rated should not match full hike only")
	}
	if !MatchesRewardRule(RuleProbationOrFeedback, PolicyFeedbackOnly) {
		t.Fatal("feedback only should match probation_or_feedback")
	}
	if MatchesRewardRule(RuleAuto, PolicyUnknown) {
		t.Fatal("auto should exclude unknown tenure")
	}
	if !MatchesRewardRule("", PolicyUnknown) || !MatchesRewardRule(RuleAll, PolicyUnknown) {
		t.Fatal("empty and all rules should match everything")
	}
	if MatchesRewardRule("bogus", PolicyFullHike) || ValidRewardRule("bogus") {
		t.Fatal("unknown rule should not match")
	}
}
