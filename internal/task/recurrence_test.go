package task

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextDueDateFixedIntervals(t *testing.T) {
	cases := []struct {
		rule Rule
		in   time.Time
		want time.Time
	}{
		{RuleDaily, date(2025, time.March, 14), date(2025, time.March, 15)},
		{RuleDaily, date(2025, time.December, 31), date(2026, time.January, 1)},
		{RuleWeekly, date(2025, time.March, 14), date(2025, time.March, 21)},
		{RuleWeekly, date(2025, time.February, 26), date(2025, time.March, 5)},
		{RuleBiweekly, date(2025, time.March, 14), date(2025, time.March, 28)},
		{RuleBiweekly, date(2024, time.February, 20), date(2024, time.March, 5)},
	}
	for _, c := range cases {
		got, err := NextDueDate(c.in, c.rule)
		if err != nil {
			t.Fatalf("NextDueDate(%v, %s): %v", c.in, c.rule, err)
		}
		if !got.Equal(c.want) {
			t.Fatalf("NextDueDate(%v, %s) = %v, want %v", c.in, c.rule, got, c.want)
		}
	}
}

func TestNextDueDateMonthlyClamping(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{date(2025, time.January, 15), date(2025, time.February, 15)},
		{date(2025, time.January, 31), date(2025, time.February, 28)},
		{date(2024, time.January, 31), date(2024, time.February, 29)},
		{date(2025, time.March, 31), date(2025, time.April, 30)},
		{date(2025, time.August, 31), date(2025, time.September, 30)},
		{date(2025, time.December, 31), date(2026, time.January, 31)},
		// Clamping is not sticky: Feb 28 stays the 28th.
		{date(2025, time.February, 28), date(2025, time.March, 28)},
	}
	for _, c := range cases {
		got, err := NextDueDate(c.in, RuleMonthly)
		if err != nil {
			t.Fatalf("monthly from %v: %v", c.in, err)
		}
		if !got.Equal(c.want) {
			t.Fatalf("monthly from %v = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNextDueDateQuarterly(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{date(2025, time.January, 15), date(2025, time.April, 15)},
		{date(2025, time.November, 30), date(2026, time.February, 28)},
		{date(2023, time.November, 30), date(2024, time.February, 29)},
		{date(2025, time.May, 31), date(2025, time.August, 31)},
		{date(2025, time.March, 31), date(2025, time.June, 30)},
	}
	for _, c := range cases {
		got, err := NextDueDate(c.in, RuleQuarterly)
		if err != nil {
			t.Fatalf("quarterly from %v: %v", c.in, err)
		}
		if !got.Equal(c.want) {
			t.Fatalf("quarterly from %v = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNextDueDateYearly(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{date(2025, time.June, 10), date(2026, time.June, 10)},
		// Feb 29 lands on the last day of February next year.
		{date(2024, time.February, 29), date(2025, time.February, 28)},
		// Last-day-of-February stickiness recovers Feb 29 in the next leap year.
		{date(2027, time.February, 28), date(2028, time.February, 29)},
		// A mid-February date is not last-of-month and never shifts.
		{date(2024, time.February, 15), date(2025, time.February, 15)},
	}
	for _, c := range cases {
		got, err := NextDueDate(c.in, RuleYearly)
		if err != nil {
			t.Fatalf("yearly from %v: %v", c.in, err)
		}
		if !got.Equal(c.want) {
			t.Fatalf("yearly from %v = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNextDueDateYearlyFebChain(t *testing.T) {
	// Feb 29 2024 -> Feb 28 2025 -> Feb 28 2026 -> Feb 28 2027 -> Feb 29 2028.
	want := []time.Time{
		date(2025, time.February, 28),
		date(2026, time.February, 28),
		date(2027, time.February, 28),
		date(2028, time.February, 29),
	}
	cur := date(2024, time.February, 29)
	for i, w := range want {
		next, err := NextDueDate(cur, RuleYearly)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if !next.Equal(w) {
			t.Fatalf("step %d: got %v, want %v", i, next, w)
		}
		cur = next
	}
}

func TestNextDueDateNormalizesTime(t *testing.T) {
	in := time.Date(2025, time.March, 14, 17, 45, 12, 999, time.UTC)
	got, err := NextDueDate(in, RuleDaily)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(date(2025, time.March, 15)) {
		t.Fatalf("got %v, want midnight of the next day", got)
	}
}

func TestNextDueDateInvalidRule(t *testing.T) {
	for _, rule := range []Rule{"", "fortnightly", "DAILY"} {
		if _, err := NextDueDate(date(2025, time.March, 14), rule); !errors.Is(err, ErrInvalidRule) {
			t.Fatalf("rule %q: expected ErrInvalidRule, got %v", rule, err)
		}
	}
}
