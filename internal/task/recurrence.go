package task

import "time"

// NextDueDate computes the due date of the next occurrence from the current
// one. It is pure: same inputs, same output, no clock.
//
// Month-crossing rules clamp the day-of-month to the last valid day of the
// target month (Jan 31 -> Feb 28/29), never rolling into the following month.
// Yearly keeps the same month and day, except that the last day of February
// stays the last day of February, so a Feb 29 task falls back to Feb 28 in
// common years and recovers to Feb 29 in the next leap year.
func NextDueDate(d time.Time, rule Rule) (time.Time, error) {
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())

	switch rule {
	case RuleDaily:
		return d.AddDate(0, 0, 1), nil
	case RuleWeekly:
		return d.AddDate(0, 0, 7), nil
	case RuleBiweekly:
		return d.AddDate(0, 0, 14), nil
	case RuleMonthly, RuleQuarterly:
		months := 1
		if rule == RuleQuarterly {
			months = 3
		}
		m := int(d.Month()) - 1 + months
		year := d.Year() + m/12
		month := time.Month(m%12 + 1)
		day := min(d.Day(), daysIn(year, month))
		return time.Date(year, month, day, 0, 0, 0, 0, d.Location()), nil
	case RuleYearly:
		year := d.Year() + 1
		day := d.Day()
		if d.Month() == time.February && day == daysIn(d.Year(), time.February) {
			day = daysIn(year, time.February)
		}
		return time.Date(year, d.Month(), day, 0, 0, 0, 0, d.Location()), nil
	default:
		return time.Time{}, ErrInvalidRule
	}
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
