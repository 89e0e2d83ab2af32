package docket

import "time"

// Docket dates are calendar days.  They are always normalised to midnight UTC
// so that comparisons and map keys behave the same regardless of where the
// value came from.

// Date builds a calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Day strips the clock part of t, keeping its calendar date.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// AddMonths adds n months to t.  Unlike time.AddDate the result never spills
// into the following month: Jan 31 + 1 month is the last day of February.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + n
	y += total / 12
	total %= 12
	if total < 0 {
		total += 12
		y--
	}
	month := time.Month(total + 1)
	if last := daysIn(y, month); d > last {
		d = last
	}
	return Date(y, month, d)
}

// AddYears adds n years to t with the same clamping as AddMonths
// (Feb 29 + 1 year is Feb 28).
func AddYears(t time.Time, n int) time.Time {
	return AddMonths(t, 12*n)
}

// AddOffset applies a rule offset in the fixed order days, months, years.
func AddOffset(t time.Time, days, months, years int) time.Time {
	out := Day(t).AddDate(0, 0, days)
	out = AddMonths(out, months)
	return AddYears(out, years)
}

// EndOfMonth returns the last day of t's month.
func EndOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return Date(y, m, daysIn(y, m))
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

//Personal.AI order the ending
