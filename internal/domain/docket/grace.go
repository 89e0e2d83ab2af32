package docket

import "time"

// GraceDeadline is the last day a late payment is still accepted.
func GraceDeadline(due time.Time, months int) time.Time {
	return AddMonths(Day(due), months)
}

// InGrace reports whether an unpaid renewal is past its due date but still
// inside the grace window.
func InGrace(due time.Time, done *time.Time, today time.Time, months int) bool {
	if done != nil {
		return false
	}
	today = Day(today)
	return today.After(Day(due)) && !today.After(GraceDeadline(due, months))
}

// Lapsed reports whether an unpaid renewal has passed the end of its grace
// window.
func Lapsed(due time.Time, done *time.Time, today time.Time, months int) bool {
	if done != nil {
		return false
	}
	return Day(today).After(GraceDeadline(due, months))
}

// GraceEvaluator binds the window lengths so callers only pass the task and
// the country.
type GraceEvaluator struct {
	Windows Windows
}

// InGrace evaluates t for a matter of the given origin.
func (g GraceEvaluator) InGrace(t *Task, c *CountryRenewal, origin string, today time.Time) bool {
	return InGrace(t.DueDate, t.DoneDate, today, g.Windows.Grace(c, origin))
}

// Lapsed evaluates t for a matter of the given origin.
func (g GraceEvaluator) Lapsed(t *Task, c *CountryRenewal, origin string, today time.Time) bool {
	return Lapsed(t.DueDate, t.DoneDate, today, g.Windows.Grace(c, origin))
}

//Personal.AI order the ending
