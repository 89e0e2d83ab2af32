package docket

import (
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

// DefaultHorizon is the last renewal year ever generated.
const DefaultHorizon = 20

// ScheduleInput describes one renewal-schedule generation.
type ScheduleInput struct {
	TriggerID int64
	RuleID    *int64
	Matter    *Matter
	// TriggerDate is the date of the event that fired the recurring rule.
	TriggerDate time.Time
	// BaseEventDate and StartEventDate are the matter's renewal-base and
	// renewal-start event dates, nil when the event does not exist yet.
	BaseEventDate  *time.Time
	StartEventDate *time.Time
	Country        *CountryRenewal
	AssignedTo     string
	Actor          Actor
	Today          time.Time
}

// SkippedYear records a year that was not generated and why.
type SkippedYear struct {
	Year    int       `json:"year"`
	DueDate time.Time `json:"due_date"`
	Reason  string    `json:"reason"`
}

// ScheduleResult is the outcome of a generation.  Diagnostic is set when the
// whole schedule was skipped; it is meant to be logged, not returned upward.
type ScheduleResult struct {
	Tasks      []*Task
	Skipped    []SkippedYear
	Diagnostic error
}

// ScheduleGenerator produces the yearly renewal tasks of a matter.
type ScheduleGenerator struct {
	Horizon     int
	Windows     Windows
	RenewalCode string
	Languages   []string
}

// NewScheduleGenerator returns a generator with the usual defaults.
func NewScheduleGenerator() ScheduleGenerator {
	return ScheduleGenerator{
		Horizon:     DefaultHorizon,
		Windows:     DefaultWindows(),
		RenewalCode: "REN",
		Languages:   []string{"en", "fr", "de"},
	}
}

// Generate walks the renewal years from the first payable one to the horizon.
// Entries older than the look-back window are skipped, generation stops at
// the first due date past the matter's expiry.
func (g ScheduleGenerator) Generate(in ScheduleInput) ScheduleResult {
	var res ScheduleResult
	if in.Country == nil {
		res.Diagnostic = errors.New(errors.CodeCountryParamsMissing, "no renewal parameters for country").
			WithDetailf("matter_id=%d event_id=%d", in.Matter.ID, in.TriggerID)
		return res
	}
	if err := in.Country.Validate(); err != nil {
		res.Diagnostic = errors.Wrap(err, errors.CodeUnknown, "renewal parameters incomplete").
			WithDetailf("matter_id=%d event_id=%d", in.Matter.ID, in.TriggerID)
		return res
	}
	if in.StartEventDate == nil || in.StartEventDate.IsZero() {
		res.Diagnostic = errors.New(errors.CodeCountryParamsMissing, "renewal start event date unknown").
			WithDetailf("matter_id=%d event_id=%d start_event=%s", in.Matter.ID, in.TriggerID, in.Country.StartEvent)
		return res
	}

	start := Day(*in.StartEventDate)
	base := Day(in.TriggerDate)
	if in.BaseEventDate != nil && !in.BaseEventDate.IsZero() && in.BaseEventDate.Before(base) {
		base = Day(*in.BaseEventDate)
	}
	if base.IsZero() {
		res.Diagnostic = errors.New(errors.CodeEventDateUnresolved, "renewal base date unknown").
			WithDetailf("matter_id=%d event_id=%d", in.Matter.ID, in.TriggerID)
		return res
	}

	horizon := g.Horizon
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	cutoff := AddMonths(Day(in.Today), -g.Windows.LookBack(in.Country, in.Matter.OriginCode()))

	for year := in.Country.First.Year; year <= horizon; year++ {
		anchor := base
		if in.Country.First.Mode == CountFromStart {
			anchor = start
		}
		due := AddYears(anchor, year-1)
		if due.Before(start) {
			due = start
		}
		if in.Matter.ExpireDate != nil && due.After(Day(*in.Matter.ExpireDate)) {
			break
		}
		if due.Before(cutoff) {
			res.Skipped = append(res.Skipped, SkippedYear{Year: year, DueDate: due, Reason: "past look-back window"})
			continue
		}
		res.Tasks = append(res.Tasks, g.renewalTask(in, year, due))
	}
	return res
}

func (g ScheduleGenerator) renewalTask(in ScheduleInput, year int, due time.Time) *Task {
	return &Task{
		Code:       g.RenewalCode,
		TriggerID:  in.TriggerID,
		MatterID:   in.Matter.ID,
		DueDate:    due,
		Detail:     g.yearLabels(year),
		RuleUsed:   in.RuleID,
		AssignedTo: in.AssignedTo,
		Step:       StepPending,
		CreatorID:  in.Actor.Login(),
	}
}

func (g ScheduleGenerator) yearLabels(year int) Labels {
	langs := g.Languages
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	l := make(Labels, len(langs))
	for _, lang := range langs {
		l[lang] = strconv.Itoa(year)
	}
	return l
}

// RenewalYear reads the year number back from a renewal task's detail.
func RenewalYear(t *Task) (int, bool) {
	for _, lang := range []string{"en", "fr", "de"} {
		if y, err := strconv.Atoi(strings.TrimSpace(t.Detail[lang])); err == nil {
			return y, true
		}
	}
	for _, v := range t.Detail {
		if y, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return y, true
		}
	}
	return 0, false
}

//Personal.AI order the ending
