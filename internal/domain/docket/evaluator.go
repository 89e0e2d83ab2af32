package docket

import (
	"strconv"
	"time"

	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

// ActionKind is what the persistence layer must do with a planned task.
type ActionKind string

const (
	ActionCreate     ActionKind = "create"
	ActionClear      ActionKind = "clear"
	ActionDelete     ActionKind = "delete"
	ActionReschedule ActionKind = "reschedule"
	ActionSchedule   ActionKind = "schedule"
)

// TaskAction is one planned mutation.  Create, clear, delete and reschedule
// carry a single Task; schedule carries the generated renewals in Tasks.
type TaskAction struct {
	Kind    ActionKind
	RuleID  int64
	Task    *Task
	Tasks   []*Task
	Skipped []SkippedYear
}

// RuleSkip explains why a matching rule did nothing.
type RuleSkip struct {
	RuleID int64
	Reason string
}

// Plan is the outcome of evaluating the rules for one event.  Nothing is
// persisted by the evaluator; the application layer applies the plan inside a
// single transaction.
type Plan struct {
	EventID     int64
	MatterID    int64
	Actions     []TaskAction
	Skips       []RuleSkip
	Diagnostics []error
}

// Count returns the number of tasks touched by actions of kind.
func (p *Plan) Count(kind ActionKind) int {
	n := 0
	for _, a := range p.Actions {
		if a.Kind != kind {
			continue
		}
		if kind == ActionSchedule {
			n += len(a.Tasks)
		} else {
			n++
		}
	}
	return n
}

// Empty reports whether the plan mutates nothing.
func (p *Plan) Empty() bool {
	return len(p.Actions) == 0
}

func (p *Plan) skip(rule *TaskRule, reason string) {
	p.Skips = append(p.Skips, RuleSkip{RuleID: rule.ID, Reason: reason})
}

// EvaluationInput is the state of a matter at the time an event is saved.
type EvaluationInput struct {
	Matter *Matter
	Event  *Event
	// Events are all events of the matter; the trigger is added if missing.
	Events []*Event
	// Rules are candidate rules; filtering happens in the evaluator.
	Rules []*TaskRule
	// Tasks are all tasks of the matter, done or not.
	Tasks []*Task
	// KnownCodes is the event-code catalog.  Nil disables code checks.
	KnownCodes map[string]bool
	Country    *CountryRenewal
	Actor      Actor
	Today      time.Time
}

// RuleEvaluator turns task rules and an event into a Plan.
type RuleEvaluator struct {
	Schedule     ScheduleGenerator
	PriorityCode string
}

// NewRuleEvaluator returns an evaluator with the default schedule generator.
func NewRuleEvaluator(gen ScheduleGenerator) *RuleEvaluator {
	return &RuleEvaluator{Schedule: gen, PriorityCode: "PRI"}
}

// Evaluate fires every applicable rule of the event's code.  Each rule is
// evaluated independently and performs at most one kind of mutation.
func (e *RuleEvaluator) Evaluate(in EvaluationInput) (Plan, error) {
	return e.evaluate(in, nil, nil)
}

// Reevaluate handles an updated event.  Pending tasks generated from it
// follow the new trigger date; renewals already in the workflow are re-dated
// but never deleted, and only untouched renewals whose year left the schedule
// are removed.  Create rules that never produced a task are fired, recurring
// rules do not regenerate years they already produced, and clear and delete
// rules do not fire again.
func (e *RuleEvaluator) Reevaluate(in EvaluationInput) (Plan, error) {
	if err := checkInput(in); err != nil {
		return Plan{}, err
	}
	plan := Plan{EventID: in.Event.ID, MatterID: in.Matter.ID}
	events := eventsWith(in.Events, in.Event)

	byID := make(map[int64]*TaskRule, len(in.Rules))
	for _, r := range in.Rules {
		byID[r.ID] = r
	}

	renewals := make(map[int64][]*Task)
	for _, t := range in.Tasks {
		if !t.Pending() || t.TriggerID != in.Event.ID || t.RuleUsed == nil {
			continue
		}
		rule, ok := byID[*t.RuleUsed]
		if !ok {
			continue
		}
		if rule.Recurring {
			renewals[rule.ID] = append(renewals[rule.ID], t)
			continue
		}
		due, err := e.dueDate(rule, in.Event, events)
		if err != nil {
			return Plan{}, err
		}
		if !due.Equal(Day(t.DueDate)) {
			plan.Actions = append(plan.Actions, TaskAction{Kind: ActionReschedule, RuleID: rule.ID, Task: movedTask(t, due, in.Actor)})
		}
	}

	dropped := make(map[int64]bool)
	for _, rule := range in.Rules {
		if open := renewals[rule.ID]; len(open) > 0 {
			e.realign(&plan, in, rule, events, open, dropped)
		}
	}

	keep := func(r *TaskRule) bool {
		if r.Mode() != ModeCreate {
			return false
		}
		return !r.Recurring || !hasRuleTask(in.Tasks, in.Event.ID, r.ID, dropped)
	}
	sub, err := e.evaluate(in, keep, dropped)
	if err != nil {
		return Plan{}, err
	}
	plan.Actions = append(plan.Actions, sub.Actions...)
	plan.Skips = append(plan.Skips, sub.Skips...)
	plan.Diagnostics = append(plan.Diagnostics, sub.Diagnostics...)
	return plan, nil
}

// realign moves the open renewals of a recurring rule onto the schedule the
// updated event yields.  Years that fell out of the schedule lose their
// untouched renewal; renewals in the workflow stay whatever happens.  Nothing
// moves while the country parameters are unusable.
func (e *RuleEvaluator) realign(plan *Plan, in EvaluationInput, rule *TaskRule, events EventSet, open []*Task, dropped map[int64]bool) {
	res := e.Schedule.Generate(e.scheduleInput(in, rule, events))
	if res.Diagnostic != nil {
		return
	}
	due := make(map[int]time.Time, len(res.Tasks)+len(res.Skipped))
	for _, t := range res.Tasks {
		if y, ok := RenewalYear(t); ok {
			due[y] = t.DueDate
		}
	}
	// A renewal that exists already is kept even when its year is now
	// older than the look-back window.
	for _, sk := range res.Skipped {
		due[sk.Year] = sk.DueDate
	}

	for _, t := range open {
		y, ok := RenewalYear(t)
		if !ok {
			continue
		}
		d, scheduled := due[y]
		switch {
		case !scheduled && t.Untouched():
			dropped[t.ID] = true
			plan.Actions = append(plan.Actions, TaskAction{Kind: ActionDelete, RuleID: rule.ID, Task: t})
		case scheduled && !d.Equal(Day(t.DueDate)):
			plan.Actions = append(plan.Actions, TaskAction{Kind: ActionReschedule, RuleID: rule.ID, Task: movedTask(t, d, in.Actor)})
		}
	}
}

func movedTask(t *Task, due time.Time, actor Actor) *Task {
	m := *t
	m.DueDate = due
	m.UpdaterID = actor.Login()
	return &m
}

func checkInput(in EvaluationInput) error {
	if in.Matter == nil || in.Event == nil {
		return errors.InvalidParam("evaluation needs a matter and an event")
	}
	if !in.Event.HasDate() {
		return errors.New(errors.CodeEventDateUnresolved, "trigger event has no date").
			WithDetailf("matter_id=%d event_id=%d", in.Matter.ID, in.Event.ID)
	}
	return nil
}

func eventsWith(events []*Event, trigger *Event) EventSet {
	found := false
	for _, ev := range events {
		if ev == trigger || (trigger.ID != 0 && ev.ID == trigger.ID) {
			found = true
			break
		}
	}
	if !found {
		events = append(append([]*Event(nil), events...), trigger)
	}
	return NewEventSet(events)
}

func (e *RuleEvaluator) evaluate(in EvaluationInput, keep func(*TaskRule) bool, dropped map[int64]bool) (Plan, error) {
	if err := checkInput(in); err != nil {
		return Plan{}, err
	}
	plan := Plan{EventID: in.Event.ID, MatterID: in.Matter.ID}
	events := eventsWith(in.Events, in.Event)
	touched := make(map[int64]bool)

	for _, rule := range SelectRules(in.Rules, in.Matter, in.Event.Code) {
		if keep != nil && !keep(rule) {
			continue
		}
		if err := rule.Validate(in.KnownCodes); err != nil {
			return Plan{}, err
		}
		if rule.AbortOn != nil && *rule.AbortOn != "" && events.Has(*rule.AbortOn) {
			plan.skip(rule, "abort event "+*rule.AbortOn+" present")
			continue
		}
		if rule.ConditionEvent != nil && *rule.ConditionEvent != "" && !events.Has(*rule.ConditionEvent) {
			plan.skip(rule, "condition event "+*rule.ConditionEvent+" absent")
			continue
		}
		if !rule.ValidOn(e.anchorDate(rule, in.Event, events)) {
			plan.skip(rule, "outside rule validity window")
			continue
		}

		switch rule.Mode() {
		case ModeDelete:
			for _, t := range in.Tasks {
				if !t.Pending() || t.Code != rule.TaskCode || touched[t.ID] || dropped[t.ID] {
					continue
				}
				touched[t.ID] = true
				if !t.Untouched() {
					plan.skip(rule, "task "+strconv.FormatInt(t.ID, 10)+" is in the renewal workflow")
					continue
				}
				plan.Actions = append(plan.Actions, TaskAction{Kind: ActionDelete, RuleID: rule.ID, Task: t})
			}
		case ModeClear:
			doneAt := Day(in.Event.EventDate)
			for _, t := range in.Tasks {
				if !t.Pending() || t.Code != rule.TaskCode || touched[t.ID] || dropped[t.ID] {
					continue
				}
				touched[t.ID] = true
				cleared := *t
				cleared.SetDone(true, &doneAt, in.Today)
				cleared.UpdaterID = in.Actor.Login()
				plan.Actions = append(plan.Actions, TaskAction{Kind: ActionClear, RuleID: rule.ID, Task: &cleared})
			}
		default:
			if in.Matter.Dead {
				plan.skip(rule, "matter is dead")
				continue
			}
			if rule.Recurring {
				e.schedule(&plan, in, rule, events, dropped)
				continue
			}
			if hasRuleTask(in.Tasks, in.Event.ID, rule.ID, dropped) {
				plan.skip(rule, "task already generated")
				continue
			}
			due, err := e.dueDate(rule, in.Event, events)
			if err != nil {
				return Plan{}, err
			}
			plan.Actions = append(plan.Actions, TaskAction{Kind: ActionCreate, RuleID: rule.ID, Task: newRuleTask(rule, in, due)})
		}
	}
	return plan, nil
}

func (e *RuleEvaluator) scheduleInput(in EvaluationInput, rule *TaskRule, events EventSet) ScheduleInput {
	si := ScheduleInput{
		TriggerID:   in.Event.ID,
		RuleID:      &rule.ID,
		Matter:      in.Matter,
		TriggerDate: in.Event.EventDate,
		Country:     in.Country,
		AssignedTo:  responsibleFor(rule, in.Matter),
		Actor:       in.Actor,
		Today:       in.Today,
	}
	if in.Country != nil {
		if ev, ok := events.Earliest(in.Country.BaseEvent); ok {
			d := ev.EventDate
			si.BaseEventDate = &d
		}
		if ev, ok := events.Earliest(in.Country.StartEvent); ok {
			d := ev.EventDate
			si.StartEventDate = &d
		}
	}
	return si
}

func (e *RuleEvaluator) schedule(plan *Plan, in EvaluationInput, rule *TaskRule, events EventSet, dropped map[int64]bool) {
	res := e.Schedule.Generate(e.scheduleInput(in, rule, events))
	if res.Diagnostic != nil {
		plan.Diagnostics = append(plan.Diagnostics, res.Diagnostic)
		plan.skip(rule, "renewal schedule skipped")
		return
	}

	existing := make(map[int]bool)
	for _, t := range in.Tasks {
		if t.TriggerID != in.Event.ID || t.RuleUsed == nil || *t.RuleUsed != rule.ID || dropped[t.ID] {
			continue
		}
		if y, ok := RenewalYear(t); ok {
			existing[y] = true
		}
	}
	fresh := res.Tasks[:0:0]
	for _, t := range res.Tasks {
		if y, _ := RenewalYear(t); !existing[y] {
			fresh = append(fresh, t)
		}
	}
	var skipped []SkippedYear
	for _, sk := range res.Skipped {
		if !existing[sk.Year] {
			skipped = append(skipped, sk)
		}
	}
	if len(fresh) == 0 && len(skipped) == 0 {
		plan.skip(rule, "no renewal due")
		return
	}
	plan.Actions = append(plan.Actions, TaskAction{Kind: ActionSchedule, RuleID: rule.ID, Tasks: fresh, Skipped: skipped})
}

// anchorDate is the trigger date, or the earliest priority date when the rule
// asks for it and one exists.
func (e *RuleEvaluator) anchorDate(rule *TaskRule, ev *Event, events EventSet) time.Time {
	if rule.UsePriority {
		code := e.PriorityCode
		if code == "" {
			code = "PRI"
		}
		if pri, ok := events.Earliest(code); ok {
			return Day(pri.EventDate)
		}
	}
	return Day(ev.EventDate)
}

func (e *RuleEvaluator) dueDate(rule *TaskRule, ev *Event, events EventSet) (time.Time, error) {
	due := AddOffset(e.anchorDate(rule, ev, events), rule.Days, rule.Months, rule.Years)
	if rule.EndOfMonth {
		due = EndOfMonth(due)
	}
	if y := due.Year(); y < 1900 || y > 2999 {
		return time.Time{}, errors.New(errors.CodeRuleInvalid, "rule offset produces an out-of-range date").
			WithDetailf("rule_id=%d event_id=%d due=%s", rule.ID, ev.ID, due.Format("2006-01-02"))
	}
	return due, nil
}

func hasRuleTask(tasks []*Task, triggerID, ruleID int64, dropped map[int64]bool) bool {
	for _, t := range tasks {
		if t.TriggerID == triggerID && t.RuleUsed != nil && *t.RuleUsed == ruleID && !dropped[t.ID] {
			return true
		}
	}
	return false
}

func responsibleFor(rule *TaskRule, m *Matter) string {
	if rule.Responsible != nil && *rule.Responsible != "" {
		return *rule.Responsible
	}
	return m.ResponsibleID
}

func newRuleTask(rule *TaskRule, in EvaluationInput, due time.Time) *Task {
	id := rule.ID
	return &Task{
		Code:       rule.TaskCode,
		TriggerID:  in.Event.ID,
		MatterID:   in.Matter.ID,
		DueDate:    due,
		Detail:     rule.Detail,
		RuleUsed:   &id,
		AssignedTo: responsibleFor(rule, in.Matter),
		Cost:       rule.Cost,
		Fee:        rule.Fee,
		Currency:   rule.Currency,
		Step:       StepPending,
		CreatorID:  in.Actor.Login(),
	}
}

//Personal.AI order the ending
