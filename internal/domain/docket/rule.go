package docket

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

// Filter is a nullable applicability column of a task rule: a nil value
// matches any matter, a set value matches only an equal one.
type Filter struct {
	Value *string
}

// Any is the filter that matches every value.
var Any = Filter{}

// Only returns a filter restricted to v.
func Only(v string) Filter {
	return Filter{Value: &v}
}

// FilterOf wraps a nullable column.
func FilterOf(v *string) Filter {
	return Filter{Value: v}
}

// IsAny reports whether the filter is unrestricted.
func (f Filter) IsAny() bool {
	return f.Value == nil
}

// Matches reports whether v satisfies the filter.
func (f Filter) Matches(v string) bool {
	return f.Value == nil || *f.Value == v
}

// String renders the filter for diagnostics.
func (f Filter) String() string {
	if f.Value == nil {
		return "*"
	}
	return *f.Value
}

// RuleMode is the single action a rule performs when it fires.
type RuleMode int

const (
	ModeCreate RuleMode = iota
	ModeClear
	ModeDelete
)

func (m RuleMode) String() string {
	switch m {
	case ModeClear:
		return "clear"
	case ModeDelete:
		return "delete"
	default:
		return "create"
	}
}

// TaskRule declares which task an event triggers on which matters.
type TaskRule struct {
	ID             int64               `json:"id"`
	Active         bool                `json:"active"`
	ForCategory    Filter              `json:"-"`
	ForCountry     Filter              `json:"-"`
	ForOrigin      Filter              `json:"-"`
	ForType        Filter              `json:"-"`
	TriggerEvent   string              `json:"trigger_event"`
	TaskCode       string              `json:"task"`
	Detail         Labels              `json:"detail,omitempty"`
	Days           int                 `json:"days"`
	Months         int                 `json:"months"`
	Years          int                 `json:"years"`
	Recurring      bool                `json:"recurring"`
	EndOfMonth     bool                `json:"end_of_month"`
	UsePriority    bool                `json:"use_priority"`
	AbortOn        *string             `json:"abort_on,omitempty"`
	ConditionEvent *string             `json:"condition_event,omitempty"`
	ClearTask      bool                `json:"clear_task"`
	DeleteTask     bool                `json:"delete_task"`
	Responsible    *string             `json:"responsible,omitempty"`
	Cost           decimal.NullDecimal `json:"cost"`
	Fee            decimal.NullDecimal `json:"fee"`
	Currency       string              `json:"currency,omitempty"`
	UseBefore      *time.Time          `json:"use_before,omitempty"`
	UseAfter       *time.Time          `json:"use_after,omitempty"`
}

// Mode returns the action of the rule.  Delete wins over clear when a row
// carries both flags, so a rule never performs two mutations.
func (r *TaskRule) Mode() RuleMode {
	switch {
	case r.DeleteTask:
		return ModeDelete
	case r.ClearTask:
		return ModeClear
	default:
		return ModeCreate
	}
}

// Applies reports whether the rule's filters accept the matter.
func (r *TaskRule) Applies(m *Matter) bool {
	return r.ForCategory.Matches(string(m.Category)) &&
		r.ForCountry.Matches(m.Country) &&
		r.ForOrigin.Matches(m.OriginCode()) &&
		r.ForType.Matches(m.Type())
}

// ValidOn reports whether the rule's validity window contains the anchor
// date.  UseBefore and UseAfter are exclusive bounds.
func (r *TaskRule) ValidOn(anchor time.Time) bool {
	if r.UseBefore != nil && !anchor.Before(*r.UseBefore) {
		return false
	}
	if r.UseAfter != nil && !anchor.After(*r.UseAfter) {
		return false
	}
	return true
}

// specificity counts the restricted filters; used to let a country-specific
// rule shadow a generic one.
func (r *TaskRule) specificity() int {
	n := 0
	for _, f := range []Filter{r.ForCountry, r.ForOrigin, r.ForType} {
		if !f.IsAny() {
			n++
		}
	}
	return n
}

type shadowKey struct {
	trigger  string
	task     string
	category string
	mode     RuleMode
}

func (r *TaskRule) shadowKey() shadowKey {
	return shadowKey{trigger: r.TriggerEvent, task: r.TaskCode, category: r.ForCategory.String(), mode: r.Mode()}
}

// Validate checks a rule against the event-code catalog.  A nil catalog skips
// the code checks.
func (r *TaskRule) Validate(known map[string]bool) error {
	invalid := func(msg string) error {
		return errors.New(errors.CodeRuleInvalid, msg).WithDetailf("rule_id=%d", r.ID)
	}
	if r.TriggerEvent == "" {
		return invalid("rule has no trigger event")
	}
	if r.TaskCode == "" {
		return invalid("rule has no task code")
	}
	if known == nil {
		return nil
	}
	for _, code := range []*string{&r.TriggerEvent, &r.TaskCode, r.AbortOn, r.ConditionEvent} {
		if code != nil && *code != "" && !known[*code] {
			return errors.New(errors.CodeRuleInvalid, "rule references unknown event code").
				WithDetailf("rule_id=%d code=%s", r.ID, *code)
		}
	}
	return nil
}

// SelectRules returns the active rules for the trigger code that apply to the
// matter.  Among rules sharing trigger, task, category and mode only the most
// specific survive, so a country rule replaces the generic default.
func SelectRules(rules []*TaskRule, m *Matter, trigger string) []*TaskRule {
	best := make(map[shadowKey]int)
	var matched []*TaskRule
	for _, r := range rules {
		if !r.Active || r.TriggerEvent != trigger || !r.Applies(m) {
			continue
		}
		matched = append(matched, r)
		k := r.shadowKey()
		if s := r.specificity(); s > best[k] {
			best[k] = s
		}
	}
	out := matched[:0:0]
	for _, r := range matched {
		if r.specificity() == best[r.shadowKey()] {
			out = append(out, r)
		}
	}
	return out
}

//Personal.AI order the ending
