package docket

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

// Labels holds a short text per language code, e.g. {"en": "Year 3"}.
type Labels map[string]string

// Task is a concrete deadline attached to its trigger event.
type Task struct {
	ID          int64               `json:"id"`
	Code        string              `json:"code"`
	TriggerID   int64               `json:"trigger_id"`
	MatterID    int64               `json:"matter_id"`
	DueDate     time.Time           `json:"due_date"`
	Done        bool                `json:"done"`
	DoneDate    *time.Time          `json:"done_date,omitempty"`
	AssignedTo  string              `json:"assigned_to,omitempty"`
	Detail      Labels              `json:"detail,omitempty"`
	Cost        decimal.NullDecimal `json:"cost"`
	Fee         decimal.NullDecimal `json:"fee"`
	Currency    string              `json:"currency,omitempty"`
	Step        Step                `json:"step"`
	InvoiceStep InvoiceStep         `json:"invoice_step"`
	GracePeriod bool                `json:"grace_period"`
	RuleUsed    *int64              `json:"rule_used,omitempty"`
	CreatorID   string              `json:"creator,omitempty"`
	UpdaterID   string              `json:"updater,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Version     int64               `json:"version"`
}

// SetDone flips the done flag keeping done_date consistent: marking done
// without a date uses today, un-marking clears the date.
func (t *Task) SetDone(done bool, at *time.Time, today time.Time) {
	if !done {
		t.Done = false
		t.DoneDate = nil
		return
	}
	d := Day(today)
	if at != nil && !at.IsZero() {
		d = Day(*at)
	}
	if t.Done && t.DoneDate != nil && at == nil {
		return
	}
	t.Done = true
	t.DoneDate = &d
}

// CheckConsistency reports a task whose done flag and done_date disagree.
func (t *Task) CheckConsistency() error {
	if t.Done && t.DoneDate == nil {
		return errors.New(errors.CodeTaskDoneInconsistent, "done task has no done_date").WithDetailf("task_id=%d", t.ID)
	}
	if !t.Done && t.DoneDate != nil {
		return errors.New(errors.CodeTaskDoneInconsistent, "pending task has a done_date").WithDetailf("task_id=%d", t.ID)
	}
	return nil
}

// Pending reports whether the task still awaits action.
func (t *Task) Pending() bool {
	return !t.Done
}

// Untouched reports whether a pending task has not entered the renewal
// workflow: no step, invoice step or grace flag was ever applied.  Only such
// tasks may be deleted or regenerated, since every workflow move left a
// renewals log row behind.
func (t *Task) Untouched() bool {
	return t.Pending() && t.Step == StepPending && t.InvoiceStep == InvoiceNone && !t.GracePeriod
}

// IsRenewal reports whether the task carries the given renewal code.
func (t *Task) IsRenewal(renewalCode string) bool {
	return t.Code == renewalCode
}

//Personal.AI order the ending
