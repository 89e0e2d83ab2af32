package docket

import (
	"fmt"
	"sort"
	"time"

	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

// Step is the processing stage of a renewal task.  Odd values are reserved
// for transient states and are never written by this package.
type Step int

const (
	StepDone      Step = -1
	StepPending   Step = 0
	StepFirstCall Step = 2
	StepToPay     Step = 4
	StepCleared   Step = 6
	StepReceipt   Step = 8
	StepClosed    Step = 10
	StepAbandoned Step = 12
	StepLapsed    Step = 14
)

var stepNames = map[Step]string{
	StepDone:      "DONE",
	StepPending:   "PENDING",
	StepFirstCall: "FIRST_CALL",
	StepToPay:     "TO_PAY",
	StepCleared:   "CLEARED",
	StepReceipt:   "RECEIPT",
	StepClosed:    "CLOSED",
	StepAbandoned: "ABANDONED",
	StepLapsed:    "LAPSED",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("STEP(%d)", int(s))
}

// Terminal reports whether no further step transition is allowed.
func (s Step) Terminal() bool {
	switch s {
	case StepClosed, StepAbandoned, StepLapsed, StepDone:
		return true
	}
	return false
}

// InvoiceStep tracks invoicing independently of Step.
type InvoiceStep int

const (
	InvoiceNone      InvoiceStep = 0
	InvoiceToInvoice InvoiceStep = 1
	InvoiceInvoiced  InvoiceStep = 2
	InvoicePaid      InvoiceStep = 3
)

func (s InvoiceStep) String() string {
	switch s {
	case InvoiceNone:
		return "NONE"
	case InvoiceToInvoice:
		return "TO_INVOICE"
	case InvoiceInvoiced:
		return "INVOICED"
	case InvoicePaid:
		return "PAID"
	}
	return fmt.Sprintf("INVOICE(%d)", int(s))
}

// Transition is a named batch action.
type Transition string

const (
	TransitionFirstCall   Transition = "first-call"
	TransitionToPay       Transition = "to-pay"
	TransitionCleared     Transition = "cleared"
	TransitionReceipt     Transition = "receipt"
	TransitionClosed      Transition = "closed"
	TransitionAbandoned   Transition = "abandoned"
	TransitionLapsed      Transition = "lapsed"
	TransitionGracePeriod Transition = "grace-period"
	TransitionToInvoice   Transition = "to-invoice"
	TransitionInvoiced    Transition = "invoiced"
	TransitionPaid        Transition = "paid"
	TransitionDone        Transition = "done"
)

type effect struct {
	step    *Step
	invoice *InvoiceStep
	done    *bool
	grace   bool
}

func stepTo(s Step, done bool) effect {
	return effect{step: &s, done: &done}
}

func invoiceTo(s InvoiceStep) effect {
	return effect{invoice: &s}
}

func (e effect) isInvoice() bool   { return e.invoice != nil }
func (e effect) touchesStep() bool { return e.step != nil || e.grace }

var transitions = map[Transition]effect{
	TransitionFirstCall:   stepTo(StepFirstCall, false),
	TransitionToPay:       stepTo(StepToPay, false),
	TransitionCleared:     stepTo(StepCleared, true),
	TransitionReceipt:     stepTo(StepReceipt, true),
	TransitionClosed:      stepTo(StepClosed, true),
	TransitionAbandoned:   stepTo(StepAbandoned, true),
	TransitionLapsed:      stepTo(StepLapsed, true),
	TransitionDone:        stepTo(StepDone, true),
	TransitionGracePeriod: {grace: true},
	TransitionToInvoice:   invoiceTo(InvoiceToInvoice),
	TransitionInvoiced:    invoiceTo(InvoiceInvoiced),
	TransitionPaid:        invoiceTo(InvoicePaid),
}

// ParseTransition validates a transition name.
func ParseTransition(name string) (Transition, error) {
	t := Transition(name)
	if _, ok := transitions[t]; !ok {
		return "", errors.New(errors.CodeTransitionUnknown, "unknown renewal transition").WithDetailf("transition=%q", name)
	}
	return t, nil
}

// Transitions lists the known transition names in a stable order.
func Transitions() []Transition {
	out := make([]Transition, 0, len(transitions))
	for t := range transitions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RenewalsLog is an append-only record of one task transition.
type RenewalsLog struct {
	ID              int64       `json:"id"`
	TaskID          int64       `json:"task_id"`
	JobID           string      `json:"job_id,omitempty"`
	FromStep        Step        `json:"from_step"`
	ToStep          Step        `json:"to_step"`
	FromInvoiceStep InvoiceStep `json:"from_invoice_step"`
	ToInvoiceStep   InvoiceStep `json:"to_invoice_step"`
	FromGrace       bool        `json:"from_grace"`
	ToGrace         bool        `json:"to_grace"`
	FromDone        bool        `json:"from_done"`
	ToDone          bool        `json:"to_done"`
	Creator         string      `json:"creator"`
	CreatedAt       time.Time   `json:"created_at"`
}

// SkippedTask is a task a batch left untouched.
type SkippedTask struct {
	TaskID int64            `json:"task_id"`
	Code   errors.ErrorCode `json:"code"`
	Reason string           `json:"reason"`
}

// BatchOutcome is the partial-success report of a batch transition.
type BatchOutcome struct {
	Transition Transition     `json:"transition"`
	Requested  int            `json:"requested"`
	Affected   int            `json:"affected"`
	Updated    []*Task        `json:"-"`
	Logs       []*RenewalsLog `json:"-"`
	Skipped    []SkippedTask  `json:"skipped,omitempty"`
}

// Skip records a task that was not transitioned.
func (o *BatchOutcome) Skip(taskID int64, code errors.ErrorCode, reason string) {
	o.Skipped = append(o.Skipped, SkippedTask{TaskID: taskID, Code: code, Reason: reason})
}

// Workflow applies renewal transitions.
type Workflow struct{}

// Apply validates tr for every task individually and returns updated copies
// plus one log row per changed task.  The input tasks are not modified.
// Terminal tasks reject step transitions, invoice steps never move backwards
// and tasks already in the target state are skipped.
func (Workflow) Apply(tr Transition, tasks []*Task, actor Actor, now time.Time) (BatchOutcome, error) {
	eff, ok := transitions[tr]
	if !ok {
		return BatchOutcome{}, errors.New(errors.CodeTransitionUnknown, "unknown renewal transition").WithDetailf("transition=%q", tr)
	}
	out := BatchOutcome{Transition: tr, Requested: len(tasks)}
	if len(tasks) == 0 {
		return out, nil
	}

	for _, t := range tasks {
		if eff.touchesStep() && t.Step.Terminal() {
			out.Skip(t.ID, errors.CodeTerminalState, fmt.Sprintf("task is %s", t.Step))
			continue
		}
		if eff.isInvoice() && (t.Step == StepAbandoned || t.Step == StepLapsed) {
			out.Skip(t.ID, errors.CodeTerminalState, fmt.Sprintf("task is %s", t.Step))
			continue
		}
		if eff.isInvoice() && *eff.invoice < t.InvoiceStep {
			out.Skip(t.ID, errors.CodeInvoiceStepRegression,
				fmt.Sprintf("invoice step %s cannot go back to %s", t.InvoiceStep, *eff.invoice))
			continue
		}

		next := *t
		if eff.step != nil {
			next.Step = *eff.step
		}
		if eff.invoice != nil {
			next.InvoiceStep = *eff.invoice
		}
		if eff.grace {
			next.GracePeriod = true
		}
		if eff.done != nil && *eff.done != t.Done {
			next.SetDone(*eff.done, nil, now)
		}

		if next.Step == t.Step && next.InvoiceStep == t.InvoiceStep && next.Done == t.Done && next.GracePeriod == t.GracePeriod {
			out.Skip(t.ID, errors.CodeOK, "already in target state")
			continue
		}

		next.UpdaterID = actor.Login()
		out.Updated = append(out.Updated, &next)
		out.Logs = append(out.Logs, &RenewalsLog{
			TaskID:          t.ID,
			JobID:           string(actor.JobID),
			FromStep:        t.Step,
			ToStep:          next.Step,
			FromInvoiceStep: t.InvoiceStep,
			ToInvoiceStep:   next.InvoiceStep,
			FromGrace:       t.GracePeriod,
			ToGrace:         next.GracePeriod,
			FromDone:        t.Done,
			ToDone:          next.Done,
			Creator:         actor.Login(),
			CreatedAt:       now,
		})
	}
	out.Affected = len(out.Updated)
	return out, nil
}

//Personal.AI order the ending
