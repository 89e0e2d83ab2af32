package docket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

var wfNow = time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC)

func TestWorkflow_EmptyBatch(t *testing.T) {
	out, err := Workflow{}.Apply(TransitionToPay, nil, UserActor("clerk"), wfNow)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Affected)
	assert.Empty(t, out.Logs)
	assert.Empty(t, out.Updated)
}

func TestWorkflow_MarkToPayFromPending(t *testing.T) {
	task := &Task{ID: 1, Code: "REN", Step: StepPending, Version: 3}

	out, err := Workflow{}.Apply(TransitionToPay, []*Task{task}, UserActor("clerk"), wfNow)
	require.NoError(t, err)
	require.Equal(t, 1, out.Affected)
	require.Len(t, out.Logs, 1)

	log := out.Logs[0]
	assert.Equal(t, int64(1), log.TaskID)
	assert.Equal(t, StepPending, log.FromStep)
	assert.Equal(t, StepToPay, log.ToStep)
	assert.Equal(t, 0, int(log.FromStep))
	assert.Equal(t, 4, int(log.ToStep))
	assert.Equal(t, "clerk", log.Creator)
	assert.Empty(t, log.JobID)

	assert.Equal(t, StepToPay, out.Updated[0].Step)
	assert.Equal(t, int64(3), out.Updated[0].Version)
	assert.Equal(t, StepPending, task.Step, "input must not be modified")
}

func TestWorkflow_TerminalTasksRejectedPerTask(t *testing.T) {
	tasks := []*Task{
		{ID: 1, Step: StepPending},
		{ID: 2, Step: StepClosed, Done: true},
		{ID: 3, Step: StepFirstCall},
		{ID: 4, Step: StepLapsed, Done: true},
	}
	out, err := Workflow{}.Apply(TransitionToPay, tasks, JobActor("clerk", "job-1"), wfNow)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Requested)
	assert.Equal(t, 2, out.Affected)
	require.Len(t, out.Skipped, 2)
	assert.Equal(t, int64(2), out.Skipped[0].TaskID)
	assert.Equal(t, errors.CodeTerminalState, out.Skipped[0].Code)
	assert.Equal(t, int64(4), out.Skipped[1].TaskID)
	for _, l := range out.Logs {
		assert.Equal(t, "job-1", l.JobID)
	}
}

func TestWorkflow_ClearedMarksDone(t *testing.T) {
	task := &Task{ID: 1, Step: StepToPay}
	out, err := Workflow{}.Apply(TransitionCleared, []*Task{task}, UserActor("clerk"), wfNow)
	require.NoError(t, err)
	require.Len(t, out.Updated, 1)

	got := out.Updated[0]
	assert.Equal(t, StepCleared, got.Step)
	assert.True(t, got.Done)
	require.NotNil(t, got.DoneDate)
	assert.Equal(t, Date(2024, 5, 2), *got.DoneDate)
	assert.False(t, out.Logs[0].FromDone)
	assert.True(t, out.Logs[0].ToDone)
	assert.NoError(t, got.CheckConsistency())
}

func TestWorkflow_BackToPayReopensTask(t *testing.T) {
	d := Date(2024, 4, 1)
	task := &Task{ID: 1, Step: StepCleared, Done: true, DoneDate: &d}
	out, err := Workflow{}.Apply(TransitionToPay, []*Task{task}, UserActor("clerk"), wfNow)
	require.NoError(t, err)
	require.Len(t, out.Updated, 1)
	assert.False(t, out.Updated[0].Done)
	assert.Nil(t, out.Updated[0].DoneDate)
}

func TestWorkflow_InvoiceSteps(t *testing.T) {
	tasks := []*Task{
		{ID: 1, Step: StepCleared, InvoiceStep: InvoiceNone},
		{ID: 2, Step: StepClosed, InvoiceStep: InvoiceToInvoice},
		{ID: 3, Step: StepCleared, InvoiceStep: InvoicePaid},
		{ID: 4, Step: StepAbandoned, InvoiceStep: InvoiceNone},
		{ID: 5, Step: StepCleared, InvoiceStep: InvoiceInvoiced},
	}
	out, err := Workflow{}.Apply(TransitionInvoiced, tasks, UserActor("billing"), wfNow)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Affected)

	reasons := map[int64]errors.ErrorCode{}
	for _, s := range out.Skipped {
		reasons[s.TaskID] = s.Code
	}
	assert.Equal(t, errors.CodeInvoiceStepRegression, reasons[3])
	assert.Equal(t, errors.CodeTerminalState, reasons[4])
	assert.Equal(t, errors.CodeOK, reasons[5])

	for _, l := range out.Logs {
		assert.Equal(t, InvoiceInvoiced, l.ToInvoiceStep)
	}
	assert.Equal(t, StepClosed, out.Updated[1].Step)
}

func TestWorkflow_GracePeriodFlag(t *testing.T) {
	out, err := Workflow{}.Apply(TransitionGracePeriod, []*Task{{ID: 1, Step: StepFirstCall}}, UserActor("clerk"), wfNow)
	require.NoError(t, err)
	require.Len(t, out.Updated, 1)
	assert.True(t, out.Updated[0].GracePeriod)
	assert.Equal(t, StepFirstCall, out.Updated[0].Step)
	assert.True(t, out.Logs[0].ToGrace)
	assert.False(t, out.Logs[0].FromGrace)
}

func TestWorkflow_UnchangedTaskSkipped(t *testing.T) {
	out, err := Workflow{}.Apply(TransitionFirstCall, []*Task{{ID: 1, Step: StepFirstCall}}, UserActor("clerk"), wfNow)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Affected)
	assert.Empty(t, out.Logs)
	require.Len(t, out.Skipped, 1)
}

func TestWorkflow_UnknownTransition(t *testing.T) {
	_, err := Workflow{}.Apply("teleport", []*Task{{ID: 1}}, UserActor("clerk"), wfNow)
	assert.True(t, errors.IsCode(err, errors.CodeTransitionUnknown))

	_, err = ParseTransition("teleport")
	assert.True(t, errors.IsCode(err, errors.CodeTransitionUnknown))

	tr, err := ParseTransition("to-pay")
	require.NoError(t, err)
	assert.Equal(t, TransitionToPay, tr)
}

func TestTransitions_Listed(t *testing.T) {
	all := Transitions()
	assert.Len(t, all, 12)
	assert.Contains(t, all, TransitionLapsed)
}

func TestStep_Strings(t *testing.T) {
	assert.Equal(t, "TO_PAY", StepToPay.String())
	assert.Equal(t, "STEP(5)", Step(5).String())
	assert.Equal(t, "PAID", InvoicePaid.String())
	assert.True(t, StepDone.Terminal())
	assert.False(t, StepReceipt.Terminal())
}

//Personal.AI order the ending
