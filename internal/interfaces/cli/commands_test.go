package cli

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	app "github.com/turtacn/KeyIP-Docket/internal/application/docket"
	domain "github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
	"github.com/turtacn/KeyIP-Docket/pkg/types/common"
)

var tester = domain.UserActor("tester")

func TestMigrateCommands(t *testing.T) {
	h := newHarness()
	h.migrator.On("Up").Return(nil).Once()
	h.migrator.On("Down", 2).Return(nil).Once()
	h.migrator.On("Force", 3).Return(nil).Once()
	h.migrator.On("Status").Return(postgres.MigrationState{Version: 3, Dirty: true}, nil).Once()

	out, _, err := h.run("migrate", "up")
	require.NoError(t, err)
	assert.Equal(t, "OK: migrations applied\n", out)

	out, _, err = h.run("migrate", "down", "--steps", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "rolled back 2")

	out, _, err = h.run("migrate", "force", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "forced to 3")

	out, _, err = h.run("-o", "json", "migrate", "status")
	require.NoError(t, err)
	var st migrationStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, migrationStatus{Version: 3, Dirty: true}, st)

	h.migrator.AssertExpectations(t)
	assert.Zero(t, h.opened)
}

func TestMigrateCommands_Rejects(t *testing.T) {
	h := newHarness()
	_, _, err := h.run("migrate", "down", "--steps", "0")
	assert.Error(t, err)
	_, _, err = h.run("migrate", "force", "abc")
	assert.Error(t, err)
	h.migrator.AssertNotCalled(t, "Down", mock.Anything)
	h.migrator.AssertNotCalled(t, "Force", mock.Anything)
}

func TestMatterSave_Create(t *testing.T) {
	h := newHarness()
	h.matters.On("Save", mock.Anything, tester, mock.MatchedBy(func(m *domain.Matter) bool {
		return m.ID == 0 && m.CaseRef == "ACME01" && m.Country == "FR" &&
			m.Category == domain.CategoryPatent && *m.Origin == "EP" &&
			m.ExpireDate.Equal(domain.Date(2040, 6, 15)) && m.Discount.Equal(decimal.RequireFromString("0.5"))
	})).Return(&domain.Matter{ID: 9, UID: "ACME01FR-EP", Category: domain.CategoryPatent, Version: 1}, nil).Once()

	out, _, err := h.run("matter", "save", "--caseref", "ACME01", "--country", "fr", "--category", "pat",
		"--origin", "ep", "--expire", "2040-06-15", "--discount", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "ACME01FR-EP")
	h.matters.AssertExpectations(t)
	assert.Equal(t, 1, h.closed)
}

func TestMatterSave_UpdateOverlaysFlags(t *testing.T) {
	h := newHarness()
	origin := "WO"
	current := &domain.Matter{ID: 4, CaseRef: "TEST001", Country: "US", Category: domain.CategoryPatent,
		Origin: &origin, ResponsibleID: "owner", CreatorID: "alice", Version: 3}
	h.matters.On("Get", mock.Anything, int64(4)).Return(current, nil).Once()
	h.matters.On("Save", mock.Anything, tester, mock.MatchedBy(func(m *domain.Matter) bool {
		return m.ID == 4 && m.CaseRef == "TEST001" && m.Origin != nil && *m.Origin == "WO" &&
			m.ResponsibleID == "bob" && m.Dead && m.Version == 3
	})).Return(current, nil).Once()

	_, _, err := h.run("matter", "save", "--id", "4", "--responsible", "bob", "--dead", "--version", "3")
	require.NoError(t, err)
	h.matters.AssertExpectations(t)
}

func TestMatterGet(t *testing.T) {
	h := newHarness()
	h.matters.On("GetByUID", mock.Anything, "TEST001US").
		Return(&domain.Matter{ID: 1, UID: "TEST001US"}, nil).Once()
	h.matters.On("Get", mock.Anything, int64(99)).
		Return(nil, errors.New(errors.CodeMatterNotFound, "matter not found")).Once()

	out, _, err := h.run("-o", "json", "matter", "get", "--uid", "TEST001US")
	require.NoError(t, err)
	var m domain.Matter
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, int64(1), m.ID)

	_, _, err = h.run("matter", "get", "99")
	assert.True(t, errors.IsCode(err, errors.CodeMatterNotFound))

	_, _, err = h.run("matter", "get")
	assert.Error(t, err)
}

func TestEventRecord(t *testing.T) {
	h := newHarness()
	h.events.On("Save", mock.Anything, tester, mock.MatchedBy(func(r *app.SaveEventRequest) bool {
		return r.MatterID == 12 && r.Code == "FIL" && r.EventDate.Equal(domain.Date(2020, 6, 15)) && r.AltMatterID == nil
	})).Return(&app.EventResult{
		Event:       &domain.Event{ID: 5},
		Scheduled:   []int64{1, 2, 3},
		Diagnostics: []string{"country FR has no renewal parameters"},
	}, nil).Once()

	out, _, err := h.run("event", "record", "--matter", "12", "--code", "fil", "--date", "2020-06-15")
	require.NoError(t, err)
	assert.Contains(t, out, "1,2,3")
	assert.Contains(t, out, "country FR has no renewal parameters")
	h.events.AssertExpectations(t)
}

func TestEventRecord_AltMatter(t *testing.T) {
	h := newHarness()
	h.events.On("Save", mock.Anything, tester, mock.MatchedBy(func(r *app.SaveEventRequest) bool {
		return r.AltMatterID != nil && *r.AltMatterID == 7 && r.EventDate.IsZero()
	})).Return(&app.EventResult{Event: &domain.Event{ID: 6}}, nil).Once()

	_, _, err := h.run("event", "record", "--matter", "12", "--code", "PRI", "--alt-matter", "7")
	require.NoError(t, err)
	h.events.AssertExpectations(t)
}

func TestEventRecord_Rejects(t *testing.T) {
	h := newHarness()
	_, _, err := h.run("event", "record", "--code", "FIL")
	assert.Error(t, err)
	_, _, err = h.run("event", "record", "--matter", "1", "--code", "FIL", "--date", "15/06/2020")
	assert.Error(t, err)
	assert.Zero(t, h.opened)
}

func TestEventReevaluate(t *testing.T) {
	h := newHarness()
	h.events.On("Reevaluate", mock.Anything, tester, int64(42)).
		Return(&app.EventResult{Event: &domain.Event{ID: 42}, Rescheduled: []int64{8}}, nil).Once()

	out, _, err := h.run("event", "reevaluate", "42")
	require.NoError(t, err)
	assert.Contains(t, out, app.ChangeRescheduled)
	h.events.AssertExpectations(t)
}

func TestRenewalQuote(t *testing.T) {
	h := newHarness()
	q := domain.Quote{
		TaskID: 3, MatterUID: "TEST001US", Year: 2, DueDate: domain.Date(2021, 6, 15),
		Cost: decimal.NewFromInt(100), Fee: decimal.NewFromInt(200), VAT: decimal.NewFromInt(40),
		Total: decimal.NewFromInt(340), Currency: "EUR",
	}
	h.renewals.On("Quote", mock.Anything, []int64{3, 4}, domain.Date(2021, 5, 1)).
		Return(&app.QuoteResult{
			Quotes:  []domain.Quote{q},
			Skipped: []domain.SkippedTask{{TaskID: 4, Code: errors.CodeFeeDataIncomplete, Reason: "no fee row"}},
		}, nil).Once()

	out, _, err := h.run("renewal", "quote", "3,4")
	require.NoError(t, err)
	assert.Contains(t, out, "340.00")
	assert.Contains(t, out, "skipped: no fee row")
	h.renewals.AssertExpectations(t)
}

func TestRenewalTransition(t *testing.T) {
	h := newHarness()
	h.renewals.On("Transition", mock.Anything, tester, "to-pay", []int64{3, 4, 5}).
		Return(&domain.BatchOutcome{
			Transition: domain.TransitionToPay,
			Requested:  3,
			Affected:   1,
			Updated:    []*domain.Task{{ID: 3, Step: domain.StepToPay}},
			Skipped:    []domain.SkippedTask{{TaskID: 4, Code: errors.CodeTerminalState, Reason: "task is closed"}},
		}, nil).Once()

	out, _, err := h.run("renewal", "transition", "to-pay", "3,4", "5")
	require.NoError(t, err)
	assert.Contains(t, out, domain.StepToPay.String())
	assert.Contains(t, out, "task is closed")
	h.renewals.AssertExpectations(t)

	_, _, err = h.run("renewal", "transition", "to-pay", "x")
	assert.Error(t, err)
}

func TestRenewalEnqueue(t *testing.T) {
	h := newHarness()
	h.renewals.On("Enqueue", mock.Anything, tester, "first-call", []int64{1, 2}).
		Return(common.JobID("job-9"), nil).Once()

	out, _, err := h.run("renewal", "enqueue", "first-call", "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "OK: queued job job-9 (2 tasks)\n", out)
}

func TestRenewalLapseAndNotice(t *testing.T) {
	h := newHarness()
	today := domain.Date(2021, 5, 1)
	task := &domain.Task{ID: 7, MatterID: 1, Code: "REN", DueDate: domain.Date(2020, 6, 15),
		Detail: domain.Labels{"en": "2"}}
	h.renewals.On("LapseCandidates", mock.Anything, today, 10).
		Return([]app.LapseCandidate{{Task: task, MatterUID: "TEST001US", GraceDeadline: domain.Date(2020, 12, 15)}}, nil).Once()
	h.renewals.On("DueForNotice", mock.Anything, domain.Date(2021, 2, 1), 0).
		Return([]*domain.Task{task}, nil).Once()

	out, _, err := h.run("renewal", "lapse", "--limit", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "2020-12-15")

	out, _, err = h.run("renewal", "notice", "--date", "2021-02-01")
	require.NoError(t, err)
	assert.Contains(t, out, "REN")
	h.renewals.AssertExpectations(t)
}

func TestSchedulePreview(t *testing.T) {
	h := newHarness()
	h.renewals.On("PreviewSchedule", mock.Anything, int64(1), domain.Date(2021, 5, 1)).
		Return(&domain.ScheduleResult{
			Tasks:   []*domain.Task{{Code: "REN", MatterID: 1, DueDate: domain.Date(2021, 6, 15)}},
			Skipped: []domain.SkippedYear{{Year: 2, DueDate: domain.Date(2020, 6, 15), Reason: "before look-back"}},
		}, nil).Once()

	out, errOut, err := h.run("schedule", "preview", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2021-06-15")
	assert.Contains(t, errOut, "year 2 (due 2020-06-15) skipped: before look-back")
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1,2", " 3 ", ""})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	_, err = parseIDs([]string{"0"})
	assert.Error(t, err)
	_, err = parseIDs([]string{","})
	assert.Error(t, err)
}

//Personal.AI order the ending
