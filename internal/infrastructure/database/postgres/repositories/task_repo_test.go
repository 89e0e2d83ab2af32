package repositories

import (
	"database/sql/driver"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	pkgerrors "github.com/turtacn/KeyIP-Docket/pkg/errors"
)

func taskRow(id, version int64, code string, due time.Time, done bool) []driver.Value {
	var doneDate interface{}
	if done {
		doneDate = due
	}
	now := time.Now()
	return []driver.Value{
		id, code, int64(1), int64(1), due, done, doneDate, "jdoe", `{"en":"2","fr":"2"}`,
		"250.00", nil, "EUR", int64(0), int64(0), false, int64(5),
		"jdoe", "jdoe", now, now, version,
	}
}

func (s *StoreTestSuite) TestTaskCreateBatch_AssignsIDs() {
	now := time.Now()
	tasks := []*docket.Task{
		{Code: "REN", TriggerID: 1, MatterID: 1, DueDate: docket.Date(2021, 6, 15), Detail: docket.Labels{"en": "2"}, CreatorID: "jdoe"},
		{Code: "REN", TriggerID: 1, MatterID: 1, DueDate: docket.Date(2022, 6, 15), Detail: docket.Labels{"en": "3"}, CreatorID: "jdoe"},
	}

	s.mock.ExpectQuery(`INSERT INTO task \(code,trigger_id,matter_id,.*\) VALUES \(\$1,.*\),\(\$18,.*\) RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "version"}).
			AddRow(int64(21), now, now, int64(1)).
			AddRow(int64(22), now, now, int64(1)))

	s.Require().NoError(s.store.Tasks().CreateBatch(s.ctx, tasks))
	s.Equal(int64(21), tasks[0].ID)
	s.Equal(int64(22), tasks[1].ID)
	s.Equal(int64(1), tasks[1].Version)
}

func (s *StoreTestSuite) TestTaskCreateBatch_Empty() {
	s.NoError(s.store.Tasks().CreateBatch(s.ctx, nil))
}

func (s *StoreTestSuite) TestTaskCreate_RejectsInconsistentDone() {
	err := s.store.Tasks().Create(s.ctx, &docket.Task{Code: "REN", Done: true})
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeTaskDoneInconsistent))
}

func (s *StoreTestSuite) TestTaskCreate_CheckViolation() {
	s.mock.ExpectQuery("INSERT INTO task").WillReturnError(&pq.Error{Code: pqCheckViolation, Constraint: "chk_task_done"})

	err := s.store.Tasks().Create(s.ctx, &docket.Task{Code: "REN", DueDate: docket.Date(2021, 1, 1)})
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeTaskDoneInconsistent))
}

func (s *StoreTestSuite) TestTaskUpdate_BumpsVersion() {
	now := time.Now()
	t := &docket.Task{ID: 3, Code: "REN", DueDate: docket.Date(2021, 6, 15), Step: docket.StepToPay, Version: 2, UpdaterID: "jdoe"}

	s.mock.ExpectQuery("UPDATE task SET .* WHERE id = \\$1 AND version = \\$2").
		WithArgs(int64(3), int64(2), "REN", sqlmock.AnyArg(), false, nil, "", sqlmock.AnyArg(),
			nil, nil, "", int64(4), int64(0), false, "jdoe").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}).AddRow(now, int64(3)))

	s.Require().NoError(s.store.Tasks().Update(s.ctx, t))
	s.Equal(int64(3), t.Version)
}

func (s *StoreTestSuite) TestTaskUpdate_VersionConflict() {
	s.mock.ExpectQuery("UPDATE task SET").WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}))
	s.mock.ExpectQuery("SELECT version FROM task WHERE id = \\$1").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(5)))

	err := s.store.Tasks().Update(s.ctx, &docket.Task{ID: 3, Code: "REN", Version: 2})
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeTaskVersionConflict))
	s.Contains(err.Error(), "current=5")
}

func (s *StoreTestSuite) TestTaskUpdate_Missing() {
	s.mock.ExpectQuery("UPDATE task SET").WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}))
	s.mock.ExpectQuery("SELECT version FROM task").WillReturnRows(sqlmock.NewRows([]string{"version"}))

	err := s.store.Tasks().Update(s.ctx, &docket.Task{ID: 3, Code: "REN", Version: 2})
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeTaskNotFound))
}

func (s *StoreTestSuite) TestTaskDelete_NotFound() {
	s.mock.ExpectExec("DELETE FROM task WHERE id = \\$1").WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.store.Tasks().Delete(s.ctx, 4)
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeTaskNotFound))
}

func (s *StoreTestSuite) TestTaskDelete_KeepsLoggedTask() {
	s.mock.ExpectExec("DELETE FROM task WHERE id = \\$1").WithArgs(int64(4)).
		WillReturnError(&pq.Error{Code: pqForeignKeyViolation, Constraint: "renewals_log_task_id_fkey"})

	err := s.store.Tasks().Delete(s.ctx, 4)
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	s.Contains(err.Error(), "renewal history")
}

func (s *StoreTestSuite) TestTaskListByIDs() {
	due := docket.Date(2021, 6, 15)
	s.mock.ExpectQuery("SELECT .* FROM task WHERE id IN \\(\\$1,\\$2\\) ORDER BY id").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(taskColumns).
			AddRow(taskRow(1, 1, "REN", due, false)...).
			AddRow(taskRow(2, 3, "REN", due, true)...))

	tasks, err := s.store.Tasks().ListByIDs(s.ctx, []int64{1, 2})
	s.Require().NoError(err)
	s.Require().Len(tasks, 2)
	s.Equal("2", tasks[0].Detail["fr"])
	s.True(tasks[0].Cost.Valid)
	s.False(tasks[0].Fee.Valid)
	s.Require().NotNil(tasks[0].RuleUsed)
	s.Equal(int64(5), *tasks[0].RuleUsed)
	s.Nil(tasks[0].DoneDate)
	s.Require().NotNil(tasks[1].DoneDate)
	s.Equal(int64(3), tasks[1].Version)
}

func (s *StoreTestSuite) TestTaskListByIDs_Empty() {
	tasks, err := s.store.Tasks().ListByIDs(s.ctx, nil)
	s.NoError(err)
	s.Nil(tasks)
}

func (s *StoreTestSuite) TestTaskListPendingByCode() {
	before := docket.Date(2021, 1, 1)
	s.mock.ExpectQuery("FROM task WHERE code = \\$1 AND done = \\$2 AND due_date < \\$3 ORDER BY due_date, id LIMIT 50").
		WithArgs("REN", false, before).
		WillReturnRows(sqlmock.NewRows(taskColumns).AddRow(taskRow(9, 1, "REN", docket.Date(2020, 6, 15), false)...))

	tasks, err := s.store.Tasks().ListPendingByCode(s.ctx, "REN", before, 50)
	s.Require().NoError(err)
	s.Len(tasks, 1)
}

func (s *StoreTestSuite) TestTaskListPendingByCode_Unbounded() {
	s.mock.ExpectQuery("FROM task WHERE code = \\$1 AND done = \\$2 ORDER BY due_date, id$").
		WithArgs("REN", false).
		WillReturnRows(sqlmock.NewRows(taskColumns))

	tasks, err := s.store.Tasks().ListPendingByCode(s.ctx, "REN", time.Time{}, 0)
	s.NoError(err)
	s.Empty(tasks)
}

func (s *StoreTestSuite) TestTaskGetByID_NotFound() {
	s.mock.ExpectQuery("FROM task WHERE id = \\$1").WithArgs(int64(77)).WillReturnRows(sqlmock.NewRows(taskColumns))

	_, err := s.store.Tasks().GetByID(s.ctx, 77)
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeTaskNotFound))
}

//Personal.AI order the ending
