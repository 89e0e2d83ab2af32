package repositories

import (
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	pkgerrors "github.com/turtacn/KeyIP-Docket/pkg/errors"
)

func (s *StoreTestSuite) TestRenewalLogAppend_CopiesInOwnTx() {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	logs := []*docket.RenewalsLog{
		{TaskID: 1, JobID: "job-1", FromStep: docket.StepPending, ToStep: docket.StepToPay, Creator: "jdoe", CreatedAt: at},
		{TaskID: 2, JobID: "job-1", FromStep: docket.StepPending, ToStep: docket.StepToPay, Creator: "jdoe", CreatedAt: at},
	}

	s.mock.ExpectBegin()
	prep := s.mock.ExpectPrepare(`COPY "renewals_log" \("task_id", "job_id"`)
	prep.ExpectExec().
		WithArgs(int64(1), "job-1", int64(0), int64(4), int64(0), int64(0), false, false, false, false, "jdoe", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(int64(2), "job-1", int64(0), int64(4), int64(0), int64(0), false, false, false, false, "jdoe", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 2))
	s.mock.ExpectCommit()

	s.NoError(s.store.RenewalLogs().Append(s.ctx, logs))
}

func (s *StoreTestSuite) TestRenewalLogAppend_JoinsOuterTx() {
	s.mock.ExpectBegin()
	prep := s.mock.ExpectPrepare(`COPY "renewals_log"`)
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	err := s.store.WithTx(s.ctx, func(tx docket.Repository) error {
		return tx.RenewalLogs().Append(s.ctx, []*docket.RenewalsLog{{TaskID: 1, Creator: "jdoe"}})
	})
	s.NoError(err)
}

func (s *StoreTestSuite) TestRenewalLogAppend_Empty() {
	s.NoError(s.store.RenewalLogs().Append(s.ctx, nil))
}

func (s *StoreTestSuite) TestRenewalLogAppend_PrepareFailure() {
	s.mock.ExpectBegin()
	s.mock.ExpectPrepare(`COPY "renewals_log"`).WillReturnError(sqlmock.ErrCancelled)
	s.mock.ExpectRollback()

	err := s.store.RenewalLogs().Append(s.ctx, []*docket.RenewalsLog{{TaskID: 1}})
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeDatabaseError))
}

func (s *StoreTestSuite) TestRenewalLogListByTask() {
	now := time.Now()
	s.mock.ExpectQuery("FROM renewals_log WHERE task_id = \\$1 ORDER BY id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "task_id", "job_id", "from_step", "to_step", "from_invoice_step", "to_invoice_step",
			"from_grace", "to_grace", "from_done", "to_done", "creator", "created_at",
		}).AddRow(int64(1), int64(1), "job-1", int64(0), int64(4), int64(0), int64(0), false, false, false, false, "jdoe", now))

	logs, err := s.store.RenewalLogs().ListByTask(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal(docket.StepToPay, logs[0].ToStep)
}

//Personal.AI order the ending
