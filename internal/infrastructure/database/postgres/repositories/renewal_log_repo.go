package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

type renewalLogRepo struct {
	baseRepo
}

// Append bulk-loads logs with COPY.  Outside a transaction it opens its own so
// that a batch is written entirely or not at all.  COPY does not return ids,
// so the ID fields stay zero.
func (r *renewalLogRepo) Append(ctx context.Context, logs []*docket.RenewalsLog) error {
	if len(logs) == 0 {
		return nil
	}

	tx := r.tx
	if tx == nil {
		var err error
		tx, err = r.conn.DB().BeginTx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "failed to begin transaction")
		}
		defer tx.Rollback() //nolint:errcheck
	}

	if err := copyLogs(ctx, tx, logs); err != nil {
		return err
	}

	if r.tx == nil {
		if err := tx.Commit(); err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "failed to commit renewal logs")
		}
	}
	return nil
}

func copyLogs(ctx context.Context, tx *sql.Tx, logs []*docket.RenewalsLog) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("renewals_log",
		"task_id", "job_id", "from_step", "to_step", "from_invoice_step", "to_invoice_step",
		"from_grace", "to_grace", "from_done", "to_done", "creator", "created_at",
	))
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to prepare renewal log copy")
	}
	defer stmt.Close()

	for _, l := range logs {
		_, err := stmt.ExecContext(ctx,
			l.TaskID, l.JobID, int64(l.FromStep), int64(l.ToStep), int64(l.FromInvoiceStep), int64(l.ToInvoiceStep),
			l.FromGrace, l.ToGrace, l.FromDone, l.ToDone, l.Creator, l.CreatedAt,
		)
		if err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "failed to copy renewal log").
				WithDetailf("task_id=%d", l.TaskID)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to flush renewal logs")
	}
	return nil
}

func (r *renewalLogRepo) ListByTask(ctx context.Context, taskID int64) ([]*docket.RenewalsLog, error) {
	rows, err := r.executor().QueryContext(ctx, `
		SELECT id, task_id, job_id, from_step, to_step, from_invoice_step, to_invoice_step,
			from_grace, to_grace, from_done, to_done, creator, created_at
		FROM renewals_log WHERE task_id = $1 ORDER BY id`, taskID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to query renewal logs")
	}
	defer rows.Close()

	var logs []*docket.RenewalsLog
	for rows.Next() {
		var l docket.RenewalsLog
		if err := rows.Scan(&l.ID, &l.TaskID, &l.JobID, &l.FromStep, &l.ToStep, &l.FromInvoiceStep, &l.ToInvoiceStep,
			&l.FromGrace, &l.ToGrace, &l.FromDone, &l.ToDone, &l.Creator, &l.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan renewal log")
		}
		logs = append(logs, &l)
	}
	return logs, wrapRead(rows.Err(), "failed to iterate renewal logs")
}

//Personal.AI order the ending
