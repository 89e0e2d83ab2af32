package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

var taskColumns = []string{
	"id", "code", "trigger_id", "matter_id", "due_date", "done", "done_date", "assigned_to", "detail",
	"cost", "fee", "currency", "step", "invoice_step", "grace_period", "rule_used",
	"creator", "updater", "created_at", "updated_at", "version",
}

var taskInsertColumns = []string{
	"code", "trigger_id", "matter_id", "due_date", "done", "done_date", "assigned_to", "detail",
	"cost", "fee", "currency", "step", "invoice_step", "grace_period", "rule_used", "creator", "updater",
}

type taskRepo struct {
	baseRepo
}

func taskValues(t *docket.Task) ([]interface{}, error) {
	detail, err := marshalJSON(t.Detail)
	if err != nil {
		return nil, err
	}
	currency := t.Currency
	if currency == "" {
		currency = "EUR"
	}
	return []interface{}{
		t.Code, t.TriggerID, t.MatterID, t.DueDate, t.Done, t.DoneDate, t.AssignedTo, detail,
		t.Cost, t.Fee, currency, t.Step, t.InvoiceStep, t.GracePeriod, t.RuleUsed, t.CreatorID, t.CreatorID,
	}, nil
}

func (r *taskRepo) Create(ctx context.Context, t *docket.Task) error {
	return r.CreateBatch(ctx, []*docket.Task{t})
}

// CreateBatch inserts all tasks with one multi-row INSERT.  RETURNING yields
// rows in VALUES order, which assigns ids back to the slice.
func (r *taskRepo) CreateBatch(ctx context.Context, tasks []*docket.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	q := psql.Insert("task").Columns(taskInsertColumns...).Suffix("RETURNING id, created_at, updated_at, version")
	for _, t := range tasks {
		if err := t.CheckConsistency(); err != nil {
			return err
		}
		vals, err := taskValues(t)
		if err != nil {
			return err
		}
		q = q.Values(vals...)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to build task insert")
	}

	rows, err := r.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return taskWriteError(err, "failed to create tasks")
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if i >= len(tasks) {
			break
		}
		t := tasks[i]
		if err := rows.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt, &t.Version); err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "failed to read task ids")
		}
		t.UpdaterID = t.CreatorID
		i++
	}
	if err := rows.Err(); err != nil {
		return taskWriteError(err, "failed to create tasks")
	}
	if i != len(tasks) {
		return errors.Newf(errors.CodeDatabaseError, "inserted %d of %d tasks", i, len(tasks))
	}
	return nil
}

// Update writes t when the stored version still equals t.Version.
func (r *taskRepo) Update(ctx context.Context, t *docket.Task) error {
	if err := t.CheckConsistency(); err != nil {
		return err
	}
	detail, err := marshalJSON(t.Detail)
	if err != nil {
		return err
	}
	query := `
		UPDATE task SET
			code = $3, due_date = $4, done = $5, done_date = $6, assigned_to = $7, detail = $8,
			cost = $9, fee = $10, currency = $11, step = $12, invoice_step = $13, grace_period = $14,
			updater = $15, updated_at = NOW(), version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING updated_at, version
	`
	err = r.executor().QueryRowContext(ctx, query,
		t.ID, t.Version, t.Code, t.DueDate, t.Done, t.DoneDate, t.AssignedTo, detail,
		t.Cost, t.Fee, t.Currency, t.Step, t.InvoiceStep, t.GracePeriod, t.UpdaterID,
	).Scan(&t.UpdatedAt, &t.Version)
	if err == sql.ErrNoRows {
		return r.missingOrStale(ctx, t)
	}
	if err != nil {
		return taskWriteError(err, "failed to update task")
	}
	return nil
}

func (r *taskRepo) missingOrStale(ctx context.Context, t *docket.Task) error {
	var current int64
	err := r.executor().QueryRowContext(ctx, `SELECT version FROM task WHERE id = $1`, t.ID).Scan(&current)
	if err == sql.ErrNoRows {
		return errors.New(errors.CodeTaskNotFound, "task not found").WithDetailf("task_id=%d", t.ID)
	}
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to read task version")
	}
	r.log.Debug("stale task version",
		logging.Int64("task_id", t.ID), logging.Int64("expected", t.Version), logging.Int64("current", current))
	return errors.New(errors.CodeTaskVersionConflict, "task was modified concurrently").
		WithDetailf("task_id=%d expected=%d current=%d", t.ID, t.Version, current)
}

func taskWriteError(err error, msg string) error {
	switch pqCode(err) {
	case pqCheckViolation:
		return errors.Wrap(err, errors.CodeTaskDoneInconsistent, "task done flag and done date disagree")
	case pqForeignKeyViolation:
		return errors.Wrap(err, errors.CodeEventNotFound, "task references a missing event or matter")
	}
	return errors.Wrap(err, errors.CodeDatabaseError, msg)
}

func (r *taskRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.executor().ExecContext(ctx, `DELETE FROM task WHERE id = $1`, id)
	if pqCode(err) == pqForeignKeyViolation {
		return errors.Wrap(err, errors.CodeConflict, "task has renewal history").WithDetailf("task_id=%d", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to delete task")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.CodeTaskNotFound, "task not found").WithDetailf("task_id=%d", id)
	}
	return nil
}

func (r *taskRepo) GetByID(ctx context.Context, id int64) (*docket.Task, error) {
	tasks, err := r.list(ctx, psql.Select(taskColumns...).From("task").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, errors.New(errors.CodeTaskNotFound, "task not found").WithDetailf("task_id=%d", id)
	}
	return tasks[0], nil
}

// ListByIDs returns the tasks that exist, ordered by id.  Missing ids are
// silently absent.
func (r *taskRepo) ListByIDs(ctx context.Context, ids []int64) ([]*docket.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, psql.Select(taskColumns...).From("task").
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id"))
}

func (r *taskRepo) ListByMatter(ctx context.Context, matterID int64) ([]*docket.Task, error) {
	return r.list(ctx, psql.Select(taskColumns...).From("task").
		Where(squirrel.Eq{"matter_id": matterID}).
		OrderBy("due_date", "id"))
}

// ListPendingByCode returns open tasks with code due before dueBefore.  A zero
// dueBefore or limit disables that bound.
func (r *taskRepo) ListPendingByCode(ctx context.Context, code string, dueBefore time.Time, limit int) ([]*docket.Task, error) {
	q := psql.Select(taskColumns...).From("task").
		Where(squirrel.Eq{"code": code, "done": false}).
		OrderBy("due_date", "id")
	if !dueBefore.IsZero() {
		q = q.Where(squirrel.Lt{"due_date": dueBefore})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return r.list(ctx, q)
}

func (r *taskRepo) list(ctx context.Context, q squirrel.SelectBuilder) ([]*docket.Task, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to build task query")
	}
	rows, err := r.executor().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to query tasks")
	}
	defer rows.Close()

	var tasks []*docket.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to iterate tasks")
	}
	return tasks, nil
}

func scanTask(row scanner) (*docket.Task, error) {
	var (
		t        docket.Task
		doneDate sql.NullTime
		detail   []byte
		ruleUsed sql.NullInt64
	)
	err := row.Scan(
		&t.ID, &t.Code, &t.TriggerID, &t.MatterID, &t.DueDate, &t.Done, &doneDate, &t.AssignedTo, &detail,
		&t.Cost, &t.Fee, &t.Currency, &t.Step, &t.InvoiceStep, &t.GracePeriod, &ruleUsed,
		&t.CreatorID, &t.UpdaterID, &t.CreatedAt, &t.UpdatedAt, &t.Version,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan task")
	}
	t.DoneDate = timePtr(doneDate)
	t.RuleUsed = int64Ptr(ruleUsed)
	if len(detail) > 0 {
		if err := json.Unmarshal(detail, &t.Detail); err != nil {
			return nil, errors.Wrap(err, errors.CodeSerialization, "task detail is not a label map").
				WithDetailf("task_id=%d", t.ID)
		}
	}
	return &t, nil
}

//Personal.AI order the ending
