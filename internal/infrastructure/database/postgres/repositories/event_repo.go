package repositories

import (
	"context"
	"database/sql"

	"github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

const eventColumns = `id, matter_id, code, event_date, alt_matter_id, detail, notes, creator, updater, created_at, updated_at`

type eventRepo struct {
	baseRepo
}

func (r *eventRepo) Create(ctx context.Context, e *docket.Event) error {
	query := `
		INSERT INTO event (matter_id, code, event_date, alt_matter_id, detail, notes, creator, updater)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.executor().QueryRowContext(ctx, query,
		e.MatterID, e.Code, e.EventDate, e.AltMatterID, e.Detail, e.Notes, e.CreatorID,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return eventWriteError(err, e, "failed to create event")
	}
	e.UpdaterID = e.CreatorID
	return nil
}

func (r *eventRepo) Update(ctx context.Context, e *docket.Event) error {
	query := `
		UPDATE event SET
			code = $2, event_date = $3, alt_matter_id = $4, detail = $5, notes = $6, updater = $7,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.executor().QueryRowContext(ctx, query,
		e.ID, e.Code, e.EventDate, e.AltMatterID, e.Detail, e.Notes, e.UpdaterID,
	).Scan(&e.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.New(errors.CodeEventNotFound, "event not found").WithDetailf("event_id=%d", e.ID)
	}
	if err != nil {
		return eventWriteError(err, e, "failed to update event")
	}
	return nil
}

func eventWriteError(err error, e *docket.Event, msg string) error {
	switch pqCode(err) {
	case pqUniqueViolation:
		return errors.Wrap(err, errors.CodeEventDuplicate, "event already exists").
			WithDetailf("matter_id=%d code=%s", e.MatterID, e.Code)
	case pqForeignKeyViolation:
		return errors.Wrap(err, errors.CodeMatterNotFound, "event references a missing matter or code").
			WithDetailf("matter_id=%d code=%s", e.MatterID, e.Code)
	}
	return errors.Wrap(err, errors.CodeDatabaseError, msg)
}

func (r *eventRepo) GetByID(ctx context.Context, id int64) (*docket.Event, error) {
	row := r.executor().QueryRowContext(ctx, `SELECT `+eventColumns+` FROM event WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.CodeEventNotFound, "event not found").WithDetailf("event_id=%d", id)
	}
	return e, wrapRead(err, "failed to load event")
}

func (r *eventRepo) ListByMatter(ctx context.Context, matterID int64) ([]*docket.Event, error) {
	rows, err := r.executor().QueryContext(ctx,
		`SELECT `+eventColumns+` FROM event WHERE matter_id = $1 ORDER BY id`, matterID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to query events")
	}
	defer rows.Close()

	var events []*docket.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan event")
		}
		events = append(events, e)
	}
	return events, wrapRead(rows.Err(), "failed to iterate events")
}

func scanEvent(row scanner) (*docket.Event, error) {
	var (
		e   docket.Event
		alt sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.MatterID, &e.Code, &e.EventDate, &alt, &e.Detail, &e.Notes,
		&e.CreatorID, &e.UpdaterID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.AltMatterID = int64Ptr(alt)
	return &e, nil
}

//Personal.AI order the ending
