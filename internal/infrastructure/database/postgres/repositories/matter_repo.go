package repositories

import (
	"context"
	"database/sql"

	"github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

const matterColumns = `id, category, caseref, country, origin, type_code, idx, container_id, parent_id,
	expire_date, dead, sme_status, discount, responsible, uid, creator, updater, created_at, updated_at, version`

type matterRepo struct {
	baseRepo
}

func (r *matterRepo) Create(ctx context.Context, m *docket.Matter) error {
	m.RecomputeUID()
	query := `
		INSERT INTO matter (
			category, caseref, country, origin, type_code, idx, container_id, parent_id,
			expire_date, dead, sme_status, discount, responsible, uid, creator, updater
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		RETURNING id, created_at, updated_at, version
	`
	err := r.executor().QueryRowContext(ctx, query,
		m.Category, m.CaseRef, m.Country, nullString(m.Origin), nullString(m.TypeCode), idxArg(m.Idx),
		m.ContainerID, m.ParentID, m.ExpireDate, m.Dead, m.SmeStatus, m.Discount, m.ResponsibleID, m.UID, m.CreatorID,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt, &m.Version)
	if err != nil {
		return r.writeError(err, m, "failed to create matter")
	}
	m.UpdaterID = m.CreatorID
	return nil
}

func (r *matterRepo) Update(ctx context.Context, m *docket.Matter) error {
	m.RecomputeUID()
	query := `
		UPDATE matter SET
			category = $2, caseref = $3, country = $4, origin = $5, type_code = $6, idx = $7,
			container_id = $8, parent_id = $9, expire_date = $10, dead = $11, sme_status = $12,
			discount = $13, responsible = $14, uid = $15, updater = $16,
			updated_at = NOW(), version = version + 1
		WHERE id = $1
		RETURNING updated_at, version
	`
	err := r.executor().QueryRowContext(ctx, query,
		m.ID, m.Category, m.CaseRef, m.Country, nullString(m.Origin), nullString(m.TypeCode), idxArg(m.Idx),
		m.ContainerID, m.ParentID, m.ExpireDate, m.Dead, m.SmeStatus, m.Discount, m.ResponsibleID, m.UID, m.UpdaterID,
	).Scan(&m.UpdatedAt, &m.Version)
	if err == sql.ErrNoRows {
		return errors.New(errors.CodeMatterNotFound, "matter not found").WithDetailf("matter_id=%d", m.ID)
	}
	if err != nil {
		return r.writeError(err, m, "failed to update matter")
	}
	return nil
}

func (r *matterRepo) writeError(err error, m *docket.Matter, msg string) error {
	switch pqCode(err) {
	case pqUniqueViolation:
		r.log.Debug("matter uid collision", logging.String("uid", m.UID))
		return errors.Wrap(err, errors.CodeMatterDuplicate, "matter already exists").WithDetailf("uid=%s", m.UID)
	case pqCheckViolation:
		return errors.Wrap(err, errors.CodeValidation, "matter violates a constraint")
	}
	return errors.Wrap(err, errors.CodeDatabaseError, msg)
}

func (r *matterRepo) GetByID(ctx context.Context, id int64) (*docket.Matter, error) {
	row := r.executor().QueryRowContext(ctx, `SELECT `+matterColumns+` FROM matter WHERE id = $1`, id)
	m, err := scanMatter(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.CodeMatterNotFound, "matter not found").WithDetailf("matter_id=%d", id)
	}
	return m, wrapRead(err, "failed to load matter")
}

func (r *matterRepo) GetForUpdate(ctx context.Context, id int64) (*docket.Matter, error) {
	row := r.executor().QueryRowContext(ctx, `SELECT `+matterColumns+` FROM matter WHERE id = $1 FOR UPDATE`, id)
	m, err := scanMatter(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.CodeMatterNotFound, "matter not found").WithDetailf("matter_id=%d", id)
	}
	return m, wrapRead(err, "failed to lock matter")
}

func (r *matterRepo) GetByUID(ctx context.Context, uid string) (*docket.Matter, error) {
	row := r.executor().QueryRowContext(ctx, `SELECT `+matterColumns+` FROM matter WHERE uid = $1`, uid)
	m, err := scanMatter(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.CodeMatterNotFound, "matter not found").WithDetailf("uid=%s", uid)
	}
	return m, wrapRead(err, "failed to load matter")
}

func idxArg(idx *int) sql.NullInt64 {
	if idx == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*idx), Valid: true}
}

// wrapRead returns nil for a nil err and a database error otherwise.
func wrapRead(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, errors.CodeDatabaseError, msg)
}

func scanMatter(row scanner) (*docket.Matter, error) {
	var (
		m                     docket.Matter
		origin, typeCode      sql.NullString
		idx                   sql.NullInt64
		containerID, parentID sql.NullInt64
		expire                sql.NullTime
	)
	err := row.Scan(
		&m.ID, &m.Category, &m.CaseRef, &m.Country, &origin, &typeCode, &idx, &containerID, &parentID,
		&expire, &m.Dead, &m.SmeStatus, &m.Discount, &m.ResponsibleID, &m.UID, &m.CreatorID, &m.UpdaterID,
		&m.CreatedAt, &m.UpdatedAt, &m.Version,
	)
	if err != nil {
		return nil, err
	}
	m.Origin = stringPtr(origin)
	m.TypeCode = stringPtr(typeCode)
	m.Idx = intPtr(idx)
	m.ContainerID = int64Ptr(containerID)
	m.ParentID = int64Ptr(parentID)
	m.ExpireDate = timePtr(expire)
	return &m, nil
}

//Personal.AI order the ending
