package repositories

import (
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	pkgerrors "github.com/turtacn/KeyIP-Docket/pkg/errors"
)

var matterRowColumns = []string{
	"id", "category", "caseref", "country", "origin", "type_code", "idx", "container_id", "parent_id",
	"expire_date", "dead", "sme_status", "discount", "responsible", "uid", "creator", "updater",
	"created_at", "updated_at", "version",
}

func (s *StoreTestSuite) TestMatterCreate_ComputesUID() {
	now := time.Now()
	origin := "WO"
	m := &docket.Matter{Category: docket.CategoryPatent, CaseRef: "TEST001", Country: "US", Origin: &origin, CreatorID: "jdoe"}

	s.mock.ExpectQuery("INSERT INTO matter").
		WithArgs("PAT", "TEST001", "US", "WO", nil, nil, nil, nil, nil, false, false,
			sqlmock.AnyArg(), "", "TEST001US-WO", "jdoe").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "version"}).AddRow(int64(1), now, now, int64(1)))

	s.Require().NoError(s.store.Matters().Create(s.ctx, m))
	s.Equal(int64(1), m.ID)
	s.Equal("TEST001US-WO", m.UID)
	s.Equal("jdoe", m.UpdaterID)
}

func (s *StoreTestSuite) TestMatterCreate_DuplicateUID() {
	s.mock.ExpectQuery("INSERT INTO matter").
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: "uq_matter_uid"})

	err := s.store.Matters().Create(s.ctx, &docket.Matter{Category: docket.CategoryPatent, CaseRef: "TEST001", Country: "US"})
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeMatterDuplicate))
	s.Contains(err.Error(), "uid=TEST001US")
}

func (s *StoreTestSuite) TestMatterUpdate_NotFound() {
	s.mock.ExpectQuery("UPDATE matter SET").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}))

	err := s.store.Matters().Update(s.ctx, &docket.Matter{ID: 42, CaseRef: "X", Country: "FR"})
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeMatterNotFound))
}

func (s *StoreTestSuite) TestMatterGetByID() {
	now := time.Now()
	s.mock.ExpectQuery("SELECT .* FROM matter WHERE id = \\$1$").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(matterRowColumns).AddRow(
			int64(7), "PAT", "TEST001", "US", nil, nil, int64(2), nil, int64(3),
			nil, false, true, "0.5", "jdoe", "TEST001US.2", "jdoe", "jdoe",
			now, now, int64(4),
		))

	m, err := s.store.Matters().GetByID(s.ctx, 7)
	s.Require().NoError(err)
	s.Equal(docket.CategoryPatent, m.Category)
	s.Nil(m.Origin)
	s.Require().NotNil(m.Idx)
	s.Equal(2, *m.Idx)
	s.Require().NotNil(m.ParentID)
	s.Equal(int64(3), *m.ParentID)
	s.Nil(m.ContainerID)
	s.True(m.SmeStatus)
	s.True(decimal.NewFromFloat(0.5).Equal(m.Discount))
	s.Equal(int64(4), m.Version)
}

func (s *StoreTestSuite) TestMatterGetForUpdate_LocksRow() {
	s.mock.ExpectQuery("FROM matter WHERE id = \\$1 FOR UPDATE").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(matterRowColumns))

	_, err := s.store.Matters().GetForUpdate(s.ctx, 7)
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeMatterNotFound))
}

func (s *StoreTestSuite) TestMatterGetByUID_NotFound() {
	s.mock.ExpectQuery("FROM matter WHERE uid = \\$1").
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows(matterRowColumns))

	_, err := s.store.Matters().GetByUID(s.ctx, "NOPE")
	s.True(pkgerrors.IsNotFound(err))
}

//Personal.AI order the ending
