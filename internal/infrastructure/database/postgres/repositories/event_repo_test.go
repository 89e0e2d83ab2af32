package repositories

import (
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	pkgerrors "github.com/turtacn/KeyIP-Docket/pkg/errors"
)

var eventRowColumns = []string{
	"id", "matter_id", "code", "event_date", "alt_matter_id", "detail", "notes", "creator", "updater", "created_at", "updated_at",
}

func (s *StoreTestSuite) TestEventCreate() {
	now := time.Now()
	date := docket.Date(2020, time.June, 15)
	e := &docket.Event{MatterID: 1, Code: "FIL", EventDate: date, Detail: "FR2020001", CreatorID: "jdoe"}

	s.mock.ExpectQuery("INSERT INTO event").
		WithArgs(int64(1), "FIL", date, nil, "FR2020001", "", "jdoe").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), now, now))

	s.Require().NoError(s.store.Events().Create(s.ctx, e))
	s.Equal(int64(11), e.ID)
}

func (s *StoreTestSuite) TestEventCreate_Duplicate() {
	s.mock.ExpectQuery("INSERT INTO event").WillReturnError(&pq.Error{Code: pqUniqueViolation})

	err := s.store.Events().Create(s.ctx, &docket.Event{MatterID: 1, Code: "FIL"})
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeEventDuplicate))
	s.True(pkgerrors.IsConflict(err))
}

func (s *StoreTestSuite) TestEventCreate_MissingMatter() {
	s.mock.ExpectQuery("INSERT INTO event").WillReturnError(&pq.Error{Code: pqForeignKeyViolation})

	err := s.store.Events().Create(s.ctx, &docket.Event{MatterID: 99, Code: "FIL"})
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeMatterNotFound))
}

func (s *StoreTestSuite) TestEventUpdate_NotFound() {
	s.mock.ExpectQuery("UPDATE event SET").WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	err := s.store.Events().Update(s.ctx, &docket.Event{ID: 5, Code: "FIL"})
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeEventNotFound))
}

func (s *StoreTestSuite) TestEventListByMatter() {
	now := time.Now()
	s.mock.ExpectQuery("FROM event WHERE matter_id = \\$1 ORDER BY id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(eventRowColumns).
			AddRow(int64(1), int64(1), "FIL", docket.Date(2020, 6, 15), nil, "", "", "", "", now, now).
			AddRow(int64(2), int64(1), "PRI", docket.Date(2019, 6, 15), int64(4), "", "", "", "", now, now))

	events, err := s.store.Events().ListByMatter(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Nil(events[0].AltMatterID)
	s.Require().NotNil(events[1].AltMatterID)
	s.Equal(int64(4), *events[1].AltMatterID)
}

func (s *StoreTestSuite) TestEventGetByID_NotFound() {
	s.mock.ExpectQuery("FROM event WHERE id = \\$1").WithArgs(int64(3)).WillReturnRows(sqlmock.NewRows(eventRowColumns))

	_, err := s.store.Events().GetByID(s.ctx, 3)
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeEventNotFound))
}

//Personal.AI order the ending
