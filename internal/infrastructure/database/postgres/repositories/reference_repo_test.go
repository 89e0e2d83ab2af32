package repositories

import (
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	pkgerrors "github.com/turtacn/KeyIP-Docket/pkg/errors"
)

func (s *StoreTestSuite) TestCountryGetRenewal() {
	s.mock.ExpectQuery("FROM country_renewal WHERE country = \\$1").
		WithArgs("JP").
		WillReturnRows(sqlmock.NewRows([]string{"country", "renewal_first", "renewal_base", "renewal_start", "grace_months", "look_back_months"}).
			AddRow("JP", int64(-4), "FIL", "GRT", int64(6), nil))

	c, err := s.store.Countries().GetRenewal(s.ctx, "JP")
	s.Require().NoError(err)
	s.Equal(docket.CountFromStart, c.First.Mode)
	s.Equal(4, c.First.Year)
	s.Require().NotNil(c.GraceMonths)
	s.Equal(6, *c.GraceMonths)
	s.Nil(c.LookBackMonths)
}

func (s *StoreTestSuite) TestCountryGetRenewal_Absent() {
	s.mock.ExpectQuery("FROM country_renewal").WillReturnRows(sqlmock.NewRows([]string{"country"}))

	c, err := s.store.Countries().GetRenewal(s.ctx, "ZZ")
	s.NoError(err)
	s.Nil(c)
}

func (s *StoreTestSuite) TestCountryGetRenewal_ZeroFirst() {
	s.mock.ExpectQuery("FROM country_renewal").
		WillReturnRows(sqlmock.NewRows([]string{"country", "renewal_first", "renewal_base", "renewal_start", "grace_months", "look_back_months"}).
			AddRow("XX", int64(0), "FIL", "FIL", nil, nil))

	_, err := s.store.Countries().GetRenewal(s.ctx, "XX")
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeCountryParamsMissing))
}

func (s *StoreTestSuite) TestFeeFind_PrefersOriginRow() {
	s.mock.ExpectQuery("FROM fees WHERE .* ORDER BY for_origin NULLS LAST LIMIT 1").
		WithArgs("EP", "PAT", 3, "WO").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "for_country", "for_category", "for_origin", "qt", "cost", "fee", "cost_reduced", "fee_reduced",
			"cost_sup", "fee_sup", "cost_sup_reduced", "fee_sup_reduced", "currency",
		}).AddRow(int64(1), "EP", "PAT", "WO", int64(3), "470.00", "200.00", nil, nil, "705.00", "300.00", nil, nil, "EUR"))

	f, err := s.store.Fees().Find(s.ctx, "EP", docket.CategoryPatent, "WO", 3)
	s.Require().NoError(err)
	s.Require().NotNil(f.Origin)
	s.Equal("WO", *f.Origin)
	s.Equal("470", f.Cost.Decimal.String())
	s.False(f.CostReduced.Valid)
}

func (s *StoreTestSuite) TestFeeFind_Missing() {
	s.mock.ExpectQuery("FROM fees").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	f, err := s.store.Fees().Find(s.ctx, "EP", docket.CategoryPatent, "", 30)
	s.NoError(err)
	s.Nil(f)
}

func (s *StoreTestSuite) TestEventNameCodes() {
	s.mock.ExpectQuery("SELECT code FROM event_name").
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("FIL").AddRow("REN"))

	codes, err := s.store.EventNames().Codes(s.ctx)
	s.Require().NoError(err)
	s.Equal(map[string]bool{"FIL": true, "REN": true}, codes)
}

func (s *StoreTestSuite) TestEventNameCodes_EmptyCatalog() {
	s.mock.ExpectQuery("SELECT code FROM event_name").WillReturnRows(sqlmock.NewRows([]string{"code"}))

	codes, err := s.store.EventNames().Codes(s.ctx)
	s.NoError(err)
	s.Nil(codes)
}

//Personal.AI order the ending
