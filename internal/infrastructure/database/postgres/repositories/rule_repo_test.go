package repositories

import (
	"github.com/DATA-DOG/go-sqlmock"
	pkgerrors "github.com/turtacn/KeyIP-Docket/pkg/errors"
)

var ruleRowColumns = []string{
	"id", "active", "for_category", "for_country", "for_origin", "for_type", "trigger_event", "task", "detail",
	"days", "months", "years", "recurring", "end_of_month", "use_priority", "abort_on", "condition_event",
	"clear_task", "delete_task", "responsible", "cost", "fee", "currency", "use_before", "use_after",
}

func (s *StoreTestSuite) TestRuleListByTrigger() {
	s.mock.ExpectQuery("FROM task_rules WHERE trigger_event = \\$1").
		WithArgs("GRT").
		WillReturnRows(sqlmock.NewRows(ruleRowColumns).
			AddRow(int64(1), true, "PAT", nil, nil, nil, "GRT", "REN", `{}`,
				0, 0, 0, false, false, false, nil, nil,
				false, true, nil, nil, nil, "EUR", nil, nil).
			AddRow(int64(2), true, nil, "FR", nil, nil, "GRT", "PAY", `{"en":"Grant fee"}`,
				0, 2, 0, false, true, false, "ABA", nil,
				false, false, "jdoe", "100.00", "50.00", "EUR", nil, nil))

	rules, err := s.store.Rules().ListByTrigger(s.ctx, "GRT")
	s.Require().NoError(err)
	s.Require().Len(rules, 2)

	s.True(rules[0].DeleteTask)
	s.True(rules[0].ForCountry.IsAny())
	s.True(rules[0].ForCategory.Matches("PAT"))
	s.False(rules[0].Cost.Valid)

	s.Equal("Grant fee", rules[1].Detail["en"])
	s.Equal(2, rules[1].Months)
	s.Require().NotNil(rules[1].AbortOn)
	s.Equal("ABA", *rules[1].AbortOn)
	s.True(rules[1].Cost.Valid)
	s.Equal("100", rules[1].Cost.Decimal.String())
}

func (s *StoreTestSuite) TestRuleScan_BadDetail() {
	s.mock.ExpectQuery("FROM task_rules WHERE id = \\$1").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(ruleRowColumns).
			AddRow(int64(3), true, nil, nil, nil, nil, "FIL", "REN", `["not","a","map"]`,
				0, 0, 0, true, false, false, nil, nil,
				false, false, nil, nil, nil, "EUR", nil, nil))

	_, err := s.store.Rules().GetByID(s.ctx, 3)
	s.True(pkgerrors.IsCode(err, pkgerrors.CodeRuleInvalid))
}

func (s *StoreTestSuite) TestRuleGetByID_NotFound() {
	s.mock.ExpectQuery("FROM task_rules WHERE id = \\$1").WithArgs(int64(8)).WillReturnRows(sqlmock.NewRows(ruleRowColumns))

	_, err := s.store.Rules().GetByID(s.ctx, 8)
	s.True(pkgerrors.IsNotFound(err))
}

//Personal.AI order the ending
