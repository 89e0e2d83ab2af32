package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

const ruleColumns = `id, active, for_category, for_country, for_origin, for_type, trigger_event, task, detail,
	days, months, years, recurring, end_of_month, use_priority, abort_on, condition_event, clear_task,
	delete_task, responsible, cost, fee, currency, use_before, use_after`

type ruleRepo struct {
	baseRepo
}

// ListByTrigger returns active and inactive rules; the evaluator filters them.
func (r *ruleRepo) ListByTrigger(ctx context.Context, trigger string) ([]*docket.TaskRule, error) {
	rows, err := r.executor().QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM task_rules WHERE trigger_event = $1 ORDER BY id`, trigger)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to query task rules")
	}
	defer rows.Close()

	var rules []*docket.TaskRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to iterate task rules")
	}
	r.log.Debug("rules loaded", logging.String("trigger", trigger), logging.Int("count", len(rules)))
	return rules, nil
}

func (r *ruleRepo) GetByID(ctx context.Context, id int64) (*docket.TaskRule, error) {
	row := r.executor().QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM task_rules WHERE id = $1`, id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("rule not found").WithDetailf("rule_id=%d", id)
	}
	return rule, err
}

func scanRule(row scanner) (*docket.TaskRule, error) {
	var (
		rule                            docket.TaskRule
		category, country, origin, typ  sql.NullString
		abortOn, condition, responsible sql.NullString
		detail                          []byte
		useBefore, useAfter             sql.NullTime
	)
	err := row.Scan(
		&rule.ID, &rule.Active, &category, &country, &origin, &typ, &rule.TriggerEvent, &rule.TaskCode, &detail,
		&rule.Days, &rule.Months, &rule.Years, &rule.Recurring, &rule.EndOfMonth, &rule.UsePriority,
		&abortOn, &condition, &rule.ClearTask, &rule.DeleteTask, &responsible,
		&rule.Cost, &rule.Fee, &rule.Currency, &useBefore, &useAfter,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan task rule")
	}
	rule.ForCategory = docket.FilterOf(stringPtr(category))
	rule.ForCountry = docket.FilterOf(stringPtr(country))
	rule.ForOrigin = docket.FilterOf(stringPtr(origin))
	rule.ForType = docket.FilterOf(stringPtr(typ))
	rule.AbortOn = stringPtr(abortOn)
	rule.ConditionEvent = stringPtr(condition)
	rule.Responsible = stringPtr(responsible)
	rule.UseBefore = timePtr(useBefore)
	rule.UseAfter = timePtr(useAfter)
	if len(detail) > 0 {
		if err := json.Unmarshal(detail, &rule.Detail); err != nil {
			return nil, errors.Wrap(err, errors.CodeRuleInvalid, "task rule detail is not a label map").
				WithDetailf("rule_id=%d", rule.ID)
		}
	}
	return &rule, nil
}

//Personal.AI order the ending
