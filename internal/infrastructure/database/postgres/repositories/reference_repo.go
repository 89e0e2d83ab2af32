package repositories

import (
	"context"
	"database/sql"

	"github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Country renewal parameters
// ─────────────────────────────────────────────────────────────────────────────

type countryRepo struct {
	baseRepo
}

func (r *countryRepo) GetRenewal(ctx context.Context, country string) (*docket.CountryRenewal, error) {
	var (
		c               docket.CountryRenewal
		first           int
		grace, lookBack sql.NullInt64
	)
	err := r.executor().QueryRowContext(ctx, `
		SELECT country, renewal_first, renewal_base, renewal_start, grace_months, look_back_months
		FROM country_renewal WHERE country = $1`, country,
	).Scan(&c.Country, &first, &c.BaseEvent, &c.StartEvent, &grace, &lookBack)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to load country renewal parameters")
	}
	c.First, err = docket.RenewalFirstFromSigned(first)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "invalid renewal parameters").WithDetailf("country=%s", country)
	}
	c.GraceMonths = intPtr(grace)
	c.LookBackMonths = intPtr(lookBack)
	return &c, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fee table
// ─────────────────────────────────────────────────────────────────────────────

type feeRepo struct {
	baseRepo
}

// Find prefers the row whose origin matches over the generic row.
func (r *feeRepo) Find(ctx context.Context, country string, category docket.Category, origin string, year int) (*docket.FeeSchedule, error) {
	var (
		f         docket.FeeSchedule
		rowOrigin sql.NullString
	)
	err := r.executor().QueryRowContext(ctx, `
		SELECT id, for_country, for_category, for_origin, qt, cost, fee, cost_reduced, fee_reduced,
			cost_sup, fee_sup, cost_sup_reduced, fee_sup_reduced, currency
		FROM fees
		WHERE for_country = $1 AND for_category = $2 AND qt = $3
			AND (for_origin IS NULL OR for_origin = $4)
		ORDER BY for_origin NULLS LAST
		LIMIT 1`, country, category, year, origin,
	).Scan(&f.ID, &f.Country, &f.Category, &rowOrigin, &f.Year, &f.Cost, &f.Fee, &f.CostReduced, &f.FeeReduced,
		&f.CostSup, &f.FeeSup, &f.CostSupReduced, &f.FeeSupReduced, &f.Currency)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to load fee row")
	}
	f.Origin = stringPtr(rowOrigin)
	return &f, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Event-code catalog
// ─────────────────────────────────────────────────────────────────────────────

type eventNameRepo struct {
	baseRepo
}

// Codes returns nil when the catalog is empty.
func (r *eventNameRepo) Codes(ctx context.Context) (map[string]bool, error) {
	rows, err := r.executor().QueryContext(ctx, `SELECT code FROM event_name`)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to query event codes")
	}
	defer rows.Close()

	codes := make(map[string]bool)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to scan event code")
		}
		codes[code] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "failed to iterate event codes")
	}
	if len(codes) == 0 {
		return nil, nil
	}
	return codes, nil
}

//Personal.AI order the ending
