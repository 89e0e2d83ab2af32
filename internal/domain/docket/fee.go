package docket

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

// FeeInput is everything the calculator needs about one renewal.
type FeeInput struct {
	TableFee    bool
	GracePeriod bool
	SmeStatus   bool

	Cost           decimal.NullDecimal
	Fee            decimal.NullDecimal
	CostReduced    decimal.NullDecimal
	FeeReduced     decimal.NullDecimal
	CostSup        decimal.NullDecimal
	FeeSup         decimal.NullDecimal
	CostSupReduced decimal.NullDecimal
	FeeSupReduced  decimal.NullDecimal

	Discount decimal.Decimal
	DueDate  time.Time
	DoneDate *time.Time
}

// FeeResult is the priced renewal.  Cost is the official charge and is never
// discounted; Fee is the service fee.
type FeeResult struct {
	Cost decimal.Decimal `json:"cost"`
	Fee  decimal.Decimal `json:"fee"`
}

// FeeCalculator prices renewals.
type FeeCalculator struct {
	// DefaultFee is the administrative base included in task fees.
	DefaultFee decimal.Decimal
	// DefaultGraceFactor scales DefaultFee during the grace period.
	DefaultGraceFactor decimal.Decimal
}

// NewFeeCalculator builds a calculator from configured float values.
func NewFeeCalculator(defaultFee, graceFactor float64) FeeCalculator {
	return FeeCalculator{
		DefaultFee:         decimal.NewFromFloat(defaultFee),
		DefaultGraceFactor: decimal.NewFromFloat(graceFactor),
	}
}

var one = decimal.NewFromInt(1)

// Calculate returns the (cost, fee) pair for in.  A field required by the
// selected column pair that is missing is reported as CodeFeeDataIncomplete;
// the standard fee is never substituted for a missing reduced one.
func (c FeeCalculator) Calculate(in FeeInput) (FeeResult, error) {
	var cost, fee decimal.Decimal
	if in.TableFee {
		costCol, feeCol, cn, fn := in.selectColumns()
		if !costCol.Valid || !feeCol.Valid {
			missing := cn
			if costCol.Valid {
				missing = fn
			}
			return FeeResult{}, errors.New(errors.CodeFeeDataIncomplete, "fee schedule column is missing").
				WithDetailf("column=%s grace=%t sme=%t", missing, in.GracePeriod, in.SmeStatus)
		}
		cost, fee = costCol.Decimal, feeCol.Decimal
	} else {
		if !in.Fee.Valid {
			return FeeResult{}, errors.New(errors.CodeFeeDataIncomplete, "task fee is missing").WithDetail("column=fee")
		}
		if in.Cost.Valid {
			cost = in.Cost.Decimal
		}
		factor := one
		if in.GracePeriod {
			factor = c.DefaultGraceFactor
		}
		fee = in.Fee.Decimal.Sub(c.DefaultFee).Add(factor.Mul(c.DefaultFee))
	}
	return FeeResult{Cost: cost, Fee: ApplyDiscount(fee, in.Discount)}, nil
}

func (in FeeInput) selectColumns() (cost, fee decimal.NullDecimal, costName, feeName string) {
	switch {
	case in.GracePeriod && in.SmeStatus:
		return in.CostSupReduced, in.FeeSupReduced, "cost_sup_reduced", "fee_sup_reduced"
	case in.GracePeriod:
		return in.CostSup, in.FeeSup, "cost_sup", "fee_sup"
	case in.SmeStatus:
		return in.CostReduced, in.FeeReduced, "cost_reduced", "fee_reduced"
	default:
		return in.Cost, in.Fee, "cost", "fee"
	}
}

// ApplyDiscount applies a matter discount to a fee.  A discount above 1 is an
// absolute fee, a discount in (0, 1] is a fraction taken off, zero (or a
// negative value) leaves the fee unchanged.
func ApplyDiscount(fee, discount decimal.Decimal) decimal.Decimal {
	switch {
	case discount.GreaterThan(one):
		return discount
	case discount.IsPositive():
		return fee.Mul(one.Sub(discount))
	default:
		return fee
	}
}

// FeeSchedule is one row of the official fee table.
type FeeSchedule struct {
	ID             int64               `json:"id"`
	Country        string              `json:"country"`
	Category       Category            `json:"category"`
	Origin         *string             `json:"origin,omitempty"`
	Year           int                 `json:"year"`
	Cost           decimal.NullDecimal `json:"cost"`
	Fee            decimal.NullDecimal `json:"fee"`
	CostReduced    decimal.NullDecimal `json:"cost_reduced"`
	FeeReduced     decimal.NullDecimal `json:"fee_reduced"`
	CostSup        decimal.NullDecimal `json:"cost_sup"`
	FeeSup         decimal.NullDecimal `json:"fee_sup"`
	CostSupReduced decimal.NullDecimal `json:"cost_sup_reduced"`
	FeeSupReduced  decimal.NullDecimal `json:"fee_sup_reduced"`
	Currency       string              `json:"currency"`
}

// FeeInputFor assembles a calculator input.  When a schedule row exists it
// drives the price (table fee); otherwise the task's own cost and fee do.
func FeeInputFor(t *Task, m *Matter, row *FeeSchedule, inGrace bool) FeeInput {
	in := FeeInput{
		GracePeriod: inGrace || t.GracePeriod,
		SmeStatus:   m.SmeStatus,
		Discount:    m.Discount,
		DueDate:     t.DueDate,
		DoneDate:    t.DoneDate,
	}
	if row == nil {
		in.Cost, in.Fee = t.Cost, t.Fee
		return in
	}
	in.TableFee = true
	in.Cost, in.Fee = row.Cost, row.Fee
	in.CostReduced, in.FeeReduced = row.CostReduced, row.FeeReduced
	in.CostSup, in.FeeSup = row.CostSup, row.FeeSup
	in.CostSupReduced, in.FeeSupReduced = row.CostSupReduced, row.FeeSupReduced
	return in
}

// Quote is a priced renewal ready for an invoicing or notice integration.
type Quote struct {
	TaskID      int64           `json:"task_id"`
	MatterUID   string          `json:"matter_uid"`
	Year        int             `json:"year"`
	Cost        decimal.Decimal `json:"cost"`
	Fee         decimal.Decimal `json:"fee"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	VAT         decimal.Decimal `json:"vat"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	GracePeriod bool            `json:"grace_period"`
	DueDate     time.Time       `json:"due_date"`
	ValidUntil  time.Time       `json:"valid_until"`
	Description string          `json:"description"`
}

// BuildQuote adds VAT to the service fee (official costs are VAT exempt),
// rounds to cents and writes the description line.
func BuildQuote(t *Task, m *Matter, year int, res FeeResult, in FeeInput, vatRate decimal.Decimal, currency string, validUntil time.Time) Quote {
	cost := res.Cost.Round(2)
	fee := res.Fee.Round(2)
	vat := fee.Mul(vatRate).Round(2)

	var parts []string
	if in.GracePeriod {
		parts = append(parts, "grace period")
	}
	if in.SmeStatus {
		parts = append(parts, "small entity")
	}
	desc := fmt.Sprintf("Renewal year %d for %s due %s", year, m.UID, t.DueDate.Format("2006-01-02"))
	if len(parts) > 0 {
		desc += " (" + strings.Join(parts, ", ") + ")"
	}

	return Quote{
		TaskID:      t.ID,
		MatterUID:   m.UID,
		Year:        year,
		Cost:        cost,
		Fee:         fee,
		Subtotal:    cost.Add(fee),
		VAT:         vat,
		Total:       cost.Add(fee).Add(vat),
		Currency:    currency,
		GracePeriod: in.GracePeriod,
		DueDate:     t.DueDate,
		ValidUntil:  validUntil,
		Description: desc,
	}
}

//Personal.AI order the ending
