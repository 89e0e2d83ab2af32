package docket

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

func tableInput() FeeInput {
	return FeeInput{
		TableFee:       true,
		Cost:           nullDec("100"),
		Fee:            nullDec("200"),
		CostReduced:    nullDec("50"),
		FeeReduced:     nullDec("150"),
		CostSup:        nullDec("150"),
		FeeSup:         nullDec("250"),
		CostSupReduced: nullDec("75"),
		FeeSupReduced:  nullDec("180"),
	}
}

func TestFeeCalculator_TableSelection(t *testing.T) {
	calc := NewFeeCalculator(0, 1.5)
	cases := []struct {
		name      string
		grace     bool
		sme       bool
		cost, fee string
	}{
		{"normal standard", false, false, "100", "200"},
		{"normal sme", false, true, "50", "150"},
		{"grace standard", true, false, "150", "250"},
		{"grace sme", true, true, "75", "180"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := tableInput()
			in.GracePeriod, in.SmeStatus = tc.grace, tc.sme
			res, err := calc.Calculate(in)
			require.NoError(t, err)
			assertDecimal(t, tc.cost, res.Cost)
			assertDecimal(t, tc.fee, res.Fee)
		})
	}
}

func TestFeeCalculator_HalfDiscountOnTableFee(t *testing.T) {
	in := tableInput()
	in.Discount = dec("0.5")
	res, err := NewFeeCalculator(0, 1.5).Calculate(in)
	require.NoError(t, err)
	assertDecimal(t, "100", res.Cost)
	assertDecimal(t, "100", res.Fee)
}

func TestFeeCalculator_TaskFee(t *testing.T) {
	calc := NewFeeCalculator(50, 1.5)
	in := FeeInput{Cost: nullDec("320"), Fee: nullDec("150")}

	res, err := calc.Calculate(in)
	require.NoError(t, err)
	assertDecimal(t, "320", res.Cost)
	assertDecimal(t, "150", res.Fee)

	in.GracePeriod = true
	res, err = calc.Calculate(in)
	require.NoError(t, err)
	assertDecimal(t, "320", res.Cost)
	// (150 - 50) + 1.5 * 50
	assertDecimal(t, "175", res.Fee)
}

func TestFeeCalculator_TaskFeeWithoutCost(t *testing.T) {
	res, err := NewFeeCalculator(0, 1.5).Calculate(FeeInput{Fee: nullDec("90")})
	require.NoError(t, err)
	assert.True(t, res.Cost.IsZero())
	assertDecimal(t, "90", res.Fee)
}

func TestFeeCalculator_MissingReducedFieldIsDataError(t *testing.T) {
	in := tableInput()
	in.SmeStatus = true
	in.FeeReduced = decimal.NullDecimal{}

	_, err := NewFeeCalculator(0, 1.5).Calculate(in)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFeeDataIncomplete))
	assert.Contains(t, err.Error(), "fee_reduced")

	in.GracePeriod = true
	in.CostSupReduced = decimal.NullDecimal{}
	_, err = NewFeeCalculator(0, 1.5).Calculate(in)
	assert.Contains(t, err.Error(), "cost_sup_reduced")
}

func TestFeeCalculator_MissingTaskFee(t *testing.T) {
	_, err := NewFeeCalculator(0, 1.5).Calculate(FeeInput{Cost: nullDec("10")})
	assert.True(t, errors.IsCode(err, errors.CodeFeeDataIncomplete))
}

func TestFeeCalculator_CostNeverDiscounted(t *testing.T) {
	calc := NewFeeCalculator(20, 2)
	for _, d := range []string{"0", "0.1", "0.5", "1", "1.5", "80"} {
		for _, grace := range []bool{false, true} {
			for _, sme := range []bool{false, true} {
				in := tableInput()
				in.Discount, in.GracePeriod, in.SmeStatus = dec(d), grace, sme
				res, err := calc.Calculate(in)
				require.NoError(t, err)
				wantCost, _, _, _ := in.selectColumns()
				assert.True(t, wantCost.Decimal.Equal(res.Cost), "discount %s", d)

				in.TableFee = false
				res, err = calc.Calculate(in)
				require.NoError(t, err)
				assertDecimal(t, "100", res.Cost)
			}
		}
	}
}

func TestApplyDiscount(t *testing.T) {
	fee := dec("200")
	assertDecimal(t, "200", ApplyDiscount(fee, dec("0")))
	assertDecimal(t, "180", ApplyDiscount(fee, dec("0.1")))
	assertDecimal(t, "0", ApplyDiscount(fee, dec("1")))
	assertDecimal(t, "1.5", ApplyDiscount(fee, dec("1.5")))
	assertDecimal(t, "80", ApplyDiscount(fee, dec("80")))
}

func TestFeeInputFor(t *testing.T) {
	m := &Matter{SmeStatus: true, Discount: dec("0.2")}
	task := &Task{Cost: nullDec("10"), Fee: nullDec("20"), GracePeriod: true}

	in := FeeInputFor(task, m, nil, false)
	assert.False(t, in.TableFee)
	assert.True(t, in.GracePeriod)
	assert.True(t, in.SmeStatus)
	assert.True(t, in.Fee.Decimal.Equal(dec("20")))

	row := &FeeSchedule{Cost: nullDec("1"), Fee: nullDec("2"), CostReduced: nullDec("3"), FeeReduced: nullDec("4")}
	in = FeeInputFor(&Task{}, m, row, false)
	assert.True(t, in.TableFee)
	assert.False(t, in.GracePeriod)
	assert.True(t, in.FeeReduced.Decimal.Equal(dec("4")))
}

func TestBuildQuote(t *testing.T) {
	m := &Matter{UID: "TEST001US", SmeStatus: true}
	task := &Task{ID: 9, DueDate: Date(2024, 6, 15)}
	in := FeeInput{GracePeriod: true, SmeStatus: true}
	res := FeeResult{Cost: dec("100"), Fee: dec("150.004")}

	q := BuildQuote(task, m, 5, res, in, dec("0.2"), "EUR", Date(2024, 7, 15))
	assertDecimal(t, "100", q.Cost)
	assertDecimal(t, "150", q.Fee)
	assertDecimal(t, "30", q.VAT)
	assertDecimal(t, "250", q.Subtotal)
	assertDecimal(t, "280", q.Total)
	assert.Equal(t, "EUR", q.Currency)
	assert.Equal(t, "Renewal year 5 for TEST001US due 2024-06-15 (grace period, small entity)", q.Description)
}

//Personal.AI order the ending
