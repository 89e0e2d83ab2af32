package docket

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

func TestComposeUID(t *testing.T) {
	cases := []struct {
		name     string
		origin   *string
		typeCode *string
		idx      *int
		want     string
	}{
		{"bare", nil, nil, nil, "TEST001US"},
		{"origin", strPtr("WO"), nil, nil, "TEST001US-WO"},
		{"index", nil, nil, intPtr(2), "TEST001US.2"},
		{"type", nil, strPtr("CIP"), nil, "TEST001US-CIP"},
		{"all", strPtr("EP"), strPtr("DIV"), intPtr(3), "TEST001US-EP-DIV.3"},
		{"empty origin", strPtr(""), nil, intPtr(0), "TEST001US"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComposeUID("TEST001", "US", tc.origin, tc.typeCode, tc.idx))
		})
	}
}

func TestMatter_RecomputeUID_OverwritesCallerValue(t *testing.T) {
	m := &Matter{CaseRef: "TEST001", Country: "US", Origin: strPtr("WO"), UID: "forged"}
	m.RecomputeUID()
	assert.Equal(t, "TEST001US-WO", m.UID)

	m.Idx = intPtr(2)
	m.Origin = nil
	m.RecomputeUID()
	assert.Equal(t, "TEST001US.2", m.UID)
}

func TestMatter_Validate(t *testing.T) {
	valid := func() *Matter {
		return &Matter{CaseRef: "TEST001", Country: "US", Category: CategoryPatent}
	}
	assert.NoError(t, valid().Validate())

	m := valid()
	m.CaseRef = " "
	assert.True(t, errors.IsCode(m.Validate(), errors.CodeInvalidParam))

	m = valid()
	m.Country = "USA"
	assert.Error(t, m.Validate())

	m = valid()
	m.Category = ""
	assert.Error(t, m.Validate())

	m = valid()
	m.Discount = decimal.NewFromInt(-1)
	assert.Error(t, m.Validate())

	m = valid()
	m.Discount = decimal.NewFromInt(150)
	assert.NoError(t, m.Validate(), "a discount above 1 is an absolute fee")

	for _, idx := range []int{0, -1} {
		m = valid()
		m.Idx = intPtr(idx)
		assert.True(t, errors.IsCode(m.Validate(), errors.CodeInvalidParam), "idx=%d", idx)
	}
	m = valid()
	m.Idx = intPtr(1)
	assert.NoError(t, m.Validate())
}

func TestMatter_Accessors(t *testing.T) {
	m := &Matter{}
	assert.Equal(t, "", m.OriginCode())
	assert.Equal(t, "", m.Type())
	m.Origin, m.TypeCode = strPtr("WO"), strPtr("DIV")
	assert.Equal(t, "WO", m.OriginCode())
	assert.Equal(t, "DIV", m.Type())
}

//Personal.AI order the ending
