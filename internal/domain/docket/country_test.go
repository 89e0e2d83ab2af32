package docket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

func TestRenewalFirst_SignedRoundTrip(t *testing.T) {
	f, err := RenewalFirstFromSigned(2)
	require.NoError(t, err)
	assert.Equal(t, RenewalFirst{Mode: CountFromBase, Year: 2}, f)
	assert.Equal(t, 2, f.Signed())

	f, err = RenewalFirstFromSigned(-3)
	require.NoError(t, err)
	assert.Equal(t, RenewalFirst{Mode: CountFromStart, Year: 3}, f)
	assert.Equal(t, -3, f.Signed())

	_, err = RenewalFirstFromSigned(0)
	assert.True(t, errors.IsCode(err, errors.CodeCountryParamsMissing))
}

func TestCountryRenewal_Validate(t *testing.T) {
	c := &CountryRenewal{Country: "US", First: RenewalFirst{Mode: CountFromBase, Year: 2}, BaseEvent: "FIL", StartEvent: "FIL"}
	assert.NoError(t, c.Validate())

	c.StartEvent = ""
	assert.True(t, errors.IsCode(c.Validate(), errors.CodeCountryParamsMissing))

	c.StartEvent = "FIL"
	c.First.Year = 0
	assert.Error(t, c.Validate())

	c.First = RenewalFirst{Mode: "SIDEWAYS", Year: 1}
	assert.Error(t, c.Validate())
}

func TestWindows(t *testing.T) {
	w := DefaultWindows()
	assert.Equal(t, 6, w.LookBack(nil, ""))
	assert.Equal(t, 6, w.LookBack(nil, "EP"))
	assert.Equal(t, 19, w.LookBack(nil, "WO"))
	assert.Equal(t, 19, w.Grace(nil, "WO"))

	c := &CountryRenewal{Country: "JP", LookBackMonths: intPtr(12), GraceMonths: intPtr(9)}
	assert.Equal(t, 12, w.LookBack(c, "WO"))
	assert.Equal(t, 9, w.Grace(c, ""))
}

//Personal.AI order the ending
