package docket

import (
	"fmt"

	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

// RenewalMode tells from which event the first payable year is counted.
type RenewalMode string

const (
	// CountFromBase counts years from the renewal-base (filing-like) event.
	CountFromBase RenewalMode = "BASE"
	// CountFromStart counts years from the renewal-start (grant-like) event.
	CountFromStart RenewalMode = "START"
)

// RenewalFirst is the first payable renewal year and its counting mode.
type RenewalFirst struct {
	Mode RenewalMode `json:"mode"`
	Year int         `json:"year"`
}

// RenewalFirstFromSigned decodes the stored signed form: positive values
// count from the base event, negative ones from the start event.
func RenewalFirstFromSigned(v int) (RenewalFirst, error) {
	switch {
	case v > 0:
		return RenewalFirst{Mode: CountFromBase, Year: v}, nil
	case v < 0:
		return RenewalFirst{Mode: CountFromStart, Year: -v}, nil
	default:
		return RenewalFirst{}, errors.New(errors.CodeCountryParamsMissing, "renewal_first must not be zero")
	}
}

// Signed encodes the value for storage.
func (f RenewalFirst) Signed() int {
	if f.Mode == CountFromStart {
		return -f.Year
	}
	return f.Year
}

func (f RenewalFirst) String() string {
	return fmt.Sprintf("%s+%d", f.Mode, f.Year)
}

// CountryRenewal holds the renewal parameters of a jurisdiction.
type CountryRenewal struct {
	Country        string       `json:"country"`
	First          RenewalFirst `json:"first"`
	BaseEvent      string       `json:"renewal_base"`
	StartEvent     string       `json:"renewal_start"`
	GraceMonths    *int         `json:"grace_months,omitempty"`
	LookBackMonths *int         `json:"look_back_months,omitempty"`
}

// Validate reports incomplete parameters.
func (c *CountryRenewal) Validate() error {
	if c.BaseEvent == "" || c.StartEvent == "" {
		return errors.New(errors.CodeCountryParamsMissing, "country has no renewal base/start events").
			WithDetailf("country=%s", c.Country)
	}
	if c.First.Year < 1 {
		return errors.New(errors.CodeCountryParamsMissing, "country renewal_first year must be positive").
			WithDetailf("country=%s", c.Country)
	}
	if c.First.Mode != CountFromBase && c.First.Mode != CountFromStart {
		return errors.New(errors.CodeCountryParamsMissing, "country renewal_first mode is unknown").
			WithDetailf("country=%s mode=%s", c.Country, c.First.Mode)
	}
	return nil
}

// Windows resolves grace and look-back lengths in months.  A per-country
// value wins; otherwise international origins get the long window.
type Windows struct {
	DefaultLookBack       int
	InternationalLookBack int
	DefaultGrace          int
	InternationalGrace    int
	InternationalOrigins  []string
}

// DefaultWindows returns the usual 6 month window and the 19 month window
// for PCT national phases.
func DefaultWindows() Windows {
	return Windows{
		DefaultLookBack:       6,
		InternationalLookBack: 19,
		DefaultGrace:          6,
		InternationalGrace:    19,
		InternationalOrigins:  []string{"WO"},
	}
}

func (w Windows) international(origin string) bool {
	for _, o := range w.InternationalOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

// LookBack returns the look-back window for a matter origin.
func (w Windows) LookBack(c *CountryRenewal, origin string) int {
	if c != nil && c.LookBackMonths != nil {
		return *c.LookBackMonths
	}
	if w.international(origin) {
		return w.InternationalLookBack
	}
	return w.DefaultLookBack
}

// Grace returns the grace window for a matter origin.
func (w Windows) Grace(c *CountryRenewal, origin string) int {
	if c != nil && c.GraceMonths != nil {
		return *c.GraceMonths
	}
	if w.international(origin) {
		return w.InternationalGrace
	}
	return w.DefaultGrace
}

//Personal.AI order the ending
