// Package docket orchestrates the rule engine and the renewal workflow over
// the docket repositories.  Every operation runs in one repository
// transaction; notifications are published after commit.
package docket

import (
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/turtacn/KeyIP-Docket/internal/config"
	domain "github.com/turtacn/KeyIP-Docket/internal/domain/docket"
)

// DefaultCurrency prices renewals whose fee row and task carry no currency.
const DefaultCurrency = "EUR"

// Settings are the business parameters derived from config.DocketConfig.
type Settings struct {
	Fees              domain.FeeCalculator
	Windows           domain.Windows
	Schedule          domain.ScheduleGenerator
	VATRate           decimal.Decimal
	QuoteValidityDays int
	NoticeDays        int
	RenewalCode       string
	PriorityCode      string
	FilingCode        string
}

// SettingsFrom converts a defaulted docket section.
func SettingsFrom(d config.DocketConfig) *Settings {
	windows := domain.Windows{
		DefaultLookBack:       d.DefaultLookBackMonths,
		InternationalLookBack: d.InternationalLookBackMonths,
		DefaultGrace:          d.DefaultGraceMonths,
		InternationalGrace:    d.InternationalGraceMonths,
		InternationalOrigins:  append([]string(nil), d.InternationalOrigins...),
	}
	return &Settings{
		Fees:    domain.NewFeeCalculator(d.DefaultFee, d.DefaultGraceFactor),
		Windows: windows,
		Schedule: domain.ScheduleGenerator{
			Horizon:     d.RenewalHorizonYears,
			Windows:     windows,
			RenewalCode: d.RenewalTaskCode,
			Languages:   append([]string(nil), d.Languages...),
		},
		VATRate:           decimal.NewFromFloat(d.VATRate),
		QuoteValidityDays: d.QuoteValidityDays,
		NoticeDays:        d.NoticeDays,
		RenewalCode:       d.RenewalTaskCode,
		PriorityCode:      d.PriorityEventCode,
		FilingCode:        d.FilingEventCode,
	}
}

// DefaultSettings uses the built-in defaults.
func DefaultSettings() *Settings {
	return SettingsFrom(config.NewDefaultConfig().Docket)
}

func (s *Settings) evaluator() *domain.RuleEvaluator {
	e := domain.NewRuleEvaluator(s.Schedule)
	if s.PriorityCode != "" {
		e.PriorityCode = s.PriorityCode
	}
	return e
}

func (s *Settings) grace() domain.GraceEvaluator {
	return domain.GraceEvaluator{Windows: s.Windows}
}

func (s *Settings) quoteValidUntil(today time.Time) time.Time {
	return domain.Day(today).AddDate(0, 0, s.QuoteValidityDays)
}

// SettingsStore holds the current settings.  Services read it once per
// operation, so a reload never changes parameters mid-transaction.
type SettingsStore struct {
	v atomic.Pointer[Settings]
}

// NewSettingsStore starts from s, or the defaults when s is nil.
func NewSettingsStore(s *Settings) *SettingsStore {
	if s == nil {
		s = DefaultSettings()
	}
	st := &SettingsStore{}
	st.v.Store(s)
	return st
}

func (st *SettingsStore) Load() *Settings {
	return st.v.Load()
}

// Update swaps in the settings of a reloaded configuration.
func (st *SettingsStore) Update(d config.DocketConfig) *Settings {
	s := SettingsFrom(d)
	st.v.Store(s)
	return s
}

//Personal.AI order the ending
