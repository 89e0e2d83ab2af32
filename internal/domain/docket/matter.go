package docket

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

// Category is the kind of IP right a matter tracks.
type Category string

const (
	CategoryPatent    Category = "PAT"
	CategoryTrademark Category = "TM"
	CategoryDesign    Category = "DSG"
	CategoryUtility   Category = "UM"
)

// Matter is a tracked IP case.
type Matter struct {
	ID            int64           `json:"id"`
	Category      Category        `json:"category"`
	CaseRef       string          `json:"caseref"`
	Country       string          `json:"country"`
	Origin        *string         `json:"origin,omitempty"`
	TypeCode      *string         `json:"type_code,omitempty"`
	Idx           *int            `json:"idx,omitempty"`
	ContainerID   *int64          `json:"container_id,omitempty"`
	ParentID      *int64          `json:"parent_id,omitempty"`
	ExpireDate    *time.Time      `json:"expire_date,omitempty"`
	Dead          bool            `json:"dead"`
	SmeStatus     bool            `json:"sme_status"`
	Discount      decimal.Decimal `json:"discount"`
	ResponsibleID string          `json:"responsible"`
	UID           string          `json:"uid"`
	CreatorID     string          `json:"creator,omitempty"`
	UpdaterID     string          `json:"updater,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int64           `json:"version"`
}

// ComposeUID builds the human-readable matter identifier:
// caseref + country, then "-origin", "-type" and ".idx" when present.
func ComposeUID(caseRef, country string, origin, typeCode *string, idx *int) string {
	var b strings.Builder
	b.WriteString(caseRef)
	b.WriteString(country)
	if origin != nil && *origin != "" {
		b.WriteByte('-')
		b.WriteString(*origin)
	}
	if typeCode != nil && *typeCode != "" {
		b.WriteByte('-')
		b.WriteString(*typeCode)
	}
	if idx != nil && *idx != 0 {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(*idx))
	}
	return b.String()
}

// RecomputeUID refreshes UID from the identifying fields.  Repositories call
// it on every insert and update; UID is never accepted from callers.
func (m *Matter) RecomputeUID() {
	m.UID = ComposeUID(m.CaseRef, m.Country, m.Origin, m.TypeCode, m.Idx)
}

// OriginCode returns the origin or "" when the matter has none.
func (m *Matter) OriginCode() string {
	if m.Origin == nil {
		return ""
	}
	return *m.Origin
}

// Type returns the type code or "".
func (m *Matter) Type() string {
	if m.TypeCode == nil {
		return ""
	}
	return *m.TypeCode
}

// Validate checks the fields a matter must carry before it is stored.
func (m *Matter) Validate() error {
	if strings.TrimSpace(m.CaseRef) == "" {
		return errors.InvalidParam("matter caseref is required")
	}
	if len(m.Country) != 2 {
		return errors.InvalidParam("matter country must be a two-letter code").WithDetailf("country=%q", m.Country)
	}
	if m.Category == "" {
		return errors.InvalidParam("matter category is required")
	}
	// The UID omits a zero idx, so 0 would collide with "no idx".
	if m.Idx != nil && *m.Idx < 1 {
		return errors.InvalidParam("matter idx must be positive").WithDetailf("idx=%d", *m.Idx)
	}
	if m.Discount.IsNegative() {
		return errors.InvalidParam("matter discount must not be negative")
	}
	return nil
}

//Personal.AI order the ending
