package docket

import (
	"time"

	"github.com/turtacn/KeyIP-Docket/pkg/errors"
)

// Event is a dated occurrence on a matter.  Linked events (AltMatterID set)
// take their date from the linked matter's filing event when none is given.
type Event struct {
	ID          int64     `json:"id"`
	MatterID    int64     `json:"matter_id"`
	Code        string    `json:"code"`
	EventDate   time.Time `json:"event_date"`
	AltMatterID *int64    `json:"alt_matter_id,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatorID   string    `json:"creator,omitempty"`
	UpdaterID   string    `json:"updater,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasDate reports whether the event date is known.
func (e *Event) HasDate() bool {
	return !e.EventDate.IsZero()
}

// Validate checks an event before it is stored.  A missing date is only
// acceptable for linked events, which are back-filled.
func (e *Event) Validate() error {
	if e.MatterID == 0 {
		return errors.InvalidParam("event matter_id is required")
	}
	if e.Code == "" {
		return errors.InvalidParam("event code is required")
	}
	if !e.HasDate() && e.AltMatterID == nil {
		return errors.New(errors.CodeEventDateUnresolved, "event date is required for events without a linked matter").
			WithDetailf("matter_id=%d code=%s", e.MatterID, e.Code)
	}
	return nil
}

// EventName is an entry of the event-code catalog.
type EventName struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	IsTask     bool   `json:"is_task"`
	StatusCode bool   `json:"status_event"`
}

// EventSet indexes a matter's events by code.
type EventSet map[string][]*Event

// NewEventSet groups events by code.
func NewEventSet(events []*Event) EventSet {
	set := make(EventSet, len(events))
	for _, e := range events {
		set[e.Code] = append(set[e.Code], e)
	}
	return set
}

// Has reports whether at least one event with code exists.
func (s EventSet) Has(code string) bool {
	return len(s[code]) > 0
}

// Earliest returns the earliest dated event with code.
func (s EventSet) Earliest(code string) (*Event, bool) {
	var best *Event
	for _, e := range s[code] {
		if !e.HasDate() {
			continue
		}
		if best == nil || e.EventDate.Before(best.EventDate) {
			best = e
		}
	}
	return best, best != nil
}

//Personal.AI order the ending
