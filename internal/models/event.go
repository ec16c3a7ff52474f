// Package models defines the core data types shared across the calendar.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for calendar dates (DD/MM/YYYY).
const DateLayout = "02/01/2006"

// ClockLayout is the format of an event's clock time.
const ClockLayout = "15:04"

// EventID is the stable identifier of a calendar record. Providers send it
// either as a JSON number or a string; it is always written back as a string.
type EventID string

// UnmarshalJSON accepts numeric and string identifiers.
func (id *EventID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = EventID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = EventID(n.String())
	return nil
}

// Importance is the provider's impact rating of an event.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// Rank orders importance levels; unknown ratings rank lowest.
func (i Importance) Rank() int {
	switch Importance(strings.ToLower(string(i))) {
	case ImportanceLow:
		return 1
	case ImportanceMedium:
		return 2
	case ImportanceHigh:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether i is rated at or above min.
func (i Importance) AtLeast(min Importance) bool {
	return i.Rank() >= min.Rank() && i.Rank() > 0
}

// EventRecord is one economic calendar entry.
type EventRecord struct {
	ID         EventID    `json:"id"`
	Date       string     `json:"date"`
	Time       *string    `json:"time"`
	Zone       string     `json:"zone"`
	Currency   *string    `json:"currency"`
	Importance Importance `json:"importance"`
	Event      string     `json:"event"`
	Actual     Value      `json:"actual"`
	Forecast   Value      `json:"forecast"`
	Previous   Value      `json:"previous"`
}

// requiredKeys must be present in every record received from a provider.
var requiredKeys = []string{"id", "date", "event"}

// ParseRecord decodes a provider record, checking that required keys are present.
func ParseRecord(raw json.RawMessage) (EventRecord, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return EventRecord{}, fmt.Errorf("record is not an object: %w", err)
	}
	for _, k := range requiredKeys {
		v, ok := keys[k]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return EventRecord{}, fmt.Errorf("missing required key %q", k)
		}
	}

	var rec EventRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return EventRecord{}, err
	}
	if rec.ID == "" {
		return EventRecord{}, fmt.Errorf("empty id")
	}
	return rec, nil
}

// Day returns the record's calendar date.
func (r EventRecord) Day() (time.Time, error) {
	return ParseDate(r.Date)
}

// CurrencyCode returns the upper-cased currency code, or "" when absent.
func (r EventRecord) CurrencyCode() string {
	if r.Currency == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(*r.Currency))
}

// ClockTime returns the raw time string, or "" when absent.
func (r EventRecord) ClockTime() string {
	if r.Time == nil {
		return ""
	}
	return strings.TrimSpace(*r.Time)
}

// StartsAt combines date and clock time in loc. Records without a concrete
// HH:MM time (missing, "All Day", "Tentative") report false.
func (r EventRecord) StartsAt(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	day, err := r.Day()
	if err != nil {
		return time.Time{}, false
	}
	clock, err := time.Parse(ClockLayout, r.ClockTime())
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), true
}

// ParseDate parses a DD/MM/YYYY string into a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// FormatDate formats t's calendar date as DD/MM/YYYY.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// CalendarDate drops the time of day, keeping the date as seen in t's location.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
