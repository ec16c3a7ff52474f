package models

import "time"

// Alert is a one-shot reminder tied to a calendar event.
type Alert struct {
	ID          string
	EventID     EventID
	Title       string
	Currency    string
	Importance  Importance
	FireAt      time.Time
	Triggered   bool
	CreatedAt   time.Time
	TriggeredAt *time.Time
}

// IsDue reports whether the alert should fire at now.
func (a *Alert) IsDue(now time.Time) bool {
	return !a.Triggered && !now.Before(a.FireAt)
}
