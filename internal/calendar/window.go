package calendar

import (
	"time"

	"bullion-bell/internal/models"
)

// Window is the span of days around "now" that an activation covers.
type Window struct {
	DaysBefore int
	DaysAfter  int
}

// DefaultWindow is yesterday through a week ahead.
func DefaultWindow() Window {
	return Window{DaysBefore: 1, DaysAfter: 7}
}

// Bounds returns the inclusive calendar dates of the window around now, as
// seen in loc. A nil loc uses now's own location.
func (w Window) Bounds(now time.Time, loc *time.Location) (start, end time.Time) {
	if loc != nil {
		now = now.In(loc)
	}
	day := models.CalendarDate(now)
	return day.AddDate(0, 0, -w.DaysBefore), day.AddDate(0, 0, w.DaysAfter)
}
