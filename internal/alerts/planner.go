// Package alerts plans and fires one-shot reminders ahead of calendar events.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bullion-bell/internal/errors"
	"bullion-bell/internal/models"
	"bullion-bell/internal/store"
)

// NewAlert builds an alert that fires lead before rec starts in loc. Events
// without a concrete clock time cannot be alerted.
func NewAlert(rec models.EventRecord, lead time.Duration, loc *time.Location, now time.Time) (*models.Alert, error) {
	startsAt, ok := rec.StartsAt(loc)
	if !ok {
		return nil, errors.NewValidationError("time", rec.ClockTime(), fmt.Sprintf("event %s has no scheduled time", rec.ID))
	}
	if lead < 0 {
		return nil, errors.NewValidationError("lead", lead, "lead must be non-negative")
	}

	return &models.Alert{
		ID:         uuid.NewString(),
		EventID:    rec.ID,
		Title:      rec.Event,
		Currency:   rec.CurrencyCode(),
		Importance: rec.Importance,
		FireAt:     startsAt.Add(-lead),
		CreatedAt:  now,
	}, nil
}

// Planner creates alerts for important upcoming events after each merge.
type Planner struct {
	store      store.AlertStore
	lead       time.Duration
	importance models.Importance
	loc        *time.Location
	now        func() time.Time
	logger     zerolog.Logger
}

// NewPlanner creates a Planner. An empty importance disables planning.
func NewPlanner(st store.AlertStore, lead time.Duration, importance models.Importance, loc *time.Location, logger zerolog.Logger) *Planner {
	if loc == nil {
		loc = time.Local
	}
	return &Planner{
		store:      st,
		lead:       lead,
		importance: importance,
		loc:        loc,
		now:        time.Now,
		logger:     logger.With().Str("component", "alert_planner").Logger(),
	}
}

// OnMerge plans alerts for the merged window.
func (p *Planner) OnMerge(ctx context.Context, records []models.EventRecord) {
	created, err := p.Plan(ctx, records)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Alert planning incomplete")
	}
	if created > 0 {
		p.logger.Info().Int("created", created).Msg("Planned event alerts")
	}
}

// Plan saves an alert for every qualifying future event that has none yet
// and returns how many were created.
func (p *Planner) Plan(ctx context.Context, records []models.EventRecord) (int, error) {
	if p.importance == "" {
		return 0, nil
	}

	now := p.now()
	created := 0
	for _, rec := range records {
		if !rec.Importance.AtLeast(p.importance) {
			continue
		}
		startsAt, ok := rec.StartsAt(p.loc)
		if !ok || !startsAt.After(now) {
			continue
		}

		exists, err := p.store.HasAlertForEvent(ctx, rec.ID)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}

		alert, err := NewAlert(rec, p.lead, p.loc, now)
		if err != nil {
			continue
		}
		if err := p.store.SaveAlert(ctx, alert); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
