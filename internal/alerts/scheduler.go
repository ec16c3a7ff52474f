package alerts

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"bullion-bell/internal/errors"
	"bullion-bell/internal/logging"
	"bullion-bell/internal/models"
	"bullion-bell/internal/notify"
	"bullion-bell/internal/store"
)

// DefaultCheckInterval is how often due alerts are checked.
const DefaultCheckInterval = 60 * time.Second

// Scheduler fires due alerts through a notifier, each exactly once.
type Scheduler struct {
	store    store.AlertStore
	notifier notify.Notifier
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	onTrigger func(*models.Alert)
}

// NewScheduler creates a Scheduler. A nil notifier only marks alerts.
func NewScheduler(st store.AlertStore, notifier notify.Notifier, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Scheduler{
		store:    st,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
		logger:   logger.With().Str("component", "alert_scheduler").Logger(),
	}
}

// SetOnTrigger sets a callback run after an alert fires.
func (s *Scheduler) SetOnTrigger(fn func(*models.Alert)) {
	s.onTrigger = fn
}

// Run checks immediately and then on every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.CheckOnce(ctx, s.now()); err != nil {
			s.logger.Warn().Err(err).Msg("Alert check failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// CheckOnce fires every alert due at now and returns how many fired.
func (s *Scheduler) CheckOnce(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.GetDueAlerts(ctx, now)
	if err != nil {
		return 0, err
	}

	fired := 0
	for i := range due {
		alert := &due[i]

		if err := s.store.TriggerAlert(ctx, alert.ID, now); err != nil {
			if errors.Is(err, errors.ErrDataNotFound) {
				continue // fired or removed meanwhile
			}
			return fired, err
		}
		alert.Triggered = true
		alert.TriggeredAt = &now
		fired++

		logging.LogAlert(s.logger, alert.ID, string(alert.EventID), alert.Title, alert.FireAt)

		if s.notifier != nil {
			if err := s.notifier.SendEventAlert(ctx, alert); err != nil {
				s.logger.Warn().Err(err).Str("alert_id", alert.ID).Msg("Failed to deliver alert")
			}
		}
		if s.onTrigger != nil {
			s.onTrigger(alert)
		}
	}
	return fired, nil
}
