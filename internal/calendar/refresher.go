package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"bullion-bell/internal/fetch"
)

// Refresher posts an activation onto the consumer loop on a cron schedule.
// Ticks that land while a fetch is outstanding are coalesced by Activate.
type Refresher struct {
	cron    *cron.Cron
	service *Service
	exec    fetch.Executor
	now     func() time.Time
	logger  zerolog.Logger
	ticks   int
}

// NewRefresher schedules refreshes with a standard five-field cron spec.
func NewRefresher(ctx context.Context, spec string, loc *time.Location, svc *Service, exec fetch.Executor, logger zerolog.Logger) (*Refresher, error) {
	if loc == nil {
		loc = time.Local
	}
	r := &Refresher{
		cron:    cron.New(cron.WithLocation(loc)),
		service: svc,
		exec:    exec,
		now:     time.Now,
		logger:  logger.With().Str("component", "refresher").Logger(),
	}

	if _, err := r.cron.AddFunc(spec, func() { r.Tick(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return r, nil
}

// Tick posts one activation. It is what the schedule runs.
func (r *Refresher) Tick(ctx context.Context) {
	now := r.now()
	if !r.exec.Post(func() {
		r.ticks++
		r.service.Activate(ctx, now)
	}) {
		r.logger.Debug().Msg("Loop closed, refresh skipped")
	}
}

// Start begins the schedule in its own goroutine.
func (r *Refresher) Start() {
	r.cron.Start()
	for _, e := range r.cron.Entries() {
		r.logger.Info().Time("next", e.Next).Msg("Calendar refresh scheduled")
	}
}

// Stop halts the schedule and waits for a running tick to return. A tick
// blocked on a full loop only returns once the loop drains or closes, so
// close the loop first when it is no longer being run.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

// Ticks returns how many scheduled activations reached the loop.
func (r *Refresher) Ticks() int {
	return r.ticks
}

// Next returns the next scheduled run, or the zero time before Start.
func (r *Refresher) Next() time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
