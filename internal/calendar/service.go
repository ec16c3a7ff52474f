// Package calendar orchestrates the calendar sync: cached rows are shown
// first, then a provider fetch is merged into the record store and the
// merged range is shown again.
package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bullion-bell/internal/errors"
	"bullion-bell/internal/fetch"
	"bullion-bell/internal/logging"
	"bullion-bell/internal/models"
	"bullion-bell/internal/store"
)

// State is the sync state of a session.
type State int

const (
	StateIdle State = iota
	StateFetching
)

func (s State) String() string {
	if s == StateFetching {
		return "fetching"
	}
	return "idle"
}

// Source tells a View where published rows came from.
type Source int

const (
	SourceCache Source = iota + 1
	SourceRemote
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// View renders published rows and recoverable errors. It is only called
// from the consumer goroutine.
type View interface {
	Publish(records []models.EventRecord, source Source)
	NotifyError(err error)
}

// SyncRecorder records successful syncs.
type SyncRecorder interface {
	MarkSynced(dataType store.SyncDataType) error
}

// ErrorNotifier forwards sync errors outside the view.
type ErrorNotifier interface {
	SendSyncError(ctx context.Context, err error) error
}

// MergeListener is told about the merged window after every successful merge.
type MergeListener interface {
	OnMerge(ctx context.Context, records []models.EventRecord)
}

// DefaultNotifyTimeout bounds one sync error notification.
const DefaultNotifyTimeout = 30 * time.Second

// Service runs activations for one session. Activate and every outcome
// handler run on the consumer goroutine behind exec, so the state needs no
// lock.
type Service struct {
	records store.RecordStore
	coord   *fetch.Coordinator
	exec    fetch.Executor
	view    View
	window  Window
	loc     *time.Location
	logger  zerolog.Logger

	syncRecorder  SyncRecorder
	notifier      ErrorNotifier
	notifyTimeout time.Duration
	notifying     sync.WaitGroup
	listeners     []MergeListener

	state       State
	current     fetch.Request
	activations int
	coalesced   int
	lastOutcome fetch.Kind
	lastErr     error
}

// NewService creates a Service using the default window and local time.
func NewService(records store.RecordStore, coord *fetch.Coordinator, exec fetch.Executor, view View, logger zerolog.Logger) *Service {
	return &Service{
		records: records,
		coord:   coord,
		exec:    exec,
		view:    view,
		window:  DefaultWindow(),
		loc:     time.Local,
		logger:  logging.WithComponent(logger, "calendar"),

		notifyTimeout: DefaultNotifyTimeout,
	}
}

// SetWindow changes the activation window.
func (s *Service) SetWindow(w Window) { s.window = w }

// SetLocation sets the timezone used to pick "today".
func (s *Service) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

// SetSyncRecorder sets where successful syncs are recorded.
func (s *Service) SetSyncRecorder(r SyncRecorder) { s.syncRecorder = r }

// SetNotifier sets where sync errors are forwarded. Notifications are sent
// off the consumer goroutine.
func (s *Service) SetNotifier(n ErrorNotifier) { s.notifier = n }

// SetNotifyTimeout bounds each sync error notification.
func (s *Service) SetNotifyTimeout(d time.Duration) {
	if d > 0 {
		s.notifyTimeout = d
	}
}

// WaitNotifications blocks until every sync error notification started so
// far has returned.
func (s *Service) WaitNotifications() { s.notifying.Wait() }

// AddMergeListener registers l to run after each successful merge.
func (s *Service) AddMergeListener(l MergeListener) {
	if l != nil {
		s.listeners = append(s.listeners, l)
	}
}

// Activate serves the cached window and starts a fetch for it. It returns
// false when a fetch is already outstanding; the call is then a no-op.
func (s *Service) Activate(ctx context.Context, now time.Time) bool {
	if s.state == StateFetching {
		s.coalesced++
		s.logger.Debug().
			Str("from", s.current.From()).
			Str("to", s.current.To()).
			Msg("Fetch in flight, activation coalesced")
		return false
	}
	s.activations++

	start, end := s.window.Bounds(now, s.loc)
	req := fetch.Request{Start: start, End: end}

	if cached := s.records.QueryRange(start, end); len(cached) > 0 {
		s.view.Publish(cached, SourceCache)
	}

	s.state = StateFetching
	s.current = req
	s.coord.Start(ctx, req, s.exec, func(o fetch.Outcome) {
		s.handle(ctx, o)
	})
	return true
}

func (s *Service) handle(ctx context.Context, o fetch.Outcome) {
	defer func() { s.state = StateIdle }()
	s.lastOutcome = o.Kind

	switch o.Kind {
	case fetch.OutcomeRecords:
		added, err := s.records.MergeInsert(o.Records)
		if err != nil {
			s.fail(ctx, err)
			return
		}
		s.lastErr = nil

		merged := s.records.QueryRange(o.Request.Start, o.Request.End)
		s.logger.Info().
			Int("received", len(o.Records)).
			Int("added", added).
			Int("window", len(merged)).
			Msg("Calendar merged")
		s.view.Publish(merged, SourceRemote)

		if s.syncRecorder != nil {
			if err := s.syncRecorder.MarkSynced(store.SyncTypeCalendar); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to record sync time")
			}
		}
		for _, l := range s.listeners {
			l.OnMerge(ctx, merged)
		}

	case fetch.OutcomeEmpty:
		s.fail(ctx, errors.NewFetchError(o.Request.From(), o.Request.To(), errors.ErrEmptyResult))

	default:
		s.fail(ctx, o.Err)
	}
}

func (s *Service) fail(ctx context.Context, err error) {
	if err == nil {
		err = errors.New("fetch failed without a reason")
	}
	s.lastErr = err
	s.logger.Warn().Err(err).Msg("Calendar sync failed")
	s.view.NotifyError(err)

	if s.notifier == nil {
		return
	}
	s.notifying.Add(1)
	go func(n ErrorNotifier) {
		defer s.notifying.Done()
		nctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
		defer cancel()
		if nerr := n.SendSyncError(nctx, err); nerr != nil {
			s.logger.Debug().Err(nerr).Msg("Failed to send sync error notification")
		}
	}(s.notifier)
}

// State returns the current sync state.
func (s *Service) State() State { return s.state }

// Idle reports whether no fetch is outstanding.
func (s *Service) Idle() bool { return s.state == StateIdle }

// Stats returns how many activations started a fetch and how many were
// coalesced.
func (s *Service) Stats() (activations, coalesced int) {
	return s.activations, s.coalesced
}

// LastResult returns the most recent outcome kind and the error it surfaced.
func (s *Service) LastResult() (fetch.Kind, error) {
	return s.lastOutcome, s.lastErr
}
