package provider

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bullion-bell/internal/errors"
	"bullion-bell/internal/fetch"
	"bullion-bell/internal/models"
)

// CircuitState represents the state of a Breaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"    // calls pass through
	CircuitOpen     CircuitState = "OPEN"      // calls rejected until cooldown
	CircuitHalfOpen CircuitState = "HALF_OPEN" // one trial call allowed
)

// BreakerStats holds breaker counters.
type BreakerStats struct {
	State           CircuitState
	Requests        int64
	Failures        int64
	Rejected        int64
	CurrentFailures int
	LastFailure     time.Time
	LastStateChange time.Time
}

// Breaker wraps a provider and rejects calls after a run of consecutive
// failures. An empty result counts as success.
type Breaker struct {
	next      fetch.Provider
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	logger    zerolog.Logger

	mu              sync.Mutex
	state           CircuitState
	failures        int
	trialInFlight   bool
	lastFailure     time.Time
	lastStateChange time.Time
	requests        int64
	totalFailures   int64
	rejected        int64
}

// NewBreaker wraps next. threshold < 1 returns a breaker that never opens.
func NewBreaker(next fetch.Provider, threshold int, cooldown time.Duration, logger zerolog.Logger) *Breaker {
	return &Breaker{
		next:            next,
		threshold:       threshold,
		cooldown:        cooldown,
		now:             time.Now,
		logger:          logger.With().Str("component", "provider_breaker").Logger(),
		state:           CircuitClosed,
		lastStateChange: time.Now(),
	}
}

// Fetch forwards to the wrapped provider unless the circuit is open.
func (b *Breaker) Fetch(ctx context.Context, from, to string) ([]models.EventRecord, error) {
	if err := b.allow(); err != nil {
		return nil, err
	}

	records, err := b.next.Fetch(ctx, from, to)
	if err != nil {
		b.recordFailure()
		return nil, err
	}
	b.recordSuccess()
	return records, nil
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests++
	if b.threshold < 1 {
		return nil
	}

	switch b.state {
	case CircuitOpen:
		if b.now().Sub(b.lastFailure) < b.cooldown {
			b.rejected++
			return errors.ErrCircuitOpen
		}
		b.transitionTo(CircuitHalfOpen)
		b.trialInFlight = true
		return nil
	case CircuitHalfOpen:
		if b.trialInFlight {
			b.rejected++
			return errors.ErrCircuitOpen
		}
		b.trialInFlight = true
	}
	return nil
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != CircuitClosed {
		b.logger.Info().Msg("Provider recovered, closing circuit")
		b.transitionTo(CircuitClosed)
	}
	b.failures = 0
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalFailures++
	b.lastFailure = b.now()
	if b.threshold < 1 {
		return
	}

	switch b.state {
	case CircuitClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.logger.Warn().Int("failures", b.failures).Dur("cooldown", b.cooldown).Msg("Opening provider circuit")
			b.transitionTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		b.transitionTo(CircuitOpen)
	}
}

func (b *Breaker) transitionTo(state CircuitState) {
	b.state = state
	b.lastStateChange = b.now()
	b.failures = 0
	b.trialInFlight = false
}

// State returns the current circuit state.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns breaker counters.
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{
		State:           b.state,
		Requests:        b.requests,
		Failures:        b.totalFailures,
		Rejected:        b.rejected,
		CurrentFailures: b.failures,
		LastFailure:     b.lastFailure,
		LastStateChange: b.lastStateChange,
	}
}

// Reset closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(CircuitClosed)
}
