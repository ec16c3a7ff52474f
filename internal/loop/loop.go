// Package loop provides a single-threaded task queue. Background goroutines
// post closures and the owning goroutine runs them one at a time, so state
// touched only from tasks needs no locking.
package loop

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultBufferSize is the task channel capacity used when none is given.
const DefaultBufferSize = 64

// Loop is a FIFO task queue drained by whichever goroutine calls Run,
// RunPending or RunUntil.
type Loop struct {
	tasks  chan func()
	done   chan struct{}
	once   sync.Once
	logger zerolog.Logger

	mu       sync.Mutex
	executed uint64
	panics   uint64
}

// New creates a Loop with the given channel buffer.
func New(buffer int, logger zerolog.Logger) *Loop {
	if buffer < 1 {
		buffer = DefaultBufferSize
	}
	return &Loop{
		tasks:  make(chan func(), buffer),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "loop").Logger(),
	}
}

// Post queues fn. It blocks while the buffer is full and returns false once
// the loop is closed. Safe to call from any goroutine.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run executes tasks until ctx is done or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			l.execute(fn)
		}
	}
}

// RunPending executes the tasks already queued without waiting for more and
// returns how many ran.
func (l *Loop) RunPending() int {
	n := 0
	for {
		select {
		case fn := <-l.tasks:
			l.execute(fn)
			n++
		default:
			return n
		}
	}
}

// RunUntil executes tasks until cond reports true. cond is evaluated on the
// calling goroutine before each wait, so it may read loop-owned state.
func (l *Loop) RunUntil(ctx context.Context, cond func() bool) error {
	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			l.execute(fn)
		}
	}
	return nil
}

// Close stops accepting tasks and wakes any running drain. Queued tasks that
// have not run are discarded.
func (l *Loop) Close() {
	l.once.Do(func() {
		close(l.done)
	})
}

// Closed reports whether Close has been called.
func (l *Loop) Closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Stats returns the number of executed and panicked tasks.
func (l *Loop) Stats() (executed, panics uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.executed, l.panics
}

func (l *Loop) execute(fn func()) {
	defer func() {
		l.mu.Lock()
		l.executed++
		l.mu.Unlock()
	}()
	defer l.recoverPanic()
	fn()
}

func (l *Loop) recoverPanic() {
	if r := recover(); r != nil {
		l.mu.Lock()
		l.panics++
		l.mu.Unlock()
		l.logger.Error().Str("panic", fmt.Sprint(r)).Msg("Task panicked")
	}
}
