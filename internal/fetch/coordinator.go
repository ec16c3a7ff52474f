package fetch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"bullion-bell/internal/errors"
	"bullion-bell/internal/logging"
)

// Coordinator converts provider calls into Outcomes. It does not serialize
// concurrent Starts and never retries.
type Coordinator struct {
	provider Provider
	timeout  time.Duration
	logger   zerolog.Logger

	inFlight atomic.Int64
	started  atomic.Uint64
	dropped  atomic.Uint64
}

// NewCoordinator creates a Coordinator. A zero timeout leaves the provider
// call bounded only by the caller's context.
func NewCoordinator(provider Provider, timeout time.Duration, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		provider: provider,
		timeout:  timeout,
		logger:   logging.WithComponent(logger, "fetch"),
	}
}

// Start calls the provider on a new goroutine and posts handle(outcome)
// through exec once the call returns. handle is never invoked from the
// background goroutine itself.
func (c *Coordinator) Start(ctx context.Context, req Request, exec Executor, handle func(Outcome)) {
	c.inFlight.Add(1)
	c.started.Add(1)

	go func() {
		outcome := c.run(ctx, req)
		c.inFlight.Add(-1)

		if !exec.Post(func() { handle(outcome) }) {
			c.dropped.Add(1)
			c.logger.Warn().
				Str("from", req.From()).
				Str("to", req.To()).
				Str("outcome", outcome.Kind.String()).
				Msg("Consumer closed, outcome dropped")
		}
	}()
}

func (c *Coordinator) run(ctx context.Context, req Request) (out Outcome) {
	from, to := req.From(), req.To()
	out.Request = req
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out = Outcome{
				Kind:    OutcomeFailed,
				Request: req,
				Err:     errors.NewFetchError(from, to, fmt.Errorf("provider panic: %v", r)),
			}
		}
		out.Duration = time.Since(start)
		logging.LogFetch(c.logger, from, to, len(out.Records), out.Duration, out.Err)
	}()

	if c.provider == nil {
		out.Kind = OutcomeFailed
		out.Err = errors.NewFetchError(from, to, errors.New("no provider configured"))
		return out
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	records, err := c.provider.Fetch(ctx, from, to)
	switch {
	case err != nil:
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("%w: %v", errors.ErrTimeout, err)
		}
		out.Kind = OutcomeFailed
		out.Err = errors.NewFetchError(from, to, err)
	case len(records) == 0:
		out.Kind = OutcomeEmpty
	default:
		out.Kind = OutcomeRecords
		out.Records = records
	}
	return out
}

// InFlight returns the number of provider calls that have not returned.
func (c *Coordinator) InFlight() int {
	return int(c.inFlight.Load())
}

// Started returns the total number of Start calls.
func (c *Coordinator) Started() uint64 {
	return c.started.Load()
}

// Dropped returns how many outcomes could not be posted.
func (c *Coordinator) Dropped() uint64 {
	return c.dropped.Load()
}
