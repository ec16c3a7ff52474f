// Package fetch runs provider calls off the consumer goroutine and hands
// exactly one outcome per request back through an Executor.
package fetch

import (
	"context"
	"time"

	"bullion-bell/internal/models"
)

// Kind identifies the terminal result of one fetch.
type Kind int

const (
	OutcomeRecords Kind = iota + 1
	OutcomeEmpty
	OutcomeFailed
)

func (k Kind) String() string {
	switch k {
	case OutcomeRecords:
		return "records"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Request is an inclusive calendar-date range.
type Request struct {
	Start time.Time
	End   time.Time
}

// From returns the start date in provider format.
func (r Request) From() string { return models.FormatDate(r.Start) }

// To returns the end date in provider format.
func (r Request) To() string { return models.FormatDate(r.End) }

// Outcome is the single result delivered for a Request. Records is set only
// for OutcomeRecords and Err only for OutcomeFailed.
type Outcome struct {
	Kind     Kind
	Request  Request
	Records  []models.EventRecord
	Err      error
	Duration time.Duration
}

// Provider fetches calendar events for a DD/MM/YYYY date range.
type Provider interface {
	Fetch(ctx context.Context, from, to string) ([]models.EventRecord, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, from, to string) ([]models.EventRecord, error)

// Fetch calls f.
func (f ProviderFunc) Fetch(ctx context.Context, from, to string) ([]models.EventRecord, error) {
	return f(ctx, from, to)
}

// Executor runs posted functions on the consumer goroutine. Post returns
// false when the function will never run.
type Executor interface {
	Post(fn func()) bool
}
