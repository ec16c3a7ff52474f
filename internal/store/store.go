// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"bullion-bell/internal/models"
)

// RecordStore is the durable calendar record cache.
type RecordStore interface {
	QueryRange(start, end time.Time) []models.EventRecord
	MergeInsert(records []models.EventRecord) (int, error)
	Clear() error
	Len() int
}

// AlertStore persists event alerts.
type AlertStore interface {
	SaveAlert(ctx context.Context, alert *models.Alert) error
	GetAlerts(ctx context.Context, filter AlertFilter) ([]models.Alert, error)
	GetDueAlerts(ctx context.Context, now time.Time) ([]models.Alert, error)
	HasAlertForEvent(ctx context.Context, eventID models.EventID) (bool, error)
	TriggerAlert(ctx context.Context, alertID string, at time.Time) error
	DeleteAlert(ctx context.Context, alertID string) error
}

// SyncStore records when each data type was last synced.
type SyncStore interface {
	GetLastSync(dataType string) time.Time
	SetLastSync(dataType string, t time.Time) error
}

// AlertFilter represents filters for querying alerts.
type AlertFilter struct {
	EventID          models.EventID
	IncludeTriggered bool
	Limit            int
}
