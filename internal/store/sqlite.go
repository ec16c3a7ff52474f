// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"bullion-bell/internal/errors"
	"bullion-bell/internal/models"
)

// SQLiteStore implements AlertStore and SyncStore using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	syncTimes map[string]time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:        db,
		syncTimes: make(map[string]time.Time),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Event alerts; fire_at is unix seconds so range scans compare numerically
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		title TEXT NOT NULL,
		currency TEXT,
		importance TEXT,
		fire_at INTEGER NOT NULL,
		triggered INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		triggered_at DATETIME
	);

	-- Sync status table
	CREATE TABLE IF NOT EXISTS sync_status (
		data_type TEXT PRIMARY KEY,
		last_sync DATETIME NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_event ON alerts(event_id);
	CREATE INDEX IF NOT EXISTS idx_alerts_due ON alerts(triggered, fire_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Alerts Methods
// ============================================================================

const alertColumns = `id, event_id, title, currency, importance, fire_at, triggered, created_at, triggered_at`

// SaveAlert saves an alert to the database.
func (s *SQLiteStore) SaveAlert(ctx context.Context, alert *models.Alert) error {
	triggered := 0
	if alert.Triggered {
		triggered = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO alerts (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, alert.ID, string(alert.EventID), alert.Title, alert.Currency, string(alert.Importance),
		alert.FireAt.Unix(), triggered, alert.CreatedAt.UTC(), utcPtr(alert.TriggeredAt))
	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

// GetAlerts retrieves alerts ordered by fire time.
func (s *SQLiteStore) GetAlerts(ctx context.Context, filter AlertFilter) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts`
	var where []string
	var args []interface{}

	if !filter.IncludeTriggered {
		where = append(where, "triggered = 0")
	}
	if filter.EventID != "" {
		where = append(where, "event_id = ?")
		args = append(args, string(filter.EventID))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY fire_at ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	return s.queryAlerts(ctx, query, args...)
}

// GetDueAlerts retrieves untriggered alerts whose fire time is at or before now.
func (s *SQLiteStore) GetDueAlerts(ctx context.Context, now time.Time) ([]models.Alert, error) {
	return s.queryAlerts(ctx, `
		SELECT `+alertColumns+`
		FROM alerts WHERE triggered = 0 AND fire_at <= ? ORDER BY fire_at ASC
	`, now.Unix())
}

// HasAlertForEvent reports whether any alert exists for the event.
func (s *SQLiteStore) HasAlertForEvent(ctx context.Context, eventID models.EventID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM alerts WHERE event_id = ?
	`, string(eventID)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n > 0, nil
}

// TriggerAlert marks an alert as triggered.
func (s *SQLiteStore) TriggerAlert(ctx context.Context, alertID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET triggered = 1, triggered_at = ? WHERE id = ? AND triggered = 0
	`, at.UTC(), alertID)
	if err != nil {
		return fmt.Errorf("failed to trigger alert: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert %s: %w", alertID, errors.ErrDataNotFound)
	}

	return nil
}

// DeleteAlert removes an alert.
func (s *SQLiteStore) DeleteAlert(ctx context.Context, alertID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, alertID)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert %s: %w", alertID, errors.ErrDataNotFound)
	}
	return nil
}

func (s *SQLiteStore) queryAlerts(ctx context.Context, query string, args ...interface{}) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var eventID, importance string
		var currency sql.NullString
		var fireAt int64
		var triggered int
		if err := rows.Scan(&a.ID, &eventID, &a.Title, &currency, &importance, &fireAt, &triggered, &a.CreatedAt, &a.TriggeredAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.EventID = models.EventID(eventID)
		a.Currency = currency.String
		a.Importance = models.Importance(importance)
		a.FireAt = time.Unix(fireAt, 0)
		a.Triggered = triggered == 1
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// ============================================================================
// Sync Methods
// ============================================================================

// GetLastSync returns the last sync time for a data type.
func (s *SQLiteStore) GetLastSync(dataType string) time.Time {
	s.mu.RLock()
	if t, ok := s.syncTimes[dataType]; ok {
		s.mu.RUnlock()
		return t
	}
	s.mu.RUnlock()

	var lastSync time.Time
	err := s.db.QueryRow(`
		SELECT last_sync FROM sync_status WHERE data_type = ?
	`, dataType).Scan(&lastSync)
	if err != nil {
		return time.Time{}
	}

	s.mu.Lock()
	s.syncTimes[dataType] = lastSync
	s.mu.Unlock()

	return lastSync
}

// SetLastSync sets the last sync time for a data type.
func (s *SQLiteStore) SetLastSync(dataType string, t time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_status (data_type, last_sync, updated_at)
		VALUES (?, ?, ?)
	`, dataType, t.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set last sync: %w", err)
	}

	s.mu.Lock()
	s.syncTimes[dataType] = t
	s.mu.Unlock()

	return nil
}
