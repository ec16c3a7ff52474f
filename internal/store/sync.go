package store

import (
	"fmt"
	"sync"
	"time"
)

// SyncDataType represents the type of data being synced.
type SyncDataType string

const (
	SyncTypeCalendar SyncDataType = "calendar"
)

// SyncStatus represents the current sync status.
type SyncStatus struct {
	DataType     SyncDataType
	LastSync     time.Time
	IsStale      bool
	StaleMinutes int
}

// DataFreshness represents the freshness of cached data.
type DataFreshness struct {
	DataType    SyncDataType
	LastUpdated time.Time
	IsFresh     bool
	Age         time.Duration
}

// SyncConfig holds configuration for the sync manager.
type SyncConfig struct {
	// StaleThresholds defines how old data can be before it's considered stale.
	StaleThresholds map[SyncDataType]time.Duration
}

// DefaultSyncConfig returns default sync configuration.
func DefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		StaleThresholds: map[SyncDataType]time.Duration{
			SyncTypeCalendar: time.Hour,
		},
	}
}

// SyncManager tracks when each data type was last refreshed from its source.
type SyncManager struct {
	store  SyncStore
	config *SyncConfig
	now    func() time.Time
	mu     sync.RWMutex

	onSyncComplete func(dataType SyncDataType)
	onStaleData    func(dataType SyncDataType, age time.Duration)
}

// NewSyncManager creates a new sync manager.
func NewSyncManager(store SyncStore, config *SyncConfig) *SyncManager {
	if config == nil {
		config = DefaultSyncConfig()
	}
	return &SyncManager{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// SetSyncCompleteCallback sets the callback for when sync completes.
func (sm *SyncManager) SetSyncCompleteCallback(fn func(dataType SyncDataType)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onSyncComplete = fn
}

// SetStaleDataCallback sets the callback for when stale data is detected.
func (sm *SyncManager) SetStaleDataCallback(fn func(dataType SyncDataType, age time.Duration)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onStaleData = fn
}

func (sm *SyncManager) threshold(dataType SyncDataType) time.Duration {
	if t := sm.config.StaleThresholds[dataType]; t > 0 {
		return t
	}
	return time.Hour
}

// GetDataFreshness returns the freshness status of cached data.
func (sm *SyncManager) GetDataFreshness(dataType SyncDataType) *DataFreshness {
	lastSync := sm.store.GetLastSync(string(dataType))
	age := sm.now().Sub(lastSync)

	return &DataFreshness{
		DataType:    dataType,
		LastUpdated: lastSync,
		IsFresh:     !lastSync.IsZero() && age < sm.threshold(dataType),
		Age:         age,
	}
}

// IsDataStale checks if a specific data type is stale.
func (sm *SyncManager) IsDataStale(dataType SyncDataType) bool {
	return !sm.GetDataFreshness(dataType).IsFresh
}

// WarnIfStale checks if data is stale and triggers callback if so.
func (sm *SyncManager) WarnIfStale(dataType SyncDataType) bool {
	freshness := sm.GetDataFreshness(dataType)
	if freshness.IsFresh {
		return false
	}

	sm.mu.RLock()
	callback := sm.onStaleData
	sm.mu.RUnlock()

	if callback != nil {
		callback(dataType, freshness.Age)
	}
	return true
}

// MarkSynced marks a data type as synced now.
func (sm *SyncManager) MarkSynced(dataType SyncDataType) error {
	if err := sm.store.SetLastSync(string(dataType), sm.now()); err != nil {
		return fmt.Errorf("failed to mark %s as synced: %w", dataType, err)
	}

	sm.mu.RLock()
	callback := sm.onSyncComplete
	sm.mu.RUnlock()

	if callback != nil {
		callback(dataType)
	}
	return nil
}

// GetSyncStatus returns the sync status for a data type.
func (sm *SyncManager) GetSyncStatus(dataType SyncDataType) *SyncStatus {
	freshness := sm.GetDataFreshness(dataType)
	return &SyncStatus{
		DataType:     dataType,
		LastSync:     freshness.LastUpdated,
		IsStale:      !freshness.IsFresh,
		StaleMinutes: int(freshness.Age.Minutes()),
	}
}

// FormatFreshness returns a human-readable freshness string.
func FormatFreshness(freshness *DataFreshness) string {
	if freshness.LastUpdated.IsZero() {
		return "Never synced"
	}

	age := freshness.Age
	var ageStr string

	switch {
	case age < time.Minute:
		ageStr = "just now"
	case age < time.Hour:
		ageStr = fmt.Sprintf("%d minutes ago", int(age.Minutes()))
	case age < 24*time.Hour:
		ageStr = fmt.Sprintf("%d hours ago", int(age.Hours()))
	default:
		ageStr = fmt.Sprintf("%d days ago", int(age.Hours()/24))
	}

	if freshness.IsFresh {
		return fmt.Sprintf("Updated %s", ageStr)
	}
	return fmt.Sprintf("Stale data - updated %s", ageStr)
}

// FormatSyncStatus returns a human-readable sync status string.
func FormatSyncStatus(status *SyncStatus) string {
	if status.LastSync.IsZero() {
		return fmt.Sprintf("%s: never synced", status.DataType)
	}

	timeStr := status.LastSync.Local().Format("02/01/2006 15:04:05")
	if status.IsStale {
		return fmt.Sprintf("%s: stale (last sync: %s, %d min ago)", status.DataType, timeStr, status.StaleMinutes)
	}
	return fmt.Sprintf("%s: fresh (last sync: %s)", status.DataType, timeStr)
}
