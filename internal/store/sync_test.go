package store

import (
	"strings"
	"sync"
	"testing"
	"time"
)

type memSyncStore struct {
	mu    sync.Mutex
	times map[string]time.Time
}

func (m *memSyncStore) GetLastSync(dataType string) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.times[dataType]
}

func (m *memSyncStore) SetLastSync(dataType string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.times == nil {
		m.times = map[string]time.Time{}
	}
	m.times[dataType] = t
	return nil
}

func TestSyncManager_Freshness(t *testing.T) {
	now := time.Date(2024, 9, 20, 12, 0, 0, 0, time.UTC)
	sm := NewSyncManager(&memSyncStore{}, nil)
	sm.now = func() time.Time { return now }

	if !sm.IsDataStale(SyncTypeCalendar) {
		t.Error("never-synced data should be stale")
	}
	if got := FormatFreshness(sm.GetDataFreshness(SyncTypeCalendar)); got != "Never synced" {
		t.Errorf("FormatFreshness = %q", got)
	}

	var completed SyncDataType
	sm.SetSyncCompleteCallback(func(dt SyncDataType) { completed = dt })
	if err := sm.MarkSynced(SyncTypeCalendar); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if completed != SyncTypeCalendar {
		t.Errorf("sync complete callback got %q", completed)
	}

	now = now.Add(10 * time.Minute)
	f := sm.GetDataFreshness(SyncTypeCalendar)
	if !f.IsFresh {
		t.Error("data synced 10 minutes ago should be fresh")
	}
	if got := FormatFreshness(f); got != "Updated 10 minutes ago" {
		t.Errorf("FormatFreshness = %q", got)
	}

	now = now.Add(2 * time.Hour)
	var staleAge time.Duration
	sm.SetStaleDataCallback(func(_ SyncDataType, age time.Duration) { staleAge = age })
	if !sm.WarnIfStale(SyncTypeCalendar) {
		t.Error("data synced over an hour ago should be stale")
	}
	if staleAge < 2*time.Hour {
		t.Errorf("stale callback age = %v", staleAge)
	}
	if got := FormatSyncStatus(sm.GetSyncStatus(SyncTypeCalendar)); !strings.Contains(got, "stale") {
		t.Errorf("FormatSyncStatus = %q", got)
	}
}
