package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"bullion-bell/internal/errors"
	"bullion-bell/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Property: GetDueAlerts returns exactly the untriggered alerts whose fire
// time is at or before the reference time, ordered by fire time.
func TestProperty_DueAlertsMatchFireTimes(t *testing.T) {
	store := newTestSQLiteStore(t)
	properties := gopter.NewProperties(newPropertyParams(50))
	now := time.Date(2024, 9, 20, 12, 0, 0, 0, time.UTC)
	run := 0

	properties.Property("due alerts are exactly the untriggered past-due ones", prop.ForAll(
		func(offsets []int, triggeredMask []bool) bool {
			ctx := context.Background()
			run++
			prefix := fmt.Sprintf("r%d-", run)

			want := map[string]bool{}
			for i, off := range offsets {
				a := &models.Alert{
					ID:        fmt.Sprintf("%s%d", prefix, i),
					EventID:   models.EventID(fmt.Sprintf("%sevent-%d", prefix, i)),
					Title:     "CPI",
					FireAt:    now.Add(time.Duration(off) * time.Minute),
					CreatedAt: now,
				}
				if i < len(triggeredMask) && triggeredMask[i] {
					a.Triggered = true
					at := now
					a.TriggeredAt = &at
				}
				if err := store.SaveAlert(ctx, a); err != nil {
					t.Logf("SaveAlert: %v", err)
					return false
				}
				if !a.Triggered && off <= 0 {
					want[a.ID] = true
				}
			}

			due, err := store.GetDueAlerts(ctx, now)
			if err != nil {
				return false
			}

			got := 0
			var last time.Time
			for _, a := range due {
				if len(a.ID) < len(prefix) || a.ID[:len(prefix)] != prefix {
					continue
				}
				if !want[a.ID] || a.FireAt.Before(last) {
					return false
				}
				last = a.FireAt
				got++
			}
			if got != len(want) {
				return false
			}

			// Trigger everything so later runs only see their own alerts.
			for id := range want {
				if err := store.TriggerAlert(ctx, id, now); err != nil {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(-120, 120)),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

func TestSQLiteStore_AlertLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	fireAt := time.Date(2024, 9, 20, 12, 25, 0, 0, time.UTC)
	alert := &models.Alert{
		ID:         "a1",
		EventID:    "412",
		Title:      "Nonfarm Payrolls",
		Currency:   "USD",
		Importance: models.ImportanceHigh,
		FireAt:     fireAt,
		CreatedAt:  fireAt.Add(-time.Hour),
	}
	if err := s.SaveAlert(ctx, alert); err != nil {
		t.Fatalf("SaveAlert: %v", err)
	}

	has, err := s.HasAlertForEvent(ctx, "412")
	if err != nil || !has {
		t.Fatalf("HasAlertForEvent = %v, %v", has, err)
	}
	if has, _ := s.HasAlertForEvent(ctx, "999"); has {
		t.Error("HasAlertForEvent reported an unknown event")
	}

	pending, err := s.GetAlerts(ctx, AlertFilter{})
	if err != nil || len(pending) != 1 {
		t.Fatalf("GetAlerts = %v, %v", pending, err)
	}
	got := pending[0]
	if got.Title != alert.Title || got.Currency != "USD" || got.Importance != models.ImportanceHigh || !got.FireAt.Equal(fireAt) {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.TriggeredAt != nil {
		t.Errorf("TriggeredAt = %v, want nil", got.TriggeredAt)
	}

	if err := s.TriggerAlert(ctx, "a1", fireAt); err != nil {
		t.Fatalf("TriggerAlert: %v", err)
	}
	if err := s.TriggerAlert(ctx, "a1", fireAt); !errors.Is(err, errors.ErrDataNotFound) {
		t.Errorf("second TriggerAlert = %v, want ErrDataNotFound", err)
	}

	pending, _ = s.GetAlerts(ctx, AlertFilter{})
	if len(pending) != 0 {
		t.Errorf("triggered alert still pending")
	}
	all, _ := s.GetAlerts(ctx, AlertFilter{IncludeTriggered: true, EventID: "412"})
	if len(all) != 1 || !all[0].Triggered || all[0].TriggeredAt == nil {
		t.Errorf("GetAlerts(include triggered) = %+v", all)
	}

	if err := s.DeleteAlert(ctx, "a1"); err != nil {
		t.Fatalf("DeleteAlert: %v", err)
	}
	if err := s.DeleteAlert(ctx, "a1"); !errors.Is(err, errors.ErrDataNotFound) {
		t.Errorf("second DeleteAlert = %v, want ErrDataNotFound", err)
	}
}

func TestSQLiteStore_LastSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}

	if got := s.GetLastSync("calendar"); !got.IsZero() {
		t.Errorf("GetLastSync on empty db = %v", got)
	}

	when := time.Date(2024, 9, 20, 8, 0, 0, 0, time.UTC)
	if err := s.SetLastSync("calendar", when); err != nil {
		t.Fatalf("SetLastSync: %v", err)
	}
	s.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if got := reopened.GetLastSync("calendar"); !got.Equal(when) {
		t.Errorf("GetLastSync after reopen = %v, want %v", got, when)
	}
}
