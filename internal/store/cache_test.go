package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"bullion-bell/internal/errors"
	"bullion-bell/internal/models"
)

func record(id, date, event string) models.EventRecord {
	return models.EventRecord{
		ID:         models.EventID(id),
		Date:       date,
		Zone:       "united states",
		Currency:   models.StringPtr("USD"),
		Importance: models.ImportanceHigh,
		Event:      event,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ids(records []models.EventRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = string(r.ID)
	}
	return out
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := OpenFileStore(filepath.Join(t.TempDir(), "cache.json"), 0, zerolog.Nop())
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
	if got := s.QueryRange(day(2000, 1, 1), day(2100, 1, 1)); len(got) != 0 {
		t.Fatalf("QueryRange returned %d records from an empty store", len(got))
	}
}

func TestFileStore_CorruptFileRecovers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte(`{"data": [ {"id": 1, `), 0644); err != nil {
		t.Fatal(err)
	}

	s := OpenFileStore(path, 0, zerolog.Nop())
	if s.Len() != 0 {
		t.Fatalf("Len = %d after corrupt load, want 0", s.Len())
	}

	added, err := s.MergeInsert([]models.EventRecord{record("1", "20/09/2024", "CPI")})
	if err != nil || added != 1 {
		t.Fatalf("MergeInsert = %d, %v", added, err)
	}

	reloaded := OpenFileStore(path, 0, zerolog.Nop())
	if got := ids(reloaded.Records()); len(got) != 1 || got[0] != "1" {
		t.Fatalf("reloaded ids = %v, want [1]", got)
	}
}

func TestFileStore_PersistsContainerFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	s := OpenFileStore(path, 0, zerolog.Nop())

	if _, err := s.MergeInsert([]models.EventRecord{
		record("1", "20/09/2024", "CPI"),
		record("2", "25/09/2024", "GDP"),
	}); err != nil {
		t.Fatalf("MergeInsert: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading cache file: %v", err)
	}
	var container struct {
		Data []map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(raw, &container); err != nil {
		t.Fatalf("cache file is not a data container: %v", err)
	}
	if len(container.Data) != 2 {
		t.Fatalf("file holds %d records, want 2", len(container.Data))
	}
	if container.Data[0]["id"] != "1" || container.Data[1]["date"] != "25/09/2024" {
		t.Errorf("unexpected file contents: %s", raw)
	}
	if !strings.Contains(string(raw), "\n    ") {
		t.Errorf("expected four-space indentation")
	}
}

func TestFileStore_MergeIsFirstWriteWins(t *testing.T) {
	s := OpenFileStore(filepath.Join(t.TempDir(), "cache.json"), 0, zerolog.Nop())

	added, err := s.MergeInsert([]models.EventRecord{record("1", "20/09/2024", "first")})
	if err != nil || added != 1 {
		t.Fatalf("first merge = %d, %v", added, err)
	}

	revised := record("1", "20/09/2024", "revised")
	revised.Actual = models.TextValue("3.1%")
	added, err = s.MergeInsert([]models.EventRecord{revised, record("2", "21/09/2024", "new"), record("2", "21/09/2024", "dup in batch")})
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}

	recs := s.Records()
	if len(recs) != 2 {
		t.Fatalf("Len = %d, want 2", len(recs))
	}
	if recs[0].Event != "first" || !recs[0].Actual.IsNull() {
		t.Errorf("stored record was modified: %+v", recs[0])
	}
	if recs[1].Event != "new" {
		t.Errorf("in-batch duplicate should keep first occurrence, got %q", recs[1].Event)
	}
}

func TestFileStore_QueryRange(t *testing.T) {
	s := OpenFileStore(filepath.Join(t.TempDir(), "cache.json"), 0, zerolog.Nop())
	_, err := s.MergeInsert([]models.EventRecord{
		record("late", "27/09/2024", "upper bound"),
		record("before", "18/09/2024", "outside"),
		record("bad", "2024-09-20", "unparsable"),
		record("early", "19/09/2024", "lower bound"),
		record("mid", "22/09/2024", "inside"),
		record("after", "28/09/2024", "outside"),
	})
	if err != nil {
		t.Fatalf("MergeInsert: %v", err)
	}

	start := time.Date(2024, 9, 19, 18, 45, 0, 0, time.UTC)
	end := time.Date(2024, 9, 27, 6, 0, 0, 0, time.UTC)
	got := ids(s.QueryRange(start, end))
	want := []string{"late", "early", "mid"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("QueryRange = %v, want %v (inclusive, insertion order)", got, want)
	}
}

func TestFileStore_ClearPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s := OpenFileStore(path, 0, zerolog.Nop())
	if _, err := s.MergeInsert([]models.EventRecord{record("1", "20/09/2024", "CPI")}); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after Clear", s.Len())
	}
	if reloaded := OpenFileStore(path, 0, zerolog.Nop()); reloaded.Len() != 0 {
		t.Errorf("cleared store reloaded with %d records", reloaded.Len())
	}

	added, err := s.MergeInsert([]models.EventRecord{record("1", "20/09/2024", "CPI")})
	if err != nil || added != 1 {
		t.Errorf("re-insert after Clear = %d, %v", added, err)
	}
}

func TestFileStore_LoadCollapsesDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	content := `{"data": [
		{"id": 7, "date": "20/09/2024", "event": "first"},
		null,
		{"id": "7", "date": "20/09/2024", "event": "second"},
		{"id": 8, "date": "21/09/2024", "event": "other"}
	]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s := OpenFileStore(path, 0, zerolog.Nop())
	recs := s.Records()
	if len(recs) != 2 {
		t.Fatalf("Len = %d, want 2", len(recs))
	}
	if recs[0].Event != "first" {
		t.Errorf("duplicate handling kept %q, want first", recs[0].Event)
	}
}

func TestFileStore_PersistFailureLeavesStateUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")
	// A non-empty directory at the target path makes the final rename fail.
	if err := os.MkdirAll(filepath.Join(path, "blocker"), 0755); err != nil {
		t.Fatal(err)
	}

	s := OpenFileStore(path, 0, zerolog.Nop())
	added, err := s.MergeInsert([]models.EventRecord{record("1", "20/09/2024", "CPI")})
	if err == nil {
		t.Fatal("expected persist error")
	}
	var persistErr *errors.CachePersistError
	if !errors.As(err, &persistErr) {
		t.Fatalf("error %v is not a CachePersistError", err)
	}
	if added != 0 || s.Len() != 0 {
		t.Errorf("store changed after failed persist: added=%d len=%d", added, s.Len())
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}

func TestFileStore_MaxRecordsKeepsNewest(t *testing.T) {
	s := OpenFileStore(filepath.Join(t.TempDir(), "cache.json"), 3, zerolog.Nop())
	for _, batch := range [][]string{{"a", "b"}, {"c", "d"}, {"e"}} {
		var recs []models.EventRecord
		for _, id := range batch {
			recs = append(recs, record(id, "20/09/2024", id))
		}
		if _, err := s.MergeInsert(recs); err != nil {
			t.Fatal(err)
		}
	}

	if got := strings.Join(ids(s.Records()), ","); got != "c,d,e" {
		t.Errorf("records = %s, want c,d,e", got)
	}

	// An evicted id is no longer known and may be stored again.
	added, err := s.MergeInsert([]models.EventRecord{record("a", "20/09/2024", "again")})
	if err != nil || added != 1 {
		t.Errorf("re-adding evicted id = %d, %v", added, err)
	}
}

func TestFileStore_OversizedFileIsTrimmed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	unbounded := OpenFileStore(path, 0, zerolog.Nop())
	var recs []models.EventRecord
	for _, id := range []string{"a", "b", "c", "d"} {
		recs = append(recs, record(id, "20/09/2024", id))
	}
	if _, err := unbounded.MergeInsert(recs); err != nil {
		t.Fatal(err)
	}

	s := OpenFileStore(path, 2, zerolog.Nop())
	if got := strings.Join(ids(s.Records()), ","); got != "c,d" {
		t.Fatalf("records after load = %s, want c,d", got)
	}

	added, err := s.MergeInsert([]models.EventRecord{record("d", "20/09/2024", "dup")})
	if err != nil || added != 0 {
		t.Fatalf("merging a duplicate = %d, %v", added, err)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}
