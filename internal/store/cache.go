package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bullion-bell/internal/errors"
	"bullion-bell/internal/models"
)

// cacheFile is the on-disk container of the record cache.
type cacheFile struct {
	Data []*models.EventRecord `json:"data"`
}

// FileStore is the durable record cache backed by a single JSON file.
// Records are unique by ID, kept in insertion order, and never modified after
// they are stored.
type FileStore struct {
	path       string
	maxRecords int
	logger     zerolog.Logger

	mu      sync.Mutex
	records []models.EventRecord
	ids     map[models.EventID]struct{}
}

// OpenFileStore creates a store for path and loads whatever it currently holds.
// maxRecords <= 0 means unbounded.
func OpenFileStore(path string, maxRecords int, logger zerolog.Logger) *FileStore {
	s := &FileStore{
		path:       path,
		maxRecords: maxRecords,
		logger:     logger.With().Str("component", "record_store").Logger(),
		ids:        make(map[models.EventID]struct{}),
	}
	s.Load()
	return s
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load replaces the in-memory state with the file contents. A missing file
// yields an empty store, as does an unreadable or corrupt one.
func (s *FileStore) Load() {
	records, err := s.readFile()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.ids = make(map[models.EventID]struct{})
	if err != nil {
		s.logger.Warn().Err(errors.NewCacheDecodeError(s.path, err)).Msg("Starting with empty record cache")
		return
	}

	for _, rec := range records {
		if _, dup := s.ids[rec.ID]; dup {
			continue
		}
		s.ids[rec.ID] = struct{}{}
		s.records = append(s.records, rec)
	}
	s.records = s.trim(s.records, s.ids)
	s.logger.Debug().Int("records", len(s.records)).Msg("Record cache loaded")
}

// trim drops the oldest records beyond maxRecords and forgets their IDs.
func (s *FileStore) trim(records []models.EventRecord, ids map[models.EventID]struct{}) []models.EventRecord {
	if s.maxRecords <= 0 || len(records) <= s.maxRecords {
		return records
	}
	evicted := records[:len(records)-s.maxRecords]
	for _, rec := range evicted {
		delete(ids, rec.ID)
	}
	s.logger.Debug().Int("evicted", len(evicted)).Msg("Record cache trimmed to capacity")
	return append([]models.EventRecord(nil), records[len(records)-s.maxRecords:]...)
}

func (s *FileStore) readFile() ([]models.EventRecord, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var container cacheFile
	if err := json.Unmarshal(raw, &container); err != nil {
		return nil, err
	}

	records := make([]models.EventRecord, 0, len(container.Data))
	for _, rec := range container.Data {
		if rec == nil {
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}

// QueryRange returns stored records whose date falls within [start, end],
// comparing calendar dates only. Records with unparsable dates are skipped.
// Results keep insertion order.
func (s *FileStore) QueryRange(start, end time.Time) []models.EventRecord {
	lo, hi := models.CalendarDate(start), models.CalendarDate(end)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.EventRecord
	for _, rec := range s.records {
		day, err := rec.Day()
		if err != nil {
			s.logger.Debug().Err(errors.NewRangeParseError(string(rec.ID), rec.Date, err)).Msg("Skipping record")
			continue
		}
		if day.Before(lo) || day.After(hi) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// MergeInsert appends records whose IDs are not yet stored, first write wins.
// When a maximum size is configured the oldest records are dropped, even if
// nothing new was added. The
// result is persisted before it becomes visible; on a persist failure the
// store is left unchanged and a *errors.CachePersistError is returned.
func (s *FileStore) MergeInsert(records []models.EventRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.EventRecord, len(s.records), len(s.records)+len(records))
	copy(next, s.records)
	seen := make(map[models.EventID]struct{}, len(s.ids)+len(records))
	for id := range s.ids {
		seen[id] = struct{}{}
	}

	added := 0
	for _, rec := range records {
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		next = append(next, rec)
		added++
	}
	before := len(next)
	next = s.trim(next, seen)
	if added == 0 && len(next) == before {
		return 0, nil
	}

	if err := s.persist(next); err != nil {
		return 0, err
	}

	s.records = next
	s.ids = seen
	return added, nil
}

// Clear removes every record and persists the empty container.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(nil); err != nil {
		return err
	}
	s.records = nil
	s.ids = make(map[models.EventID]struct{})
	return nil
}

// Len returns the number of stored records.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns a copy of all records in insertion order.
func (s *FileStore) Records() []models.EventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.EventRecord(nil), s.records...)
}

// persist writes records through a temp file in the target directory and
// renames it into place. Caller holds s.mu.
func (s *FileStore) persist(records []models.EventRecord) error {
	container := cacheFile{Data: make([]*models.EventRecord, len(records))}
	for i := range records {
		container.Data[i] = &records[i]
	}

	data, err := json.MarshalIndent(container, "", "    ")
	if err != nil {
		return errors.NewCachePersistError(s.path, "encode", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewCachePersistError(s.path, "mkdir", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.NewCachePersistError(s.path, "create temp", err)
	}
	tmpName := tmp.Name()

	if err := writeAndSync(tmp, data); err != nil {
		os.Remove(tmpName)
		return errors.NewCachePersistError(s.path, "write", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.NewCachePersistError(s.path, "rename", err)
	}

	s.logger.Debug().Int("records", len(records)).Msg("Record cache persisted")
	return nil
}

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	return nil
}
