package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bluepond-io/aquamon/internal/model"
)

// FileStore is a ReadingStore that mirrors its sequence to a flat JSON file
// (an array of readings) after every mutation. A failed write leaves the
// in-memory sequence untouched and surfaces ErrPersistenceFailure.
type FileStore struct {
	log      *slog.Logger
	path     string
	capacity int

	mu       sync.RWMutex
	readings []model.Reading
}

// NewFileStore opens or creates the store at path. An existing file is
// loaded, keeping at most the newest capacity readings, so the sequence
// survives process restarts.
func NewFileStore(log *slog.Logger, path string, capacity int) (*FileStore, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &FileStore{
		log:      log,
		path:     path,
		capacity: capacity,
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read data file: %w", err)
	}

	var readings []model.Reading
	if err := json.Unmarshal(data, &readings); err != nil {
		return fmt.Errorf("failed to decode data file %s: %w", s.path, err)
	}

	if len(readings) > s.capacity {
		readings = readings[len(readings)-s.capacity:]
	}
	s.readings = readings

	s.log.Info("loaded readings from disk",
		slog.String("path", s.path),
		slog.Int("count", len(readings)),
	)
	return nil
}

// persist writes through a temp file and renames it over the target so a
// crash mid-write cannot leave a truncated data file.
func (s *FileStore) persist(readings []model.Reading) error {
	data, err := json.Marshal(readings)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal readings: %v", ErrPersistenceFailure, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	return nil
}

func (s *FileStore) Append(r model.Reading) (model.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := appendBounded(s.readings, r, s.capacity)
	if err := s.persist(next); err != nil {
		return model.Reading{}, err
	}
	s.readings = next

	s.log.Debug("reading persisted", slog.Int("size", len(next)))
	return r, nil
}

func (s *FileStore) Latest() (model.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.readings) == 0 {
		return model.Reading{}, false
	}
	return s.readings[len(s.readings)-1], true
}

func (s *FileStore) All() []model.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Reading, len(s.readings))
	copy(out, s.readings)
	return out
}

func (s *FileStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings)
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist([]model.Reading{}); err != nil {
		return err
	}
	s.readings = nil
	return nil
}
