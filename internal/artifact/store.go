// Package artifact implements the load-or-compute-and-persist primitive that
// memoizes every expensive pipeline step. Presence of a readable artifact at
// a path is authoritative: it is loaded and trusted without recomputation,
// regardless of whether the inputs changed. Tabular artifacts are CSV with a
// header row; everything else is indented JSON. A value that cannot be
// serialized as JSON degrades to a plain-text rendering at the same base
// path, which is a logged degraded success, not a failure.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store serializes writers per path. A given artifact path is only ever
// written by one caller at a time; distinct paths do not contend.
type Store struct {
	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	logger *slog.Logger
}

// NewStore creates an artifact store.
func NewStore() *Store {
	return &Store{
		locks:  make(map[string]*sync.Mutex),
		logger: slog.Default().With("component", "artifact"),
	}
}

// pathLock returns the single-writer mutex for a path.
func (s *Store) pathLock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[path] = lock
	}
	return lock
}

// LoadOrCreateJSON returns the artifact at path if one exists, otherwise it
// invokes compute, persists the result, and returns it. The compute function
// runs at most once per call and not at all on a cache hit, for arbitrary
// compute arguments captured in the closure.
func LoadOrCreateJSON[T any](s *Store, path string, compute func() (T, error)) (T, error) {
	var zero T

	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	if value, ok, err := loadJSON[T](path); err != nil {
		return zero, err
	} else if ok {
		s.logger.Info("loaded existing artifact", "path", path)
		return value, nil
	}

	s.logger.Info("artifact not found, computing", "path", path)
	value, err := compute()
	if err != nil {
		return zero, err
	}

	if err := s.writeJSON(path, value); err != nil {
		return zero, err
	}
	return value, nil
}

// SaveJSON persists value at path unconditionally, overwriting any earlier
// snapshot. Used when a caller must replace a cached artifact that was
// persisted before it was complete.
func SaveJSON[T any](s *Store, path string, value T) error {
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()
	return s.writeJSON(path, value)
}

// writeJSON persists the value as indented JSON, falling back to a plain-text
// rendering at <base>.txt when the value is not JSON-serializable. Callers
// must hold the path lock.
func (s *Store) writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		txtPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
		s.logger.Warn("artifact not JSON-serializable, writing text rendering",
			"path", path, "fallback", txtPath, "error", err)
		if writeErr := writeFileAtomic(txtPath, []byte(fmt.Sprintf("%v", value))); writeErr != nil {
			return fmt.Errorf("failed to write degraded artifact %s: %w", txtPath, writeErr)
		}
		return nil
	}

	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", path, err)
	}
	s.logger.Info("artifact written", "path", path, "bytes", len(data))
	return nil
}

// loadJSON reads an artifact when present. The second return value reports
// presence; an unreadable or corrupt artifact is an error, not a miss, so a
// truncated file never silently triggers recomputation over stale state.
func loadJSON[T any](path string) (T, bool, error) {
	var zero T

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, false, fmt.Errorf("failed to decode artifact %s: %w", path, err)
	}
	return value, true, nil
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write can
// never leave a partial artifact that a later run would trust.
func writeFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}
