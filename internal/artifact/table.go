package artifact

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// LoadOrCreateTable is the tabular counterpart of LoadOrCreateJSON. Records
// include the header row; the stored format is row-oriented CSV.
func LoadOrCreateTable(s *Store, path string, compute func() ([][]string, error)) ([][]string, error) {
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	if records, ok, err := loadTable(path); err != nil {
		return nil, err
	} else if ok {
		s.logger.Info("loaded existing artifact", "path", path, "rows", len(records))
		return records, nil
	}

	s.logger.Info("artifact not found, computing", "path", path)
	records, err := compute()
	if err != nil {
		return nil, err
	}

	if err := writeTable(path, records); err != nil {
		return nil, fmt.Errorf("failed to write artifact %s: %w", path, err)
	}
	s.logger.Info("artifact written", "path", path, "rows", len(records))
	return records, nil
}

// SaveTable persists records at path unconditionally.
func SaveTable(s *Store, path string, records [][]string) error {
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	if err := writeTable(path, records); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", path, err)
	}
	return nil
}

func loadTable(path string) ([][]string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode artifact %s: %w", path, err)
	}
	return records, true, nil
}

func writeTable(path string, records [][]string) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}
