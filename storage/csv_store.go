package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"market-dss/extract"
	"market-dss/models"
)

// CSVStore keeps the latest generic upload in a single CSV file.
type CSVStore struct {
	path string
}

// NewCSVStore creates the parent directory of path if needed.
func NewCSVStore(path string) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVStore{path: path}, nil
}

// Save replaces the file. The write goes to a temporary file first so a
// failed write leaves the previous dataset intact.
func (c *CSVStore) Save(t *models.Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".latest-*.csv")
	if err != nil {
		return fmt.Errorf("csv: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := extract.WriteCSV(tmp, t); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csv: close %q: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("csv: replace %q: %w", c.path, err)
	}
	return nil
}

// Load returns ErrNotFound when nothing has been saved yet.
func (c *CSVStore) Load() (*models.Table, error) {
	f, err := os.Open(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("csv: %q: %w", c.path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", c.path, err)
	}
	defer f.Close()
	return extract.ReadCSV(f)
}
