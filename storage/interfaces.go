package storage

import (
	"context"
	"errors"

	"market-dss/models"
)

// ErrNotFound is returned when a named table or dataset has never been
// written.
var ErrNotFound = errors.New("storage: not found")

// TableStore persists named tables. Writing a table replaces it whole.
type TableStore interface {
	ReplaceTable(ctx context.Context, name string, t *models.Table) error
	ReadTable(ctx context.Context, name string) (*models.Table, error)
	Close() error
}

// LatestStore keeps only the most recent generic upload.
type LatestStore interface {
	Save(t *models.Table) error
	Load() (*models.Table, error)
}

// Archive keeps every upload as its own sheet of a history workbook.
type Archive interface {
	AppendSheet(name string, t *models.Table) error
	Path() string
}
