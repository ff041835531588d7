package storage

import (
	"context"
	"fmt"

	"market-dss/models"
	"market-dss/utils"
)

// Names of the tables holding the typed review-platform records.
const (
	BusinessTable = "business"
	ReviewTable   = "review"
)

// Repository bundles the three persistence targets behind the operations
// the pipeline needs. It is built once at startup and passed explicitly.
type Repository struct {
	tables  TableStore
	latest  LatestStore
	archive Archive
	logger  *utils.Logger
}

func NewRepository(tables TableStore, latest LatestStore, archive Archive, logger *utils.Logger) *Repository {
	return &Repository{tables: tables, latest: latest, archive: archive, logger: logger}
}

// LatestDataset returns the last generic upload; ok is false when there is
// none or it cannot be read.
func (r *Repository) LatestDataset(ctx context.Context) (*models.Table, bool) {
	t, err := r.latest.Load()
	if err != nil {
		r.logMiss("latest dataset", err)
		return nil, false
	}
	return t, true
}

// Businesses returns the stored business records, if any.
func (r *Repository) Businesses(ctx context.Context) ([]models.Business, bool) {
	t, err := r.tables.ReadTable(ctx, BusinessTable)
	if err != nil {
		r.logMiss(BusinessTable, err)
		return nil, false
	}
	return models.BusinessesFromTable(t), true
}

// Reviews returns the stored review records, if any.
func (r *Repository) Reviews(ctx context.Context) ([]models.Review, bool) {
	t, err := r.tables.ReadTable(ctx, ReviewTable)
	if err != nil {
		r.logMiss(ReviewTable, err)
		return nil, false
	}
	return models.ReviewsFromTable(t), true
}

// SaveLatest replaces the latest dataset.
func (r *Repository) SaveLatest(t *models.Table) error {
	return r.latest.Save(t)
}

// Archive snapshots t into the history workbook under fileName's sheet.
func (r *Repository) Archive(fileName string, t *models.Table) error {
	return r.archive.AppendSheet(fileName, t)
}

// ReplaceTable overwrites a named table.
func (r *Repository) ReplaceTable(ctx context.Context, name string, t *models.Table) error {
	if err := r.tables.ReplaceTable(ctx, name, t); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// HistoryPath is where the history workbook lives.
func (r *Repository) HistoryPath() string {
	return r.archive.Path()
}

func (r *Repository) logMiss(what string, err error) {
	if IsNotFound(err) {
		r.logger.Debug("[storage] No %s stored yet", what)
		return
	}
	r.logger.Warn("[storage] Reading %s failed, treating as no data: %v", what, err)
}
