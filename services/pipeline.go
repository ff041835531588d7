package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"market-dss/extract"
	"market-dss/models"
	"market-dss/storage"
	"market-dss/utils"
)

// ErrNoData means the datasets an analysis needs have not been uploaded.
var ErrNoData = errors.New("no data available")

// DatasetProvider reads the stored datasets. ok is false when a dataset is
// absent or unreadable.
type DatasetProvider interface {
	LatestDataset(ctx context.Context) (*models.Table, bool)
	Businesses(ctx context.Context) ([]models.Business, bool)
	Reviews(ctx context.Context) ([]models.Review, bool)
}

// DatasetSink persists extracted uploads.
type DatasetSink interface {
	SaveLatest(t *models.Table) error
	Archive(fileName string, t *models.Table) error
	ReplaceTable(ctx context.Context, name string, t *models.Table) error
}

// IngestResult describes one processed upload.
type IngestResult struct {
	File string       `json:"file"`
	Kind extract.Kind `json:"kind"`
	Rows int          `json:"rows"`
	Err  error        `json:"-"`
}

// Pipeline chooses which analyses can run on the stored data and feeds
// uploads into storage.
type Pipeline struct {
	provider    DatasetProvider
	sink        DatasetSink
	opportunity *OpportunityScorer
	gap         *GapScorer
	demand      *DemandAnalyzer
	workers     int
	maxRecords  int
	logger      *utils.Logger
}

// PipelineOptions tunes ingestion and topic extraction.
type PipelineOptions struct {
	MaxRecords        int
	TopicCount        int
	IngestConcurrency int
}

func NewPipeline(provider DatasetProvider, sink DatasetSink, opts PipelineOptions, logger *utils.Logger) *Pipeline {
	return &Pipeline{
		provider:    provider,
		sink:        sink,
		opportunity: NewOpportunityScorer(logger),
		gap:         NewGapScorer(logger),
		demand:      NewDemandAnalyzer(logger, opts.TopicCount),
		workers:     opts.IngestConcurrency,
		maxRecords:  opts.MaxRecords,
		logger:      logger,
	}
}

// Opportunities scores the latest generic upload, with map markers.
func (p *Pipeline) Opportunities(ctx context.Context) (*models.OpportunityReport, error) {
	t, ok := p.provider.LatestDataset(ctx)
	if !ok {
		return nil, ErrNoData
	}
	return p.opportunity.Score(t, true), nil
}

// ReviewOpportunities scores categories by review volume, using the stored
// reviews joined to their businesses' categories.
func (p *Pipeline) ReviewOpportunities(ctx context.Context) (*models.OpportunityReport, error) {
	businesses, reviews, err := p.both(ctx)
	if err != nil {
		return nil, err
	}
	return p.opportunity.Score(JoinCategories(reviews, businesses), false), nil
}

// Demand analyzes the stored reviews.
func (p *Pipeline) Demand(ctx context.Context) (*models.DemandResult, error) {
	reviews, ok := p.provider.Reviews(ctx)
	if !ok || len(reviews) == 0 {
		return nil, ErrNoData
	}
	return p.demand.Analyze(reviews), nil
}

// Gap builds the top-10 supply/demand display bundle.
func (p *Pipeline) Gap(ctx context.Context) (*models.GapReport, error) {
	businesses, reviews, err := p.both(ctx)
	if err != nil {
		return nil, err
	}
	return p.gap.Score(businesses, reviews), nil
}

// GapRows returns every category's gap, sorted.
func (p *Pipeline) GapRows(ctx context.Context) ([]models.GapRow, error) {
	businesses, reviews, err := p.both(ctx)
	if err != nil {
		return nil, err
	}
	return p.gap.Rows(businesses, reviews), nil
}

func (p *Pipeline) both(ctx context.Context) ([]models.Business, []models.Review, error) {
	businesses, ok := p.provider.Businesses(ctx)
	if !ok || len(businesses) == 0 {
		return nil, nil, ErrNoData
	}
	reviews, ok := p.provider.Reviews(ctx)
	if !ok || len(reviews) == 0 {
		return nil, nil, ErrNoData
	}
	return businesses, reviews, nil
}

// extracted is a parsed upload waiting to be persisted.
type extracted struct {
	path  string
	kind  extract.Kind
	table *models.Table
	err   error
}

func (p *Pipeline) parse(path string) extracted {
	e := extracted{path: path, kind: extract.KindOf(path)}
	switch e.kind {
	case extract.KindBusiness:
		var bs []models.Business
		if bs, e.err = extract.BusinessesFile(path, p.maxRecords); e.err == nil {
			e.table = models.BusinessTable(bs)
		}
	case extract.KindReview:
		var rs []models.Review
		if rs, e.err = extract.ReviewsFile(path, p.maxRecords); e.err == nil {
			e.table = models.ReviewTable(rs)
		}
	default:
		e.table, e.err = extract.ReadTable(path)
	}
	return e
}

// persist stores an upload. Business exports become a history sheet, the
// business table and the latest dataset; review exports only replace the
// review table; anything else becomes a history sheet and the latest
// dataset. The latest dataset is written last so a failed write never
// leaves it ahead of the history workbook.
func (p *Pipeline) persist(ctx context.Context, e extracted) error {
	name := filepath.Base(e.path)
	if e.kind != extract.KindReview {
		if err := p.sink.Archive(name, e.table); err != nil {
			return err
		}
	}
	switch e.kind {
	case extract.KindBusiness:
		if err := p.sink.ReplaceTable(ctx, storage.BusinessTable, e.table); err != nil {
			return err
		}
	case extract.KindReview:
		return p.sink.ReplaceTable(ctx, storage.ReviewTable, e.table)
	}
	return p.sink.SaveLatest(e.table)
}

// Ingest extracts and stores a single upload.
func (p *Pipeline) Ingest(ctx context.Context, path string) (IngestResult, error) {
	results := p.IngestAll(ctx, []string{path})
	return results[0], results[0].Err
}

// IngestAll parses files concurrently, then stores them one by one in the
// given order so the last file of a kind wins. A failing file is reported
// in its result and does not stop the others.
func (p *Pipeline) IngestAll(ctx context.Context, paths []string) []IngestResult {
	parsed := utils.Map(utils.NewWorkerPool(p.workers), paths, p.parse)

	results := make([]IngestResult, len(parsed))
	for i, e := range parsed {
		res := IngestResult{File: filepath.Base(e.path), Kind: e.kind}
		switch {
		case ctx.Err() != nil:
			res.Err = ctx.Err()
		case e.err != nil:
			res.Err = fmt.Errorf("process %s: %w", res.File, e.err)
		default:
			res.Rows = e.table.Len()
			if err := p.persist(ctx, e); err != nil {
				res.Err = fmt.Errorf("store %s: %w", res.File, err)
			}
		}

		if res.Err != nil {
			p.logger.Error("[pipeline] %v", res.Err)
		} else {
			p.logger.Info("[pipeline] Stored %s (%s, %d rows)", res.File, res.Kind, res.Rows)
		}
		results[i] = res
	}
	return results
}

// JoinCategories tabulates reviews with each review's business categories
// attached. Reviews of unknown businesses get no categories.
func JoinCategories(reviews []models.Review, businesses []models.Business) *models.Table {
	cats := make(map[string]string, len(businesses))
	for _, b := range businesses {
		cats[b.ID] = b.Categories
	}
	t := models.ReviewTable(reviews)
	t.AddColumn("categories", func(row int) string {
		return cats[t.Value(row, "business_id")]
	})
	return t
}
