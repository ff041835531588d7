package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"market-dss/extract"
	"market-dss/models"
	"market-dss/storage"
)

// memoryStore keeps every dataset in memory and records the order of
// writes. archiveErr and tableErr make the matching write fail.
type memoryStore struct {
	mu         sync.Mutex
	latest     *models.Table
	tables     map[string]*models.Table
	archived   []string
	writes     []string
	archiveErr error
	tableErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tables: make(map[string]*models.Table)}
}

func (m *memoryStore) LatestDataset(context.Context) (*models.Table, bool) {
	return m.latest, m.latest != nil
}

func (m *memoryStore) Businesses(context.Context) ([]models.Business, bool) {
	t, ok := m.tables[storage.BusinessTable]
	if !ok {
		return nil, false
	}
	return models.BusinessesFromTable(t), true
}

func (m *memoryStore) Reviews(context.Context) ([]models.Review, bool) {
	t, ok := m.tables[storage.ReviewTable]
	if !ok {
		return nil, false
	}
	return models.ReviewsFromTable(t), true
}

func (m *memoryStore) SaveLatest(t *models.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = t
	m.writes = append(m.writes, "latest")
	return nil
}

func (m *memoryStore) Archive(fileName string, _ *models.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.archiveErr != nil {
		return m.archiveErr
	}
	m.archived = append(m.archived, fileName)
	m.writes = append(m.writes, "archive:"+fileName)
	return nil
}

func (m *memoryStore) ReplaceTable(_ context.Context, name string, t *models.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tableErr != nil {
		return m.tableErr
	}
	m.tables[name] = t
	m.writes = append(m.writes, "table:"+name)
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const (
	businessLines = `{"business_id":"b1","name":"Bean","categories":"Coffee, Bars","review_count":12,"city":"Reno","latitude":39.5,"longitude":-119.8}
{"business_id":"b2","name":"Leaf","categories":["Tea"],"review_count":4,"city":"Reno"}
`
	reviewLines = `{"review_id":"r1","business_id":"b1","user_id":"u1","stars":5,"date":"2023-01-02 10:00:00","text":"Great coffee"}
{"review_id":"r2","business_id":"b1","user_id":"u2","stars":1,"date":"2023-02-02 10:00:00","text":"terrible service"}
{"review_id":"r3","business_id":"b2","user_id":"u3","stars":4,"date":"2023-02-05 10:00:00","text":"good tea"}
`
)

func newTestPipeline(store *memoryStore) *Pipeline {
	return NewPipeline(store, store, PipelineOptions{TopicCount: 2, IngestConcurrency: 2}, newTestLogger())
}

func TestPipelineNoData(t *testing.T) {
	p := newTestPipeline(newMemoryStore())
	ctx := context.Background()

	if _, err := p.Opportunities(ctx); !errors.Is(err, ErrNoData) {
		t.Errorf("Opportunities: got %v, want ErrNoData", err)
	}
	if _, err := p.ReviewOpportunities(ctx); !errors.Is(err, ErrNoData) {
		t.Errorf("ReviewOpportunities: got %v, want ErrNoData", err)
	}
	if _, err := p.Demand(ctx); !errors.Is(err, ErrNoData) {
		t.Errorf("Demand: got %v, want ErrNoData", err)
	}
	if _, err := p.Gap(ctx); !errors.Is(err, ErrNoData) {
		t.Errorf("Gap: got %v, want ErrNoData", err)
	}
	if _, err := p.GapRows(ctx); !errors.Is(err, ErrNoData) {
		t.Errorf("GapRows: got %v, want ErrNoData", err)
	}
}

func TestPipelineIngestAll(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "yelp_business.json", businessLines),
		writeFile(t, dir, "broken_review.json", "{\"review_id\":\n"),
		writeFile(t, dir, "yelp_review.json", reviewLines),
		writeFile(t, dir, "shops.csv", "name,categories,review_count\nA,Food,3\n"),
	}

	store := newMemoryStore()
	p := newTestPipeline(store)
	results := p.IngestAll(context.Background(), paths)

	if len(results) != 4 {
		t.Fatalf("results: got %d, want 4", len(results))
	}
	wantKinds := []extract.Kind{extract.KindBusiness, extract.KindReview, extract.KindReview, extract.KindGeneric}
	wantRows := []int{2, 0, 3, 1}
	for i, r := range results {
		if r.Kind != wantKinds[i] || r.Rows != wantRows[i] {
			t.Errorf("result %d: got %s/%d, want %s/%d", i, r.Kind, r.Rows, wantKinds[i], wantRows[i])
		}
	}
	if results[1].Err == nil || !strings.Contains(results[1].Err.Error(), "broken_review.json") {
		t.Errorf("broken file: got %v", results[1].Err)
	}
	for _, i := range []int{0, 2, 3} {
		if results[i].Err != nil {
			t.Errorf("result %d: unexpected error %v", i, results[i].Err)
		}
	}

	want := []string{
		"archive:yelp_business.json", "table:business", "latest",
		"table:review",
		"archive:shops.csv", "latest",
	}
	if strings.Join(store.writes, "|") != strings.Join(want, "|") {
		t.Errorf("writes:\n got %v\nwant %v", store.writes, want)
	}
	if store.latest.Value(0, "name") != "A" {
		t.Errorf("latest dataset should be the last generic upload, got %v", store.latest.Rows)
	}
}

func TestPipelineFailedWriteKeepsLatestDataset(t *testing.T) {
	dir := t.TempDir()
	previous := tableOf([]string{"name"}, []string{"previous"})
	tests := []struct {
		name  string
		file  string
		body  string
		setup func(*memoryStore)
	}{
		{"archive fails", "shops.csv", "name,categories\nA,Food\n", func(m *memoryStore) { m.archiveErr = errors.New("disk full") }},
		{"business table fails", "yelp_business.json", businessLines, func(m *memoryStore) { m.tableErr = errors.New("db down") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			store.latest = previous
			tt.setup(store)

			_, err := newTestPipeline(store).Ingest(context.Background(), writeFile(t, dir, tt.file, tt.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if store.latest != previous {
				t.Errorf("latest dataset replaced after a failed write: %v", store.latest.Rows)
			}
			for _, w := range store.writes {
				if w == "latest" {
					t.Errorf("writes: got %v, want no latest write", store.writes)
				}
			}
		})
	}
}

func TestPipelineConcurrentIngestAll(t *testing.T) {
	dir := t.TempDir()
	store := newMemoryStore()
	p := newTestPipeline(store)

	var wg sync.WaitGroup
	errs := make(chan error, 12)
	for c := 0; c < 4; c++ {
		paths := []string{
			writeFile(t, dir, fmt.Sprintf("a%d.csv", c), "name\nA\n"),
			writeFile(t, dir, fmt.Sprintf("b%d.csv", c), "name\nB\n"),
			writeFile(t, dir, fmt.Sprintf("c%d.csv", c), "name\nC\n"),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, r := range p.IngestAll(context.Background(), paths) {
				if r.Err != nil || r.Rows != 1 {
					errs <- fmt.Errorf("%s: rows=%d err=%v", r.File, r.Rows, r.Err)
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if len(store.archived) != 12 {
		t.Errorf("archived: got %d sheets, want 12", len(store.archived))
	}
}

func TestPipelineAnalysesAfterIngest(t *testing.T) {
	dir := t.TempDir()
	store := newMemoryStore()
	p := newTestPipeline(store)
	ctx := context.Background()

	for _, path := range []string{
		writeFile(t, dir, "business.json", businessLines),
		writeFile(t, dir, "review.json", reviewLines),
	} {
		if _, err := p.Ingest(ctx, path); err != nil {
			t.Fatalf("Ingest(%s): %v", path, err)
		}
	}

	opp, err := p.Opportunities(ctx)
	if err != nil {
		t.Fatalf("Opportunities: %v", err)
	}
	if len(opp.Rows) != 3 || len(opp.Markers) != 1 {
		t.Errorf("Opportunities: got %d rows, %d markers", len(opp.Rows), len(opp.Markers))
	}

	rows, err := p.GapRows(ctx)
	if err != nil {
		t.Fatalf("GapRows: %v", err)
	}
	byCat := make(map[string]models.GapRow)
	for _, r := range rows {
		byCat[r.Category] = r
	}
	if byCat["Coffee"].Demand != 2 || byCat["Tea"].Demand != 1 || byCat["Bars"].Gap != 1 {
		t.Errorf("GapRows: got %+v", rows)
	}

	gap, err := p.Gap(ctx)
	if err != nil || len(gap.ChartLabels) != 3 {
		t.Errorf("Gap: got %+v, %v", gap, err)
	}

	demand, err := p.Demand(ctx)
	if err != nil {
		t.Fatalf("Demand: %v", err)
	}
	if len(demand.TimeSeries) != 2 || len(demand.Topics) != 2 {
		t.Errorf("Demand: got %d months, %d topics", len(demand.TimeSeries), len(demand.Topics))
	}

	reviewOpp, err := p.ReviewOpportunities(ctx)
	if err != nil {
		t.Fatalf("ReviewOpportunities: %v", err)
	}
	for _, r := range reviewOpp.Rows {
		if r.Category == "Coffee" && r.AvgReviews != 2 {
			t.Errorf("Coffee avg reviews: got %v, want 2", r.AvgReviews)
		}
	}
}

func TestJoinCategories(t *testing.T) {
	businesses := []models.Business{{ID: "b1", Categories: "Coffee, Bars"}}
	reviews := []models.Review{{BusinessID: strp("b1")}, {BusinessID: strp("b9")}, {}}

	tbl := JoinCategories(reviews, businesses)
	if !tbl.Has("categories") || tbl.Len() != 3 {
		t.Fatalf("table: columns %v, %d rows", tbl.Columns, tbl.Len())
	}
	got := []string{tbl.Value(0, "categories"), tbl.Value(1, "categories"), tbl.Value(2, "categories")}
	if got[0] != "Coffee, Bars" || got[1] != "" || got[2] != "" {
		t.Errorf("categories: got %q", got)
	}
}
