package services

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"market-dss/models"
	"market-dss/utils"
)

const (
	// TopN bounds every ranked display table.
	TopN = 10

	opportunityNote = "Showing the categories with the highest calculated opportunity."
	noDataAdvice    = "Not enough data to generate a recommendation."
)

// ErrNoCategories is the failure reported when a dataset lacks a
// categories column.
var ErrNoCategories = errors.New("the file has no categories column")

// reviewCountFields lists, in priority order, the columns a marker's review
// figure is read from.
var reviewCountFields = []string{"review_count", "reviews"}

// OpportunityScorer ranks categories by mean demand per competitor.
type OpportunityScorer struct {
	logger *utils.Logger
}

func NewOpportunityScorer(logger *utils.Logger) *OpportunityScorer {
	return &OpportunityScorer{logger: logger}
}

// Score builds the display bundle for t. A dataset without categories is
// reported through Summary.Error and Err; Score itself never fails.
func (s *OpportunityScorer) Score(t *models.Table, withMarkers bool) *models.OpportunityReport {
	report := &models.OpportunityReport{
		Rows:    []models.OpportunityRow{},
		Markers: []models.Marker{},
	}

	ranked, err := s.Rank(t)
	if err != nil {
		s.logger.Warn("[opportunity] %v", err)
		report.Err = err
		report.Summary.Error = err.Error()
		return report
	}

	if len(ranked) > TopN {
		ranked = ranked[:TopN]
	}
	report.Rows = ranked
	report.TableHTML, report.TableText = renderOpportunities(ranked)
	report.Summary = models.Summary{
		Note:           opportunityNote,
		Recommendation: recommendOpportunity(ranked),
	}
	if withMarkers {
		report.Markers = markers(t)
	}

	s.logger.Debug("[opportunity] Scored %d rows into %d categories", t.Len(), len(ranked))
	return report
}

// Rank returns every category ordered by opportunity, highest first.
//
// With a review_count column each record carries its own demand figure.
// Without one the rows are taken to be reviews: demand per business is the
// number of rows sharing its business_id, joined back onto every row.
func (s *OpportunityScorer) Rank(t *models.Table) ([]models.OpportunityRow, error) {
	if t == nil || !t.Has("categories") {
		return nil, ErrNoCategories
	}

	exploded := explode(t.Len(), func(i int) string { return t.Value(i, "categories") })

	var demandOf func(row int) *float64
	if t.Has("review_count") {
		demandOf = func(row int) *float64 {
			return models.ParseFloat(t.Value(row, "review_count"))
		}
	} else {
		perBusiness := countBy(t.Len(), func(i int) string { return t.Value(i, "business_id") })
		demandOf = func(row int) *float64 {
			n := float64(perBusiness[t.Value(row, "business_id")])
			return &n
		}
	}

	type agg struct {
		count  int
		valued int
		sum    float64
	}
	groups := make(map[string]*agg)
	for _, er := range exploded {
		g, ok := groups[er.category]
		if !ok {
			g = &agg{}
			groups[er.category] = g
		}
		g.count++
		if v := demandOf(er.row); v != nil {
			g.valued++
			g.sum += *v
		}
	}

	rows := make([]models.OpportunityRow, 0, len(groups))
	for _, cat := range sortedKeys(groups) {
		g := groups[cat]
		var avg float64
		if g.valued > 0 {
			avg = g.sum / float64(g.valued)
		}
		rows = append(rows, models.OpportunityRow{
			Category:     cat,
			Businesses:   g.count,
			AvgReviews:   avg,
			TotalReviews: g.sum,
			Opportunity:  avg / float64(g.count+1),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Opportunity > rows[j].Opportunity
	})
	return rows, nil
}

func renderOpportunities(rows []models.OpportunityRow) (string, string) {
	body := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		body = append(body, table.Row{
			r.Category,
			r.Businesses,
			fmt.Sprintf("%.2f", r.AvgReviews),
			strconv.FormatFloat(r.TotalReviews, 'f', -1, 64),
			fmt.Sprintf("%.4f", r.Opportunity),
		})
	}
	header := table.Row{"Category", "Businesses", "Avg. reviews", "Total reviews", "Opportunity"}
	return renderTable(header, body, opportunityTableClass)
}

func recommendOpportunity(rows []models.OpportunityRow) string {
	if len(rows) == 0 {
		return noDataAdvice
	}
	best := rows[0]
	return fmt.Sprintf(
		"The category with the greatest investment potential is **%s**. "+
			"There are currently %d businesses in this sector, with an average of %.1f reviews. "+
			"The calculated opportunity index is %.2f. "+
			"This suggests that opening a new business in this category could capture unmet demand.",
		best.Category, best.Businesses, best.AvgReviews, best.Opportunity)
}

// markers places every record that has both coordinates. Records missing
// either axis are skipped.
func markers(t *models.Table) []models.Marker {
	out := []models.Marker{}
	if !t.Has("latitude") || !t.Has("longitude") {
		return out
	}
	for i := range t.Rows {
		lat := models.ParseFloat(t.Value(i, "latitude"))
		lon := models.ParseFloat(t.Value(i, "longitude"))
		if lat == nil || lon == nil {
			continue
		}
		out = append(out, models.Marker{
			Lat:        *lat,
			Lon:        *lon,
			Name:       t.Value(i, "name"),
			Categories: t.Value(i, "categories"),
			Reviews:    markerReviews(t, i),
			City:       t.Value(i, "city"),
		})
	}
	return out
}

func markerReviews(t *models.Table, row int) float64 {
	for _, field := range reviewCountFields {
		if !t.Has(field) {
			continue
		}
		if v := models.ParseFloat(t.Value(row, field)); v != nil {
			return *v
		}
	}
	return 0
}
