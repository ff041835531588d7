package services

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"market-dss/models"
	"market-dss/utils"
)

// GapScorer compares, per category, how many businesses offer it with how
// many reviews those businesses attract.
type GapScorer struct {
	logger *utils.Logger
}

func NewGapScorer(logger *utils.Logger) *GapScorer {
	return &GapScorer{logger: logger}
}

// Rows returns every category sorted by gap, largest first.
func (s *GapScorer) Rows(businesses []models.Business, reviews []models.Review) []models.GapRow {
	perBusiness := countBy(len(reviews), func(i int) string {
		if reviews[i].BusinessID == nil {
			return ""
		}
		return *reviews[i].BusinessID
	})

	exploded := explode(len(businesses), func(i int) string { return businesses[i].Categories })

	supply := make(map[string]int)
	demand := make(map[string]int)
	for _, er := range exploded {
		supply[er.category]++
		demand[er.category] += perBusiness[businesses[er.row].ID]
	}

	union := make(map[string]struct{}, len(supply))
	for c := range supply {
		union[c] = struct{}{}
	}
	for c := range demand {
		union[c] = struct{}{}
	}

	rows := make([]models.GapRow, 0, len(union))
	for _, cat := range sortedKeys(union) {
		rows = append(rows, models.GapRow{
			Category: cat,
			Supply:   supply[cat],
			Demand:   demand[cat],
			Gap:      demand[cat] - supply[cat],
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Gap > rows[j].Gap
	})

	s.logger.Debug("[gap] %d businesses, %d reviews, %d categories",
		len(businesses), len(reviews), len(rows))
	return rows
}

// Score builds the top-10 display bundle.
func (s *GapScorer) Score(businesses []models.Business, reviews []models.Review) *models.GapReport {
	rows := s.Rows(businesses, reviews)
	if len(rows) > TopN {
		rows = rows[:TopN]
	}

	report := &models.GapReport{
		Rows:           rows,
		Recommendation: recommendGap(rows),
		ChartLabels:    make([]string, 0, len(rows)),
		ChartValues:    make([]int, 0, len(rows)),
	}
	body := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		report.ChartLabels = append(report.ChartLabels, r.Category)
		report.ChartValues = append(report.ChartValues, r.Gap)
		body = append(body, table.Row{r.Category, r.Supply, r.Demand, r.Gap})
	}
	header := table.Row{"Category", "Businesses (supply)", "Reviews (demand)", "Gap (demand - supply)"}
	report.TableHTML, report.TableText = renderTable(header, body, gapTableClass)
	return report
}

func recommendGap(rows []models.GapRow) string {
	if len(rows) == 0 {
		return noDataAdvice
	}
	best := rows[0]
	return fmt.Sprintf(
		"The category with the greatest opportunity is **%s**. "+
			"There are currently %d businesses against a demand of %d reviews. "+
			"This produces a gap of %d, which points to a clear opportunity.",
		best.Category, best.Supply, best.Demand, best.Gap)
}
