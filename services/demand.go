package services

import (
	"strings"
	"time"

	"market-dss/models"
	"market-dss/utils"
)

// CloudWords caps the word-cloud vocabulary.
const CloudWords = 150

// dateLayouts are tried in order when parsing review timestamps.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006-01",
}

// DemandAnalyzer summarizes what reviewers say: overall sentiment, review
// volume per month, a word cloud and latent topics.
type DemandAnalyzer struct {
	logger *utils.Logger
	topics *TopicModel
}

func NewDemandAnalyzer(logger *utils.Logger, topicCount int) *DemandAnalyzer {
	return &DemandAnalyzer{logger: logger, topics: NewTopicModel(topicCount)}
}

// Analyze never fails: empty input gives zero sentiment, an empty series,
// no topics and a placeholder cloud.
func (a *DemandAnalyzer) Analyze(reviews []models.Review) *models.DemandResult {
	texts := make([]string, len(reviews))
	for i, r := range reviews {
		if r.Text != nil {
			texts[i] = *r.Text
		}
	}

	cloud, err := WordCloud(strings.Join(texts, " "), CloudWords)
	if err != nil {
		a.logger.Error("[demand] Word cloud rendering failed: %v", err)
	}

	result := &models.DemandResult{
		WordCloud:    cloud,
		AvgSentiment: AverageSentiment(texts),
		TimeSeries:   MonthlyCounts(reviews),
		Topics:       a.topics.Fit(nonBlank(texts)),
	}
	a.logger.Debug("[demand] %d reviews, %d months, %d topics",
		len(reviews), len(result.TimeSeries), len(result.Topics))
	return result
}

// AverageSentiment is the mean polarity of texts, or 0 when there are none.
func AverageSentiment(texts []string) float64 {
	if len(texts) == 0 {
		return 0
	}
	var sum float64
	for _, t := range texts {
		sum += Polarity(t)
	}
	return sum / float64(len(texts))
}

// MonthlyCounts buckets reviews by calendar month, ascending. Reviews with
// a missing or unparseable date are left out; empty months do not appear.
func MonthlyCounts(reviews []models.Review) models.TimeSeries {
	counts := make(map[string]int)
	for _, r := range reviews {
		if r.Date == nil {
			continue
		}
		if t, ok := parseDate(*r.Date); ok {
			counts[t.Format("2006-01")]++
		}
	}
	series := make(models.TimeSeries, 0, len(counts))
	for _, m := range sortedKeys(counts) {
		series = append(series, models.MonthCount{Month: m, Count: counts[m]})
	}
	return series
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func nonBlank(texts []string) []string {
	var out []string
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}
