package models

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// OpportunityRow is the per-category opportunity aggregate.
type OpportunityRow struct {
	Category     string  `json:"category"`
	Businesses   int     `json:"businesses_count"`
	AvgReviews   float64 `json:"avg_reviews"`
	TotalReviews float64 `json:"total_reviews"`
	Opportunity  float64 `json:"opportunity"`
}

// GapRow is the per-category supply/demand aggregate.
type GapRow struct {
	Category string `json:"category"`
	Supply   int    `json:"supply"`
	Demand   int    `json:"demand"`
	Gap      int    `json:"gap"`
}

// Marker is one geolocated business for the map view.
type Marker struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Name       string  `json:"name"`
	Categories string  `json:"categories"`
	Reviews    float64 `json:"reviews"`
	City       string  `json:"city"`
}

// Summary accompanies the opportunity table. Error is set instead of the
// other fields when the input could not be scored.
type Summary struct {
	Note           string `json:"note,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
	Error          string `json:"error,omitempty"`
}

// OpportunityReport is the display bundle of the opportunity scorer.
type OpportunityReport struct {
	TableHTML string           `json:"table_html"`
	TableText string           `json:"-"`
	Rows      []OpportunityRow `json:"rows"`
	Summary   Summary          `json:"summary"`
	Markers   []Marker         `json:"markers"`

	// Err names the failure when Summary.Error is set.
	Err error `json:"-"`
}

// GapReport is the display bundle of the gap scorer.
type GapReport struct {
	TableHTML      string   `json:"table_html"`
	TableText      string   `json:"-"`
	Rows           []GapRow `json:"rows"`
	Recommendation string   `json:"recommendation"`
	ChartLabels    []string `json:"chart_labels"`
	ChartValues    []int    `json:"chart_data"`
}

// Topic is one extracted topic and its highest-weighted terms.
type Topic struct {
	Index int      `json:"topic"`
	Words []string `json:"words"`
}

// MonthCount is one bucket of the review time series. Month is "YYYY-MM".
type MonthCount struct {
	Month string
	Count int
}

// TimeSeries is a chronologically ascending, sparse month series.
type TimeSeries []MonthCount

// MarshalJSON encodes the series as an object whose keys keep their order.
func (ts TimeSeries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, mc := range ts {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(mc.Month)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(mc.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DemandResult is the output of the demand analyzer.
type DemandResult struct {
	WordCloud    string     `json:"wordcloud_b64"`
	AvgSentiment float64    `json:"avg_sentiment"`
	TimeSeries   TimeSeries `json:"time_series"`
	Topics       []Topic    `json:"topics"`
}
