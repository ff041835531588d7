package services

import (
	"strings"
	"sync"

	"github.com/jonreiter/govader"
)

// The analyzer loads its lexicon on construction and is safe to share.
var sentimentAnalyzer = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// Polarity scores text in [-1, 1] using the VADER compound score. Blank
// text scores 0.
func Polarity(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return sentimentAnalyzer().PolarityScores(text).Compound
}
