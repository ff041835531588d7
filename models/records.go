package models

import (
	"math"
	"strconv"
	"strings"
)

// Business is one entity record extracted from a business export.
// Categories holds the normalized "A, B, C" label text.
type Business struct {
	ID          string
	Name        string
	Categories  string
	ReviewCount int
	City        string
	Latitude    *float64
	Longitude   *float64
}

// Review is one user review. Fields the source omits stay nil.
type Review struct {
	ID         *string
	BusinessID *string
	UserID     *string
	Stars      *float64
	Date       *string
	Text       *string
}

// BusinessColumns is the column order used whenever businesses are tabulated.
var BusinessColumns = []string{
	"business_id", "name", "categories", "review_count", "city", "latitude", "longitude",
}

// ReviewColumns is the column order used whenever reviews are tabulated.
var ReviewColumns = []string{
	"review_id", "business_id", "user_id", "stars", "date", "text",
}

// SplitCategories splits comma-delimited label text into trimmed, non-empty
// tokens. Tokens are kept in input order; duplicates are preserved.
func SplitCategories(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinCategories is the inverse of SplitCategories.
func JoinCategories(labels []string) string {
	return strings.Join(SplitCategories(strings.Join(labels, ",")), ", ")
}

// Row renders the business in BusinessColumns order.
func (b *Business) Row() []string {
	return []string{
		b.ID,
		b.Name,
		b.Categories,
		strconv.Itoa(b.ReviewCount),
		b.City,
		formatFloatPtr(b.Latitude),
		formatFloatPtr(b.Longitude),
	}
}

// Row renders the review in ReviewColumns order; nil fields become "".
func (r *Review) Row() []string {
	return []string{
		deref(r.ID),
		deref(r.BusinessID),
		deref(r.UserID),
		formatFloatPtr(r.Stars),
		deref(r.Date),
		deref(r.Text),
	}
}

// BusinessTable tabulates businesses.
func BusinessTable(businesses []Business) *Table {
	t := NewTable(BusinessColumns)
	for i := range businesses {
		t.Rows = append(t.Rows, businesses[i].Row())
	}
	return t
}

// ReviewTable tabulates reviews.
func ReviewTable(reviews []Review) *Table {
	t := NewTable(ReviewColumns)
	for i := range reviews {
		t.Rows = append(t.Rows, reviews[i].Row())
	}
	return t
}

// BusinessesFromTable rebuilds typed records from a stored business table.
// Unparseable numbers fall back to their documented defaults.
func BusinessesFromTable(t *Table) []Business {
	out := make([]Business, 0, t.Len())
	for i := range t.Rows {
		b := Business{
			ID:         t.Value(i, "business_id"),
			Name:       t.Value(i, "name"),
			Categories: t.Value(i, "categories"),
			City:       t.Value(i, "city"),
			Latitude:   ParseFloat(t.Value(i, "latitude")),
			Longitude:  ParseFloat(t.Value(i, "longitude")),
		}
		if n := ParseFloat(t.Value(i, "review_count")); n != nil && *n > 0 {
			b.ReviewCount = int(*n)
		}
		out = append(out, b)
	}
	return out
}

// ReviewsFromTable rebuilds typed records from a stored review table.
func ReviewsFromTable(t *Table) []Review {
	out := make([]Review, 0, t.Len())
	for i := range t.Rows {
		out = append(out, Review{
			ID:         optional(t, i, "review_id"),
			BusinessID: optional(t, i, "business_id"),
			UserID:     optional(t, i, "user_id"),
			Stars:      ParseFloat(t.Value(i, "stars")),
			Date:       optional(t, i, "date"),
			Text:       optional(t, i, "text"),
		})
	}
	return out
}

// ParseFloat parses s, returning nil for empty, non-numeric, NaN or
// infinite input.
func ParseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func optional(t *Table, row int, col string) *string {
	if !t.Has(col) {
		return nil
	}
	v := t.Value(row, col)
	if v == "" {
		return nil
	}
	return &v
}

func formatFloatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
