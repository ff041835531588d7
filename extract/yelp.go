// Package extract turns uploaded files into records: the review platform's
// line-delimited JSON exports become typed businesses and reviews, anything
// else becomes a generic table.
package extract

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"market-dss/models"
)

// maxLineBytes bounds a single JSON line; review bodies can be long.
const maxLineBytes = 16 << 20

// Scalar fields are decoded lazily: a value of an unexpected JSON type is
// read as missing instead of failing the line.
type coordinates struct {
	Latitude  json.RawMessage `json:"latitude"`
	Longitude json.RawMessage `json:"longitude"`
}

type businessLine struct {
	BusinessID  json.RawMessage `json:"business_id"`
	Name        json.RawMessage `json:"name"`
	Categories  json.RawMessage `json:"categories"`
	ReviewCount json.RawMessage `json:"review_count"`
	City        json.RawMessage `json:"city"`
	Coordinates json.RawMessage `json:"coordinates"`
	Latitude    json.RawMessage `json:"latitude"`
	Longitude   json.RawMessage `json:"longitude"`
}

type reviewLine struct {
	ReviewID   json.RawMessage `json:"review_id"`
	BusinessID json.RawMessage `json:"business_id"`
	UserID     json.RawMessage `json:"user_id"`
	Stars      json.RawMessage `json:"stars"`
	Date       json.RawMessage `json:"date"`
	Text       json.RawMessage `json:"text"`
}

// Businesses reads one business object per line. maxRecords <= 0 reads
// everything. A line that is not a JSON object fails the whole call; a
// field holding the wrong type is left empty.
func Businesses(r io.Reader, maxRecords int) ([]models.Business, error) {
	var out []models.Business
	err := eachLine(r, maxRecords, func(lineNo int, line []byte) error {
		var j businessLine
		if err := json.Unmarshal(line, &j); err != nil {
			return fmt.Errorf("extract: business line %d: %w", lineNo, err)
		}

		b := models.Business{
			ID:         str(text(j.BusinessID)),
			Name:       str(text(j.Name)),
			Categories: normalizeCategories(j.Categories),
			City:       str(text(j.City)),
			Latitude:   number(j.Latitude),
			Longitude:  number(j.Longitude),
		}
		if n := number(j.ReviewCount); n != nil && *n > 0 {
			b.ReviewCount = int(*n)
		}
		var c coordinates
		if isObject(j.Coordinates) && json.Unmarshal(j.Coordinates, &c) == nil {
			b.Latitude = number(c.Latitude)
			b.Longitude = number(c.Longitude)
		}
		out = append(out, b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reviews reads one review object per line. Missing or mistyped fields
// stay nil.
func Reviews(r io.Reader, maxRecords int) ([]models.Review, error) {
	var out []models.Review
	err := eachLine(r, maxRecords, func(lineNo int, line []byte) error {
		var j reviewLine
		if err := json.Unmarshal(line, &j); err != nil {
			return fmt.Errorf("extract: review line %d: %w", lineNo, err)
		}
		out = append(out, models.Review{
			ID:         text(j.ReviewID),
			BusinessID: text(j.BusinessID),
			UserID:     text(j.UserID),
			Stars:      number(j.Stars),
			Date:       text(j.Date),
			Text:       text(j.Text),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BusinessesFile opens path and extracts businesses from it.
func BusinessesFile(path string, maxRecords int) ([]models.Business, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: open %q: %w", path, err)
	}
	defer f.Close()
	return Businesses(f, maxRecords)
}

// ReviewsFile opens path and extracts reviews from it.
func ReviewsFile(path string, maxRecords int) ([]models.Review, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: open %q: %w", path, err)
	}
	defer f.Close()
	return Reviews(f, maxRecords)
}

// eachLine calls fn for every non-blank line until maxRecords lines have
// been handed over. Line numbers are 1-based.
func eachLine(r io.Reader, maxRecords int, fn func(lineNo int, line []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo, taken := 0, 0
	for sc.Scan() {
		lineNo++
		if maxRecords > 0 && taken >= maxRecords {
			break
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
		taken++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("extract: read line %d: %w", lineNo+1, err)
	}
	return nil
}

// normalizeCategories accepts a JSON array of labels or a delimited string.
// Anything else, null included, means no categories.
func normalizeCategories(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '[':
		var labels []string
		if json.Unmarshal(trimmed, &labels) != nil {
			return ""
		}
		return models.JoinCategories(labels)
	case '"':
		if s := text(trimmed); s != nil {
			return models.JoinCategories(strings.Split(*s, ","))
		}
	}
	return ""
}

// text reads a JSON string. Any other type is missing.
func text(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return nil
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return nil
	}
	return &s
}

// number reads a JSON number or a string holding one. Any other type, or
// a string that does not parse, is missing.
func number(raw json.RawMessage) *float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '"' {
		s := text(raw)
		if s == nil {
			return nil
		}
		return models.ParseFloat(*s)
	}
	return models.ParseFloat(string(raw))
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
