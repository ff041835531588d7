package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"

	"market-dss/models"
)

// Kind classifies an upload by its file name.
type Kind string

const (
	KindBusiness Kind = "business"
	KindReview   Kind = "review"
	KindGeneric  Kind = "generic"
)

// KindOf reports how a file named name should be extracted. Only JSON
// files are recognized as review-platform exports.
func KindOf(name string) Kind {
	lower := strings.ToLower(filepath.Base(name))
	if filepath.Ext(lower) != ".json" {
		return KindGeneric
	}
	switch {
	case strings.Contains(lower, "business"):
		return KindBusiness
	case strings.Contains(lower, "review"):
		return KindReview
	default:
		return KindGeneric
	}
}

// ErrEmptyFile is returned when a tabular file has no header row.
var ErrEmptyFile = errors.New("extract: file has no header row")

// ReadTable loads a generic upload by extension: spreadsheets through
// excelize, JSON as an array of objects (or one object per line), anything
// else as CSV. Column names are trimmed; values are left untouched.
func ReadTable(path string) (*models.Table, error) {
	var (
		t   *models.Table
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		t, err = readSpreadsheet(path)
	case ".json":
		t, err = readJSONFile(path)
	default:
		t, err = readCSVFile(path)
	}
	if err != nil {
		return nil, err
	}
	t.TrimColumns()
	return t, nil
}

// ReadCSV parses CSV with a header row. Short rows are padded.
func ReadCSV(r io.Reader) (*models.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("extract: csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := models.NewTable(header)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("extract: csv: %w", err)
		}
		t.Rows = append(t.Rows, fitRow(rec, len(header)))
	}
	return t, nil
}

func readCSVFile(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: open %q: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

func readSpreadsheet(path string) (*models.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: open workbook %q: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("extract: read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	t := models.NewTable(rows[0])
	for _, r := range rows[1:] {
		t.Rows = append(t.Rows, fitRow(r, len(rows[0])))
	}
	return t, nil
}

func readJSONFile(path string) (*models.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: read %q: %w", path, err)
	}
	return ReadJSON(data)
}

// ReadJSON parses an array of flat objects, falling back to one object per
// line. Columns are the union of keys in sorted order.
func ReadJSON(data []byte) (*models.Table, error) {
	var objects []map[string]any
	if err := json.Unmarshal(data, &objects); err != nil {
		objects = objects[:0]
		lineErr := eachLine(bytes.NewReader(data), 0, func(lineNo int, line []byte) error {
			var obj map[string]any
			if err := json.Unmarshal(line, &obj); err != nil {
				return fmt.Errorf("extract: json line %d: %w", lineNo, err)
			}
			objects = append(objects, obj)
			return nil
		})
		if lineErr != nil {
			return nil, lineErr
		}
	}

	seen := make(map[string]struct{})
	var columns []string
	for _, obj := range objects {
		for k := range obj {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	t := models.NewTable(columns)
	for _, obj := range objects {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = cellText(obj[c])
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteCSV writes t with its header. It is the inverse of ReadCSV.
func WriteCSV(w io.Writer, t *models.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("extract: csv header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("extract: csv rows: %w", err)
	}
	return nil
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func fitRow(rec []string, width int) []string {
	if len(rec) >= width {
		return rec[:width]
	}
	row := make([]string, width)
	copy(row, rec)
	return row
}
