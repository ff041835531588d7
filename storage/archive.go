package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"market-dss/models"
)

const (
	// maxSheetName leaves room under Excel's 31 character limit.
	maxSheetName = 30
	scratchSheet = "~scratch"
	defaultSheet = "Sheet1"
)

// XLSXArchive is the history workbook: one sheet per uploaded file, named
// after the file. Uploading a file with the same name replaces its sheet.
type XLSXArchive struct {
	mu   sync.Mutex
	path string
}

func NewXLSXArchive(path string) (*XLSXArchive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("xlsx: create output dir: %w", err)
	}
	return &XLSXArchive{path: path}, nil
}

func (a *XLSXArchive) Path() string { return a.path }

// AppendSheet writes t to the sheet derived from name.
func (a *XLSXArchive) AppendSheet(name string, t *models.Table) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	sheet := SheetName(name)
	f, fresh, err := a.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := resetSheet(f, sheet); err != nil {
		return fmt.Errorf("xlsx: prepare sheet %q: %w", sheet, err)
	}
	if fresh && sheet != defaultSheet {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("xlsx: drop default sheet: %w", err)
		}
	}

	if err := writeRow(f, sheet, 1, t.Columns); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("xlsx: locate sheet %q: %w", sheet, err)
	}
	f.SetActiveSheet(idx)

	if err := f.SaveAs(a.path); err != nil {
		return fmt.Errorf("xlsx: save %q: %w", a.path, err)
	}
	return nil
}

func (a *XLSXArchive) open() (*excelize.File, bool, error) {
	if _, err := os.Stat(a.path); errors.Is(err, fs.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	f, err := excelize.OpenFile(a.path)
	if err != nil {
		return nil, false, fmt.Errorf("xlsx: open %q: %w", a.path, err)
	}
	return f, false, nil
}

// resetSheet recreates sheet empty. A workbook cannot lose its last sheet,
// so a scratch sheet holds the place while the only sheet is replaced.
func resetSheet(f *excelize.File, sheet string) (int, error) {
	if idx, err := f.GetSheetIndex(sheet); err == nil && idx >= 0 {
		if len(f.GetSheetList()) == 1 {
			if _, err := f.NewSheet(scratchSheet); err != nil {
				return 0, err
			}
			defer func() { _ = f.DeleteSheet(scratchSheet) }()
		}
		if err := f.DeleteSheet(sheet); err != nil {
			return 0, err
		}
	}
	return f.NewSheet(sheet)
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("xlsx: cell name: %w", err)
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("xlsx: write %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// SheetName derives a sheet name from an upload's file name: the stem,
// stripped of characters Excel forbids, cut to 30 characters.
func SheetName(fileName string) string {
	stem := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	stem = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, stem)
	stem = strings.Trim(stem, "'")
	if r := []rune(stem); len(r) > maxSheetName {
		stem = string(r[:maxSheetName])
	}
	if stem == "" {
		stem = "upload"
	}
	return stem
}
