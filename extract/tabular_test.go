package extract

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"yelp_academic_dataset_business.json", KindBusiness},
		{"Business_sample.JSON", KindBusiness},
		{"review_sample.json", KindReview},
		{"uploads/reviews.csv", KindGeneric},
		{"data.json", KindGeneric},
		{"sales.xlsx", KindGeneric},
	}
	for _, tt := range tests {
		if got := KindOf(tt.name); got != tt.want {
			t.Errorf("KindOf(%q) = %q; want %q", tt.name, got, tt.want)
		}
	}
}

func TestReadTableCSVTrimsColumnsOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	content := " name , categories \n Cafe ,\" Food, Bars \"\nShort\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tbl, err := ReadTable(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"name", "categories"}; !reflect.DeepEqual(tbl.Columns, want) {
		t.Errorf("Columns: got %q, want %q", tbl.Columns, want)
	}
	if got := tbl.Value(0, "name"); got != " Cafe " {
		t.Errorf("values must pass through unmodified, got %q", got)
	}
	if got := tbl.Value(1, "categories"); got != "" {
		t.Errorf("short row should be padded, got %q", got)
	}
}

func TestReadTableUnknownExtensionIsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := ReadTable(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 1 || tbl.Value(0, "b") != "2" {
		t.Errorf("unexpected table: %+v", tbl)
	}
}

func TestReadCSVEmpty(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); err != ErrEmptyFile {
		t.Errorf("got %v, want ErrEmptyFile", err)
	}
}

func TestReadJSONArrayAndLines(t *testing.T) {
	arr := []byte(`[{"name":"A","review_count":3,"open":true},{"name":"B","extra":{"k":1}}]`)
	tbl, err := ReadJSON(arr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"extra", "name", "open", "review_count"}; !reflect.DeepEqual(tbl.Columns, want) {
		t.Errorf("Columns: got %v, want %v", tbl.Columns, want)
	}
	if got := tbl.Value(0, "review_count"); got != "3" {
		t.Errorf("review_count: got %q, want 3", got)
	}
	if got := tbl.Value(1, "extra"); got != `{"k":1}` {
		t.Errorf("extra: got %q", got)
	}
	if got := tbl.Value(1, "open"); got != "" {
		t.Errorf("missing key should be empty, got %q", got)
	}

	lines := []byte("{\"name\":\"A\"}\n{\"name\":\"B\"}\n")
	tbl, err = ReadJSON(lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 2 {
		t.Errorf("rows: got %d, want 2", tbl.Len())
	}
}

func TestReadTableSpreadsheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	f := excelize.NewFile()
	rows := [][]any{
		{" business_id ", "categories"},
		{"b1", "Coffee, Bars"},
		{"b2"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	tbl, err := ReadTable(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tbl.Has("business_id") {
		t.Errorf("header should be trimmed: %q", tbl.Columns)
	}
	if tbl.Len() != 2 || tbl.Value(0, "categories") != "Coffee, Bars" || tbl.Value(1, "categories") != "" {
		t.Errorf("unexpected rows: %q", tbl.Rows)
	}
}
