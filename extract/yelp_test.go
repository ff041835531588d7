package extract

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"market-dss/models"
)

func TestBusinessesCategoryRoundTrip(t *testing.T) {
	in := `{"business_id":"b1","name":"Cafe","categories":["Food","Bars"],"review_count":12,"city":"Reno","coordinates":{"latitude":39.5,"longitude":-119.8}}`
	got, err := Businesses(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("records: got %d, want 1", len(got))
	}
	b := got[0]
	if b.Categories != "Food, Bars" {
		t.Errorf("Categories: got %q, want %q", b.Categories, "Food, Bars")
	}
	if want := []string{"Food", "Bars"}; !reflect.DeepEqual(models.SplitCategories(b.Categories), want) {
		t.Errorf("SplitCategories: got %v, want %v", models.SplitCategories(b.Categories), want)
	}
	if b.ReviewCount != 12 || b.City != "Reno" {
		t.Errorf("ReviewCount/City: got %d/%q", b.ReviewCount, b.City)
	}
	if b.Latitude == nil || *b.Latitude != 39.5 || b.Longitude == nil || *b.Longitude != -119.8 {
		t.Errorf("coordinates not extracted: %v %v", b.Latitude, b.Longitude)
	}
}

func TestBusinessesDefaults(t *testing.T) {
	in := `{"business_id":"b2","name":"Bare","categories":" Coffee ,, Tea "}`
	got, err := Businesses(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := got[0]
	if b.ReviewCount != 0 {
		t.Errorf("ReviewCount: got %d, want 0", b.ReviewCount)
	}
	if b.City != "" {
		t.Errorf("City: got %q, want empty", b.City)
	}
	if b.Latitude != nil || b.Longitude != nil {
		t.Errorf("absent coordinates must be nil, got %v %v", b.Latitude, b.Longitude)
	}
	if b.Categories != "Coffee, Tea" {
		t.Errorf("Categories: got %q, want %q", b.Categories, "Coffee, Tea")
	}
}

func TestBusinessesTopLevelCoordinates(t *testing.T) {
	in := `{"business_id":"b3","categories":null,"latitude":1.5,"longitude":2.5}`
	got, err := Businesses(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Latitude == nil || *got[0].Latitude != 1.5 {
		t.Errorf("Latitude: got %v, want 1.5", got[0].Latitude)
	}
	if got[0].Categories != "" {
		t.Errorf("Categories: got %q, want empty", got[0].Categories)
	}
}

func TestBusinessesMalformedLineFailsWholeCall(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&sb, `{"business_id":"b%d","categories":"Food"}`+"\n", i)
		if i == 50 {
			sb.WriteString("{not json\n")
		}
	}

	got, err := Businesses(strings.NewReader(sb.String()), 0)
	if err == nil {
		t.Fatal("expected an error for the malformed line")
	}
	if got != nil {
		t.Errorf("expected no partial result, got %d records", len(got))
	}
	if !strings.Contains(err.Error(), "line 52") {
		t.Errorf("error should name the line: %v", err)
	}
}

func TestBusinessesMaxRecords(t *testing.T) {
	in := strings.Join([]string{
		`{"business_id":"a"}`,
		`{"business_id":"b"}`,
		`{"business_id":"c"}`,
		`garbage after the cap is never parsed`,
	}, "\n")

	got, err := Businesses(strings.NewReader(in), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("records: got %d, want 3", len(got))
	}
}

func TestBusinessesMistypedFieldsReadAsMissing(t *testing.T) {
	in := `{"business_id":"a","name":7,"categories":42,"review_count":"12","city":["Reno"],"coordinates":"39.5,-119.8","latitude":"1.5","longitude":true}
{"business_id":"b","review_count":"many"}
`
	got, err := Businesses(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records: got %d, want 2", len(got))
	}
	a := got[0]
	if a.Name != "" || a.City != "" || a.Categories != "" {
		t.Errorf("mistyped strings: got name=%q city=%q categories=%q, want empty", a.Name, a.City, a.Categories)
	}
	if a.ReviewCount != 12 {
		t.Errorf("ReviewCount: got %d, want 12", a.ReviewCount)
	}
	if a.Latitude == nil || *a.Latitude != 1.5 {
		t.Errorf("Latitude: got %v, want 1.5", a.Latitude)
	}
	if a.Longitude != nil {
		t.Errorf("Longitude: got %v, want nil", *a.Longitude)
	}
	if got[1].ReviewCount != 0 {
		t.Errorf("unparseable review_count: got %d, want 0", got[1].ReviewCount)
	}
}

func TestReviewsMistypedFieldsReadAsMissing(t *testing.T) {
	in := `{"review_id":"r1","business_id":"b1","stars":"4","date":20200102,"text":null}
{"review_id":"r2","stars":{"value":5},"user_id":99}
`
	got, err := Reviews(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records: got %d, want 2", len(got))
	}
	if got[0].Stars == nil || *got[0].Stars != 4 {
		t.Errorf("Stars: got %v, want 4", got[0].Stars)
	}
	if got[0].Date != nil {
		t.Errorf("Date: got %q, want nil", *got[0].Date)
	}
	if got[0].Text != nil {
		t.Errorf("Text: got %q, want nil", *got[0].Text)
	}
	if got[1].Stars != nil || got[1].UserID != nil {
		t.Errorf("r2: got stars=%v user=%v, want nil", got[1].Stars, got[1].UserID)
	}
}

func TestBlankLinesAreSkipped(t *testing.T) {
	in := "\n" + `{"review_id":"r1"}` + "\n   \n\t\n" + `{"review_id":"r2"}` + "\n\n"
	got, err := Reviews(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records: got %d, want 2", len(got))
	}

	// Blank lines still count towards the reported line number.
	_, err = Reviews(strings.NewReader("\n\n"+`{"review_id":"r1"}`+"\n\n"+`{oops`), 0)
	if err == nil || !strings.Contains(err.Error(), "line 5") {
		t.Errorf("error: got %v, want one naming line 5", err)
	}

	// Blank lines do not use up the record limit.
	got, err = Reviews(strings.NewReader("\n\n"+`{"review_id":"r1"}`+"\n\n"+`{"review_id":"r2"}`), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID == nil || *got[0].ID != "r1" {
		t.Errorf("limited records: got %+v, want only r1", got)
	}
}

func TestReviewsMissingFieldsAreNil(t *testing.T) {
	in := `{"review_id":"r1","business_id":"b1","stars":4.5,"date":"2020-01-02 10:00:00","text":"ok"}
{"review_id":"r2"}
`
	got, err := Reviews(strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records: got %d, want 2", len(got))
	}
	if got[0].Stars == nil || *got[0].Stars != 4.5 {
		t.Errorf("Stars: got %v, want 4.5", got[0].Stars)
	}
	if got[0].UserID != nil {
		t.Errorf("UserID: got %q, want nil", *got[0].UserID)
	}
	r := got[1]
	if r.BusinessID != nil || r.Stars != nil || r.Date != nil || r.Text != nil {
		t.Errorf("missing fields must stay nil: %+v", r)
	}
}

func TestReviewsMalformedLine(t *testing.T) {
	_, err := Reviews(strings.NewReader(`{"review_id":"r1"}`+"\n"+`[1,2`), 0)
	if err == nil {
		t.Error("expected an error")
	}
}

func TestTablesRoundTripThroughModels(t *testing.T) {
	businesses, err := Businesses(strings.NewReader(`{"business_id":"b1","name":"X","categories":["A"],"review_count":3}`), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back := models.BusinessesFromTable(models.BusinessTable(businesses))
	if !reflect.DeepEqual(back, businesses) {
		t.Errorf("round trip: got %+v, want %+v", back, businesses)
	}
}
