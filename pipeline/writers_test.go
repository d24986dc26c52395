package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aronkovacs/real-estate-scrapers/models"
)

func sampleItems() []*models.RealEstate {
	built := time.Date(1998, time.January, 1, 0, 0, 0, 0, time.UTC)
	return []*models.RealEstate{
		{
			Location: models.Location{
				Country: "AUT",
				City:    "Wien",
				ZipCode: "1010",
			},
			ListingType: models.ListingSale,
			Area:        models.Float(85.5),
			Price:       &models.Price{Amount: 320000, Unit: "EUR"},
			EPC: models.EPCData{
				HeatingDemand: &models.EnergyData{Class: "B", Value: models.Float(47.3)},
			},
			Metadata: models.Metadata{
				DateBuilt:  &built,
				ObjectType: "Wohnung",
			},
			Scrape: models.ScrapeMetadata{
				URL:       "https://www.immowelt.at/expose/1",
				Timestamp: time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC),
			},
		},
		{
			Location: models.Location{
				Country: "GRC",
				City:    "Athina",
			},
			ListingType: models.ListingRent,
			Metadata:    models.Metadata{ObjectType: "apartment"},
			Scrape: models.ScrapeMetadata{
				URL:       "https://en.tospitimou.gr/property/for-rent/athina/2",
				Timestamp: time.Date(2024, time.March, 4, 12, 0, 0, 0, time.UTC),
			},
		},
	}
}

func TestCSVWriterWritesFlattenedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "listings.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("new csv writer: %v", err)
	}
	if err := writer.Write(sampleItems()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(records))
	}
	header := records[0]
	if header[0] != "location_country" || header[len(header)-1] != "scrape_metadata_timestamp" {
		t.Fatalf("unexpected header: %v", header)
	}

	first := records[1]
	if first[0] != "AUT" || first[1] != "Wien" || first[2] != "1010" {
		t.Fatalf("first row = %v", first)
	}
	if first[3] != "sale" || first[4] != "85.5" || first[5] != "320000" {
		t.Fatalf("first row = %v", first)
	}

	// Absent optionals become empty cells, not dropped rows.
	second := records[2]
	if second[0] != "GRC" || second[2] != "" || second[5] != "" {
		t.Fatalf("second row = %v", second)
	}
}

func TestJSONWriterWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("new json writer: %v", err)
	}
	if err := writer.Write(sampleItems()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}

	var decoded models.RealEstate
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("decode first line: %v", err)
	}
	if decoded.Location.City != "Wien" || decoded.ListingType != models.ListingSale {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestMultiWriterFansOut(t *testing.T) {
	first := &mockWriter{}
	second := &mockWriter{}
	mw := NewMultiWriter(first, second)

	if err := mw.Write(sampleItems()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if first.totalWritten() != 2 || second.totalWritten() != 2 {
		t.Fatalf("writes = %d/%d, want 2/2", first.totalWritten(), second.totalWritten())
	}

	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !first.closed || !second.closed {
		t.Fatalf("expected both writers closed")
	}
}

func TestMultiWriterValidateCollectsErrors(t *testing.T) {
	broken := &mockWriter{validateErr: errors.New("empty output")}
	mw := NewMultiWriter(&mockWriter{}, broken)

	if err := mw.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestDualWriterProducesBothFiles(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "listings.csv")

	writer, err := NewDualWriter(csvPath, filepath.Join(dir, "listings.json"))
	if err != nil {
		t.Fatalf("new dual writer: %v", err)
	}
	if err := writer.Write(sampleItems()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, name := range []string{"listings.csv", "listings.json"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", name)
		}
	}
}
