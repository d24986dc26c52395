package parser

import (
	"testing"
	"time"

	"github.com/aronkovacs/real-estate-scrapers/models"
)

func TestIsNumeric(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{input: "-1", expected: true},
		{input: "-1.12", expected: true},
		{input: "0", expected: true},
		{input: "1", expected: true},
		{input: "1.123", expected: true},
		{input: " 42 ", expected: true},
		{input: "1,123", expected: false},
		{input: "some text", expected: false},
		{input: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsNumeric(tt.input); got != tt.expected {
				t.Fatalf("IsNumeric(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestContainsNumber(t *testing.T) {
	if !ContainsNumber("Ca. 1900") {
		t.Fatalf("expected digits in %q", "Ca. 1900")
	}
	if ContainsNumber("no digits here") {
		t.Fatalf("expected no digits in %q", "no digits here")
	}
}

func TestExtractYear(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
		wantErr  bool
	}{
		{name: "bare year", input: "1998", expected: 1998},
		{name: "embedded", input: "Baujahr: Ca. 1900", expected: 1900},
		{name: "in prose", input: "The villa was built in 2015 and renovated later.", expected: 2015},
		{name: "longer digit run", input: "id 1234567", wantErr: true},
		{name: "no year", input: "brand new", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractYear(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ExtractYear(%q) = %d, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractYear(%q): %v", tt.input, err)
			}
			if got != tt.expected {
				t.Fatalf("ExtractYear(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDecimalComma(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		wantErr  bool
	}{
		{input: "1.000,50", expected: 1000.5},
		{input: "320.000", expected: 320000},
		{input: "7.117,12", expected: 7117.12},
		{input: "85", expected: 85},
		{input: "n/a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := DecimalComma(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DecimalComma(%q) = %f, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecimalComma(%q): %v", tt.input, err)
			}
			if got != tt.expected {
				t.Fatalf("DecimalComma(%q) = %f, want %f", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDecimalGrouped(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		wantErr  bool
	}{
		{input: "1,420,000", expected: 1420000},
		{input: "7,754", expected: 7754},
		{input: "45000", expected: 45000},
		{input: "many", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := DecimalGrouped(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DecimalGrouped(%q) = %f, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecimalGrouped(%q): %v", tt.input, err)
			}
			if got != tt.expected {
				t.Fatalf("DecimalGrouped(%q) = %f, want %f", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeSpace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "4400 St. Pölten", expected: "4400 St. Pölten"},
		{name: "surrounding whitespace", input: "  \t 85 m²\n", expected: "85 m²"},
		{name: "non-breaking space", input: "€ 7.117,12", expected: "€ 7.117,12"},
		{name: "collapses runs", input: "a  b\n\n c", expected: "a b c"},
		{name: "empty", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSpace(tt.input); got != tt.expected {
				t.Fatalf("NormalizeSpace(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func validItem() *models.RealEstate {
	return &models.RealEstate{
		Location: models.Location{
			Country: "AUT",
			City:    "Wien",
			ZipCode: "1010",
		},
		ListingType: models.ListingSale,
		Metadata:    models.Metadata{ObjectType: "Wohnung"},
		Scrape: models.ScrapeMetadata{
			URL:       "https://www.immowelt.at/expose/abc123",
			Timestamp: time.Now(),
		},
	}
}

func TestValidateListing(t *testing.T) {
	if err := ValidateListing(validItem()); err != nil {
		t.Fatalf("valid item rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*models.RealEstate)
	}{
		{name: "missing url", mutate: func(i *models.RealEstate) { i.Scrape.URL = " " }},
		{name: "missing country", mutate: func(i *models.RealEstate) { i.Location.Country = "" }},
		{name: "missing city", mutate: func(i *models.RealEstate) { i.Location.City = "" }},
		{name: "unknown listing type", mutate: func(i *models.RealEstate) { i.ListingType = "lease" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := validItem()
			tt.mutate(item)
			if err := ValidateListing(item); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	if err := ValidateListing(nil); err == nil {
		t.Fatalf("expected error for nil item")
	}
}
