// Package models defines the data structures shared by the scrapers.
package models

import "time"

// ListingType states whether a real estate item is offered for sale or rent.
type ListingType string

// Listing types known to the scrapers.
const (
	ListingSale ListingType = "sale"
	ListingRent ListingType = "rent"
)

// Location describes where a listed property is situated.
type Location struct {
	Country string `json:"country"`
	City    string `json:"city"`
	ZipCode string `json:"zip_code"`
}

// Price holds the asking price of a listing. Unit is "EUR" for sales and
// "EUR/MONTH" for rentals.
type Price struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// EnergyData is a single energy certificate reading.
type EnergyData struct {
	Class string   `json:"energy_class,omitempty"`
	Value *float64 `json:"value,omitempty"`
}

// EPCData groups the energy performance certificate fields of a listing.
type EPCData struct {
	HeatingDemand    *EnergyData `json:"heating_demand,omitempty"`
	EnergyEfficiency *EnergyData `json:"energy_efficiency,omitempty"`
	PDFURL           string      `json:"epc_pdf_url,omitempty"`
	IssuedAt         *time.Time  `json:"epc_issued_date,omitempty"`
}

// Metadata carries general facts about the property itself.
type Metadata struct {
	DateBuilt  *time.Time `json:"date_built,omitempty"`
	ObjectType string     `json:"type"`
}

// ScrapeMetadata records where and when an item was scraped.
type ScrapeMetadata struct {
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// RealEstate represents one scraped listing.
type RealEstate struct {
	Location    Location       `json:"location"`
	ListingType ListingType    `json:"listing_type"`
	Area        *float64       `json:"area,omitempty"`
	Price       *Price         `json:"price,omitempty"`
	EPC         EPCData        `json:"epc_data"`
	Metadata    Metadata       `json:"item_metadata"`
	Scrape      ScrapeMetadata `json:"scrape_metadata"`
}

// CrawlResult holds the overall outcome of a crawl run.
type CrawlResult struct {
	StartTime    time.Time
	EndTime      time.Time
	TotalCount   int
	ErrorCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
	RetryCount   int
	RequestCount int
	PageCount    int
}

// Float returns a pointer to v, for optional numeric fields.
func Float(v float64) *float64 { return &v }

// Time returns a pointer to t, for optional date fields.
func Time(t time.Time) *time.Time { return &t }
