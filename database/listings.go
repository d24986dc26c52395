package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aronkovacs/real-estate-scrapers/models"
)

// ListingTable is the table scraped items are persisted into.
const ListingTable = "real_estate_items"

const listingSchema = `
CREATE TABLE IF NOT EXISTS real_estate_items (
	id                                      BIGSERIAL PRIMARY KEY,
	location_country                        TEXT NOT NULL,
	location_city                           TEXT NOT NULL,
	location_zip_code                       TEXT,
	listing_type                            TEXT NOT NULL,
	area                                    DOUBLE PRECISION,
	price_amount                            DOUBLE PRECISION,
	price_unit                              TEXT,
	epc_data_heating_demand_energy_class    TEXT,
	epc_data_heating_demand_value           DOUBLE PRECISION,
	epc_data_energy_efficiency_energy_class TEXT,
	epc_data_energy_efficiency_value        DOUBLE PRECISION,
	epc_data_epc_pdf_url                    TEXT,
	epc_data_epc_issued_date                TIMESTAMPTZ,
	item_metadata_date_built                TIMESTAMPTZ,
	item_metadata_type                      TEXT NOT NULL,
	scrape_metadata_url                     TEXT NOT NULL,
	scrape_metadata_timestamp               TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS real_estate_items_scrape_url_idx
	ON real_estate_items (scrape_metadata_url);
`

const listingInsert = `
INSERT INTO real_estate_items (
	location_country, location_city, location_zip_code, listing_type, area,
	price_amount, price_unit,
	epc_data_heating_demand_energy_class, epc_data_heating_demand_value,
	epc_data_energy_efficiency_energy_class, epc_data_energy_efficiency_value,
	epc_data_epc_pdf_url, epc_data_epc_issued_date,
	item_metadata_date_built, item_metadata_type,
	scrape_metadata_url, scrape_metadata_timestamp
) VALUES (
	:location_country, :location_city, :location_zip_code, :listing_type, :area,
	:price_amount, :price_unit,
	:epc_data_heating_demand_energy_class, :epc_data_heating_demand_value,
	:epc_data_energy_efficiency_energy_class, :epc_data_energy_efficiency_value,
	:epc_data_epc_pdf_url, :epc_data_epc_issued_date,
	:item_metadata_date_built, :item_metadata_type,
	:scrape_metadata_url, :scrape_metadata_timestamp
)`

// Row is the flattened database representation of a RealEstate item.
type Row struct {
	ID                       int64      `db:"id"`
	LocationCountry          string     `db:"location_country"`
	LocationCity             string     `db:"location_city"`
	LocationZipCode          *string    `db:"location_zip_code"`
	ListingType              string     `db:"listing_type"`
	Area                     *float64   `db:"area"`
	PriceAmount              *float64   `db:"price_amount"`
	PriceUnit                *string    `db:"price_unit"`
	HeatingDemandClass       *string    `db:"epc_data_heating_demand_energy_class"`
	HeatingDemandValue       *float64   `db:"epc_data_heating_demand_value"`
	EnergyEfficiencyClass    *string    `db:"epc_data_energy_efficiency_energy_class"`
	EnergyEfficiencyValue    *float64   `db:"epc_data_energy_efficiency_value"`
	EPCPDFURL                *string    `db:"epc_data_epc_pdf_url"`
	EPCIssuedDate            *time.Time `db:"epc_data_epc_issued_date"`
	MetadataDateBuilt        *time.Time `db:"item_metadata_date_built"`
	MetadataType             string     `db:"item_metadata_type"`
	ScrapeMetadataURL        string     `db:"scrape_metadata_url"`
	ScrapeMetadataTimestamp  time.Time  `db:"scrape_metadata_timestamp"`
}

// NewRow flattens a scraped item into its database representation.
// Absent optional fields become NULL columns.
func NewRow(item *models.RealEstate) Row {
	row := Row{
		LocationCountry:         item.Location.Country,
		LocationCity:            item.Location.City,
		LocationZipCode:         optionalString(item.Location.ZipCode),
		ListingType:             string(item.ListingType),
		Area:                    item.Area,
		EPCPDFURL:               optionalString(item.EPC.PDFURL),
		EPCIssuedDate:           item.EPC.IssuedAt,
		MetadataDateBuilt:       item.Metadata.DateBuilt,
		MetadataType:            item.Metadata.ObjectType,
		ScrapeMetadataURL:       item.Scrape.URL,
		ScrapeMetadataTimestamp: item.Scrape.Timestamp,
	}
	if item.Price != nil {
		row.PriceAmount = models.Float(item.Price.Amount)
		row.PriceUnit = optionalString(item.Price.Unit)
	}
	if demand := item.EPC.HeatingDemand; demand != nil {
		row.HeatingDemandClass = optionalString(demand.Class)
		row.HeatingDemandValue = demand.Value
	}
	if efficiency := item.EPC.EnergyEfficiency; efficiency != nil {
		row.EnergyEfficiencyClass = optionalString(efficiency.Class)
		row.EnergyEfficiencyValue = efficiency.Value
	}
	return row
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ListingRepository handles database operations for scraped listings.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository creates a listing repository.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// EnsureSchema creates the listing table and its indexes when missing.
func (r *ListingRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, listingSchema); err != nil {
		return fmt.Errorf("ensure %s schema: %w", ListingTable, err)
	}
	return nil
}

// InsertBatch persists a batch of items in one statement.
func (r *ListingRepository) InsertBatch(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := r.db.NamedExecContext(ctx, listingInsert, rows); err != nil {
		return fmt.Errorf("insert %d listings: %w", len(rows), err)
	}
	return nil
}

// ScrapedURLs returns every scrape URL already persisted, the seed for the
// duplicates pipeline stage.
func (r *ListingRepository) ScrapedURLs(ctx context.Context) ([]string, error) {
	var urls []string
	err := r.db.SelectContext(ctx, &urls,
		`SELECT scrape_metadata_url FROM real_estate_items`)
	if err != nil {
		return nil, fmt.Errorf("fetch scraped urls: %w", err)
	}
	return urls, nil
}

// Count returns the number of persisted listings.
func (r *ListingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM real_estate_items`)
	if err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return count, nil
}
