package pages

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aronkovacs/real-estate-scrapers/models"
	"github.com/aronkovacs/real-estate-scrapers/parser"
)

func init() {
	Register(&habita{records: map[int]habitaRecord{}})
}

// habita.com exposes its search through a JSON API; the list pages of this
// site are API responses rather than HTML.

var (
	habitaIDRe     = regexp.MustCompile(`\d{6}`)
	habitaZipRe    = regexp.MustCompile(`\d+`)
	habitaEnergyRe = regexp.MustCompile(`([A-G]), (\d{4})`)
)

// Site codes used by the property search API.
var habitaCountryCodes = []int{1, 3, 15, 9} // Finland, Spain, Greece, Germany

var habitaCountryISO = map[string]string{
	"Finland": "FIN",
	"Spain":   "ESP",
	"Greece":  "GRC",
	"Germany": "DEU",
}

const habitaPerPage = 100

// habitaRecord is one property in an API response.
type habitaRecord struct {
	ID       int     `json:"id"`
	Area     string  `json:"area"`
	Area3    string  `json:"area3"`
	District string  `json:"district"`
	Country  string  `json:"country"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Type     string  `json:"type"`
}

// habitaResponse is the property search API envelope.
type habitaResponse struct {
	Results    []habitaRecord `json:"results"`
	NumResults int            `json:"numResults"`
	TotalPages int            `json:"totalPages"`
}

func habitaAPIURL(page, perPage int, queryType string) string {
	codes := make([]string, len(habitaCountryCodes))
	for i, code := range habitaCountryCodes {
		codes[i] = strconv.Itoa(code)
	}
	return fmt.Sprintf(
		"https://www.habita.com/propertysearch/results/en/%d/%d/full?countries=%s&sort=newest&type=%s",
		page, perPage, strings.Join(codes, ","), queryType,
	)
}

// habita scrapes https://www.habita.com/. API record data seen on list
// pages is kept so detail pages can combine it with the HTML tables.
type habita struct {
	mu      sync.Mutex
	records map[int]habitaRecord
}

func (*habita) Domain() string { return "habita.com" }

func (*habita) StartKind() Kind { return KindHome }

func (*habita) StartURLs() []string {
	return []string{"https://www.habita.com/"}
}

func (*habita) ListPageURLs(*Page) []string {
	// One probe request per listing query type; pagination fans out from
	// the reported result counts.
	return []string{
		habitaAPIURL(1, 1, "ResidenceSale"),
		habitaAPIURL(1, 1, "ResidenceRent"),
	}
}

func (*habita) PaginationURLs(p *Page) []string {
	var response habitaResponse
	if err := p.JSON(&response); err != nil {
		return nil
	}
	queryType := p.URL.Query().Get("type")
	if queryType == "" {
		return nil
	}
	pages := response.NumResults/habitaPerPage + 1
	urls := make([]string, 0, pages)
	for page := 1; page <= pages; page++ {
		urls = append(urls, habitaAPIURL(page, habitaPerPage, queryType))
	}
	return urls
}

func (s *habita) ListingURLs(p *Page) []string {
	var response habitaResponse
	if err := p.JSON(&response); err != nil {
		return nil
	}
	s.mu.Lock()
	for _, record := range response.Results {
		s.records[record.ID] = record
	}
	s.mu.Unlock()

	urls := make([]string, 0, len(response.Results))
	for _, record := range response.Results {
		urls = append(urls, fmt.Sprintf("https://www.habita.com/property/en/%d", record.ID))
	}
	return urls
}

func (s *habita) Listing(p *Page) (*models.RealEstate, error) {
	record, err := s.record(p)
	if err != nil {
		return nil, err
	}
	listingType := models.ListingSale
	if strings.Contains(p.URL.String(), "rent") {
		listingType = models.ListingRent
	}

	item := &models.RealEstate{
		Location: models.Location{
			Country: habitaCountryISO[record.Country],
			City:    record.Area3,
			ZipCode: s.zipCode(p),
		},
		ListingType: listingType,
		Area:        s.area(record),
		Price:       s.price(record, listingType),
		EPC: models.EPCData{
			EnergyEfficiency: s.energyEfficiency(p),
			IssuedAt:         s.epcIssuedAt(p),
		},
		Metadata: models.Metadata{
			DateBuilt:  s.dateBuilt(p),
			ObjectType: record.Type,
		},
		Scrape: models.ScrapeMetadata{
			URL:       p.URL.String(),
			Timestamp: time.Now(),
		},
	}
	return item, nil
}

func (s *habita) record(p *Page) (habitaRecord, error) {
	match := habitaIDRe.FindString(p.URL.String())
	if match == "" {
		return habitaRecord{}, fmt.Errorf("habita: no property id in %s", p.URL)
	}
	id, _ := strconv.Atoi(match)
	s.mu.Lock()
	record, ok := s.records[id]
	s.mu.Unlock()
	if !ok {
		return habitaRecord{}, fmt.Errorf("habita: no API record for property %d", id)
	}
	return record, nil
}

// generalEntry reads a row from the general information table.
func (*habita) generalEntry(p *Page, name string) string {
	row := p.FindByText("#general-information th", name).First()
	if row.Length() == 0 {
		return ""
	}
	return parser.NormalizeSpace(row.Next().Text())
}

// detailEntry reads a row from the details table.
func (*habita) detailEntry(p *Page, name string) string {
	row := p.FindByText("table.details th", name).First()
	if row.Length() == 0 {
		return ""
	}
	return parser.NormalizeSpace(row.Next().Text())
}

func (s *habita) zipCode(p *Page) string {
	// "45700 Kuusankoski"
	return habitaZipRe.FindString(s.generalEntry(p, "Location"))
}

func (*habita) area(record habitaRecord) *float64 {
	// "125 m²"
	fields := strings.Fields(record.Area)
	if len(fields) == 0 {
		return nil
	}
	area, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil
	}
	return &area
}

func (*habita) price(record habitaRecord, listingType models.ListingType) *models.Price {
	if record.Price == 0 {
		return nil
	}
	unit := "EUR"
	if listingType == models.ListingRent {
		unit = "EUR/MONTH"
	}
	return &models.Price{Amount: record.Price, Unit: unit}
}

// energyEfficiency parses the certificate cell, e.g. "D, 2013".
func (s *habita) energyEfficiency(p *Page) *models.EnergyData {
	match := habitaEnergyRe.FindStringSubmatch(s.detailEntry(p, "Energy certificate class"))
	if match == nil {
		return nil
	}
	return &models.EnergyData{Class: match[1]}
}

func (s *habita) epcIssuedAt(p *Page) *time.Time {
	match := habitaEnergyRe.FindStringSubmatch(s.detailEntry(p, "Energy certificate class"))
	if match == nil {
		return nil
	}
	year, _ := strconv.Atoi(match[2])
	return models.Time(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
}

func (s *habita) dateBuilt(p *Page) *time.Time {
	raw := s.detailEntry(p, "Construction year")
	year, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return models.Time(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
}
