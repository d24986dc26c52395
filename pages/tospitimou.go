package pages

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aronkovacs/real-estate-scrapers/models"
	"github.com/aronkovacs/real-estate-scrapers/parser"
)

func init() {
	Register(tospitimou{})
}

var tospitimouAddressRe = regexp.MustCompile(`.*, (.*) (\d+)`)

const tospitimouPerPage = 20

// tospitimou scrapes https://en.tospitimou.gr/.
type tospitimou struct{}

func (tospitimou) Domain() string { return "tospitimou.gr" }

func (tospitimou) StartKind() Kind { return KindHome }

func (tospitimou) StartURLs() []string {
	return []string{"https://en.tospitimou.gr/"}
}

// ListPageURLs pairs each category link with its advertised listing count
// and expands the pagination up front.
func (tospitimou) ListPageURLs(p *Page) []string {
	hrefs := p.Attrs("ul.listing li a", "href")
	counts := p.Texts("ul.listing li span")

	var urls []string
	for i, href := range hrefs {
		if i >= len(counts) {
			break
		}
		count, err := strconv.Atoi(counts[i])
		if err != nil {
			continue
		}
		pages := count/tospitimouPerPage + 1
		for page := 1; page <= pages; page++ {
			urls = append(urls, fmt.Sprintf("%s?page=%d", href, page))
		}
	}
	return urls
}

func (tospitimou) PaginationURLs(*Page) []string { return nil }

func (tospitimou) ListingURLs(p *Page) []string {
	var urls []string
	for _, raw := range p.Attrs("div[data-targeturl]", "data-targeturl") {
		urls = append(urls, strings.TrimSpace(strings.ReplaceAll(raw, "\n", "")))
	}
	return urls
}

func (s tospitimou) Listing(p *Page) (*models.RealEstate, error) {
	city, zip, err := s.address(p)
	if err != nil {
		return nil, err
	}
	listingType := models.ListingRent
	if strings.Contains(p.URL.String(), "sale") {
		listingType = models.ListingSale
	}

	item := &models.RealEstate{
		Location: models.Location{
			Country: "GRC",
			City:    city,
			ZipCode: zip,
		},
		ListingType: listingType,
		Area:        s.area(p),
		Price:       s.price(p, listingType),
		EPC: models.EPCData{
			EnergyEfficiency: s.energyEfficiency(p),
		},
		Metadata: models.Metadata{
			DateBuilt:  s.dateBuilt(p),
			ObjectType: s.objectType(p),
		},
		Scrape: models.ScrapeMetadata{
			URL:       p.URL.String(),
			Timestamp: time.Now(),
		},
	}
	return item, nil
}

// address splits the overview table's address line, e.g.
// "Derignu 58, Athina 10434".
func (tospitimou) address(p *Page) (city, zip string, err error) {
	label := p.FindByText("th", "Address").First()
	if label.Length() == 0 {
		return "", "", fmt.Errorf("tospitimou: no address row on %s", p.URL)
	}
	line := parser.NormalizeSpace(label.Next().Text())
	match := tospitimouAddressRe.FindStringSubmatch(line)
	if match == nil {
		return "", "", fmt.Errorf("tospitimou: unparseable address %q on %s", line, p.URL)
	}
	return match[1], match[2], nil
}

func (tospitimou) area(p *Page) *float64 {
	// "1,420 m²"
	raw := p.Text("div[data-original-title='Living Area in sq.m.'] span")
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	area, err := parser.DecimalGrouped(fields[0])
	if err != nil {
		return nil
	}
	return &area
}

func (tospitimou) price(p *Page, listingType models.ListingType) *models.Price {
	// "1,200,000"
	raw := p.Text("div[data-original-title='Price'] span")
	if raw == "" {
		return nil
	}
	amount, err := parser.DecimalGrouped(raw)
	if err != nil {
		return nil
	}
	unit := "EUR"
	if listingType == models.ListingRent {
		unit = "EUR/MONTH"
	}
	return &models.Price{Amount: amount, Unit: unit}
}

func (tospitimou) energyEfficiency(p *Page) *models.EnergyData {
	class := p.Text("div.energy-container div")
	if class == "" {
		return nil
	}
	// The site reports the value as a percentage; only the class is kept.
	return &models.EnergyData{Class: class}
}

func (tospitimou) dateBuilt(p *Page) *time.Time {
	label := p.FindByText("th", "Construction year").First()
	if label.Length() == 0 {
		return nil
	}
	year, err := strconv.Atoi(parser.NormalizeSpace(label.Next().Text()))
	if err != nil {
		return nil
	}
	return models.Time(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
}

func (tospitimou) objectType(p *Page) string {
	if objectType := p.Text("div[data-original-title='Residential'] span"); objectType != "" {
		return objectType
	}
	return "unknown"
}
