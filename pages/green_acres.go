package pages

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aronkovacs/real-estate-scrapers/models"
	"github.com/aronkovacs/real-estate-scrapers/parser"
)

func init() {
	Register(greenAcres{domain: "green-acres.gr", country: "GRC"})
	// green-acres.es serves the identical site structure.
	Register(greenAcres{domain: "green-acres.es", country: "ESP"})
}

var greenAcresTotalRe = regexp.MustCompile(`out of ([\d,]+) properties`)

const greenAcresPerPage = 24

// greenAcres scrapes the green-acres portals. The Greek and Spanish sites
// share one layout; only domain and country differ.
type greenAcres struct {
	domain  string
	country string
}

func (s greenAcres) Domain() string { return s.domain }

func (greenAcres) StartKind() Kind { return KindHome }

func (s greenAcres) StartURLs() []string {
	return []string{fmt.Sprintf("https://www.%s/en/properties", s.domain)}
}

func (s greenAcres) ListPageURLs(p *Page) []string {
	var urls []string
	for _, href := range p.Attrs("li:not([class]) a[href^='/property']", "href") {
		urls = append(urls, fmt.Sprintf("https://www.%s%s", s.domain, href))
	}
	return urls
}

func (s greenAcres) PaginationURLs(p *Page) []string {
	// Paginated pages report the same totals; do not paginate them again.
	if strings.Contains(p.URL.String(), "?p_n=") {
		return nil
	}
	// "1 - 24 out of 7,754 properties"
	match := greenAcresTotalRe.FindStringSubmatch(p.Text("p.pagination-info"))
	if match == nil {
		return nil
	}
	total, err := parser.DecimalGrouped(match[1])
	if err != nil {
		return nil
	}
	base := p.Attr("ul.pagination li.active a", "href")
	pages := int(total)/greenAcresPerPage + 1
	urls := make([]string, 0, pages)
	for page := 1; page <= pages; page++ {
		urls = append(urls, fmt.Sprintf("https://www.%s%s?p_n=%d", s.domain, base, page))
	}
	return urls
}

func (s greenAcres) ListingURLs(p *Page) []string {
	var urls []string
	for _, href := range p.Attrs("figure.item-main a", "href") {
		urls = append(urls, fmt.Sprintf("https://www.%s%s", s.domain, href))
	}
	return urls
}

func (s greenAcres) Listing(p *Page) (*models.RealEstate, error) {
	objectType := s.objectType(p)

	item := &models.RealEstate{
		Location: models.Location{
			Country: s.country,
			City:    p.Text("a.item-location p"),
		},
		// The portal lists sales only.
		ListingType: models.ListingSale,
		Area:        s.area(p, objectType),
		Price:       s.price(p),
		EPC: models.EPCData{
			HeatingDemand: s.heatingDemand(p),
		},
		Metadata: models.Metadata{
			DateBuilt:  s.dateBuilt(p),
			ObjectType: objectType,
		},
		Scrape: models.ScrapeMetadata{
			URL:       p.URL.String(),
			Timestamp: time.Now(),
		},
	}
	return item, nil
}

// objectType comes from the listing URL itself:
// /en/properties/apartment/athens/Ad2adhezqe41y31v.htm -> "apartment".
func (greenAcres) objectType(p *Page) string {
	segments := strings.Split(strings.Trim(p.URL.Path, "/"), "/")
	if len(segments) < 3 {
		return "unknown"
	}
	return segments[2]
}

func (greenAcres) area(p *Page, objectType string) *float64 {
	label := "Living area"
	if objectType == "land" {
		label = "Land"
	}
	name := p.FindByText("p.details-name", label).First()
	if name.Length() == 0 {
		return nil
	}
	// The value is a bare text node in the parent <li>, next to the name tag.
	raw := strings.ReplaceAll(OwnText(name.Parent()), ",", "")
	fields := strings.Fields(raw)
	if len(fields) == 0 || !parser.IsNumeric(fields[0]) {
		return nil
	}
	area, _ := parser.DecimalGrouped(fields[0])
	return &area
}

func (greenAcres) price(p *Page) *models.Price {
	// "45,000 €"
	raw := strings.TrimSpace(strings.ReplaceAll(p.Text("h2.title-standard span.price"), "€", ""))
	if raw == "" {
		return nil
	}
	amount, err := parser.DecimalGrouped(raw)
	if err != nil {
		return nil
	}
	return &models.Price{Amount: amount, Unit: "EUR"}
}

func (greenAcres) heatingDemand(p *Page) *models.EnergyData {
	label := p.FindByText("span.icons-text", "PEA").First()
	if label.Length() == 0 {
		return nil
	}
	class := OwnText(label.Parent())
	if class == "" || class == "N/C" {
		return nil
	}
	return &models.EnergyData{Class: class}
}

func (greenAcres) dateBuilt(p *Page) *time.Time {
	description := p.Text("#descriptionBlockAdvertPage div p.text")
	if description == "" {
		return nil
	}
	year, err := parser.ExtractYear(description)
	if err != nil {
		return nil
	}
	return models.Time(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
}
