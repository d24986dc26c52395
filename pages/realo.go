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
	Register(realo{
		domain:  "realo.be",
		country: "BEL",
		zipRe:   regexp.MustCompile(`\d{4}`),
		starts:  []string{"https://www.realo.be/en/cities?search=1"},
	})

	// realo.es shares the realo.be layout; its city index is paginated.
	esStarts := make([]string, 0, realoEsCityPages)
	for page := 1; page <= realoEsCityPages; page++ {
		esStarts = append(esStarts, fmt.Sprintf("https://www.realo.es/en/cities?page=%d", page))
	}
	Register(realo{
		domain:  "realo.es",
		country: "ESP",
		zipRe:   regexp.MustCompile(`\d{5}`),
		starts:  esStarts,
	})
}

const (
	realoPerPage     = 48
	realoEsCityPages = 41
)

// realo scrapes the realo portals (realo.be, realo.es).
type realo struct {
	domain  string
	country string
	zipRe   *regexp.Regexp
	starts  []string
}

func (s realo) Domain() string { return s.domain }

func (realo) StartKind() Kind { return KindHome }

func (s realo) StartURLs() []string { return s.starts }

func (s realo) ListPageURLs(p *Page) []string {
	var urls []string
	for _, href := range p.Attrs("li.cities-list--item a", "href") {
		urls = append(urls, fmt.Sprintf("https://www.%s%s", s.domain, href))
	}
	return urls
}

func (s realo) PaginationURLs(p *Page) []string {
	if strings.Contains(p.URL.String(), "?page=") {
		return nil
	}
	// "2.039 results"
	fields := strings.Fields(p.Text("div[data-id='totalResultsContainer']"))
	if len(fields) == 0 {
		return nil
	}
	total, err := strconv.Atoi(strings.ReplaceAll(fields[0], ".", ""))
	if err != nil {
		return nil
	}
	pages := total/realoPerPage + 1
	urls := make([]string, 0, pages)
	for page := 1; page <= pages; page++ {
		urls = append(urls, fmt.Sprintf("%s?page=%d", p.URL, page))
	}
	return urls
}

func (s realo) ListingURLs(p *Page) []string {
	var urls []string
	for _, href := range p.Attrs("li[data-id='componentEstateListGridItem'] div", "data-href") {
		urls = append(urls, fmt.Sprintf("https://www.%s%s", s.domain, href))
	}
	return urls
}

func (s realo) Listing(p *Page) (*models.RealEstate, error) {
	city := parser.NormalizeSpace(p.FindContains("a", "Back to results for").Find("em").Text())
	if city == "" {
		return nil, fmt.Errorf("realo: no city on %s", p.URL)
	}
	zip, err := s.zipCode(p)
	if err != nil {
		return nil, err
	}
	listingType, err := s.listingType(p)
	if err != nil {
		return nil, err
	}

	item := &models.RealEstate{
		Location: models.Location{
			Country: s.country,
			City:    city,
			ZipCode: zip,
		},
		ListingType: listingType,
		Area:        s.area(p),
		Price:       s.price(p, listingType),
		EPC: models.EPCData{
			EnergyEfficiency: s.energyEfficiency(p),
			PDFURL:           featureValue(p, "EPC certificate number"),
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

// zipCode prefers the URL ('/en/7090-braine-le-comte/5207953') and falls
// back to the address heading.
func (s realo) zipCode(p *Page) (string, error) {
	segments := strings.Split(strings.TrimPrefix(p.URL.Path, "/en/"), "/")
	if zip := s.zipRe.FindString(segments[0]); zip != "" {
		return zip, nil
	}
	// "Stationsstraat 16, 9420 Burst, Erpe-Mere burst"
	address := p.Text("h1.address")
	if zip := s.zipRe.FindString(address); zip != "" {
		return zip, nil
	}
	return "", fmt.Errorf("realo: no zip code in %q on %s", address, p.URL)
}

func (realo) listingType(p *Page) (models.ListingType, error) {
	typeText := p.Text("div.type strong")
	if typeText == "" {
		return "", fmt.Errorf("realo: no listing type on %s", p.URL)
	}
	if strings.Contains(strings.ToLower(typeText), "sale") {
		return models.ListingSale, nil
	}
	return models.ListingRent, nil
}

func (realo) area(p *Page) *float64 {
	// "246m²"
	raw := featureValue(p, "Habitable area")
	if raw == "" {
		return nil
	}
	raw = strings.ReplaceAll(strings.ReplaceAll(raw, "m²", ""), "m", "")
	area, err := parser.DecimalGrouped(raw)
	if err != nil {
		return nil
	}
	return &area
}

func (realo) price(p *Page, listingType models.ListingType) *models.Price {
	raw := p.Text("span[itemprop='price']")
	if raw == "" {
		return nil
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	unit := "EUR"
	if listingType == models.ListingRent {
		unit = "EUR/MONTH"
	}
	return &models.Price{Amount: amount, Unit: unit}
}

func (realo) energyEfficiency(p *Page) *models.EnergyData {
	if class := featureValue(p, "Energy classification"); class != "" {
		return &models.EnergyData{Class: class[:1]}
	}
	// Fallback: the PEB badge image encodes the class in its file name,
	// 'realocdn.com/assets/.../img/peb/g.png' -> 'G'.
	src := p.Attr("div.component-property-features img.peb-image", "src")
	if len(src) < 5 {
		return nil
	}
	data := &models.EnergyData{Class: strings.ToUpper(src[len(src)-5 : len(src)-4])}
	// "999kwh/m²"
	if raw := featureValue(p, "CPEB"); raw != "" {
		raw = strings.ReplaceAll(strings.ReplaceAll(raw, "kwh/m²", ""), "kwh/m", "")
		if value, err := parser.DecimalGrouped(raw); err == nil {
			data.Value = models.Float(value)
		}
	}
	return data
}

func (realo) dateBuilt(p *Page) *time.Time {
	raw := featureValue(p, "Year built")
	if raw == "" {
		return nil
	}
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return models.Time(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
}

func (realo) objectType(p *Page) string {
	if objectType := featureValue(p, "Property type"); objectType != "" {
		return objectType
	}
	return "Unknown"
}

// featureValue reads the value cell next to a named cell in the property
// features table.
func featureValue(p *Page, name string) string {
	cell := p.FindByText("td.name", name).First()
	if cell.Length() == 0 {
		return ""
	}
	return parser.NormalizeSpace(cell.Next().Text())
}
