package pages

import (
	"strings"
	"time"

	"github.com/aronkovacs/real-estate-scrapers/models"
	"github.com/aronkovacs/real-estate-scrapers/parser"
)

// Extraction logic shared by the immowelt portals. immowelt.at and
// immowelt.de serve the same application shell and differ only in place
// lists, pagination parameters and a few detail selectors.

var immoweltTypeMap = map[string]string{
	"haeuser":         "Haus",
	"wohnungen":       "Wohnung",
	"wohnen-auf-zeit": "Wohnung",
}

const (
	immoweltPriceSel        = "#aUebersicht app-hardfacts div div div:nth-of-type(1) div:nth-of-type(1) strong"
	immoweltPriceCaptionSel = "#aUebersicht app-hardfacts div div div:nth-of-type(1) div:nth-of-type(2)"
	immoweltAreaSel         = "#aUebersicht app-hardfacts div div div:nth-of-type(2) div:nth-of-type(1) span"
	immoweltBreadcrumbSel   = "app-breadcrumb nav ol li:nth-of-type(2) a"
)

func immoweltListingType(p *Page) models.ListingType {
	caption := strings.ToLower(p.Text(immoweltPriceCaptionSel))
	if strings.Contains(caption, "miet") {
		return models.ListingRent
	}
	return models.ListingSale
}

func immoweltPriceUnit(listingType models.ListingType) string {
	if listingType == models.ListingRent {
		return "EUR/MONTH"
	}
	return "EUR"
}

// immoweltPrice reads the hardfacts price label, e.g. "€ 7.117,12" on the
// Austrian portal or "548.000 €" on the German one.
func immoweltPrice(p *Page, unit string) *models.Price {
	label := strings.Trim(p.Text(immoweltPriceSel), "€ ")
	if label == "" {
		return nil
	}
	amount, err := parser.DecimalComma(label)
	if err != nil {
		return nil
	}
	return &models.Price{Amount: amount, Unit: unit}
}

// immoweltArea reads the hardfacts area label, e.g. "1.000,50 m²".
func immoweltArea(p *Page) *float64 {
	label := p.Text(immoweltAreaSel)
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return nil
	}
	area, err := parser.DecimalComma(fields[0])
	if err != nil {
		return nil
	}
	return &area
}

// immoweltAddress splits an address line such as "4400 St. Pölten" into
// zip code and city.
func immoweltAddress(p *Page, selector string) (zip, city string) {
	fields := strings.Fields(p.Text(selector))
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// immoweltObjectType maps the second breadcrumb segment ("haeuser",
// "wohnungen", ...) onto the property type.
func immoweltObjectType(p *Page) string {
	href := p.Attr(immoweltBreadcrumbSel, "href")
	if href == "" {
		return "unknown"
	}
	slug := href[strings.LastIndex(href, "/")+1:]
	if objectType, ok := immoweltTypeMap[slug]; ok {
		return objectType
	}
	return "unknown"
}

// immoweltYearBuilt parses a construction year label such as "Ca. 1900".
func immoweltYearBuilt(raw string) *time.Time {
	if !parser.ContainsNumber(raw) {
		return nil
	}
	year, err := parser.ExtractYear(raw)
	if err != nil {
		return nil
	}
	return models.Time(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))
}
