package pages

import (
	"fmt"
	"strings"
	"time"

	"github.com/aronkovacs/real-estate-scrapers/models"
	"github.com/aronkovacs/real-estate-scrapers/parser"
)

func init() {
	Register(immoweltDe{})
}

const (
	immoweltDeAddressSel   = "span[data-cy='address-city'] div:first-of-type"
	immoweltDeEnergySel    = "app-energy-certificate div[class*='energy_information']"
	immoweltDePageDepth    = 200
	immoweltDeDateLayout   = "02.01.2006"
	immoweltDeConsumption  = "sd-cell-col[data-cy='energy-consumption'] p:nth-of-type(2)"
	immoweltDeEnergyClass  = "sd-cell-col[data-cy='energy-class'] p:nth-of-type(2)"
	immoweltDeValidity     = "sd-cell-col[data-cy='energy-validity'] p:nth-of-type(2)"
	immoweltDeModernizedAt = "sd-cell-col[data-cy='energy-yearofmodernization'] p:nth-of-type(2)"
)

var immoweltDePlaces = []string{
	"berlin", "bielefeld", "bochum", "bonn", "bremen", "dortmund", "dresden",
	"duisburg", "duesseldorf", "essen", "frankfurt-am-main", "hamburg",
	"hannover", "koeln", "leipzig", "mannheim", "muenchen", "nuernberg",
	"stuttgart", "wuppertal", "aachen", "augsburg", "bergisch-gladbach",
	"bocholt", "bottrop", "braunschweig", "bremerhaven", "chemnitz-sachs",
	"cottbus", "darmstadt", "dessau", "dueren-rheinl", "erfurt", "erlangen",
	"esslingen", "flensburg", "freiburg-im-breisgau", "fuerth",
	"gelsenkirchen", "gera", "giessen-lahn", "goettingen-niedersachs",
	"guetersloh", "hagen", "halle-saale", "hamm", "hanau", "heidelberg",
	"heilbronn", "herne", "hildesheim", "ingolstadt", "iserlohn", "jena",
	"kaiserslautern", "karlsruhe", "kassel", "kiel", "krefeld", "koblenz",
	"konstanz", "landshut", "leverkusen", "ludwigsburg-wuertt",
	"ludwigshafen-am-rhein", "luebeck-hansestadt", "luenen", "magdeburg",
	"mainz", "marburg", "marl-westf", "minden-westf", "moers",
	"muelheim-an-der-ruhr", "moenchengladbach", "muenster", "neuss",
	"oberhausen", "offenbach-am-main", "oldenburg-oldenburg", "osnabrueck",
	"paderborn", "pforzheim", "potsdam", "ratingen", "recklinghausen-westf",
	"regensburg", "remscheid", "reutlingen", "rosenheim", "rostock",
	"saarbruecken", "salzgitter", "schwerin", "siegen", "solingen",
	"straubing", "trier", "tuebingen", "ulm", "velbert",
	"villingen-schwenningen", "weimar-thuer", "wiesbaden", "wilhelmshaven",
	"witten", "wolfsburg", "worms", "wuerzburg", "zwickau",
}

// immoweltDe scrapes https://www.immowelt.de/.
type immoweltDe struct{}

func (immoweltDe) Domain() string { return "immowelt.de" }

func (immoweltDe) StartKind() Kind { return KindList }

func (immoweltDe) StartURLs() []string {
	var urls []string
	for _, place := range immoweltDePlaces {
		for object := range immoweltTypeMap {
			base := fmt.Sprintf("https://www.immowelt.de/liste/%s/%s", place, object)
			urls = append(urls, base)
			for page := 2; page <= immoweltDePageDepth; page++ {
				urls = append(urls, fmt.Sprintf("%s?sp=%d", base, page))
			}
		}
	}
	return urls
}

func (immoweltDe) ListPageURLs(*Page) []string { return nil }

func (immoweltDe) PaginationURLs(*Page) []string { return nil }

func (immoweltDe) ListingURLs(p *Page) []string {
	return p.Attrs("a[href^='https://www.immowelt.de/expose']", "href")
}

func (s immoweltDe) Listing(p *Page) (*models.RealEstate, error) {
	zip, city := immoweltAddress(p, immoweltDeAddressSel)
	listingType := immoweltListingType(p)

	item := &models.RealEstate{
		Location: models.Location{
			Country: "DEU",
			City:    city,
			ZipCode: zip,
		},
		ListingType: listingType,
		Area:        immoweltArea(p),
		Price:       immoweltPrice(p, immoweltPriceUnit(listingType)),
		EPC: models.EPCData{
			HeatingDemand: s.heatingDemand(p),
			IssuedAt:      s.epcIssuedAt(p),
		},
		Metadata: models.Metadata{
			DateBuilt:  s.dateBuilt(p),
			ObjectType: immoweltObjectType(p),
		},
		Scrape: models.ScrapeMetadata{
			URL:       p.URL.String(),
			Timestamp: time.Now(),
		},
	}
	return item, nil
}

// heatingDemand reads the consumption line of the energy certificate block,
// e.g. "71,30 kWh/(m²·a) - Warmwasser enthalten".
func (immoweltDe) heatingDemand(p *Page) *models.EnergyData {
	block := p.Doc().Find(immoweltDeEnergySel).First()
	if block.Length() == 0 {
		return nil
	}
	text := parser.NormalizeSpace(block.Find(immoweltDeConsumption).Text())
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	value, err := parser.DecimalComma(fields[0])
	if err != nil {
		return nil
	}
	return &models.EnergyData{
		Class: parser.NormalizeSpace(block.Find(immoweltDeEnergyClass).Text()),
		Value: models.Float(value),
	}
}

// epcIssuedAt parses the certificate validity line. Supported forms:
// "seit 28.10.2021", "01.08.2018 bis 31.07.2028". A bare "bis <date>"
// carries no issue date.
func (immoweltDe) epcIssuedAt(p *Page) *time.Time {
	block := p.Doc().Find(immoweltDeEnergySel).First()
	if block.Length() == 0 {
		return nil
	}
	text := parser.NormalizeSpace(block.Find(immoweltDeValidity).Text())
	if text == "" || strings.HasPrefix(text, "bis") {
		return nil
	}
	fields := strings.Fields(text)
	raw := fields[0]
	if strings.HasPrefix(text, "seit") && len(fields) > 1 {
		raw = fields[1]
	}
	issued, err := time.Parse(immoweltDeDateLayout, raw)
	if err != nil {
		return nil
	}
	return &issued
}

func (immoweltDe) dateBuilt(p *Page) *time.Time {
	block := p.Doc().Find(immoweltDeEnergySel).First()
	if block.Length() == 0 {
		return nil
	}
	return immoweltYearBuilt(parser.NormalizeSpace(block.Find(immoweltDeModernizedAt).Text()))
}
