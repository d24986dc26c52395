package pages

import (
	"fmt"
	"strings"
	"time"

	"github.com/aronkovacs/real-estate-scrapers/models"
	"github.com/aronkovacs/real-estate-scrapers/parser"
)

func init() {
	Register(immoweltAt{})
}

const immoweltAtAddressSel = "#aUebersicht app-estate-address sd-cell-col:nth-of-type(2) span:nth-of-type(2) div:first-of-type"

// Result pages per place/object combination followed beyond the first page.
const immoweltAtPageDepth = 200

var immoweltAtPlaces = []string{
	"amstetten", "ansfelden", "bad-ischl", "bad-voeslau", "baden",
	"bischofshofen", "braunau-am-inn", "bregenz", "bruck-an-der-mur",
	"brunn-am-gebirge", "bludenz", "dornbirn", "eisenstadt", "enns",
	"feldkirch", "feldkirchen-in-kaernten", "gmunden", "goetzis", "graz",
	"hall-in-tirol", "hallein", "hard", "hohenems", "hollabrunn", "innsbruck",
	"klagenfurt", "klosterneuburg", "krems-an-der-donau", "kapfenberg",
	"kufstein", "korneuburg", "leoben", "leonding", "linz", "lienz",
	"lustenau", "moedling", "marchtrenk", "mistelbach", "neunkirchen",
	"perchtoldsdorf", "rankweil", "ried-im-innkreis", "salzburg",
	"saalfelden-am-steinernen-meer", "schwaz", "schwechat",
	"spittal-an-der-drau", "st-poelten", "st-veit-an-der-glan",
	"sankt-johann-im-pongau", "steyr", "stockerau", "telfs", "ternitz",
	"tulln-an-der-donau", "traun-oberoesterreich", "traiskirchen", "villach",
	"voecklabruck", "voelkermarkt", "waidhofen-an-der-ybbs",
	"wals-siezenheim", "wels", "wien", "wiener-neustadt", "wolfsberg",
	"woergl", "zwettl-niederoesterreich",
}

// immoweltAt scrapes https://www.immowelt.at/.
type immoweltAt struct{}

func (immoweltAt) Domain() string { return "immowelt.at" }

func (immoweltAt) StartKind() Kind { return KindList }

// StartURLs precomputes the result lists per place and object type,
// including pagination, so no home page needs to be visited.
func (immoweltAt) StartURLs() []string {
	var urls []string
	for _, place := range immoweltAtPlaces {
		for object := range immoweltTypeMap {
			base := fmt.Sprintf("https://www.immowelt.at/liste/%s/%s", place, object)
			urls = append(urls, base)
			for page := 2; page <= immoweltAtPageDepth; page++ {
				urls = append(urls, fmt.Sprintf("%s?cp=%d", base, page))
			}
		}
	}
	return urls
}

func (immoweltAt) ListPageURLs(*Page) []string { return nil }

func (immoweltAt) PaginationURLs(*Page) []string { return nil }

func (immoweltAt) ListingURLs(p *Page) []string {
	var urls []string
	for _, href := range p.Attrs("#listItemWrapperFixed div a[href^='/expose']", "href") {
		id := href[strings.LastIndex(href, "/")+1:]
		urls = append(urls, "https://www.immowelt.at/expose/"+id)
	}
	return urls
}

func (s immoweltAt) Listing(p *Page) (*models.RealEstate, error) {
	zip, city := immoweltAddress(p, immoweltAtAddressSel)
	listingType := immoweltListingType(p)

	item := &models.RealEstate{
		Location: models.Location{
			Country: "AUT",
			City:    city,
			ZipCode: zip,
		},
		ListingType: listingType,
		Area:        immoweltArea(p),
		Price:       immoweltPrice(p, immoweltPriceUnit(listingType)),
		EPC: models.EPCData{
			HeatingDemand:    s.energyData(p, "(HWB)"),
			EnergyEfficiency: s.energyData(p, "(fGEE)"),
		},
		Metadata: models.Metadata{
			DateBuilt:  immoweltYearBuilt(s.yearBuiltLabel(p)),
			ObjectType: immoweltObjectType(p),
		},
		Scrape: models.ScrapeMetadata{
			URL:       p.URL.String(),
			Timestamp: time.Now(),
		},
	}
	return item, nil
}

// energyData reads an energy certificate block headed by a h4 containing
// marker, e.g. "Heizwärmebedarf (HWB)".
func (immoweltAt) energyData(p *Page, marker string) *models.EnergyData {
	heading := p.FindContains("app-energy-certificate-at h4", marker).First()
	if heading.Length() == 0 {
		return nil
	}
	data := &models.EnergyData{
		Class: parser.NormalizeSpace(heading.NextAllFiltered("div").First().Find("span").Text()),
	}
	valueText := parser.NormalizeSpace(heading.NextAllFiltered("p").First().Text())
	if fields := strings.Fields(valueText); len(fields) > 0 {
		if value, err := parser.DecimalComma(fields[0]); err == nil {
			data.Value = models.Float(value)
		}
	}
	return data
}

func (immoweltAt) yearBuiltLabel(p *Page) string {
	label := p.FindByText("sd-cell-col p", "Baujahr").First()
	if label.Length() == 0 {
		return ""
	}
	return parser.NormalizeSpace(label.NextFiltered("p").Text())
}
