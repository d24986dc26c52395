package pages

import (
	"sort"
	"strings"
	"sync"

	"github.com/aronkovacs/real-estate-scrapers/models"
)

// Site is the page-object contract one supported website implements.
// A site declares its entry points and knows how to read its own pages;
// it never fetches anything itself.
type Site interface {
	// Domain is the registered domain the site's pages live under,
	// without a www prefix.
	Domain() string
	// StartURLs are the crawl entry points for this site.
	StartURLs() []string
	// StartKind is the kind of page the start URLs point at. Sites that
	// precompute their list URLs start at KindList, the rest at KindHome.
	StartKind() Kind

	// ListPageURLs extracts list page URLs from a home page.
	ListPageURLs(p *Page) []string
	// PaginationURLs extracts further list page URLs from a list page.
	PaginationURLs(p *Page) []string
	// ListingURLs extracts listing detail URLs from a list page.
	ListingURLs(p *Page) []string
	// Listing extracts one RealEstate item from a detail page.
	Listing(p *Page) (*models.RealEstate, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Site{}
)

// Register makes a site available to the crawler. Each site file registers
// itself from init, so supporting a new website means adding one file.
func Register(s Site) {
	registryMu.Lock()
	defer registryMu.Unlock()
	domain := s.Domain()
	if domain == "" {
		panic("pages: Register with empty domain")
	}
	if _, dup := registry[domain]; dup {
		panic("pages: Register called twice for " + domain)
	}
	registry[domain] = s
}

// All returns every registered site, ordered by domain.
func All() []Site {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Site, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain() < out[j].Domain() })
	return out
}

// Lookup returns the site registered for exactly domain.
func Lookup(domain string) (Site, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[domain]
	return s, ok
}

// ForHost resolves a request host such as "www.immowelt.at" or
// "en.tospitimou.gr" to its registered site.
func ForHost(host string) (Site, bool) {
	host = strings.ToLower(host)
	registryMu.RLock()
	defer registryMu.RUnlock()
	for domain, s := range registry {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return s, true
		}
	}
	return nil, false
}

// Domains returns the registered domains plus their www/en variants, for
// collector domain allow-lists.
func Domains(sites []Site) []string {
	var out []string
	for _, s := range sites {
		d := s.Domain()
		out = append(out, d, "www."+d, "en."+d)
	}
	return out
}
