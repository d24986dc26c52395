package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/jarcoal/httpmock"

	"github.com/aronkovacs/real-estate-scrapers/config"
	"github.com/aronkovacs/real-estate-scrapers/models"
	"github.com/aronkovacs/real-estate-scrapers/pages"
	"github.com/aronkovacs/real-estate-scrapers/pipeline"
)

// exampleSite is a minimal site implementation crawled against httpmock.
type exampleSite struct{}

func (exampleSite) Domain() string { return "example.test" }

func (exampleSite) StartKind() pages.Kind { return pages.KindHome }

func (exampleSite) StartURLs() []string { return []string{"http://example.test/"} }

func (exampleSite) ListPageURLs(p *pages.Page) []string {
	var urls []string
	for _, href := range p.Attrs("a.list", "href") {
		urls = append(urls, p.AbsoluteURL(href))
	}
	return urls
}

func (exampleSite) PaginationURLs(*pages.Page) []string { return nil }

func (exampleSite) ListingURLs(p *pages.Page) []string {
	var urls []string
	for _, href := range p.Attrs("a.item", "href") {
		urls = append(urls, p.AbsoluteURL(href))
	}
	return urls
}

func (exampleSite) Listing(p *pages.Page) (*models.RealEstate, error) {
	city := p.Text("span.city")
	if city == "" {
		return nil, fmt.Errorf("no city on %s", p.URL)
	}
	return &models.RealEstate{
		Location: models.Location{
			Country: "AUT",
			City:    city,
		},
		ListingType: models.ListingSale,
		Metadata:    models.Metadata{ObjectType: "Haus"},
		Scrape: models.ScrapeMetadata{
			URL:       p.URL.String(),
			Timestamp: time.Now(),
		},
	}, nil
}

func init() {
	pages.Register(exampleSite{})
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Parallelism = 2
	cfg.MaxRetries = 0
	cfg.PipelineBufferSize = 64
	cfg.BatchSize = 4
	return cfg
}

type collectingWriter struct {
	mu    sync.Mutex
	items []*models.RealEstate
}

func (cw *collectingWriter) Write(items []*models.RealEstate) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.items = append(cw.items, items...)
	return nil
}

func (cw *collectingWriter) Close() error { return nil }

func (cw *collectingWriter) Validate() error { return nil }

func (cw *collectingWriter) Count() int {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return len(cw.items)
}

func (cw *collectingWriter) All() []*models.RealEstate {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	out := make([]*models.RealEstate, len(cw.items))
	copy(out, cw.items)
	return out
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func registerExampleSitePages(transport *httpmock.MockTransport) {
	home := `<html><body>
		<a class="list" href="/list-1">list 1</a>
		<a class="list" href="/list-2">list 2</a>
	</body></html>`
	transport.RegisterResponder("GET", "http://example.test/", htmlResponder(home))
	transport.RegisterResponder("GET", "http://example.test", htmlResponder(home))

	for list := 1; list <= 2; list++ {
		var body string
		for i := 1; i <= 3; i++ {
			body += fmt.Sprintf(`<a class="item" href="/item/%d-%d">item</a>`, list, i)
			detail := fmt.Sprintf(`<html><body><span class="city">City %d-%d</span></body></html>`, list, i)
			transport.RegisterResponder("GET",
				fmt.Sprintf("http://example.test/item/%d-%d", list, i),
				htmlResponder(detail))
		}
		transport.RegisterResponder("GET",
			fmt.Sprintf("http://example.test/list-%d", list),
			htmlResponder("<html><body>"+body+"</body></html>"))
	}
}

func exampleSites(t *testing.T) []pages.Site {
	t.Helper()
	site, ok := pages.Lookup("example.test")
	if !ok {
		t.Fatalf("example.test not registered")
	}
	return []pages.Site{site}
}

func TestScraperCrawlsSiteEndToEnd(t *testing.T) {
	cfg := testConfig()

	transport := httpmock.NewMockTransport()
	registerExampleSitePages(transport)

	s, err := NewScraper(cfg, exampleSites(t))
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.collector.WithTransport(transport)

	writer := &collectingWriter{}
	p := pipeline.NewPipeline(context.Background(), writer, cfg)
	p.Start(2)

	result, err := s.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close pipeline: %v", err)
	}

	if got := writer.Count(); got != 6 {
		t.Fatalf("items=%d, want 6 (requests=%d errors=%d failed=%v)",
			got, result.RequestCount, result.ErrorCount, result.FailedURLs)
	}
	if result.PageCount != 2 {
		t.Fatalf("list pages=%d, want 2", result.PageCount)
	}
	if result.TotalCount != 6 {
		t.Fatalf("total count=%d, want 6", result.TotalCount)
	}

	var sample *models.RealEstate
	for _, item := range writer.All() {
		if item.Scrape.URL == "http://example.test/item/1-2" {
			sample = item
			break
		}
	}
	if sample == nil {
		t.Fatalf("expected item for http://example.test/item/1-2")
	}
	if sample.Location.City != "City 1-2" {
		t.Fatalf("city = %q, want %q", sample.Location.City, "City 1-2")
	}
}

func TestScraperSeededDuplicatesAreDropped(t *testing.T) {
	cfg := testConfig()

	transport := httpmock.NewMockTransport()
	registerExampleSitePages(transport)

	s, err := NewScraper(cfg, exampleSites(t))
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.collector.WithTransport(transport)

	writer := &collectingWriter{}
	p := pipeline.NewPipeline(context.Background(), writer, cfg)
	p.Seed([]string{
		"http://example.test/item/1-1",
		"http://example.test/item/2-3",
	})
	p.Start(2)

	if _, err := s.Run(context.Background(), p); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close pipeline: %v", err)
	}

	if got := writer.Count(); got != 4 {
		t.Fatalf("items=%d, want 4 after seeding 2 urls", got)
	}
}

func TestScraperHTTPStatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: http.StatusTooManyRequests, expected: "rate_limited"},
		{status: http.StatusForbidden, expected: "forbidden"},
		{status: http.StatusNotFound, expected: "not_found"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			cfg := testConfig()
			cfg.Parallelism = 1
			cfg.BatchSize = 1

			transport := httpmock.NewMockTransport()
			responder := httpmock.NewStringResponder(tt.status, "")
			transport.RegisterResponder("GET", "http://example.test/", responder)
			transport.RegisterResponder("GET", "http://example.test", responder)

			s, err := NewScraper(cfg, exampleSites(t))
			if err != nil {
				t.Fatalf("new scraper: %v", err)
			}
			s.collector.WithTransport(transport)

			writer := &collectingWriter{}
			p := pipeline.NewPipeline(context.Background(), writer, cfg)
			p.Start(1)

			result, err := s.Run(context.Background(), p)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if err := p.Close(); err != nil {
				t.Fatalf("close pipeline: %v", err)
			}

			if got := result.ErrorsByType[tt.expected]; got == 0 {
				t.Fatalf("expected %q classification for status %d", tt.expected, tt.status)
			}
		})
	}
}

func TestNewScraperRequiresSites(t *testing.T) {
	if _, err := NewScraper(testConfig(), nil); err == nil {
		t.Fatalf("expected error without sites")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestErrorCategoryLabelsAndUnwrap(t *testing.T) {
	cause := errors.New("blocked by portal")

	tests := []struct {
		name  string
		err   error
		label string
	}{
		{name: "timeout", err: ErrTimeout{Err: cause}, label: "timeout"},
		{name: "connection", err: ErrConnection{Err: cause}, label: "connection"},
		{name: "forbidden", err: ErrForbidden{Err: cause}, label: "forbidden"},
		{name: "not found", err: ErrNotFound{Err: cause}, label: "not_found"},
		{name: "rate limited", err: ErrRateLimited{Err: cause}, label: "rate_limited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("fetch detail page: %w", tt.err)
			if got := errorTypeLabel(wrapped); got != tt.label {
				t.Fatalf("label = %q, want %q", got, tt.label)
			}
			if !errors.Is(wrapped, cause) {
				t.Fatalf("cause should survive unwrapping")
			}
		})
	}
}

func retryRequest(t *testing.T, rawURL string) *colly.Request {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return &colly.Request{URL: u, Ctx: colly.NewContext()}
}

func TestRetryManagerScheduleRespectsLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Hour
	cfg.RetryBackoffMax = time.Hour

	rm := newRetryManager(cfg, NewMetrics())
	req := retryRequest(t, "http://example.test/page")

	if !rm.Schedule(req) {
		t.Fatalf("first retry should be scheduled")
	}
	if !rm.Schedule(req) {
		t.Fatalf("second retry should be scheduled")
	}
	if rm.Schedule(req) {
		t.Fatalf("third retry should not be scheduled")
	}

	rm.Stop()
	if got := rm.TotalRetries(); got != 2 {
		t.Fatalf("total retries = %d, want 2", got)
	}
}

func TestRetryManagerDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxRetries = 0

	rm := newRetryManager(cfg, NewMetrics())
	if rm.Schedule(retryRequest(t, "http://example.test/page")) {
		t.Fatalf("retries disabled; nothing should be scheduled")
	}
}

func TestRetryManagerBackoffCapped(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RetryBackoff = 200 * time.Millisecond
	cfg.RetryBackoffMax = 500 * time.Millisecond

	rm := newRetryManager(cfg, NewMetrics())

	delay := rm.backoff(4)
	if delay > cfg.RetryBackoffMax {
		t.Fatalf("delay %v exceeds max %v", delay, cfg.RetryBackoffMax)
	}
}
