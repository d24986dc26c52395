// Package scraper drives the crawl: it fetches pages for the registered
// sites, dispatches responses to their page objects, and streams extracted
// items into the pipeline.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aronkovacs/real-estate-scrapers/config"
	"github.com/aronkovacs/real-estate-scrapers/models"
	"github.com/aronkovacs/real-estate-scrapers/pages"
	"github.com/aronkovacs/real-estate-scrapers/pipeline"
)

// ctxKind is the request context key carrying the page kind, so the
// response handler knows which extraction to run.
const ctxKind = "kind"

// Scraper wraps the colly collector, the retry logic, and the site
// registry lookups for one crawl run.
type Scraper struct {
	cfg       *config.Config
	sites     []pages.Site
	collector *colly.Collector
	retry     *retryManager
	Metrics   *Metrics

	requestCount int64
	pageCount    int64
	errorCount   int64

	mu           sync.Mutex
	failedURLs   []string
	errorsByType map[string]int

	handlersOnce sync.Once
}

// NewScraper builds a scraper crawling the given sites.
func NewScraper(cfg *config.Config, sites []pages.Site) (*Scraper, error) {
	if len(sites) == 0 {
		return nil, fmt.Errorf("no sites to crawl")
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(pages.Domains(sites)...),
		colly.UserAgent(cfg.UserAgent),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	s := &Scraper{
		cfg:          cfg,
		sites:        sites,
		collector:    collector,
		errorsByType: make(map[string]int),
		Metrics:      NewMetrics(),
	}
	s.retry = newRetryManager(cfg, s.Metrics)
	return s, nil
}

// Run starts the crawl from every site's start URLs and streams items
// through the pipeline.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.CrawlResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.retry.SetContext(ctx)
	s.configureHandlers(ctx, p)

	start := time.Now()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			s.collector.Wait()
			s.retry.Stop()
		case <-done:
		}
	}()

	for _, site := range s.sites {
		kind := site.StartKind()
		for _, u := range site.StartURLs() {
			if err := s.visit(u, kind); err != nil && !errors.Is(err, colly.ErrAlreadyVisited) {
				slog.Warn("start url visit failed",
					slog.String("domain", site.Domain()),
					slog.String("url", u),
					slog.Any("error", err),
				)
			}
		}
	}

	s.collector.Wait()
	s.retry.Stop()

	result := &models.CrawlResult{
		StartTime:    start,
		EndTime:      time.Now(),
		ErrorCount:   int(atomic.LoadInt64(&s.errorCount)),
		FailedURLs:   s.snapshotFailedURLs(),
		ErrorsByType: s.snapshotErrors(),
		RetryCount:   s.retry.TotalRetries(),
		RequestCount: int(atomic.LoadInt64(&s.requestCount)),
		PageCount:    int(atomic.LoadInt64(&s.pageCount)),
	}

	if metrics := p.GetMetrics(); metrics != nil {
		if processed, ok := metrics["processed_listings"].(int64); ok {
			result.TotalCount = int(processed)
		}
	}

	return result, nil
}

// visit issues a request carrying the page kind in its context.
func (s *Scraper) visit(rawURL string, kind pages.Kind) error {
	ctx := colly.NewContext()
	ctx.Put(ctxKind, string(kind))
	return s.collector.Request(http.MethodGet, rawURL, nil, ctx, nil)
}

func (s *Scraper) follow(urls []string, kind pages.Kind) {
	for _, u := range urls {
		if err := s.visit(u, kind); err != nil && !errors.Is(err, colly.ErrAlreadyVisited) {
			slog.Debug("follow failed", slog.String("url", u), slog.Any("error", err))
		}
	}
}

func (s *Scraper) configureHandlers(ctx context.Context, p *pipeline.Pipeline) {
	s.handlersOnce.Do(func() {
		s.collector.OnRequest(func(r *colly.Request) {
			r.Ctx.Put("start", time.Now())
			current := atomic.AddInt64(&s.requestCount, 1)
			if s.Metrics != nil {
				s.Metrics.IncRequest("started")
			}
			if current%50 == 0 {
				slog.Debug("scraper request progress",
					slog.Int64("requests", current),
					slog.Int64("pages", atomic.LoadInt64(&s.pageCount)),
					slog.String("url", r.URL.String()),
				)
			}
		})

		s.collector.OnResponse(func(r *colly.Response) {
			if s.Metrics != nil {
				if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
					s.Metrics.ObserveDuration(time.Since(start))
				}
			}
			if r.StatusCode >= http.StatusBadRequest {
				slog.Error("non-200 response",
					slog.Int("status", r.StatusCode),
					slog.String("url", r.Request.URL.String()),
				)
				return
			}
			if ctx.Err() != nil {
				return
			}
			s.dispatch(r, p)
		})

		s.collector.OnError(func(r *colly.Response, err error) {
			if errors.Is(err, colly.ErrAlreadyVisited) {
				return
			}
			atomic.AddInt64(&s.errorCount, 1)
			statusCode := 0
			if r != nil {
				statusCode = r.StatusCode
			}
			classified := classifyError(err, statusCode)
			category := errorTypeLabel(classified)

			s.mu.Lock()
			s.errorsByType[category]++
			s.mu.Unlock()

			url := ""
			var request *colly.Request
			if r != nil && r.Request != nil {
				request = r.Request
				if r.Request.URL != nil {
					url = r.Request.URL.String()
				}
			}
			slog.Error("request error",
				slog.String("url", url),
				slog.String("category", category),
				slog.Any("error", err),
			)
			if s.Metrics != nil {
				s.Metrics.IncError(category)
			}

			if !s.retry.Schedule(request) {
				s.mu.Lock()
				s.failedURLs = append(s.failedURLs, url)
				s.mu.Unlock()
			}
		})
	})
}

// dispatch routes a response to the site registered for its host, based on
// the kind the request was issued with.
func (s *Scraper) dispatch(r *colly.Response, p *pipeline.Pipeline) {
	site, ok := pages.ForHost(r.Request.URL.Hostname())
	if !ok {
		slog.Warn("response from unregistered host", slog.String("url", r.Request.URL.String()))
		return
	}

	page, err := pages.NewPage(r.Request.URL.String(), r.Body)
	if err != nil {
		slog.Error("parse page",
			slog.String("url", r.Request.URL.String()),
			slog.Any("error", err),
		)
		return
	}

	switch pages.Kind(r.Request.Ctx.Get(ctxKind)) {
	case pages.KindHome:
		s.follow(site.ListPageURLs(page), pages.KindList)
	case pages.KindList:
		atomic.AddInt64(&s.pageCount, 1)
		s.follow(site.PaginationURLs(page), pages.KindList)
		s.follow(site.ListingURLs(page), pages.KindDetail)
	case pages.KindDetail:
		item, err := site.Listing(page)
		if err != nil {
			slog.Debug("listing extraction failed",
				slog.String("url", r.Request.URL.String()),
				slog.Any("error", err),
			)
			return
		}
		if s.Metrics != nil {
			s.Metrics.IncItems(site.Domain())
		}
		if err := p.Process(item); err != nil && err != pipeline.ErrPipelineClosed {
			slog.Error("pipeline process error", slog.Any("error", err))
		}
	default:
		slog.Warn("response without page kind", slog.String("url", r.Request.URL.String()))
	}
}

func (s *Scraper) snapshotFailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

// retryManager re-issues failed requests with exponential backoff. Retrying
// the original request keeps its context, so the page kind survives.
type retryManager struct {
	cfg     *config.Config
	metrics *Metrics
	ctx     context.Context

	mu           sync.Mutex
	attempts     map[string]int
	timers       map[string]*time.Timer
	totalRetries int
	stopped      bool
}

func newRetryManager(cfg *config.Config, metrics *Metrics) *retryManager {
	return &retryManager{
		cfg:      cfg,
		attempts: make(map[string]int),
		timers:   make(map[string]*time.Timer),
		metrics:  metrics,
		ctx:      context.Background(),
	}
}

// Schedule queues a retry for the request. It reports false when the
// request is out of attempts or the manager is stopped.
func (rm *retryManager) Schedule(req *colly.Request) bool {
	if rm.cfg.MaxRetries == 0 || req == nil || req.URL == nil {
		return false
	}
	url := req.URL.String()

	if rm.ctx != nil {
		select {
		case <-rm.ctx.Done():
			return false
		default:
		}
	}

	rm.mu.Lock()

	if rm.stopped {
		rm.mu.Unlock()
		return false
	}
	if rm.ctx != nil && rm.ctx.Err() != nil {
		rm.mu.Unlock()
		return false
	}

	attempt := rm.attempts[url]
	if attempt >= rm.cfg.MaxRetries {
		rm.mu.Unlock()
		return false
	}

	attempt++
	rm.attempts[url] = attempt
	rm.totalRetries++
	if rm.metrics != nil {
		rm.metrics.IncRetries()
	}

	delay := rm.backoff(attempt)
	rm.resetTimerLocked(url)
	rm.timers[url] = time.AfterFunc(delay, func() {
		rm.fireRetry(url, req)
	})
	rm.mu.Unlock()
	return true
}

func (rm *retryManager) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rm.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := rm.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func (rm *retryManager) resetTimerLocked(url string) {
	if timer, ok := rm.timers[url]; ok {
		timer.Stop()
		delete(rm.timers, url)
	}
}

func (rm *retryManager) fireRetry(url string, req *colly.Request) {
	rm.mu.Lock()
	if rm.stopped {
		rm.mu.Unlock()
		return
	}
	ctx := rm.ctx
	rm.mu.Unlock()

	if ctx != nil && ctx.Err() != nil {
		return
	}
	if err := req.Retry(); err != nil {
		slog.Debug("retry failed", slog.String("url", url), slog.Any("error", err))
	}

	rm.mu.Lock()
	delete(rm.timers, url)
	rm.mu.Unlock()
}

func (rm *retryManager) Stop() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.stopped {
		return
	}

	rm.stopped = true
	for url, timer := range rm.timers {
		timer.Stop()
		delete(rm.timers, url)
	}
}

func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}

func (rm *retryManager) SetContext(ctx context.Context) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if ctx == nil {
		rm.ctx = context.Background()
		return
	}
	rm.ctx = ctx
}
