// Package pipeline post-processes scraped items: duplicate filtering,
// validation, and batched writing to the configured outputs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aronkovacs/real-estate-scrapers/config"
	"github.com/aronkovacs/real-estate-scrapers/models"
	"github.com/aronkovacs/real-estate-scrapers/parser"
)

// ErrPipelineClosed is returned when Process is called after shutdown.
var ErrPipelineClosed = errors.New("pipeline: closed")

// seenCacheSize bounds the duplicate-detection cache. Large enough to hold
// the URL set of a full crawl plus the seed from previous runs.
const seenCacheSize = 1 << 20

// ItemWriter defines the interface for item output.
type ItemWriter interface {
	Write(items []*models.RealEstate) error
	Close() error
	Validate() error
}

// Pipeline coordinates de-duplication, validation, and output writing.
type Pipeline struct {
	ctx       context.Context
	writer    ItemWriter
	itemCh    chan *models.RealEstate
	batchSize int

	wg sync.WaitGroup

	seen *lru.Cache[string, struct{}]

	metrics metrics

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline writing through writer.
func NewPipeline(ctx context.Context, writer ItemWriter, cfg *config.Config) *Pipeline {
	if ctx == nil {
		ctx = context.Background()
	}
	seen, _ := lru.New[string, struct{}](seenCacheSize)
	return &Pipeline{
		ctx:       ctx,
		writer:    writer,
		itemCh:    make(chan *models.RealEstate, cfg.PipelineBufferSize),
		batchSize: cfg.BatchSize,
		seen:      seen,
		metrics:   newMetrics(),
		shutdown:  make(chan struct{}),
	}
}

// Seed marks URLs persisted by earlier runs, so the crawl never re-inserts
// an item it already stored.
func (p *Pipeline) Seed(urls []string) {
	for _, url := range urls {
		p.seen.Add(url, struct{}{})
	}
	slog.Debug("pipeline seeded with previously scraped urls", slog.Int("count", len(urls)))
}

// Start launches worker goroutines.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues one item for downstream processing.
func (p *Pipeline) Process(item *models.RealEstate) error {
	if item == nil {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	return p.enqueue(item)
}

// Close waits for workers to finish and prevents more submissions.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
	}
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.itemCh)
	})

	p.wg.Wait()
	return p.Err()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				snapshot := p.GetMetrics()
				processed := snapshot["processed_listings"].(int64)
				dropped := snapshot["dropped"].(map[string]int)
				slog.Info("pipeline progress",
					slog.Int64("processed", processed),
					slog.Any("dropped", dropped),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]*models.RealEstate, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for item := range p.itemCh {
		prepared := p.prepare(item)
		if prepared == nil {
			continue
		}
		batch = append(batch, prepared)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

// prepare runs the item pipeline stages: duplicates first (matching the
// original stage order), then validation. The duplicate check marks the URL
// in the same step, so two workers handling the same URL cannot both pass.
func (p *Pipeline) prepare(item *models.RealEstate) *models.RealEstate {
	if dup, _ := p.seen.ContainsOrAdd(item.Scrape.URL, struct{}{}); dup {
		p.metrics.addDropped("duplicate_url")
		slog.Debug("dropping already scraped listing", slog.String("url", item.Scrape.URL))
		return nil
	}

	if err := parser.ValidateListing(item); err != nil {
		p.metrics.addDropped("invalid_record")
		slog.Debug("dropping invalid listing", slog.Any("error", err))
		return nil
	}

	p.metrics.incrementProcessed()
	return item
}

func (p *Pipeline) enqueue(item *models.RealEstate) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case <-p.ctx.Done():
		return ErrPipelineClosed
	case p.itemCh <- item:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.itemCh)
	})
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu        sync.Mutex
	processed int64
	dropped   map[string]int
}

func newMetrics() metrics {
	return metrics{
		dropped: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addDropped(kind string) {
	m.mu.Lock()
	m.dropped[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyDropped := make(map[string]int, len(m.dropped))
	for k, v := range m.dropped {
		copyDropped[k] = v
	}

	return map[string]interface{}{
		"processed_listings": m.processed,
		"dropped":            copyDropped,
	}
}
