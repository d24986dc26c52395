package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aronkovacs/real-estate-scrapers/config"
	"github.com/aronkovacs/real-estate-scrapers/database"
	"github.com/aronkovacs/real-estate-scrapers/models"
	"github.com/aronkovacs/real-estate-scrapers/pages"
	"github.com/aronkovacs/real-estate-scrapers/pipeline"
	"github.com/aronkovacs/real-estate-scrapers/scraper"
)

// spiderName is the single crawl entry point; which websites it visits is
// narrowed with --only-domain.
const spiderName = "real_estate"

var (
	onlyDomain   string
	outputFile   string
	outputFormat string
	metricsAddr  string
	dryRun       bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [spider]",
	Short: "Run the real_estate spider",
	Long: "Crawl visits every registered website, extracts listings, and " +
		"persists them into PostgreSQL. Listings whose URL is already stored " +
		"are skipped.",
	Args: cobra.MaximumNArgs(1),
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().StringVarP(&onlyDomain, "only-domain", "a", "", "Restrict the crawl to one website domain")
	crawlCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Also export items to this file")
	crawlCmd.Flags().StringVar(&outputFormat, "format", "", "Export format: csv, json, or dual")
	crawlCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	crawlCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Skip the database; requires --output")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if len(args) == 1 && args[0] != spiderName {
		return fmt.Errorf("unknown spider %q (only %q is available)", args[0], spiderName)
	}

	cfg, err := config.Load(settingsPath)
	if err != nil {
		return err
	}
	cfg.Verbose = verbose
	if onlyDomain != "" {
		cfg.OnlyDomain = onlyDomain
	}
	if outputFile != "" {
		cfg.OutputFile = outputFile
		if outputFormat == "" {
			outputFormat = "csv"
		}
	}
	if outputFormat != "" {
		cfg.OutputFormat = strings.ToLower(outputFormat)
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if dryRun && cfg.OutputFile == "" {
		return fmt.Errorf("--dry-run requires --output")
	}

	sites, err := selectSites(cfg.OnlyDomain)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	var seedURLs []string
	writers := make([]pipeline.ItemWriter, 0, 2)

	if !dryRun {
		if err := cfg.DB.Validate(); err != nil {
			return err
		}
		db, err := database.NewPostgresConnection(cfg.DB.ConnectionConfig())
		if err != nil {
			return err
		}
		defer db.Close()

		repo := database.NewListingRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		seedURLs, err = repo.ScrapedURLs(ctx)
		if err != nil {
			return err
		}
		writers = append(writers, pipeline.NewStoreWriter(ctx, repo))
	}

	if cfg.OutputFormat != "" {
		fileWriter, err := createFileWriter(cfg.OutputFormat, cfg.OutputFile)
		if err != nil {
			return err
		}
		writers = append(writers, fileWriter)
	}

	writer := pipeline.NewMultiWriter(writers...)
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	s, err := scraper.NewScraper(cfg, sites)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	domains := make([]string, len(sites))
	for i, site := range sites {
		domains[i] = site.Domain()
	}
	slog.Info("starting crawl",
		slog.String("spider", spiderName),
		slog.Any("domains", domains),
		slog.Int("workers", cfg.Parallelism),
		slog.Int("seed_urls", len(seedURLs)),
	)

	p := pipeline.NewPipeline(ctx, writer, cfg)
	p.Seed(seedURLs)
	p.Start(cfg.Parallelism)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	startTime := time.Now()
	result, err := s.Run(ctx, p)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	if err := p.Close(); err != nil {
		return fmt.Errorf("pipeline shutdown: %w", err)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, time.Since(startTime), p.GetMetrics())
	return nil
}

// selectSites resolves --only-domain to the registered sites.
func selectSites(only string) ([]pages.Site, error) {
	all := pages.All()
	if only == "" {
		return all, nil
	}
	site, ok := pages.Lookup(strings.ToLower(only))
	if !ok {
		domains := make([]string, len(all))
		for i, s := range all {
			domains[i] = s.Domain()
		}
		return nil, fmt.Errorf("unknown domain %q (available: %s)", only, strings.Join(domains, ", "))
	}
	return []pages.Site{site}, nil
}

func createFileWriter(format, filename string) (pipeline.ItemWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.CrawlResult, duration time.Duration, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Crawl complete")

	totalItems := int64(0)
	if processed, ok := metrics["processed_listings"].(int64); ok {
		totalItems = processed
	}
	itemsPerSec := 0.0
	if duration.Seconds() > 0 {
		itemsPerSec = float64(totalItems) / duration.Seconds()
	}

	fmt.Printf("  Total items:   %d\n", totalItems)
	successRate := 0.0
	if result.RequestCount > 0 {
		successRate = float64(result.RequestCount-result.ErrorCount) / float64(result.RequestCount) * 100
	}
	fmt.Printf("  Success rate:  %.2f%%\n", successRate)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	fmt.Printf("  Retries:       %d\n", result.RetryCount)
	fmt.Printf("  Failed URLs:   %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if dropped, ok := metrics["dropped"].(map[string]int); ok && len(dropped) > 0 {
		fmt.Printf("  Dropped:       %v\n", dropped)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Items/sec:     %.2f\n", itemsPerSec)
	fmt.Println(separator)
}
