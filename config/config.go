// Package config holds the scraper and database configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aronkovacs/real-estate-scrapers/database"
)

// Config holds crawler configuration.
type Config struct {
	OnlyDomain         string
	Parallelism        int
	Delay              time.Duration
	RandomDelay        time.Duration
	Timeout            time.Duration
	MaxRetries         int
	RetryBackoff       time.Duration
	RetryBackoffMax    time.Duration
	UserAgent          string
	RespectRobotsTxt   bool
	PipelineBufferSize int
	BatchSize          int
	OutputFile         string
	OutputFormat       string // "", csv, json, or dual
	MetricsAddr        string
	Verbose            bool

	DB DBConfig
}

// DBConfig holds the Postgres connection settings for the persistence
// pipeline.
type DBConfig struct {
	Database string
	Host     string
	Port     string
	User     string
	Password string
	SSLMode  string
}

// DefaultConfig returns the crawl defaults: 64 concurrent requests across
// all portals, a 30s request timeout, robots.txt ignored, batches of 100
// items.
func DefaultConfig() *Config {
	return &Config{
		Parallelism:        64,
		Delay:              0,
		RandomDelay:        0,
		Timeout:            30 * time.Second,
		MaxRetries:         2,
		RetryBackoff:       200 * time.Millisecond,
		RetryBackoffMax:    2 * time.Second,
		UserAgent:          "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/117.0",
		RespectRobotsTxt:   false,
		PipelineBufferSize: 512,
		BatchSize:          100,
		DB: DBConfig{
			SSLMode: "disable",
		},
	}
}

// Validate ensures all crawl settings are coherent.
func (c *Config) Validate() error {
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	switch c.OutputFormat {
	case "", "csv", "json", "dual":
	default:
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.OutputFormat != "" && c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty when an output format is set")
	}
	return nil
}

// Validate checks that the database connection settings are complete.
func (c *DBConfig) Validate() error {
	missing := func(field string) error {
		return fmt.Errorf("database config missing %s; set the POSTGRES_* "+
			"environment variables or the database section of the settings file", field)
	}
	switch {
	case c.Database == "":
		return missing("database name")
	case c.Host == "":
		return missing("host")
	case c.Port == "":
		return missing("port")
	case c.User == "":
		return missing("user")
	case c.Password == "":
		return missing("password")
	}
	return nil
}

// ConnectionConfig converts the settings into the database package's form.
func (c *DBConfig) ConnectionConfig() database.Config {
	return database.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		DBName:   c.Database,
		SSLMode:  c.SSLMode,
	}
}

// fileConfig is the yaml settings file shape.
type fileConfig struct {
	Crawler struct {
		Parallelism     *int   `yaml:"parallelism"`
		DelayMs         *int   `yaml:"delay_ms"`
		RandomDelayMs   *int   `yaml:"random_delay_ms"`
		TimeoutS        *int   `yaml:"timeout_s"`
		MaxRetries      *int   `yaml:"max_retries"`
		RetryBackoffMs  *int   `yaml:"retry_backoff_ms"`
		RetryBackoffMax *int   `yaml:"retry_backoff_max_ms"`
		UserAgent       string `yaml:"user_agent"`
		RespectRobots   *bool  `yaml:"respect_robots_txt"`
		BatchSize       *int   `yaml:"batch_size"`
		BufferSize      *int   `yaml:"buffer_size"`
		MetricsAddr     string `yaml:"metrics_addr"`
	} `yaml:"crawler"`
	Database struct {
		Name     string `yaml:"name"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`
}

// Load builds the configuration from defaults, an optional yaml settings
// file, and the environment. POSTGRES_* environment variables take
// precedence over the file's database section.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read settings file %s: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse settings file %s: %w", path, err)
	}

	crawler := file.Crawler
	if crawler.Parallelism != nil {
		c.Parallelism = *crawler.Parallelism
	}
	if crawler.DelayMs != nil {
		c.Delay = time.Duration(*crawler.DelayMs) * time.Millisecond
	}
	if crawler.RandomDelayMs != nil {
		c.RandomDelay = time.Duration(*crawler.RandomDelayMs) * time.Millisecond
	}
	if crawler.TimeoutS != nil {
		c.Timeout = time.Duration(*crawler.TimeoutS) * time.Second
	}
	if crawler.MaxRetries != nil {
		c.MaxRetries = *crawler.MaxRetries
	}
	if crawler.RetryBackoffMs != nil {
		c.RetryBackoff = time.Duration(*crawler.RetryBackoffMs) * time.Millisecond
	}
	if crawler.RetryBackoffMax != nil {
		c.RetryBackoffMax = time.Duration(*crawler.RetryBackoffMax) * time.Millisecond
	}
	if crawler.UserAgent != "" {
		c.UserAgent = crawler.UserAgent
	}
	if crawler.RespectRobots != nil {
		c.RespectRobotsTxt = *crawler.RespectRobots
	}
	if crawler.BatchSize != nil {
		c.BatchSize = *crawler.BatchSize
	}
	if crawler.BufferSize != nil {
		c.PipelineBufferSize = *crawler.BufferSize
	}
	if crawler.MetricsAddr != "" {
		c.MetricsAddr = crawler.MetricsAddr
	}

	db := file.Database
	if db.Name != "" {
		c.DB.Database = db.Name
	}
	if db.Host != "" {
		c.DB.Host = db.Host
	}
	if db.Port != "" {
		c.DB.Port = db.Port
	}
	if db.User != "" {
		c.DB.User = db.User
	}
	if db.Password != "" {
		c.DB.Password = db.Password
	}
	if db.SSLMode != "" {
		c.DB.SSLMode = db.SSLMode
	}
	return nil
}

func (c *Config) applyEnv() {
	if value, ok := EnvString("POSTGRES_DB"); ok {
		c.DB.Database = value
	}
	if value, ok := EnvString("POSTGRES_HOST"); ok {
		c.DB.Host = value
	}
	if value, ok := EnvString("POSTGRES_PORT"); ok {
		c.DB.Port = value
	}
	if value, ok := EnvString("POSTGRES_USER"); ok {
		c.DB.User = value
	}
	if value, ok := EnvString("POSTGRES_PASSWORD"); ok {
		c.DB.Password = value
	}
	if value, ok := EnvString("POSTGRES_SSLMODE"); ok {
		c.DB.SSLMode = value
	}
	if value, ok := EnvString("SCRAPER_METRICS_ADDR"); ok {
		c.MetricsAddr = value
	}
	if value, ok := EnvString("SCRAPER_USER_AGENT"); ok {
		c.UserAgent = value
	}
}

// EnvString reads a string environment variable.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment variable.
func EnvInt(key string) (int, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, true, nil
}
