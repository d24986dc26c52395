package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Parallelism != 64 {
		t.Fatalf("parallelism = %d, want 64", cfg.Parallelism)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.BatchSize != 100 {
		t.Fatalf("batch size = %d, want 100", cfg.BatchSize)
	}
	if cfg.RespectRobotsTxt {
		t.Fatalf("robots.txt should be ignored by default")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero parallelism", mutate: func(c *Config) { c.Parallelism = 0 }},
		{name: "negative delay", mutate: func(c *Config) { c.Delay = -time.Second }},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }},
		{name: "backoff above max", mutate: func(c *Config) {
			c.RetryBackoff = 3 * time.Second
			c.RetryBackoffMax = time.Second
		}},
		{name: "zero batch size", mutate: func(c *Config) { c.BatchSize = 0 }},
		{name: "empty user agent", mutate: func(c *Config) { c.UserAgent = "" }},
		{name: "unknown format", mutate: func(c *Config) {
			c.OutputFormat = "xml"
			c.OutputFile = "out.xml"
		}},
		{name: "format without file", mutate: func(c *Config) { c.OutputFormat = "csv" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func completeDBConfig() DBConfig {
	return DBConfig{
		Database: "scrapers",
		Host:     "localhost",
		Port:     "5432",
		User:     "postgres",
		Password: "secret",
		SSLMode:  "disable",
	}
}

func TestDBConfigValidate(t *testing.T) {
	db := completeDBConfig()
	if err := db.Validate(); err != nil {
		t.Fatalf("complete db config invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*DBConfig)
	}{
		{name: "missing database", mutate: func(c *DBConfig) { c.Database = "" }},
		{name: "missing host", mutate: func(c *DBConfig) { c.Host = "" }},
		{name: "missing port", mutate: func(c *DBConfig) { c.Port = "" }},
		{name: "missing user", mutate: func(c *DBConfig) { c.User = "" }},
		{name: "missing password", mutate: func(c *DBConfig) { c.Password = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := completeDBConfig()
			tt.mutate(&db)
			if err := db.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestDBConfigConnectionConfig(t *testing.T) {
	db := completeDBConfig()
	conn := db.ConnectionConfig()
	if conn.DBName != "scrapers" || conn.Host != "localhost" || conn.Port != "5432" {
		t.Fatalf("unexpected connection config: %+v", conn)
	}
	if conn.SSLMode != "disable" {
		t.Fatalf("sslmode = %q, want disable", conn.SSLMode)
	}
}

func TestLoadAppliesFileThenEnv(t *testing.T) {
	settings := `
crawler:
  parallelism: 4
  timeout_s: 10
  batch_size: 25
database:
  name: listings
  host: db.internal
  port: "5433"
  user: crawler
  password: filepass
`
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte(settings), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	t.Setenv("POSTGRES_PASSWORD", "envpass")
	t.Setenv("POSTGRES_HOST", "db.override")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Parallelism != 4 {
		t.Fatalf("parallelism = %d, want 4", cfg.Parallelism)
	}
	if cfg.Timeout != 10*time.Second {
		t.Fatalf("timeout = %v, want 10s", cfg.Timeout)
	}
	if cfg.BatchSize != 25 {
		t.Fatalf("batch size = %d, want 25", cfg.BatchSize)
	}
	if cfg.DB.Database != "listings" || cfg.DB.User != "crawler" || cfg.DB.Port != "5433" {
		t.Fatalf("unexpected db config: %+v", cfg.DB)
	}
	// Environment wins over the settings file.
	if cfg.DB.Password != "envpass" {
		t.Fatalf("password = %q, want env override", cfg.DB.Password)
	}
	if cfg.DB.Host != "db.override" {
		t.Fatalf("host = %q, want env override", cfg.DB.Host)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Parallelism != DefaultConfig().Parallelism {
		t.Fatalf("expected defaults when settings file is absent")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("crawler: ["), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("SCRAPER_TEST_INT", "12")
	value, ok, err := EnvInt("SCRAPER_TEST_INT")
	if err != nil || !ok || value != 12 {
		t.Fatalf("EnvInt = (%d, %v, %v), want (12, true, nil)", value, ok, err)
	}

	t.Setenv("SCRAPER_TEST_INT", "not a number")
	if _, _, err := EnvInt("SCRAPER_TEST_INT"); err == nil {
		t.Fatalf("expected error for non-integer value")
	}

	if _, ok, _ := EnvInt("SCRAPER_TEST_INT_UNSET"); ok {
		t.Fatalf("unset variable should not be reported present")
	}
}
