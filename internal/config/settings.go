package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds application-level configuration (in-memory representation).
// Loaded once at startup from a YAML file; shop catalogs live in separate
// JSON documents (see shop.go).
type Settings struct {
	APIBaseURL         string   `yaml:"api_base_url"`
	Port               int      `yaml:"port"`
	RateLimitMS        int      `yaml:"rate_limit_ms"`
	MaxPagesPerItem    int      `yaml:"max_pages_per_item"`
	CacheExpiryMinutes int      `yaml:"cache_expiry_minutes"`
	DatabasePath       string   `yaml:"database_path"`
	ShopFiles          []string `yaml:"shop_files"`
	RawCommodities     []string `yaml:"raw_commodities"`
}

// Default returns Settings with sensible defaults: 10 req/sec against the
// public endpoint, 5 pages per item, 30 minute cache expiry.
func Default() *Settings {
	return &Settings{
		Port:               13380,
		RateLimitMS:        100,
		MaxPagesPerItem:    5,
		CacheExpiryMinutes: 30,
		DatabasePath:       "tradepost.db",
		ShopFiles: []string{
			"data/blood_shard_shop.json",
			"data/blood_synthesis_shop.json",
		},
		RawCommodities: []string{"Blood diamonds"},
	}
}

// Load reads settings from a YAML file, applying defaults for absent fields.
// A missing file is not an error: defaults are returned unchanged.
// TRADEPOST_API_URL overrides the upstream endpoint either way.
func Load(path string) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if v := os.Getenv("TRADEPOST_API_URL"); v != "" {
		s.APIBaseURL = v
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return s, nil
}

// Validate checks numeric ranges and required lists.
func (s *Settings) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	if s.RateLimitMS < 0 {
		return fmt.Errorf("rate_limit_ms must not be negative")
	}
	if s.MaxPagesPerItem <= 0 {
		return fmt.Errorf("max_pages_per_item must be positive")
	}
	if s.CacheExpiryMinutes <= 0 {
		return fmt.Errorf("cache_expiry_minutes must be positive")
	}
	if len(s.ShopFiles) == 0 {
		return fmt.Errorf("at least one shop file must be configured")
	}
	return nil
}

// MinRequestInterval converts the configured rate limit to a duration.
func (s *Settings) MinRequestInterval() time.Duration {
	return time.Duration(s.RateLimitMS) * time.Millisecond
}

// CacheExpiry converts the configured cache expiry to a duration.
func (s *Settings) CacheExpiry() time.Duration {
	return time.Duration(s.CacheExpiryMinutes) * time.Minute
}
