package config

import (
	"testing"

	"github.com/0xtamizh/scrapebase/internal/model"
)

func defaultConfig() *Config {
	return &Config{
		Browser: model.DefaultBrowserPoolConfig(),
		Queue:   model.DefaultRequestQueueConfig(),
		Scraper: model.DefaultPageScraperConfig(),
		Crawler: model.DefaultWebsiteCrawlerConfig(),
		Memory:  model.DefaultMemoryControllerConfig(),
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestValidateRejectsInvertedContextBounds(t *testing.T) {
	cfg := defaultConfig()
	cfg.Browser.MaxContexts = 1
	cfg.Browser.MinContexts = 5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when max_contexts < min_contexts")
	}
}

func TestValidateRejectsZeroMaxConcurrent(t *testing.T) {
	cfg := defaultConfig()
	cfg.Queue.MaxConcurrent = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when queue.max_concurrent is 0")
	}
}

func TestValidateRejectsUnorderedMemoryThresholds(t *testing.T) {
	cfg := defaultConfig()
	cfg.Memory.WarnThresholdMB = 900
	cfg.Memory.CriticalThresholdMB = 800
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when memory thresholds are not strictly increasing")
	}
}

func TestLoadFailsForMissingExplicitConfigFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/so/defaults/apply.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent explicit config path")
	}
	_ = cfg
}
