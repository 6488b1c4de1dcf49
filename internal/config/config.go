// Package config loads scrapecore's configuration with viper, following
// the teacher's internal/core/config.go shape: defaults set in code,
// overridden by an optional YAML file, then by environment variables and
// CLI flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/0xtamizh/scrapebase/internal/model"
)

// LoggingConfig mirrors the teacher's LoggingConfig.
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig mirrors the teacher's RotationConfig.
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// Config is the top-level configuration document for scrapecore.
type Config struct {
	Logging LoggingConfig               `mapstructure:"logging"`
	Browser model.BrowserPoolConfig     `mapstructure:"browser"`
	Queue   model.RequestQueueConfig    `mapstructure:"queue"`
	Scraper model.PageScraperConfig     `mapstructure:"scraper"`
	Crawler model.WebsiteCrawlerConfig  `mapstructure:"crawler"`
	Memory  model.MemoryControllerConfig `mapstructure:"memory"`
}

// Load reads configPath (or searches default locations if empty), applies
// defaults for anything unset, and unmarshals into a Config.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".scrapecore"))
		}
	}

	v.SetEnvPrefix("SCRAPECORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// no config file on disk: defaults + env stand alone
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	b := model.DefaultBrowserPoolConfig()
	v.SetDefault("browser.max_contexts", b.MaxContexts)
	v.SetDefault("browser.min_contexts", b.MinContexts)
	v.SetDefault("browser.max_pages_per_context", b.MaxPagesPerContext)
	v.SetDefault("browser.page_timeout", b.PageTimeout)
	v.SetDefault("browser.navigation_timeout", b.NavigationTimeout)
	v.SetDefault("browser.acquire_timeout", b.AcquireTimeout)
	v.SetDefault("browser.idle_timeout", b.IdleTimeout)
	v.SetDefault("browser.soft_idle", b.SoftIdle)
	v.SetDefault("browser.metrics_interval", b.MetricsInterval)
	v.SetDefault("browser.restart_threshold", b.RestartThreshold)
	v.SetDefault("browser.page_pool_size", b.PagePoolSize)

	q := model.DefaultRequestQueueConfig()
	v.SetDefault("queue.max_concurrent", q.MaxConcurrent)
	v.SetDefault("queue.request_timeout", q.RequestTimeout)
	v.SetDefault("queue.queue_timeout", q.QueueTimeout)
	v.SetDefault("queue.max_retries", q.MaxRetries)

	s := model.DefaultPageScraperConfig()
	v.SetDefault("scraper.stability_delay", s.StabilityDelay)
	v.SetDefault("scraper.scroll_by_pixels", s.ScrollByPixels)
	v.SetDefault("scraper.scroll_interval", s.ScrollInterval)
	v.SetDefault("scraper.max_scroll_time", s.MaxScrollTime)
	v.SetDefault("scraper.email_scan_char_limit", s.EmailScanCharLimit)
	v.SetDefault("scraper.footer_char_limit", s.FooterCharLimit)
	v.SetDefault("scraper.max_contact_emails", s.MaxContactEmails)
	v.SetDefault("scraper.max_images_links", s.MaxImagesLinks)
	v.SetDefault("scraper.max_external_links", s.MaxExternalLinks)

	c := model.DefaultWebsiteCrawlerConfig()
	v.SetDefault("crawler.max_concurrent_subpage_requests", c.MaxConcurrentSubpageRequests)
	v.SetDefault("crawler.subpage_request_timeout", c.SubpageRequestTimeout)
	v.SetDefault("crawler.default_subpages_count", c.DefaultSubpagesCount)
	v.SetDefault("crawler.max_depth", c.MaxDepth)
	v.SetDefault("crawler.exclude_patterns", c.ExcludePatterns)
	v.SetDefault("crawler.important_sections", c.ImportantSections)
	v.SetDefault("crawler.rss_release_threshold_bytes", c.RSSReleaseThresholdBytes)

	m := model.DefaultMemoryControllerConfig()
	v.SetDefault("memory.metrics_interval", m.MetricsInterval)
	v.SetDefault("memory.rolling_window_size", m.RollingWindowSize)
	v.SetDefault("memory.trend_threshold_pct", m.TrendThresholdPct)
	v.SetDefault("memory.warn_threshold_mb", m.WarnThresholdMB)
	v.SetDefault("memory.critical_threshold_mb", m.CriticalThresholdMB)
	v.SetDefault("memory.emergency_threshold_mb", m.EmergencyThresholdMB)
	v.SetDefault("memory.force_restart_delay", m.ForceRestartDelay)
	v.SetDefault("memory.idle_check_interval", m.IdleCheckInterval)
	v.SetDefault("memory.idle_rss_threshold_mb", m.IdleRSSThresholdMB)
	v.SetDefault("memory.idle_max_active_requests", m.IdleMaxActiveReqs)
}

// Validate bounds-checks the configuration without starting a browser,
// backing the validate-config CLI command.
func (c *Config) Validate() error {
	if c.Browser.MaxContexts < c.Browser.MinContexts {
		return fmt.Errorf("browser.max_contexts (%d) must be >= browser.min_contexts (%d)",
			c.Browser.MaxContexts, c.Browser.MinContexts)
	}
	if c.Browser.MinContexts <= 0 {
		return fmt.Errorf("browser.min_contexts must be > 0")
	}
	if c.Browser.MaxPagesPerContext <= 0 {
		return fmt.Errorf("browser.max_pages_per_context must be > 0")
	}
	if c.Queue.MaxConcurrent <= 0 {
		return fmt.Errorf("queue.max_concurrent must be > 0")
	}
	if c.Queue.RequestTimeout <= 0 || c.Queue.QueueTimeout <= 0 {
		return fmt.Errorf("queue.request_timeout and queue.queue_timeout must be > 0")
	}
	if c.Crawler.MaxConcurrentSubpageRequests <= 0 {
		return fmt.Errorf("crawler.max_concurrent_subpage_requests must be > 0")
	}
	if c.Crawler.DefaultSubpagesCount < 0 {
		return fmt.Errorf("crawler.default_subpages_count must be >= 0")
	}
	if c.Memory.RollingWindowSize <= 0 {
		return fmt.Errorf("memory.rolling_window_size must be > 0")
	}
	if c.Memory.WarnThresholdMB >= c.Memory.CriticalThresholdMB ||
		c.Memory.CriticalThresholdMB >= c.Memory.EmergencyThresholdMB {
		return fmt.Errorf("memory thresholds must be strictly increasing: warn < critical < emergency")
	}
	return nil
}
