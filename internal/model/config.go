package model

import "time"

// BrowserPoolConfig holds the §4.1 constants. All fields are configurable;
// the values here double as the documented defaults.
type BrowserPoolConfig struct {
	MaxContexts        int           `mapstructure:"max_contexts"`
	MinContexts        int           `mapstructure:"min_contexts"`
	MaxPagesPerContext int           `mapstructure:"max_pages_per_context"`
	PageTimeout        time.Duration `mapstructure:"page_timeout"`
	NavigationTimeout  time.Duration `mapstructure:"navigation_timeout"`
	AcquireTimeout     time.Duration `mapstructure:"acquire_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	SoftIdle           time.Duration `mapstructure:"soft_idle"`
	MetricsInterval    time.Duration `mapstructure:"metrics_interval"`
	RestartThreshold   int           `mapstructure:"restart_threshold"`
	PagePoolSize       int           `mapstructure:"page_pool_size"`
}

// DefaultBrowserPoolConfig returns the §4.1 defaults.
func DefaultBrowserPoolConfig() BrowserPoolConfig {
	return BrowserPoolConfig{
		MaxContexts:        20,
		MinContexts:        2,
		MaxPagesPerContext: 10,
		PageTimeout:        30 * time.Second,
		NavigationTimeout:  30 * time.Second,
		AcquireTimeout:     30 * time.Second,
		IdleTimeout:        60 * time.Second,
		SoftIdle:           30 * time.Second,
		MetricsInterval:    10 * time.Second,
		RestartThreshold:   1000,
		PagePoolSize:       16,
	}
}

// RequestQueueConfig holds the §4.2 defaults.
type RequestQueueConfig struct {
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	QueueTimeout   time.Duration `mapstructure:"queue_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// DefaultRequestQueueConfig returns the §4.2/§6 defaults.
func DefaultRequestQueueConfig() RequestQueueConfig {
	return RequestQueueConfig{
		MaxConcurrent:  50,
		RequestTimeout: 60 * time.Second,
		QueueTimeout:   120 * time.Second,
		MaxRetries:     1,
	}
}

// PageScraperConfig holds the §9 open-question knobs: named content-size
// limits instead of ad-hoc literals.
type PageScraperConfig struct {
	StabilityDelay     time.Duration `mapstructure:"stability_delay"`
	ScrollByPixels      int          `mapstructure:"scroll_by_pixels"`
	ScrollInterval      time.Duration `mapstructure:"scroll_interval"`
	MaxScrollTime       time.Duration `mapstructure:"max_scroll_time"`
	EmailScanCharLimit  int           `mapstructure:"email_scan_char_limit"`
	FooterCharLimit     int           `mapstructure:"footer_char_limit"`
	MaxContactEmails    int           `mapstructure:"max_contact_emails"`
	MaxImagesLinks      int           `mapstructure:"max_images_links"`
	MaxExternalLinks    int           `mapstructure:"max_external_links"`
}

// DefaultPageScraperConfig returns the §4.3/§9 defaults.
func DefaultPageScraperConfig() PageScraperConfig {
	return PageScraperConfig{
		StabilityDelay:     500 * time.Millisecond,
		ScrollByPixels:     250,
		ScrollInterval:     100 * time.Millisecond,
		MaxScrollTime:      10 * time.Second,
		EmailScanCharLimit: 15000,
		FooterCharLimit:    1000,
		MaxContactEmails:   5,
		MaxImagesLinks:     50,
		MaxExternalLinks:   30,
	}
}

// WebsiteCrawlerConfig holds the §4.4/§6 defaults.
type WebsiteCrawlerConfig struct {
	MaxConcurrentSubpageRequests int           `mapstructure:"max_concurrent_subpage_requests"`
	SubpageRequestTimeout        time.Duration `mapstructure:"subpage_request_timeout"`
	DefaultSubpagesCount         int           `mapstructure:"default_subpages_count"`
	MaxDepth                     int           `mapstructure:"max_depth"`
	ExcludePatterns              []string      `mapstructure:"exclude_patterns"`
	ImportantSections            []string      `mapstructure:"important_sections"`
	RSSReleaseThresholdBytes     uint64        `mapstructure:"rss_release_threshold_bytes"`
}

// DefaultWebsiteCrawlerConfig returns the §4.4 defaults, including the
// default exclude-pattern and important-section tables.
func DefaultWebsiteCrawlerConfig() WebsiteCrawlerConfig {
	return WebsiteCrawlerConfig{
		MaxConcurrentSubpageRequests: 10,
		SubpageRequestTimeout:        15 * time.Second,
		DefaultSubpagesCount:         5,
		MaxDepth:                     2,
		ExcludePatterns: []string{
			"/login", "/signin", "/signup", "/register", "/account",
			"/privacy", "/terms", "/cookies", "/gdpr", "/contact",
			"/cart", "/checkout", "/basket", "/purchase", "/buy",
		},
		ImportantSections:        []string{"/about", "/products", "/services", "/faq", "/features"},
		RSSReleaseThresholdBytes: 1200 * 1024 * 1024, // 1.2 GB
	}
}

// MemoryControllerConfig holds the §4.5 defaults.
type MemoryControllerConfig struct {
	MetricsInterval     time.Duration `mapstructure:"metrics_interval"`
	RollingWindowSize   int           `mapstructure:"rolling_window_size"`
	TrendThresholdPct   float64       `mapstructure:"trend_threshold_pct"`
	WarnThresholdMB     uint64        `mapstructure:"warn_threshold_mb"`
	CriticalThresholdMB uint64        `mapstructure:"critical_threshold_mb"`
	EmergencyThresholdMB uint64       `mapstructure:"emergency_threshold_mb"`
	ForceRestartDelay   time.Duration `mapstructure:"force_restart_delay"`
	IdleCheckInterval   time.Duration `mapstructure:"idle_check_interval"`
	IdleRSSThresholdMB  uint64        `mapstructure:"idle_rss_threshold_mb"`
	IdleMaxActiveReqs   int           `mapstructure:"idle_max_active_requests"`
}

// DefaultMemoryControllerConfig returns the §4.5 defaults.
func DefaultMemoryControllerConfig() MemoryControllerConfig {
	return MemoryControllerConfig{
		MetricsInterval:      10 * time.Second,
		RollingWindowSize:    10,
		TrendThresholdPct:    5.0,
		WarnThresholdMB:      400,
		CriticalThresholdMB:  800,
		EmergencyThresholdMB: 1500,
		ForceRestartDelay:    2 * time.Second,
		IdleCheckInterval:    5 * time.Minute,
		IdleRSSThresholdMB:   500,
		IdleMaxActiveReqs:    1,
	}
}
