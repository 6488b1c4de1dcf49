// Package model holds the data types shared across the scraping core: the
// shapes PageScraper produces, WebsiteCrawler aggregates, and the service
// layer returns to callers.
package model

import "time"

// Metadata is the page-level descriptive information pulled from <head>
// tags and OpenGraph properties during extraction.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	SiteName    string `json:"siteName"`
	Type        string `json:"type"`
	Lang        string `json:"lang"`
	OGImage     string `json:"ogImage"`
}

// ContactEntry is a single contact-channel match: an email address or a
// link into a third-party scheduling/chat/form service.
type ContactEntry struct {
	Type string `json:"type"` // "email", "calendar", "meeting", "form", "chat"
	URL  string `json:"url"`
}

// LinkBundle is the set of categorized URLs extracted from one page. Every
// field is logically a set keyed by URL; callers must not assume order.
type LinkBundle struct {
	PageURLs     []string       `json:"pageUrls"`
	SocialURLs   []string       `json:"socialUrls"`
	ContactURLs  []ContactEntry `json:"contactUrls"`
	ImageURLs    []string       `json:"imageUrls"`
	ExternalURLs []string       `json:"externalUrls"`
}

// NewLinkBundle returns an empty bundle with initialized slices so callers
// can append without a nil check.
func NewLinkBundle() LinkBundle {
	return LinkBundle{
		PageURLs:     []string{},
		SocialURLs:   []string{},
		ContactURLs:  []ContactEntry{},
		ImageURLs:    []string{},
		ExternalURLs: []string{},
	}
}

// ErrorInfo is the user-visible error shape (§7): kind, message, and an
// optional details payload that must never carry HTML or page bodies.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ScrapeResult is what PageScraper produces for a single URL.
type ScrapeResult struct {
	URL         string     `json:"url"`
	RequestID   string     `json:"requestId"`
	Metadata    Metadata   `json:"metadata"`
	MainContent string     `json:"mainContent"`
	Markdown    string     `json:"markdown"`
	Links       LinkBundle `json:"links"`
	Footer      string     `json:"footer"`
	Success     bool       `json:"success"`
	Error       *ErrorInfo `json:"error,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// SubpageSummary is a subpage's outcome inside an AggregatedResult. A
// failed subpage still appears here with Success=false; it never fails
// the overall crawl.
type SubpageSummary struct {
	URL     string     `json:"url"`
	Title   string     `json:"title"`
	Success bool       `json:"success"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// CrawlStats summarizes a WebsiteCrawler run for the caller.
type CrawlStats struct {
	Requested       int            `json:"requested"`
	Selected        int            `json:"selected"`
	Processed       int            `json:"processed"`
	Failed          int            `json:"failed"`
	PerBucketCounts map[string]int `json:"perBucketCounts"`
}

// AggregatedResult is what WebsiteCrawler returns: the root scrape plus
// selected subpages merged into one link bundle and one markdown document.
type AggregatedResult struct {
	RequestID       string           `json:"requestId"`
	MainResult      ScrapeResult     `json:"mainResult"`
	Subpages        []SubpageSummary `json:"subpages"`
	Links           LinkBundle       `json:"links"`
	CombinedMarkdown string          `json:"combinedMarkdown"`
	Stats           CrawlStats       `json:"stats"`
}

// CrawlOptions customizes a ScrapeWebsite call; zero values fall back to
// config defaults in the WebsiteCrawler (crawl.Crawler.Crawl).
type CrawlOptions struct {
	SubpagesCount    int
	Keywords         []string
	ExcludePatterns  []string
	MaxDepth         int
}

// Article is the normalized result of the external ExtractArticle
// collaborator (§6).
type Article struct {
	Title       string
	TextContent string
	HTMLContent string
	Excerpt     string
	SiteName    string
	Lang        string
}
