package crawl

import (
	"context"
	"testing"

	"github.com/0xtamizh/scrapebase/internal/model"
)

func TestMergeLinkBundlesDedupesAndAppliesCrossBundleRule(t *testing.T) {
	root := model.LinkBundle{
		PageURLs:     []string{"https://site.com/about"},
		SocialURLs:   []string{"https://twitter.com/x"},
		ExternalURLs: []string{"https://twitter.com/x", "https://blog.example.com"},
	}
	sub1 := model.LinkBundle{
		PageURLs:     []string{"https://site.com/about", "https://site.com/products"},
		ExternalURLs: []string{"https://blog.example.com", "https://news.example.com"},
	}

	merged := mergeLinkBundles(root, []model.LinkBundle{sub1})

	if len(merged.PageURLs) != 2 {
		t.Errorf("expected 2 unique page urls, got %v", merged.PageURLs)
	}
	if contains(merged.ExternalURLs, "https://twitter.com/x") {
		t.Errorf("twitter must be excluded from external after cross-bundle rule, got %v", merged.ExternalURLs)
	}
	if !contains(merged.ExternalURLs, "https://blog.example.com") || !contains(merged.ExternalURLs, "https://news.example.com") {
		t.Errorf("expected both external urls deduped and retained, got %v", merged.ExternalURLs)
	}
}

func TestCrawlRootFailurePropagates(t *testing.T) {
	c := New(model.DefaultWebsiteCrawlerConfig(), func(ctx context.Context, requestID, url string) (model.ScrapeResult, error) {
		return model.ScrapeResult{}, context.DeadlineExceeded
	}, nil)

	_, err := c.Crawl(context.Background(), "https://site.com", model.CrawlOptions{})
	if err == nil {
		t.Fatal("expected root scrape failure to fail the whole crawl")
	}
}

func TestCrawlSubpageFailureIsolated(t *testing.T) {
	calls := 0
	c := New(model.DefaultWebsiteCrawlerConfig(), func(ctx context.Context, requestID, url string) (model.ScrapeResult, error) {
		calls++
		if url == "https://site.com" {
			return model.ScrapeResult{
				URL:     url,
				Success: true,
				Links:   model.LinkBundle{PageURLs: []string{"https://site.com/about", "https://site.com/broken"}},
			}, nil
		}
		if url == "https://site.com/broken" {
			return model.ScrapeResult{}, context.DeadlineExceeded
		}
		return model.ScrapeResult{URL: url, Success: true}, nil
	}, nil)

	result, err := c.Crawl(context.Background(), "https://site.com", model.CrawlOptions{SubpagesCount: 5})
	if err != nil {
		t.Fatalf("unexpected crawl error: %v", err)
	}

	var sawFailure bool
	for _, sp := range result.Subpages {
		if sp.URL == "https://site.com/broken" && !sp.Success {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Errorf("expected broken subpage to be isolated as a failed entry, got %+v", result.Subpages)
	}
	if result.Stats.Failed != 1 {
		t.Errorf("expected stats.failed=1, got %d", result.Stats.Failed)
	}
}

func TestCrawlSubpagesNeverExceedK(t *testing.T) {
	c := New(model.DefaultWebsiteCrawlerConfig(), func(ctx context.Context, requestID, url string) (model.ScrapeResult, error) {
		if url == "https://site.com" {
			return model.ScrapeResult{
				URL:     url,
				Success: true,
				Links: model.LinkBundle{PageURLs: []string{
					"https://site.com/a", "https://site.com/b", "https://site.com/c",
					"https://site.com/d", "https://site.com/e", "https://site.com/f",
				}},
			}, nil
		}
		return model.ScrapeResult{URL: url, Success: true}, nil
	}, nil)

	result, err := c.Crawl(context.Background(), "https://site.com", model.CrawlOptions{SubpagesCount: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Subpages) > 2 {
		t.Errorf("expected at most K=2 subpages, got %d", len(result.Subpages))
	}
}
