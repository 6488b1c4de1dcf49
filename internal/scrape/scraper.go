// Package scrape implements PageScraper (§4.3): given a URL, borrow a
// page from BrowserPool, navigate, run the scroll heuristic, extract the
// page's structure in one round trip, classify its links, hand the raw
// HTML to the ExtractArticle collaborator, and render the combined
// markdown document.
package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/0xtamizh/scrapebase/internal/article"
	"github.com/0xtamizh/scrapebase/internal/browser"
	"github.com/0xtamizh/scrapebase/internal/model"
	"github.com/0xtamizh/scrapebase/internal/scrapeerrors"
)

// Scraper is the PageScraper component. It is stateless beyond its
// configuration and the BrowserPool it borrows pages from.
type Scraper struct {
	pool              *browser.Pool
	cfg               model.PageScraperConfig
	navigationTimeout time.Duration
	maxRetries        int
}

// New constructs a Scraper borrowing pages from pool.
func New(pool *browser.Pool, cfg model.PageScraperConfig, navigationTimeout time.Duration, maxRetries int) *Scraper {
	return &Scraper{pool: pool, cfg: cfg, navigationTimeout: navigationTimeout, maxRetries: maxRetries}
}

// Scrape runs the full §4.3 algorithm for rawURL, retrying up to
// maxRetries additional times on a retryable error kind with the §4.2
// backoff schedule (min(1000*2^(attempt-1), 5000) ms).
func (s *Scraper) Scrape(ctx context.Context, requestID, rawURL string) (model.ScrapeResult, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return failureResult(requestID, rawURL, err), err
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries+1; attempt++ {
		if ctx.Err() != nil {
			err := scrapeerrors.Wrap(scrapeerrors.KindCancelled, "cancelled before retry attempt", ctx.Err())
			return failureResult(requestID, normalized, err), err
		}

		result, err := s.attempt(ctx, requestID, normalized)
		if err == nil {
			return result, nil
		}
		lastErr = err

		kind := scrapeerrors.KindOf(err)
		if !scrapeerrors.Retryable(kind) || attempt > s.maxRetries {
			break
		}

		backoff := backoffFor(attempt)
		log.Warn().Str("url", normalized).Int("attempt", attempt).Err(err).Dur("backoff", backoff).
			Msg("scrape attempt failed, retrying")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			err := scrapeerrors.Wrap(scrapeerrors.KindCancelled, "cancelled during retry backoff", ctx.Err())
			return failureResult(requestID, normalized, err), err
		case <-timer.C:
		}
	}

	return failureResult(requestID, normalized, lastErr), lastErr
}

// backoffFor implements §4.2's backoff schedule for the given 1-indexed
// attempt number.
func backoffFor(attempt int) time.Duration {
	ms := 1000 * (1 << (attempt - 1))
	if ms > 5000 {
		ms = 5000
	}
	return time.Duration(ms) * time.Millisecond
}

// attempt runs one navigate-extract-classify-render pass against a
// freshly borrowed page.
func (s *Scraper) attempt(ctx context.Context, requestID, pageURL string) (model.ScrapeResult, error) {
	return browser.WithPage(s.pool, ctx, func(page *rod.Page) (model.ScrapeResult, error) {
		if err := s.navigate(page, pageURL); err != nil {
			return model.ScrapeResult{}, err
		}

		scrollPage(page, scrollConfig{
			byPixels:      s.cfg.ScrollByPixels,
			interval:      s.cfg.ScrollInterval,
			maxScrollTime: s.cfg.MaxScrollTime,
		})

		ex, err := extractPage(page, s.cfg.FooterCharLimit, s.cfg.EmailScanCharLimit)
		if err != nil {
			return model.ScrapeResult{}, err
		}

		links := buildLinkBundle(ex, s.cfg)

		art, err := article.Extract(ex.RawHTML, pageURL)
		if err != nil {
			return model.ScrapeResult{}, err
		}

		md, err := buildMarkdown(ex.Metadata.Title, art, links, ex.FooterText, ex.NavLinks)
		if err != nil {
			return model.ScrapeResult{}, err
		}

		return model.ScrapeResult{
			URL:         pageURL,
			RequestID:   requestID,
			Metadata:    ex.Metadata,
			MainContent: art.TextContent,
			Markdown:    md,
			Links:       links,
			Footer:      ex.FooterText,
			Success:     true,
			Timestamp:   time.Now(),
		}, nil
	})
}

// navigate implements §4.3 step 4: navigate with a domcontentloaded-style
// wait, then additionally wait up to 5s for the W3C Navigation Timing
// API's loadEventEnd to become non-zero if the page exposes it, then
// sleep the fixed stability delay.
func (s *Scraper) navigate(page *rod.Page, pageURL string) error {
	page = page.Timeout(s.navigationTimeout)

	waitDOM, err := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err != nil {
		return scrapeerrors.Wrap(scrapeerrors.KindNavigation, "arming DOM-content-loaded wait", err)
	}
	if err := page.Navigate(pageURL); err != nil {
		return scrapeerrors.Wrap(scrapeerrors.KindNavigation, "navigating to page", err)
	}
	waitDOM()

	waitLoadEventEnd(page, 5*time.Second)
	time.Sleep(s.cfg.StabilityDelay)
	return nil
}

const loadEventEndJS = `() => {
	var nav = performance.getEntriesByType && performance.getEntriesByType('navigation')[0];
	if (nav) return nav.loadEventEnd > 0;
	if (performance.timing) return performance.timing.loadEventEnd > 0;
	return false;
}`

// waitLoadEventEnd polls the Navigation Timing API for up to deadline,
// per §4.3 step 4. It is advisory: a page with no Navigation Timing
// support (or that never fires loadEventEnd) simply runs out the clock.
func waitLoadEventEnd(page *rod.Page, deadline time.Duration) {
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		res, err := page.Evaluate(&rod.EvalOptions{JS: loadEventEndJS})
		if err == nil && res.Value.Bool() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// NormalizeURL implements §4.3 step 1: prepend https:// if the URL lacks
// a scheme, then validate it syntactically.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", scrapeerrors.New(scrapeerrors.KindMissingParam, "url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", scrapeerrors.New(scrapeerrors.KindInvalidUrl, fmt.Sprintf("invalid url: %q", raw))
	}
	return u.String(), nil
}

// failureResult builds the §3 ScrapeResult shape for a failed scrape.
func failureResult(requestID, url string, err error) model.ScrapeResult {
	se, _ := scrapeerrors.As(err)
	info := &model.ErrorInfo{Kind: string(scrapeerrors.KindOf(err)), Message: err.Error()}
	if se != nil {
		info.Message = se.Message
		info.Details = se.Details
	}
	return model.ScrapeResult{
		URL:       url,
		RequestID: requestID,
		Success:   false,
		Error:     info,
		Timestamp: time.Now(),
	}
}
