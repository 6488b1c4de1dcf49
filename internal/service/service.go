// Package service wires the four core components — BrowserPool,
// RequestQueue, PageScraper, WebsiteCrawler — plus MemoryController
// behind the §6 exposed operations: ScrapePage, ScrapeWebsite, Health,
// Metrics. This is the seam the out-of-scope HTTP transport layer (§1)
// would call into; scrapecore's CLI (cmd/scrapecore) calls it directly.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/0xtamizh/scrapebase/internal/browser"
	"github.com/0xtamizh/scrapebase/internal/config"
	"github.com/0xtamizh/scrapebase/internal/crawl"
	"github.com/0xtamizh/scrapebase/internal/memctl"
	"github.com/0xtamizh/scrapebase/internal/model"
	"github.com/0xtamizh/scrapebase/internal/queue"
	"github.com/0xtamizh/scrapebase/internal/scrape"
)

// Service owns the whole core and exposes the §6 surface.
type Service struct {
	cfg *config.Config

	pool    *browser.Pool
	queue   *queue.Queue[model.ScrapeResult]
	scraper *scrape.Scraper
	crawler *crawl.Crawler
	memory  *memctl.Controller

	startedAt time.Time
}

// New builds a Service from cfg. It does not start the browser; call
// Start before any ScrapePage/ScrapeWebsite call.
func New(cfg *config.Config) (*Service, error) {
	pool := browser.New(cfg.Browser)
	q := queue.New[model.ScrapeResult](cfg.Queue)
	scraper := scrape.New(pool, cfg.Scraper, cfg.Browser.NavigationTimeout, cfg.Queue.MaxRetries)

	s := &Service{cfg: cfg, pool: pool, queue: q, scraper: scraper}
	s.crawler = crawl.New(cfg.Crawler, s.submitScrape, pool.ReleaseUnusedContexts)

	mem, err := memctl.New(cfg.Memory, pool, s.activeRequests)
	if err != nil {
		return nil, fmt.Errorf("constructing memory controller: %w", err)
	}
	s.memory = mem

	return s, nil
}

// Start launches the browser pool and the memory controller's sampling
// loops.
func (s *Service) Start(ctx context.Context) error {
	if err := s.pool.Start(ctx); err != nil {
		return fmt.Errorf("starting browser pool: %w", err)
	}
	s.memory.Start(ctx)
	s.startedAt = time.Now()
	return nil
}

// Shutdown stops accepting new admissions, lets in-flight work finish,
// and closes the browser. Per §4.1, Shutdown is idempotent and its
// errors are logged, never surfaced.
func (s *Service) Shutdown(ctx context.Context) error {
	s.memory.Stop()
	s.queue.Close()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
wait:
	for {
		if active, pending := s.queue.Status(); active == 0 && pending == 0 {
			break
		}
		select {
		case <-ctx.Done():
			break wait
		case <-ticker.C:
		}
	}
	return s.pool.Shutdown(ctx)
}

// submitScrape implements the "PageScraper through RequestQueue" wiring
// both ScrapePage and WebsiteCrawler's fan-out rely on (§4.4).
func (s *Service) submitScrape(ctx context.Context, requestID, url string) (model.ScrapeResult, error) {
	return s.queue.Enqueue(ctx, requestID, func(ctx context.Context) (model.ScrapeResult, error) {
		return s.scraper.Scrape(ctx, requestID, url)
	})
}

// ScrapePage implements the §6 ScrapePage(url) operation.
func (s *Service) ScrapePage(ctx context.Context, url string) (model.ScrapeResult, error) {
	return s.submitScrape(ctx, uuid.New().String(), url)
}

// ScrapeWebsite implements the §6 ScrapeWebsite(url, opts) operation.
func (s *Service) ScrapeWebsite(ctx context.Context, url string, opts model.CrawlOptions) (model.AggregatedResult, error) {
	return s.crawler.Crawl(ctx, url, opts)
}

func (s *Service) activeRequests() int {
	active, _ := s.queue.Status()
	return active
}

// Health implements the §6 Health() operation.
func (s *Service) Health() model.Health {
	active, pending := s.queue.Status()
	status := s.pool.Status()
	mem := s.memory.Metrics()

	return model.Health{
		Uptime: time.Since(s.startedAt),
		Memory: model.MemoryHealth{
			RSSBytes: mem.CurrentRSSBytes,
			Pressure: s.memory.Pressure(),
		},
		Browser: model.BrowserHealth{
			Status:   status.State,
			Contexts: status.LiveContexts,
			Pages:    status.WarmPages,
		},
		Queue: model.QueueHealth{
			Active:  active,
			Pending: pending,
		},
	}
}

// Metrics implements the §6/§4.5 Metrics() operation.
func (s *Service) Metrics() model.Metrics {
	return model.Metrics{
		Browser: s.pool.Metrics(),
		Queue:   s.queue.Metrics(),
		Memory:  s.memory.Metrics(),
	}
}
