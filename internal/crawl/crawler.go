package crawl

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/0xtamizh/scrapebase/internal/memctl"
	"github.com/0xtamizh/scrapebase/internal/model"
	"github.com/0xtamizh/scrapebase/internal/scrapeerrors"
)

// ScrapeFunc is how Crawler asks for one page scrape — the service
// layer wires this to RequestQueue.Enqueue wrapping PageScraper.Scrape,
// so every subpage (and the root) still passes through admission
// control, per §4.4's "Scrape root via PageScraper through RequestQueue."
type ScrapeFunc func(ctx context.Context, requestID, url string) (model.ScrapeResult, error)

// Crawler is the WebsiteCrawler component.
type Crawler struct {
	cfg                   model.WebsiteCrawlerConfig
	scrape                ScrapeFunc
	releaseUnusedContexts func() int
	pid                   int32
}

// New constructs a Crawler. releaseUnusedContexts is typically
// BrowserPool.ReleaseUnusedContexts, invoked between subpage batches
// per §4.4 step 4.
func New(cfg model.WebsiteCrawlerConfig, scrape ScrapeFunc, releaseUnusedContexts func() int) *Crawler {
	return &Crawler{cfg: cfg, scrape: scrape, releaseUnusedContexts: releaseUnusedContexts, pid: int32(os.Getpid())}
}

// Crawl implements the full §4.4 algorithm: normalize, scrape the root,
// select subpages, fan them out under the secondary concurrency cap, and
// merge. A root failure (including cancellation) fails the whole crawl;
// a subpage failure is isolated into a {success:false} summary.
func (c *Crawler) Crawl(ctx context.Context, rawURL string, opts model.CrawlOptions) (model.AggregatedResult, error) {
	root, err := NormalizeRootURL(rawURL)
	if err != nil {
		return model.AggregatedResult{}, scrapeerrors.New(scrapeerrors.KindInvalidUrl, fmt.Sprintf("invalid url: %q", rawURL))
	}

	requestID := uuid.New().String()

	k := opts.SubpagesCount
	if k <= 0 {
		k = c.cfg.DefaultSubpagesCount
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = c.cfg.MaxDepth
	}
	excludePatterns := opts.ExcludePatterns
	if len(excludePatterns) == 0 {
		excludePatterns = c.cfg.ExcludePatterns
	}

	mainResult, err := c.scrape(ctx, requestID, root)
	if err != nil {
		return model.AggregatedResult{}, err
	}
	if !mainResult.Success {
		kind := scrapeerrors.Kind("Internal")
		if mainResult.Error != nil {
			kind = scrapeerrors.Kind(mainResult.Error.Kind)
		}
		return model.AggregatedResult{}, scrapeerrors.New(kind, "root scrape failed")
	}

	effectiveCfg := c.cfg
	effectiveCfg.MaxDepth = maxDepth
	effectiveCfg.ExcludePatterns = excludePatterns

	selected := SelectSubpages(root, mainResult.Links.PageURLs, k, effectiveCfg, opts.Keywords)

	subpages, links := c.fanOut(ctx, requestID, selected)

	merged := mergeLinkBundles(mainResult.Links, links)
	combined := buildCombinedMarkdown(mainResult, subpages)

	failed := 0
	for _, sp := range subpages {
		if !sp.success {
			failed++
		}
	}

	return model.AggregatedResult{
		RequestID:        requestID,
		MainResult:       mainResult,
		Subpages:         toSummaries(subpages),
		Links:            merged,
		CombinedMarkdown: combined,
		Stats: model.CrawlStats{
			Requested: len(selected),
			Selected:  len(selected),
			Processed: len(subpages) - failed,
			Failed:    failed,
			PerBucketCounts: map[string]int{
				"pageUrls":     len(merged.PageURLs),
				"socialUrls":   len(merged.SocialURLs),
				"contactUrls":  len(merged.ContactURLs),
				"imageUrls":    len(merged.ImageURLs),
				"externalUrls": len(merged.ExternalURLs),
			},
		},
	}, nil
}

// subpageOutcome pairs a ScrapeResult with its ordinal position in the
// original selection, so merge can rebuild a stable, ordered subpage list.
type subpageOutcome struct {
	order   int
	url     string
	result  model.ScrapeResult
	success bool
	errInfo *model.ErrorInfo
}

// fanOut implements §4.4 step 4: subpages run under a concurrency cap,
// in batches of min(2*cap, remaining), with a context-release check
// between every batch and an additional RSS-triggered release.
func (c *Crawler) fanOut(ctx context.Context, requestID string, urls []string) ([]subpageOutcome, []model.LinkBundle) {
	outcomes := make([]subpageOutcome, 0, len(urls))
	bundles := make([]model.LinkBundle, 0, len(urls))

	concurrencyCap := c.cfg.MaxConcurrentSubpageRequests
	if concurrencyCap <= 0 {
		concurrencyCap = 1
	}
	batchSize := 2 * concurrencyCap

	for start := 0; start < len(urls); start += batchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + batchSize
		if end > len(urls) {
			end = len(urls)
		}
		batch := urls[start:end]

		batchOutcomes := c.runBatch(ctx, requestID, batch, start)
		for _, o := range batchOutcomes {
			outcomes = append(outcomes, o)
			if o.success {
				bundles = append(bundles, o.result.Links)
			}
		}

		if c.releaseUnusedContexts != nil {
			c.releaseUnusedContexts()
		}
		if memctl.ReadProcessRSS(c.pid) > c.cfg.RSSReleaseThresholdBytes && c.releaseUnusedContexts != nil {
			c.releaseUnusedContexts()
		}
	}

	sort.SliceStable(outcomes, func(i, j int) bool { return outcomes[i].order < outcomes[j].order })
	return outcomes, bundles
}

// runBatch scrapes one batch of subpage URLs concurrently under the
// §4.4 cap, each with its own SUBPAGE_REQUEST_TIMEOUT deadline.
func (c *Crawler) runBatch(ctx context.Context, requestID string, batch []string, offset int) []subpageOutcome {
	out := make([]subpageOutcome, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxConcurrentSubpageRequests)

	for i, u := range batch {
		i, u := i, u
		g.Go(func() error {
			if ctx.Err() != nil {
				out[i] = subpageOutcome{order: offset + i, url: u, success: false,
					errInfo: &model.ErrorInfo{Kind: string(scrapeerrors.KindCancelled), Message: "crawl cancelled"}}
				return nil
			}

			subCtx, cancel := context.WithTimeout(gctx, c.cfg.SubpageRequestTimeout)
			defer cancel()

			res, err := c.scrape(subCtx, requestID, u)
			if err != nil {
				log.Warn().Str("url", u).Err(err).Msg("subpage scrape failed")
				out[i] = subpageOutcome{order: offset + i, url: u, success: false,
					errInfo: &model.ErrorInfo{Kind: string(scrapeerrors.KindOf(err)), Message: err.Error()}}
				return nil
			}
			out[i] = subpageOutcome{order: offset + i, url: u, result: res, success: res.Success, errInfo: res.Error}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func toSummaries(outcomes []subpageOutcome) []model.SubpageSummary {
	out := make([]model.SubpageSummary, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, model.SubpageSummary{
			URL:     o.url,
			Title:   o.result.Metadata.Title,
			Success: o.success,
			Error:   o.errInfo,
		})
	}
	return out
}

// mergeLinkBundles implements §4.4 step 5: union all bundles by URL, then
// re-apply the social-vs-external exclusion rule over the merged set.
func mergeLinkBundles(root model.LinkBundle, subpages []model.LinkBundle) model.LinkBundle {
	merged := model.NewLinkBundle()

	seenPage, seenSocial, seenExternal, seenImage := map[string]bool{}, map[string]bool{}, map[string]bool{}, map[string]bool{}
	seenContact := map[string]bool{}

	all := append([]model.LinkBundle{root}, subpages...)
	for _, b := range all {
		for _, u := range b.PageURLs {
			if !seenPage[u] {
				seenPage[u] = true
				merged.PageURLs = append(merged.PageURLs, u)
			}
		}
		for _, u := range b.SocialURLs {
			if !seenSocial[u] {
				seenSocial[u] = true
				merged.SocialURLs = append(merged.SocialURLs, u)
			}
		}
		for _, u := range b.ExternalURLs {
			if !seenExternal[u] {
				seenExternal[u] = true
				merged.ExternalURLs = append(merged.ExternalURLs, u)
			}
		}
		for _, u := range b.ImageURLs {
			if !seenImage[u] {
				seenImage[u] = true
				merged.ImageURLs = append(merged.ImageURLs, u)
			}
		}
		for _, ce := range b.ContactURLs {
			key := ce.Type + ":" + ce.URL
			if !seenContact[key] {
				seenContact[key] = true
				merged.ContactURLs = append(merged.ContactURLs, ce)
			}
		}
	}

	social := make(map[string]bool, len(merged.SocialURLs))
	for _, u := range merged.SocialURLs {
		social[u] = true
	}
	kept := make([]string, 0, len(merged.ExternalURLs))
	for _, u := range merged.ExternalURLs {
		if !social[u] {
			kept = append(kept, u)
		}
	}
	merged.ExternalURLs = kept

	return merged
}

// buildCombinedMarkdown implements §4.4 step 5: the root's markdown
// followed by each successful subpage's content under its own heading.
func buildCombinedMarkdown(root model.ScrapeResult, subpages []subpageOutcome) string {
	var b strings.Builder
	b.WriteString(root.Markdown)

	n := 0
	for _, sp := range subpages {
		if !sp.success {
			continue
		}
		n++
		title := sp.result.Metadata.Title
		if title == "" {
			title = sp.url
		}
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "## Subpage %d: %s\n\n", n, title)
		b.WriteString(sp.result.Markdown)
	}
	return b.String()
}
