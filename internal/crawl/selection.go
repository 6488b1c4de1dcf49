// Package crawl implements WebsiteCrawler (§4.4): scrapes a root URL via
// PageScraper, applies SubpageSelection to the root's link graph to
// choose K subpages, fans them out under a secondary concurrency cap,
// and merges the results into an AggregatedResult.
package crawl

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/0xtamizh/scrapebase/internal/model"
)

// candidate is one same-origin URL under scoring, tracked with its
// first-seen index so the §4.4 step 3 tie-break ("first-seen order")
// has something stable to sort on.
type candidate struct {
	url      string
	path     string
	score    int
	firstSeen int
}

// NormalizeRootURL implements §4.4 step 1: add scheme if missing,
// lowercase, and coerce http to https.
func NormalizeRootURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(strings.ToLower(raw))
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	u.Fragment = ""
	return u.String(), nil
}

// SelectSubpages implements the §4.4 step 3 SubpageSelection algorithm: a
// deterministic scoring pass over rootPageURLs, filtered to same-origin,
// pattern-excluded, and depth-bounded candidates, returning up to k URLs.
func SelectSubpages(rootURL string, rootPageURLs []string, k int, cfg model.WebsiteCrawlerConfig, extraKeywords []string) []string {
	root, err := url.Parse(rootURL)
	if err != nil {
		return nil
	}
	rootHost := stripWWW(root.Host)
	normalizedRoot := normalizeForDedup(rootURL)

	seen := map[string]bool{}
	var candidates []candidate
	for i, raw := range rootPageURLs {
		resolved, ok := resolveSameOrigin(root, rawURLOrEmpty(raw), rootHost)
		if !ok {
			continue
		}
		key := normalizeForDedup(resolved)
		if seen[key] || key == normalizedRoot {
			continue
		}
		seen[key] = true

		if matchesAnyExcludePattern(resolved, cfg.ExcludePatterns) {
			continue
		}

		depth := pathDepth(resolved)
		if depth > cfg.MaxDepth {
			continue
		}

		candidates = append(candidates, candidate{
			url:       resolved,
			path:      pathOf(resolved),
			score:     scoreCandidate(resolved, depth, cfg.MaxDepth, extraKeywords, cfg.ImportantSections),
			firstSeen: i,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].firstSeen < candidates[j].firstSeen
	})

	topN := 2 * k
	if topN > len(candidates) {
		topN = len(candidates)
	}
	top := candidates[:topN]

	out := make([]string, 0, k)
	dedup := map[string]bool{}
	for _, c := range top {
		key := normalizeForDedup(c.url)
		if dedup[key] || key == normalizedRoot {
			continue
		}
		dedup[key] = true
		out = append(out, c.url)
		if len(out) >= k {
			break
		}
	}
	return out
}

// scoreCandidate implements the §4.4 step 3 scoring formula:
// (maxDepth − depth) × 10 + max(0, 100 − pathLength) + 20 × keyword-hits
// + 15 × important-section-hits.
func scoreCandidate(resolved string, depth, maxDepth int, keywords, importantSections []string) int {
	path := pathOf(resolved)
	score := (maxDepth - depth) * 10
	if bonus := 100 - len(path); bonus > 0 {
		score += bonus
	}

	lower := strings.ToLower(path)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			score += 20
		}
	}
	for _, section := range importantSections {
		if strings.Contains(lower, section) {
			score += 15
		}
	}
	return score
}

// pathDepth counts non-empty path segments.
func pathDepth(rawURL string) int {
	p := pathOf(rawURL)
	segments := 0
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			segments++
		}
	}
	return segments
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}

func matchesAnyExcludePattern(rawURL string, patterns []string) bool {
	lower := strings.ToLower(rawURL)
	for _, p := range patterns {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// resolveSameOrigin resolves raw relative to root and reports whether
// the result is same-origin (host equality after stripping leading
// "www."), per §4.4 step 3.
func resolveSameOrigin(root *url.URL, raw, rootHost string) (string, bool) {
	if raw == "" {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	resolved := root.ResolveReference(ref)
	resolved.Fragment = ""
	if stripWWW(resolved.Host) != rootHost {
		return "", false
	}
	return resolved.String(), true
}

func stripWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// normalizeForDedup lowercases scheme+host, strips a trailing fragment
// and a trailing slash, for the §3/§4.4 dedup-by-normalized-form rule.
func normalizeForDedup(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(rawURL)
	}
	u.Fragment = ""
	u.Host = strings.ToLower(stripWWW(u.Host))
	u.Scheme = strings.ToLower(u.Scheme)
	s := u.String()
	return strings.TrimSuffix(s, "/")
}

func rawURLOrEmpty(s string) string {
	return strings.TrimSpace(s)
}
