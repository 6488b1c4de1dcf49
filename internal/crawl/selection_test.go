package crawl

import (
	"reflect"
	"sort"
	"testing"

	"github.com/0xtamizh/scrapebase/internal/model"
)

// TestSelectSubpages is §8 scenario 4: root https://site.com, maxDepth=2,
// K=3, candidates {/about, /privacy, /products/x, /products/x/y/z
// (depth=4), /cart, /features}. Expected selection = {/about,
// /products/x, /features}: /privacy and /cart excluded by pattern,
// /products/x/y/z excluded by depth.
func TestSelectSubpages(t *testing.T) {
	cfg := model.DefaultWebsiteCrawlerConfig()
	cfg.MaxDepth = 2

	candidates := []string{
		"https://site.com/about",
		"https://site.com/privacy",
		"https://site.com/products/x",
		"https://site.com/products/x/y/z",
		"https://site.com/cart",
		"https://site.com/features",
	}

	selected := SelectSubpages("https://site.com", candidates, 3, cfg, nil)

	want := []string{
		"https://site.com/about",
		"https://site.com/products/x",
		"https://site.com/features",
	}

	gotSorted := append([]string{}, selected...)
	wantSorted := append([]string{}, want...)
	sort.Strings(gotSorted)
	sort.Strings(wantSorted)

	if !reflect.DeepEqual(gotSorted, wantSorted) {
		t.Fatalf("selection mismatch:\n got: %v\nwant: %v", selected, want)
	}
	if len(selected) > 3 {
		t.Errorf("selection exceeds K=3: %v", selected)
	}
}

func TestSelectSubpagesExcludesRootAndOffOrigin(t *testing.T) {
	cfg := model.DefaultWebsiteCrawlerConfig()

	candidates := []string{
		"https://site.com",
		"https://site.com/",
		"https://other.com/about",
		"https://www.site.com/products",
	}

	selected := SelectSubpages("https://site.com", candidates, 5, cfg, nil)

	for _, u := range selected {
		if u == "https://site.com" || u == "https://site.com/" {
			t.Errorf("root URL must not appear in subpage selection, got %v", selected)
		}
	}
	if !contains(selected, "https://www.site.com/products") {
		t.Errorf("expected www-prefixed same-origin candidate to be selected, got %v", selected)
	}
	if contains(selected, "https://other.com/about") {
		t.Errorf("off-origin candidate must not be selected, got %v", selected)
	}
}

func TestSelectSubpagesDedupesByNormalizedForm(t *testing.T) {
	cfg := model.DefaultWebsiteCrawlerConfig()

	candidates := []string{
		"https://site.com/about",
		"https://site.com/about/",
		"https://SITE.com/about",
	}

	selected := SelectSubpages("https://site.com", candidates, 5, cfg, nil)
	if len(selected) != 1 {
		t.Errorf("expected duplicates collapsed to 1 entry, got %v", selected)
	}
}

// TestSelectSubpagesScoresKeywordsAndImportantSectionsIndependently covers
// the §4.4 step 3 formula's two scoring terms separately: a caller keyword
// hit (+20) must not also trigger the fixed important-section bonus
// (+15), and vice versa.
func TestSelectSubpagesScoresKeywordsAndImportantSectionsIndependently(t *testing.T) {
	cfg := model.DefaultWebsiteCrawlerConfig()
	cfg.MaxDepth = 2

	candidates := []string{
		"https://site.com/about",   // important section only
		"https://site.com/pricing", // custom keyword only
		"https://site.com/misc",    // neither
	}

	selected := SelectSubpages("https://site.com", candidates, 1, cfg, []string{"pricing"})

	if len(selected) != 1 || selected[0] != "https://site.com/pricing" {
		t.Fatalf("expected the custom-keyword match to outscore the important-section match, got %v", selected)
	}
}

func TestScoreCandidateKeywordAndImportantSectionAreIndependentTerms(t *testing.T) {
	const u = "https://site.com/about"

	neither := scoreCandidate(u, 1, 2, nil, nil)
	importantOnly := scoreCandidate(u, 1, 2, nil, []string{"/about"})
	keywordOnly := scoreCandidate(u, 1, 2, []string{"about"}, nil)
	both := scoreCandidate(u, 1, 2, []string{"about"}, []string{"/about"})

	if got, want := importantOnly-neither, 15; got != want {
		t.Errorf("important-section bonus = %d, want %d", got, want)
	}
	if got, want := keywordOnly-neither, 20; got != want {
		t.Errorf("keyword bonus = %d, want %d", got, want)
	}
	if got, want := both-neither, 35; got != want {
		t.Errorf("combined bonus = %d, want %d (terms must be additive and independent)", got, want)
	}
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}
