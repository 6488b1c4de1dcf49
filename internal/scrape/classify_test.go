package scrape

import (
	"testing"

	"github.com/0xtamizh/scrapebase/internal/model"
)

// TestBuildLinkBundleClassification is §8 scenario 3: given links to
// twitter, a same-platform-free blog, a mailto, and a calendar service,
// social contains only twitter, external contains the blog but not
// twitter, and contact contains two entries {email, calendar}.
func TestBuildLinkBundleClassification(t *testing.T) {
	ex := extraction{
		Links: []rawLink{
			{Href: "https://twitter.com/x", IsSocial: true, IsInternal: false},
			{Href: "https://blog.example.com", IsSocial: false, IsInternal: false},
			{Href: "mailto:a@b.com", IsMailto: true},
			{Href: "https://calendly.com/x", ContactKind: "calendar", IsInternal: false},
		},
	}

	bundle := buildLinkBundle(ex, model.DefaultPageScraperConfig())

	if !contains(bundle.SocialURLs, "https://twitter.com/x") {
		t.Errorf("expected social to contain twitter, got %v", bundle.SocialURLs)
	}
	if len(bundle.SocialURLs) != 1 {
		t.Errorf("expected exactly 1 social url, got %v", bundle.SocialURLs)
	}

	if !contains(bundle.ExternalURLs, "https://blog.example.com") {
		t.Errorf("expected external to contain blog, got %v", bundle.ExternalURLs)
	}
	if contains(bundle.ExternalURLs, "https://twitter.com/x") {
		t.Errorf("twitter must not appear in external, got %v", bundle.ExternalURLs)
	}

	if len(bundle.ContactURLs) != 2 {
		t.Fatalf("expected 2 contact entries, got %v", bundle.ContactURLs)
	}
	kinds := map[string]bool{}
	for _, c := range bundle.ContactURLs {
		kinds[c.Type] = true
	}
	if !kinds["email"] || !kinds["calendar"] {
		t.Errorf("expected contact kinds {email, calendar}, got %v", bundle.ContactURLs)
	}
}

// TestCrossBundleRuleRemovesSocialFromExternal is the §3 invariant
// applied directly: a URL present in socialUrls must not remain in
// externalUrls after the cross-bundle rule runs.
func TestCrossBundleRuleRemovesSocialFromExternal(t *testing.T) {
	b := model.LinkBundle{
		SocialURLs:   []string{"https://github.com/org/repo"},
		ExternalURLs: []string{"https://github.com/org/repo", "https://other.example.com"},
	}
	applyCrossBundleRule(&b)

	if contains(b.ExternalURLs, "https://github.com/org/repo") {
		t.Errorf("expected github url removed from external, got %v", b.ExternalURLs)
	}
	if !contains(b.ExternalURLs, "https://other.example.com") {
		t.Errorf("expected unrelated external url retained, got %v", b.ExternalURLs)
	}
}

func TestBuildLinkBundleDedupesByURL(t *testing.T) {
	ex := extraction{
		Links: []rawLink{
			{Href: "https://example.com/a", IsInternal: true},
			{Href: "https://example.com/a", IsInternal: true},
		},
		Images: []string{"https://example.com/logo.png", "https://example.com/logo.png"},
	}

	bundle := buildLinkBundle(ex, model.DefaultPageScraperConfig())

	if len(bundle.PageURLs) != 1 {
		t.Errorf("expected deduped page urls, got %v", bundle.PageURLs)
	}
	if len(bundle.ImageURLs) != 1 {
		t.Errorf("expected deduped image urls, got %v", bundle.ImageURLs)
	}
}

func TestBuildLinkBundleCapsAndEmailScan(t *testing.T) {
	cfg := model.DefaultPageScraperConfig()
	cfg.MaxContactEmails = 2

	ex := extraction{
		BodyText: "contact bob@example.com or alice@example.com or carol@example.com",
	}
	bundle := buildLinkBundle(ex, cfg)

	emailCount := 0
	for _, c := range bundle.ContactURLs {
		if c.Type == "email" {
			emailCount++
		}
	}
	if emailCount != 2 {
		t.Errorf("expected email scan capped at 2, got %d (%v)", emailCount, bundle.ContactURLs)
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
