package scrape

import (
	"strings"

	"github.com/0xtamizh/scrapebase/internal/model"
)

// buildLinkBundle turns one page's raw extraction into a classified
// LinkBundle per §4.3 steps 6-7, applying the configured content-size
// caps and the cross-bundle social/external rule.
func buildLinkBundle(ex extraction, cfg model.PageScraperConfig) model.LinkBundle {
	bundle := model.NewLinkBundle()

	seenPage := map[string]bool{}
	seenSocial := map[string]bool{}
	seenExternal := map[string]bool{}
	seenImage := map[string]bool{}
	seenContact := map[string]bool{}

	addContact := func(kind, url string) {
		key := kind + ":" + url
		if seenContact[key] {
			return
		}
		seenContact[key] = true
		bundle.ContactURLs = append(bundle.ContactURLs, model.ContactEntry{Type: kind, URL: url})
	}

	for _, l := range ex.Links {
		if l.IsMailto {
			addr := strings.SplitN(strings.TrimPrefix(l.Href, "mailto:"), "?", 2)[0]
			if addr != "" {
				addContact("email", addr)
			}
			continue
		}

		if l.ContactKind != "" {
			addContact(l.ContactKind, l.Href)
		}

		if l.IsSocial && !seenSocial[l.Href] {
			seenSocial[l.Href] = true
			bundle.SocialURLs = append(bundle.SocialURLs, l.Href)
		}

		if l.IsInternal {
			if !seenPage[l.Href] {
				seenPage[l.Href] = true
				bundle.PageURLs = append(bundle.PageURLs, l.Href)
			}
			continue
		}

		if !seenExternal[l.Href] && len(bundle.ExternalURLs) < cfg.MaxExternalLinks {
			seenExternal[l.Href] = true
			bundle.ExternalURLs = append(bundle.ExternalURLs, l.Href)
		}
	}

	scannedEmails := 0
	for _, addr := range emailPattern.FindAllString(ex.BodyText, -1) {
		if scannedEmails >= cfg.MaxContactEmails {
			break
		}
		before := len(bundle.ContactURLs)
		addContact("email", addr)
		if len(bundle.ContactURLs) > before {
			scannedEmails++
		}
	}

	for _, img := range ex.Images {
		if len(bundle.ImageURLs) >= cfg.MaxImagesLinks {
			break
		}
		if !seenImage[img] {
			seenImage[img] = true
			bundle.ImageURLs = append(bundle.ImageURLs, img)
		}
	}

	applyCrossBundleRule(&bundle)
	return bundle
}

// applyCrossBundleRule implements §3's invariant: a URL present in
// socialUrls is removed from externalUrls.
func applyCrossBundleRule(b *model.LinkBundle) {
	social := make(map[string]bool, len(b.SocialURLs))
	for _, u := range b.SocialURLs {
		social[u] = true
	}
	kept := make([]string, 0, len(b.ExternalURLs))
	for _, u := range b.ExternalURLs {
		if !social[u] {
			kept = append(kept, u)
		}
	}
	b.ExternalURLs = kept
}
