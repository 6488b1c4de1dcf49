package scrape

import (
	"github.com/go-rod/rod"

	"github.com/0xtamizh/scrapebase/internal/model"
	"github.com/0xtamizh/scrapebase/internal/scrapeerrors"
)

// rawLink is one anchor extracted in-page, already classified against the
// fixed platform/service tables passed in as JS arguments.
type rawLink struct {
	Href        string `json:"href"`
	IsSocial    bool   `json:"isSocial"`
	ContactKind string `json:"contactKind"`
	IsInternal  bool   `json:"isInternal"`
	IsMailto    bool   `json:"isMailto"`
}

type navLink struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// extraction is everything pulled out of a page in the single in-page
// round trip described by §4.3 step 6.
type extraction struct {
	Metadata   model.Metadata `json:"metadata"`
	NavLinks   []navLink      `json:"navLinks"`
	Links      []rawLink      `json:"links"`
	Images     []string       `json:"images"`
	FooterText string         `json:"footerText"`
	BodyText   string         `json:"bodyText"`
	RawHTML    string         `json:"rawHtml"`
}

// extractPageJS is evaluated once per page. It takes the social-host
// substrings and contact-service substring/kind pairs so classification
// happens in the same round trip as the raw DOM walk, rather than a
// second Evaluate call.
const extractPageJS = `(socialSubs, contactSubs, footerCharLimit, bodyCharLimit) => {
	function hasAny(s, list) {
		for (var i = 0; i < list.length; i++) {
			if (s.indexOf(list[i]) !== -1) return true;
		}
		return false;
	}
	function contactKindOf(s) {
		for (var i = 0; i < contactSubs.length; i++) {
			if (s.indexOf(contactSubs[i][0]) !== -1) return contactSubs[i][1];
		}
		return "";
	}
	function meta(name, attr) {
		attr = attr || "name";
		var el = document.querySelector('meta[' + attr + '="' + name + '"]');
		return el ? (el.getAttribute("content") || "") : "";
	}

	var metadata = {
		title: document.title || meta("og:title", "property"),
		description: meta("description") || meta("og:description", "property"),
		siteName: meta("og:site_name", "property"),
		type: meta("og:type", "property"),
		lang: document.documentElement.lang || "",
		ogImage: meta("og:image", "property"),
	};

	var navLinks = [];
	var navSeen = {};
	document.querySelectorAll("nav a[href], header a[href]").forEach(function (a) {
		var href = a.href;
		if (!href || navSeen[href]) return;
		navSeen[href] = true;
		navLinks.push({ href: href, text: (a.textContent || "").trim() });
	});

	var origin = window.location.hostname.replace(/^www\./, "");
	var links = [];
	var linkSeen = {};
	document.querySelectorAll("a[href]").forEach(function (a) {
		var href = a.getAttribute("href") || "";
		if (!href || linkSeen[href]) return;
		linkSeen[href] = true;

		if (href.indexOf("mailto:") === 0) {
			links.push({ href: href, isSocial: false, contactKind: "email", isInternal: false, isMailto: true });
			return;
		}

		var resolved = a.href;
		if (!resolved || resolved.indexOf("http") !== 0) return;

		var lower = resolved.toLowerCase();
		var host = "";
		try {
			host = new URL(resolved).hostname.replace(/^www\./, "");
		} catch (e) {
			return;
		}

		links.push({
			href: resolved,
			isSocial: hasAny(lower, socialSubs),
			contactKind: contactKindOf(lower),
			isInternal: host === origin,
			isMailto: false,
		});
	});

	var images = [];
	var imgSeen = {};
	document.querySelectorAll("img[src]").forEach(function (img) {
		var src = img.src;
		if (src && !imgSeen[src]) {
			imgSeen[src] = true;
			images.push(src);
		}
	});

	var footerEl = document.querySelector("footer");
	var footerText = footerEl ? (footerEl.innerText || "").slice(0, footerCharLimit) : "";

	var bodyText = (document.body ? (document.body.innerText || "") : "").slice(0, bodyCharLimit);

	return {
		metadata: metadata,
		navLinks: navLinks,
		links: links,
		images: images,
		footerText: footerText,
		bodyText: bodyText,
		rawHtml: document.documentElement.outerHTML,
	};
}`

// socialSubstringArgs and contactSubstringArgs are the JS-args encodings
// of the fixed tables in links.go.
func socialSubstringArgs() []interface{} {
	out := make([]interface{}, len(socialHostSubstrings))
	for i, s := range socialHostSubstrings {
		out[i] = s
	}
	return out
}

func contactSubstringArgs() []interface{} {
	out := make([]interface{}, len(contactServiceSubstrings))
	for i, cs := range contactServiceSubstrings {
		out[i] = []interface{}{cs.substr, cs.kind}
	}
	return out
}

// extractPage runs the §4.3 step 6 round trip against page.
func extractPage(page *rod.Page, footerCharLimit, bodyCharLimit int) (extraction, error) {
	res, err := page.Evaluate(&rod.EvalOptions{
		JS: extractPageJS,
		JSArgs: []interface{}{
			socialSubstringArgs(),
			contactSubstringArgs(),
			footerCharLimit,
			bodyCharLimit,
		},
	})
	if err != nil {
		return extraction{}, scrapeerrors.Wrap(scrapeerrors.KindExtraction, "running in-page extraction", err)
	}

	var ex extraction
	if err := res.Value.Unmarshal(&ex); err != nil {
		return extraction{}, scrapeerrors.Wrap(scrapeerrors.KindExtraction, "decoding extraction result", err)
	}
	return ex, nil
}
