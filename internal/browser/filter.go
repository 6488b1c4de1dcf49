package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockedURLSubstrings are the consent/tracking URL families aborted by
// the resource filter (§4.3 step 3). Per the §9 open-question decision,
// this filter is installed exactly once, here, at page-creation time —
// not a second time inside PageScraper.
var blockedURLSubstrings = []string{
	"onetrust",
	"cookielaw",
	"cookie-consent",
	"cookie-policy",
	"privacy-policy",
	"gdpr",
}

// allowedResourceTypes are the resource types let through unconditionally.
// proto.NetworkResourceTypeImage is handled separately: only allowed when
// the request URL contains "logo".
var allowedResourceTypes = map[proto.NetworkResourceType]bool{
	proto.NetworkResourceTypeDocument:   true,
	proto.NetworkResourceTypeScript:     true,
	proto.NetworkResourceTypeStylesheet: true,
	proto.NetworkResourceTypeFetch:      true,
	proto.NetworkResourceTypeXHR:        true,
}

// installResourceFilter wires the §4.3 routing rule onto page. It must be
// called exactly once per page, before any navigation.
func installResourceFilter(page *rod.Page) {
	router := page.HijackRequests()

	router.MustAdd("*", func(hijack *rod.Hijack) {
		reqURL := strings.ToLower(hijack.Request.URL().String())

		for _, blocked := range blockedURLSubstrings {
			if strings.Contains(reqURL, blocked) {
				hijack.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}

		resourceType := hijack.Request.Type()
		if resourceType == proto.NetworkResourceTypeImage {
			if strings.Contains(reqURL, "logo") {
				hijack.ContinueRequest(&proto.FetchContinueRequest{})
			} else {
				hijack.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			}
			return
		}

		if allowedResourceTypes[resourceType] {
			hijack.ContinueRequest(&proto.FetchContinueRequest{})
			return
		}

		hijack.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
	})

	go router.Run()
}
