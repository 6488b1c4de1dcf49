package scrape

import "regexp"

// socialHostSubstrings is the fixed platform table from §4.3: a link is
// social if its host contains any of these substrings.
var socialHostSubstrings = []string{
	"twitter.com", "t.co",
	"facebook.com", "fb.com",
	"instagram.com",
	"linkedin.com",
	"youtube.com",
	"tiktok.com",
	"reddit.com",
	"github.com",
}

// contactServiceSubstring pairs a host substring with the contact-entry
// type it implies.
type contactServiceSubstring struct {
	substr string
	kind   string
}

// contactServiceSubstrings is the fixed service table from §4.3.
var contactServiceSubstrings = []contactServiceSubstring{
	{"calendly.com", "calendar"},
	{"cal.com", "calendar"},
	{"youcanbook.me", "calendar"},
	{"meetingbird.com", "calendar"},
	{"doodle.com", "calendar"},
	{"meetbot", "calendar"},
	{"meet.google.com", "meeting"},
	{"zoom.us", "meeting"},
	{"teams.microsoft.com", "meeting"},
	{"webex.com", "meeting"},
	{"gotomeeting.com", "meeting"},
	{"forms.", "form"},
	{"typeform", "form"},
	{"surveymonkey", "form"},
	{"formstack", "form"},
	{"wufoo", "form"},
	{"jotform", "form"},
	{"intercom", "chat"},
	{"zendesk", "chat"},
	{"livechat", "chat"},
	{"tawk.to", "chat"},
	{"drift.com", "chat"},
	{"olark", "chat"},
	{"chatwoot", "chat"},
}

// emailPattern matches plain email addresses inside page body text, for
// the §4.3 step 7 body-text email scan.
var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
