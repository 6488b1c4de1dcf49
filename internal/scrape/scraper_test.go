package scrape

import (
	"testing"
	"time"

	"github.com/0xtamizh/scrapebase/internal/scrapeerrors"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr scrapeerrors.Kind
	}{
		{name: "bare host gets scheme", in: "example.com", want: "https://example.com"},
		{name: "already has scheme", in: "http://example.com/path", want: "http://example.com/path"},
		{name: "trims whitespace", in: "  example.com  ", want: "https://example.com"},
		{name: "empty is missing param", in: "", wantErr: scrapeerrors.KindMissingParam},
		{name: "no host is invalid", in: "https://", wantErr: scrapeerrors.KindInvalidUrl},
		{name: "unsupported scheme is invalid", in: "ftp://example.com", wantErr: scrapeerrors.KindInvalidUrl},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := NormalizeURL(c.in)
			if c.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error kind %s, got nil (result %q)", c.wantErr, got)
				}
				if scrapeerrors.KindOf(err) != c.wantErr {
					t.Fatalf("expected kind %s, got %s", c.wantErr, scrapeerrors.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Errorf("got %q, want %q", got, c.want)
			}
		})
	}
}

// TestBackoffSchedule is the §4.2/§8 scenario 2 backoff schedule:
// min(1000*2^(attempt-1), 5000) ms.
func TestBackoffSchedule(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second}, // would be 8s uncapped; clamped to 5s
		{5, 5 * time.Second},
	}
	for _, c := range cases {
		if got := backoffFor(c.attempt); got != c.want {
			t.Errorf("backoffFor(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}
