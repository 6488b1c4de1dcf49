package scrape

import (
	"strings"
	"testing"

	"github.com/0xtamizh/scrapebase/internal/model"
)

func TestBuildMarkdownSections(t *testing.T) {
	article := model.Article{
		Title:       "Example Page",
		HTMLContent: "<p>Hello world.</p>",
	}
	links := model.LinkBundle{
		SocialURLs:  []string{"https://twitter.com/x"},
		ContactURLs: []model.ContactEntry{{Type: "email", URL: "hi@example.com"}},
	}
	nav := []navLink{{Href: "https://example.com/about", Text: "About"}}

	md, err := buildMarkdown("Example Page", article, links, "© 2026 Example", nav)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"# Example Page",
		"## Core Content",
		"## Navigation",
		"## Social Media",
		"## Contact Information",
		"## Footer",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown to contain %q, got:\n%s", want, md)
		}
	}
}

func TestCollapseBlankLines(t *testing.T) {
	in := "a\n\n\n\n\nb"
	got := collapseBlankLines(in)
	if strings.Count(got, "\n\n\n") != 1 || strings.Contains(got, "\n\n\n\n") {
		t.Errorf("expected runs of 3+ blank lines collapsed to 2, got %q", got)
	}
}

func TestRefCollectorSequentialNumbering(t *testing.T) {
	c := newRefCollector(3)
	n1 := c.add("https://a.example")
	n2 := c.add("https://b.example")
	if n1 != 3 || n2 != 4 {
		t.Errorf("expected sequential numbering starting at 3, got %d %d", n1, n2)
	}
	if len(c.defs) != 2 {
		t.Errorf("expected 2 ref defs, got %v", c.defs)
	}
}
