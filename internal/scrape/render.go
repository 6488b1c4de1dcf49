package scrape

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/0xtamizh/scrapebase/internal/markdown"
	"github.com/0xtamizh/scrapebase/internal/model"
)

var trailingRefBlock = regexp.MustCompile(`(?m)^\[\d+\]:\s.*$`)

// refCollector assigns sequential reference numbers to the links emitted
// outside the article body, continuing the numbering the markdown
// converter already used inside it.
type refCollector struct {
	next int
	defs []string
}

func newRefCollector(startAt int) *refCollector {
	return &refCollector{next: startAt}
}

func (c *refCollector) add(url string) int {
	n := c.next
	c.next++
	c.defs = append(c.defs, fmt.Sprintf("[%d]: %s", n, url))
	return n
}

// buildMarkdown assembles the §4.3 step 9 sectioned document: title,
// article content, navigation/social/contact/footer sections, and a
// single trailing block of reference-style link definitions.
func buildMarkdown(title string, article model.Article, links model.LinkBundle, footer string, navLinks []navLink) (string, error) {
	coreMD, err := markdown.ToMarkdown(article.HTMLContent)
	if err != nil {
		return "", err
	}

	bodyRefs := trailingRefBlock.FindAllString(coreMD, -1)
	coreBody := strings.TrimRight(trailingRefBlock.ReplaceAllString(coreMD, ""), "\n")

	refs := newRefCollector(len(bodyRefs) + 1)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", firstNonEmpty(title, article.Title))
	b.WriteString("## Core Content\n\n")
	b.WriteString(coreBody)
	b.WriteString("\n\n")

	if len(navLinks) > 0 {
		b.WriteString("## Navigation\n\n")
		for _, l := range navLinks {
			n := refs.add(l.Href)
			text := l.Text
			if text == "" {
				text = l.Href
			}
			fmt.Fprintf(&b, "- %s[%d]\n", text, n)
		}
		b.WriteString("\n")
	}

	if len(links.SocialURLs) > 0 {
		b.WriteString("## Social Media\n\n")
		for _, u := range links.SocialURLs {
			n := refs.add(u)
			fmt.Fprintf(&b, "- %s[%d]\n", u, n)
		}
		b.WriteString("\n")
	}

	if len(links.ContactURLs) > 0 {
		b.WriteString("## Contact Information\n\n")
		for _, c := range links.ContactURLs {
			n := refs.add(c.URL)
			fmt.Fprintf(&b, "- %s: %s[%d]\n", c.Type, c.URL, n)
		}
		b.WriteString("\n")
	}

	if footer != "" {
		b.WriteString("## Footer\n\n")
		b.WriteString(footer)
		b.WriteString("\n\n")
	}

	allDefs := append(append([]string{}, bodyRefs...), refs.defs...)
	if len(allDefs) > 0 {
		b.WriteString(strings.Join(allDefs, "\n"))
		b.WriteString("\n")
	}

	return collapseBlankLines(b.String()), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

var blankRuns = regexp.MustCompile(`\n{4,}`)

// collapseBlankLines implements §4.3 step 9's "collapse runs of 3+ blank
// lines to 2".
func collapseBlankLines(s string) string {
	return blankRuns.ReplaceAllString(s, "\n\n\n")
}
