// Package article wraps the external ExtractArticle collaborator (§6):
// go-shiori/go-readability's reader-mode extraction, adapted into
// model.Article and the §7 error taxonomy.
package article

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/go-shiori/go-readability"

	"github.com/0xtamizh/scrapebase/internal/model"
	"github.com/0xtamizh/scrapebase/internal/scrapeerrors"
)

// Extract runs readability over rawHTML and returns the cleaned article.
// It fails with KindExtraction if the library errors or returns no text.
func Extract(rawHTML, pageURL string) (model.Article, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return model.Article{}, scrapeerrors.Wrap(scrapeerrors.KindExtraction, "parsing page URL for extraction", err)
	}

	art, err := readability.FromReader(strings.NewReader(rawHTML), parsed)
	if err != nil {
		return model.Article{}, scrapeerrors.Wrap(scrapeerrors.KindExtraction, "extracting readable article", err)
	}

	text := cleanText(art.TextContent)
	if text == "" {
		return model.Article{}, scrapeerrors.New(scrapeerrors.KindExtraction, "extractor returned empty content")
	}

	return model.Article{
		Title:       art.Title,
		TextContent: text,
		HTMLContent: art.Content,
		Excerpt:     art.Excerpt,
		SiteName:    art.SiteName,
		Lang:        art.Language,
	}, nil
}

var (
	tabs       = regexp.MustCompile(`\t+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
	innerSpace = regexp.MustCompile(`[ \x{00A0}]{2,}`)
)

// cleanText implements §4.3 step 8's text-cleaning pass: tabs to spaces,
// collapse runs of blank lines, collapse runs of whitespace, trim each line.
func cleanText(s string) string {
	s = tabs.ReplaceAllString(s, " ")
	s = innerSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")

	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
