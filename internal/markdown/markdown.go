// Package markdown wraps the external ToMarkdown collaborator (§6):
// JohannesKaufmann/html-to-markdown configured per §4.3 step 9 (ATX
// headings, "-" bullets, fenced code blocks, reference-style links
// and images).
package markdown

import (
	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"

	"github.com/0xtamizh/scrapebase/internal/scrapeerrors"
)

func newConverter() *md.Converter {
	conv := md.NewConverter("", true, &md.Options{
		HeadingStyle:      "atx",
		BulletListMarker:  "-",
		CodeBlockStyle:    "fenced",
		LinkStyle:         "referenced",
		LinkReferenceStyle: "full",
	})
	conv.Use(plugin.GitHubFlavored())
	return conv
}

// ToMarkdown converts an HTML fragment to markdown under the fixed §4.3
// step 9 options, wrapping conversion failures as KindInternal since a
// markdown-conversion failure is not attributable to the target page.
func ToMarkdown(htmlFragment string) (string, error) {
	out, err := newConverter().ConvertString(htmlFragment)
	if err != nil {
		return "", scrapeerrors.Wrap(scrapeerrors.KindInternal, "converting HTML to markdown", err)
	}
	return out, nil
}
