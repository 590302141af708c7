package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var removeTags = []string{"script", "style", "noscript", "iframe", "embed", "object", "applet", "canvas", "svg"}

var boilerplateSelectors = []string{
	"nav", "header", "footer", "aside",
	".nav", ".navigation", ".menu", ".sidebar",
	".advertisement", ".ad", ".social", ".share", ".related", ".comments",
	"#nav", "#navigation", "#menu", "#sidebar", "#comments",
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanText strips script/style content and common boilerplate
// containers (nav/header/footer/sidebar/ads/comments) from html, then
// returns the remaining visible text with runs of whitespace
// collapsed. Grounded on the reference ContentCleaner's tag/selector
// removal lists, minus the readability-based "main content" heuristic
// (out of scope for a thin extraction seam).
func CleanText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	for _, tag := range removeTags {
		doc.Find(tag).Remove()
	}
	for _, sel := range boilerplateSelectors {
		doc.Find(sel).Remove()
	}

	text := doc.Text()
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text), nil
}
