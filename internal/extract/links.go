// Package extract implements the HTML-analysis stage of the
// fetch-and-render pipeline: link classification, page metadata, and a
// thin entity scan, each a pure function of (html, baseURL). Grounded
// on the teacher's GoqueryParser for link walking, generalized to
// classify internal/external links via the normalizer package instead
// of bare same-hostname comparison.
package extract

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/avenir-dev/iawic/internal/normalizer"
)

// Link is a single extracted anchor or canonical link.
type Link struct {
	URL        string
	Text       string
	Title      string
	IsNofollow bool
	IsInternal bool
}

// Links is the outcome of a link-extraction pass over one page.
type Links struct {
	Internal []string
	External []string
	All      []Link
}

var skipSchemes = map[string]bool{
	"javascript": true, "mailto": true, "tel": true, "data": true,
	"ftp": true, "file": true, "blob": true, "sms": true,
}

// LinkExtractor walks anchor and canonical-link tags with goquery,
// classifying each into internal/external sets.
type LinkExtractor struct {
	excludedExts      map[string]bool
	includeSubdomains bool
}

// NewLinkExtractor creates a LinkExtractor. By default subdomains of
// the page's registered domain count as internal.
func NewLinkExtractor(includeSubdomains bool, excludedExts ...string) *LinkExtractor {
	exts := make(map[string]bool, len(excludedExts))
	for _, e := range excludedExts {
		exts[e] = true
	}
	return &LinkExtractor{excludedExts: exts, includeSubdomains: includeSubdomains}
}

// Extract parses html and returns every internal/external link found,
// resolved against baseURL and deduplicated within the call.
func (e *LinkExtractor) Extract(html string, baseURL string) (Links, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Links{}, err
	}

	norm := normalizer.New()
	seen := new(sync.Map)
	var links Links

	doc.Find("a,link").FilterFunction(func(i int, sel *goquery.Selection) bool {
		href, hrefExists := sel.Attr("href")
		if !hrefExists || e.excludedExts[filepath.Ext(href)] {
			return false
		}
		if sel.Is("link") {
			rel, _ := sel.Attr("rel")
			return rel == "canonical"
		}
		return true
	}).Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || href == "#" || strings.HasPrefix(href, "#") {
			return
		}
		if parsed, err := url.Parse(href); err == nil && parsed.Scheme != "" && skipSchemes[strings.ToLower(parsed.Scheme)] {
			return
		}

		normalized, ok := norm.Normalize(href, baseURL)
		if !ok {
			return
		}
		if _, loaded := seen.LoadOrStore(normalized, true); loaded {
			return
		}

		isInternal := normalizer.IsInternalLink(normalized, baseURL, e.includeSubdomains)
		rel, _ := sel.Attr("rel")
		text := strings.TrimSpace(sel.Text())
		if len(text) > 200 {
			text = text[:200]
		}

		links.All = append(links.All, Link{
			URL: normalized, Text: text, Title: sel.AttrOr("title", ""),
			IsNofollow: strings.Contains(rel, "nofollow"), IsInternal: isInternal,
		})
		if isInternal {
			links.Internal = append(links.Internal, normalized)
		} else {
			links.External = append(links.External, normalized)
		}
	})

	return links, nil
}
