package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Metadata is the outcome of a metadata-extraction pass over one page.
type Metadata struct {
	Title        string
	Description  string
	CanonicalURL string
	Language     string
	Charset      string
	Author       string
	Keywords     []string
	Robots       string
	Favicon      string
	OpenGraph    map[string]string
	TwitterCard  map[string]string
}

// ExtractMetadata pulls title, standard meta tags, OpenGraph/Twitter
// Card properties, canonical link, and favicon out of html. Grounded
// on the reference MetadataExtractor's field set; goquery replaces
// BeautifulSoup.
func ExtractMetadata(html string, baseURL string) (Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Metadata{}, err
	}

	meta := Metadata{OpenGraph: map[string]string{}, TwitterCard: map[string]string{}}
	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("meta").Each(func(i int, sel *goquery.Selection) {
		content, _ := sel.Attr("content")
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		if name, ok := sel.Attr("name"); ok {
			lower := strings.ToLower(name)
			switch {
			case lower == "description":
				meta.Description = content
				return
			case lower == "author":
				meta.Author = content
				return
			case lower == "robots":
				meta.Robots = content
				return
			case lower == "keywords":
				for _, k := range strings.Split(content, ",") {
					if k = strings.TrimSpace(k); k != "" {
						meta.Keywords = append(meta.Keywords, k)
					}
				}
				return
			case strings.HasPrefix(lower, "twitter:"):
				meta.TwitterCard[strings.TrimPrefix(lower, "twitter:")] = content
				return
			}
		}
		if property, ok := sel.Attr("property"); ok {
			lower := strings.ToLower(property)
			switch {
			case strings.HasPrefix(lower, "og:"):
				meta.OpenGraph[strings.TrimPrefix(lower, "og:")] = content
			case strings.HasPrefix(lower, "twitter:"):
				meta.TwitterCard[strings.TrimPrefix(lower, "twitter:")] = content
			}
			return
		}
		if charset, ok := sel.Attr("charset"); ok && charset != "" {
			meta.Charset = charset
		}
	})

	if lang, ok := doc.Find("html").Attr("lang"); ok {
		meta.Language = strings.TrimSpace(lang)
	}

	doc.Find("link").Each(func(i int, sel *goquery.Selection) {
		rel, _ := sel.Attr("rel")
		href, hrefOK := sel.Attr("href")
		if !hrefOK {
			return
		}
		switch strings.ToLower(rel) {
		case "canonical":
			meta.CanonicalURL = href
		case "icon", "shortcut icon":
			meta.Favicon = href
		}
	})

	return meta, nil
}
