package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SocialLink is a recognized link to a social platform.
type SocialLink struct {
	Platform string
	URL      string
}

// Entities is the outcome of a thin entity scan over one page: email
// addresses, phone numbers, and recognized social-platform links.
// Kept deliberately small relative to the reference EntityExtractor
// (no address extraction, no obfuscated-email unscrambling) since this
// stays a pure-function seam rather than a hand-rolled NLP pipeline.
type Entities struct {
	Emails      []string
	Phones      []string
	SocialLinks []SocialLink
}

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

var phonePattern = regexp.MustCompile(`\+?1?[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)

var socialPlatforms = []struct {
	name    string
	matches []string
}{
	{"twitter", []string{"twitter.com/", "x.com/"}},
	{"facebook", []string{"facebook.com/", "fb.com/"}},
	{"instagram", []string{"instagram.com/"}},
	{"linkedin", []string{"linkedin.com/"}},
	{"youtube", []string{"youtube.com/", "youtu.be/"}},
	{"github", []string{"github.com/"}},
	{"tiktok", []string{"tiktok.com/"}},
	{"pinterest", []string{"pinterest.com/"}},
	{"reddit", []string{"reddit.com/"}},
}

// ExtractEntities scans html's anchor hrefs and visible text for
// emails, phone numbers, and social-platform links.
func ExtractEntities(html string) (Entities, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Entities{}, err
	}

	var ents Entities
	seenEmail := map[string]bool{}
	seenSocial := map[string]bool{}

	text := doc.Text()
	for _, m := range emailPattern.FindAllString(text, -1) {
		if !seenEmail[m] {
			seenEmail[m] = true
			ents.Emails = append(ents.Emails, m)
		}
	}
	for _, m := range phonePattern.FindAllString(text, -1) {
		ents.Phones = append(ents.Phones, m)
	}

	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if strings.HasPrefix(strings.ToLower(href), "mailto:") {
			addr := strings.TrimPrefix(href, "mailto:")
			if addr != "" && !seenEmail[addr] {
				seenEmail[addr] = true
				ents.Emails = append(ents.Emails, addr)
			}
			return
		}
		lower := strings.ToLower(href)
		for _, platform := range socialPlatforms {
			for _, needle := range platform.matches {
				if strings.Contains(lower, needle) && !seenSocial[lower] {
					seenSocial[lower] = true
					ents.SocialLinks = append(ents.SocialLinks, SocialLink{Platform: platform.name, URL: href})
				}
			}
		}
	})

	return ents, nil
}
