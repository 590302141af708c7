package extract

import "strings"

var classificationSignals = map[string][]string{
	"article": {"article", "post", "blog", "story", "entry", "news", "editorial"},
	"product": {"product", "price", "add-to-cart", "buy", "shopping", "cart", "sku"},
	"listing": {"listing", "results", "grid", "catalog", "gallery", "directory"},
	"forum":   {"forum", "thread", "reply", "comment", "discussion", "topic"},
	"contact": {"contact", "address", "phone", "location"},
	"about":   {"about", "bio", "team", "mission", "history"},
	"faq":     {"faq", "question", "answer", "accordion"},
}

// Classify assigns a coarse content-type label to a page using
// keyword-occurrence scoring over html and url, grounded on the
// reference ContentClassifier's class/id/url signal scan. The
// structured-data and og:type signal boosts are dropped for
// thinness; this stays a best-effort heuristic seam, not the
// schema-aware classifier of the reference implementation.
func Classify(html string, url string) string {
	lower := strings.ToLower(html)
	urlLower := strings.ToLower(url)

	best := "unknown"
	bestScore := 0.0
	for contentType, keywords := range classificationSignals {
		score := 0.0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score += 0.2
			}
			if strings.Contains(urlLower, kw) {
				score += 0.3
			}
		}
		if score > bestScore {
			bestScore = score
			best = contentType
		}
	}
	return best
}
