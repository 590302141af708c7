// Package sink defines the page-record output contract and its
// implementations: a mandatory JSON batch file writer grounded on the
// reference JSONOutput, plus inert stand-ins for the optional
// document-store/search-index backends.
package sink

// Metadata is the metadata block of a page record.
type Metadata struct {
	CanonicalURL string            `json:"canonical_url"`
	Language     string            `json:"language"`
	Author       string            `json:"author"`
	Keywords     []string          `json:"keywords"`
	OpenGraph    map[string]string `json:"og"`
	Twitter      map[string]string `json:"twitter"`
}

// Links is the links block of a page record.
type Links struct {
	Internal []string `json:"internal"`
	External []string `json:"external"`
}

// SocialLink is a single recognized social-platform link.
type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// Entities is the entities block of a page record.
type Entities struct {
	Emails      []string     `json:"emails"`
	Phones      []string     `json:"phones"`
	SocialLinks []SocialLink `json:"social_links"`
}

// PageRecord is the JSON page-record schema of §6 of the spec: the
// crawl engine's unit of output, handed to every configured sink.
type PageRecord struct {
	URL              string   `json:"url"`
	Domain           string   `json:"domain"`
	Depth            int      `json:"depth"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	TextContent      string   `json:"text_content"`
	HTML             string   `json:"html,omitempty"`
	Metadata         Metadata `json:"metadata"`
	Links            Links    `json:"links"`
	Entities         Entities `json:"entities"`
	LanguageDetected string   `json:"language_detected,omitempty"`
	Classification   string   `json:"classification,omitempty"`
}

// Sink is an output backend for crawled page records.
type Sink interface {
	SavePage(page PageRecord) error
	Close() error
}
