package extract

import (
	"strings"
	"testing"
)

const samplePage = `
<html lang="en">
<head>
	<title>Example Page</title>
	<meta name="description" content="a test page">
	<meta name="keywords" content="go, crawler, test">
	<meta property="og:title" content="OG Example">
	<meta name="twitter:card" content="summary">
	<link rel="canonical" href="https://example.com/canonical">
	<link rel="icon" href="/favicon.ico">
</head>
<body>
	<a href="/about">About</a>
	<a href="https://other.com/page" rel="nofollow">Other</a>
	<a href="#section">Jump</a>
	<a href="mailto:hi@example.com">Email us</a>
	<a href="https://twitter.com/example">Follow</a>
	<p>Contact: hi@example.com or call 555-123-4567</p>
</body>
</html>`

func TestLinkExtractorClassifiesInternalExternal(t *testing.T) {
	e := NewLinkExtractor(true)
	links, err := e.Extract(samplePage, "https://example.com/")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	internal := map[string]bool{}
	for _, l := range links.Internal {
		internal[l] = true
	}
	if len(links.Internal) != 2 || !internal["https://example.com/canonical"] || !internal["https://example.com/about"] {
		t.Errorf("Extract failed: expected two internal links (canonical, /about), got %v", links.Internal)
	}
	if len(links.External) != 2 {
		t.Errorf("Extract failed: expected two external links (other.com, twitter.com), got %v", links.External)
	}
}

func TestLinkExtractorSkipsFragmentsAndMailto(t *testing.T) {
	e := NewLinkExtractor(true)
	links, _ := e.Extract(samplePage, "https://example.com/")
	for _, l := range links.All {
		// "#section" would normalize to the page itself if it were kept.
		if l.URL == "https://example.com/" {
			t.Errorf("Extract failed: fragment-only link should be skipped")
		}
		if strings.HasPrefix(strings.ToLower(l.URL), "mailto:") {
			t.Errorf("Extract failed: mailto link should be skipped, got %q", l.URL)
		}
	}
}

func TestLinkExtractorMarksNofollow(t *testing.T) {
	e := NewLinkExtractor(true)
	links, _ := e.Extract(samplePage, "https://example.com/")
	found := false
	for _, l := range links.All {
		if l.URL == "https://other.com/page" {
			found = true
			if !l.IsNofollow {
				t.Errorf("Extract failed: expected rel=nofollow link to be marked")
			}
		}
	}
	if !found {
		t.Errorf("Extract failed: expected other.com link to be present")
	}
}

func TestExtractMetadataFieldsAndOpenGraph(t *testing.T) {
	meta, err := ExtractMetadata(samplePage, "https://example.com/")
	if err != nil {
		t.Fatalf("ExtractMetadata failed: %v", err)
	}
	if meta.Title != "Example Page" {
		t.Errorf("ExtractMetadata failed: expected title, got %q", meta.Title)
	}
	if meta.Description != "a test page" {
		t.Errorf("ExtractMetadata failed: expected description, got %q", meta.Description)
	}
	if meta.CanonicalURL != "https://example.com/canonical" {
		t.Errorf("ExtractMetadata failed: expected canonical url, got %q", meta.CanonicalURL)
	}
	if meta.Language != "en" {
		t.Errorf("ExtractMetadata failed: expected language en, got %q", meta.Language)
	}
	if meta.OpenGraph["title"] != "OG Example" {
		t.Errorf("ExtractMetadata failed: expected og:title, got %v", meta.OpenGraph)
	}
	if len(meta.Keywords) != 3 {
		t.Errorf("ExtractMetadata failed: expected 3 keywords, got %v", meta.Keywords)
	}
	if meta.TwitterCard["card"] != "summary" {
		t.Errorf("ExtractMetadata failed: expected twitter:card from name= attribute, got %v", meta.TwitterCard)
	}
}

func TestCleanTextStripsScriptsAndBoilerplate(t *testing.T) {
	html := `<html><body><nav>menu</nav><script>evil()</script><p>Real content here.</p></body></html>`
	text, err := CleanText(html)
	if err != nil {
		t.Fatalf("CleanText failed: %v", err)
	}
	if strings.Contains(text, "evil") || strings.Contains(text, "menu") {
		t.Errorf("CleanText failed: expected script/nav content stripped, got %q", text)
	}
	if !strings.Contains(text, "Real content here.") {
		t.Errorf("CleanText failed: expected real content retained, got %q", text)
	}
}

func TestClassifyRecognizesProductSignals(t *testing.T) {
	html := `<html><body><div class="product"><span class="price">$9.99</span><button class="add-to-cart">Buy</button></div></body></html>`
	if got := Classify(html, "https://shop.example.com/product/1"); got != "product" {
		t.Errorf("Classify failed: expected product, got %q", got)
	}
}

func TestExtractEntitiesFindsEmailsPhonesAndSocial(t *testing.T) {
	ents, err := ExtractEntities(samplePage)
	if err != nil {
		t.Fatalf("ExtractEntities failed: %v", err)
	}
	if len(ents.Emails) != 1 || ents.Emails[0] != "hi@example.com" {
		t.Errorf("ExtractEntities failed: expected a single deduped email, got %v", ents.Emails)
	}
	if len(ents.Phones) == 0 {
		t.Errorf("ExtractEntities failed: expected a phone number match")
	}
	if len(ents.SocialLinks) != 1 || ents.SocialLinks[0].Platform != "twitter" {
		t.Errorf("ExtractEntities failed: expected one twitter social link, got %v", ents.SocialLinks)
	}
}
