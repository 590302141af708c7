package fingerprint

import (
	"strings"
	"testing"
)

func TestSimilaritySelfAndSymmetric(t *testing.T) {
	h1 := SimHash("the quick brown fox jumps over the lazy dog repeatedly every single afternoon")
	if Similarity(h1, h1) != 1.0 {
		t.Errorf("Similarity failed: expected 1.0 for identical hash")
	}
	h2 := SimHash("a completely different sentence about something else entirely unrelated")
	if Similarity(h1, h2) != Similarity(h2, h1) {
		t.Errorf("Similarity failed: expected symmetry")
	}
	if Similarity(h1, h2) < 1.0-64.0/64.0 {
		t.Errorf("Similarity failed: expected lower bound respected")
	}
}

func TestSimHashStemmingOffByDefaultChangesBitsWhenEnabled(t *testing.T) {
	inflected := "the engineers are running rapid tests across running services today afternoon"
	base := "the engineers are run rapid test across run service today afternoon"

	EnableStemming = false
	plainDistance := HammingDistance(SimHash(inflected), SimHash(base))

	EnableStemming = true
	defer func() { EnableStemming = false }()
	stemmedDistance := HammingDistance(SimHash(inflected), SimHash(base))

	if stemmedDistance >= plainDistance {
		t.Errorf("EnableStemming failed: expected stemming to shrink Hamming distance between inflected forms, got plain=%d stemmed=%d", plainDistance, stemmedDistance)
	}
}

func TestDeduplicatorSkipsShortContent(t *testing.T) {
	d := NewDeduplicator(0.85)
	res := d.Check("https://a.test/x", "too short")
	if res.IsDuplicate {
		t.Errorf("Check failed: expected non-duplicate for short content")
	}
	if res.Method != "skipped_short_content" {
		t.Errorf("Check failed: expected skipped_short_content got %s", res.Method)
	}
}

func TestDeduplicatorExactMatch(t *testing.T) {
	d := NewDeduplicator(0.85)
	text := strings.Repeat("identical content block. ", 5)
	first := d.Check("https://a.test/1", text)
	if first.IsDuplicate {
		t.Errorf("Check failed: expected first insertion to be unique")
	}
	second := d.Check("https://a.test/2", text)
	if !second.IsDuplicate || second.Method != "exact_hash" {
		t.Errorf("Check failed: expected exact_hash duplicate, got %+v", second)
	}
}

func TestDeduplicatorNearDuplicate(t *testing.T) {
	d := NewDeduplicator(0.85)
	base := strings.Repeat("the mission statement describes our long term engineering goals in detail. ", 6)
	variant := base + "also updated recently."

	first := d.Check("https://a.test/a", base)
	if first.IsDuplicate {
		t.Errorf("Check failed: expected first insertion to be unique")
	}
	second := d.Check("https://a.test/b", variant)
	if !second.IsDuplicate || second.Method != "simhash" {
		t.Errorf("Check failed: expected simhash near-duplicate, got %+v", second)
	}
	if second.Similarity < 0.85 {
		t.Errorf("Check failed: expected similarity >= 0.85 got %f", second.Similarity)
	}
}
