package render

import (
	"regexp"
	"strings"
	"testing"
)

func TestDetectBlockingStatusCodes(t *testing.T) {
	if blocked, reason := detectBlocking("<html></html>", 403); !blocked || reason != "403_forbidden" {
		t.Errorf("detectBlocking failed: expected 403_forbidden, got %v %q", blocked, reason)
	}
	if blocked, reason := detectBlocking("<html></html>", 429); !blocked || reason != "429_rate_limited" {
		t.Errorf("detectBlocking failed: expected 429_rate_limited, got %v %q", blocked, reason)
	}
}

func TestDetectBlockingBodyPatterns(t *testing.T) {
	html := "<html><body><div class=\"g-recaptcha\">verify</div></body></html>"
	blocked, reason := detectBlocking(html, 200)
	if !blocked || reason != "recaptcha_detected" {
		t.Errorf("detectBlocking failed: expected recaptcha_detected, got %v %q", blocked, reason)
	}
}

func TestDetectBlockingOnlyScansFirst10000Chars(t *testing.T) {
	html := strings.Repeat("a", 10000) + "bot detected"
	blocked, _ := detectBlocking(html, 200)
	if blocked {
		t.Errorf("detectBlocking failed: expected indicator beyond 10000 chars to be missed")
	}
}

func TestDetectBlockingCleanPageIsNotBlocked(t *testing.T) {
	blocked, reason := detectBlocking("<html><body>welcome</body></html>", 200)
	if blocked || reason != "" {
		t.Errorf("detectBlocking failed: expected no blocking, got %v %q", blocked, reason)
	}
}

func TestLoadMoreSelectorsNonEmpty(t *testing.T) {
	if len(loadMoreSelectors) == 0 {
		t.Errorf("loadMoreSelectors failed: expected a non-empty selector list")
	}
	for _, sel := range loadMoreSelectors {
		if strings.Contains(sel, ":has-text") {
			t.Errorf("loadMoreSelectors failed: %q uses a Playwright-only pseudo-class go-rod's querySelector can't resolve", sel)
		}
	}
}

func TestLoadMoreTextPatternMatchesExpectedCopyOnly(t *testing.T) {
	re := regexp.MustCompile(loadMoreTextPattern)
	for _, text := range []string{"Load More", "show more", "  View More  ", "LOAD MORE"} {
		if !re.MatchString(text) {
			t.Errorf("loadMoreTextPattern failed: expected %q to match", text)
		}
	}
	for _, text := range []string{"Next Page", "Load More Reviews", ""} {
		if re.MatchString(text) {
			t.Errorf("loadMoreTextPattern failed: expected %q not to match", text)
		}
	}
}
