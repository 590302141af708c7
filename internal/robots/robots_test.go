package robots

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func serverMock(body string, status int) *httptest.Server {
	handler := http.NewServeMux()
	handler.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	return httptest.NewServer(handler)
}

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestFetchAndParseAllowsAndDisallowsPaths(t *testing.T) {
	server := serverMock("User-agent: *\nDisallow: /private\nAllow: /\nCrawl-delay: 2\nSitemap: /sitemap.xml\n", http.StatusOK)
	defer server.Close()

	c := New("*", time.Hour, discardLogger())
	rec, err := c.FetchAndParse(server.URL)
	if err != nil {
		t.Fatalf("FetchAndParse failed: %v", err)
	}
	if !rec.Loaded {
		t.Errorf("FetchAndParse failed: expected record loaded")
	}
	if rec.CrawlDelay != 2*time.Second {
		t.Errorf("FetchAndParse failed: expected crawl delay 2s got %v", rec.CrawlDelay)
	}
	if len(rec.Sitemaps) != 1 || rec.Sitemaps[0] != "/sitemap.xml" {
		t.Errorf("FetchAndParse failed: expected one sitemap got %+v", rec.Sitemaps)
	}

	if !c.CanFetch(server.URL + "/public") {
		t.Errorf("CanFetch failed: expected /public allowed")
	}
	if c.CanFetch(server.URL + "/private/x") {
		t.Errorf("CanFetch failed: expected /private disallowed")
	}
}

func TestFetchAndParseNotFoundIsPermissive(t *testing.T) {
	server := serverMock("", http.StatusNotFound)
	defer server.Close()

	c := New("*", time.Hour, discardLogger())
	if !c.CanFetch(server.URL + "/anything") {
		t.Errorf("CanFetch failed: expected fail-open on 404 robots.txt")
	}
}

func TestFetchAndParseCachesWithinTTL(t *testing.T) {
	var hits int
	handler := http.NewServeMux()
	handler.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("User-agent: *\nDisallow:\n"))
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	c := New("*", time.Hour, discardLogger())
	for i := 0; i < 5; i++ {
		if _, err := c.FetchAndParse(server.URL); err != nil {
			t.Fatalf("FetchAndParse failed: %v", err)
		}
	}
	if hits != 1 {
		t.Errorf("FetchAndParse failed: expected single fetch within ttl, got %d", hits)
	}
}

func TestIsAllowedFailsOpenWithoutRecord(t *testing.T) {
	c := New("*", time.Hour, discardLogger())
	if !c.IsAllowed(fmt.Sprintf("http://%s/x", "unfetched.test")) {
		t.Errorf("IsAllowed failed: expected fail-open with no cached record")
	}
}
