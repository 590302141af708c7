// Package robots fetches, parses and caches robots.txt per host, and
// answers allow/delay queries for the crawl engine. Grounded on the
// temoto/robotstxt group-test logic in the reference crawler's crawling
// rules, generalized from a single in-crawl robots group into a
// TTL-cached, per-host store.
package robots

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// Record is the cached robots.txt state for one host.
type Record struct {
	RawBody    string
	Group      *robotstxt.Group
	CrawlDelay time.Duration
	Sitemaps   []string
	FetchedAt  time.Time
	Loaded     bool
}

func (r *Record) expired(ttl time.Duration) bool {
	return time.Since(r.FetchedAt) >= ttl
}

// Fetcher is the minimal HTTP capability robots.txt retrieval needs; the
// static fetcher implements this, and tests can supply a stub.
type Fetcher interface {
	Get(url string) (*http.Response, error)
}

type httpFetcher struct {
	client *http.Client
}

func (h *httpFetcher) Get(u string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "IAWIC/1.0 (+robots)")
	return h.client.Do(req)
}

// Cache fetches and caches robots.txt records per host, single-flighting
// concurrent fetches to the same host.
type Cache struct {
	userAgent string
	ttl       time.Duration
	fetcher   Fetcher
	log       *logrus.Logger

	mu      sync.RWMutex
	records map[string]*Record

	group singleflight.Group
}

// New creates a Cache. userAgent is the identity used for directive
// matching (e.g. "IAWIC"); ttl is the cache lifetime for a host's record
// (default 3600s per spec).
func New(userAgent string, ttl time.Duration, log *logrus.Logger) *Cache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Cache{
		userAgent: userAgent,
		ttl:       ttl,
		fetcher:   &httpFetcher{client: &http.Client{Timeout: 15 * time.Second}},
		log:       log,
		records:   make(map[string]*Record),
	}
}

// WithFetcher overrides the HTTP capability used to retrieve robots.txt,
// primarily for tests.
func (c *Cache) WithFetcher(f Fetcher) *Cache {
	c.fetcher = f
	return c
}

func hostOf(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("robots: invalid url %q", rawURL)
	}
	return u.Scheme, u.Host, nil
}

// FetchAndParse returns the cached record for baseURL's host, fetching and
// parsing robots.txt if the cache is empty or stale. A single in-flight
// fetch is shared across concurrent callers for the same host.
func (c *Cache) FetchAndParse(baseURL string) (*Record, error) {
	scheme, host, err := hostOf(baseURL)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	rec, ok := c.records[host]
	c.mu.RUnlock()
	if ok && !rec.expired(c.ttl) {
		return rec, nil
	}

	v, err, _ := c.group.Do(host, func() (interface{}, error) {
		return c.fetch(scheme, host), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Record), nil
}

func (c *Cache) fetch(scheme, host string) *Record {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)
	rec := &Record{FetchedAt: time.Now(), Loaded: true}

	resp, err := c.fetcher.Get(robotsURL)
	if err != nil {
		c.log.WithFields(logrus.Fields{"host": host, "error": err}).Warn("robots_txt_fetch_exception")
		c.store(host, rec)
		return rec
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if readErr != nil {
			c.log.WithFields(logrus.Fields{"host": host, "error": readErr}).Warn("robots_txt_fetch_exception")
			c.store(host, rec)
			return rec
		}
		rec.RawBody = string(body)
		group, perr := robotstxt.FromString(rec.RawBody)
		if perr == nil {
			rec.Group = group.FindGroup(c.userAgent)
		}
		rec.Sitemaps = extractSitemaps(rec.RawBody)
		rec.CrawlDelay = extractCrawlDelay(rec.RawBody)
		c.log.WithFields(logrus.Fields{
			"host": host, "sitemaps": len(rec.Sitemaps), "crawl_delay": rec.CrawlDelay,
		}).Info("robots_txt_loaded")

	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		c.log.WithField("host", host).Info("robots_txt_not_found")

	default:
		c.log.WithFields(logrus.Fields{"host": host, "status": resp.StatusCode}).Warn("robots_txt_fetch_error")
	}

	c.store(host, rec)
	return rec
}

func (c *Cache) store(host string, rec *Record) {
	c.mu.Lock()
	c.records[host] = rec
	c.mu.Unlock()
}

// IsAllowed reports whether rawURL may be fetched under the cached rules
// for its host. A host with no cached record, or an empty/unparsed body,
// fails open (allowed). Does not trigger a fetch; call FetchAndParse first.
func (c *Cache) IsAllowed(rawURL string) bool {
	_, host, err := hostOf(rawURL)
	if err != nil {
		return true
	}

	c.mu.RLock()
	rec, ok := c.records[host]
	c.mu.RUnlock()
	if !ok || rec.RawBody == "" || rec.Group == nil {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return rec.Group.Test(u.RequestURI())
}

// CanFetch is the engine-facing entry point: it fetches/caches robots.txt
// for the URL's host on demand, then answers IsAllowed.
func (c *Cache) CanFetch(rawURL string) bool {
	if _, err := c.FetchAndParse(rawURL); err != nil {
		return true
	}
	return c.IsAllowed(rawURL)
}

// CrawlDelay returns the parsed Crawl-delay directive for rawURL's host,
// fetching and caching robots.txt first when the host has no fresh
// record. Returns zero if no directive was present or the URL is invalid.
func (c *Cache) CrawlDelay(rawURL string) time.Duration {
	rec, err := c.FetchAndParse(rawURL)
	if err != nil {
		return 0
	}
	return rec.CrawlDelay
}

// Sitemaps returns the discovered sitemap URLs for rawURL's host.
func (c *Cache) Sitemaps(rawURL string) []string {
	_, host, err := hostOf(rawURL)
	if err != nil {
		return nil
	}
	c.mu.RLock()
	rec, ok := c.records[host]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	return rec.Sitemaps
}

func extractSitemaps(content string) []string {
	var sitemaps []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(strings.ToLower(line), "sitemap:") {
			if u := strings.TrimSpace(line[len("sitemap:"):]); u != "" {
				sitemaps = append(sitemaps, u)
			}
		}
	}
	return sitemaps
}

func extractCrawlDelay(content string) time.Duration {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if strings.HasPrefix(line, "crawl-delay:") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) != 2 {
				continue
			}
			if seconds, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil {
				return time.Duration(seconds * float64(time.Second))
			}
		}
	}
	return 0
}
