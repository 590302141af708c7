// Package engine wires the frontier, robots cache, rate limiter,
// fetcher, renderer, extractors, and sinks into the per-URL state
// machine and worker pool, generalized from the teacher's WebCrawler
// (single recursive crawlPage) into the frontier-driven algorithm.
package engine

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avenir-dev/iawic/internal/config"
	"github.com/avenir-dev/iawic/internal/extract"
	"github.com/avenir-dev/iawic/internal/fetch"
	"github.com/avenir-dev/iawic/internal/fingerprint"
	"github.com/avenir-dev/iawic/internal/frontier"
	"github.com/avenir-dev/iawic/internal/normalizer"
	"github.com/avenir-dev/iawic/internal/ratelimit"
	"github.com/avenir-dev/iawic/internal/render"
	"github.com/avenir-dev/iawic/internal/robots"
	"github.com/avenir-dev/iawic/internal/sink"
	"github.com/avenir-dev/iawic/messaging"
)

const (
	getTimeout          = 2 * time.Second
	maxExternalPerPage  = 10
	minJSRenderBodySize = 1000
)

// Stats is a snapshot of crawl progress, usable while the crawl is
// still running.
type Stats struct {
	URLsCrawled     int64
	URLsFailed      int64
	URLsDropped     int64
	DuplicatesFound int64
	StartedAt       time.Time
}

// Engine runs the crawl: a worker pool pulling from a shared frontier,
// applying robots/rate-limit/fetch/render/extract per §4.h, then
// handing each finished page to every configured sink.
type Engine struct {
	cfg      *config.IAWICConfig
	log      *logrus.Logger
	frontier *frontier.Frontier
	robots   *robots.Cache
	limiter  *ratelimit.Limiter
	fetcher  *fetch.Fetcher
	renderer render.Renderer
	links    *extract.LinkExtractor
	dedup    *fingerprint.Deduplicator
	sinks    []sink.Sink
	notifier messaging.Producer

	crawlDelaySet sync.Map // domain -> bool, "once per host is sufficient" (spec §4.h step 2)

	stopOnce sync.Once
	stopCh   chan struct{}

	stats Stats
}

// Option customizes an Engine at construction time, mirroring the
// teacher's functional-options pattern (CrawlerOpt).
type Option func(*Engine)

// WithRenderer attaches a headless-render collaborator. Without one,
// render_mode=auto/javascript falls back to the static fetch result.
func WithRenderer(r render.Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithNotifier attaches a messaging.Producer that receives one
// payload per finished page, decoupling crawl completions from the
// mandatory sink exactly as the teacher decoupled crawlPage from its
// downstream queue.
func WithNotifier(p messaging.Producer) Option {
	return func(e *Engine) { e.notifier = p }
}

// WithLogger overrides the default standard logger.
func WithLogger(log *logrus.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New builds an Engine from a resolved configuration and the set of
// sinks to hand finished pages to. At least one sink is expected
// (typically the mandatory JSON batch sink); additional sinks (Mongo/
// Elastic stand-ins) are appended by the caller.
func New(cfg *config.IAWICConfig, sinks []sink.Sink, opts ...Option) *Engine {
	log := logrus.StandardLogger()

	e := &Engine{
		cfg:      cfg,
		log:      log,
		frontier: frontier.New(cfg.Crawl.CrawlDepth, cfg.Crawl.MaxPages),
		robots:   robots.New("IAWIC", time.Hour, log),
		limiter: ratelimit.New(ratelimit.Options{
			RequestsPerSecond: cfg.Crawl.RequestsPerSecond,
			MinDelay:          cfg.Crawl.MinDelay,
			MaxDelay:          cfg.Crawl.MaxDelay,
			Adaptive:          &cfg.Crawl.AdaptiveDelay,
		}),
		fetcher: fetch.New(fetch.Options{
			Timeout:         cfg.Crawl.PageTimeout,
			FollowRedirects: true,
			Logger:          log,
		}),
		links:  extract.NewLinkExtractor(cfg.Crawl.IncludeSubdomains),
		dedup:  fingerprint.NewDeduplicator(cfg.Crawl.SimilarityThreshold),
		sinks:  sinks,
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start enqueues seedURL at CRITICAL priority/depth 0, runs
// cfg.Workers workers to completion (or until Stop is called or an
// interrupt signal arrives), then closes the renderer and sinks and
// writes the summary file.
func (e *Engine) Start(seedURL string) error {
	e.stats.StartedAt = time.Now()

	parsed, err := url.Parse(seedURL)
	if err != nil {
		return fmt.Errorf("engine: invalid seed url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
		seedURL = parsed.String()
	}

	if !e.frontier.Add(seedURL, 0, frontier.Critical, "", nil) {
		return fmt.Errorf("engine: seed url rejected by frontier")
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		e.log.Warn("interrupt_received_stopping")
		e.Stop()
	}()

	var wg sync.WaitGroup
	workers := e.cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go e.worker(i, &wg)
	}
	wg.Wait()

	e.log.WithFields(logrus.Fields{
		"crawled": atomic.LoadInt64(&e.stats.URLsCrawled),
		"failed":  atomic.LoadInt64(&e.stats.URLsFailed),
		"dropped": atomic.LoadInt64(&e.stats.URLsDropped),
	}).Info("crawl_done")

	return e.teardown()
}

// Stop signals every worker to exit after its current fetch. Safe to
// call multiple times or concurrently with Start.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// Stats returns a point-in-time snapshot of crawl progress.
func (e *Engine) Stats() Stats {
	return Stats{
		URLsCrawled:     atomic.LoadInt64(&e.stats.URLsCrawled),
		URLsFailed:      atomic.LoadInt64(&e.stats.URLsFailed),
		URLsDropped:     atomic.LoadInt64(&e.stats.URLsDropped),
		DuplicatesFound: int64(e.dedup.DuplicateCount()),
		StartedAt:       e.stats.StartedAt,
	}
}

func (e *Engine) teardown() error {
	if e.renderer != nil {
		if err := e.renderer.Close(); err != nil {
			e.log.WithField("error", err).Warn("renderer_close_failed")
		}
	}
	for _, s := range e.sinks {
		if err := s.Close(); err != nil {
			e.log.WithField("error", err).Warn("sink_close_failed")
		}
	}
	if js, ok := e.firstJSONSink(); ok {
		_ = js.SaveSummary(sink.Summary{
			TotalPages:      int(atomic.LoadInt64(&e.stats.URLsCrawled)),
			BatchesWritten:  0,
			Duration:        time.Since(e.stats.StartedAt),
			URLsCrawled:     int(atomic.LoadInt64(&e.stats.URLsCrawled)),
			URLsFailed:      int(atomic.LoadInt64(&e.stats.URLsFailed)),
			DuplicatesFound: e.dedup.DuplicateCount(),
		})
	}
	return nil
}

func (e *Engine) firstJSONSink() (*sink.JSONBatchSink, bool) {
	for _, s := range e.sinks {
		if js, ok := s.(*sink.JSONBatchSink); ok {
			return js, true
		}
	}
	return nil, false
}

// worker implements the lifecycle loop of §4.h: pop with a bounded
// wait and never let a single URL's handling panic or error past this
// call. It exits when Stop is called, when cfg.Crawl.MaxPages pages have
// been crawled, or when a Get times out while the frontier is empty; it
// does not wait for pages other workers are still handling, which may
// enqueue further links after it has exited.
func (e *Engine) worker(id int, wg *sync.WaitGroup) {
	defer wg.Done()
	log := e.log.WithField("worker", id)

	for {
		select {
		case <-e.stopCh:
			return
		default:
		}
		if max := e.cfg.Crawl.MaxPages; max > 0 && atomic.LoadInt64(&e.stats.URLsCrawled) >= int64(max) {
			return
		}

		entry := e.frontier.Get(getTimeout)
		if entry == nil {
			if e.frontier.IsEmpty() {
				return
			}
			continue
		}

		e.safeHandle(entry, log)
	}
}

// safeHandle recovers from any panic raised while handling entry,
// mirroring the teacher's top-level recover boundary, and re-enqueues
// at LOW priority if retries remain.
func (e *Engine) safeHandle(entry *frontier.Entry, log *logrus.Entry) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("error", r).Error("handler_panicked")
			e.retry(entry)
		}
	}()

	if err := e.handle(entry); err != nil {
		log.WithFields(logrus.Fields{"url": entry.URL, "error": err}).Warn("handle_failed")
		e.retry(entry)
	}
}

func (e *Engine) retry(entry *frontier.Entry) {
	atomic.AddInt64(&e.stats.URLsFailed, 1)
	if e.frontier.MarkFailed(entry.URL, 3) {
		e.frontier.Add(entry.URL, entry.Depth, frontier.Low, entry.ParentURL, entry.Metadata)
	}
}

// handle implements the §4.h per-URL algorithm.
func (e *Engine) handle(entry *frontier.Entry) error {
	domain := normalizer.Domain(entry.URL)

	if e.cfg.Crawl.RespectRobotsTxt {
		if !e.robots.CanFetch(entry.URL) {
			atomic.AddInt64(&e.stats.URLsDropped, 1)
			return nil
		}
		if _, already := e.crawlDelaySet.LoadOrStore(domain, true); !already {
			if delay := e.robots.CrawlDelay(entry.URL); delay > 0 {
				e.limiter.SetCrawlDelay(domain, delay)
			}
		}
	}

	e.limiter.Acquire(domain)

	res := e.fetcher.Fetch(entry.URL, nil, nil)
	e.limiter.Record(domain, res.ResponseTime, res.Success, res.StatusCode)
	if !res.Success {
		return fmt.Errorf("fetch failed: %s", res.Error)
	}

	html := res.HTML
	finalURL := res.FinalURL

	if e.needsRender(html) && e.renderer != nil {
		rres := e.renderer.Render(entry.URL, render.RenderOptions{
			ScrollToBottom: true,
			ClickLoadMore:  true,
			RenderTimeout:  e.cfg.Crawl.RenderTimeout,
		})
		if rres.Success {
			html = rres.HTML
			finalURL = rres.FinalURL
		} else {
			e.log.WithFields(logrus.Fields{"url": entry.URL, "error": rres.Error}).Warn("render_fallback_to_static")
		}
	}

	page, err := e.buildPageRecord(entry, html, finalURL)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	for _, s := range e.sinks {
		if err := s.SavePage(page); err != nil {
			e.log.WithFields(logrus.Fields{"url": entry.URL, "sink": fmt.Sprintf("%T", s), "error": err}).Warn("sink_save_failed")
		}
	}
	if e.notifier != nil {
		if payload, err := pageRecordJSON(page); err == nil {
			if err := e.notifier.Produce(payload); err != nil {
				e.log.WithField("error", err).Warn("notify_failed")
			}
		}
	}

	e.enqueueLinks(entry, page.Links)
	e.frontier.MarkCrawled(entry.URL)
	atomic.AddInt64(&e.stats.URLsCrawled, 1)
	return nil
}

// needsRender implements the §4.h render_mode decision table.
func (e *Engine) needsRender(html string) bool {
	switch e.cfg.Crawl.RenderMode {
	case config.RenderJavaScript:
		return true
	case config.RenderStatic:
		return false
	default: // auto
		return len(html) < minJSRenderBodySize || !strings.Contains(html, "<a")
	}
}

func (e *Engine) buildPageRecord(entry *frontier.Entry, html, finalURL string) (sink.PageRecord, error) {
	links, err := e.links.Extract(html, finalURL)
	if err != nil {
		e.log.WithField("error", err).Warn("link_extraction_failed")
	}

	meta, err := extract.ExtractMetadata(html, finalURL)
	if err != nil {
		e.log.WithField("error", err).Warn("metadata_extraction_failed")
	}

	var entities extract.Entities
	if e.cfg.Crawl.ExtractEntities {
		if entities, err = extract.ExtractEntities(html); err != nil {
			e.log.WithField("error", err).Warn("entity_extraction_failed")
		}
	}

	var text string
	if e.cfg.Crawl.ExtractTextContent {
		if text, err = extract.CleanText(html); err != nil {
			e.log.WithField("error", err).Warn("text_cleaning_failed")
		}
	}

	if e.cfg.Crawl.EnableDedup && text != "" {
		result := e.dedup.Check(entry.URL, text)
		if result.IsDuplicate {
			e.log.WithFields(logrus.Fields{
				"url": entry.URL, "matches": result.MatchingURL, "method": result.Method,
			}).Debug("duplicate_content_detected")
		}
	}

	classification := ""
	if e.cfg.Crawl.EnableClassification {
		classification = extract.Classify(html, finalURL)
	}

	page := sink.PageRecord{
		URL:         finalURL,
		Domain:      normalizer.Domain(finalURL),
		Depth:       entry.Depth,
		Title:       meta.Title,
		Description: meta.Description,
		TextContent: text,
		Metadata: sink.Metadata{
			CanonicalURL: meta.CanonicalURL,
			Language:     meta.Language,
			Author:       meta.Author,
			Keywords:     meta.Keywords,
			OpenGraph:    meta.OpenGraph,
			Twitter:      meta.TwitterCard,
		},
		Links: sink.Links{Internal: links.Internal, External: links.External},
		Entities: sink.Entities{
			Emails: entities.Emails, Phones: entities.Phones,
			SocialLinks: socialLinksToSink(entities.SocialLinks),
		},
		Classification: classification,
	}
	if e.cfg.Crawl.StoreHTML {
		page.HTML = html
	}
	if e.cfg.Crawl.EnableLanguageDetection {
		page.LanguageDetected = meta.Language
	}
	return page, nil
}

func pageRecordJSON(page sink.PageRecord) ([]byte, error) {
	return json.Marshal(page)
}

func socialLinksToSink(in []extract.SocialLink) []sink.SocialLink {
	out := make([]sink.SocialLink, len(in))
	for i, l := range in {
		out[i] = sink.SocialLink{Platform: l.Platform, URL: l.URL}
	}
	return out
}

// enqueueLinks admits internal links at NORMAL priority/depth+1 and,
// if configured, up to maxExternalPerPage external links at DEFERRED
// priority, per §4.h step 11.
func (e *Engine) enqueueLinks(entry *frontier.Entry, links sink.Links) {
	for _, l := range links.Internal {
		e.frontier.Add(l, entry.Depth+1, frontier.Normal, entry.URL, nil)
	}
	if e.cfg.Crawl.FollowExternalLinks {
		for i, l := range links.External {
			if i >= maxExternalPerPage {
				break
			}
			e.frontier.Add(l, entry.Depth+1, frontier.Deferred, entry.URL, nil)
		}
	}
}
