// Package fetch implements the cheap static HTTP tier of the
// fetch-and-render pipeline: a retrying, rotating-profile GET with
// structured anti-bot detection, adapted from the reference fetcher's
// rehttp transport onto a richer result type.
package fetch

import (
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/rehttp"
	"github.com/aybabtme/iocontrol"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/avenir-dev/iawic/internal/useragent"
)

var blockedIndicators = []string{
	"captcha", "recaptcha", "challenge", "access denied",
	"blocked", "bot detected", "please verify", "security check",
}

const maxBlockScanBytes = 5000

// Result is the outcome of a single static fetch.
type Result struct {
	URL           string
	FinalURL      string
	StatusCode    int
	ContentType   string
	HTML          string
	Headers       http.Header
	ResponseTime  time.Duration
	Encoding      string
	ContentLength int
	Success       bool
	Error         string
	IsBlocked     bool
	BlockedReason string
}

// Fetcher performs static HTTP GETs with rotated browser profiles,
// retry/backoff, and bandwidth-throttled body reads.
type Fetcher struct {
	client      *http.Client
	rotator     *useragent.Rotator
	log         *logrus.Logger
	maxBodyRead int64
	throttleBps int64
}

// Options configures a Fetcher.
type Options struct {
	Timeout         time.Duration
	MaxRetries      int
	FollowRedirects bool
	ProxyURL        string
	MaxBodyBytes    int64 // 0 = unbounded
	ThrottleBps     int64 // 0 = unthrottled
	Logger          *logrus.Logger
}

// New creates a Fetcher. Matches the teacher's rehttp-based retry
// transport (exponential jitter backoff over up to MaxRetries attempts),
// generalized with an optional proxy and configurable retry count.
func New(opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	baseTransport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	if opts.ProxyURL != "" {
		if proxyURL, err := parseProxyURL(opts.ProxyURL); err == nil {
			baseTransport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	transport := rehttp.NewTransport(
		baseTransport,
		rehttp.RetryAll(rehttp.RetryMaxRetries(maxRetries), rehttp.RetryTemporaryErr()),
		rehttp.ExpJitterDelay(1*time.Second, 10*time.Second),
	)

	client := &http.Client{Timeout: timeout, Transport: transport}
	if !opts.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &Fetcher{
		client:      client,
		rotator:     useragent.NewRotator(),
		log:         log,
		maxBodyRead: opts.MaxBodyBytes,
		throttleBps: opts.ThrottleBps,
	}
}

// Fetch performs a GET against targetURL, rotating a realistic browser
// header profile and overlaying any caller-supplied headers/cookies.
func (f *Fetcher) Fetch(targetURL string, headers map[string]string, cookies map[string]string) Result {
	start := time.Now()

	req, err := http.NewRequest(http.MethodGet, targetURL, nil)
	if err != nil {
		return failure(targetURL, start, fmt.Sprintf("invalid request: %v", err))
	}

	profile := f.rotator.Random()
	for k, v := range f.rotator.Headers(&profile) {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := f.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		reason := classifyTransportError(err)
		f.log.WithFields(logrus.Fields{"url": targetURL, "error": err}).Warn(reason)
		return failure(targetURL, start, fmt.Sprintf("%s: %v", reason, err))
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if f.maxBodyRead > 0 {
		reader = io.LimitReader(reader, f.maxBodyRead)
	}
	if f.throttleBps > 0 {
		reader = iocontrol.ThrottledReader(reader, int(f.throttleBps), time.Second)
	}
	measured := iocontrol.NewMeasuredReader(reader)

	body, err := io.ReadAll(measured)
	if err != nil {
		return failure(targetURL, start, fmt.Sprintf("body read error: %v", err))
	}

	html := string(body)
	isBlocked, reason := detectBlocking(resp, html)
	f.log.WithFields(logrus.Fields{
		"url": targetURL, "bandwidth": humanize.Bytes(measured.BytesPerSec()) + "/s",
	}).Debug("body_read_complete")

	result := Result{
		URL:           targetURL,
		FinalURL:      resp.Request.URL.String(),
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		HTML:          html,
		Headers:       resp.Header,
		ResponseTime:  elapsed,
		Encoding:      encodingOf(resp),
		ContentLength: len(html),
		Success:       resp.StatusCode >= 200 && resp.StatusCode < 400,
		IsBlocked:     isBlocked,
		BlockedReason: reason,
	}

	f.log.WithFields(logrus.Fields{
		"url": targetURL, "status": resp.StatusCode,
		"time": elapsed, "size": humanize.Bytes(uint64(len(html))),
		"blocked": isBlocked,
	}).Info("page_fetched")

	return result
}

func failure(url string, start time.Time, errMsg string) Result {
	return Result{
		URL:          url,
		FinalURL:     url,
		ResponseTime: time.Since(start),
		Encoding:     "utf-8",
		Success:      false,
		Error:        errMsg,
	}
}

func classifyTransportError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Client.Timeout") || strings.Contains(msg, "context deadline exceeded"):
		return "fetch_timeout"
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") || strings.Contains(msg, "dial tcp"):
		return "fetch_connection_error"
	default:
		return "fetch_error"
	}
}

func parseProxyURL(raw string) (*url.URL, error) {
	return url.Parse(raw)
}

func encodingOf(resp *http.Response) string {
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err == nil {
		if charset, ok := params["charset"]; ok && charset != "" {
			return strings.ToLower(charset)
		}
	}
	return "utf-8"
}

// detectBlocking implements the status/body anti-bot detection table.
func detectBlocking(resp *http.Response, html string) (bool, string) {
	switch {
	case resp.StatusCode == http.StatusForbidden:
		return true, "403_forbidden"
	case resp.StatusCode == http.StatusTooManyRequests:
		return true, "429_rate_limited"
	case resp.StatusCode == http.StatusServiceUnavailable && strings.Contains(strings.ToLower(resp.Header.Get("Server")), "cloudflare"):
		return true, "cloudflare_challenge"
	}

	scanLen := len(html)
	if scanLen > maxBlockScanBytes {
		scanLen = maxBlockScanBytes
	}
	bodyLower := strings.ToLower(html[:scanLen])
	for _, indicator := range blockedIndicators {
		if strings.Contains(bodyLower, indicator) {
			return true, "blocked_indicator: " + indicator
		}
	}
	return false, ""
}
