// Package ratelimit implements per-domain adaptive request pacing: it
// slows down on server errors and speeds back up on clean responses,
// the same shape as the reference rate limiter, reworked onto a testable
// clock so back-off/speed-up behavior can be asserted without real sleeps.
package ratelimit

import (
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// DomainState tracks per-domain pacing accounting.
type DomainState struct {
	LastRequestTime   time.Time
	RequestCount      int
	ErrorCount        int
	ConsecutiveErrors int
	AvgResponseTime   time.Duration
	CurrentDelay      time.Duration

	responseTimes []time.Duration
}

const responseWindow = 50

func (s *DomainState) recordRequest(now time.Time, responseTime time.Duration, success bool) {
	s.LastRequestTime = now
	s.RequestCount++

	if success {
		s.ConsecutiveErrors = 0
		s.responseTimes = append(s.responseTimes, responseTime)
		if len(s.responseTimes) > responseWindow {
			s.responseTimes = s.responseTimes[len(s.responseTimes)-responseWindow:]
		}
		var sum time.Duration
		for _, rt := range s.responseTimes {
			sum += rt
		}
		s.AvgResponseTime = sum / time.Duration(len(s.responseTimes))
	} else {
		s.ErrorCount++
		s.ConsecutiveErrors++
	}
}

// Limiter paces requests per domain, with each domain serialized by its
// own lock so unrelated domains never block one another.
type Limiter struct {
	baseDelay time.Duration
	minDelay  time.Duration
	maxDelay  time.Duration
	adaptive  bool
	jitter    float64

	clock clock.Clock
	log   *logrus.Logger

	mu      sync.Mutex
	domains map[string]*DomainState
	locks   map[string]*sync.Mutex
}

// Options configures a Limiter; zero values fall back to spec defaults.
//
// Adaptive is a *bool rather than a bool so that "unset" (nil, the spec
// default of adaptive=true) can be told apart from an explicit
// adaptive_delay=false.
type Options struct {
	RequestsPerSecond float64
	MinDelay          time.Duration
	MaxDelay          time.Duration
	Adaptive          *bool
	Jitter            float64
	Clock             clock.Clock
	Logger            *logrus.Logger
}

// New creates a Limiter. A nil Clock uses the real wall clock.
func New(opts Options) *Limiter {
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2.0
	}
	minDelay := opts.MinDelay
	if minDelay <= 0 {
		minDelay = 500 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 3 * time.Second
	}
	jitter := opts.Jitter
	if jitter == 0 {
		jitter = 0.3
	}
	c := opts.Clock
	if c == nil {
		c = clock.New()
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	adaptive := true
	if opts.Adaptive != nil {
		adaptive = *opts.Adaptive
	}
	return &Limiter{
		baseDelay: time.Duration(float64(time.Second) / rps),
		minDelay:  minDelay,
		maxDelay:  maxDelay,
		adaptive:  adaptive,
		jitter:    jitter,
		clock:     c,
		log:       log,
		domains:   make(map[string]*DomainState),
		locks:     make(map[string]*sync.Mutex),
	}
}

func (l *Limiter) lockFor(domain string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk, ok := l.locks[domain]
	if !ok {
		lk = &sync.Mutex{}
		l.locks[domain] = lk
	}
	return lk
}

func (l *Limiter) stateFor(domain string) *DomainState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.domains[domain]
	if !ok {
		st = &DomainState{CurrentDelay: l.baseDelay}
		l.domains[domain] = st
	}
	return st
}

// Acquire blocks (on the limiter's clock) until a request to domain is
// allowed, honoring the domain's current adaptive delay and jitter. Each
// domain serializes its own callers; different domains proceed in
// parallel.
func (l *Limiter) Acquire(domain string) {
	lk := l.lockFor(domain)
	lk.Lock()
	defer lk.Unlock()

	state := l.stateFor(domain)
	now := l.clock.Now()
	elapsed := now.Sub(state.LastRequestTime)

	delay := l.baseDelay
	if l.adaptive {
		delay = state.CurrentDelay
	}
	remaining := delay - elapsed
	if remaining <= 0 {
		return
	}

	jitterAmount := float64(remaining) * l.jitter
	actual := float64(remaining) + (rand.Float64()*2-1)*jitterAmount
	if actual < 0 {
		actual = 0
	}
	l.log.WithFields(logrus.Fields{"domain": domain, "delay": time.Duration(actual)}).Debug("rate_limit_waiting")
	l.clock.Sleep(time.Duration(actual))
}

// Record reports the outcome of a completed request, updating the
// domain's rolling stats and, if adaptive, its current delay.
func (l *Limiter) Record(domain string, responseTime time.Duration, success bool, statusCode int) {
	state := l.stateFor(domain)

	lk := l.lockFor(domain)
	lk.Lock()
	defer lk.Unlock()

	state.recordRequest(l.clock.Now(), responseTime, success)
	if l.adaptive {
		l.adjustDelay(domain, state, statusCode)
	}
}

func (l *Limiter) adjustDelay(domain string, state *DomainState, statusCode int) {
	switch {
	case statusCode == 429:
		state.CurrentDelay = minDuration(state.CurrentDelay*3, l.maxDelay)
		l.log.WithFields(logrus.Fields{"domain": domain, "new_delay": state.CurrentDelay}).Warn("rate_limit_429_detected")
	case statusCode >= 500:
		state.CurrentDelay = minDuration(state.CurrentDelay*2, l.maxDelay)
	case state.ConsecutiveErrors >= 3:
		state.CurrentDelay = minDuration(state.CurrentDelay*2, l.maxDelay)
	case state.ConsecutiveErrors == 0 && statusCode < 400:
		state.CurrentDelay = maxDuration(time.Duration(float64(state.CurrentDelay)*0.95), l.minDelay)
	}
}

// SetCrawlDelay applies a robots.txt Crawl-delay directive to domain,
// floored at the configured minimum delay.
func (l *Limiter) SetCrawlDelay(domain string, delay time.Duration) {
	state := l.stateFor(domain)
	lk := l.lockFor(domain)
	lk.Lock()
	defer lk.Unlock()

	state.CurrentDelay = maxDuration(delay, l.minDelay)
	l.log.WithFields(logrus.Fields{"domain": domain, "delay": state.CurrentDelay}).Info("crawl_delay_set")
}

// Stats returns a snapshot of a domain's pacing state.
func (l *Limiter) Stats(domain string) map[string]any {
	state := l.stateFor(domain)
	lk := l.lockFor(domain)
	lk.Lock()
	defer lk.Unlock()
	return map[string]any{
		"domain":            domain,
		"request_count":     state.RequestCount,
		"error_count":       state.ErrorCount,
		"current_delay":     state.CurrentDelay,
		"avg_response_time": state.AvgResponseTime,
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
