package ratelimit

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestAcquireWaitsOutCurrentDelay(t *testing.T) {
	mock := clock.NewMock()
	l := New(Options{RequestsPerSecond: 1, Jitter: 0, Clock: mock})

	done := make(chan struct{})
	l.Record("a.test", 10*time.Millisecond, true, 200)
	go func() {
		l.Acquire("a.test")
		close(done)
	}()

	time.Sleep(20 * time.Millisecond) // let Acquire register its timer with the mock clock
	mock.Add(2 * time.Second)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Acquire failed: did not return after mock clock advanced past delay")
	}
}

func TestRecord429TriplesDelayCappedAtMax(t *testing.T) {
	mock := clock.NewMock()
	l := New(Options{RequestsPerSecond: 2, MaxDelay: 2 * time.Second, Clock: mock})

	l.Record("a.test", 0, false, 429)
	stats := l.Stats("a.test")
	if stats["current_delay"] != 1500*time.Millisecond {
		t.Errorf("Record failed: expected 1.5s delay got %v", stats["current_delay"])
	}

	l.Record("a.test", 0, false, 429)
	l.Record("a.test", 0, false, 429)
	stats = l.Stats("a.test")
	if stats["current_delay"] != 2*time.Second {
		t.Errorf("Record failed: expected delay capped at max, got %v", stats["current_delay"])
	}
}

func TestRecordSuccessGraduallySpeedsUpFlooredAtMin(t *testing.T) {
	mock := clock.NewMock()
	l := New(Options{RequestsPerSecond: 1, MinDelay: 100 * time.Millisecond, Clock: mock})

	for i := 0; i < 200; i++ {
		l.Record("a.test", 10*time.Millisecond, true, 200)
	}
	stats := l.Stats("a.test")
	if stats["current_delay"] != 100*time.Millisecond {
		t.Errorf("Record failed: expected delay floored at min, got %v", stats["current_delay"])
	}
}

func TestRecordThreeConsecutiveErrorsDoublesDelay(t *testing.T) {
	mock := clock.NewMock()
	l := New(Options{RequestsPerSecond: 2, MaxDelay: 10 * time.Second, Clock: mock})

	base := l.Stats("a.test")["current_delay"].(time.Duration)
	l.Record("a.test", 0, false, 0)
	l.Record("a.test", 0, false, 0)
	l.Record("a.test", 0, false, 0)

	stats := l.Stats("a.test")
	if stats["current_delay"].(time.Duration) <= base {
		t.Errorf("Record failed: expected delay increase after three consecutive errors")
	}
}

func TestSetCrawlDelayFlooredAtMin(t *testing.T) {
	l := New(Options{MinDelay: 500 * time.Millisecond})
	l.SetCrawlDelay("a.test", 100*time.Millisecond)
	stats := l.Stats("a.test")
	if stats["current_delay"] != 500*time.Millisecond {
		t.Errorf("SetCrawlDelay failed: expected floor at min delay, got %v", stats["current_delay"])
	}

	l.SetCrawlDelay("a.test", 5*time.Second)
	stats = l.Stats("a.test")
	if stats["current_delay"] != 5*time.Second {
		t.Errorf("SetCrawlDelay failed: expected delay set to 5s, got %v", stats["current_delay"])
	}
}

func TestAdaptiveFalseDisablesDelayAdjustment(t *testing.T) {
	disabled := false
	l := New(Options{RequestsPerSecond: 2, MaxDelay: 10 * time.Second, Adaptive: &disabled})

	base := l.Stats("a.test")["current_delay"].(time.Duration)
	l.Record("a.test", 0, false, 429)
	l.Record("a.test", 0, false, 429)
	l.Record("a.test", 0, false, 429)

	stats := l.Stats("a.test")
	if stats["current_delay"].(time.Duration) != base {
		t.Errorf("Record failed: expected delay unchanged with Adaptive=false, got %v (base %v)", stats["current_delay"], base)
	}
}

func TestDomainsPaceIndependently(t *testing.T) {
	l := New(Options{})
	l.Record("a.test", 0, false, 500)
	l.Record("b.test", 0, true, 200)

	a := l.Stats("a.test")["current_delay"].(time.Duration)
	b := l.Stats("b.test")["current_delay"].(time.Duration)
	if a == b {
		t.Errorf("Record failed: expected independent per-domain delays, got equal %v", a)
	}
}
