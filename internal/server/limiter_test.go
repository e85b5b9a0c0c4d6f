package server

import (
	"testing"
	"time"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	limiter := newRateLimiter()
	now := clock(0, 12, 0)

	for i := 0; i < rateMaxHits; i++ {
		if !limiter.allow("1.2.3.4|join", now) {
			t.Fatalf("expected hit %d within the budget", i)
		}
	}
	if limiter.allow("1.2.3.4|join", now) {
		t.Fatal("expected the budget to be exhausted")
	}
	// Other keys are unaffected.
	if !limiter.allow("1.2.3.4|create", now) {
		t.Fatal("expected a different action to have its own budget")
	}
	if !limiter.allow("5.6.7.8|join", now) {
		t.Fatal("expected a different caller to have its own budget")
	}
	// Once the window slides past the burst the caller is admitted again.
	if !limiter.allow("1.2.3.4|join", now.Add(rateWindow+time.Second)) {
		t.Fatal("expected the window to slide")
	}
}
