package ratelimiter

import (
	"testing"
	"time"
)

func TestSubjectLimiterIsolatesSubjects(t *testing.T) {
	l := New(1, 2, time.Minute)
	now := time.Now()

	if !l.Allow(1, now) || !l.Allow(1, now) {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow(1, now) {
		t.Fatal("third immediate request should be throttled")
	}
	// A different subject has its own bucket.
	if !l.Allow(2, now) {
		t.Fatal("subject 2 should be unaffected by subject 1")
	}
	// Tokens refill with time.
	if !l.Allow(1, now.Add(2*time.Second)) {
		t.Fatal("subject 1 should recover after refill")
	}
}

func TestSubjectLimiterNilAllowsEverything(t *testing.T) {
	var l *SubjectLimiter
	for i := 0; i < 100; i++ {
		if !l.Allow(1, time.Now()) {
			t.Fatal("nil limiter must never throttle")
		}
	}
	if New(0, 5, time.Minute) != nil {
		t.Fatal("invalid rps should yield nil limiter")
	}
}
