// Package ratelimiter paces per-subject request flows, used to keep a single
// authenticated identity from minting challenges faster than it could ever
// legitimately consume them.
package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SubjectLimiter applies a token bucket per subject ID and periodically
// evicts idle entries so the map stays bounded by active subjects.
type SubjectLimiter struct {
	limit     rate.Limit
	burst     int
	mu        sync.Mutex
	bySubject map[int64]*entry
	hits      uint64
	idleTTL   time.Duration
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a per-subject limiter; returns nil if args are invalid. A nil
// limiter allows everything, so callers can wire "no limit" by config.
func New(rps float64, burst int, idleTTL time.Duration) *SubjectLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &SubjectLimiter{
		limit:     rate.Limit(rps),
		burst:     burst,
		bySubject: make(map[int64]*entry),
		idleTTL:   idleTTL,
	}
}

// Allow reports whether one token can be consumed for the subject at now.
func (l *SubjectLimiter) Allow(subject int64, now time.Time) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.bySubject[subject]
	if !ok {
		e = &entry{
			limiter:  rate.NewLimiter(l.limit, l.burst),
			lastSeen: now,
		}
		l.bySubject[subject] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.bySubject {
			if v.lastSeen.Before(cutoff) {
				delete(l.bySubject, k)
			}
		}
	}

	return allowed
}
