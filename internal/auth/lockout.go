package auth

import (
	"context"
	"sync"
	"time"

	"memberd/pkg/requestcontext"
)

const (
	lockoutThreshold = 5
	failureWindow    = 15 * time.Minute
	lockoutDuration  = 15 * time.Minute
)

type lockoutRecord struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

// Lockout throttles repeated failed logins per username. Counters are held in
// memory; a restart clears them, which is acceptable for a throttle.
type Lockout struct {
	mu      sync.Mutex
	records map[string]*lockoutRecord
}

func NewLockout() *Lockout {
	return &Lockout{records: make(map[string]*lockoutRecord)}
}

// Allowed reports whether a login attempt for the identifier may proceed.
func (l *Lockout) Allowed(ctx context.Context, identifier string) bool {
	now := requestcontext.Now(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[identifier]
	if !ok {
		return true
	}
	if now.Before(rec.lockedUntil) {
		return false
	}
	if now.Sub(rec.lastFailure) > failureWindow {
		delete(l.records, identifier)
	}
	return true
}

// RecordFailure counts a failed attempt and locks the identifier out once the
// threshold is reached inside the failure window.
func (l *Lockout) RecordFailure(ctx context.Context, identifier string) {
	now := requestcontext.Now(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[identifier]
	if !ok || now.Sub(rec.lastFailure) > failureWindow {
		rec = &lockoutRecord{}
		l.records[identifier] = rec
	}
	rec.failures++
	rec.lastFailure = now
	if rec.failures >= lockoutThreshold {
		rec.lockedUntil = now.Add(lockoutDuration)
	}
}

// RecordSuccess clears the identifier's failure history.
func (l *Lockout) RecordSuccess(_ context.Context, identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, identifier)
}
