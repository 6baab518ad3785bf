package gateway

import (
	"context"
	"sync"
	"time"

	"sockgate/internal/telemetry"
	telemetrydomain "sockgate/internal/telemetry/domain"
)

// rateWindow is one fixed-window counter. The count only grows while
// now < resetAt; at or past resetAt the entry is overwritten with a fresh
// window.
type rateWindow struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window per-identity event limiter. Fixed window admits up
// to 2x maxEvents across a window boundary, which is acceptable for this use
// case; this is not a precision limiter.
//
// The limiter is an injected, explicitly owned service: its map is bounded by
// a periodic sweep of expired windows (start it with Run).
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*rateWindow

	maxEvents int
	window    time.Duration
	emitter   telemetry.EventEmitter
	now       func() time.Time
}

// NewLimiter returns a Limiter allowing maxEvents per window per key.
// emitter may be nil.
func NewLimiter(maxEvents int, window time.Duration, emitter telemetry.EventEmitter) *Limiter {
	return &Limiter{
		entries:   make(map[string]*rateWindow),
		maxEvents: maxEvents,
		window:    window,
		emitter:   emitter,
		now:       time.Now,
	}
}

// Check admits or denies one event for the connection. The key is the identity
// id when authenticated, else the remote address. Denials are emitted as
// security events and returned as ErrRateLimitExceeded; they are per-event and
// never tear down the connection.
func (l *Limiter) Check(cc *ConnContext, action string) error {
	if l.allow(cc.RateKey()) {
		return nil
	}
	telemetry.EmitAsync(l.emitter, &telemetrydomain.SecurityEvent{
		EventType:    telemetrydomain.EventRateLimitExceeded,
		ConnectionID: cc.ID,
		IdentityID:   cc.IdentityID(),
		RemoteAddr:   cc.RemoteAddr,
		Action:       action,
		Reason:       "rate limit exceeded",
		CreatedAt:    l.now().UTC(),
	})
	return ErrRateLimitExceeded
}

func (l *Limiter) allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.entries[key]
	if !ok || !now.Before(w.resetAt) {
		l.entries[key] = &rateWindow{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	if w.count < l.maxEvents {
		w.count++
		return true
	}
	return false
}

// Sweep removes expired windows. Called periodically by Run; exported for tests.
func (l *Limiter) Sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.entries {
		if !now.Before(w.resetAt) {
			delete(l.entries, key)
		}
	}
}

// Run sweeps expired windows every interval until ctx is cancelled, bounding
// the limiter's memory. Call in a goroutine from the server's lifecycle.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
