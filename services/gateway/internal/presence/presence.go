// Package presence tracks whether the node is inside a scheduled sleep
// window. While it is, the radio would only burn retries, so the HTTP layer
// refuses commands with 503 and a Retry-After hint.
package presence

import (
	"context"
	"strings"
	"sync"
	"time"

	"rfnode-go/types"
	"rfnode-go/x/strconvx"
)

// Store keeps the end of the current sleep window.
type Store interface {
	SetAsleepUntil(ctx context.Context, until time.Time) error
	// AsleepUntil returns the zero time when no window is recorded.
	AsleepUntil(ctx context.Context) (time.Time, error)
	Clear(ctx context.Context) error
}

// Tracker turns exchange results into sleep windows.
type Tracker struct {
	store  Store
	settle time.Duration
	factor int
	now    func() time.Time
}

// NewTracker returns a tracker that adds settle to every window, covering
// the node's reawaken delay before it listens again.
func NewTracker(s Store, settle time.Duration) *Tracker {
	return &Tracker{store: s, settle: settle, factor: 1, now: time.Now}
}

// SetTimeFactor divides the node's sleep by f, matching a simulated node
// whose clock runs f times faster. The settle margin is not scaled.
func (t *Tracker) SetTimeFactor(f int) {
	if f < 1 {
		f = 1
	}
	t.factor = f
}

// Observe records a window after a successful "rdoff N" with N > 0. The
// node's echoed reply is authoritative; the node skips sleep for N <= 0.
func (t *Tracker) Observe(ctx context.Context, r types.ExchangeResult) (time.Time, bool, error) {
	if !r.OK() || types.Verb(r.Command) != "rdoff" || !strings.HasPrefix(r.Reply, "rdoff ") {
		return time.Time{}, false, nil
	}
	minutes := strconvx.LeadingInt(r.Reply[len("rdoff "):])
	if minutes <= 0 {
		return time.Time{}, false, nil
	}
	start := t.now()
	if !r.StartedAt.IsZero() {
		start = r.StartedAt.Add(r.Latency)
	}
	until := start.Add(time.Duration(minutes)*time.Minute/time.Duration(t.factor) + t.settle)
	return until, true, t.store.SetAsleepUntil(ctx, until)
}

// Check reports how long the node will stay unreachable. An expired window
// is cleared.
func (t *Tracker) Check(ctx context.Context) (time.Duration, error) {
	until, err := t.store.AsleepUntil(ctx)
	if err != nil || until.IsZero() {
		return 0, err
	}
	left := until.Sub(t.now())
	if left <= 0 {
		return 0, t.store.Clear(ctx)
	}
	return left, nil
}

func (t *Tracker) Until(ctx context.Context) (time.Time, error) {
	return t.store.AsleepUntil(ctx)
}

// Memory is an in-process Store.
type Memory struct {
	mu    sync.Mutex
	until time.Time
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) SetAsleepUntil(_ context.Context, until time.Time) error {
	m.mu.Lock()
	m.until = until
	m.mu.Unlock()
	return nil
}

func (m *Memory) AsleepUntil(context.Context) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.until, nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.until = time.Time{}
	m.mu.Unlock()
	return nil
}
