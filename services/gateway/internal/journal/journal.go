// Package journal records every radio exchange the gateway performs.
package journal

import (
	"context"
	"sync"

	"rfnode-go/types"
)

type Store interface {
	Append(ctx context.Context, r types.ExchangeResult) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]types.ExchangeResult, error)
}

// Ring keeps the last N exchanges in memory.
type Ring struct {
	mu   sync.Mutex
	buf  []types.ExchangeResult
	next int
	full bool
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 256
	}
	return &Ring{buf: make([]types.ExchangeResult, capacity)}
}

func (r *Ring) Append(_ context.Context, e types.ExchangeResult) error {
	r.mu.Lock()
	r.buf[r.next] = e
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
	return nil
}

func (r *Ring) Recent(_ context.Context, limit int) ([]types.ExchangeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.next
	if r.full {
		n = len(r.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]types.ExchangeResult, 0, limit)
	for i := 1; i <= limit; i++ {
		out = append(out, r.buf[(r.next-i+len(r.buf))%len(r.buf)])
	}
	return out, nil
}
