package node

import (
	"context"
	"time"
)

// IdlePower parks the control goroutine on channels and timers. On TinyGo
// the scheduler drops the core into WFE while every goroutine is blocked,
// so this is the portable low-power implementation.
type IdlePower struct{}

func (IdlePower) SleepUntilSignal(ctx context.Context, wake <-chan struct{}) error {
	select {
	case <-wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (IdlePower) SleepFor(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
