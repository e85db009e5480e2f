package node

import "sync/atomic"

// Signal carries "the radio IRQ fired" from interrupt context to the control
// loop. Raise is the only method safe to call from an ISR: it does one atomic
// store and one non-blocking send, and never allocates.
type Signal struct {
	flag atomic.Uint32
	wake chan struct{}
}

func NewSignal() *Signal {
	return &Signal{wake: make(chan struct{}, 1)}
}

// Raise sets the flag and nudges a sleeper. Repeated raises coalesce.
func (s *Signal) Raise() {
	s.flag.Store(1)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Take reports whether the flag was set and clears it.
func (s *Signal) Take() bool { return s.flag.Swap(0) != 0 }

// Pending reports the flag without clearing it.
func (s *Signal) Pending() bool { return s.flag.Load() != 0 }

// Wake is the channel Power.SleepUntilSignal waits on. A stale token only
// costs one extra loop iteration.
func (s *Signal) Wake() <-chan struct{} { return s.wake }
