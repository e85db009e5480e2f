package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Actuator records every call. It refuses writes while detached.
type Actuator struct {
	mu       sync.Mutex
	attached bool
	attaches int
	detaches int
	angles   []int
}

func (a *Actuator) Attach() error {
	a.mu.Lock()
	a.attached = true
	a.attaches++
	a.mu.Unlock()
	return nil
}

func (a *Actuator) Detach() error {
	a.mu.Lock()
	a.attached = false
	a.detaches++
	a.mu.Unlock()
	return nil
}

func (a *Actuator) Write(angle int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.angles = append(a.angles, angle)
	return nil
}

// ActuatorStats is a copy of the recorded activity.
type ActuatorStats struct {
	Attached bool
	Attaches int
	Detaches int
	Angles   []int
}

func (a *Actuator) Stats() ActuatorStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ActuatorStats{
		Attached: a.attached,
		Attaches: a.attaches,
		Detaches: a.detaches,
		Angles:   append([]int(nil), a.angles...),
	}
}

type Indicator struct{ on atomic.Bool }

func (i *Indicator) Set(on bool) { i.on.Store(on) }
func (i *Indicator) On() bool    { return i.on.Load() }

// Sampler returns a settable fixed ADC reading.
type Sampler struct{ v atomic.Uint32 }

func NewSampler(reading uint16) *Sampler {
	s := &Sampler{}
	s.Set(reading)
	return s
}

func (s *Sampler) Set(reading uint16) { s.v.Store(uint32(reading & 0x0FFF)) }
func (s *Sampler) Sample() uint16     { return uint16(s.v.Load()) }

// Clock compresses simulated time: a duration d takes d/Factor wall time.
type Clock struct {
	Factor int
}

func (c Clock) scale(d time.Duration) time.Duration {
	if c.Factor <= 1 {
		return d
	}
	return d / time.Duration(c.Factor)
}

// Delay is the node's settle/hold wait.
func (c Clock) Delay(d time.Duration) { time.Sleep(c.scale(d)) }

// Power is the simulated power controller.
type Power struct {
	Clock Clock

	mu     sync.Mutex
	asleep bool
	until  time.Time // wall-clock end of the current timed sleep
	naps   []time.Duration
}

func (p *Power) SleepUntilSignal(ctx context.Context, wake <-chan struct{}) error {
	select {
	case <-wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Power) SleepFor(ctx context.Context, d time.Duration) error {
	wall := p.Clock.scale(d)
	p.mu.Lock()
	p.asleep = true
	p.until = time.Now().Add(wall)
	p.naps = append(p.naps, d)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.asleep = false
		p.mu.Unlock()
	}()

	t := time.NewTimer(wall)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Asleep reports whether a timed sleep is in progress.
func (p *Power) Asleep() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.asleep
}

// Naps lists the simulated durations of every timed sleep so far.
func (p *Power) Naps() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.naps...)
}
