package node

import (
	"context"
	"errors"
	"time"

	"rfnode-go/errcode"
)

// fakeRadio queues inbound frames and records everything sent.
type fakeRadio struct {
	beginErr  error
	sendErr   error
	listening bool
	powered   bool
	rx        [][]byte
	sent      []string
	calls     []string
}

func (r *fakeRadio) record(c string) { r.calls = append(r.calls, c) }

func (r *fakeRadio) Begin() error {
	r.record("begin")
	if r.beginErr != nil {
		return r.beginErr
	}
	r.powered = true
	return nil
}
func (r *fakeRadio) Setup() error { r.record("setup"); return nil }
func (r *fakeRadio) StartListening() error {
	r.record("start")
	r.listening = true
	return nil
}
func (r *fakeRadio) StopListening() error {
	r.record("stop")
	r.listening = false
	return nil
}
func (r *fakeRadio) Available() bool { return r.powered && len(r.rx) > 0 }
func (r *fakeRadio) Receive(buf []byte) (int, error) {
	if len(r.rx) == 0 {
		return 0, nil
	}
	n := copy(buf, r.rx[0])
	r.rx = r.rx[1:]
	return n, nil
}
func (r *fakeRadio) Send(p []byte) error {
	r.record("send")
	if r.listening {
		return errors.New("send while listening")
	}
	r.sent = append(r.sent, string(p))
	return r.sendErr
}
func (r *fakeRadio) PowerUp() error   { r.record("up"); r.powered = true; return nil }
func (r *fakeRadio) PowerDown() error { r.record("down"); r.powered = false; return nil }

func (r *fakeRadio) inject(frames ...string) {
	for _, f := range frames {
		r.rx = append(r.rx, []byte(f))
	}
}

type fakeActuator struct {
	attached         bool
	attach, detach   int
	angles           []int
	writeErr         error
	writeWhileDetach bool
}

func (a *fakeActuator) Attach() error { a.attach++; a.attached = true; return nil }
func (a *fakeActuator) Detach() error { a.detach++; a.attached = false; return nil }
func (a *fakeActuator) Write(angle int) error {
	if !a.attached {
		a.writeWhileDetach = true
	}
	a.angles = append(a.angles, angle)
	return a.writeErr
}

type fakeIndicator struct {
	on     bool
	writes []bool
}

func (i *fakeIndicator) Set(on bool) { i.on = on; i.writes = append(i.writes, on) }

type fakeSampler struct{ v uint16 }

func (s fakeSampler) Sample() uint16 { return s.v }

// fakePower never blocks; it records requested sleeps and the indicator
// level at the moment deep sleep begins.
type fakePower struct {
	ind        *fakeIndicator
	radio      *fakeRadio
	waits      int
	sleeps     []time.Duration
	ledAtSleep []bool
	radioAt    []bool
	cancel     bool
	block      bool // SleepUntilSignal really waits
}

func (p *fakePower) SleepUntilSignal(ctx context.Context, wake <-chan struct{}) error {
	p.waits++
	if p.block {
		select {
		case <-wake:
		case <-ctx.Done():
		}
		return ctx.Err()
	}
	select {
	case <-wake:
	default:
	}
	return ctx.Err()
}

func (p *fakePower) SleepFor(ctx context.Context, d time.Duration) error {
	p.sleeps = append(p.sleeps, d)
	p.ledAtSleep = append(p.ledAtSleep, p.ind.on)
	p.radioAt = append(p.radioAt, p.radio.powered)
	if p.cancel {
		return context.Canceled
	}
	return ctx.Err()
}

type rig struct {
	radio  *fakeRadio
	act    *fakeActuator
	ind    *fakeIndicator
	power  *fakePower
	delays []time.Duration
	phases []Phase
	m      *Machine
}

func newRig(adc uint16) *rig {
	r := &rig{
		radio: &fakeRadio{},
		act:   &fakeActuator{},
		ind:   &fakeIndicator{on: true},
	}
	r.power = &fakePower{ind: r.ind, radio: r.radio}
	r.m = New(Hardware{
		Radio:     r.radio,
		Actuator:  r.act,
		Indicator: r.ind,
		Sampler:   fakeSampler{v: adc},
		Power:     r.power,
		Delay:     func(d time.Duration) { r.delays = append(r.delays, d) },
	}, Options{
		OnPhase: func(p Phase, _ State) { r.phases = append(r.phases, p) },
	})
	return r
}

// deliver queues a frame and raises the IRQ like the hardware would.
func (r *rig) deliver(frames ...string) {
	r.radio.inject(frames...)
	r.m.Signal().Raise()
}

func (r *rig) lastSent() string {
	if len(r.radio.sent) == 0 {
		return "<none>"
	}
	return r.radio.sent[len(r.radio.sent)-1]
}

var errBoom = &errcode.E{C: errcode.Error, Op: "test", Msg: "boom"}
