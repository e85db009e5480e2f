// Package node is the command-driven node core: it waits for the radio IRQ,
// parses one short text command, drives the actuator/indicator/ADC, replies
// over the half-duplex link, and handles timed self power-down.
//
// Concurrency: Run owns everything. Only Signal.Raise may be called from
// elsewhere (typically the radio IRQ handler).
package node

import (
	"context"
	"errors"
	"time"

	"rfnode-go/errcode"
	"rfnode-go/x/diag"
	"rfnode-go/x/strconvx"
)

type Options struct {
	Timing  Timing
	Battery Battery
	Log     *diag.Logger
	// OnPhase observes every phase change, on the control goroutine.
	OnPhase func(Phase, State)
}

type Machine struct {
	hw    Hardware
	link  *Link
	disp  *Dispatcher
	t     Timing
	log   *diag.Logger
	onPh  func(Phase, State)
	st    State
	phase Phase
	// backlog: the last dispatch left frames in the RX FIFO. Those frames
	// will not produce a fresh IRQ edge, so they are drained without one.
	backlog bool

	rx [MaxFrameSize]byte
	tx [MaxReplySize]byte
}

func New(hw Hardware, o Options) *Machine {
	if hw.Signal == nil {
		hw.Signal = NewSignal()
	}
	if hw.Delay == nil {
		hw.Delay = time.Sleep
	}
	if o.Timing == (Timing{}) {
		o.Timing = DefaultTiming()
	}
	if o.Battery == (Battery{}) {
		o.Battery = DefaultBattery()
	}
	m := &Machine{
		hw:   hw,
		link: NewLink(hw.Radio),
		t:    o.Timing,
		log:  o.Log,
		onPh: o.OnPhase,
	}
	m.disp = &Dispatcher{
		Actuator:  hw.Actuator,
		Indicator: hw.Indicator,
		Sampler:   hw.Sampler,
		Battery:   o.Battery,
		Timing:    o.Timing,
		Delay:     hw.Delay,
		Log:       o.Log.With("dispatch"),
	}
	return m
}

func (m *Machine) Phase() Phase    { return m.phase }
func (m *Machine) State() State    { return m.st }
func (m *Machine) Signal() *Signal { return m.hw.Signal }
func (m *Machine) LinkMode() Mode  { return m.link.Mode() }

// Boot brings the radio up, pulses the actuator to centre, turns the
// indicator off and starts listening. Any radio failure is fatal and
// reported as errcode.RadioInit.
func (m *Machine) Boot(ctx context.Context) error {
	m.phase = PhaseBooting
	if err := m.hw.Radio.Begin(); err != nil {
		m.log.Print("radio init failed", "err", err.Error())
		return &errcode.E{C: errcode.RadioInit, Op: "node.Boot", Err: err}
	}
	m.delay(m.t.BootSettle)

	m.st = BootState()
	err := m.disp.withActuator(&m.st, func(a Actuator) error {
		m.delay(m.t.SelfTestAttach)
		if err := a.Write(CentreAngle); err != nil {
			return err
		}
		m.delay(m.t.SelfTestHold)
		return nil
	})
	if err != nil {
		m.log.Print("self-test actuator failed", "err", string(errcode.Of(err)))
	}

	m.hw.Indicator.Set(false)
	m.st.IndicatorOn = false

	if err := m.link.Listen(); err != nil {
		return &errcode.E{C: errcode.RadioInit, Op: "node.Boot", Msg: "listen", Err: err}
	}
	m.st.Listening = true
	m.setPhase(PhaseAwakeListening)
	return ctx.Err()
}

// Step runs one loop iteration. The only error it returns is ctx's.
func (m *Machine) Step(ctx context.Context) error {
	m.delay(m.t.Poll)
	if err := ctx.Err(); err != nil {
		return err
	}

	sig := m.hw.Signal
	if !m.backlog && !sig.Pending() && !m.link.Available() {
		if err := m.hw.Power.SleepUntilSignal(ctx, sig.Wake()); err != nil {
			return err
		}
	}

	flagged := sig.Take()
	if (flagged || m.backlog) && m.link.Available() {
		m.process()
		m.backlog = m.link.Available()
	} else {
		m.backlog = false
	}

	if m.st.SleepPending {
		return m.sleep(ctx)
	}
	return nil
}

// Run boots and then steps until ctx ends. Cancellation is a clean exit.
func (m *Machine) Run(ctx context.Context) error {
	if err := m.Boot(ctx); err != nil {
		if isCtxErr(err) {
			return nil
		}
		return err
	}
	for {
		if err := m.Step(ctx); err != nil {
			if isCtxErr(err) {
				m.log.Print("stopped")
				return nil
			}
			return err
		}
	}
}

func (m *Machine) process() {
	m.setPhase(PhaseProcessing)

	n, err := m.link.Receive(m.rx[:])
	if err != nil {
		m.log.Print("receive failed", "err", string(errcode.Of(err)))
		m.setPhase(PhaseAwakeListening)
		return
	}
	frame := m.rx[:n]
	m.log.Print("received", "text", FrameText(frame))

	reply := m.disp.Dispatch(frame, &m.st)
	m.log.Print("reply", "text", string(reply))

	if err := m.link.Transmit(EncodeReply(m.tx[:0], reply)); err != nil {
		m.log.Print("reply send failed", "err", string(errcode.Of(err)))
	}
	m.st.Listening = m.link.Mode() == ModeListening

	if !m.st.SleepPending {
		m.setPhase(PhaseAwakeListening)
	}
}

func (m *Machine) sleep(ctx context.Context) error {
	minutes := m.st.PendingSleepMinutes
	m.st.SleepPending = false
	if minutes <= 0 {
		m.st.PendingSleepMinutes = 0
		m.log.Print("sleep skipped", "minutes", strconvx.Itoa(minutes))
		m.setPhase(PhaseAwakeListening)
		return nil
	}

	m.setPhase(PhasePoweringDown)
	if m.st.ActuatorEngaged {
		_ = m.hw.Actuator.Detach()
		m.st.ActuatorEngaged = false
	}
	if err := m.link.PowerDown(); err != nil {
		m.log.Print("radio power-down failed", "err", string(errcode.Of(err)))
	}
	m.st.Listening = false
	m.hw.Indicator.Set(false)
	m.st.IndicatorOn = false

	m.setPhase(PhaseAsleep)
	m.log.Print("radio down", "minutes", strconvx.Itoa(minutes))
	err := m.hw.Power.SleepFor(ctx, time.Duration(minutes)*time.Minute)
	m.st.PendingSleepMinutes = 0
	if err != nil {
		return err
	}
	m.reawaken()
	return nil
}

func (m *Machine) reawaken() {
	m.setPhase(PhaseReawakening)
	if err := m.link.Reinit(); err != nil {
		m.log.Print("radio re-init failed", "err", string(errcode.Of(err)))
	}
	m.delay(m.t.ReawakeSettle)
	if err := m.link.Listen(); err != nil {
		m.log.Print("listen failed", "err", string(errcode.Of(err)))
	}
	m.st.Listening = m.link.Mode() == ModeListening
	m.hw.Indicator.Set(false)
	m.st.IndicatorOn = false
	m.backlog = false
	m.log.Print("radio up")
	m.setPhase(PhaseAwakeListening)
}

func (m *Machine) setPhase(p Phase) {
	if p == m.phase {
		return
	}
	m.phase = p
	m.log.Print("phase", "now", p.String())
	if m.onPh != nil {
		m.onPh(p, m.st)
	}
}

func (m *Machine) delay(d time.Duration) {
	if d > 0 {
		m.hw.Delay(d)
	}
}

func isCtxErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
