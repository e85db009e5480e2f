package node

import (
	"time"

	"rfnode-go/errcode"
	"rfnode-go/x/diag"
	"rfnode-go/x/mathx"
	"rfnode-go/x/strconvx"
)

// Reply is the status text sent back to the peer. Empty is a valid reply.
type Reply string

const (
	MinAngle    = 0
	MaxAngle    = 180
	CentreAngle = 90
)

// Battery holds the ADC scaling:
//
//	mV = mean(samples) * VRef * Divider * Calib / Divisor
type Battery struct {
	VRef     uint32 // mV
	Divider  uint32
	Calib    uint32
	Divisor  uint32
	Samples  int
	Interval time.Duration
}

func DefaultBattery() Battery {
	return Battery{
		VRef:     3300,
		Divider:  2,
		Calib:    96,
		Divisor:  409500,
		Samples:  16,
		Interval: 100 * time.Millisecond,
	}
}

// Millivolts scales a mean ADC reading.
func (b Battery) Millivolts(mean uint32) uint32 {
	return mathx.MulDiv(mean, b.VRef*b.Divider*b.Calib, b.Divisor)
}

// Dispatcher executes commands against the hardware. It is not safe for
// concurrent use; the control loop owns it.
type Dispatcher struct {
	Actuator  Actuator
	Indicator Indicator
	Sampler   Sampler
	Battery   Battery
	Timing    Timing
	Delay     func(time.Duration)
	Log       *diag.Logger
}

// Dispatch parses frame, performs the action and returns the reply.
func (d *Dispatcher) Dispatch(frame []byte, st *State) Reply {
	cmd := Parse(frame)
	d.Log.Print("dispatch", "cmd", cmd.Kind.String(), "arg", strconvx.Itoa(cmd.Arg))

	switch cmd.Kind {
	case MoveActuator:
		angle := mathx.Clamp(cmd.Arg, MinAngle, MaxAngle)
		err := d.withActuator(st, func(a Actuator) error {
			d.delay(d.Timing.ActuatorSettle)
			if err := a.Write(angle); err != nil {
				return err
			}
			d.delay(d.Timing.ActuatorHold)
			return nil
		})
		if err != nil {
			d.Log.Print("actuator failed", "err", string(errcode.Of(err)))
		}
		return Reply(prefixServo + strconvx.Itoa(angle))

	case IndicatorOn:
		d.Indicator.Set(true)
		st.IndicatorOn = true
		return "LEDOn"

	case IndicatorOff:
		d.Indicator.Set(false)
		st.IndicatorOn = false
		return "LEDOff"

	case QueryBattery:
		return Reply(strconvx.Itoa(int(d.sampleBattery())))

	case ScheduleSleep:
		st.PendingSleepMinutes = cmd.Arg
		st.SleepPending = true
		return Reply(prefixRdoff + strconvx.Itoa(cmd.Arg))
	}
	return ""
}

// withActuator attaches, runs fn and always detaches. ActuatorEngaged is
// true exactly while attached.
func (d *Dispatcher) withActuator(st *State, fn func(Actuator) error) (err error) {
	if err := d.Actuator.Attach(); err != nil {
		return err
	}
	st.ActuatorEngaged = true
	defer func() {
		derr := d.Actuator.Detach()
		st.ActuatorEngaged = false
		if err == nil {
			err = derr
		}
	}()
	return fn(d.Actuator)
}

func (d *Dispatcher) sampleBattery() uint32 {
	b := d.Battery
	var sum uint32
	for i := 0; i < b.Samples; i++ {
		sum += uint32(d.Sampler.Sample())
		d.delay(b.Interval)
	}
	return b.Millivolts(mathx.Mean(sum, b.Samples))
}

func (d *Dispatcher) delay(dur time.Duration) {
	if dur <= 0 {
		return
	}
	if d.Delay != nil {
		d.Delay(dur)
		return
	}
	time.Sleep(dur)
}
