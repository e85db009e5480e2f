//go:build rp2040 || rp2350

package main

import (
	"io"
	"machine"

	"github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/servo"

	"rfnode-go/drivers/nrf24"
	"rfnode-go/errcode"
	"rfnode-go/services/config"
	"rfnode-go/services/node"
	"rfnode-go/types"
	"rfnode-go/x/mathx"
	"rfnode-go/x/strconvx"
)

// ---- diagnostics ----

func setupDiag(cfg types.NodeConfig) io.Writer {
	_ = uartx.UART0.Configure(uartx.UARTConfig{
		BaudRate: cfg.Diag.Baud,
		TX:       machine.Pin(cfg.Pins.UARTTX),
		RX:       machine.Pin(cfg.Pins.UARTRX),
	})
	return uartx.UART0
}

// ---- radio ----

func setupRadio(cfg types.NodeConfig) *nrf24.Device {
	p := cfg.Pins
	bus := machine.SPI0
	if p.SPI == 1 {
		bus = machine.SPI1
	}
	_ = bus.Configure(machine.SPIConfig{
		Frequency: 4 * machine.MHz,
		SCK:       machine.Pin(p.SCK),
		SDO:       machine.Pin(p.SDO),
		SDI:       machine.Pin(p.SDI),
		Mode:      0,
	})
	csn := outputPin(p.CSN, true)
	ce := outputPin(p.CE, false)

	d := nrf24.New(bus, ce, csn)
	d.Configure(config.Radio(cfg.Radio))
	return d
}

// attachIRQ raises sig on the falling edge of the nRF24 IRQ line.
func attachIRQ(cfg types.NodeConfig, sig *node.Signal) error {
	pin := machine.Pin(cfg.Pins.IRQ)
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return pin.SetInterrupt(machine.PinFalling, func(machine.Pin) { sig.Raise() })
}

func outputPin(n int, initial bool) machine.Pin {
	pin := machine.Pin(n)
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Set(initial)
	return pin
}

// ---- indicator ----

type led struct {
	pin       machine.Pin
	activeLow bool
}

func newLED(cfg types.NodeConfig) *led {
	l := &led{pin: machine.Pin(cfg.Pins.LED), activeLow: cfg.Pins.LEDActiveLow}
	l.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	l.Set(false)
	return l
}

func (l *led) Set(on bool) { l.pin.Set(on != l.activeLow) }

// ---- battery ADC ----

type adc struct{ ch machine.ADC }

func newADC(cfg types.NodeConfig) *adc {
	machine.InitADC()
	a := &adc{ch: machine.ADC{Pin: machine.Pin(cfg.Pins.ADC)}}
	a.ch.Configure(machine.ADCConfig{})
	return a
}

// Sample returns 12 bits; machine.ADC.Get is left-aligned to 16.
func (a *adc) Sample() uint16 { return a.ch.Get() >> 4 }

// ---- servo ----

// Pulse range for 0..180 degrees on common hobby servos.
const (
	minPulseUS = 544
	maxPulseUS = 2400
)

// hobbyServo drives a servo over PWM. Detach stops the pulse train so the
// servo stops holding position and stops drawing current.
type hobbyServo struct {
	s        servo.Servo
	attached bool
}

func newServo(cfg types.NodeConfig) (*hobbyServo, error) {
	pin := machine.Pin(cfg.Pins.Servo)
	slice, err := machine.PWMPeripheral(pin)
	if err != nil {
		return nil, errcode.Wrap(errcode.Unsupported, "servo", err)
	}
	pwm, err := pwmBySlice(slice)
	if err != nil {
		return nil, err
	}
	s, err := servo.New(pwm, pin)
	if err != nil {
		return nil, errcode.Wrap(errcode.Unsupported, "servo", err)
	}
	s.SetMicroseconds(0)
	return &hobbyServo{s: s}, nil
}

func (h *hobbyServo) Attach() error {
	h.attached = true
	return nil
}

func (h *hobbyServo) Write(angle int) error {
	if !h.attached {
		return &errcode.E{C: errcode.Busy, Op: "servo.Write", Msg: "detached"}
	}
	a := uint32(mathx.Clamp(angle, node.MinAngle, node.MaxAngle))
	us := minPulseUS + mathx.MulDiv(a, maxPulseUS-minPulseUS, node.MaxAngle)
	h.s.SetMicroseconds(int16(us))
	return nil
}

func (h *hobbyServo) Detach() error {
	h.s.SetMicroseconds(0)
	h.attached = false
	return nil
}

var pwmSlices = [config.PWMSlices]servo.PWM{
	machine.PWM0, machine.PWM1, machine.PWM2, machine.PWM3,
	machine.PWM4, machine.PWM5, machine.PWM6, machine.PWM7,
}

func pwmBySlice(slice uint8) (servo.PWM, error) {
	if int(slice) >= len(pwmSlices) {
		return nil, &errcode.E{C: errcode.Unsupported, Op: "pwmBySlice", Msg: "PWM slice " + strconvx.Itoa(int(slice))}
	}
	return pwmSlices[slice], nil
}
