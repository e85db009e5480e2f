package node

import (
	"context"
	"time"
)

// Radio is the transceiver as the node sees it. *nrf24.Device satisfies it.
type Radio interface {
	Begin() error
	Setup() error
	StartListening() error
	StopListening() error
	Available() bool
	Receive(buf []byte) (int, error)
	Send(p []byte) error
	PowerUp() error
	PowerDown() error
}

// Actuator is a positional actuator that must be attached before writing
// and detached afterwards to stop drawing holding current.
type Actuator interface {
	Attach() error
	Write(angle int) error
	Detach() error
}

// Indicator is a single on/off output. Polarity is the implementation's concern.
type Indicator interface {
	Set(on bool)
}

// Sampler returns one raw 12-bit battery ADC reading.
type Sampler interface {
	Sample() uint16
}

// Power owns the low-power states.
//
// SleepUntilSignal blocks until wake fires or ctx ends; it is the only
// indefinite block in the node. SleepFor is the timed deep sleep used by
// ScheduleSleep.
type Power interface {
	SleepUntilSignal(ctx context.Context, wake <-chan struct{}) error
	SleepFor(ctx context.Context, d time.Duration) error
}

// Hardware bundles the collaborators a Machine drives.
type Hardware struct {
	Radio     Radio
	Actuator  Actuator
	Indicator Indicator
	Sampler   Sampler
	Power     Power
	Signal    *Signal
	// Delay implements fixed settle/hold waits. Nil means time.Sleep.
	Delay func(time.Duration)
}
