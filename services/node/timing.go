package node

import "time"

// Timing collects every fixed wait in the node lifecycle.
type Timing struct {
	Poll           time.Duration // loop delay before checking the radio
	BootSettle     time.Duration // after radio init, before the self-test
	SelfTestAttach time.Duration // attach to centre write during self-test
	SelfTestHold   time.Duration
	ActuatorSettle time.Duration // attach to write on MoveActuator
	ActuatorHold   time.Duration // write to detach on MoveActuator
	ReawakeSettle  time.Duration // after radio re-init on wake
}

func DefaultTiming() Timing {
	return Timing{
		Poll:           100 * time.Millisecond,
		BootSettle:     500 * time.Millisecond,
		SelfTestAttach: 100 * time.Millisecond,
		SelfTestHold:   1000 * time.Millisecond,
		ActuatorSettle: 200 * time.Millisecond,
		ActuatorHold:   1000 * time.Millisecond,
		ReawakeSettle:  2000 * time.Millisecond,
	}
}
