package node

// State is the node's only long-lived mutable state. It is owned by the
// control goroutine and rebuilt on every boot.
type State struct {
	Listening           bool
	PendingSleepMinutes int
	IndicatorOn         bool
	ActuatorEngaged     bool
	// SleepPending is set by ScheduleSleep and consumed by the machine.
	SleepPending bool
}

// BootState is the state right after a successful boot.
func BootState() State {
	return State{Listening: true}
}

// Phase is the node lifecycle position.
type Phase uint8

const (
	PhaseBooting Phase = iota
	PhaseAwakeListening
	PhaseProcessing
	PhasePoweringDown
	PhaseAsleep
	PhaseReawakening
)

func (p Phase) String() string {
	switch p {
	case PhaseAwakeListening:
		return "awake_listening"
	case PhaseProcessing:
		return "processing"
	case PhasePoweringDown:
		return "powering_down"
	case PhaseAsleep:
		return "asleep"
	case PhaseReawakening:
		return "reawakening"
	default:
		return "booting"
	}
}
