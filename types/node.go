package types

import (
	"strings"
	"time"
)

// ------------------------
// Gateway-side view of the node
// ------------------------

// Exchange is one command/reply round trip with the node, as submitted on
// the bus topic "radio/exchange".
type Exchange struct {
	ID      string `json:"id"`
	Command string `json:"command"` // radio text, e.g. "servo 90"
	// Deadline, when set, is the point after which the requester has given
	// up; the worker skips exchanges it reaches too late.
	Deadline time.Time `json:"deadline,omitempty"`
}

// ExchangeResult is the radio worker's reply to an Exchange.
type ExchangeResult struct {
	ID        string        `json:"id"`
	Command   string        `json:"command"`
	Reply     string        `json:"reply"`
	Code      string        `json:"code"` // errcode; "ok" on success
	Error     string        `json:"error,omitempty"`
	Latency   time.Duration `json:"latency_ns"`
	StartedAt time.Time     `json:"started_at"`
}

func (r ExchangeResult) OK() bool { return r.Code == "ok" }

// Verb is the first word of a radio command ("servo 90" -> "servo").
func Verb(command string) string {
	if i := strings.IndexByte(command, ' '); i >= 0 {
		return command[:i]
	}
	return command
}

// NodeStatus is the retained snapshot of what the gateway last learned.
type NodeStatus struct {
	Indicator   string    `json:"indicator"` // "on", "off", "unknown"
	Angle       *int      `json:"angle,omitempty"`
	BatteryMV   *uint32   `json:"battery_mv,omitempty"`
	Asleep      bool      `json:"asleep"`
	AsleepUntil time.Time `json:"asleep_until,omitempty"`
	LastSeen    time.Time `json:"last_seen,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}
