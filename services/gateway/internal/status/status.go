// Package status folds exchange events into the node snapshot: it feeds the
// journal, metrics and presence tracker, and republishes what the gateway
// knows about the node as retained node/status/<field> messages.
package status

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"rfnode-go/bus"
	"rfnode-go/services/gateway/internal/journal"
	"rfnode-go/services/gateway/internal/metrics"
	"rfnode-go/services/gateway/internal/presence"
	"rfnode-go/services/gateway/internal/radiolink"
	"rfnode-go/types"
	"rfnode-go/x/strconvx"
)

var topicStatus = bus.T("node", "status")

const (
	fieldIndicator   = "indicator"
	fieldAngle       = "angle"
	fieldBattery     = "battery_mv"
	fieldAsleep      = "asleep"
	fieldAsleepUntil = "asleep_until"
	fieldLastSeen    = "last_seen"
	fieldLastError   = "last_error"
)

type Recorder struct {
	conn     *bus.Connection
	journal  journal.Store
	metrics  *metrics.GatewayMetrics
	presence *presence.Tracker
	log      *zap.Logger

	asleep atomic.Bool
}

func NewRecorder(conn *bus.Connection, j journal.Store, m *metrics.GatewayMetrics, p *presence.Tracker, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{conn: conn, journal: j, metrics: m, presence: p, log: log}
}

// Run consumes node/event until ctx ends.
func (r *Recorder) Run(ctx context.Context) {
	sub := r.conn.Subscribe(radiolink.TopicEvent)
	defer r.conn.Unsubscribe(sub)

	r.publish(fieldIndicator, "unknown")
	r.publish(fieldAsleep, false)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			if res, ok := msg.Payload.(types.ExchangeResult); ok {
				r.Record(ctx, res)
			}
		}
	}
}

// Record applies one exchange result.
func (r *Recorder) Record(ctx context.Context, res types.ExchangeResult) {
	if err := r.journal.Append(ctx, res); err != nil {
		r.log.Warn("journal append failed", zap.String("id", res.ID), zap.Error(err))
	}
	r.metrics.ObserveExchange(res)

	if !res.OK() {
		r.publish(fieldLastError, res.Code)
		return
	}
	r.publish(fieldLastSeen, res.StartedAt.Add(res.Latency))

	switch types.Verb(res.Command) {
	case "on", "off":
		switch res.Reply {
		case "LEDOn":
			r.publish(fieldIndicator, "on")
		case "LEDOff":
			r.publish(fieldIndicator, "off")
		}
	case "servo":
		if strings.HasPrefix(res.Reply, "servo ") {
			r.publish(fieldAngle, strconvx.LeadingInt(res.Reply[len("servo "):]))
		}
	case "btlvl":
		if mv := strconvx.LeadingInt(res.Reply); mv > 0 {
			r.publish(fieldBattery, uint32(mv))
			r.metrics.SetBattery(uint32(mv))
		}
	case "rdoff":
		until, asleep, err := r.presence.Observe(ctx, res)
		if err != nil {
			r.log.Warn("presence update failed", zap.Error(err))
		}
		if asleep {
			r.SetAsleep(until)
			r.log.Info("node asleep", zap.Time("until", until))
		}
	}
}

// SetAsleep publishes the sleep window; a zero until marks the node awake.
func (r *Recorder) SetAsleep(until time.Time) {
	asleep := !until.IsZero()
	r.asleep.Store(asleep)
	r.publish(fieldAsleep, asleep)
	if asleep {
		r.publish(fieldAsleepUntil, until)
	} else {
		r.clear(fieldAsleepUntil)
	}
	r.metrics.SetAsleep(asleep)
}

// Sweep marks the node awake once its window has passed, whether or not a
// request already cleared the stored window. It is the heartbeat probe.
func (r *Recorder) Sweep(ctx context.Context, _ time.Time) {
	if !r.asleep.Load() {
		return
	}
	left, err := r.presence.Check(ctx)
	if err != nil {
		r.log.Warn("presence check failed", zap.Error(err))
		return
	}
	if left == 0 {
		r.SetAsleep(time.Time{})
		r.log.Info("node sleep window over")
	}
}

func (r *Recorder) publish(field string, v any) {
	r.conn.Publish(r.conn.NewMessage(topicStatus.Append(field), v, true))
}

func (r *Recorder) clear(field string) {
	r.conn.Publish(r.conn.NewMessage(topicStatus.Append(field), nil, true))
}

// Snapshot assembles the retained fields into one NodeStatus.
func Snapshot(conn *bus.Connection) types.NodeStatus {
	st := types.NodeStatus{Indicator: "unknown"}
	for _, m := range conn.Retained(topicStatus.Append("+")) {
		apply(&st, m)
	}
	return st
}

func apply(st *types.NodeStatus, m *bus.Message) {
	if len(m.Topic) != 3 {
		return
	}
	field, _ := m.Topic[2].(string)
	switch v := m.Payload.(type) {
	case string:
		switch field {
		case fieldIndicator:
			st.Indicator = v
		case fieldLastError:
			st.LastError = v
		}
	case int:
		if field == fieldAngle {
			a := v
			st.Angle = &a
		}
	case uint32:
		if field == fieldBattery {
			mv := v
			st.BatteryMV = &mv
		}
	case bool:
		if field == fieldAsleep {
			st.Asleep = v
		}
	case time.Time:
		switch field {
		case fieldAsleepUntil:
			st.AsleepUntil = v
		case fieldLastSeen:
			st.LastSeen = v
		}
	}
}
