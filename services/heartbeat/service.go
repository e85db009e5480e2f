// Package heartbeat ticks on a fixed interval, runs the registered probes
// and publishes a retained liveness beat. The interval can be changed at
// runtime on config/heartbeat with {"interval": seconds}.
package heartbeat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rfnode-go/bus"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	TopicBeat            = bus.T("gateway", "heartbeat")
)

// Probe runs once per tick.
type Probe func(ctx context.Context, now time.Time)

// Beat is the retained payload on gateway/heartbeat.
type Beat struct {
	TS     time.Time     `json:"ts"`
	Uptime time.Duration `json:"uptime_ns"`
	Seq    uint64        `json:"seq"`
}

type Service struct {
	Interval time.Duration
	Probes   []Probe
	Log      *zap.Logger

	started time.Time
	seq     uint64
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(s.Interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Log.Info("heartbeat stopping")
			return
		case t := <-tick.C:
			s.beat(ctx, conn, t)
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			if d, ok := interval(msg.Payload); ok {
				tick.Reset(d)
				s.Log.Info("heartbeat interval set", zap.Duration("interval", d))
			}
		}
	}
}

func (s *Service) beat(ctx context.Context, conn *bus.Connection, now time.Time) {
	for _, p := range s.Probes {
		p(ctx, now)
	}
	s.seq++
	conn.Publish(conn.NewMessage(TopicBeat, Beat{TS: now, Uptime: now.Sub(s.started), Seq: s.seq}, true))
}

func interval(payload any) (time.Duration, bool) {
	m, ok := payload.(map[string]any)
	if !ok {
		return 0, false
	}
	var secs float64
	switch v := m["interval"].(type) {
	case float64:
		secs = v
	case int:
		secs = float64(v)
	default:
		return 0, false
	}
	if secs <= 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.Interval <= 0 {
		s.Interval = time.Second
	}
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	s.started = time.Now()
	go s.serviceLoop(ctx, conn)
	return nil
}
