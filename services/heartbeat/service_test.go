package heartbeat

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"rfnode-go/bus"
)

func TestBeatRunsProbesAndPublishes(t *testing.T) {
	b := bus.NewBus(8)
	var probes atomic.Int32
	s := &Service{
		Interval: 5 * time.Millisecond,
		Probes:   []Probe{func(context.Context, time.Time) { probes.Add(1) }},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx, b.NewConnection("hb")); err != nil {
		t.Fatal(err)
	}

	sub := b.NewConnection("obs").Subscribe(TopicBeat)
	select {
	case m := <-sub.Channel():
		beat, ok := m.Payload.(Beat)
		if !ok || !m.Retained || beat.Seq == 0 {
			t.Fatalf("beat = %+v retained=%v", m.Payload, m.Retained)
		}
	case <-time.After(time.Second):
		t.Fatal("no heartbeat")
	}
	if probes.Load() == 0 {
		t.Fatal("probe never ran")
	}
}

func TestIntervalPayload(t *testing.T) {
	cases := []struct {
		in   any
		want time.Duration
		ok   bool
	}{
		{map[string]any{"interval": 2.5}, 2500 * time.Millisecond, true},
		{map[string]any{"interval": 3}, 3 * time.Second, true},
		{map[string]any{"interval": 0.0}, 0, false},
		{map[string]any{"interval": "5"}, 0, false},
		{"5", 0, false},
	}
	for _, c := range cases {
		got, ok := interval(c.in)
		if got != c.want || ok != c.ok {
			t.Fatalf("interval(%v) = %v,%v want %v,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestIntervalChangeOnConfigTopic(t *testing.T) {
	b := bus.NewBus(8)
	s := &Service{Interval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Start(ctx, b.NewConnection("hb"))

	cfg := b.NewConnection("cfg")
	sub := b.NewConnection("obs").Subscribe(TopicBeat)
	deadline := time.After(2 * time.Second)
	for {
		cfg.Publish(cfg.NewMessage(topicConfigHeartbeat, map[string]any{"interval": 0.005}, false))
		select {
		case <-sub.Channel():
			return
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatal("interval change never took effect")
		}
	}
}
