package node

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIdlePowerWakesOnSignal(t *testing.T) {
	s := NewSignal()
	go func() {
		time.Sleep(5 * time.Millisecond)
		s.Raise()
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := (IdlePower{}).SleepUntilSignal(ctx, s.Wake()); err != nil {
		t.Fatalf("SleepUntilSignal = %v", err)
	}
	if !s.Take() {
		t.Fatal("flag should still be set after wake")
	}
}

func TestIdlePowerSleepForHonoursContext(t *testing.T) {
	start := time.Now()
	if err := (IdlePower{}).SleepFor(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("SleepFor returned early")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (IdlePower{}).SleepFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("SleepFor cancelled = %v", err)
	}
}
