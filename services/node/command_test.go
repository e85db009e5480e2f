package node

import (
	"testing"
)

func TestParseOrderedRules(t *testing.T) {
	cases := []struct {
		in   string
		want Command
	}{
		{"servo 90", Command{MoveActuator, 90}},
		{"servo -20", Command{MoveActuator, -20}},
		{"servo x", Command{MoveActuator, 0}},
		{"servo", Command{Unrecognized, 0}},
		{"Servo 90", Command{Unrecognized, 0}},
		{"on", Command{IndicatorOn, 0}},
		{"on ", Command{Unrecognized, 0}},
		{" on", Command{Unrecognized, 0}},
		{"off", Command{IndicatorOff, 0}},
		{"btlvl", Command{QueryBattery, 0}},
		{"rdoff 5", Command{ScheduleSleep, 5}},
		{"rdoff -3", Command{ScheduleSleep, -3}},
		{"rdoff", Command{Unrecognized, 0}},
		{"", Command{Unrecognized, 0}},
		{"hello", Command{Unrecognized, 0}},
	}
	for _, c := range cases {
		if got := Parse([]byte(c.in)); got != c.want {
			t.Fatalf("Parse(%q) = %+v, want %+v", c.in, got, c.want)
		}
	}
}

func TestParseTruncatesToNineBytes(t *testing.T) {
	// "servo 1234" is ten bytes; only "servo 123" is interpreted.
	if got := Parse([]byte("servo 1234")); got != (Command{MoveActuator, 123}) {
		t.Fatalf("Parse(10 bytes) = %+v", got)
	}
	if got := Parse([]byte("btlvlXXXXXXXXXXXXXXXX")); got.Kind != Unrecognized {
		t.Fatalf("long garbage parsed as %v", got.Kind)
	}
}

func TestParseStopsAtNUL(t *testing.T) {
	if got := Parse([]byte("on\x00garbage")); got.Kind != IndicatorOn {
		t.Fatalf("NUL-terminated frame parsed as %v", got.Kind)
	}
	if got := FrameText([]byte("\x00on")); got != "" {
		t.Fatalf("FrameText = %q", got)
	}
}

func TestEncodeReplyTerminatesAndCaps(t *testing.T) {
	if got := string(EncodeReply(nil, "LEDOn")); got != "LEDOn\x00" {
		t.Fatalf("EncodeReply = %q", got)
	}
	long := Reply(make([]byte, 40))
	if got := EncodeReply(nil, long); len(got) != MaxReplySize || got[len(got)-1] != 0 {
		t.Fatalf("long reply encoded to %d bytes", len(got))
	}
	if got := EncodeReply(nil, ""); len(got) != 1 || got[0] != 0 {
		t.Fatalf("empty reply encoded to %q", got)
	}
}
