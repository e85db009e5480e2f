package node

import (
	"bytes"
	"strings"

	"rfnode-go/x/strconvx"
)

// MaxFrameSize is the longest command text the node interprets. Longer
// frames are truncated, never rejected.
const MaxFrameSize = 9

// MaxReplySize is the radio payload limit, terminator included.
const MaxReplySize = 32

type Kind uint8

const (
	Unrecognized Kind = iota
	MoveActuator
	IndicatorOn
	IndicatorOff
	QueryBattery
	ScheduleSleep
)

func (k Kind) String() string {
	switch k {
	case MoveActuator:
		return "servo"
	case IndicatorOn:
		return "on"
	case IndicatorOff:
		return "off"
	case QueryBattery:
		return "btlvl"
	case ScheduleSleep:
		return "rdoff"
	default:
		return "unrecognized"
	}
}

// Command is one parsed frame. Arg is the raw angle for MoveActuator and
// the raw minutes for ScheduleSleep; it is not range-checked here.
type Command struct {
	Kind Kind
	Arg  int
}

const (
	prefixServo = "servo "
	prefixRdoff = "rdoff "
)

// Parse interprets a frame. Matching is ordered and case/whitespace
// sensitive; the first rule that matches wins.
func Parse(frame []byte) Command {
	s := FrameText(frame)
	switch {
	case strings.HasPrefix(s, prefixServo):
		return Command{Kind: MoveActuator, Arg: strconvx.LeadingInt(s[len(prefixServo):])}
	case s == "on":
		return Command{Kind: IndicatorOn}
	case s == "off":
		return Command{Kind: IndicatorOff}
	case s == "btlvl":
		return Command{Kind: QueryBattery}
	case strings.HasPrefix(s, prefixRdoff):
		return Command{Kind: ScheduleSleep, Arg: strconvx.LeadingInt(s[len(prefixRdoff):])}
	}
	return Command{Kind: Unrecognized}
}

// FrameText truncates frame to MaxFrameSize and cuts it at the first NUL.
func FrameText(frame []byte) string {
	if len(frame) > MaxFrameSize {
		frame = frame[:MaxFrameSize]
	}
	if i := bytes.IndexByte(frame, 0); i >= 0 {
		frame = frame[:i]
	}
	return string(frame)
}

// EncodeReply appends r and its NUL terminator to dst, truncating r so the
// result fits one radio payload.
func EncodeReply(dst []byte, r Reply) []byte {
	s := string(r)
	if len(s) > MaxReplySize-1 {
		s = s[:MaxReplySize-1]
	}
	dst = append(dst, s...)
	return append(dst, 0)
}
