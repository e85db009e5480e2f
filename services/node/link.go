package node

import "rfnode-go/errcode"

// Mode is the half-duplex link direction.
type Mode uint8

const (
	ModeOff Mode = iota
	ModeListening
	ModeTransmitting
)

func (m Mode) String() string {
	switch m {
	case ModeListening:
		return "listening"
	case ModeTransmitting:
		return "transmitting"
	default:
		return "off"
	}
}

// Link serialises use of a half-duplex radio. Receive is only legal while
// listening; Transmit always leaves the link listening again, whatever the
// send outcome.
type Link struct {
	radio Radio
	mode  Mode
}

func NewLink(r Radio) *Link { return &Link{radio: r} }

func (l *Link) Mode() Mode { return l.mode }

// Listen enters receive mode from any state.
func (l *Link) Listen() error {
	if l.mode == ModeListening {
		return nil
	}
	if err := l.radio.StartListening(); err != nil {
		return err
	}
	l.mode = ModeListening
	return nil
}

// Available is false whenever the link is not listening.
func (l *Link) Available() bool {
	return l.mode == ModeListening && l.radio.Available()
}

func (l *Link) Receive(buf []byte) (int, error) {
	if l.mode != ModeListening {
		return 0, &errcode.E{C: errcode.NotListening, Op: "link.Receive", Msg: l.mode.String()}
	}
	return l.radio.Receive(buf)
}

// Transmit runs stop-listening, send, resume-listening. The send error (if
// any) is returned after listening has been restored.
func (l *Link) Transmit(p []byte) error {
	if l.mode != ModeListening {
		return &errcode.E{C: errcode.NotListening, Op: "link.Transmit", Msg: l.mode.String()}
	}
	if err := l.radio.StopListening(); err != nil {
		return err
	}
	l.mode = ModeTransmitting
	sendErr := l.radio.Send(p)
	if err := l.radio.StartListening(); err != nil {
		l.mode = ModeOff
		if sendErr != nil {
			return sendErr
		}
		return err
	}
	l.mode = ModeListening
	return sendErr
}

// PowerDown drops the radio into power-down. The link is Off afterwards.
func (l *Link) PowerDown() error {
	l.mode = ModeOff
	return l.radio.PowerDown()
}

// Reinit powers the radio up and reapplies its configuration. The link
// stays Off until Listen.
func (l *Link) Reinit() error {
	l.mode = ModeOff
	if err := l.radio.PowerUp(); err != nil {
		return err
	}
	return l.radio.Setup()
}
