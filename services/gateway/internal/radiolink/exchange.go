// Package radiolink owns the gateway's radio. One worker goroutine performs
// every command/reply exchange; HTTP handlers reach it over the bus.
package radiolink

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"rfnode-go/errcode"
)

// Radio is the gateway transceiver. *nrf24.Device and *sim.Radio satisfy it.
type Radio interface {
	Begin() error
	StartListening() error
	StopListening() error
	Available() bool
	Receive(buf []byte) (int, error)
	Send(p []byte) error
	PowerDown() error
}

const maxPayload = 32

type Options struct {
	ReplyTimeout time.Duration
	PollInterval time.Duration
	// RatePerSec and Burst pace exchanges; zero RatePerSec disables pacing.
	RatePerSec float64
	Burst      int
	Log        *zap.Logger
}

func (o *Options) defaults() {
	if o.ReplyTimeout <= 0 {
		o.ReplyTimeout = 3 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Millisecond
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
}

// Exchanger performs send-then-listen round trips. It is not safe for
// concurrent use; the Worker serialises calls.
type Exchanger struct {
	radio Radio
	o     Options
	lim   *rate.Limiter
	buf   [maxPayload]byte
}

func NewExchanger(r Radio, o Options) *Exchanger {
	o.defaults()
	lim := rate.NewLimiter(rate.Inf, 0)
	if o.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(o.RatePerSec), o.Burst)
	}
	return &Exchanger{radio: r, o: o, lim: lim}
}

// Start brings the radio up idle (not listening).
func (x *Exchanger) Start() error {
	if err := x.radio.Begin(); err != nil {
		return errcode.Wrap(errcode.RadioInit, "radiolink.Start", err)
	}
	return x.radio.StopListening()
}

func (x *Exchanger) Stop() error { return x.radio.PowerDown() }

// Exchange sends cmd and waits for the node's reply: stop listening, send,
// listen, poll up to ReplyTimeout, read one payload, stop listening. The
// reply has trailing NULs and surrounding whitespace removed.
func (x *Exchanger) Exchange(ctx context.Context, cmd string) (string, error) {
	if len(cmd) > maxPayload {
		return "", &errcode.E{C: errcode.PayloadTooLarge, Op: "radiolink.Exchange"}
	}
	if err := x.lim.Wait(ctx); err != nil {
		return "", errcode.Wrap(errcode.Timeout, "radiolink.Exchange", err)
	}

	_ = x.radio.StopListening()
	x.drain()

	x.o.Log.Debug("send", zap.String("command", cmd))
	if err := x.radio.Send([]byte(cmd)); err != nil {
		return "", err
	}
	if err := x.radio.StartListening(); err != nil {
		return "", err
	}
	defer func() { _ = x.radio.StopListening() }()

	deadline := time.Now().Add(x.o.ReplyTimeout)
	tick := time.NewTicker(x.o.PollInterval)
	defer tick.Stop()
	for {
		if x.radio.Available() {
			n, err := x.radio.Receive(x.buf[:])
			if err != nil {
				return "", err
			}
			reply := clean(x.buf[:n])
			x.o.Log.Debug("reply", zap.String("command", cmd), zap.String("reply", reply))
			return reply, nil
		}
		if !time.Now().Before(deadline) {
			x.o.Log.Warn("no reply", zap.String("command", cmd))
			return "", &errcode.E{C: errcode.NoReply, Op: "radiolink.Exchange", Msg: cmd}
		}
		select {
		case <-ctx.Done():
			return "", errcode.Wrap(errcode.Timeout, "radiolink.Exchange", ctx.Err())
		case <-tick.C:
		}
	}
}

// drain discards replies that arrived after an earlier exchange gave up.
func (x *Exchanger) drain() {
	for i := 0; i < 3 && x.radio.Available(); i++ {
		n, _ := x.radio.Receive(x.buf[:])
		x.o.Log.Debug("stale reply dropped", zap.String("reply", clean(x.buf[:n])))
	}
}

func clean(b []byte) string {
	return strings.TrimSpace(strings.TrimRight(string(b), "\x00"))
}
