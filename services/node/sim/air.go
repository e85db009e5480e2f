// Package sim runs the node on simulated hardware: an in-memory "air" that
// routes frames between radio endpoints, plus fake actuator, indicator,
// battery sampler and a time-compressed power controller.
//
// The gateway's sim backend and the end-to-end tests use it to drive a real
// node.Machine without an MCU.
package sim

import (
	"sync"
	"time"

	"rfnode-go/drivers/nrf24"
	"rfnode-go/errcode"
)

// FIFODepth matches the nRF24L01+ RX FIFO.
const FIFODepth = 3

const maxPayload = 32

// Air joins radios that share a channel. Delivery needs the receiver to be
// powered, listening and to have FIFO room; otherwise the sender sees
// max_retries, as a real PTX would after exhausting retransmits.
type Air struct {
	mu     sync.Mutex
	radios []*Radio
	// Retries and RetryDelay model auto-retransmit in wall-clock time.
	Retries    int
	RetryDelay time.Duration
}

func NewAir() *Air {
	return &Air{Retries: 15, RetryDelay: time.Millisecond}
}

// NewRadio attaches an endpoint that transmits to tx and receives on rx.
func (a *Air) NewRadio(channel uint8, tx, rx nrf24.Address) *Radio {
	r := &Radio{air: a, channel: channel, tx: tx, rx: rx}
	a.mu.Lock()
	a.radios = append(a.radios, r)
	a.mu.Unlock()
	return r
}

// tryDeliver hands p to the first eligible receiver. It reports whether the
// frame was acked and the receiver's notify hook, to be run unlocked.
func (a *Air) tryDeliver(from *Radio, p []byte) (bool, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.radios {
		if r == from || r.channel != from.channel || r.rx != from.tx {
			continue
		}
		if !r.began || !r.powered || !r.listening || len(r.fifo) >= FIFODepth {
			continue
		}
		r.fifo = append(r.fifo, append([]byte(nil), p...))
		return true, r.OnReceive
	}
	return false, nil
}

// Radio is a simulated nRF24L01+. It satisfies node.Radio.
type Radio struct {
	air     *Air
	channel uint8
	tx, rx  nrf24.Address

	// guarded by air.mu
	began     bool
	powered   bool
	listening bool
	fifo      [][]byte
	failBegin bool

	// OnReceive runs after a frame lands in the FIFO, like the IRQ line.
	OnReceive func()
}

// FailBegin makes the next Begin report radio_init, for boot-failure tests.
func (r *Radio) FailBegin() {
	r.air.mu.Lock()
	r.failBegin = true
	r.air.mu.Unlock()
}

func (r *Radio) Begin() error {
	r.air.mu.Lock()
	defer r.air.mu.Unlock()
	if r.failBegin {
		return &errcode.E{C: errcode.RadioInit, Op: "sim.Begin", Msg: "chip not responding"}
	}
	r.began, r.powered = true, true
	r.fifo = nil
	return nil
}

func (r *Radio) Setup() error {
	r.air.mu.Lock()
	defer r.air.mu.Unlock()
	r.listening = false
	r.fifo = nil
	return nil
}

func (r *Radio) StartListening() error {
	r.air.mu.Lock()
	defer r.air.mu.Unlock()
	if !r.powered {
		return &errcode.E{C: errcode.Busy, Op: "sim.StartListening", Msg: "powered down"}
	}
	r.listening = true
	return nil
}

func (r *Radio) StopListening() error {
	r.air.mu.Lock()
	r.listening = false
	r.air.mu.Unlock()
	return nil
}

func (r *Radio) Available() bool {
	r.air.mu.Lock()
	defer r.air.mu.Unlock()
	return r.powered && len(r.fifo) > 0
}

func (r *Radio) Receive(buf []byte) (int, error) {
	r.air.mu.Lock()
	defer r.air.mu.Unlock()
	if len(r.fifo) == 0 {
		return 0, nil
	}
	n := copy(buf, r.fifo[0])
	r.fifo = r.fifo[1:]
	return n, nil
}

func (r *Radio) Send(p []byte) error {
	if len(p) > maxPayload {
		return &errcode.E{C: errcode.PayloadTooLarge, Op: "sim.Send"}
	}
	r.air.mu.Lock()
	ok := r.powered && !r.listening
	retries, delay := r.air.Retries, r.air.RetryDelay
	r.air.mu.Unlock()
	if !ok {
		return &errcode.E{C: errcode.Busy, Op: "sim.Send", Msg: "not in transmit mode"}
	}
	for i := 0; i <= retries; i++ {
		if i > 0 {
			time.Sleep(delay)
		}
		if acked, notify := r.air.tryDeliver(r, p); acked {
			if notify != nil {
				notify()
			}
			return nil
		}
	}
	return &errcode.E{C: errcode.MaxRetries, Op: "sim.Send"}
}

func (r *Radio) PowerUp() error {
	r.air.mu.Lock()
	r.powered = true
	r.air.mu.Unlock()
	return nil
}

func (r *Radio) PowerDown() error {
	r.air.mu.Lock()
	r.powered, r.listening = false, false
	r.air.mu.Unlock()
	return nil
}

// Powered reports whether the endpoint is out of power-down.
func (r *Radio) Powered() bool {
	r.air.mu.Lock()
	defer r.air.mu.Unlock()
	return r.powered
}

// Listening reports PRIM_RX.
func (r *Radio) Listening() bool {
	r.air.mu.Lock()
	defer r.air.mu.Unlock()
	return r.listening
}
