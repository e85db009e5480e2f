package sim

import (
	"context"
	"io"

	"rfnode-go/drivers/nrf24"
	"rfnode-go/services/node"
	"rfnode-go/x/diag"
)

type NodeOptions struct {
	Channel uint8
	TxAddr  nrf24.Address // node writes here ("1Node")
	RxAddr  nrf24.Address // node listens here ("2Node")
	// TimeFactor compresses every node delay and timed sleep.
	TimeFactor int
	// ADC is the initial battery reading.
	ADC     uint16
	Timing  node.Timing
	Battery node.Battery
	// Log receives the diagnostic stream; nil discards it.
	Log     io.Writer
	OnPhase func(node.Phase, node.State)
}

// Node is a node.Machine wired to simulated hardware.
type Node struct {
	*node.Machine
	Radio     *Radio
	Actuator  *Actuator
	Indicator *Indicator
	Sampler   *Sampler
	Power     *Power
}

// NewNode assembles a node on air. The radio's receive hook raises the
// machine's Signal, as the IRQ line does on hardware.
func NewNode(air *Air, o NodeOptions) *Node {
	if o.TxAddr == (nrf24.Address{}) {
		o.TxAddr = nrf24.AddressFrom("1Node")
	}
	if o.RxAddr == (nrf24.Address{}) {
		o.RxAddr = nrf24.AddressFrom("2Node")
	}
	if o.Channel == 0 {
		o.Channel = 76
	}
	clock := Clock{Factor: o.TimeFactor}
	n := &Node{
		Radio:     air.NewRadio(o.Channel, o.TxAddr, o.RxAddr),
		Actuator:  &Actuator{},
		Indicator: &Indicator{},
		Sampler:   NewSampler(o.ADC),
		Power:     &Power{Clock: clock},
	}
	sig := node.NewSignal()
	n.Radio.OnReceive = sig.Raise

	var log *diag.Logger
	if o.Log != nil {
		log = diag.New(o.Log, "node")
	}
	n.Machine = node.New(node.Hardware{
		Radio:     n.Radio,
		Actuator:  n.Actuator,
		Indicator: n.Indicator,
		Sampler:   n.Sampler,
		Power:     n.Power,
		Signal:    sig,
		Delay:     clock.Delay,
	}, node.Options{
		Timing:  o.Timing,
		Battery: o.Battery,
		Log:     log,
		OnPhase: o.OnPhase,
	})
	return n
}

// Start runs the machine on its own goroutine. The returned channel yields
// Run's result once ctx ends (or boot fails).
func (n *Node) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	return done
}
