package radiolink

import (
	"context"
	"io"

	"rfnode-go/drivers/nrf24"
	nodecfg "rfnode-go/services/config"
	"rfnode-go/services/node"
	"rfnode-go/services/node/sim"
	"rfnode-go/types"
)

type SimOptions struct {
	// Device picks the node's embedded board config for timing and battery.
	Device     string
	TimeFactor int
	ADC        uint16
	// Diag receives the node's diagnostic stream.
	Diag    io.Writer
	OnPhase func(node.Phase, node.State)
}

// Sim is a node running on simulated hardware plus the gateway's endpoint
// on the same air.
type Sim struct {
	Air   *sim.Air
	Node  *sim.Node
	Radio *sim.Radio
}

// NewSim builds the pair. link is the node's view of the radio link.
func NewSim(link types.RadioConfig, o SimOptions) (*Sim, error) {
	nc, err := nodecfg.Load(o.Device)
	if err != nil {
		return nil, err
	}
	air := sim.NewAir()
	n := sim.NewNode(air, sim.NodeOptions{
		Channel:    link.Channel,
		TxAddr:     nrf24.AddressFrom(link.TxAddr),
		RxAddr:     nrf24.AddressFrom(link.RxAddr),
		TimeFactor: o.TimeFactor,
		ADC:        o.ADC,
		Timing:     nodecfg.Timing(nc.Timing),
		Battery:    nodecfg.Battery(nc.Battery),
		Log:        o.Diag,
		OnPhase:    o.OnPhase,
	})
	gw := nodecfg.Mirror(link)
	r := air.NewRadio(gw.Channel, nrf24.AddressFrom(gw.TxAddr), nrf24.AddressFrom(gw.RxAddr))
	return &Sim{Air: air, Node: n, Radio: r}, nil
}

// Start runs the simulated node until ctx ends.
func (s *Sim) Start(ctx context.Context) <-chan error { return s.Node.Start(ctx) }
