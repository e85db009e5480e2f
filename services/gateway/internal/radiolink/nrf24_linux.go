//go:build linux

package radiolink

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"rfnode-go/drivers/nrf24"
	nodecfg "rfnode-go/services/config"
	"rfnode-go/types"
)

type NRF24Options struct {
	SPIPort string // "" picks the first spidev
	SPIHz   int64
	CEPin   string // gpioreg name, e.g. "GPIO22"
}

// HardwareRadio is an nRF24L01+ on Linux spidev. Chip-select is driven by
// the SPI controller.
type HardwareRadio struct {
	*nrf24.Device
	port spi.PortCloser
}

// OpenNRF24 opens the radio with the gateway's side of link.
func OpenNRF24(link types.RadioConfig, o NRF24Options) (*HardwareRadio, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}
	port, err := spireg.Open(o.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", o.SPIPort, err)
	}
	hz := o.SPIHz
	if hz <= 0 {
		hz = 10_000_000
	}
	conn, err := port.Connect(physic.Frequency(hz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("connect spi: %w", err)
	}
	ce := gpioreg.ByName(o.CEPin)
	if ce == nil {
		_ = port.Close()
		return nil, fmt.Errorf("no gpio named %q", o.CEPin)
	}
	if err := ce.Out(gpio.Low); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("ce %s: %w", o.CEPin, err)
	}

	d := nrf24.New(conn, periphPin{ce}, nil)
	d.Configure(nodecfg.Radio(link))
	return &HardwareRadio{Device: d, port: port}, nil
}

func (h *HardwareRadio) Close() error {
	_ = h.Device.PowerDown()
	return h.port.Close()
}

// periphPin adapts a periph output to nrf24.Pin.
type periphPin struct{ p gpio.PinOut }

func (p periphPin) Set(high bool) {
	if high {
		_ = p.p.Out(gpio.High)
	} else {
		_ = p.p.Out(gpio.Low)
	}
}
