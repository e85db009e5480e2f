//go:build rp2040 || rp2350

// Command rfnode is the node firmware: nRF24L01+ on SPI, hobby servo on a
// PWM pin, indicator LED, battery divider on an ADC pin, diagnostics on UART0.
//
//	tinygo flash -target=pico ./cmd/rfnode
//	tinygo flash -target=pico2 -ldflags="-X main.device=pico2" ./cmd/rfnode
package main

import (
	"context"
	"time"

	"rfnode-go/services/config"
	"rfnode-go/services/node"
	"rfnode-go/x/diag"
)

// device selects the embedded board config.
var device = config.DefaultDevice

func main() {
	// Give a USB/UART console time to attach before the first line.
	time.Sleep(1 * time.Second)

	cfg, err := config.Load(device)
	if err != nil {
		println("[node] config:", err.Error())
		halt()
	}

	log := diag.New(setupDiag(cfg), "node")
	log.Print("started", "device", cfg.Device)

	sig := node.NewSignal()
	radio := setupRadio(cfg)
	if err := attachIRQ(cfg, sig); err != nil {
		log.Print("irq attach failed", "err", err.Error())
		halt()
	}
	act, err := newServo(cfg)
	if err != nil {
		log.Print("servo setup failed", "err", err.Error())
		halt()
	}

	m := node.New(node.Hardware{
		Radio:     radio,
		Actuator:  act,
		Indicator: newLED(cfg),
		Sampler:   newADC(cfg),
		Power:     node.IdlePower{},
		Signal:    sig,
	}, node.Options{
		Timing:  config.Timing(cfg.Timing),
		Battery: config.Battery(cfg.Battery),
		Log:     log,
	})

	if err := m.Run(context.Background()); err != nil {
		log.Print("fatal", "err", err.Error())
		halt()
	}
}

// halt parks forever; the watchdog or a power cycle is the only way out.
func halt() {
	select {}
}
