//go:build !linux

package radiolink

import (
	"rfnode-go/drivers/nrf24"
	"rfnode-go/errcode"
	"rfnode-go/types"
)

type NRF24Options struct {
	SPIPort string
	SPIHz   int64
	CEPin   string
}

type HardwareRadio struct {
	*nrf24.Device
}

func OpenNRF24(types.RadioConfig, NRF24Options) (*HardwareRadio, error) {
	return nil, &errcode.E{C: errcode.Unsupported, Op: "radiolink.OpenNRF24", Msg: "spidev radio needs linux"}
}

func (h *HardwareRadio) Close() error { return nil }
