// Package config resolves the node's build-time configuration: an embedded
// JSON document per board, decoded into types.NodeConfig, with every zero
// field defaulted and the result converted to driver/core parameters.
package config

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"rfnode-go/drivers/nrf24"
	"rfnode-go/errcode"
	"rfnode-go/services/node"
	"rfnode-go/types"
)

const (
	DefaultDevice = "pico"
	CtxDeviceKey  = "device" // context key used for device ID
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Load returns the defaulted config for device.
func Load(device string) (types.NodeConfig, error) {
	if device == "" {
		device = DefaultDevice
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return types.NodeConfig{}, &errcode.E{C: errcode.InvalidParams, Op: "config.Load", Msg: "no embedded config for device " + device}
	}
	return Decode(raw)
}

// Decode parses one JSON document. Unknown keys are rejected so typos in a
// board file fail loudly instead of silently falling back to defaults.
func Decode(raw []byte) (types.NodeConfig, error) {
	var c types.NodeConfig
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return types.NodeConfig{}, errcode.Wrap(errcode.InvalidParams, "config.Decode", err)
	}
	ApplyDefaults(&c)
	if err := Validate(c); err != nil {
		return types.NodeConfig{}, err
	}
	return c, nil
}

// ApplyDefaults fills zero fields with the reference link and timing values.
func ApplyDefaults(c *types.NodeConfig) {
	r := &c.Radio
	if r.Channel == 0 {
		r.Channel = 76
	}
	if r.DataRate == "" {
		r.DataRate = "250k"
	}
	if r.PALevel == "" {
		r.PALevel = "max"
	}
	if r.RetryDelay == 0 && r.RetryCount == 0 {
		r.RetryDelay, r.RetryCount = 3, 5
	}
	if r.TxAddr == "" {
		r.TxAddr = "1Node"
	}
	if r.RxAddr == "" {
		r.RxAddr = "2Node"
	}
	if r.MaskTxIRQ == nil {
		t := true
		r.MaskTxIRQ = &t
	}

	dt := node.DefaultTiming()
	t := &c.Timing
	defMS(&t.PollMS, dt.Poll)
	defMS(&t.BootSettleMS, dt.BootSettle)
	defMS(&t.SelfTestAttachMS, dt.SelfTestAttach)
	defMS(&t.SelfTestHoldMS, dt.SelfTestHold)
	defMS(&t.ActuatorSettleMS, dt.ActuatorSettle)
	defMS(&t.ActuatorHoldMS, dt.ActuatorHold)
	defMS(&t.ReawakeSettleMS, dt.ReawakeSettle)

	db := node.DefaultBattery()
	b := &c.Battery
	defU32(&b.VRefMV, db.VRef)
	defU32(&b.Divider, db.Divider)
	defU32(&b.Calib, db.Calib)
	defU32(&b.Divisor, db.Divisor)
	if b.Samples <= 0 {
		b.Samples = db.Samples
	}
	defMS(&b.IntervalMS, db.Interval)

	if c.Diag.Baud == 0 {
		c.Diag.Baud = 115200
	}
}

func Validate(c types.NodeConfig) error {
	bad := func(msg string) error {
		return &errcode.E{C: errcode.InvalidParams, Op: "config.Validate", Msg: msg}
	}
	if c.Radio.Channel > 125 {
		return bad("radio.channel must be 0..125")
	}
	if _, ok := dataRates[strings.ToLower(c.Radio.DataRate)]; !ok {
		return bad("radio.data_rate must be 250k, 1m or 2m")
	}
	if _, ok := paLevels[strings.ToLower(c.Radio.PALevel)]; !ok {
		return bad("radio.pa_level must be min, low, high or max")
	}
	if c.Radio.RetryDelay > 15 || c.Radio.RetryCount > 15 {
		return bad("radio retries must be 0..15")
	}
	if len(c.Radio.TxAddr) != 5 || len(c.Radio.RxAddr) != 5 {
		return bad("radio addresses must be 5 bytes")
	}
	if c.Radio.TxAddr == c.Radio.RxAddr {
		return bad("radio tx_addr and rx_addr must differ")
	}
	if c.Battery.Divisor == 0 {
		return bad("battery.divisor must be non-zero")
	}
	if c.Pins.Servo >= 0 {
		if _, err := PWMSlice(c.Pins.Servo); err != nil {
			return err
		}
	}
	return nil
}

// PWMSlices is the number of PWM slices the firmware can drive: slices 0..7,
// present on both RP2040 and RP2350. They cover GPIO 0..29.
const (
	PWMSlices  = 8
	maxPWMGPIO = 29
)

// PWMSlice maps a GPIO to its PWM slice, two pins per slice. GPIO 30 and up
// (RP2350B, slices 8..11) are rejected.
func PWMSlice(pin int) (uint8, error) {
	if pin < 0 || pin > maxPWMGPIO {
		return 0, &errcode.E{C: errcode.Unsupported, Op: "config.PWMSlice", Msg: "pins.servo must be GPIO 0..29"}
	}
	return uint8(pin>>1) % PWMSlices, nil
}

var dataRates = map[string]nrf24.DataRate{
	"250k": nrf24.DataRate250Kbps,
	"1m":   nrf24.DataRate1Mbps,
	"2m":   nrf24.DataRate2Mbps,
}

var paLevels = map[string]nrf24.PALevel{
	"min":  nrf24.PAMin,
	"low":  nrf24.PALow,
	"high": nrf24.PAHigh,
	"max":  nrf24.PAMax,
}

// Radio converts the radio section to driver parameters.
func Radio(c types.RadioConfig) nrf24.Config {
	return nrf24.Config{
		Channel:    c.Channel,
		DataRate:   dataRates[strings.ToLower(c.DataRate)],
		PALevel:    paLevels[strings.ToLower(c.PALevel)],
		RetryDelay: c.RetryDelay,
		RetryCount: c.RetryCount,
		TxAddr:     nrf24.AddressFrom(c.TxAddr),
		RxAddr:     nrf24.AddressFrom(c.RxAddr),
		MaskTxIRQ:  c.MaskTxIRQ != nil && *c.MaskTxIRQ,
	}
}

// Mirror returns the peer's radio section: same link, pipes swapped.
func Mirror(c types.RadioConfig) types.RadioConfig {
	m := c
	m.TxAddr, m.RxAddr = c.RxAddr, c.TxAddr
	return m
}

func Timing(c types.TimingConfig) node.Timing {
	return node.Timing{
		Poll:           ms(c.PollMS),
		BootSettle:     ms(c.BootSettleMS),
		SelfTestAttach: ms(c.SelfTestAttachMS),
		SelfTestHold:   ms(c.SelfTestHoldMS),
		ActuatorSettle: ms(c.ActuatorSettleMS),
		ActuatorHold:   ms(c.ActuatorHoldMS),
		ReawakeSettle:  ms(c.ReawakeSettleMS),
	}
}

func Battery(c types.BatteryConfig) node.Battery {
	return node.Battery{
		VRef:     c.VRefMV,
		Divider:  c.Divider,
		Calib:    c.Calib,
		Divisor:  c.Divisor,
		Samples:  c.Samples,
		Interval: ms(c.IntervalMS),
	}
}

func ms(v uint32) time.Duration { return time.Duration(v) * time.Millisecond }

func defMS(p *uint32, d time.Duration) {
	if *p == 0 {
		*p = uint32(d / time.Millisecond)
	}
}

func defU32(p *uint32, v uint32) {
	if *p == 0 {
		*p = v
	}
}
