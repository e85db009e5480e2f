package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

// Raspberry Pi Pico: nRF24 on SPI0, servo on GP15, on-board LED.
const cfgPico = `{
  "device": "pico",
  "radio": {
    "channel": 76,
    "data_rate": "250k",
    "pa_level": "max",
    "retry_delay": 3,
    "retry_count": 5,
    "tx_addr": "1Node",
    "rx_addr": "2Node"
  },
  "pins": {
    "spi": 0, "sck": 18, "sdo": 19, "sdi": 16, "csn": 17,
    "ce": 20, "irq": 21,
    "servo": 15,
    "led": 25, "led_active_low": false,
    "adc": 26,
    "uart_tx": 0, "uart_rx": 1
  },
  "diag": { "baud": 115200 }
}`

// Pico 2 (rp2350): same wiring, external active-low LED on GP14.
const cfgPico2 = `{
  "device": "pico2",
  "pins": {
    "spi": 0, "sck": 18, "sdo": 19, "sdi": 16, "csn": 17,
    "ce": 20, "irq": 21,
    "servo": 15,
    "led": 14, "led_active_low": true,
    "adc": 26,
    "uart_tx": 0, "uart_rx": 1
  }
}`

// Simulated node used by the gateway's sim backend.
const cfgSim = `{
  "device": "sim",
  "pins": { "csn": -1, "ce": -1, "irq": -1, "servo": -1, "led": -1, "adc": -1 }
}`

var embeddedConfigs = map[string][]byte{
	"pico":  []byte(cfgPico),
	"pico2": []byte(cfgPico2),
	"sim":   []byte(cfgSim),
}
