package types

// Node configuration, embedded per board and selected by device id.
// Zero fields take defaults in services/config.

type NodeConfig struct {
	Device  string        `json:"device"`
	Radio   RadioConfig   `json:"radio"`
	Timing  TimingConfig  `json:"timing"`
	Battery BatteryConfig `json:"battery"`
	Pins    PinConfig     `json:"pins"`
	Diag    DiagConfig    `json:"diag"`
}

type RadioConfig struct {
	Channel    uint8  `json:"channel"`
	DataRate   string `json:"data_rate"` // "250k", "1m", "2m"
	PALevel    string `json:"pa_level"`  // "min", "low", "high", "max"
	RetryDelay uint8  `json:"retry_delay"`
	RetryCount uint8  `json:"retry_count"`
	TxAddr     string `json:"tx_addr"`
	RxAddr     string `json:"rx_addr"`
	MaskTxIRQ  *bool  `json:"mask_tx_irq,omitempty"`
}

// TimingConfig is in milliseconds.
type TimingConfig struct {
	PollMS           uint32 `json:"poll_ms"`
	BootSettleMS     uint32 `json:"boot_settle_ms"`
	SelfTestAttachMS uint32 `json:"self_test_attach_ms"`
	SelfTestHoldMS   uint32 `json:"self_test_hold_ms"`
	ActuatorSettleMS uint32 `json:"actuator_settle_ms"`
	ActuatorHoldMS   uint32 `json:"actuator_hold_ms"`
	ReawakeSettleMS  uint32 `json:"reawake_settle_ms"`
}

type BatteryConfig struct {
	VRefMV     uint32 `json:"vref_mv"`
	Divider    uint32 `json:"divider"`
	Calib      uint32 `json:"calib"`
	Divisor    uint32 `json:"divisor"`
	Samples    int    `json:"samples"`
	IntervalMS uint32 `json:"interval_ms"`
}

// PinConfig holds GPIO numbers. -1 means "not connected".
type PinConfig struct {
	SPI          int  `json:"spi"` // SPI peripheral index
	SCK          int  `json:"sck"`
	SDO          int  `json:"sdo"`
	SDI          int  `json:"sdi"`
	CSN          int  `json:"csn"`
	CE           int  `json:"ce"`
	IRQ          int  `json:"irq"`
	Servo        int  `json:"servo"`
	LED          int  `json:"led"`
	LEDActiveLow bool `json:"led_active_low"`
	ADC          int  `json:"adc"`
	UARTTX       int  `json:"uart_tx"`
	UARTRX       int  `json:"uart_rx"`
}

type DiagConfig struct {
	Baud uint32 `json:"baud"`
}
