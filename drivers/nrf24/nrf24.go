// Package nrf24 provides a driver for the Nordic nRF24L01+ 2.4 GHz transceiver.
//
// The chip is half-duplex: it is either a primary receiver (listening) or a
// primary transmitter. Send must only be called after StopListening; the
// caller owns that ordering.
//
//	d := nrf24.New(spi, cePin, csnPin)
//	d.Configure(cfg)
//	if err := d.Begin(); err != nil { ... }  // probe + Setup
//	d.StartListening()
//	for d.Available() { n, _ := d.Receive(buf) ... }
//
// The SPI contract is the Tx half of tinygo.org/x/drivers.SPI, so both
// machine.SPI on MCUs and periph.io spi.Conn on Linux hosts fit directly.
package nrf24

import (
	"time"

	"rfnode-go/errcode"
)

// SPI is the transfer subset we need (compatible with drivers.SPI and spi.Conn).
type SPI interface {
	Tx(w, r []byte) error
}

// Pin drives CE or CSN.
type Pin interface {
	Set(high bool)
}

type DataRate uint8

const (
	DataRate1Mbps DataRate = iota
	DataRate2Mbps
	DataRate250Kbps
)

type PALevel uint8

const (
	PAMin PALevel = iota // -18 dBm
	PALow                // -12 dBm
	PAHigh               // -6 dBm
	PAMax                // 0 dBm
)

// Address is a 5-byte pipe address, transmitted least-significant byte first.
type Address [5]byte

// AddressFrom copies up to five bytes of s, e.g. AddressFrom("1Node").
func AddressFrom(s string) Address {
	var a Address
	copy(a[:], s)
	return a
}

// Config holds the fixed link parameters. Zero fields take defaults in Configure.
type Config struct {
	Channel  uint8 // 0..125
	DataRate DataRate
	PALevel  PALevel
	// RetryDelay is the auto-retransmit delay in steps of 250 µs above 250 µs (0..15).
	RetryDelay uint8
	// RetryCount is the number of auto-retransmits (0..15).
	RetryCount uint8
	TxAddr     Address
	RxAddr     Address // reading pipe 1
	// StaticPayload disables dynamic payload widths; PayloadSize is then used.
	StaticPayload bool
	PayloadSize   uint8
	// MaskTxIRQ keeps TX_DS/MAX_RT off the IRQ line so it only signals receptions.
	MaskTxIRQ   bool
	SendTimeout time.Duration
}

// Device wraps an SPI connection to an nRF24L01+.
type Device struct {
	spi SPI
	ce  Pin
	csn Pin // nil when the bus drives chip-select itself

	cfg    Config
	config byte // shadow of CONFIG
	status byte // STATUS from the last transfer

	w [maxPayloadSize + 1]byte
	r [maxPayloadSize + 1]byte

	sleep func(time.Duration)
}

// New creates a Device. It does not touch the chip.
func New(spi SPI, ce, csn Pin) *Device {
	return &Device{spi: spi, ce: ce, csn: csn, sleep: time.Sleep}
}

// Configure stores the link parameters used by Setup.
func (d *Device) Configure(c Config) {
	if c.Channel > 125 {
		c.Channel = 125
	}
	c.RetryDelay &= 0x0F
	c.RetryCount &= 0x0F
	if c.PayloadSize == 0 || c.PayloadSize > maxPayloadSize {
		c.PayloadSize = maxPayloadSize
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 95 * time.Millisecond
	}
	d.cfg = c
}

// Begin checks the chip answers on SPI and applies the configuration.
// A silent or absent chip yields errcode.RadioInit.
func (d *Device) Begin() error {
	if d.cfg.SendTimeout == 0 {
		d.Configure(d.cfg)
	}
	d.ce.Set(false)
	if d.csn != nil {
		d.csn.Set(true)
	}
	d.sleep(5 * time.Millisecond)

	if err := d.writeReg(regSetupAW, aw5Bytes); err != nil {
		return errcode.Wrap(errcode.RadioInit, "nrf24.Begin", err)
	}
	v, err := d.readReg(regSetupAW)
	if err != nil {
		return errcode.Wrap(errcode.RadioInit, "nrf24.Begin", err)
	}
	if v != aw5Bytes {
		return &errcode.E{C: errcode.RadioInit, Op: "nrf24.Begin", Msg: "chip not responding"}
	}
	if err := d.Setup(); err != nil {
		return errcode.Wrap(errcode.RadioInit, "nrf24.Begin", err)
	}
	return nil
}

// Setup (re)applies every configured register and leaves the chip powered up
// in standby as a transmitter. It is safe to call after PowerDown/PowerUp.
func (d *Device) Setup() error {
	c := d.cfg
	d.ce.Set(false)

	d.config = bitEnCRC | bitCRCO
	if c.MaskTxIRQ {
		d.config |= bitMaskTxDS | bitMaskMaxRT
	}

	rf := byte(c.PALevel&0x03)<<rfPwrShift | bitLNAHCurr
	switch c.DataRate {
	case DataRate250Kbps:
		rf |= bitRFDRLow
	case DataRate2Mbps:
		rf |= bitRFDRHigh
	}

	feature, dynpd := byte(0), byte(0)
	if !c.StaticPayload {
		feature, dynpd = bitEnDPL, pipe0|pipe1
	}

	steps := []struct {
		reg byte
		val byte
	}{
		{regConfig, d.config},
		{regSetupRetr, c.RetryDelay<<4 | c.RetryCount},
		{regRFSetup, rf},
		{regRFCh, c.Channel},
		{regSetupAW, aw5Bytes},
		{regFeature, feature},
		{regDynPD, dynpd},
		{regEnAA, pipe0 | pipe1},
		{regEnRxAddr, pipe1},
		{regRxPwP0, c.PayloadSize},
		{regRxPwP1, c.PayloadSize},
		{regStatus, irqFlags},
	}
	for _, s := range steps {
		if err := d.writeReg(s.reg, s.val); err != nil {
			return err
		}
	}
	// Pipe 0 mirrors the TX address so auto-acks come back to us.
	if err := d.writeAddr(regTxAddr, c.TxAddr); err != nil {
		return err
	}
	if err := d.writeAddr(regRxAddrP0, c.TxAddr); err != nil {
		return err
	}
	if err := d.writeAddr(regRxAddrP1, c.RxAddr); err != nil {
		return err
	}
	if _, err := d.command(cmdFlushRx); err != nil {
		return err
	}
	if _, err := d.command(cmdFlushTx); err != nil {
		return err
	}
	return d.PowerUp()
}

// PowerUp leaves power-down mode. No-op if already powered.
func (d *Device) PowerUp() error {
	if d.config&bitPwrUp != 0 {
		return nil
	}
	if err := d.writeReg(regConfig, d.config|bitPwrUp); err != nil {
		return err
	}
	d.config |= bitPwrUp
	// Tpd2stby is 1.5 ms with the crystal; give it margin.
	d.sleep(5 * time.Millisecond)
	return nil
}

// PowerDown enters the ~900 nA power-down mode. Register contents survive.
func (d *Device) PowerDown() error {
	d.ce.Set(false)
	if err := d.writeReg(regConfig, d.config&^bitPwrUp); err != nil {
		return err
	}
	d.config &^= bitPwrUp
	return nil
}

// StartListening switches to primary receiver and raises CE.
func (d *Device) StartListening() error {
	if err := d.PowerUp(); err != nil {
		return err
	}
	if err := d.writeReg(regConfig, d.config|bitPrimRx); err != nil {
		return err
	}
	d.config |= bitPrimRx
	if err := d.writeReg(regStatus, irqFlags); err != nil {
		return err
	}
	if err := d.writeReg(regEnRxAddr, pipe1); err != nil {
		return err
	}
	d.ce.Set(true)
	d.sleep(130 * time.Microsecond)
	return nil
}

// StopListening drops CE and returns to primary transmitter.
func (d *Device) StopListening() error {
	d.ce.Set(false)
	d.sleep(130 * time.Microsecond)
	if err := d.writeReg(regConfig, d.config&^bitPrimRx); err != nil {
		return err
	}
	d.config &^= bitPrimRx
	// Pipe 0 must be open in PTX mode to receive auto-acks.
	return d.writeReg(regEnRxAddr, pipe0|pipe1)
}

// Listening reports whether the chip is configured as primary receiver.
func (d *Device) Listening() bool { return d.config&bitPrimRx != 0 }

// Available reports whether the RX FIFO holds at least one frame.
// Transfer errors read as "nothing available".
func (d *Device) Available() bool {
	v, err := d.readReg(regFIFOStatus)
	if err != nil {
		return false
	}
	return v&bitRxEmpty == 0
}

// PayloadWidth returns the width of the frame at the head of the RX FIFO.
// A corrupt width (>32) flushes the FIFO and returns 0, per datasheet.
func (d *Device) PayloadWidth() (int, error) {
	if d.cfg.StaticPayload {
		return int(d.cfg.PayloadSize), nil
	}
	w, r := d.w[:2], d.r[:2]
	w[0], w[1] = cmdRRxPlWid, cmdNOP
	if err := d.xfer(w, r); err != nil {
		return 0, err
	}
	if r[1] > maxPayloadSize {
		_, err := d.command(cmdFlushRx)
		return 0, err
	}
	return int(r[1]), nil
}

// Receive pops the head frame into buf and returns the bytes copied:
// min(len(buf), frame width). Bytes beyond len(buf) are discarded with the frame.
func (d *Device) Receive(buf []byte) (int, error) {
	width, err := d.PayloadWidth()
	if err != nil || width == 0 {
		return 0, err
	}
	w, r := d.w[:width+1], d.r[:width+1]
	w[0] = cmdRRxPayload
	for i := 1; i <= width; i++ {
		w[i] = cmdNOP
	}
	if err := d.xfer(w, r); err != nil {
		return 0, err
	}
	n := copy(buf, r[1:width+1])
	if err := d.writeReg(regStatus, bitRxDR); err != nil {
		return n, err
	}
	return n, nil
}

// Send transmits p and blocks until it is acknowledged or retries run out.
// The chip must not be listening.
func (d *Device) Send(p []byte) error {
	if len(p) > maxPayloadSize {
		return &errcode.E{C: errcode.PayloadTooLarge, Op: "nrf24.Send"}
	}
	if d.Listening() {
		return &errcode.E{C: errcode.Busy, Op: "nrf24.Send", Msg: "chip is in receive mode"}
	}
	n := len(p)
	if d.cfg.StaticPayload {
		n = int(d.cfg.PayloadSize)
	}
	if err := d.writeReg(regStatus, txFlags); err != nil {
		return err
	}
	w := d.w[:n+1]
	w[0] = cmdWTxPayload
	copy(w[1:], p)
	for i := len(p) + 1; i <= n; i++ {
		w[i] = 0
	}
	if err := d.xfer(w, d.r[:n+1]); err != nil {
		return err
	}

	d.ce.Set(true)
	deadline := time.Now().Add(d.cfg.SendTimeout)
	var st byte
	for {
		s, err := d.command(cmdNOP)
		if err != nil {
			d.ce.Set(false)
			return err
		}
		st = s
		if st&txFlags != 0 || time.Now().After(deadline) {
			break
		}
		d.sleep(100 * time.Microsecond)
	}
	d.ce.Set(false)

	_ = d.writeReg(regStatus, txFlags)
	switch {
	case st&bitTxDS != 0:
		return nil
	case st&bitMaxRT != 0:
		_, _ = d.command(cmdFlushTx)
		return &errcode.E{C: errcode.MaxRetries, Op: "nrf24.Send"}
	default:
		_, _ = d.command(cmdFlushTx)
		return &errcode.E{C: errcode.Timeout, Op: "nrf24.Send"}
	}
}

// Status returns the live STATUS register.
func (d *Device) Status() (byte, error) { return d.command(cmdNOP) }

// ---- SPI helpers ----

func (d *Device) xfer(w, r []byte) error {
	if d.csn != nil {
		d.csn.Set(false)
	}
	err := d.spi.Tx(w, r)
	if d.csn != nil {
		d.csn.Set(true)
	}
	if err == nil && len(r) > 0 {
		d.status = r[0]
	}
	return err
}

func (d *Device) command(c byte) (byte, error) {
	w, r := d.w[:1], d.r[:1]
	w[0] = c
	if err := d.xfer(w, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (d *Device) readReg(reg byte) (byte, error) {
	w, r := d.w[:2], d.r[:2]
	w[0], w[1] = cmdRRegister|(reg&registerMask), cmdNOP
	if err := d.xfer(w, r); err != nil {
		return 0, err
	}
	return r[1], nil
}

func (d *Device) writeReg(reg, v byte) error {
	w, r := d.w[:2], d.r[:2]
	w[0], w[1] = cmdWRegister|(reg&registerMask), v
	return d.xfer(w, r)
}

func (d *Device) writeAddr(reg byte, a Address) error {
	w, r := d.w[:len(a)+1], d.r[:len(a)+1]
	w[0] = cmdWRegister | (reg & registerMask)
	copy(w[1:], a[:])
	return d.xfer(w, r)
}
