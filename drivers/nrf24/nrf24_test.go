package nrf24

import (
	"testing"
	"time"

	"rfnode-go/errcode"
)

// fakeChip is an SPI register file that answers like an nRF24L01+.
type fakeChip struct {
	regs  [0x20]byte
	addrs map[byte][]byte
	rx    [][]byte
	tx    [][]byte
	acked bool // TX payloads complete with TX_DS, else MAX_RT
	dead  bool // MISO stuck low
	wide  bool // report a corrupt payload width
}

func newFakeChip() *fakeChip {
	return &fakeChip{addrs: map[byte][]byte{}, acked: true}
}

func (c *fakeChip) Tx(w, r []byte) error {
	for i := range r {
		r[i] = 0
	}
	if c.dead {
		return nil
	}
	st := c.regs[regStatus] &^ pipeMask
	if len(c.rx) == 0 {
		st |= pipeEmpty
	} else {
		st |= 1 << 1
	}
	r[0] = st

	cmd := w[0]
	switch {
	case cmd <= 0x1F:
		reg := cmd & registerMask
		if a, ok := c.addrs[reg]; ok && isAddrReg(reg) {
			copy(r[1:], a)
			return nil
		}
		if len(r) > 1 {
			r[1] = c.readReg(reg)
		}
	case cmd >= cmdWRegister && cmd <= cmdWRegister|registerMask:
		reg := cmd & registerMask
		switch {
		case isAddrReg(reg):
			c.addrs[reg] = append([]byte(nil), w[1:]...)
		case reg == regStatus:
			c.regs[regStatus] &^= w[1] & irqFlags
		default:
			c.regs[reg] = w[1]
		}
	case cmd == cmdRRxPlWid:
		if c.wide {
			r[1] = 40
		} else if len(c.rx) > 0 {
			r[1] = byte(len(c.rx[0]))
		}
	case cmd == cmdRRxPayload:
		if len(c.rx) > 0 {
			copy(r[1:], c.rx[0])
			c.rx = c.rx[1:]
		}
	case cmd == cmdWTxPayload:
		c.tx = append(c.tx, append([]byte(nil), w[1:]...))
		if c.acked {
			c.regs[regStatus] |= bitTxDS
		} else {
			c.regs[regStatus] |= bitMaxRT
		}
	case cmd == cmdFlushRx:
		c.rx = nil
	case cmd == cmdFlushTx:
	case cmd == cmdNOP:
	}
	return nil
}

func (c *fakeChip) readReg(reg byte) byte {
	if reg == regFIFOStatus {
		v := byte(bitTxEmpty)
		if len(c.rx) == 0 {
			v |= bitRxEmpty
		}
		return v
	}
	return c.regs[reg]
}

func isAddrReg(reg byte) bool {
	return reg == regRxAddrP0 || reg == regRxAddrP1 || reg == regTxAddr
}

type fakePin struct{ high bool }

func (p *fakePin) Set(h bool) { p.high = h }

func newDevice(t *testing.T, chip *fakeChip) (*Device, *fakePin) {
	t.Helper()
	ce := &fakePin{}
	d := New(chip, ce, &fakePin{high: true})
	d.sleep = func(time.Duration) {}
	d.Configure(Config{
		Channel:    76,
		DataRate:   DataRate250Kbps,
		PALevel:    PAMax,
		RetryDelay: 3,
		RetryCount: 5,
		TxAddr:     AddressFrom("1Node"),
		RxAddr:     AddressFrom("2Node"),
		MaskTxIRQ:  true,
	})
	return d, ce
}

func TestBeginProgramsRegisters(t *testing.T) {
	chip := newFakeChip()
	d, _ := newDevice(t, chip)
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if got := chip.regs[regRFCh]; got != 76 {
		t.Fatalf("RF_CH = %d, want 76", got)
	}
	if got := chip.regs[regSetupRetr]; got != 0x35 {
		t.Fatalf("SETUP_RETR = %#x, want 0x35", got)
	}
	if got := chip.regs[regRFSetup]; got != bitRFDRLow|3<<rfPwrShift|bitLNAHCurr {
		t.Fatalf("RF_SETUP = %#x", got)
	}
	if got := chip.regs[regFeature]; got&bitEnDPL == 0 {
		t.Fatalf("dynamic payloads not enabled: FEATURE=%#x", got)
	}
	if got := chip.regs[regDynPD]; got != pipe0|pipe1 {
		t.Fatalf("DYNPD = %#x", got)
	}
	cfg := chip.regs[regConfig]
	if cfg&bitPwrUp == 0 || cfg&bitEnCRC == 0 || cfg&bitCRCO == 0 {
		t.Fatalf("CONFIG = %#x, want PWR_UP|EN_CRC|CRCO", cfg)
	}
	if cfg&(bitMaskTxDS|bitMaskMaxRT) != bitMaskTxDS|bitMaskMaxRT {
		t.Fatalf("TX interrupts not masked: CONFIG=%#x", cfg)
	}
	if string(chip.addrs[regTxAddr]) != "1Node" || string(chip.addrs[regRxAddrP0]) != "1Node" {
		t.Fatalf("tx/p0 address = %q/%q", chip.addrs[regTxAddr], chip.addrs[regRxAddrP0])
	}
	if string(chip.addrs[regRxAddrP1]) != "2Node" {
		t.Fatalf("p1 address = %q", chip.addrs[regRxAddrP1])
	}
}

func TestBeginFailsOnSilentChip(t *testing.T) {
	chip := newFakeChip()
	chip.dead = true
	d, _ := newDevice(t, chip)
	err := d.Begin()
	if errcode.Of(err) != errcode.RadioInit {
		t.Fatalf("Begin on dead chip = %v, want radio_init", err)
	}
}

func TestListeningTogglesPrimRxAndCE(t *testing.T) {
	chip := newFakeChip()
	d, ce := newDevice(t, chip)
	if err := d.Begin(); err != nil {
		t.Fatal(err)
	}
	if err := d.StartListening(); err != nil {
		t.Fatal(err)
	}
	if chip.regs[regConfig]&bitPrimRx == 0 || !ce.high || !d.Listening() {
		t.Fatal("StartListening should set PRIM_RX and raise CE")
	}
	if chip.regs[regEnRxAddr]&pipe0 != 0 {
		t.Fatal("pipe 0 should be closed while listening")
	}
	if err := d.StopListening(); err != nil {
		t.Fatal(err)
	}
	if chip.regs[regConfig]&bitPrimRx != 0 || ce.high || d.Listening() {
		t.Fatal("StopListening should clear PRIM_RX and drop CE")
	}
	if chip.regs[regEnRxAddr]&pipe0 == 0 {
		t.Fatal("pipe 0 must be open for auto-ack in TX mode")
	}
}

func TestReceiveTruncatesToBuffer(t *testing.T) {
	chip := newFakeChip()
	d, _ := newDevice(t, chip)
	if err := d.Begin(); err != nil {
		t.Fatal(err)
	}
	chip.rx = [][]byte{[]byte("servo 120 extra"), []byte("on")}

	if !d.Available() {
		t.Fatal("Available = false with queued frames")
	}
	buf := make([]byte, 9)
	n, err := d.Receive(buf)
	if err != nil || n != 9 || string(buf[:n]) != "servo 120" {
		t.Fatalf("Receive = %d %q %v", n, buf[:n], err)
	}
	n, err = d.Receive(buf)
	if err != nil || string(buf[:n]) != "on" {
		t.Fatalf("second Receive = %q %v", buf[:n], err)
	}
	if d.Available() {
		t.Fatal("FIFO should be empty after two reads")
	}
}

func TestReceiveFlushesCorruptWidth(t *testing.T) {
	chip := newFakeChip()
	d, _ := newDevice(t, chip)
	if err := d.Begin(); err != nil {
		t.Fatal(err)
	}
	chip.rx = [][]byte{[]byte("junk")}
	chip.wide = true
	n, err := d.Receive(make([]byte, 32))
	if err != nil || n != 0 {
		t.Fatalf("Receive = %d, %v; want 0, nil", n, err)
	}
	if len(chip.rx) != 0 {
		t.Fatal("RX FIFO not flushed")
	}
}

func TestSendOutcomes(t *testing.T) {
	chip := newFakeChip()
	d, ce := newDevice(t, chip)
	if err := d.Begin(); err != nil {
		t.Fatal(err)
	}

	if err := d.Send([]byte("LEDOn\x00")); err != nil {
		t.Fatalf("acked Send: %v", err)
	}
	if len(chip.tx) != 1 || string(chip.tx[0]) != "LEDOn\x00" {
		t.Fatalf("payload on air = %q", chip.tx)
	}
	if ce.high {
		t.Fatal("CE left high after Send")
	}

	chip.acked = false
	if err := d.Send([]byte("x")); errcode.Of(err) != errcode.MaxRetries {
		t.Fatalf("unacked Send = %v, want max_retries", err)
	}

	if err := d.Send(make([]byte, 33)); errcode.Of(err) != errcode.PayloadTooLarge {
		t.Fatalf("oversize Send = %v", err)
	}

	if err := d.StartListening(); err != nil {
		t.Fatal(err)
	}
	if err := d.Send([]byte("x")); errcode.Of(err) != errcode.Busy {
		t.Fatalf("Send while listening = %v, want busy", err)
	}
}

func TestPowerDownAndUp(t *testing.T) {
	chip := newFakeChip()
	d, _ := newDevice(t, chip)
	if err := d.Begin(); err != nil {
		t.Fatal(err)
	}
	if err := d.PowerDown(); err != nil {
		t.Fatal(err)
	}
	if chip.regs[regConfig]&bitPwrUp != 0 {
		t.Fatal("PWR_UP still set after PowerDown")
	}
	if err := d.PowerUp(); err != nil {
		t.Fatal(err)
	}
	if chip.regs[regConfig]&bitPwrUp == 0 {
		t.Fatal("PWR_UP not set after PowerUp")
	}
}

func TestAddressFrom(t *testing.T) {
	if a := AddressFrom("2Node"); string(a[:]) != "2Node" {
		t.Fatalf("AddressFrom = %q", a[:])
	}
	if a := AddressFrom("ab"); a != (Address{'a', 'b', 0, 0, 0}) {
		t.Fatalf("short address = %v", a)
	}
}
