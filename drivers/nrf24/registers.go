package nrf24

// SPI commands.
const (
	cmdRRegister   = 0x00
	cmdWRegister   = 0x20
	cmdRRxPlWid    = 0x60
	cmdRRxPayload  = 0x61
	cmdWTxPayload  = 0xA0
	cmdFlushTx     = 0xE1
	cmdFlushRx     = 0xE2
	cmdNOP         = 0xFF
	registerMask   = 0x1F
	maxPayloadSize = 32
)

// Register map.
const (
	regConfig     = 0x00
	regEnAA       = 0x01
	regEnRxAddr   = 0x02
	regSetupAW    = 0x03
	regSetupRetr  = 0x04
	regRFCh       = 0x05
	regRFSetup    = 0x06
	regStatus     = 0x07
	regObserveTx  = 0x08
	regRxAddrP0   = 0x0A
	regRxAddrP1   = 0x0B
	regTxAddr     = 0x10
	regRxPwP0     = 0x11
	regRxPwP1     = 0x12
	regFIFOStatus = 0x17
	regDynPD      = 0x1C
	regFeature    = 0x1D
)

// CONFIG bits.
const (
	bitMaskRxDR  = 1 << 6
	bitMaskTxDS  = 1 << 5
	bitMaskMaxRT = 1 << 4
	bitEnCRC     = 1 << 3
	bitCRCO      = 1 << 2
	bitPwrUp     = 1 << 1
	bitPrimRx    = 1 << 0
)

// STATUS bits.
const (
	bitRxDR   = 1 << 6
	bitTxDS   = 1 << 5
	bitMaxRT  = 1 << 4
	irqFlags  = bitRxDR | bitTxDS | bitMaxRT
	txFlags   = bitTxDS | bitMaxRT
	pipeMask  = 0x0E
	pipeEmpty = 0x0E
)

// RF_SETUP bits.
const (
	bitRFDRLow  = 1 << 5
	bitRFDRHigh = 1 << 3
	rfPwrShift  = 1
	bitLNAHCurr = 1 << 0
)

// FIFO_STATUS and FEATURE bits.
const (
	bitRxEmpty = 1 << 0
	bitTxEmpty = 1 << 4
	bitEnDPL   = 1 << 2

	pipe0 = 1 << 0
	pipe1 = 1 << 1

	// SETUP_AW value for 5-byte addresses.
	aw5Bytes = 0x03
)
