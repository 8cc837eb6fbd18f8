// ns16550/uart.go

// Package ns16550 drives a memory-mapped 16550-style UART by plain register
// access. It has no buffers, no interrupt handler and no locking: every
// method is a short, fixed sequence of register loads and stores, and the
// transmit and receive paths are open loop. Callers that need pacing poll
// TransmitEmpty and DataReady themselves, or use the Context helpers.
//
// The driver assumes exclusive access to the register block. If several
// goroutines or interrupt contexts share a Device, the caller provides the
// mutual exclusion.
package ns16550

// Bus performs single register transactions. Each call must reach the device
// exactly once: no caching, merging or reordering of accesses.
type Bus interface {
	Load8(addr uintptr) uint8
	Store8(addr uintptr, v uint8)
}

// Device is a UART register block reached through a Bus.
type Device struct {
	bus Bus

	rbr, thr, ier, fcr, lcr, mcr, lsr, dll, dlm uintptr

	stats Stats
}

// New returns a Device for the register file described by cfg. It does not
// touch the hardware; call Configure for that.
func New(bus Bus, cfg Config) *Device {
	return &Device{
		bus: bus,
		rbr: cfg.Addr(RBR),
		thr: cfg.Addr(THR),
		ier: cfg.Addr(IER),
		fcr: cfg.Addr(FCR),
		lcr: cfg.Addr(LCR),
		mcr: cfg.Addr(MCR),
		lsr: cfg.Addr(LSR),
		dll: cfg.Addr(DLL),
		dlm: cfg.Addr(DLM),
	}
}

// Configure programs a divisor of 1 (one bit time is 16 input clocks) and
// enables the TX and RX FIFOs.
func (d *Device) Configure() {
	d.SetDivisor(1)
	d.EnableTX()
	d.EnableRX()
}

// SetDivisor writes the baud-rate divisor. DLAB is set for the two latch
// writes and cleared again, so DLL/DLM are unreachable once it returns.
func (d *Device) SetDivisor(div uint16) {
	d.setBits(d.lcr, LCR_DLAB)
	d.bus.Store8(d.dll, uint8(div))
	d.bus.Store8(d.dlm, uint8(div>>8))
	d.clearBits(d.lcr, LCR_DLAB)
}

// WriteByte stores c in THR. It does not wait for THR to be empty; bytes
// written faster than the device drains them are lost. The error is always
// nil.
func (d *Device) WriteByte(c byte) error {
	d.bus.Store8(d.thr, c)
	d.dbgTx(1)
	return nil
}

// Write sends p one byte at a time with WriteByte. It always returns
// len(p), nil.
func (d *Device) Write(p []byte) (int, error) {
	for _, c := range p {
		d.WriteByte(c)
	}
	return len(p), nil
}

// WriteString is Write for strings.
func (d *Device) WriteString(s string) (int, error) {
	for i := 0; i < len(s); i++ {
		d.WriteByte(s[i])
	}
	return len(s), nil
}

// TransmitEmpty reports LSR bit 6.
func (d *Device) TransmitEmpty() bool {
	empty := d.bus.Load8(d.lsr)&LSR_TEMT != 0
	d.dbgPoll(empty)
	return empty
}

// DataReady reports LSR bit 0, set while received data is waiting in RBR.
func (d *Device) DataReady() bool {
	return d.bus.Load8(d.lsr)&LSR_DR != 0
}

// ReadByte returns the current contents of RBR. It does not check DataReady:
// without data the value is whatever the hardware last latched. The error is
// always nil.
func (d *Device) ReadByte() (byte, error) {
	c := d.bus.Load8(d.rbr)
	d.dbgRx()
	return c, nil
}

// EnableRXInterrupt sets IER bit 0. No handler is installed.
func (d *Device) EnableRXInterrupt() { d.setBits(d.ier, IER_RDI) }

// EnableTX sets the TX FIFO enable bit in FCR.
func (d *Device) EnableTX() { d.setBits(d.fcr, FCR_TXEN) }

// EnableRX sets the RX FIFO enable bit in FCR.
func (d *Device) EnableRX() { d.setBits(d.fcr, FCR_RXEN) }

// SetLoopback switches the internal loopback in MCR.
func (d *Device) SetLoopback(on bool) {
	if on {
		d.setBits(d.mcr, MCR_LOOP)
	} else {
		d.clearBits(d.mcr, MCR_LOOP)
	}
}

func (d *Device) setBits(addr uintptr, bits uint8) {
	d.bus.Store8(addr, d.bus.Load8(addr)|bits)
}

func (d *Device) clearBits(addr uintptr, bits uint8) {
	d.bus.Store8(addr, d.bus.Load8(addr)&^bits)
}
