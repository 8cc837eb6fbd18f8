//go:build ns16550debug

package ns16550

import "sync/atomic"

// Stats holds counters since the last reset.
type Stats struct {
	TxBytes uint32 // THR stores
	RxBytes uint32 // RBR loads

	// LSR polling through TransmitEmpty
	EmptyPolls uint32 // polls that saw the transmitter empty
	BusyPolls  uint32 // polls that saw it busy

	// Context helpers
	Waits    uint32 // loop iterations spent waiting
	Timeouts uint32 // returns caused by ctx
}

// DebugReset zeroes the counters.
func (d *Device) DebugReset() {
	d.stats = Stats{}
}

// DebugStats returns a copy of the counters.
func (d *Device) DebugStats() Stats {
	return Stats{
		TxBytes:    atomic.LoadUint32(&d.stats.TxBytes),
		RxBytes:    atomic.LoadUint32(&d.stats.RxBytes),
		EmptyPolls: atomic.LoadUint32(&d.stats.EmptyPolls),
		BusyPolls:  atomic.LoadUint32(&d.stats.BusyPolls),
		Waits:      atomic.LoadUint32(&d.stats.Waits),
		Timeouts:   atomic.LoadUint32(&d.stats.Timeouts),
	}
}

// Regs is a snapshot of the side-effect free registers. RBR is left out
// because loading it consumes a received byte.
type Regs struct {
	IER uint8
	FCR uint8
	LCR uint8
	MCR uint8
	LSR uint8
}

// DebugRegs loads IER, FCR, LCR, MCR and LSR once each.
func (d *Device) DebugRegs() Regs {
	return Regs{
		IER: d.bus.Load8(d.ier),
		FCR: d.bus.Load8(d.fcr),
		LCR: d.bus.Load8(d.lcr),
		MCR: d.bus.Load8(d.mcr),
		LSR: d.bus.Load8(d.lsr),
	}
}
