//go:build ns16550debug

package ns16550

import "sync/atomic"

func (d *Device) dbgTx(n int) {
	atomic.AddUint32(&d.stats.TxBytes, uint32(n))
}

func (d *Device) dbgRx() {
	atomic.AddUint32(&d.stats.RxBytes, 1)
}

func (d *Device) dbgPoll(empty bool) {
	if empty {
		atomic.AddUint32(&d.stats.EmptyPolls, 1)
	} else {
		atomic.AddUint32(&d.stats.BusyPolls, 1)
	}
}

func (d *Device) dbgWait() {
	atomic.AddUint32(&d.stats.Waits, 1)
}

func (d *Device) dbgTimeout() {
	atomic.AddUint32(&d.stats.Timeouts, 1)
}
