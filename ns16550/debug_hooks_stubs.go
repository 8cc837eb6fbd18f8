//go:build !ns16550debug

package ns16550

func (d *Device) dbgTx(int)    {}
func (d *Device) dbgRx()       {}
func (d *Device) dbgPoll(bool) {}
func (d *Device) dbgWait()     {}
func (d *Device) dbgTimeout()  {}
