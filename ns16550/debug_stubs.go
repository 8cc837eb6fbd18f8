//go:build !ns16550debug

package ns16550

// Stats is empty unless built with the ns16550debug tag.
type Stats struct{}

func (d *Device) DebugReset()       {}
func (d *Device) DebugStats() Stats { return Stats{} }

// Regs is empty unless built with the ns16550debug tag.
type Regs struct{}

func (d *Device) DebugRegs() Regs { return Regs{} }
