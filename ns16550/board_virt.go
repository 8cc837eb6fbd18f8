//go:build tinygo && virt

package ns16550

// The QEMU virt machine (riscv) has a single 16550 at 0x1000_0000.
const virtUARTBase = 0x1000_0000

var (
	UART0 = New(MMIO{}, DefaultConfig(virtUARTBase))
)
