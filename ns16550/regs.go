// ns16550/regs.go

package ns16550

// Reg identifies a logical register of the UART. Several registers share an
// address (RBR/THR/DLL and IER/DLM); which one is reached depends on the
// access direction and on LCR.DLAB.
type Reg uint8

const (
	RBR Reg = iota // Receive Buffer (read)
	THR            // Transmit Holding (write)
	IER            // Interrupt Enable
	FCR            // FIFO Control
	LCR            // Line Control
	MCR            // Modem Control
	LSR            // Line Status
	DLL            // Divisor Latch low (DLAB=1)
	DLM            // Divisor Latch high (DLAB=1)

	numRegs
)

var regNames = [numRegs]string{"RBR", "THR", "IER", "FCR", "LCR", "MCR", "LSR", "DLL", "DLM"}

func (r Reg) String() string {
	if r < numRegs {
		return regNames[r]
	}
	return "Reg(?)"
}

// Register bits.
const (
	LCR_DLAB = 1 << 7 // divisor latch access

	FCR_RXEN = 1 << 0 // RX FIFO enable
	FCR_TXEN = 1 << 2 // TX FIFO enable

	IER_RDI = 1 << 0 // received data available interrupt

	LSR_DR   = 1 << 0 // data ready
	LSR_TEMT = 1 << 6 // transmit holding register empty

	MCR_LOOP = 1 << 4 // internal loopback
)

// Config describes where the register file lives. Offsets are register
// indices; the byte address of a register is Base + offset*Stride.
type Config struct {
	Base   uintptr
	Stride uintptr // bytes between registers; 0 means 1

	RBR, THR, IER, FCR, LCR, MCR, LSR, DLL, DLM uintptr
}

// DefaultConfig returns the classic 16550 layout at base with byte-spaced
// registers.
func DefaultConfig(base uintptr) Config {
	return Config{
		Base:   base,
		Stride: 1,
		RBR:    0,
		THR:    0,
		DLL:    0,
		IER:    1,
		DLM:    1,
		FCR:    2,
		LCR:    3,
		MCR:    4,
		LSR:    5,
	}
}

// Offset returns the register index of r.
func (c Config) Offset(r Reg) uintptr {
	switch r {
	case RBR:
		return c.RBR
	case THR:
		return c.THR
	case IER:
		return c.IER
	case FCR:
		return c.FCR
	case LCR:
		return c.LCR
	case MCR:
		return c.MCR
	case LSR:
		return c.LSR
	case DLL:
		return c.DLL
	case DLM:
		return c.DLM
	}
	panic("ns16550: unknown register " + r.String())
}

// Addr returns the bus address of r.
func (c Config) Addr(r Reg) uintptr {
	stride := c.Stride
	if stride == 0 {
		stride = 1
	}
	return c.Base + c.Offset(r)*stride
}

// Span returns the number of bytes covered by the register file, suitable
// for mapping it.
func (c Config) Span() uintptr {
	var max uintptr
	for r := Reg(0); r < numRegs; r++ {
		if a := c.Addr(r) - c.Base; a > max {
			max = a
		}
	}
	return max + 1
}
