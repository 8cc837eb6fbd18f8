// Package sim is a host-side model of a 16550 register file. A Block
// implements ns16550.Bus, decodes addresses through an ns16550.Config and
// records every access so tests can check exactly what a driver touched.
package sim

import (
	"io"
	"sync"

	"github.com/jangala-dev/tinygo-ns16550/ns16550"
)

// Op is the direction of a bus access.
type Op uint8

const (
	Load Op = iota
	Store
)

func (o Op) String() string {
	if o == Store {
		return "store"
	}
	return "load"
}

// Access is one recorded bus transaction.
type Access struct {
	Op    Op
	Reg   ns16550.Reg
	Addr  uintptr
	Value uint8
}

// lsrReset is THR empty | transmitter empty.
const lsrReset = 1<<5 | ns16550.LSR_TEMT

// Block is a simulated register file. It is safe for concurrent use.
type Block struct {
	mu sync.Mutex

	cfg   ns16550.Config
	addrs map[uintptr][]ns16550.Reg
	regs  [ns16550.DLM + 1]uint8

	rx    []byte
	tx    []byte
	out   io.Writer
	trace []Access
}

// Option configures a Block.
type Option func(*Block)

// WithOutput copies every transmitted byte to w. Write errors are ignored.
func WithOutput(w io.Writer) Option {
	return func(b *Block) { b.out = w }
}

// New returns a Block in its reset state.
func New(cfg ns16550.Config, opts ...Option) *Block {
	b := &Block{
		cfg:   cfg,
		addrs: make(map[uintptr][]ns16550.Reg),
	}
	for r := ns16550.RBR; r <= ns16550.DLM; r++ {
		a := cfg.Addr(r)
		b.addrs[a] = append(b.addrs[a], r)
	}
	b.regs[ns16550.LSR] = lsrReset
	for _, o := range opts {
		o(b)
	}
	return b
}

// decode picks the register reached by an access at addr. ok is false for
// addresses outside the register file.
func (b *Block) decode(op Op, addr uintptr) (ns16550.Reg, bool) {
	cands := b.addrs[addr]
	if len(cands) == 0 {
		return 0, false
	}
	dlab := b.regs[ns16550.LCR]&ns16550.LCR_DLAB != 0
	has := func(r ns16550.Reg) bool {
		for _, c := range cands {
			if c == r {
				return true
			}
		}
		return false
	}
	switch {
	case dlab && has(ns16550.DLL):
		return ns16550.DLL, true
	case dlab && has(ns16550.DLM):
		return ns16550.DLM, true
	case op == Load && has(ns16550.RBR):
		return ns16550.RBR, true
	case op == Store && has(ns16550.THR):
		return ns16550.THR, true
	}
	for _, c := range cands {
		switch c {
		case ns16550.DLL, ns16550.DLM, ns16550.RBR, ns16550.THR:
			continue
		}
		return c, true
	}
	return cands[0], true
}

// Load8 implements ns16550.Bus.
func (b *Block) Load8(addr uintptr) uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.decode(Load, addr)
	if !ok {
		b.trace = append(b.trace, Access{Op: Load, Reg: 0xff, Addr: addr})
		return 0xff
	}
	if r == ns16550.RBR && len(b.rx) > 0 {
		b.regs[ns16550.RBR] = b.rx[0]
		b.rx = b.rx[1:]
		b.updateDR()
	}
	v := b.regs[r]
	b.trace = append(b.trace, Access{Op: Load, Reg: r, Addr: addr, Value: v})
	return v
}

// Store8 implements ns16550.Bus.
func (b *Block) Store8(addr uintptr, v uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.decode(Store, addr)
	if !ok {
		b.trace = append(b.trace, Access{Op: Store, Reg: 0xff, Addr: addr, Value: v})
		return
	}
	b.trace = append(b.trace, Access{Op: Store, Reg: r, Addr: addr, Value: v})
	switch r {
	case ns16550.LSR:
		// read only
		return
	case ns16550.THR:
		b.regs[r] = v
		b.transmit(v)
		return
	}
	b.regs[r] = v
}

func (b *Block) transmit(v uint8) {
	if b.regs[ns16550.MCR]&ns16550.MCR_LOOP != 0 {
		b.rx = append(b.rx, v)
		b.updateDR()
		return
	}
	b.tx = append(b.tx, v)
	if b.out != nil {
		b.out.Write([]byte{v})
	}
}

func (b *Block) updateDR() {
	if len(b.rx) > 0 {
		b.regs[ns16550.LSR] |= ns16550.LSR_DR
	} else {
		b.regs[ns16550.LSR] &^= ns16550.LSR_DR
	}
}

// Feed queues bytes as if they had arrived on the line.
func (b *Block) Feed(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rx = append(b.rx, p...)
	b.updateDR()
}

// Pending returns the number of received bytes not yet read from RBR.
func (b *Block) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rx)
}

// Poke sets a register without recording an access or triggering side
// effects. Poking RBR sets the value returned once the RX queue is empty.
func (b *Block) Poke(r ns16550.Reg, v uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs[r] = v
}

// Peek reads a register without recording an access or side effects.
func (b *Block) Peek(r ns16550.Reg) uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regs[r]
}

// Transmitted returns a copy of every byte that left the device through THR.
func (b *Block) Transmitted() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.tx...)
}

// Trace returns a copy of the recorded accesses.
func (b *Block) Trace() []Access {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Access(nil), b.trace...)
}

// ResetTrace drops the recorded accesses.
func (b *Block) ResetTrace() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trace = b.trace[:0]
}
