//go:build tinygo

package ns16550

import (
	"runtime/volatile"
	"unsafe"
)

// MMIO reaches registers by volatile byte access at their physical address.
type MMIO struct{}

func (MMIO) Load8(addr uintptr) uint8 {
	return (*volatile.Register8)(unsafe.Pointer(addr)).Get()
}

func (MMIO) Store8(addr uintptr, v uint8) {
	(*volatile.Register8)(unsafe.Pointer(addr)).Set(v)
}
