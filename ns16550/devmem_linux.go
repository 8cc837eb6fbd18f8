//go:build linux && !tinygo

package ns16550

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DevMem reaches a physical register window through an mmap of /dev/mem.
// Addresses passed to Load8/Store8 are physical addresses inside the window.
type DevMem struct {
	mem  []byte
	base uintptr // physical address of mem[0]
}

// OpenDevMem maps size bytes of physical memory starting at base.
func OpenDevMem(base, size uintptr) (*DevMem, error) {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/mem: %w", err)
	}
	defer f.Close()

	page := uintptr(os.Getpagesize())
	start := base &^ (page - 1)
	length := (base + size - start + page - 1) &^ (page - 1)

	mem, err := unix.Mmap(int(f.Fd()), int64(start), int(length),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %#x+%#x: %w", start, length, err)
	}
	return &DevMem{mem: mem, base: start}, nil
}

// Close unmaps the window. The DevMem must not be used afterwards.
func (m *DevMem) Close() error {
	if m.mem == nil {
		return nil
	}
	err := unix.Munmap(m.mem)
	m.mem = nil
	return err
}

func (m *DevMem) ptr(addr uintptr) *uint8 {
	off := addr - m.base
	if off >= uintptr(len(m.mem)) {
		panic(fmt.Sprintf("ns16550: address %#x outside mapped window", addr))
	}
	return (*uint8)(unsafe.Pointer(&m.mem[off]))
}

// The accessors are kept out of line so the compiler cannot fold or drop
// consecutive accesses to the same register.

//go:noinline
func (m *DevMem) Load8(addr uintptr) uint8 {
	return *m.ptr(addr)
}

//go:noinline
func (m *DevMem) Store8(addr uintptr, v uint8) {
	*m.ptr(addr) = v
}
