//go:build !linux && !tinygo

package ns16550

import "errors"

var ErrNoDevMem = errors.New("ns16550: /dev/mem access is only supported on linux")

// DevMem is unavailable on this platform.
type DevMem struct{}

func OpenDevMem(base, size uintptr) (*DevMem, error) { return nil, ErrNoDevMem }

func (m *DevMem) Close() error                 { return nil }
func (m *DevMem) Load8(addr uintptr) uint8     { return 0xff }
func (m *DevMem) Store8(addr uintptr, v uint8) {}
