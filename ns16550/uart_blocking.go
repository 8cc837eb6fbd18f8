// ns16550/uart_blocking.go

package ns16550

import "context"

// The primitives never wait. These helpers are the caller-side polling loops
// built on top of them; they spin on LSR until the condition holds or ctx is
// done.

// WaitTransmitEmptyContext blocks until TransmitEmpty reports true or ctx is done.
func (d *Device) WaitTransmitEmptyContext(ctx context.Context) error {
	for !d.TransmitEmpty() {
		d.dbgWait()
		select {
		case <-ctx.Done():
			d.dbgTimeout()
			return ctx.Err()
		default:
		}
	}
	return nil
}

// ReadByteContext blocks until DataReady, then reads one byte.
func (d *Device) ReadByteContext(ctx context.Context) (byte, error) {
	for !d.DataReady() {
		d.dbgWait()
		select {
		case <-ctx.Done():
			d.dbgTimeout()
			return 0, ctx.Err()
		default:
		}
	}
	return d.ReadByte()
}

// WriteContext waits for an empty transmitter before each byte of p. It
// returns the number of bytes handed to THR.
func (d *Device) WriteContext(ctx context.Context, p []byte) (int, error) {
	for i, c := range p {
		if err := d.WaitTransmitEmptyContext(ctx); err != nil {
			return i, err
		}
		d.WriteByte(c)
	}
	return len(p), nil
}
