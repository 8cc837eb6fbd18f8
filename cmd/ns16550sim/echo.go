package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aymanbagabas/go-pty"
	"github.com/tarm/serial"

	"github.com/jangala-dev/tinygo-ns16550/ns16550"
	"github.com/jangala-dev/tinygo-ns16550/ns16550/sim"
)

// idlePoll is how long the echo loop sleeps when nothing was received.
const idlePoll = time.Millisecond

func openPTY() (io.ReadWriteCloser, string, error) {
	p, err := pty.New()
	if err != nil {
		return nil, "", fmt.Errorf("open pty: %w", err)
	}
	return p, p.Name(), nil
}

func openSerial(name string, baud int) (io.ReadWriteCloser, error) {
	p, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("serial.OpenPort: %w", err)
	}
	return p, nil
}

// echo copies bytes arriving on wire into the simulated receiver and sends
// each one back through the driver, pacing on TransmitEmpty. It returns nil
// when ctx is done or the wire reaches EOF.
func echo(ctx context.Context, dev *ns16550.Device, blk *sim.Block, wire io.Reader) error {
	errc := make(chan error, 1)
	go func() {
		buf := make([]byte, 128)
		for {
			n, err := wire.Read(buf)
			if n > 0 {
				blk.Feed(buf[:n])
			}
			if err != nil {
				errc <- err
				return
			}
		}
	}()

	var readErr error
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			readErr = err
		default:
		}

		if !dev.DataReady() {
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					return nil
				}
				return fmt.Errorf("wire read: %w", readErr)
			}
			time.Sleep(idlePoll)
			continue
		}
		c, _ := dev.ReadByte()
		if err := dev.WaitTransmitEmptyContext(ctx); err != nil {
			return nil
		}
		dev.WriteByte(c)
	}
}
