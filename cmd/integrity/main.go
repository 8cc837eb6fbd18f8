// cmd/integrity/main.go
// Loopback integrity test for the ns16550 driver. The UART is put in internal
// loopback (MCR bit 4), a deterministic pattern is sent in chunks and read
// back byte by byte, and the CRC-8 of both streams is reported.
//
// Runs against the simulated register block; -devmem drives real hardware
// through /dev/mem at -base instead.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/sigurn/crc8"

	"github.com/jangala-dev/tinygo-ns16550/ns16550"
	"github.com/jangala-dev/tinygo-ns16550/ns16550/sim"
)

/*** Tunables ***/
const (
	defaultBytes   = 64 * 1024 // bytes per run
	sendChunk      = 192       // bytes written before draining the receiver
	contextRadius  = 16        // surrounding bytes shown on mismatch (before/after pivot)
	timeoutPerTest = 10 * time.Second
)

var crcTable = crc8.MakeTable(crc8.CRC8)

/*** Patterns (deterministic) ***/
func patternA(i int) byte { return byte((i*31 + 0x55) & 0xFF) }
func patternB(i int) byte { return byte((i*17 + 0xA6) & 0xFF) }

func main() {
	total := flag.Int("bytes", defaultBytes, "bytes per pattern")
	base := flag.Uint64("base", 0x1000_0000, "register block base address")
	stride := flag.Uint64("stride", 1, "bytes between registers")
	devmem := flag.Bool("devmem", false, "use /dev/mem instead of the simulator")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("integrity: ")

	cfg := ns16550.DefaultConfig(uintptr(*base))
	cfg.Stride = uintptr(*stride)

	os.Exit(run(cfg, *total, *devmem, os.Stdout))
}

// run executes both patterns and returns the process exit code. Deferred
// cleanup of the /dev/mem mapping happens before main exits.
func run(cfg ns16550.Config, total int, devmem bool, w io.Writer) int {
	var bus ns16550.Bus = sim.New(cfg)
	if devmem {
		m, err := ns16550.OpenDevMem(cfg.Base, cfg.Span())
		if err != nil {
			log.Print(err)
			return 1
		}
		defer m.Close()
		bus = m
	}

	dev := ns16550.New(bus, cfg)
	dev.Configure()

	fmt.Fprintln(w, "ns16550 loopback integrity test")
	fmt.Fprintln(w, "bytes/pattern =", total)

	pass, fail := 0, 0
	report := func(name string, r result) {
		if r.Err == "" {
			fmt.Fprintf(w, "[PASS] %s crc=%#02x\n", name, r.SentCRC)
			pass++
		} else {
			fmt.Fprintf(w, "[FAIL] %s : %s (sent crc=%#02x recv crc=%#02x)\n", name, r.Err, r.SentCRC, r.RecvCRC)
			fail++
		}
	}

	for _, tc := range []struct {
		name string
		gen  func(int) byte
	}{
		{"pattern A", patternA},
		{"pattern B", patternB},
	} {
		ctx, cancel := context.WithTimeout(context.Background(), timeoutPerTest)
		r := runLoopback(ctx, dev, tc.gen, tc.gen, total, w)
		cancel()
		report(tc.name, r)
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Summary")
	fmt.Fprintln(w, "  passed =", pass)
	fmt.Fprintln(w, "  failed =", fail)
	if fail != 0 {
		return 1
	}
	return 0
}

type result struct {
	Sent, Received   int
	SentCRC, RecvCRC uint8
	Err              string
}

// runLoopback sends n bytes of send() through dev in loopback and checks the
// received stream against expect(). Diagnostics for the first mismatch go to w.
func runLoopback(ctx context.Context, dev *ns16550.Device, send, expect func(int) byte, n int, w io.Writer) (r result) {
	dev.SetLoopback(true)
	defer dev.SetLoopback(false)
	drain(dev)

	txCRC := crc8.Init(crcTable)
	rxCRC := crc8.Init(crcTable)
	defer func() {
		r.SentCRC = crc8.Complete(txCRC, crcTable)
		r.RecvCRC = crc8.Complete(rxCRC, crcTable)
	}()

	var buf [sendChunk]byte
	got := make([]byte, 0, sendChunk)
	for r.Sent < n {
		k := min(sendChunk, n-r.Sent)
		for j := 0; j < k; j++ {
			buf[j] = send(r.Sent + j)
		}
		m, err := dev.WriteContext(ctx, buf[:k])
		txCRC = crc8.Update(txCRC, buf[:m], crcTable)
		if err != nil {
			r.Sent += m
			r.Err = "timeout (send)"
			return r
		}

		got = got[:0]
		for len(got) < k {
			c, err := dev.ReadByteContext(ctx)
			if err != nil {
				r.Err = "timeout (receive)"
				return r
			}
			got = append(got, c)
		}
		rxCRC = crc8.Update(rxCRC, got, crcTable)

		for i, act := range got {
			off := r.Received + i
			if act != expect(off) {
				fmt.Fprintln(w, "First mismatch at offset", off)
				printContext(w, expect, off, got, i, contextRadius)
				r.Sent += k
				r.Received += len(got)
				r.Err = "integrity mismatch"
				return r
			}
		}
		r.Sent += k
		r.Received += len(got)
	}
	return r
}

// drain discards anything already waiting in the receiver.
func drain(dev *ns16550.Device) {
	for dev.DataReady() {
		_, _ = dev.ReadByte()
	}
}

/*** Context dump ***/

func printContext(w io.Writer, gen func(int) byte, absOffset int, gotChunk []byte, rel int, radius int) {
	start := max(absOffset-radius, 0)
	end := absOffset + radius + 1

	exp := make([]byte, end-start)
	for i := range exp {
		exp[i] = gen(start + i)
	}

	// Align the received chunk to the same window; bytes not read are zero.
	act := make([]byte, len(exp))
	base := absOffset - rel
	for i := range act {
		if idx := start + i - base; idx >= 0 && idx < len(gotChunk) {
			act[i] = gotChunk[idx]
		}
	}

	fmt.Fprintln(w, "Context (hex): bytes", start, "to", end-1)
	fmt.Fprint(w, " exp: ")
	printHex(w, exp, -1)
	fmt.Fprint(w, " act: ")
	printHex(w, act, absOffset-start)
}

func printHex(w io.Writer, b []byte, pivot int) {
	for i, v := range b {
		if i == pivot {
			fmt.Fprintf(w, "[%02X]", v)
		} else {
			fmt.Fprintf(w, " %02X", v)
		}
	}
	fmt.Fprintln(w)
}
