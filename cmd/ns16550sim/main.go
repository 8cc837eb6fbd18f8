// Command ns16550sim runs the ns16550 driver against a simulated register
// block. It either executes a command script or echoes bytes arriving on a
// pseudo terminal or serial port back through the driver.
//
//	ns16550sim -script steps.txt -trace
//	ns16550sim -pty
//	ns16550sim -serial /dev/ttyUSB0 -baud 115200
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/jangala-dev/tinygo-ns16550/ns16550"
	"github.com/jangala-dev/tinygo-ns16550/ns16550/sim"
)

func main() {
	base := flag.Uint64("base", 0x1000_0000, "register block base address")
	stride := flag.Uint64("stride", 1, "bytes between registers")
	script := flag.String("script", "", "command script to run ('-' for stdin)")
	usePTY := flag.Bool("pty", false, "echo bytes from a new pseudo terminal")
	serialDev := flag.String("serial", "", "echo bytes from this serial port")
	baud := flag.Int("baud", 115200, "serial port baud rate")
	trace := flag.Bool("trace", false, "print every register access to stderr")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("ns16550sim: ")

	cfg := ns16550.DefaultConfig(uintptr(*base))
	cfg.Stride = uintptr(*stride)

	var err error
	switch {
	case *script != "":
		err = runScriptFile(cfg, *script, *trace)
	case *usePTY || *serialDev != "":
		err = runEcho(cfg, *usePTY, *serialDev, *baud, *trace)
	default:
		fmt.Fprintln(os.Stderr, "No mode selected. Use -script, -pty or -serial.")
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func runScriptFile(cfg ns16550.Config, name string, trace bool) error {
	var r io.Reader = os.Stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	blk := sim.New(cfg, sim.WithOutput(os.Stdout))
	s := newSession(ns16550.New(blk, cfg), blk, os.Stdout)
	err := s.run(r)
	if trace {
		printTrace(os.Stderr, blk.Trace())
	}
	return err
}

func runEcho(cfg ns16550.Config, usePTY bool, serialDev string, baud int, trace bool) error {
	var (
		wire io.ReadWriteCloser
		err  error
	)
	if usePTY {
		var name string
		wire, name, err = openPTY()
		if err == nil {
			log.Printf("echoing on %s", name)
		}
	} else {
		wire, err = openSerial(serialDev, baud)
		if err == nil {
			log.Printf("echoing on %s at %d baud", serialDev, baud)
		}
	}
	if err != nil {
		return err
	}
	defer wire.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	blk := sim.New(cfg, sim.WithOutput(wire))
	dev := ns16550.New(blk, cfg)
	dev.Configure()
	dev.EnableRXInterrupt()
	err = echo(ctx, dev, blk, wire)
	if trace {
		printTrace(os.Stderr, blk.Trace())
	}
	return err
}

func printTrace(w io.Writer, tr []sim.Access) {
	for _, a := range tr {
		fmt.Fprintf(w, "%-5s %-3v @%#x = %#02x\n", a.Op, a.Reg, a.Addr, a.Value)
	}
}
