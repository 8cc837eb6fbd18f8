package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/buildkite/shellwords"

	"github.com/jangala-dev/tinygo-ns16550/ns16550"
	"github.com/jangala-dev/tinygo-ns16550/ns16550/sim"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArgs        = errors.New("bad arguments")
)

// session executes script commands against one device.
type session struct {
	dev *ns16550.Device
	blk *sim.Block
	out io.Writer
}

func newSession(dev *ns16550.Device, blk *sim.Block, out io.Writer) *session {
	return &session{dev: dev, blk: blk, out: out}
}

// run executes r line by line. Blank lines and lines starting with '#' are
// skipped. The first failing line stops the script.
func (s *session) run(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		args, err := shellwords.Split(text)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if len(args) == 0 {
			return fmt.Errorf("line %d: no command: %w", line, ErrBadArgs)
		}
		if err := s.exec(args); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return sc.Err()
}

func (s *session) exec(args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init":
		s.dev.Configure()
	case "write":
		s.dev.WriteString(strings.Join(rest, " "))
	case "writeb":
		for _, a := range rest {
			c, err := parseByte(a)
			if err != nil {
				return err
			}
			s.dev.WriteByte(c)
		}
	case "feed":
		s.blk.Feed([]byte(strings.Join(rest, " ")))
	case "getc":
		c, _ := s.dev.ReadByte()
		fmt.Fprintf(s.out, "getc %#02x %q\n", c, c)
	case "empty":
		fmt.Fprintf(s.out, "empty %v\n", s.dev.TransmitEmpty())
	case "ready":
		fmt.Fprintf(s.out, "ready %v\n", s.dev.DataReady())
	case "rxint":
		s.dev.EnableRXInterrupt()
	case "tx":
		s.dev.EnableTX()
	case "rx":
		s.dev.EnableRX()
	case "loopback":
		if len(rest) != 1 || (rest[0] != "on" && rest[0] != "off") {
			return fmt.Errorf("loopback on|off: %w", ErrBadArgs)
		}
		s.dev.SetLoopback(rest[0] == "on")
	case "divisor":
		if len(rest) != 1 {
			return fmt.Errorf("divisor N: %w", ErrBadArgs)
		}
		n, err := strconv.ParseUint(rest[0], 0, 16)
		if err != nil {
			return fmt.Errorf("divisor %q: %w", rest[0], ErrBadArgs)
		}
		s.dev.SetDivisor(uint16(n))
	case "lsr":
		if len(rest) != 1 {
			return fmt.Errorf("lsr HEX: %w", ErrBadArgs)
		}
		v, err := parseByte(rest[0])
		if err != nil {
			return err
		}
		s.blk.Poke(ns16550.LSR, v)
	case "dump":
		s.dump()
	default:
		return fmt.Errorf("%q: %w", cmd, ErrUnknownCommand)
	}
	return nil
}

// dump prints the simulated registers without touching the bus.
func (s *session) dump() {
	for _, r := range []ns16550.Reg{ns16550.LCR, ns16550.DLL, ns16550.DLM, ns16550.IER, ns16550.FCR, ns16550.MCR, ns16550.LSR} {
		fmt.Fprintf(s.out, "%v=%#02x ", r, s.blk.Peek(r))
	}
	fmt.Fprintln(s.out)
}

// parseByte accepts hex with or without a 0x prefix.
func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("byte %q: %w", s, ErrBadArgs)
	}
	return byte(v), nil
}
