package ns16550_test

import (
	"context"
	"testing"
	"time"

	"github.com/jangala-dev/tinygo-ns16550/ns16550"
	"github.com/jangala-dev/tinygo-ns16550/ns16550/sim"
)

const testBase = 0x1000_0000

// newTestDevice returns a Device wired to a fresh simulated block.
func newTestDevice(t *testing.T) (*ns16550.Device, *sim.Block) {
	t.Helper()
	cfg := ns16550.DefaultConfig(testBase)
	blk := sim.New(cfg)
	return ns16550.New(blk, cfg), blk
}

func checkTrace(t *testing.T, got, want []sim.Access) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d accesses %v; want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("access %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestConfigure_Sequence(t *testing.T) {
	d, blk := newTestDevice(t)
	blk.Poke(ns16550.LCR, 0x03) // 8N1 already set
	blk.Poke(ns16550.FCR, 0xC0)

	d.Configure()

	const (
		lcr = testBase + 3
		fcr = testBase + 2
	)
	want := []sim.Access{
		load(ns16550.LCR, lcr, 0x03),
		store(ns16550.LCR, lcr, 0x83),
		store(ns16550.DLL, testBase, 1),
		store(ns16550.DLM, testBase+1, 0),
		load(ns16550.LCR, lcr, 0x83),
		store(ns16550.LCR, lcr, 0x03),
		load(ns16550.FCR, fcr, 0xC0),
		store(ns16550.FCR, fcr, 0xC4),
		load(ns16550.FCR, fcr, 0xC4),
		store(ns16550.FCR, fcr, 0xC5),
	}
	checkTrace(t, blk.Trace(), want)

	if v := blk.Peek(ns16550.LCR); v&ns16550.LCR_DLAB != 0 {
		t.Fatalf("DLAB still set: LCR=%#x", v)
	}
	if v := blk.Peek(ns16550.DLL); v != 1 {
		t.Fatalf("DLL=%d want 1", v)
	}
	if v := blk.Peek(ns16550.DLM); v != 0 {
		t.Fatalf("DLM=%d want 0", v)
	}
	if v := blk.Peek(ns16550.FCR); v != 0xC0|0b0101 {
		t.Fatalf("FCR=%#x want %#x", v, 0xC0|0b0101)
	}
	if n := len(blk.Transmitted()); n != 0 {
		t.Fatalf("divisor writes leaked to THR: %d bytes", n)
	}
}

func TestSetDivisor_SplitsBytes(t *testing.T) {
	d, blk := newTestDevice(t)
	d.SetDivisor(0x1234)
	if lo, hi := blk.Peek(ns16550.DLL), blk.Peek(ns16550.DLM); lo != 0x34 || hi != 0x12 {
		t.Fatalf("DLL/DLM = %#x/%#x; want 0x34/0x12", lo, hi)
	}
	if blk.Peek(ns16550.IER) != 0 {
		t.Fatalf("DLM write aliased to IER")
	}
}

func TestWriteByte_SingleTHRStore(t *testing.T) {
	d, blk := newTestDevice(t)
	if err := d.WriteByte('x'); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	checkTrace(t, blk.Trace(), []sim.Access{store(ns16550.THR, testBase, 'x')})
}

func TestWriteByte_DoesNotWaitForEmpty(t *testing.T) {
	d, blk := newTestDevice(t)
	blk.Poke(ns16550.LSR, 0x00) // transmitter busy
	d.WriteByte('a')
	d.WriteByte('b')
	if got := string(blk.Transmitted()); got != "ab" {
		t.Fatalf("got %q want %q", got, "ab")
	}
	for _, a := range blk.Trace() {
		if a.Reg == ns16550.LSR {
			t.Fatalf("WriteByte polled LSR")
		}
	}
}

func TestWriteString_InOrder(t *testing.T) {
	d, blk := newTestDevice(t)
	n, err := d.WriteString("AB")
	if err != nil || n != 2 {
		t.Fatalf("n=%d err=%v; want 2,nil", n, err)
	}
	checkTrace(t, blk.Trace(), []sim.Access{
		store(ns16550.THR, testBase, 'A'),
		store(ns16550.THR, testBase, 'B'),
	})
}

func TestWrite_Empty(t *testing.T) {
	d, blk := newTestDevice(t)
	if n, err := d.Write(nil); n != 0 || err != nil {
		t.Fatalf("n=%d err=%v; want 0,nil", n, err)
	}
	if n, _ := d.WriteString(""); n != 0 {
		t.Fatalf("n=%d want 0", n)
	}
	if tr := blk.Trace(); len(tr) != 0 {
		t.Fatalf("empty write touched registers: %v", tr)
	}
}

func TestWrite_BytesWithNUL(t *testing.T) {
	d, blk := newTestDevice(t)
	d.Write([]byte{'a', 0, 'b'})
	if got := blk.Transmitted(); string(got) != "a\x00b" {
		t.Fatalf("got %q", got)
	}
}

func TestTransmitEmpty_AllLSRValues(t *testing.T) {
	d, blk := newTestDevice(t)
	for v := 0; v < 256; v++ {
		blk.Poke(ns16550.LSR, uint8(v))
		blk.ResetTrace()
		got := d.TransmitEmpty()
		want := v&0x40 != 0
		if got != want {
			t.Fatalf("LSR=%#02x: got %v want %v", v, got, want)
		}
		checkTrace(t, blk.Trace(), []sim.Access{load(ns16550.LSR, testBase+5, uint8(v))})
	}
}

func TestTransmitEmpty_SpotChecks(t *testing.T) {
	d, blk := newTestDevice(t)
	for _, tc := range []struct {
		lsr  uint8
		want bool
	}{
		{0x40, true},
		{0x00, false},
		{0xBF, false},
		{0x60, true},
	} {
		blk.Poke(ns16550.LSR, tc.lsr)
		if got := d.TransmitEmpty(); got != tc.want {
			t.Fatalf("LSR=%#x: got %v want %v", tc.lsr, got, tc.want)
		}
	}
}

func TestReadByte_ReturnsRBR(t *testing.T) {
	d, blk := newTestDevice(t)
	blk.Poke(ns16550.RBR, 0x5A)
	blk.Poke(ns16550.IER, 0x02)
	blk.Poke(ns16550.FCR, 0x05)

	got, err := d.ReadByte()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != 0x5A {
		t.Fatalf("got %#x want 0x5a", got)
	}
	checkTrace(t, blk.Trace(), []sim.Access{load(ns16550.RBR, testBase, 0x5A)})
	if blk.Peek(ns16550.IER) != 0x02 || blk.Peek(ns16550.FCR) != 0x05 {
		t.Fatalf("ReadByte modified other registers")
	}
}

func TestReadByte_ConsumesReceived(t *testing.T) {
	d, blk := newTestDevice(t)
	blk.Feed([]byte("hi"))
	if !d.DataReady() {
		t.Fatal("DataReady false with bytes queued")
	}
	a, _ := d.ReadByte()
	b, _ := d.ReadByte()
	if string([]byte{a, b}) != "hi" {
		t.Fatalf("got %q want %q", []byte{a, b}, "hi")
	}
	if d.DataReady() {
		t.Fatal("DataReady true after drain")
	}
	// Open loop: reading with nothing queued returns the last latched byte.
	if c, _ := d.ReadByte(); c != 'i' {
		t.Fatalf("got %q want stale %q", c, 'i')
	}
}

func TestEnableRXInterrupt_PreservesBits(t *testing.T) {
	d, blk := newTestDevice(t)
	blk.Poke(ns16550.IER, 0b0000_0010)
	d.EnableRXInterrupt()
	if v := blk.Peek(ns16550.IER); v != 0b0000_0011 {
		t.Fatalf("IER=%#08b want 0b00000011", v)
	}
	checkTrace(t, blk.Trace(), []sim.Access{
		load(ns16550.IER, testBase+1, 0b10),
		store(ns16550.IER, testBase+1, 0b11),
	})
}

func TestEnableTXRX_PreserveFCR(t *testing.T) {
	d, blk := newTestDevice(t)
	blk.Poke(ns16550.FCR, 0b1100_0000)
	d.EnableTX()
	if v := blk.Peek(ns16550.FCR); v != 0b1100_0100 {
		t.Fatalf("after EnableTX FCR=%#08b", v)
	}
	d.EnableRX()
	if v := blk.Peek(ns16550.FCR); v != 0b1100_0101 {
		t.Fatalf("after EnableRX FCR=%#08b", v)
	}
	// Idempotent.
	d.EnableTX()
	d.EnableRX()
	if v := blk.Peek(ns16550.FCR); v != 0b1100_0101 {
		t.Fatalf("repeat enable changed FCR=%#08b", v)
	}
}

func TestLoopback_RoutesTXToRX(t *testing.T) {
	d, blk := newTestDevice(t)
	d.SetLoopback(true)
	d.WriteString("ok")
	if len(blk.Transmitted()) != 0 {
		t.Fatal("loopback bytes left the device")
	}
	var got []byte
	for d.DataReady() {
		c, _ := d.ReadByte()
		got = append(got, c)
	}
	if string(got) != "ok" {
		t.Fatalf("got %q want %q", got, "ok")
	}
	d.SetLoopback(false)
	if blk.Peek(ns16550.MCR)&ns16550.MCR_LOOP != 0 {
		t.Fatal("loopback bit still set")
	}
}

func TestStride_SpreadsAddresses(t *testing.T) {
	cfg := ns16550.DefaultConfig(0x4000)
	cfg.Stride = 4
	blk := sim.New(cfg)
	d := ns16550.New(blk, cfg)

	blk.Poke(ns16550.LSR, 0x40)
	if !d.TransmitEmpty() {
		t.Fatal("TransmitEmpty false")
	}
	d.WriteByte('q')
	checkTrace(t, blk.Trace(), []sim.Access{
		load(ns16550.LSR, 0x4000+5*4, 0x40),
		store(ns16550.THR, 0x4000, 'q'),
	})
}

func TestWaitTransmitEmptyContext_Timeout(t *testing.T) {
	d, blk := newTestDevice(t)
	blk.Poke(ns16550.LSR, 0x00)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := d.WaitTransmitEmptyContext(ctx); err != context.DeadlineExceeded {
		t.Fatalf("got %v want DeadlineExceeded", err)
	}
}

func TestWaitTransmitEmptyContext_Ready(t *testing.T) {
	d, _ := newTestDevice(t) // reset LSR reports empty
	if err := d.WaitTransmitEmptyContext(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestReadByteContext_UnblocksOnFeed(t *testing.T) {
	d, blk := newTestDevice(t)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	var got byte
	var err error
	go func() {
		defer close(done)
		got, err = d.ReadByteContext(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	blk.Feed([]byte{'Z'})

	select {
	case <-done:
	case <-time.After(300 * time.Millisecond):
		t.Fatal("timeout waiting for ReadByteContext")
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 'Z' {
		t.Fatalf("got %q want %q", got, 'Z')
	}
}

func TestWriteContext_StopsOnCancel(t *testing.T) {
	d, blk := newTestDevice(t)
	blk.Poke(ns16550.LSR, 0x00)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := d.WriteContext(ctx, []byte("abc"))
	if n != 0 || err != context.Canceled {
		t.Fatalf("n=%d err=%v; want 0, Canceled", n, err)
	}
	if len(blk.Transmitted()) != 0 {
		t.Fatal("bytes written after cancel")
	}
}

func TestWriteContext_PollsBeforeEachByte(t *testing.T) {
	d, blk := newTestDevice(t)
	n, err := d.WriteContext(context.Background(), []byte("xy"))
	if n != 2 || err != nil {
		t.Fatalf("n=%d err=%v", n, err)
	}
	checkTrace(t, blk.Trace(), []sim.Access{
		load(ns16550.LSR, testBase+5, 0x60),
		store(ns16550.THR, testBase, 'x'),
		load(ns16550.LSR, testBase+5, 0x60),
		store(ns16550.THR, testBase, 'y'),
	})
}

func load(r ns16550.Reg, addr uintptr, v uint8) sim.Access {
	return sim.Access{Op: sim.Load, Reg: r, Addr: addr, Value: v}
}

func store(r ns16550.Reg, addr uintptr, v uint8) sim.Access {
	return sim.Access{Op: sim.Store, Reg: r, Addr: addr, Value: v}
}
