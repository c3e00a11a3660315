package emu

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"dotboy/cart"
	"dotboy/emu/log"
	"dotboy/hw"
	"dotboy/hw/input"
)

// testRom returns a 32kB rom without controller, running prog at the entry
// point.
func testRom(tb testing.TB, prog ...byte) *cart.Rom {
	tb.Helper()

	buf := make([]byte, 2*cart.BankSize)
	copy(buf[0x100:], prog)
	copy(buf[0x134:], "EMUTEST")

	rom := new(cart.Rom)
	if _, err := rom.ReadFrom(bytes.NewReader(buf)); err != nil {
		tb.Fatal(err)
	}
	return rom
}

// loopProg increments $C000 forever.
var loopProg = []byte{
	0x21, 0x00, 0xC0, // LD HL,$C000
	0x34,       // INC (HL)
	0x18, 0xFD, // JR -3
}

func testConfig(tb testing.TB) Config {
	tb.Helper()

	cfg := DefaultConfig()
	cfg.General.SaveDir = tb.TempDir()
	return cfg
}

func launch(tb testing.TB, rom *cart.Rom, cfg Config) *Emulator {
	tb.Helper()

	log.Disable()
	e, err := Launch(rom, cfg)
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() { e.Close() })
	return e
}

func TestEmulatorRunFrame(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audio.WAVDump = filepath.Join(t.TempDir(), "out.wav")
	e := launch(t, testRom(t, loopProg...), cfg)

	for range 3 {
		e.RunFrame()
	}
	if got := e.Clock.Frames(); got != 3 {
		t.Errorf("Frames() = %d, want 3", got)
	}
	if got := e.GB.Ticks; got != 3*hw.DotsPerFrame {
		t.Errorf("Ticks = %d, want %d", got, 3*hw.DotsPerFrame)
	}
	if got := e.GB.Bus.Load(0xC000); got == 0 {
		t.Error("program didn't run")
	}
	if got := e.Out.FrameCount(); got != 3 {
		t.Errorf("FrameCount() = %d, want 3", got)
	}
	if e.Audio.Buffered() == 0 {
		t.Error("no audio produced")
	}

	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(cfg.Audio.WAVDump)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() <= 44 {
		t.Errorf("wav dump has %d bytes, want samples", fi.Size())
	}
}

func TestEmulatorFrameStates(t *testing.T) {
	e := launch(t, testRom(t, loopProg...), testConfig(t))

	type frame struct {
		num     uint64
		samples int
		vram    int
		pc      uint16
	}
	var got []frame
	e.Frames.Subscribe(func(st *FrameState) {
		got = append(got, frame{
			num:     st.Number,
			samples: len(st.Audio) / hw.AudioChannels,
			vram:    len(st.VRAM),
			pc:      st.State.CPU.PC,
		})
	})
	var sheets int
	e.Out.DebugImage.Subscribe(func(*image.RGBA) { sheets++ })

	for range 3 {
		e.RunFrame()
	}

	if len(got) != 3 {
		t.Fatalf("got %d frame states, want 3", len(got))
	}
	for i, f := range got {
		if f.num != uint64(i+1) {
			t.Errorf("frame %d: Number = %d", i, f.num)
		}
		// 44100 Hz at 59.73 frames per second.
		if f.samples < 736 || f.samples > 740 {
			t.Errorf("frame %d: %d audio samples, want ~738", i, f.samples)
		}
		if f.vram != hw.VRAM.Size() {
			t.Errorf("frame %d: VRAM copy of %d bytes", i, f.vram)
		}
		if f.pc < 0x0100 || f.pc > 0x0106 {
			t.Errorf("frame %d: PC = 0x%04X, outside the program", i, f.pc)
		}
	}
	if sheets != 3 {
		t.Errorf("got %d debug images, want 3", sheets)
	}
	if e.Audio.Buffered() == 0 {
		t.Error("audio not pushed to the stream")
	}
}

func TestEmulatorFrameStatesThreaded(t *testing.T) {
	e := launch(t, testRom(t, loopProg...), testConfig(t))
	e.SetFastForward(true)
	if !e.FastForward() || e.Clock.Throttled() {
		t.Fatal("fast forward not enabled on the clock")
	}

	var (
		mu   sync.Mutex
		nums []uint64
	)
	e.Frames.Subscribe(func(st *FrameState) {
		mu.Lock()
		nums = append(nums, st.Number)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := e.Run(ctx); err != nil && err != context.DeadlineExceeded {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(nums) == 0 {
		t.Fatal("async frame callback never ran")
	}
	for i := 1; i < len(nums); i++ {
		if nums[i] <= nums[i-1] {
			t.Fatalf("frame %d delivered after frame %d", nums[i], nums[i-1])
		}
	}
	if last := nums[len(nums)-1]; last > e.Clock.Frames() {
		t.Errorf("delivered frame %d, but only %d ran", last, e.Clock.Frames())
	}
}

func TestEmulatorPause(t *testing.T) {
	e := launch(t, testRom(t, loopProg...), testConfig(t))

	e.SetPause(true)
	e.RunFrame()
	if e.GB.Ticks != 0 {
		t.Errorf("Ticks = %d while paused, want 0", e.GB.Ticks)
	}
	e.SetPause(false)
	e.RunFrame()
	if e.GB.Ticks != hw.DotsPerFrame {
		t.Errorf("Ticks = %d, want %d", e.GB.Ticks, hw.DotsPerFrame)
	}
}

func TestEmulatorSignal(t *testing.T) {
	e := launch(t, testRom(t, loopProg...), testConfig(t))

	e.Signal(input.Signal{Action: input.Press, Button: input.Start})
	if e.GB.Joypad.Pressed(input.Start) {
		t.Fatal("signal applied before the frame boundary")
	}
	e.RunFrame()
	if !e.GB.Joypad.Pressed(input.Start) {
		t.Fatal("Start not pressed after the frame boundary")
	}

	e.Signal(input.Signal{Action: input.Release, Button: input.Start})
	e.RunFrame()
	if e.GB.Joypad.Pressed(input.Start) {
		t.Fatal("Start still pressed")
	}
}

func TestEmulatorReset(t *testing.T) {
	e := launch(t, testRom(t, loopProg...), testConfig(t))

	e.RunFrame()
	e.Reset()
	e.RunFrame() // reset happens at the end of the frame
	if got := e.GB.CPU.PC; got != 0x0100 {
		t.Errorf("PC = 0x%04X after reset, want 0x0100", got)
	}
}

func TestEmulatorBootROM(t *testing.T) {
	boot := make([]byte, 0x100)
	// LD A,1; LDH ($50),A; then falls into the cartridge at $0100
	copy(boot[0xFC:], []byte{0x3E, 0x01, 0xE0, 0x50})
	path := filepath.Join(t.TempDir(), "boot.bin")
	if err := os.WriteFile(path, boot, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t)
	cfg.General.BootROM = path
	e := launch(t, testRom(t, loopProg...), cfg)

	if !e.GB.Bus.BootOverlay() {
		t.Fatal("boot rom not mapped")
	}
	e.RunFrame()
	if e.GB.Bus.BootOverlay() {
		t.Error("boot rom still mapped after one frame")
	}
	if got := e.GB.Bus.Load(0xC000); got == 0 {
		t.Error("cartridge program didn't run")
	}
}

func TestLaunchErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.General.BootROM = filepath.Join(t.TempDir(), "missing.bin")
	if _, err := Launch(testRom(t), cfg); err == nil {
		t.Error("Launch succeeded with a missing boot rom")
	}
}

func TestEmulatorRun(t *testing.T) {
	e := launch(t, testRom(t, loopProg...), testConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := e.Run(ctx); err != nil && err != context.DeadlineExceeded {
		t.Fatal(err)
	}
	if e.Clock.Frames() == 0 {
		t.Error("no frame ran")
	}
}
