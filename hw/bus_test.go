package hw

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBusDecode(t *testing.T) {
	b := NewBus()

	type loc struct {
		Region Region
		Off    uint16
	}
	tests := []struct {
		addr uint16
		main loc
		ext  loc
	}{
		{0x0000, loc{ROMA, 0x0000}, loc{ROMA, 0x0000}},
		{0x3FFF, loc{ROMA, 0x3FFF}, loc{ROMA, 0x3FFF}},
		{0x4000, loc{ROMB, 0x0000}, loc{ROMB, 0x0000}},
		{0x9FFF, loc{VRAM, 0x1FFF}, loc{VRAM, 0x1FFF}},
		{0xA123, loc{SRAM, 0x0123}, loc{SRAM, 0x0123}},
		{0xC000, loc{WRAMA, 0x0000}, loc{WRAMA, 0x0000}},
		{0xD001, loc{WRAMB, 0x0001}, loc{WRAMB, 0x0001}},
		{0xE010, loc{WRAMA, 0x0010}, loc{WRAMA, 0x0010}},
		{0xFDFF, loc{WRAMB, 0x0DFF}, loc{WRAMB, 0x0DFF}},
		{0xFE9F, loc{OAM, 0x009F}, loc{WRAMB, 0x0E9F}},
		{0xFF44, loc{IO, 0x0044}, loc{WRAMB, 0x0F44}},
		{0xFF80, loc{HRAM, 0x0000}, loc{WRAMB, 0x0F80}},
		{0xFFFE, loc{HRAM, 0x007E}, loc{WRAMB, 0x0FFE}},
		{0xFFFF, loc{IE, 0x0000}, loc{WRAMB, 0x0FFF}},
	}
	for _, tt := range tests {
		r, off := b.Decode(tt.addr)
		if diff := cmp.Diff(tt.main, loc{Region(r), off}); diff != "" {
			t.Errorf("main view $%04X mismatch (-want +got):\n%s", tt.addr, diff)
		}
		er, eoff := b.DecodeExternal(tt.addr)
		if diff := cmp.Diff(tt.ext, loc{er, eoff}); diff != "" {
			t.Errorf("external view $%04X mismatch (-want +got):\n%s", tt.addr, diff)
		}
	}
}

func TestBusEcho(t *testing.T) {
	b := NewBus()
	b.Store(0xC123, 0x42)
	if got := b.Load(0xE123); got != 0x42 {
		t.Errorf("echo $E123 = %02X, want 42", got)
	}
	b.Store(0xFD00, 0x17)
	if got := b.Load(0xDD00); got != 0x17 {
		t.Errorf("$DD00 = %02X, want 17", got)
	}
}

func TestBusBootOverlay(t *testing.T) {
	b := NewBus()
	rom := make([]byte, 0x4000)
	rom[0x10] = 0xAA
	b.SetMem(ROMA, rom)

	boot := []byte{0x31, 0xFE, 0xFF}
	if err := b.SetBootROM(boot); err != nil {
		t.Fatal(err)
	}
	if got := b.Load(0x0000); got != 0x31 {
		t.Errorf("boot $0000 = %02X, want 31", got)
	}
	if got := b.DecodeRegion(0x0100); got != ROMA {
		t.Errorf("$0100 region = %v, want ROMA", got)
	}

	// Stores to the boot ROM are ignored.
	b.Store(0x0000, 0x00)
	if got := b.Load(0x0000); got != 0x31 {
		t.Errorf("boot $0000 after store = %02X, want 31", got)
	}

	b.Store(BOOT, 0x01)
	if b.BootOverlay() {
		t.Fatal("boot overlay still enabled")
	}
	if got := b.Load(0x0010); got != 0xAA {
		t.Errorf("rom $0010 = %02X, want AA", got)
	}
	if got := b.Load(BOOT); got != 0xFF {
		t.Errorf("BOOT = %02X, want FF", got)
	}

	if err := b.SetBootROM(make([]byte, 0x101)); err == nil {
		t.Error("oversized boot rom accepted")
	}
}

func TestBusUnused(t *testing.T) {
	b := NewBus()
	for _, addr := range []uint16{0xFF03, 0xFF08, 0xFF0E, 0xFF15, 0xFF1F, 0xFF27, 0xFF2F, 0xFF4C, 0xFF7F} {
		b.Store(addr, 0x00)
		if got := b.Load(addr); got != 0xFF {
			t.Errorf("$%04X = %02X, want FF", addr, got)
		}
	}
}

func TestBusAbsentRegions(t *testing.T) {
	b := NewBus()
	for _, addr := range []uint16{0x0000, 0x4000, 0xA000} {
		b.Store(addr, 0x12)
		if got := b.Load(addr); got != 0xFF {
			t.Errorf("$%04X = %02X, want FF", addr, got)
		}
	}
}

func TestBusHelpers(t *testing.T) {
	b := NewBus()

	b.Store16(0xC000, 0xBEEF)
	if got := b.Load16(0xC000); got != 0xBEEF {
		t.Errorf("Load16 = %04X, want BEEF", got)
	}
	if got := b.Load(0xC000); got != 0xEF {
		t.Errorf("low byte = %02X, want EF", got)
	}

	b.StoreBit(0xFF80, 3, true)
	if !b.LoadBit(0xFF80, 3) {
		t.Error("bit 3 not set")
	}
	b.StoreBit(0xFF80, 3, false)
	if got := b.LoadDirect(0xFF80); got != 0 {
		t.Errorf("HRAM = %02X, want 00", got)
	}

	b.StoreDirect(0xFF4C, 0x12)
	if got := b.LoadDirect(0xFF4C); got != 0x12 {
		t.Errorf("direct = %02X, want 12", got)
	}
	if got := b.Load(0xFF4C); got != 0xFF {
		t.Errorf("through handler = %02X, want FF", got)
	}

	b.Store(0xC555, 0x99)
	if got := b.LoadExternal(0xC555); got != 0x99 {
		t.Errorf("LoadExternal = %02X, want 99", got)
	}
}
