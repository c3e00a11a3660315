package mappers

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"dotboy/cart"
	"dotboy/hw"
)

// newRom returns a rom with nbanks banks, each one starting with its number
// at offset 0x200.
func newRom(tb testing.TB, typ, ramsz uint8, nbanks int) *cart.Rom {
	tb.Helper()

	buf := make([]byte, nbanks*cart.BankSize)
	copy(buf[0x134:], "MAPPERTEST")
	buf[0x147] = typ
	for code := range 9 {
		if 2<<code == nbanks {
			buf[0x148] = uint8(code)
		}
	}
	buf[0x149] = ramsz
	for i := range nbanks {
		buf[i*cart.BankSize+0x200] = uint8(i)
	}

	rom := &cart.Rom{Path: filepath.Join("roms", "mappertest.gb")}
	if _, err := rom.ReadFrom(bytes.NewReader(buf)); err != nil {
		tb.Fatal(err)
	}
	return rom
}

func load(tb testing.TB, rom *cart.Rom, saveDir string) (*hw.Bus, Mapper) {
	tb.Helper()

	bus := hw.NewBus()
	m, err := Load(rom, bus, saveDir)
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() { m.Close() })
	return bus, m
}

func checkBanks(tb testing.TB, bus *hw.Bus, wantA, wantB uint8) {
	tb.Helper()

	if got := bus.Load(0x0200); got != wantA {
		tb.Errorf("rom bank A = %d, want %d", got, wantA)
	}
	if got := bus.Load(0x4200); got != wantB {
		tb.Errorf("rom bank B = %d, want %d", got, wantB)
	}
}

func TestMBC1Banking(t *testing.T) {
	bus, m := load(t, newRom(t, 0x01, 0, 4), "")
	checkBanks(t, bus, 0, 1)

	bus.Store(0x2000, 5)
	checkBanks(t, bus, 0, 1) // 5 masked to 4 banks
	if m.ROMBankB() != 1 {
		t.Errorf("ROMBankB() = %d, want 1", m.ROMBankB())
	}

	bus.Store(0x2000, 2)
	checkBanks(t, bus, 0, 2)

	bus.Store(0x2000, 0)
	checkBanks(t, bus, 0, 1) // bank 0 selects bank 1

	bus.Store(0x2000, 3)
	checkBanks(t, bus, 0, 3)
}

func TestMBC1AdvancedMode(t *testing.T) {
	bus, m := load(t, newRom(t, 0x01, 0, 128), "")

	bus.Store(0x2000, 0x02)
	bus.Store(0x4000, 0x01)
	checkBanks(t, bus, 0, 0x22)

	bus.Store(0x6000, 0x01)
	checkBanks(t, bus, 0x20, 0x22)
	if got := m.ROMBankA(); got != 0x20 {
		t.Errorf("ROMBankA() = %d, want %d", got, 0x20)
	}

	bus.Store(0x6000, 0x00)
	checkBanks(t, bus, 0, 0x22)
}

func TestMBC1RAM(t *testing.T) {
	dir := t.TempDir()
	rom := newRom(t, 0x03, 0x03, 4)
	bus, m := load(t, rom, dir)

	bus.Store(0xA000, 0x42)
	if got := bus.Load(0xA000); got != 0xFF {
		t.Fatalf("disabled RAM reads 0x%02X, want 0xFF", got)
	}

	bus.Store(0x0000, 0x0A)
	bus.Store(0xA000, 0x42)
	if got := bus.Load(0xA000); got != 0x42 {
		t.Fatalf("RAM reads 0x%02X, want 0x42", got)
	}

	// advanced mode, ram bank 2
	bus.Store(0x6000, 0x01)
	bus.Store(0x4000, 0x02)
	if got := m.SRAMBank(); got != 2 {
		t.Fatalf("SRAMBank() = %d, want 2", got)
	}
	if got := bus.Load(0xA000); got != 0x00 {
		t.Fatalf("RAM bank 2 reads 0x%02X, want 0x00", got)
	}
	bus.Store(0xA001, 0x17)

	bus.Store(0x0000, 0x00)
	if got := bus.Load(0xA001); got != 0xFF {
		t.Fatalf("disabled RAM reads 0x%02X, want 0xFF", got)
	}

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	save, err := os.ReadFile(filepath.Join(dir, "mappertest.sav"))
	if err != nil {
		t.Fatal(err)
	}
	if len(save) != 4*cart.RAMBankSize {
		t.Fatalf("save size = %d, want %d", len(save), 4*cart.RAMBankSize)
	}
	if save[0] != 0x42 || save[2*cart.RAMBankSize+1] != 0x17 {
		t.Errorf("save content = %02X %02X, want 42 17", save[0], save[2*cart.RAMBankSize+1])
	}

	// The save is reloaded by the next session.
	bus, _ = load(t, rom, dir)
	bus.Store(0x0000, 0x0A)
	if got := bus.Load(0xA000); got != 0x42 {
		t.Errorf("reloaded RAM reads 0x%02X, want 0x42", got)
	}
}

func TestMBC2(t *testing.T) {
	bus, m := load(t, newRom(t, 0x05, 0, 8), "")

	// bit 8 clear: ram enable, rom bank unchanged
	bus.Store(0x0000, 0x0A)
	checkBanks(t, bus, 0, 1)

	bus.Store(0x0100, 0x05)
	checkBanks(t, bus, 0, 5)
	bus.Store(0x2100, 0x00)
	checkBanks(t, bus, 0, 1)
	if m.ROMBankB() != 1 {
		t.Errorf("ROMBankB() = %d, want 1", m.ROMBankB())
	}

	bus.Store(0xA010, 0x3C)
	for _, addr := range []uint16{0xA010, 0xA210, 0xBE10} {
		if got := bus.Load(addr); got != 0xFC {
			t.Errorf("Load(0x%04X) = 0x%02X, want 0xFC", addr, got)
		}
	}

	bus.Store(0x0000, 0x00)
	if got := bus.Load(0xA010); got != 0xFF {
		t.Errorf("disabled RAM reads 0x%02X, want 0xFF", got)
	}
}

func TestMBC3(t *testing.T) {
	bus, m := load(t, newRom(t, 0x13, 0x03, 128), "")

	bus.Store(0x2000, 0x45)
	checkBanks(t, bus, 0, 0x45)
	bus.Store(0x2000, 0x00)
	checkBanks(t, bus, 0, 1)

	bus.Store(0x0000, 0x0A)
	bus.Store(0x4000, 0x03)
	bus.Store(0xA000, 0x99)
	if got := m.SRAMBank(); got != 3 {
		t.Errorf("SRAMBank() = %d, want 3", got)
	}

	// select the seconds register then latch
	bus.Store(0x4000, 0x08)
	bus.Store(0xA000, 0x12)
	if got := bus.Load(0xA000); got != 0x12 {
		t.Errorf("RTC register reads 0x%02X, want 0x12", got)
	}
	bus.Store(0x6000, 0x00)
	bus.Store(0x6000, 0x01)
	if got := bus.Load(0xA000); got != 0x00 {
		t.Errorf("latched RTC register reads 0x%02X, want 0x00", got)
	}

	bus.Store(0x4000, 0x03)
	if got := bus.Load(0xA000); got != 0x99 {
		t.Errorf("RAM bank 3 reads 0x%02X, want 0x99", got)
	}
}

func TestMBC5(t *testing.T) {
	bus, _ := load(t, newRom(t, 0x1A, 0x03, 8), "")

	bus.Store(0x2000, 0x00)
	checkBanks(t, bus, 0, 0) // bank 0 is valid
	bus.Store(0x2000, 0x06)
	checkBanks(t, bus, 0, 6)
	bus.Store(0x3000, 0x01)
	checkBanks(t, bus, 0, 6) // bit 8 masked out

	bus.Store(0x0000, 0x0A)
	bus.Store(0x4000, 0x01)
	bus.Store(0xA123, 0x55)
	bus.Store(0x4000, 0x00)
	if got := bus.Load(0xA123); got != 0x00 {
		t.Errorf("RAM bank 0 reads 0x%02X, want 0x00", got)
	}
	bus.Store(0x4000, 0x01)
	if got := bus.Load(0xA123); got != 0x55 {
		t.Errorf("RAM bank 1 reads 0x%02X, want 0x55", got)
	}
}

func TestROMOnly(t *testing.T) {
	bus, _ := load(t, newRom(t, 0x00, 0, 2), "")

	bus.Store(0x2000, 0x01)
	bus.Store(0x0200, 0x77)
	checkBanks(t, bus, 0, 1)
	if got := bus.Load(0xA000); got != 0xFF {
		t.Errorf("absent RAM reads 0x%02X, want 0xFF", got)
	}
}

func TestLoadBootOverlay(t *testing.T) {
	bus := hw.NewBus()
	boot := make([]byte, 0x100)
	boot[0x00] = 0x31
	if err := bus.SetBootROM(boot); err != nil {
		t.Fatal(err)
	}
	m, err := Load(newRom(t, 0x01, 0, 4), bus, "")
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if got := bus.Load(0x0000); got != 0x31 {
		t.Errorf("Load(0x0000) = 0x%02X, want boot rom byte 0x31", got)
	}
	bus.Store(0x2000, 0x02)
	checkBanks(t, bus, 0, 2)
}

func TestLoadUnsupported(t *testing.T) {
	buf := make([]byte, 2*cart.BankSize)
	buf[0x147] = 0xFC

	var rom cart.Rom
	if _, err := rom.ReadFrom(bytes.NewReader(buf)); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(&rom, hw.NewBus(), ""); err == nil {
		t.Fatal("Load succeeded on an unsupported cartridge")
	}
}
