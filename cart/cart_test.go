package cart

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// makeRom returns a rom image with the given header fields.
func makeRom(tb testing.TB, title string, typ, romsz, ramsz uint8, size int) []byte {
	tb.Helper()

	buf := make([]byte, size)
	copy(buf[0x134:0x144], title)
	buf[0x147] = typ
	buf[0x148] = romsz
	buf[0x149] = ramsz

	var sum uint8
	for _, b := range buf[0x134:0x14D] {
		sum = sum - b - 1
	}
	buf[0x14D] = sum
	return buf
}

func TestRomHeader(t *testing.T) {
	tests := []struct {
		name     string
		typ      uint8
		romsz    uint8
		ramsz    uint8
		ctrl     Controller
		typeName string
		battery  bool
		romBanks int
		ramBanks int
	}{
		{"rom-only", 0x00, 0, 0, MBC0, "ROM ONLY", false, 2, 0},
		{"mbc1", 0x01, 1, 0, MBC1, "MBC1", false, 4, 0},
		{"mbc1-battery", 0x03, 4, 3, MBC1, "MBC1+RAM+BATTERY", true, 32, 4},
		{"mbc2", 0x06, 2, 0, MBC2, "MBC2+BATTERY", true, 8, 0},
		{"mbc3-rtc", 0x10, 6, 3, MBC3, "MBC3+TIMER+RAM+BATTERY", true, 128, 4},
		{"mbc5", 0x1B, 8, 4, MBC5, "MBC5+RAM+BATTERY", true, 512, 16},
		{"ram-8k", 0x1A, 0, 2, MBC5, "MBC5+RAM", false, 2, 1},
		{"ram-64k", 0x1A, 0, 5, MBC5, "MBC5+RAM", false, 2, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rom Rom
			if _, err := rom.ReadFrom(bytes.NewReader(makeRom(t, "TEST GAME", tt.typ, tt.romsz, tt.ramsz, 0x8000))); err != nil {
				t.Fatal(err)
			}
			ctrl, err := rom.Controller()
			if err != nil {
				t.Fatal(err)
			}
			if ctrl != tt.ctrl {
				t.Errorf("Controller() = %s, want %s", ctrl, tt.ctrl)
			}
			if got := rom.TypeName(); got != tt.typeName {
				t.Errorf("TypeName() = %q, want %q", got, tt.typeName)
			}
			if got := rom.HasBattery(); got != tt.battery {
				t.Errorf("HasBattery() = %t, want %t", got, tt.battery)
			}
			if got := rom.ROMBanks(); got != tt.romBanks {
				t.Errorf("ROMBanks() = %d, want %d", got, tt.romBanks)
			}
			if got := rom.RAMBanks(); got != tt.ramBanks {
				t.Errorf("RAMBanks() = %d, want %d", got, tt.ramBanks)
			}
			if got := len(rom.Data); got != tt.romBanks*BankSize {
				t.Errorf("len(Data) = %d, want %d", got, tt.romBanks*BankSize)
			}
			if got := rom.Title(); got != "TEST GAME" {
				t.Errorf("Title() = %q, want %q", got, "TEST GAME")
			}
		})
	}
}

func TestRomUnsupported(t *testing.T) {
	var rom Rom
	if _, err := rom.ReadFrom(bytes.NewReader(makeRom(t, "CAMERA", 0xFC, 0, 0, 0x8000))); err != nil {
		t.Fatal(err)
	}
	if _, err := rom.Controller(); err == nil {
		t.Fatal("Controller() succeeded on a pocket camera cartridge")
	}
	if got := rom.TypeName(); got != "POCKET CAMERA" {
		t.Errorf("TypeName() = %q", got)
	}
}

func TestRomInvalid(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"short", make([]byte, 0x100)},
		{"rom-size", func() []byte {
			buf := makeRom(t, "", 0, 0, 0, 0x8000)
			buf[0x148] = 0x52
			return buf
		}()},
		{"ram-size", func() []byte {
			buf := makeRom(t, "", 0, 0, 0, 0x8000)
			buf[0x149] = 0x06
			return buf
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rom Rom
			if _, err := rom.ReadFrom(bytes.NewReader(tt.buf)); err == nil {
				t.Fatal("ReadFrom succeeded")
			}
		})
	}
}

func TestRomBank(t *testing.T) {
	buf := makeRom(t, "", 0x01, 1, 0, 4*BankSize)
	for i := range 4 {
		buf[i*BankSize+0x200] = uint8(i)
	}

	var rom Rom
	if _, err := rom.ReadFrom(bytes.NewReader(buf)); err != nil {
		t.Fatal(err)
	}
	for n, want := range []uint8{0, 1, 2, 3, 0, 1} {
		if got := rom.Bank(n)[0x200]; got != want {
			t.Errorf("Bank(%d)[0x200] = %d, want %d", n, got, want)
		}
	}
}

func TestOpenPrintInfos(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.gb")
	if err := os.WriteFile(path, makeRom(t, "POKEMON", 0x13, 5, 3, 0x8000), 0o644); err != nil {
		t.Fatal(err)
	}

	rom, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	var sb strings.Builder
	rom.PrintInfos(&sb)
	out := sb.String()
	for _, want := range []string{"POKEMON", "MBC3+RAM+BATTERY", "1024 KiB - 64 banks", "32 KiB - 4 banks", "ok"} {
		if !strings.Contains(out, want) {
			t.Errorf("PrintInfos output misses %q:\n%s", want, out)
		}
	}
}
