// package cart implements a reader for Game Boy cartridge dumps and decodes
// their header.
package cart

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// BankSize is the size of a switchable ROM bank.
	BankSize = 0x4000
	// RAMBankSize is the size of an external RAM bank.
	RAMBankSize = 0x2000

	headerEnd = 0x150
)

type Rom struct {
	header
	Data []byte // Data is the whole ROM, a multiple of BankSize.
	Path string // Path is the file the rom was loaded from, if any.
}

// Open loads a rom from file.
func Open(path string) (*Rom, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rom := &Rom{Path: path}
	if _, err := rom.ReadFrom(f); err != nil {
		return nil, err
	}
	return rom, nil
}

// ReadFrom implements io.ReaderFrom interface
func (rom *Rom) ReadFrom(r io.Reader) (int64, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	if err := rom.decode(buf); err != nil {
		return 0, fmt.Errorf("failed to decode header: %w", err)
	}

	// Pad short dumps to whole banks, unmapped bytes read as open bus.
	want := max(rom.ROMBanks(), (len(buf)+BankSize-1)/BankSize) * BankSize
	if len(buf) < want {
		padded := make([]byte, want)
		copy(padded, buf)
		for i := len(buf); i < want; i++ {
			padded[i] = 0xFF
		}
		buf = padded
	}
	rom.Data = buf
	return int64(len(buf)), nil
}

// Bank returns the n-th 16kB bank of the rom.
func (rom *Rom) Bank(n int) []byte {
	start := (n * BankSize) % len(rom.Data)
	return rom.Data[start : start+BankSize]
}

// Controller identifies the bank controller of a cartridge.
type Controller uint8

const (
	MBC0 Controller = iota // no controller, 32kB of ROM.
	MBC1
	MBC2
	MBC3
	MBC5
)

func (c Controller) String() string {
	switch c {
	case MBC0:
		return "ROM"
	case MBC1:
		return "MBC1"
	case MBC2:
		return "MBC2"
	case MBC3:
		return "MBC3"
	case MBC5:
		return "MBC5"
	}
	return fmt.Sprintf("Controller(%d)", uint8(c))
}

type cartType struct {
	name    string
	ctrl    Controller
	ram     bool
	battery bool
	rtc     bool
}

var cartTypes = map[uint8]cartType{
	0x00: {name: "ROM ONLY", ctrl: MBC0},
	0x01: {name: "MBC1", ctrl: MBC1},
	0x02: {name: "MBC1+RAM", ctrl: MBC1, ram: true},
	0x03: {name: "MBC1+RAM+BATTERY", ctrl: MBC1, ram: true, battery: true},
	0x05: {name: "MBC2", ctrl: MBC2},
	0x06: {name: "MBC2+BATTERY", ctrl: MBC2, battery: true},
	0x08: {name: "ROM+RAM", ctrl: MBC0, ram: true},
	0x09: {name: "ROM+RAM+BATTERY", ctrl: MBC0, ram: true, battery: true},
	0x0F: {name: "MBC3+TIMER+BATTERY", ctrl: MBC3, battery: true, rtc: true},
	0x10: {name: "MBC3+TIMER+RAM+BATTERY", ctrl: MBC3, ram: true, battery: true, rtc: true},
	0x11: {name: "MBC3", ctrl: MBC3},
	0x12: {name: "MBC3+RAM", ctrl: MBC3, ram: true},
	0x13: {name: "MBC3+RAM+BATTERY", ctrl: MBC3, ram: true, battery: true},
	0x19: {name: "MBC5", ctrl: MBC5},
	0x1A: {name: "MBC5+RAM", ctrl: MBC5, ram: true},
	0x1B: {name: "MBC5+RAM+BATTERY", ctrl: MBC5, ram: true, battery: true},
	0x1C: {name: "MBC5+RUMBLE", ctrl: MBC5},
	0x1D: {name: "MBC5+RUMBLE+RAM", ctrl: MBC5, ram: true},
	0x1E: {name: "MBC5+RUMBLE+RAM+BATTERY", ctrl: MBC5, ram: true, battery: true},
}

// unsupported types still get a name in rom infos.
var otherTypes = map[uint8]string{
	0x0B: "MMM01",
	0x0C: "MMM01+RAM",
	0x0D: "MMM01+RAM+BATTERY",
	0x20: "MBC6",
	0x22: "MBC7+SENSOR+RUMBLE+RAM+BATTERY",
	0xFC: "POCKET CAMERA",
	0xFD: "BANDAI TAMA5",
	0xFE: "HuC3",
	0xFF: "HuC1+RAM+BATTERY",
}

var ramBanks = [...]int{0, 0, 1, 4, 16, 8}

type header struct {
	raw  [headerEnd]byte
	typ  cartType
	ok   bool
	rom  int
	ram  int
	csum uint8
}

func (hdr *header) decode(p []byte) error {
	if len(p) < headerEnd {
		return fmt.Errorf("too small, needs %d bytes", headerEnd)
	}
	copy(hdr.raw[:], p[:headerEnd])

	hdr.typ, hdr.ok = cartTypes[hdr.raw[0x147]]

	romsz := hdr.raw[0x148]
	if romsz > 8 {
		return fmt.Errorf("invalid rom size code 0x%02X", romsz)
	}
	hdr.rom = 2 << romsz

	ramsz := hdr.raw[0x149]
	if int(ramsz) >= len(ramBanks) {
		return fmt.Errorf("invalid ram size code 0x%02X", ramsz)
	}
	hdr.ram = ramBanks[ramsz]

	var sum uint8
	for _, b := range hdr.raw[0x134:0x14D] {
		sum = sum - b - 1
	}
	hdr.csum = sum
	return nil
}

// Title returns the game title, trimmed of padding.
func (hdr *header) Title() string {
	title := hdr.raw[0x134:0x144]
	if i := strings.IndexByte(string(title), 0); i >= 0 {
		title = title[:i]
	}
	return strings.TrimRight(string(title), " ")
}

// Type returns the raw cartridge type byte.
func (hdr *header) Type() uint8 { return hdr.raw[0x147] }

// TypeName returns the human readable cartridge type.
func (hdr *header) TypeName() string {
	if hdr.ok {
		return hdr.typ.name
	}
	if name, ok := otherTypes[hdr.Type()]; ok {
		return name
	}
	return "[Unknown]"
}

// Controller returns the bank controller used by the cartridge. An error is
// returned for cartridge types that are not emulated.
func (hdr *header) Controller() (Controller, error) {
	if !hdr.ok {
		return 0, fmt.Errorf("unsupported cartridge type 0x%02X (%s)", hdr.Type(), hdr.TypeName())
	}
	return hdr.typ.ctrl, nil
}

// HasBattery indicates the presence of battery-backed memory.
func (hdr *header) HasBattery() bool { return hdr.typ.battery }

// HasRTC indicates the presence of a real time clock.
func (hdr *header) HasRTC() bool { return hdr.typ.rtc }

// ROMBanks returns the number of 16kB ROM banks declared by the header.
func (hdr *header) ROMBanks() int { return hdr.rom }

// RAMBanks returns the number of 8kB external RAM banks. MBC2 carts report
// none, their 512 nibbles of RAM are built into the controller.
func (hdr *header) RAMBanks() int { return hdr.ram }

// HeaderChecksum returns the checksum stored in the header and the one
// computed over 0x134-0x14C.
func (hdr *header) HeaderChecksum() (stored, computed uint8) {
	return hdr.raw[0x14D], hdr.csum
}

// PrintInfos writes a summary of the cartridge header to w.
func (rom *Rom) PrintInfos(w io.Writer) {
	stored, computed := rom.HeaderChecksum()
	fmt.Fprintf(w, "Title:      %s\n", rom.Title())
	fmt.Fprintf(w, "Type:       %02X %s\n", rom.Type(), rom.TypeName())
	fmt.Fprintf(w, "ROM:        %02X %d KiB - %d banks\n", rom.raw[0x148], rom.ROMBanks()*16, rom.ROMBanks())
	fmt.Fprintf(w, "RAM:        %02X %d KiB - %d banks\n", rom.raw[0x149], rom.RAMBanks()*8, rom.RAMBanks())
	csum := "ok"
	if stored != computed {
		csum = fmt.Sprintf("bad (computed %02X)", computed)
	}
	fmt.Fprintf(w, "Checksum:   %02X %s\n", stored, csum)
	fmt.Fprintf(w, "Size:       %d bytes\n", len(rom.Data))
}
