package hw

import (
	"fmt"

	"dotboy/emu/log"
	"dotboy/hw/hwdefs"
	"dotboy/hw/hwio"
)

// Region identifies one of the fixed-size memory areas of the address space.
type Region int

const (
	BIOS Region = iota
	ROMA
	ROMB
	VRAM
	SRAM
	WRAMA
	WRAMB
	OAM
	IO
	HRAM
	IE

	NumRegions
)

var regionSizes = [NumRegions]int{
	BIOS:  0x100,
	ROMA:  0x4000,
	ROMB:  0x4000,
	VRAM:  0x2000,
	SRAM:  0x2000,
	WRAMA: 0x1000,
	WRAMB: 0x1000,
	OAM:   0x100,
	IO:    0x80,
	HRAM:  0x7F,
	IE:    0x01,
}

var regionNames = [NumRegions]string{
	"BIOS", "ROMA", "ROMB", "VRAM", "SRAM", "WRAMA", "WRAMB", "OAM", "IO", "HRAM", "IE",
}

func (r Region) Size() int { return regionSizes[r] }

func (r Region) String() string {
	if r < 0 || r >= NumRegions {
		return fmt.Sprintf("Region(%d)", int(r))
	}
	return regionNames[r]
}

// I/O register addresses.
const (
	JOYP uint16 = 0xFF00
	SB   uint16 = 0xFF01
	SC   uint16 = 0xFF02
	DIV  uint16 = 0xFF04
	TIMA uint16 = 0xFF05
	TMA  uint16 = 0xFF06
	TAC  uint16 = 0xFF07
	IF   uint16 = 0xFF0F
	NR10 uint16 = 0xFF10
	NR52 uint16 = 0xFF26
	WAVE uint16 = 0xFF30
	LCDC uint16 = 0xFF40
	STAT uint16 = 0xFF41
	SCY  uint16 = 0xFF42
	SCX  uint16 = 0xFF43
	LY   uint16 = 0xFF44
	LYC  uint16 = 0xFF45
	DMA  uint16 = 0xFF46
	BGP  uint16 = 0xFF47
	OBP0 uint16 = 0xFF48
	OBP1 uint16 = 0xFF49
	WY   uint16 = 0xFF4A
	WX   uint16 = 0xFF4B
	BOOT uint16 = 0xFF50
	IEA  uint16 = 0xFFFF
)

// view is a precomputed address decoding table.
type view struct {
	regions [0x10000]Region
	masks   [0x10000]uint16
}

func (v *view) fill(begin, end int, r Region, mask uint16) {
	for addr := begin; addr <= end; addr++ {
		v.regions[addr] = r
		v.masks[addr] = mask
	}
}

// newView builds the decoding table shared by both views up to $DFFF.
func newView() *view {
	v := new(view)
	v.fill(0x0000, 0x3FFF, ROMA, 0x3FFF)
	v.fill(0x4000, 0x7FFF, ROMB, 0x3FFF)
	v.fill(0x8000, 0x9FFF, VRAM, 0x1FFF)
	v.fill(0xA000, 0xBFFF, SRAM, 0x1FFF)
	v.fill(0xC000, 0xCFFF, WRAMA, 0x0FFF)
	v.fill(0xD000, 0xDFFF, WRAMB, 0x0FFF)
	return v
}

// The main view is the one of the CPU. Above $FE00 it sees the OAM and the
// internal registers.
func newMainView() *view {
	v := newView()
	v.fill(0xE000, 0xEFFF, WRAMA, 0x0FFF)
	v.fill(0xF000, 0xFDFF, WRAMB, 0x0FFF)
	v.fill(0xFE00, 0xFEFF, OAM, 0x00FF)
	v.fill(0xFF00, 0xFF7F, IO, 0x007F)
	v.fill(0xFF80, 0xFFFE, HRAM, 0x007F)
	v.fill(0xFFFF, 0xFFFF, IE, 0x0000)
	return v
}

// The external view is the one of the DMA unit. The upper 8KB always
// mirror the work RAM.
func newExternalView() *view {
	v := newView()
	v.fill(0xE000, 0xEFFF, WRAMA, 0x0FFF)
	v.fill(0xF000, 0xFFFF, WRAMB, 0x0FFF)
	return v
}

var (
	mainView     = newMainView()
	externalView = newExternalView()
)

// Bus is the address space of the console. It owns the backing memory of
// the internal regions and a handler table where each component maps its
// registers. Cartridge and boot ROM memory are provided by loaders.
type Bus struct {
	*hwio.Table

	bootOverlay bool

	Boot    hwio.Device `hwio:"size=0x100,readonly"`
	BootOff hwio.Reg8   `hwio:"ormask=0xFF,wcb"`
	unused  *hwio.Reg8
}

func NewBus() *Bus {
	sizes := make([]int, NumRegions)
	for r := range NumRegions {
		sizes[r] = r.Size()
	}

	b := &Bus{Table: hwio.NewTable("main", sizes)}
	b.Table.Decoder = b
	for _, r := range []Region{VRAM, WRAMA, WRAMB, OAM, IO, HRAM, IE} {
		b.SetMem(r, make([]byte, r.Size()))
	}

	hwio.MustInitRegs(b)
	b.Table.MapDevice(int(BIOS), 0, &b.Boot)
	b.Table.MapReg8(int(IO), uint16(BOOT&0x7F), &b.BootOff)

	b.unused = hwio.Unused("unused")
	for _, rng := range [][2]uint16{
		{0xFF03, 0xFF03},
		{0xFF08, 0xFF0E},
		{0xFF15, 0xFF15},
		{0xFF1F, 0xFF1F},
		{0xFF27, 0xFF2F},
		{0xFF4C, 0xFF4F},
		{0xFF51, 0xFF7F},
	} {
		for addr := rng[0]; addr <= rng[1]; addr++ {
			b.Table.MapReg8(int(IO), addr&0x7F, b.unused)
		}
	}
	return b
}

// SetBootROM maps the boot ROM over the first 256 bytes of the address
// space. An empty rom disables the overlay.
func (b *Bus) SetBootROM(rom []byte) error {
	if len(rom) > BIOS.Size() {
		return fmt.Errorf("boot rom too large: %d bytes", len(rom))
	}
	if len(rom) == 0 {
		b.SetMem(BIOS, nil)
		b.bootOverlay = false
		return nil
	}
	buf := make([]byte, BIOS.Size())
	copy(buf, rom)
	b.SetMem(BIOS, buf)
	b.bootOverlay = true
	return nil
}

// BootOverlay reports whether the boot ROM is currently mapped.
func (b *Bus) BootOverlay() bool { return b.bootOverlay }

// Writing any value to $FF50 unmaps the boot ROM for good.
func (b *Bus) WriteBOOTOFF(_, _ uint8) {
	if b.bootOverlay {
		log.ModMem.InfoZ("boot rom unmapped").End()
	}
	b.bootOverlay = false
}

func (b *Bus) SetMem(r Region, buf []byte) { b.Table.SetMem(int(r), buf) }
func (b *Bus) Mem(r Region) []byte         { return b.Table.Mem(int(r)) }

// Decode implements hwio.Decoder for the main view.
func (b *Bus) Decode(addr uint16) (int, uint16) {
	if b.bootOverlay && addr <= 0x00FF {
		return int(BIOS), addr
	}
	return int(mainView.regions[addr]), addr & mainView.masks[addr]
}

// DecodeRegion returns the region the main view maps addr to.
func (b *Bus) DecodeRegion(addr uint16) Region {
	r, _ := b.Decode(addr)
	return Region(r)
}

// DecodeRelativeAddress returns the offset of addr within its region, for
// the main view.
func (b *Bus) DecodeRelativeAddress(addr uint16) uint16 {
	_, off := b.Decode(addr)
	return off
}

// DecodeExternal is the external view counterpart of Decode. The boot ROM
// is not visible from the external bus.
func (b *Bus) DecodeExternal(addr uint16) (Region, uint16) {
	return externalView.regions[addr], addr & externalView.masks[addr]
}

// Load reads a byte, going through the handler mapped at addr.
func (b *Bus) Load(addr uint16) uint8 {
	r, off := b.Decode(addr)
	return b.Table.Read8(r, off)
}

// Peek reads a byte without side effects.
func (b *Bus) Peek(addr uint16) uint8 {
	r, off := b.Decode(addr)
	return b.Table.Peek8(r, off)
}

// Store writes a byte, going through the handler mapped at addr.
func (b *Bus) Store(addr uint16, val uint8) {
	r, off := b.Decode(addr)
	b.Table.Write8(r, off, val)
}

// LoadDirect reads the backing memory at addr, bypassing handlers.
func (b *Bus) LoadDirect(addr uint16) uint8 {
	r, off := b.Decode(addr)
	return b.Table.ReadDirect(r, off)
}

// StoreDirect writes the backing memory at addr, bypassing handlers.
func (b *Bus) StoreDirect(addr uint16, val uint8) {
	r, off := b.Decode(addr)
	b.Table.WriteDirect(r, off, val)
}

// LoadExternal reads a byte through the external view.
func (b *Bus) LoadExternal(addr uint16) uint8 {
	r, off := b.DecodeExternal(addr)
	return b.Table.Read8(int(r), off)
}

// Load16 reads a little-endian 16-bit value.
func (b *Bus) Load16(addr uint16) uint16 {
	lo := b.Load(addr)
	hi := b.Load(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

// Store16 writes a little-endian 16-bit value.
func (b *Bus) Store16(addr uint16, val uint16) {
	b.Store(addr, uint8(val))
	b.Store(addr+1, uint8(val>>8))
}

// LoadBit returns bit n of the byte at addr, bypassing handlers.
func (b *Bus) LoadBit(addr uint16, n uint) bool {
	return hwio.GetBit8(b.LoadDirect(addr), n)
}

// StoreBit sets or clears bit n of the byte at addr, bypassing handlers.
func (b *Bus) StoreBit(addr uint16, n uint, set bool) {
	val := b.LoadDirect(addr)
	if set {
		hwio.SetBit8(&val, n)
	} else {
		hwio.ClearBit8(&val, n)
	}
	b.StoreDirect(addr, val)
}

// MapBank maps a register bank at the given address of the main view. The
// boot ROM overlay is ignored while mapping so that cartridge handlers land
// in ROMA.
func (b *Bus) MapBank(addr uint16, bank any, bankNum int) {
	overlay := b.bootOverlay
	b.bootOverlay = false
	b.Table.MapBank(addr, bank, bankNum)
	b.bootOverlay = overlay
}

// RequestIRQ sets the IF bits of src.
func (b *Bus) RequestIRQ(src hwdefs.IRQSource) {
	b.StoreDirect(IF, b.LoadDirect(IF)|uint8(src))
}
