package hwio

import (
	"fmt"

	"dotboy/emu/log"
)

// A Decoder translates a bus address into a region index and an offset
// relative to the start of that region.
type Decoder interface {
	Decode(addr uint16) (region int, off uint16)
}

type slotKind uint8

const (
	slotDirect slotKind = iota // no handler, access backing memory
	slotReg
	slotDevice
)

// slot is the handler attached to one byte of a region.
type slot struct {
	kind slotKind
	reg  *Reg8
	dev  *Device
	base uint16 // offset of the device first byte within the region
}

// Table dispatches byte accesses to a fixed set of memory regions. Each byte
// of each region has at most one handler (a Reg8 or a Device); a byte with no
// handler reads and writes the backing buffer of its region. Backing buffers
// can be swapped at any time (bank switching) and can be absent, in which
// case reads return 0xFF and writes are dropped.
type Table struct {
	Name    string
	Decoder Decoder // used by MapBank to locate registers

	mem   [][]byte
	sizes []int
	slots [][]slot
}

// NewTable creates a table with one region per element of sizes. Regions
// initially have no backing memory.
func NewTable(name string, sizes []int) *Table {
	t := &Table{
		Name:  name,
		mem:   make([][]byte, len(sizes)),
		sizes: append([]int(nil), sizes...),
		slots: make([][]slot, len(sizes)),
	}
	for i, sz := range sizes {
		t.slots[i] = make([]slot, sz)
	}
	return t
}

// Reset removes all handlers. Backing buffers are kept.
func (t *Table) Reset() {
	for i := range t.slots {
		clear(t.slots[i])
	}
}

func (t *Table) NumRegions() int { return len(t.sizes) }
func (t *Table) Size(region int) int { return t.sizes[region] }
func (t *Table) Mem(region int) []byte { return t.mem[region] }

// SetMem sets the backing buffer of a region. buf must be at least as large
// as the region, or nil if the region has no backing memory.
func (t *Table) SetMem(region int, buf []byte) {
	if buf != nil && len(buf) < t.sizes[region] {
		panic(fmt.Sprintf("hwio: buffer too small for region %d: %d < %d", region, len(buf), t.sizes[region]))
	}
	t.mem[region] = buf
}

// MapReg8 attaches reg to a single byte, replacing any previous handler.
func (t *Table) MapReg8(region int, off uint16, reg *Reg8) {
	t.slots[region][off] = slot{kind: slotReg, reg: reg}
}

// MapDevice attaches dev to dev.Size bytes starting at off, replacing any
// previous handler.
func (t *Table) MapDevice(region int, off uint16, dev *Device) {
	if int(off)+dev.Size > t.sizes[region] {
		panic(fmt.Sprintf("hwio: device %s overflows region %d", dev.Name, region))
	}
	log.ModHwIo.DebugZ("mapping device").
		String("dev", dev.Name).
		Int("region", region).
		Hex16("off", off).
		Int("size", dev.Size).
		String("bus", t.Name).
		End()

	for i := range dev.Size {
		t.slots[region][int(off)+i] = slot{kind: slotDevice, dev: dev, base: off}
	}
}

// Unmap removes the handlers from begin to end (included).
func (t *Table) Unmap(region int, begin, end uint16) {
	clear(t.slots[region][begin : int(end)+1])
}

// Map a register bank (that is, a structure containing multiple Reg8 or
// Device fields) at the given bus address. Addresses are translated with the
// table Decoder. For this function to work, registers must have a struct tag
// "hwio", containing the following fields:
//
//	offset=0x12     Byte-offset within the register bank at which this
//	                register is mapped. There is no default value: if this
//	                option is missing, the register is assumed not to be
//	                part of the bank, and is ignored by this call.
//
//	bank=NN         Ordinal bank number (if not specified, default to zero).
//	                This option allows for a structure to expose multiple
//	                banks, as regs can be grouped by bank by specified the
//	                bank number.
func (t *Table) MapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		region, off := t.Decoder.Decode(addr + reg.offset)
		switch r := reg.regPtr.(type) {
		case *Reg8:
			t.MapReg8(region, off, r)
		case *Device:
			t.MapDevice(region, off, r)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

// Read8 reads the byte at the given region offset, going through its
// handler, if any.
func (t *Table) Read8(region int, off uint16) uint8 {
	s := &t.slots[region][off]
	switch s.kind {
	case slotReg:
		return s.reg.read(t.ReadDirect(region, off))
	case slotDevice:
		if s.dev.ReadCb != nil {
			return s.dev.read(off - s.base)
		}
	}
	return t.ReadDirect(region, off)
}

// Peek8 is like Read8 but without side effects, for debugging and tracing.
func (t *Table) Peek8(region int, off uint16) uint8 {
	s := &t.slots[region][off]
	switch s.kind {
	case slotReg:
		return s.reg.peek(t.ReadDirect(region, off))
	case slotDevice:
		if s.dev.PeekCb != nil {
			return s.dev.PeekCb(off - s.base)
		}
	}
	return t.ReadDirect(region, off)
}

// Write8 writes the byte at the given region offset, going through its
// handler, if any.
func (t *Table) Write8(region int, off uint16, val uint8) {
	s := &t.slots[region][off]
	switch s.kind {
	case slotReg:
		if s.reg.Flags&ReadOnlyFlag != 0 {
			log.ModHwIo.DebugZ("Write8 to readonly reg").
				String("name", s.reg.Name).
				Hex8("val", val).
				String("bus", t.Name).
				End()
			return
		}
		old := t.ReadDirect(region, off)
		cur := s.reg.merge(old, val)
		t.WriteDirect(region, off, cur)
		if s.reg.WriteCb != nil {
			s.reg.WriteCb(old, cur)
		}
		return
	case slotDevice:
		if s.dev.Flags&ReadOnlyFlag != 0 {
			return
		}
		if s.dev.WriteCb != nil {
			s.dev.WriteCb(off-s.base, val)
			return
		}
	}
	t.WriteDirect(region, off, val)
}

// ReadDirect reads the backing memory, bypassing handlers.
func (t *Table) ReadDirect(region int, off uint16) uint8 {
	mem := t.mem[region]
	if mem == nil {
		return 0xFF
	}
	return mem[off]
}

// WriteDirect writes the backing memory, bypassing handlers.
func (t *Table) WriteDirect(region int, off uint16, val uint8) {
	mem := t.mem[region]
	if mem == nil {
		return
	}
	mem[off] = val
}
