package hwio

import (
	"fmt"
)

type RWFlags uint8

const (
	ReadWriteFlag RWFlags = 0
	ReadOnlyFlag  RWFlags = (1 << iota)
	WriteOnlyFlag
)

// Reg8 is the handler of a memory-mapped 8-bit register. The register value
// lives in the backing memory of the region it's mapped in, so that
// components can access it directly, without triggering side effects.
type Reg8 struct {
	Name   string
	RoMask uint8 // bits not affected by writes
	OrMask uint8 // bits always read as 1 (unconnected)

	Flags   RWFlags
	ReadCb  func(val uint8) uint8
	PeekCb  func(val uint8) uint8
	WriteCb func(old uint8, val uint8)
}

func (reg Reg8) String() string {
	s := fmt.Sprintf("%s{ro:%02x,or:%02x", reg.Name, reg.RoMask, reg.OrMask)
	if reg.ReadCb != nil {
		s += ",r!"
	}
	if reg.PeekCb != nil {
		s += ",p!"
	}
	if reg.WriteCb != nil {
		s += ",w!"
	}
	return s + "}"
}

// merge returns the value stored when val is written over old.
func (reg *Reg8) merge(old, val uint8) uint8 {
	return (old & reg.RoMask) | (val &^ reg.RoMask)
}

func (reg *Reg8) read(val uint8) uint8 {
	if reg.Flags&WriteOnlyFlag != 0 {
		return 0xFF
	}
	if reg.ReadCb != nil {
		val = reg.ReadCb(val)
	}
	return val | reg.OrMask
}

func (reg *Reg8) peek(val uint8) uint8 {
	switch {
	case reg.PeekCb != nil:
		val = reg.PeekCb(val)
	case reg.ReadCb != nil:
		val = reg.ReadCb(val)
	}
	return val | reg.OrMask
}

// Unused returns a register that reads as all ones and ignores writes, for
// addresses not connected to anything.
func Unused(name string) *Reg8 {
	return &Reg8{Name: name, OrMask: 0xFF, Flags: ReadOnlyFlag}
}
