package apu

import "dotboy/hw/hwio"

type Channel uint8

const (
	Square1 Channel = iota
	Square2
	Wave
	Noise
)

func (c Channel) String() string {
	switch c {
	case Square1:
		return "square1"
	case Square2:
		return "square2"
	case Wave:
		return "wave"
	case Noise:
		return "noise"
	}
	return "unknown"
}

// A Sample is a stereo sample: left in the upper 16 bits, right in the lower
// 16 bits, both signed.
type Sample uint32

func NewSample(left, right int16) Sample {
	return Sample(uint32(uint16(left))<<16 | uint32(uint16(right)))
}

func (s Sample) Left() int16  { return int16(s >> 16) }
func (s Sample) Right() int16 { return int16(s) }

// Bus is where the sound registers get mapped.
type Bus interface {
	MapReg8(region int, off uint16, reg *hwio.Reg8)
}

// IO region offsets of the sound registers.
const (
	nr10 = 0x10
	nr11 = 0x11
	nr12 = 0x12
	nr13 = 0x13
	nr14 = 0x14
	nr21 = 0x16
	nr22 = 0x17
	nr23 = 0x18
	nr24 = 0x19
	nr30 = 0x1A
	nr31 = 0x1B
	nr32 = 0x1C
	nr33 = 0x1D
	nr34 = 0x1E
	nr41 = 0x20
	nr42 = 0x21
	nr43 = 0x22
	nr44 = 0x23
	nr50 = 0x24
	nr51 = 0x25
	nr52 = 0x26

	waveRAM = 0x30
)
