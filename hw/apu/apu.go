// Package apu implements the audio processing unit: two square channels (the
// first with a frequency sweep), a wave channel and a noise channel.
package apu

import (
	"dotboy/emu/event"
	"dotboy/emu/log"
	"dotboy/hw/hwio"
)

// TicksPerSample is the number of clock ticks between 2 output samples.
const TicksPerSample = 4

type APU struct {
	regs []byte // IO region

	powered bool
	clock   int
	seq     frameSequencer

	ch1 square
	ch2 square
	ch3 wave
	ch4 noise

	NR10 hwio.Reg8 `hwio:"ormask=0x80,wcb"`
	NR11 hwio.Reg8 `hwio:"ormask=0x3F,wcb"`
	NR12 hwio.Reg8 `hwio:"wcb"`
	NR13 hwio.Reg8 `hwio:"ormask=0xFF,wcb"`
	NR14 hwio.Reg8 `hwio:"ormask=0xBF,wcb"`
	NR21 hwio.Reg8 `hwio:"ormask=0x3F,wcb"`
	NR22 hwio.Reg8 `hwio:"wcb"`
	NR23 hwio.Reg8 `hwio:"ormask=0xFF,wcb"`
	NR24 hwio.Reg8 `hwio:"ormask=0xBF,wcb"`
	NR30 hwio.Reg8 `hwio:"ormask=0x7F,wcb"`
	NR31 hwio.Reg8 `hwio:"ormask=0xFF,wcb"`
	NR32 hwio.Reg8 `hwio:"ormask=0x9F,wcb"`
	NR33 hwio.Reg8 `hwio:"ormask=0xFF,wcb"`
	NR34 hwio.Reg8 `hwio:"ormask=0xBF,wcb"`
	NR41 hwio.Reg8 `hwio:"ormask=0xFF,wcb"`
	NR42 hwio.Reg8 `hwio:"wcb"`
	NR43 hwio.Reg8 `hwio:"wcb"`
	NR44 hwio.Reg8 `hwio:"ormask=0xBF,wcb"`
	NR50 hwio.Reg8 `hwio:"wcb"`
	NR51 hwio.Reg8 `hwio:"wcb"`
	NR52 hwio.Reg8 `hwio:"romask=0x0F,ormask=0x70,rcb,wcb"`

	// Sound receives a stereo sample every 4 ticks while powered on.
	Sound event.Hub[Sample]
}

// New creates the APU and maps its registers in the given bus region, whose
// backing memory is io.
func New(bus Bus, region int, io []byte) *APU {
	a := &APU{
		regs: io,
		ch1:  newSquare(io, nr10, true),
		ch2:  newSquare(io, nr21-1, false),
		ch3:  newWave(io),
		ch4:  newNoise(io),
	}
	hwio.MustInitRegs(a)

	for _, r := range []struct {
		off uint16
		reg *hwio.Reg8
	}{
		{nr10, &a.NR10}, {nr11, &a.NR11}, {nr12, &a.NR12}, {nr13, &a.NR13}, {nr14, &a.NR14},
		{nr21, &a.NR21}, {nr22, &a.NR22}, {nr23, &a.NR23}, {nr24, &a.NR24},
		{nr30, &a.NR30}, {nr31, &a.NR31}, {nr32, &a.NR32}, {nr33, &a.NR33}, {nr34, &a.NR34},
		{nr41, &a.NR41}, {nr42, &a.NR42}, {nr43, &a.NR43}, {nr44, &a.NR44},
		{nr50, &a.NR50}, {nr51, &a.NR51}, {nr52, &a.NR52},
	} {
		bus.MapReg8(region, r.off, r.reg)
	}
	return a
}

func (a *APU) Reset() {
	a.powered = false
	a.clock = 0
	a.seq.reset()
	a.ch1.reset()
	a.ch2.reset()
	a.ch3.reset()
	a.ch4.reset()
	clear(a.regs[nr10 : nr52+1])
}

func (a *APU) Powered() bool { return a.powered }

// Active reports whether a channel is currently playing.
func (a *APU) Active(ch Channel) bool {
	switch ch {
	case Square1:
		return a.ch1.active
	case Square2:
		return a.ch2.active
	case Wave:
		return a.ch3.active
	case Noise:
		return a.ch4.active
	}
	return false
}

func (a *APU) status() uint8 {
	var st uint8
	for ch := range Noise + 1 {
		if a.Active(ch) {
			st |= 1 << ch
		}
	}
	return st
}

// powerGate restores the previous register value and returns false if the
// APU is powered off, since registers are then read-only.
func (a *APU) powerGate(off uint16, old uint8) bool {
	if !a.powered {
		a.regs[off] = old
	}
	return a.powered
}

// lengthOnly keeps the length bits of NRx1 when powered off.
func (a *APU) lengthOnly(off uint16, old, val uint8) {
	if !a.powered {
		a.regs[off] = old&0xC0 | val&0x3F
	}
}

// control handles a write to NRx4: length enable and trigger.
func (a *APU) control(old, val uint8, lc *lengthCounter, trigger, tickLength func()) {
	extra := a.seq.lengthClocked()
	if extra && old&0x40 == 0 && val&0x40 != 0 && !lc.expired() {
		tickLength()
	}
	if val&0x80 != 0 {
		trigger()
		if extra && lc.unfrozen && val&0x40 != 0 {
			tickLength()
		}
	}
}

func (a *APU) WriteNR10(old, val uint8) {
	if a.powerGate(nr10, old) && val&0x08 == 0 && a.ch1.sweep.directionCleared() {
		a.ch1.active = false
	}
}

func (a *APU) WriteNR11(old, val uint8) {
	a.lengthOnly(nr11, old, val)
	a.ch1.loadLength()
}

func (a *APU) WriteNR12(old, val uint8) {
	if a.powerGate(nr12, old) {
		a.ch1.setDAC(val)
	}
}

func (a *APU) WriteNR13(old, _ uint8) { a.powerGate(nr13, old) }

func (a *APU) WriteNR14(old, val uint8) {
	if a.powerGate(nr14, old) {
		a.control(old, val, &a.ch1.length, a.ch1.trigger, a.ch1.tickLength)
	}
}

func (a *APU) WriteNR21(old, val uint8) {
	a.lengthOnly(nr21, old, val)
	a.ch2.loadLength()
}

func (a *APU) WriteNR22(old, val uint8) {
	if a.powerGate(nr22, old) {
		a.ch2.setDAC(val)
	}
}

func (a *APU) WriteNR23(old, _ uint8) { a.powerGate(nr23, old) }

func (a *APU) WriteNR24(old, val uint8) {
	if a.powerGate(nr24, old) {
		a.control(old, val, &a.ch2.length, a.ch2.trigger, a.ch2.tickLength)
	}
}

func (a *APU) WriteNR30(old, val uint8) {
	if a.powerGate(nr30, old) {
		a.ch3.setDAC(val)
	}
}

func (a *APU) WriteNR31(_, _ uint8) { a.ch3.loadLength() }

func (a *APU) WriteNR32(old, _ uint8) { a.powerGate(nr32, old) }
func (a *APU) WriteNR33(old, _ uint8) { a.powerGate(nr33, old) }

func (a *APU) WriteNR34(old, val uint8) {
	if a.powerGate(nr34, old) {
		a.control(old, val, &a.ch3.length, a.ch3.trigger, a.ch3.tickLength)
	}
}

func (a *APU) WriteNR41(_, _ uint8) { a.ch4.loadLength() }

func (a *APU) WriteNR42(old, val uint8) {
	if a.powerGate(nr42, old) {
		a.ch4.setDAC(val)
	}
}

func (a *APU) WriteNR43(old, _ uint8) { a.powerGate(nr43, old) }

func (a *APU) WriteNR44(old, val uint8) {
	if a.powerGate(nr44, old) {
		a.control(old, val, &a.ch4.length, a.ch4.trigger, a.ch4.tickLength)
	}
}

func (a *APU) WriteNR50(old, _ uint8) { a.powerGate(nr50, old) }
func (a *APU) WriteNR51(old, _ uint8) { a.powerGate(nr51, old) }

func (a *APU) ReadNR52(val uint8) uint8 {
	return val&0x80 | a.status()
}

func (a *APU) WriteNR52(old, val uint8) {
	was := a.powered
	a.powered = val&0x80 != 0
	switch {
	case was && !a.powered:
		log.ModSound.DebugZ("power off").End()
		a.ch1.active, a.ch1.dac = false, false
		a.ch2.active, a.ch2.dac = false, false
		a.ch3.active, a.ch3.dac = false, false
		a.ch4.active, a.ch4.dac = false, false
		a.ch3.powerOff()
		clear(a.regs[nr10:nr52])
	case !was && a.powered:
		log.ModSound.DebugZ("power on").End()
		a.seq.reset()
	}
}

// DivAPU is the 512 Hz event, from the falling edges of the timer counter
// bit 12.
func (a *APU) DivAPU() {
	ev := a.seq.tick()
	if ev&clockLength != 0 {
		a.ch1.tickLength()
		a.ch2.tickLength()
		a.ch3.tickLength()
		a.ch4.tickLength()
	}
	if ev&clockSweep != 0 {
		a.ch1.tickSweep()
	}
	if ev&clockEnvelope != 0 {
		a.ch1.tickEnvelope()
		a.ch2.tickEnvelope()
		a.ch4.tickEnvelope()
	}
}

// Tick advances the APU by one clock tick.
func (a *APU) Tick() {
	a.clock++
	if a.clock < TicksPerSample {
		return
	}
	a.clock = 0
	if !a.powered {
		return
	}

	out := [4]uint8{
		a.ch1.sample(),
		a.ch2.sample(),
		a.ch3.sample(),
		a.ch4.sample(),
	}
	if a.Sound.Active() {
		a.Sound.Publish(mix(out, a.regs[nr50], a.regs[nr51]))
	}
}
