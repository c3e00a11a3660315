package hw

import (
	"dotboy/emu/log"
	"dotboy/hw/hwdefs"
	"dotboy/hw/hwio"
	"dotboy/hw/snapshot"
)

// TIMA overflow sequence.
const (
	timaCounting uint8 = iota
	timaOverflow       // TIMA reads 0, reload pending
	timaReloaded       // TIMA was just reloaded from TMA
)

// Timer is the DIV/TIMA unit. DIV is the upper byte of a 16-bit counter
// incremented every tick; TIMA increments on the falling edges of the
// counter bit selected by TAC.
type Timer struct {
	bus *Bus

	div   uint16
	phase uint8
	ticks int // ticks spent in the current overflow phase

	DIV  hwio.Reg8 `hwio:"wcb"`
	TIMA hwio.Reg8 `hwio:"wcb"`
	TMA  hwio.Reg8 `hwio:"wcb"`
	TAC  hwio.Reg8 `hwio:"ormask=0xF8,wcb"`

	// DivAPU is called on each falling edge of the counter bit 12.
	DivAPU func()
}

func NewTimer(bus *Bus) *Timer {
	t := &Timer{bus: bus}
	hwio.MustInitRegs(t)
	bus.MapReg8(int(IO), DIV&0x7F, &t.DIV)
	bus.MapReg8(int(IO), TIMA&0x7F, &t.TIMA)
	bus.MapReg8(int(IO), TMA&0x7F, &t.TMA)
	bus.MapReg8(int(IO), TAC&0x7F, &t.TAC)
	return t
}

func (t *Timer) Reset() {
	t.setDiv(0)
	t.phase = timaCounting
	t.ticks = 0
	t.bus.StoreDirect(TIMA, 0)
	t.bus.StoreDirect(TMA, 0)
	t.bus.StoreDirect(TAC, 0)
}

// SkipBoot sets the counter to the value the boot ROM leaves behind.
func (t *Timer) SkipBoot() {
	t.setDiv(0xABCC)
}

// timaBits maps TAC clock select to the counter bit driving TIMA.
var timaBits = [4]uint8{9, 3, 5, 7}

// muxOut returns the output of the TIMA clock multiplexer, given TAC and the
// internal counter.
func muxOut(tac uint8, div uint16) bool {
	return tac&0x04 != 0 && nthbit16(div, timaBits[tac&3]) != 0
}

func (t *Timer) setDiv(div uint16) {
	t.div = div
	t.bus.StoreDirect(DIV, uint8(div>>8))
}

// Tick advances the timer by one clock tick.
func (t *Timer) Tick() {
	switch t.phase {
	case timaOverflow:
		t.ticks++
		if t.ticks == 4 {
			t.ticks = 0
			t.phase = timaReloaded
			t.bus.RequestIRQ(hwdefs.Timer)
			t.bus.StoreDirect(TIMA, t.bus.LoadDirect(TMA))
		}
	case timaReloaded:
		t.ticks++
		if t.ticks == 4 {
			t.ticks = 0
			t.phase = timaCounting
		}
	}

	old := t.div
	t.setDiv(old + 1)
	t.fallingEdges(old, t.div)
}

func (t *Timer) fallingEdges(old, cur uint16) {
	edges := old &^ cur
	if edges&(1<<12) != 0 && t.DivAPU != nil {
		t.DivAPU()
	}

	tac := t.bus.LoadDirect(TAC)
	if tac&0x04 != 0 && edges&(1<<timaBits[tac&3]) != 0 {
		t.incTIMA()
	}
}

func (t *Timer) incTIMA() {
	tima := t.bus.LoadDirect(TIMA) + 1
	if tima == 0 {
		log.ModTimer.DebugZ("TIMA overflow").Hex16("div", t.div).End()
		t.phase = timaOverflow
		t.ticks = 0
	}
	t.bus.StoreDirect(TIMA, tima)
}

// Writing DIV resets the whole counter.
func (t *Timer) WriteDIV(_, _ uint8) {
	old := t.div
	t.setDiv(0)
	t.fallingEdges(old, 0)
}

func (t *Timer) WriteTIMA(old, _ uint8) {
	switch t.phase {
	case timaOverflow:
		// The pending reload is cancelled.
		t.phase = timaCounting
		t.ticks = 0
	case timaReloaded:
		t.bus.StoreDirect(TIMA, old)
	}
}

func (t *Timer) WriteTMA(_, val uint8) {
	if t.phase == timaReloaded {
		t.bus.StoreDirect(TIMA, val)
	}
}

// A TAC write that turns the multiplexer output from 1 to 0 is seen as a
// falling edge.
func (t *Timer) WriteTAC(old, val uint8) {
	if muxOut(old, t.div) && !muxOut(val, t.div) {
		t.incTIMA()
	}
}

func (t *Timer) Snapshot() snapshot.Timer {
	return snapshot.Timer{
		DIV:   t.div,
		TIMA:  t.bus.LoadDirect(TIMA),
		TMA:   t.bus.LoadDirect(TMA),
		TAC:   t.bus.LoadDirect(TAC),
		Phase: t.phase,
	}
}
