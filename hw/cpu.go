package hw

import (
	"dotboy/emu/event"
	"dotboy/emu/log"
	"dotboy/hw/hwdefs"
	"dotboy/hw/hwio"
	"dotboy/hw/snapshot"
)

// Pseudo opcodes, reported to state observers in place of a fetched opcode.
const (
	opCancelled uint16 = 0x0800 // interrupt cancelled during dispatch
	opIRQ       uint16 = 0x0900 // + interrupt source index
	opHalting   uint16 = 0xFFFF
)

// CPU is the SM83 core. It is driven by Tick, once per clock tick, and runs
// one instruction every time the cost of the previous one has elapsed.
type CPU struct {
	Regs
	bus *Bus

	IF hwio.Reg8 `hwio:"ormask=0xE0"`

	IME     bool
	halted  bool
	haltBug bool
	eiDelay int8 // -1: idle, 1: EI just executed, 0: set IME before next fetch

	wait   int    // ticks left before the next instruction
	Cycles uint64 // ticks since power-on

	// State receives the CPU state before each instruction executes.
	State event.Hub[snapshot.CPU]
}

func NewCPU(bus *Bus) *CPU {
	c := &CPU{bus: bus}
	hwio.MustInitRegs(c)
	bus.MapReg8(int(IO), IF&0x7F, &c.IF)
	c.Reset()
	return c
}

// Reset puts the CPU in its power-on state, the one the boot ROM starts from.
func (c *CPU) Reset() {
	c.Regs = Regs{}
	c.IME = false
	c.halted = false
	c.haltBug = false
	c.eiDelay = -1
	c.wait = 0
	c.Cycles = 0
}

// SkipBoot sets the registers to the values the boot ROM leaves behind.
func (c *CPU) SkipBoot() {
	c.A, c.F = 0x01, 0xB0
	c.SetBC(0x0013)
	c.SetDE(0x00D8)
	c.SetHL(0x014D)
	c.SP = 0xFFFE
	c.PC = 0x0100
}

func (c *CPU) Halted() bool { return c.halted }

// Tick advances the CPU by one clock tick.
func (c *CPU) Tick() {
	c.Cycles++
	if c.wait > 0 {
		c.wait--
		return
	}
	c.wait = 4*c.step() - 1
}

// step fetches and executes one instruction (or services an interrupt) and
// returns its cost in M-cycles.
func (c *CPU) step() int {
	c.resolveEI()

	addr := c.PC
	op := c.fetchOpcode()

	if c.State.Active() {
		c.State.Publish(c.snapshot(addr, op))
	}

	switch {
	case op == opHalting:
		c.updateHalt(false)
		return 0
	case op == opCancelled:
		log.ModCPU.DebugZ("interrupt cancelled").Hex16("pc", addr).End()
		c.IME = false
		c.PC = 0x0000
		return 5
	case op >= opIRQ && op < opIRQ+hwdefs.NumIRQSources:
		c.serviceIRQ(hwdefs.IRQSource(1 << (op - opIRQ)))
		return 5
	}

	e := opcodeFor(op)
	if e.exec == nil {
		log.ModCPU.PanicZ("unknown opcode").
			Hex16("op", op).
			Hex16("pc", addr).
			End()
	}
	if e.exec(c) {
		return int(e.mTaken)
	}
	return int(e.m)
}

// Snapshot returns the CPU state, with the opcode found at PC.
func (c *CPU) Snapshot() snapshot.CPU {
	op := uint16(c.bus.Peek(c.PC))
	if op == 0xCB {
		op = 0xCB00 | uint16(c.bus.Peek(c.PC+1))
	}
	return c.snapshot(c.PC, op)
}

func (c *CPU) snapshot(addr, op uint16) snapshot.CPU {
	return snapshot.CPU{
		Addr:   addr,
		Opcode: op,
		A:      c.A,
		F:      uint8(c.F),
		B:      c.B,
		C:      c.C,
		D:      c.D,
		E:      c.E,
		H:      c.H,
		L:      c.L,
		SP:     c.SP,
		PC:     c.PC,
		Halt:   c.halted,
		IME:    c.IME,
		Cycles: c.Cycles,
	}
}

func (c *CPU) resolveEI() {
	switch c.eiDelay {
	case 1:
		c.eiDelay = 0
	case 0:
		c.eiDelay = -1
		c.IME = true
	}
}

// pending returns the interrupt sources both enabled and requested.
func (c *CPU) pending() uint8 {
	return c.bus.LoadDirect(IEA) & c.bus.LoadDirect(IF) & 0x1F
}

// irqOpcode returns the pseudo opcode of the highest priority interrupt to
// service, if any. With cancel, the lack of a pending interrupt gives the
// cancelled pseudo opcode.
func (c *CPU) irqOpcode(cancel bool) (uint16, bool) {
	if !c.IME {
		return 0, false
	}
	p := c.pending()
	for i := range uint16(hwdefs.NumIRQSources) {
		if p&(1<<i) != 0 {
			return opIRQ + i, true
		}
	}
	if cancel {
		return opCancelled, true
	}
	return 0, false
}

func (c *CPU) fetchOpcode() uint16 {
	if op, ok := c.irqOpcode(false); ok {
		// PC is pushed one byte at a time: the high byte store can hit IE
		// and change which interrupt gets serviced.
		c.SP--
		c.bus.Store(c.SP, uint8(c.PC>>8))
		op, _ = c.irqOpcode(true)
		c.SP--
		c.bus.Store(c.SP, uint8(c.PC))
		return op
	}
	if c.halted {
		return opHalting
	}
	op := uint16(c.fetch8())
	if op == 0xCB {
		op = op<<8 | uint16(c.fetch8())
	}
	return op
}

func (c *CPU) serviceIRQ(src hwdefs.IRQSource) {
	log.ModCPU.DebugZ("servicing interrupt").
		Stringer("src", src).
		Hex16("pc", c.PC).
		End()

	c.IME = false
	c.halted = false
	c.bus.StoreDirect(IF, c.bus.LoadDirect(IF)&^uint8(src))
	c.PC = src.Vector()
}

// updateHalt puts the CPU in (or out of) halt mode, depending on whether an
// interrupt is pending, regardless of IME. Executing HALT while IME is clear
// and an interrupt is already pending triggers the halt bug.
func (c *CPU) updateHalt(initial bool) {
	c.halted = c.pending() == 0
	if initial && !c.IME && !c.halted {
		log.ModCPU.DebugZ("halt bug").Hex16("pc", c.PC).End()
		c.haltBug = true
	}
}

func (c *CPU) fetch8() uint8 {
	addr := c.PC
	c.PC++
	if c.haltBug {
		c.PC--
		c.haltBug = false
	}
	return c.bus.Load(addr)
}

func (c *CPU) fetch16() uint16 {
	addr := c.PC
	c.PC += 2
	if c.haltBug {
		c.PC--
		c.haltBug = false
	}
	return c.bus.Load16(addr)
}

func (c *CPU) push16(v uint16) {
	c.SP--
	c.bus.Store(c.SP, uint8(v>>8))
	c.SP--
	c.bus.Store(c.SP, uint8(v))
}

func (c *CPU) pop16() uint16 {
	lo := c.bus.Load(c.SP)
	c.SP++
	hi := c.bus.Load(c.SP)
	c.SP++
	return uint16(hi)<<8 | uint16(lo)
}
