package hw

import "fmt"

// An opcodeEntry describes one instruction. exec reports whether a
// conditional branch was taken, in which case the instruction costs mTaken
// M-cycles instead of m.
type opcodeEntry struct {
	name   string
	m      uint8
	mTaken uint8
	exec   func(c *CPU) bool
}

var (
	opcodes   [0x100]opcodeEntry
	cbOpcodes [0x100]opcodeEntry
)

func opcodeFor(op uint16) *opcodeEntry {
	if op&0xFF00 == 0xCB00 {
		return &cbOpcodes[op&0xFF]
	}
	return &opcodes[op&0xFF]
}

// OpcodeName returns the mnemonic of an opcode as published in CPU states,
// including pseudo opcodes.
func OpcodeName(op uint16) string {
	switch {
	case op == opHalting:
		return "[HALTING]"
	case op == opCancelled:
		return "<CANCELLED>"
	case op >= opIRQ && op < opIRQ+5:
		return "<" + irqNames[op-opIRQ] + ">"
	case op > 0xFF && op&0xFF00 != 0xCB00:
		return fmt.Sprintf("??? %04X", op)
	}
	if e := opcodeFor(op); e.exec != nil {
		return e.name
	}
	return fmt.Sprintf("??? %02X", op)
}

var irqNames = [...]string{"VBLANK", "STAT", "TIMER", "SERIAL", "JOYPAD"}

// Jump conditions, indexed by bits 3-4 of conditional opcodes.
var conds = [4]struct {
	name string
	fn   func(c *CPU) bool
}{
	{"NZ", func(c *CPU) bool { return !c.F.Z() }},
	{"Z", func(c *CPU) bool { return c.F.Z() }},
	{"NC", func(c *CPU) bool { return !c.F.C() }},
	{"C", func(c *CPU) bool { return c.F.C() }},
}

// op returns an entry for an instruction that never branches.
func op(name string, m uint8, fn func(c *CPU)) opcodeEntry {
	return opcodeEntry{
		name:   name,
		m:      m,
		mTaken: m,
		exec: func(c *CPU) bool {
			fn(c)
			return false
		},
	}
}

// branch returns an entry for a conditional instruction.
func branch(name string, m, mTaken uint8, fn func(c *CPU) bool) opcodeEntry {
	return opcodeEntry{name: name, m: m, mTaken: mTaken, exec: fn}
}

// mcost returns m, plus extra when o is (HL).
func mcost(o operand, m, extra uint8) uint8 {
	if o == opHLm {
		return m + extra
	}
	return m
}

func init() {
	initLoads()
	initArith()
	initControl()
	initCB()
}

func initLoads() {
	// LD r,r' and HALT in place of LD (HL),(HL).
	for i := 0x40; i < 0x80; i++ {
		dst, src := operand(i>>3&7), operand(i&7)
		if i == 0x76 {
			opcodes[i] = op("HALT", 1, func(c *CPU) { c.updateHalt(true) })
			continue
		}
		m := uint8(1)
		if dst == opHLm || src == opHLm {
			m = 2
		}
		opcodes[i] = op(fmt.Sprintf("LD %s,%s", dst, src), m, func(c *CPU) { c.set(dst, c.get(src)) })
	}

	// LD r,d8
	for r := opB; r <= opA; r++ {
		opcodes[0x06|uint8(r)<<3] = op(fmt.Sprintf("LD %s,d8", r), mcost(r, 2, 1), func(c *CPU) {
			c.set(r, c.fetch8())
		})
	}

	// LD rr,d16
	for rr := rBC; rr <= rSP; rr++ {
		opcodes[0x01|uint8(rr)<<4] = op(fmt.Sprintf("LD %s,d16", rr), 3, func(c *CPU) {
			c.set16(rr, c.fetch16())
		})
	}

	// Indirect loads of A.
	opcodes[0x02] = op("LD (BC),A", 2, func(c *CPU) { c.bus.Store(c.BC(), c.A) })
	opcodes[0x12] = op("LD (DE),A", 2, func(c *CPU) { c.bus.Store(c.DE(), c.A) })
	opcodes[0x22] = op("LD (HL+),A", 2, func(c *CPU) {
		hl := c.HL()
		c.bus.Store(hl, c.A)
		c.SetHL(hl + 1)
	})
	opcodes[0x32] = op("LD (HL-),A", 2, func(c *CPU) {
		hl := c.HL()
		c.bus.Store(hl, c.A)
		c.SetHL(hl - 1)
	})
	opcodes[0x0A] = op("LD A,(BC)", 2, func(c *CPU) { c.A = c.bus.Load(c.BC()) })
	opcodes[0x1A] = op("LD A,(DE)", 2, func(c *CPU) { c.A = c.bus.Load(c.DE()) })
	opcodes[0x2A] = op("LD A,(HL+)", 2, func(c *CPU) {
		hl := c.HL()
		c.A = c.bus.Load(hl)
		c.SetHL(hl + 1)
	})
	opcodes[0x3A] = op("LD A,(HL-)", 2, func(c *CPU) {
		hl := c.HL()
		c.A = c.bus.Load(hl)
		c.SetHL(hl - 1)
	})

	opcodes[0x08] = op("LD (a16),SP", 5, func(c *CPU) { c.bus.Store16(c.fetch16(), c.SP) })
	opcodes[0xE0] = op("LDH (a8),A", 3, func(c *CPU) { c.bus.Store(0xFF00|uint16(c.fetch8()), c.A) })
	opcodes[0xF0] = op("LDH A,(a8)", 3, func(c *CPU) { c.A = c.bus.Load(0xFF00 | uint16(c.fetch8())) })
	opcodes[0xE2] = op("LD (C),A", 2, func(c *CPU) { c.bus.Store(0xFF00|uint16(c.C), c.A) })
	opcodes[0xF2] = op("LD A,(C)", 2, func(c *CPU) { c.A = c.bus.Load(0xFF00 | uint16(c.C)) })
	opcodes[0xEA] = op("LD (a16),A", 4, func(c *CPU) { c.bus.Store(c.fetch16(), c.A) })
	opcodes[0xFA] = op("LD A,(a16)", 4, func(c *CPU) { c.A = c.bus.Load(c.fetch16()) })
	opcodes[0xF8] = op("LD HL,SP+s8", 3, func(c *CPU) { c.SetHL(addSP(c, c.fetch8())) })
	opcodes[0xF9] = op("LD SP,HL", 2, func(c *CPU) { c.SP = c.HL() })

	// PUSH and POP, where rSP encodes AF.
	for i := range reg16(4) {
		rr := i
		if rr == rSP {
			rr = rAF
		}
		opcodes[0xC1|uint8(i)<<4] = op("POP "+rr.String(), 3, func(c *CPU) { c.set16(rr, c.pop16()) })
		opcodes[0xC5|uint8(i)<<4] = op("PUSH "+rr.String(), 4, func(c *CPU) { c.push16(c.get16(rr)) })
	}
}

func initArith() {
	// ALU A,r
	for i := 0x80; i < 0xC0; i++ {
		alu, src := aluOps[i>>3&7], operand(i&7)
		opcodes[i] = op(fmt.Sprintf("%s A,%s", alu.name, src), mcost(src, 1, 1), func(c *CPU) {
			alu.fn(c, c.get(src))
		})
	}

	// ALU A,d8
	for i, alu := range aluOps {
		opcodes[0xC6|uint8(i)<<3] = op(alu.name+" A,d8", 2, func(c *CPU) {
			alu.fn(c, c.fetch8())
		})
	}

	// INC r, DEC r
	for r := opB; r <= opA; r++ {
		opcodes[0x04|uint8(r)<<3] = op("INC "+r.String(), mcost(r, 1, 2), func(c *CPU) { inc8(c, r) })
		opcodes[0x05|uint8(r)<<3] = op("DEC "+r.String(), mcost(r, 1, 2), func(c *CPU) { dec8(c, r) })
	}

	// 16-bit INC, DEC, ADD HL
	for rr := rBC; rr <= rSP; rr++ {
		opcodes[0x03|uint8(rr)<<4] = op("INC "+rr.String(), 2, func(c *CPU) { c.set16(rr, c.get16(rr)+1) })
		opcodes[0x0B|uint8(rr)<<4] = op("DEC "+rr.String(), 2, func(c *CPU) { c.set16(rr, c.get16(rr)-1) })
		opcodes[0x09|uint8(rr)<<4] = op("ADD HL,"+rr.String(), 2, func(c *CPU) { addHL(c, c.get16(rr)) })
	}
	opcodes[0xE8] = op("ADD SP,s8", 4, func(c *CPU) { c.SP = addSP(c, c.fetch8()) })

	opcodes[0x07] = op("RLCA", 1, func(c *CPU) { shiftA(c, rlc) })
	opcodes[0x0F] = op("RRCA", 1, func(c *CPU) { shiftA(c, rrc) })
	opcodes[0x17] = op("RLA", 1, func(c *CPU) { shiftA(c, rl) })
	opcodes[0x1F] = op("RRA", 1, func(c *CPU) { shiftA(c, rr) })
	opcodes[0x27] = op("DAA", 1, daa)
	opcodes[0x2F] = op("CPL", 1, cpl)
	opcodes[0x37] = op("SCF", 1, scf)
	opcodes[0x3F] = op("CCF", 1, ccf)
}

func initControl() {
	opcodes[0x00] = op("NOP", 1, func(*CPU) {})
	opcodes[0x10] = op("STOP", 1, func(*CPU) {})

	opcodes[0xF3] = op("DI", 1, func(c *CPU) {
		c.eiDelay = -1
		c.IME = false
	})
	opcodes[0xFB] = op("EI", 1, func(c *CPU) { c.eiDelay = 1 })

	// Relative jumps.
	opcodes[0x18] = op("JR s8", 3, func(c *CPU) {
		e := int8(c.fetch8())
		c.PC += uint16(e)
	})
	for i, cc := range conds {
		opcodes[0x20|uint8(i)<<3] = branch("JR "+cc.name+",s8", 2, 3, func(c *CPU) bool {
			e := int8(c.fetch8())
			if !cc.fn(c) {
				return false
			}
			c.PC += uint16(e)
			return true
		})
	}

	// Absolute jumps.
	opcodes[0xC3] = op("JP a16", 4, func(c *CPU) { c.PC = c.fetch16() })
	opcodes[0xE9] = op("JP HL", 1, func(c *CPU) { c.PC = c.HL() })
	for i, cc := range conds {
		opcodes[0xC2|uint8(i)<<3] = branch("JP "+cc.name+",a16", 3, 4, func(c *CPU) bool {
			addr := c.fetch16()
			if !cc.fn(c) {
				return false
			}
			c.PC = addr
			return true
		})
	}

	// Calls and returns.
	opcodes[0xCD] = op("CALL a16", 6, func(c *CPU) {
		addr := c.fetch16()
		c.push16(c.PC)
		c.PC = addr
	})
	opcodes[0xC9] = op("RET", 4, func(c *CPU) { c.PC = c.pop16() })
	opcodes[0xD9] = op("RETI", 4, func(c *CPU) {
		c.PC = c.pop16()
		c.IME = true
	})
	for i, cc := range conds {
		opcodes[0xC4|uint8(i)<<3] = branch("CALL "+cc.name+",a16", 3, 6, func(c *CPU) bool {
			addr := c.fetch16()
			if !cc.fn(c) {
				return false
			}
			c.push16(c.PC)
			c.PC = addr
			return true
		})
		opcodes[0xC0|uint8(i)<<3] = branch("RET "+cc.name, 2, 5, func(c *CPU) bool {
			if !cc.fn(c) {
				return false
			}
			c.PC = c.pop16()
			return true
		})
	}

	// Restarts.
	for i := range uint16(8) {
		vec := i * 8
		opcodes[0xC7|uint8(vec)] = op(fmt.Sprintf("RST %02XH", vec), 4, func(c *CPU) {
			c.push16(c.PC)
			c.PC = vec
		})
	}
}

func initCB() {
	for i := range 0x100 {
		o, n := operand(i&7), uint8(i>>3&7)
		switch i >> 6 {
		case 0:
			sh := shiftOps[n]
			cbOpcodes[i] = op(fmt.Sprintf("%s %s", sh.name, o), mcost(o, 2, 2), func(c *CPU) { shift(c, o, sh.fn) })
		case 1:
			cbOpcodes[i] = op(fmt.Sprintf("BIT %d,%s", n, o), mcost(o, 2, 1), func(c *CPU) { bit(c, n, o) })
		case 2:
			cbOpcodes[i] = op(fmt.Sprintf("RES %d,%s", n, o), mcost(o, 2, 2), func(c *CPU) { resN(c, n, o) })
		case 3:
			cbOpcodes[i] = op(fmt.Sprintf("SET %d,%s", n, o), mcost(o, 2, 2), func(c *CPU) { setN(c, n, o) })
		}
	}
}
