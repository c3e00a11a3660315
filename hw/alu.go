package hw

// operand is an 8-bit operand, encoded as in opcodes: B, C, D, E, H, L,
// (HL) and A. The ALU operations below are written once against an operand
// and apply equally to registers and to the byte at HL.
type operand uint8

const (
	opB operand = iota
	opC
	opD
	opE
	opH
	opL
	opHLm
	opA
)

var operandNames = [...]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}

func (o operand) String() string { return operandNames[o] }

func (c *CPU) get(o operand) uint8 {
	switch o {
	case opB:
		return c.B
	case opC:
		return c.C
	case opD:
		return c.D
	case opE:
		return c.E
	case opH:
		return c.H
	case opL:
		return c.L
	case opHLm:
		return c.bus.Load(c.HL())
	}
	return c.A
}

func (c *CPU) set(o operand, v uint8) {
	switch o {
	case opB:
		c.B = v
	case opC:
		c.C = v
	case opD:
		c.D = v
	case opE:
		c.E = v
	case opH:
		c.H = v
	case opL:
		c.L = v
	case opHLm:
		c.bus.Store(c.HL(), v)
	default:
		c.A = v
	}
}

// 8-bit arithmetic on A.

func add8(c *CPU, v uint8) { adc(c, v, 0) }
func adc8(c *CPU, v uint8) { adc(c, v, c.F.carry()) }

func adc(c *CPU, v, carry uint8) {
	a := c.A
	res := uint16(a) + uint16(v) + uint16(carry)
	c.A = uint8(res)
	c.F.setZNHC(c.A == 0, false, (a&0xF)+(v&0xF)+carry > 0xF, res > 0xFF)
}

func sub8(c *CPU, v uint8) { c.A = sbc(c, v, 0) }
func sbc8(c *CPU, v uint8) { c.A = sbc(c, v, c.F.carry()) }
func cp8(c *CPU, v uint8)  { sbc(c, v, 0) }

func sbc(c *CPU, v, carry uint8) uint8 {
	a := c.A
	res := int(a) - int(v) - int(carry)
	c.F.setZNHC(uint8(res) == 0, true, int(a&0xF)-int(v&0xF)-int(carry) < 0, res < 0)
	return uint8(res)
}

func and8(c *CPU, v uint8) {
	c.A &= v
	c.F.setZNHC(c.A == 0, false, true, false)
}

func xor8(c *CPU, v uint8) {
	c.A ^= v
	c.F.setZNHC(c.A == 0, false, false, false)
}

func or8(c *CPU, v uint8) {
	c.A |= v
	c.F.setZNHC(c.A == 0, false, false, false)
}

// aluOps are indexed by bits 3-5 of the 0x80-0xBF and 0xC6-0xFE opcodes.
var aluOps = [8]struct {
	name string
	fn   func(*CPU, uint8)
}{
	{"ADD", add8},
	{"ADC", adc8},
	{"SUB", sub8},
	{"SBC", sbc8},
	{"AND", and8},
	{"XOR", xor8},
	{"OR", or8},
	{"CP", cp8},
}

func inc8(c *CPU, o operand) {
	old := c.get(o)
	v := old + 1
	c.set(o, v)
	c.F.set(FlagZ, v == 0)
	c.F.set(FlagN, false)
	c.F.set(FlagH, old&0xF == 0xF)
}

func dec8(c *CPU, o operand) {
	old := c.get(o)
	v := old - 1
	c.set(o, v)
	c.F.set(FlagZ, v == 0)
	c.F.set(FlagN, true)
	c.F.set(FlagH, old&0xF == 0)
}

func daa(c *CPU) {
	a := c.A
	carry := false
	if !c.F.N() {
		if c.F.C() || a > 0x99 {
			a += 0x60
			carry = true
		}
		if c.F.H() || a&0x0F > 0x09 {
			a += 0x06
		}
	} else {
		if c.F.C() {
			a -= 0x60
			carry = true
		}
		if c.F.H() {
			a -= 0x06
		}
	}
	c.A = a
	c.F.set(FlagZ, a == 0)
	c.F.set(FlagH, false)
	c.F.set(FlagC, carry)
}

func cpl(c *CPU) {
	c.A = ^c.A
	c.F.set(FlagN, true)
	c.F.set(FlagH, true)
}

func scf(c *CPU) {
	c.F.set(FlagN, false)
	c.F.set(FlagH, false)
	c.F.set(FlagC, true)
}

func ccf(c *CPU) {
	c.F.set(FlagN, false)
	c.F.set(FlagH, false)
	c.F.set(FlagC, !c.F.C())
}

// 16-bit arithmetic.

func addHL(c *CPU, v uint16) {
	hl := c.HL()
	res := uint32(hl) + uint32(v)
	c.SetHL(uint16(res))
	c.F.set(FlagN, false)
	c.F.set(FlagH, (hl&0xFFF)+(v&0xFFF) > 0xFFF)
	c.F.set(FlagC, res > 0xFFFF)
}

// addSP returns SP plus a signed offset, with flags computed on the low
// byte, as ADD SP,e and LD HL,SP+e do.
func addSP(c *CPU, e uint8) uint16 {
	sp := c.SP
	res := sp + uint16(int8(e))
	c.F.setZNHC(false, false, (sp&0xF)+uint16(e&0xF) > 0xF, (sp&0xFF)+uint16(e) > 0xFF)
	return res
}

// Rotates and shifts. The *A variants of the base opcodes always clear Z.

type shiftFunc func(c *CPU, v uint8) (res uint8, carry bool)

func rlc(_ *CPU, v uint8) (uint8, bool) { return v<<1 | v>>7, v&0x80 != 0 }
func rrc(_ *CPU, v uint8) (uint8, bool) { return v>>1 | v<<7, v&0x01 != 0 }
func rl(c *CPU, v uint8) (uint8, bool)  { return v<<1 | c.F.carry(), v&0x80 != 0 }
func rr(c *CPU, v uint8) (uint8, bool)  { return v>>1 | c.F.carry()<<7, v&0x01 != 0 }
func sla(_ *CPU, v uint8) (uint8, bool) { return v << 1, v&0x80 != 0 }
func sra(_ *CPU, v uint8) (uint8, bool) { return v>>1 | v&0x80, v&0x01 != 0 }
func swap(_ *CPU, v uint8) (uint8, bool) { return v<<4 | v>>4, false }
func srl(_ *CPU, v uint8) (uint8, bool) { return v >> 1, v&0x01 != 0 }

// shiftOps are indexed by bits 3-5 of the 0xCB00-0xCB3F opcodes.
var shiftOps = [8]struct {
	name string
	fn   shiftFunc
}{
	{"RLC", rlc},
	{"RRC", rrc},
	{"RL", rl},
	{"RR", rr},
	{"SLA", sla},
	{"SRA", sra},
	{"SWAP", swap},
	{"SRL", srl},
}

func shift(c *CPU, o operand, fn shiftFunc) {
	v, carry := fn(c, c.get(o))
	c.set(o, v)
	c.F.setZNHC(v == 0, false, false, carry)
}

func shiftA(c *CPU, fn shiftFunc) {
	v, carry := fn(c, c.A)
	c.A = v
	c.F.setZNHC(false, false, false, carry)
}

func bit(c *CPU, n uint8, o operand) {
	c.F.set(FlagZ, nthbit8(c.get(o), n) == 0)
	c.F.set(FlagN, false)
	c.F.set(FlagH, true)
}

func resN(c *CPU, n uint8, o operand) { c.set(o, c.get(o)&^(1<<n)) }
func setN(c *CPU, n uint8, o operand) { c.set(o, c.get(o)|1<<n) }
