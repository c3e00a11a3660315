package hw

import "fmt"

// Regs is the SM83 register file. 16-bit pairs are views over their 8-bit
// halves.
type Regs struct {
	A uint8
	F Flags
	B uint8
	C uint8
	D uint8
	E uint8
	H uint8
	L uint8

	SP uint16
	PC uint16
}

func pair(hi, lo uint8) uint16 { return uint16(hi)<<8 | uint16(lo) }

func (r *Regs) AF() uint16 { return pair(r.A, uint8(r.F)) }
func (r *Regs) BC() uint16 { return pair(r.B, r.C) }
func (r *Regs) DE() uint16 { return pair(r.D, r.E) }
func (r *Regs) HL() uint16 { return pair(r.H, r.L) }

func (r *Regs) SetAF(v uint16) { r.A, r.F = uint8(v>>8), Flags(v)&0xF0 }
func (r *Regs) SetBC(v uint16) { r.B, r.C = uint8(v>>8), uint8(v) }
func (r *Regs) SetDE(v uint16) { r.D, r.E = uint8(v>>8), uint8(v) }
func (r *Regs) SetHL(v uint16) { r.H, r.L = uint8(v>>8), uint8(v) }

func (r *Regs) String() string {
	return fmt.Sprintf("A:%02X F:%s BC:%04X DE:%04X HL:%04X SP:%04X PC:%04X",
		r.A, r.F, r.BC(), r.DE(), r.HL(), r.SP, r.PC)
}

// reg16 identifies a 16-bit register in opcode encodings, where bits 4-5
// select BC, DE, HL and SP (or AF for push and pop).
type reg16 uint8

const (
	rBC reg16 = iota
	rDE
	rHL
	rSP
	rAF
)

var reg16Names = [...]string{"BC", "DE", "HL", "SP", "AF"}

func (r reg16) String() string { return reg16Names[r] }

func (r *Regs) get16(rr reg16) uint16 {
	switch rr {
	case rBC:
		return r.BC()
	case rDE:
		return r.DE()
	case rHL:
		return r.HL()
	case rSP:
		return r.SP
	}
	return r.AF()
}

func (r *Regs) set16(rr reg16, v uint16) {
	switch rr {
	case rBC:
		r.SetBC(v)
	case rDE:
		r.SetDE(v)
	case rHL:
		r.SetHL(v)
	case rSP:
		r.SP = v
	default:
		r.SetAF(v)
	}
}
