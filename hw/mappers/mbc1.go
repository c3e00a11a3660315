package mappers

import (
	"bytes"

	"dotboy/cart"
)

var MBC1 = MapperDesc{
	Name: "MBC1",
	Load: loadMBC1,
}

type mbc1 struct {
	*base

	bank1 uint8 // 5 bits, never 0
	bank2 uint8 // 2 bits
	mode  uint8 // 0: simple banking, 1: advanced banking

	// Multicart boards wire only 4 bits of bank1.
	shift uint
}

// nintendoLogo is the start of the boot logo found at 0x104 of every game.
var nintendoLogo = []byte{0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B}

func loadMBC1(b *base) (controller, error) {
	m := &mbc1{base: b, bank1: 1, shift: 5}
	if m.isMulticart() {
		modMBC.InfoZ("MBC1 multicart detected").End()
		m.shift = 4
	}
	return m, nil
}

// isMulticart detects 1MB multicarts, which have a game header (thus the
// boot logo) at the start of several 256kB blocks.
func (m *mbc1) isMulticart() bool {
	if len(m.rom.Data) != 64*cart.BankSize {
		return false
	}
	count := 0
	for _, bank := range []int{0, 16, 32, 48} {
		if bytes.HasPrefix(m.rom.Bank(bank)[0x104:], nintendoLogo) {
			count++
		}
	}
	return count >= 3
}

func (m *mbc1) writeReg(addr uint16, val uint8) {
	switch addr >> 13 {
	case 0:
		m.ramEnable(val)
	case 1:
		m.bank1 = val & 0x1F
		if m.bank1 == 0 {
			m.bank1 = 1
		}
	case 2:
		m.bank2 = val & 0x03
	case 3:
		m.mode = val & 0x01
	}
}

func (m *mbc1) ROMBankA() int {
	if m.mode == 0 {
		return 0
	}
	return int(m.bank2)<<m.shift&m.romMask
}

func (m *mbc1) ROMBankB() int {
	lo := m.bank1
	if m.shift == 4 {
		lo &= 0x0F
	}
	return (int(m.bank2)<<m.shift | int(lo)) & m.romMask
}

func (m *mbc1) SRAMBank() int {
	if m.mode == 0 {
		return 0
	}
	return int(m.bank2) & m.ramMask
}
