package mappers

var MBC2 = MapperDesc{
	Name:    "MBC2",
	Load:    loadMBC2,
	RAMSize: 512,
}

// mbc2 has 512 half-bytes of built-in RAM, echoed over the whole SRAM
// window.
type mbc2 struct {
	*base

	bank uint8
}

func loadMBC2(b *base) (controller, error) {
	return &mbc2{base: b, bank: 1}, nil
}

func (m *mbc2) writeReg(addr uint16, val uint8) {
	if addr >= 0x4000 {
		return
	}
	// Address bit 8 selects between RAM enable and ROM bank.
	if addr&0x100 == 0 {
		m.ramEnable(val)
		return
	}
	m.bank = val & 0x0F
	if m.bank == 0 {
		m.bank = 1
	}
}

func (m *mbc2) ROMBankA() int { return 0 }
func (m *mbc2) ROMBankB() int { return int(m.bank) & m.romMask }
func (m *mbc2) SRAMBank() int { return 0 }

func (m *mbc2) readRAM(off uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	return m.ram[off&0x1FF] | 0xF0
}

func (m *mbc2) writeRAM(off uint16, val uint8) {
	if !m.ramEnabled {
		return
	}
	pos := int(off & 0x1FF)
	m.ram[pos] = val & 0x0F
	m.persist(pos, m.ram[pos])
}
