package mappers

var MBC5 = MapperDesc{
	Name: "MBC5",
	Load: func(b *base) (controller, error) { return &mbc5{base: b, bank: 1}, nil },
}

type mbc5 struct {
	*base

	bank    uint16 // 9 bits, 0 is a valid bank
	ramBank uint8
}

func (m *mbc5) writeReg(addr uint16, val uint8) {
	switch {
	case addr < 0x2000:
		m.ramEnable(val)
	case addr < 0x3000:
		m.bank = m.bank&0x100 | uint16(val)
	case addr < 0x4000:
		m.bank = m.bank&0xFF | uint16(val&0x01)<<8
	case addr < 0x6000:
		m.ramBank = val & 0x0F
	}
}

func (m *mbc5) ROMBankA() int { return 0 }
func (m *mbc5) ROMBankB() int { return int(m.bank) & m.romMask }
func (m *mbc5) SRAMBank() int { return int(m.ramBank) & m.ramMask }
