package mappers

var MBC0 = MapperDesc{
	Name: "ROM",
	Load: func(b *base) (controller, error) {
		// Cartridges without controller have their RAM, if any, always
		// enabled.
		b.ramEnabled = true
		return &mbc0{base: b}, nil
	},
}

type mbc0 struct {
	*base
}

func (m *mbc0) ROMBankA() int { return 0 }
func (m *mbc0) ROMBankB() int { return 1 & m.romMask }
func (m *mbc0) SRAMBank() int { return 0 }

func (m *mbc0) writeReg(addr uint16, val uint8) {
	modMBC.DebugZ("write to rom ignored").Hex16("addr", addr).Hex8("val", val).End()
}
