package mappers

var MBC3 = MapperDesc{
	Name: "MBC3",
	Load: loadMBC3,
}

type mbc3 struct {
	*base

	bank    uint8
	ramBank uint8
	rtcSel  int // selected RTC register (0-4), or -1 for RAM

	// The clock isn't running, latching captures zeros.
	rtc   [5]uint8
	latch uint8
}

func loadMBC3(b *base) (controller, error) {
	return &mbc3{base: b, bank: 1, rtcSel: -1}, nil
}

func (m *mbc3) writeReg(addr uint16, val uint8) {
	switch addr >> 13 {
	case 0:
		m.ramEnable(val)
	case 1:
		m.bank = val & 0x7F
		if m.bank == 0 {
			m.bank = 1
		}
	case 2:
		switch {
		case val <= 0x07:
			m.ramBank = val
			m.rtcSel = -1
		case val <= 0x0C:
			m.rtcSel = int(val - 0x08)
		}
	case 3:
		if m.latch == 0 && val == 1 {
			m.rtc = [5]uint8{}
		}
		m.latch = val
	}
}

func (m *mbc3) ROMBankA() int { return 0 }
func (m *mbc3) ROMBankB() int { return int(m.bank) & m.romMask }

func (m *mbc3) SRAMBank() int {
	if m.rtcSel >= 0 {
		return -1
	}
	return int(m.ramBank) & m.ramMask
}

func (m *mbc3) readRAM(off uint16) uint8 {
	if m.rtcSel >= 0 {
		if !m.ramEnabled {
			return 0xFF
		}
		return m.rtc[m.rtcSel]
	}
	return m.base.readRAM(off)
}

func (m *mbc3) writeRAM(off uint16, val uint8) {
	if m.rtcSel >= 0 {
		if m.ramEnabled {
			m.rtc[m.rtcSel] = val
		}
		return
	}
	m.base.writeRAM(off, val)
}
