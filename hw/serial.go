package hw

import (
	"dotboy/emu/event"
	"dotboy/emu/log"
	"dotboy/hw/hwdefs"
	"dotboy/hw/hwio"
)

// ticks per shifted bit at 8192 Hz.
const serialPeriod = 512

// Serial is the link port, without link partner: every received bit is 1.
type Serial struct {
	bus *Bus

	SB hwio.Reg8 `hwio:""`
	SC hwio.Reg8 `hwio:"ormask=0x7E,wcb"`

	// Out receives each byte shifted out, when its transfer starts.
	Out event.Hub[uint8]

	clock    int
	bits     int
	transfer bool
}

func NewSerial(bus *Bus) *Serial {
	s := &Serial{bus: bus}
	hwio.MustInitRegs(s)
	bus.MapReg8(int(IO), SB&0x7F, &s.SB)
	bus.MapReg8(int(IO), SC&0x7F, &s.SC)
	return s
}

func (s *Serial) Reset() {
	s.clock = 0
	s.bits = 0
	s.transfer = false
}

// Transferring reports whether a transfer is in progress.
func (s *Serial) Transferring() bool { return s.transfer }

func (s *Serial) WriteSC(old, val uint8) {
	if old&0x80 == 0 && val&0x81 == 0x81 {
		sb := s.bus.LoadDirect(SB)
		log.ModSerial.DebugZ("start transfer").Hex8("sb", sb).End()
		s.Out.Publish(sb)
		s.bits = 0
		s.transfer = true
	}
}

func (s *Serial) Tick() {
	s.clock++
	if s.clock < serialPeriod {
		return
	}
	s.clock = 0
	if !s.transfer {
		return
	}

	s.bus.StoreDirect(SB, s.bus.LoadDirect(SB)<<1|1)
	s.bits++
	if s.bits == 8 {
		s.bits = 0
		s.transfer = false
		s.bus.StoreBit(SC, 7, false)
		s.bus.RequestIRQ(hwdefs.Serial)
		log.ModSerial.DebugZ("transfer done").End()
	}
}
