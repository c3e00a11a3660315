package apu

// noise outputs bit 0 of a 16-bit linear feedback shift register, clocked at
// a rate set by NR43.
type noise struct {
	regs []byte

	active bool
	dac    bool
	length lengthCounter
	env    envelope
	timer  timer
	lfsr   uint16
}

func newNoise(regs []byte) noise {
	return noise{
		regs:   regs,
		length: lengthCounter{max: 64},
	}
}

func (n *noise) reset() {
	n.active = false
	n.dac = false
	n.length.reset()
	n.env = envelope{}
	n.timer = timer{}
	n.lfsr = 0
}

// period in APU ticks: divider << (shift + 2), with a divider of 0 meaning
// a half.
func (n *noise) period() int {
	nr43 := n.regs[nr43]
	shift := int(nr43 >> 4)
	div := int(nr43 & 0x07)
	if div == 0 {
		div = 1
		shift--
	}
	return div << (shift + 2)
}

func (n *noise) loadLength()         { n.length.load(int(n.regs[nr41] & 0x3F)) }
func (n *noise) lengthEnabled() bool { return n.regs[nr44]&0x40 != 0 }

func (n *noise) setDAC(nr42 uint8) {
	n.dac = dacEnabled(nr42)
	n.active = n.active && n.dac
}

func (n *noise) trigger() {
	n.lfsr = 0
	n.env.trigger(n.regs[nr42])
	n.timer.reload(0)
	n.length.trigger()
	n.active = n.dac
}

func (n *noise) tickLength() {
	if n.length.tick(n.lengthEnabled()) {
		n.active = false
	}
}

func (n *noise) tickEnvelope() {
	if n.active {
		n.env.tick(n.regs[nr42])
	}
}

// shift clocks the LFSR: bit 15 (and bit 7 in 7-bit mode) receives
// XNOR(bit 0, bit 1), then the register shifts right.
func (n *noise) shift() {
	bit := ^(n.lfsr ^ n.lfsr>>1) & 1
	n.lfsr = n.lfsr&^(1<<15) | bit<<15
	if n.regs[nr43]&0x08 != 0 {
		n.lfsr = n.lfsr&^(1<<6) | bit<<6
	}
	n.lfsr >>= 1
}

func (n *noise) sample() uint8 {
	if !n.active {
		return 0
	}
	if n.timer.tick(n.period(), 0) {
		n.shift()
	}
	return uint8(n.lfsr&1) * n.env.volume
}
