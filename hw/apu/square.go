package apu

var dutyPatterns = [4]uint8{0b00000001, 0b10000001, 0b10000111, 0b01111110}

// square is a square wave channel. Channel 1 also has a frequency sweep
// unit, driven by NR10.
type square struct {
	regs     []byte
	base     uint16 // offset of NRx0
	hasSweep bool

	active bool
	dac    bool
	length lengthCounter
	env    envelope
	timer  timer
	pos    uint8 // position in the duty pattern

	sweep sweep
}

func newSquare(regs []byte, base uint16, hasSweep bool) square {
	return square{
		regs:     regs,
		base:     base,
		hasSweep: hasSweep,
		length:   lengthCounter{max: 64},
	}
}

func (sq *square) nrx(n uint16) uint8 { return sq.regs[sq.base+n] }

func (sq *square) period() int {
	return int(sq.nrx(4)&0x07)<<8 | int(sq.nrx(3))
}

func (sq *square) setPeriod(p int) {
	sq.regs[sq.base+3] = uint8(p)
	sq.regs[sq.base+4] = sq.regs[sq.base+4]&^0x07 | uint8(p>>8)&0x07
}

func (sq *square) reset() {
	sq.active = false
	sq.dac = false
	sq.length.reset()
	sq.env = envelope{}
	sq.timer = timer{}
	sq.pos = 0
	sq.sweep = sweep{}
}

func (sq *square) loadLength() {
	sq.length.load(int(sq.nrx(1) & 0x3F))
}

func (sq *square) lengthEnabled() bool { return sq.nrx(4)&0x40 != 0 }

func (sq *square) setDAC(nrx2 uint8) {
	sq.dac = dacEnabled(nrx2)
	sq.active = sq.active && sq.dac
}

func (sq *square) trigger() {
	if sq.hasSweep && !sq.sweep.trigger(sq) {
		sq.active = false
		return
	}
	sq.env.trigger(sq.nrx(2))
	sq.pos = 0
	sq.timer.reload(sq.period())
	sq.length.trigger()
	sq.active = sq.dac
}

func (sq *square) tickLength() {
	if sq.length.tick(sq.lengthEnabled()) {
		sq.active = false
	}
}

func (sq *square) tickEnvelope() {
	if sq.active {
		sq.env.tick(sq.nrx(2))
	}
}

func (sq *square) tickSweep() {
	if sq.active && !sq.sweep.tick(sq) {
		sq.active = false
	}
}

// sample advances the channel by one APU tick (4 clock ticks) and returns
// its digital output, 0-15.
func (sq *square) sample() uint8 {
	if !sq.active {
		return 0
	}
	if sq.timer.tick(2048, sq.period()) {
		sq.pos = (sq.pos + 1) & 7
	}
	duty := dutyPatterns[sq.nrx(1)>>6]
	return ((duty >> sq.pos) & 1) * sq.env.volume
}

// sweep periodically changes the period of channel 1, from a shadow copy.
type sweep struct {
	enabled bool
	shadow  int
	timer   uint8
	negUsed bool // a subtraction was computed since the last trigger
}

func (sw *sweep) params(nr10 uint8) (pace uint8, neg bool, step uint8) {
	return nr10 >> 4 & 0x07, nr10&0x08 != 0, nr10 & 0x07
}

// next computes the next period, and reports an overflow.
func (sw *sweep) next(neg bool, step uint8) (int, bool) {
	delta := sw.shadow >> step
	if neg {
		sw.negUsed = true
		if sw.shadow-delta < 0 {
			return sw.shadow, true
		}
		return sw.shadow - delta, true
	}
	p := sw.shadow + delta
	return p, p <= 2047
}

// trigger reloads the sweep unit and returns false if the initial
// calculation overflows.
func (sw *sweep) trigger(sq *square) bool {
	pace, neg, step := sw.params(sq.nrx(0))
	sw.enabled = pace != 0 || step != 0
	sw.negUsed = false
	sw.shadow = sq.period()
	sw.timer = pace
	if pace == 0 {
		sw.timer = 8
	}
	if step != 0 {
		if _, ok := sw.next(neg, step); !ok {
			return false
		}
	}
	return true
}

func (sw *sweep) tick(sq *square) bool {
	pace, neg, step := sw.params(sq.nrx(0))
	sw.timer--
	if sw.timer > 0 {
		return true
	}
	sw.timer = pace
	if pace == 0 {
		sw.timer = 8
	}
	if !sw.enabled || pace == 0 {
		return true
	}

	p, ok := sw.next(neg, step)
	if !ok {
		return false
	}
	if step != 0 {
		sw.shadow = p
		sq.setPeriod(p)
		if _, ok := sw.next(neg, step); !ok {
			return false
		}
	}
	return true
}

// directionCleared is called when NR10 bit 3 is cleared: after a
// subtraction was used, this disables the channel.
func (sw *sweep) directionCleared() bool {
	return sw.negUsed
}
