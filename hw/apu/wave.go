package apu

// wave is the channel playing the 32 4-bit samples of wave RAM.
type wave struct {
	regs []byte

	active bool
	dac    bool
	length lengthCounter
	timer  timer
	pos    int
	last   uint8 // last sample read from wave RAM
}

func newWave(regs []byte) wave {
	return wave{
		regs:   regs,
		pos:    1,
		length: lengthCounter{max: 256},
	}
}

func (w *wave) reset() {
	w.active = false
	w.dac = false
	w.length.reset()
	w.timer = timer{}
	w.pos = 1
	w.last = 0
}

// period is halved since the wave channel is clocked twice as fast as the
// others, and we run all channels at the same rate.
func (w *wave) period() int {
	return (int(w.regs[nr34]&0x07)<<8 | int(w.regs[nr33])) >> 1
}

func (w *wave) loadLength()         { w.length.load(int(w.regs[nr31])) }
func (w *wave) lengthEnabled() bool { return w.regs[nr34]&0x40 != 0 }

func (w *wave) setDAC(nr30 uint8) {
	w.dac = nr30&0x80 != 0
	w.active = w.active && w.dac
}

func (w *wave) trigger() {
	w.pos = 0
	w.timer.reload(w.period())
	w.length.trigger()
	w.active = w.dac
}

func (w *wave) tickLength() {
	if w.length.tick(w.lengthEnabled()) {
		w.active = false
	}
}

func (w *wave) sample() uint8 {
	if !w.active {
		return 0
	}
	if w.timer.tick(1024, w.period()) {
		b := w.regs[waveRAM+w.pos/2]
		if w.pos%2 == 0 {
			w.last = b >> 4
		} else {
			w.last = b & 0x0F
		}
		w.pos = (w.pos + 1) % 32
	}

	switch w.regs[nr32] >> 5 & 0x03 {
	case 0:
		return 0
	case 2:
		return w.last >> 1
	case 3:
		return w.last >> 2
	}
	return w.last
}

func (w *wave) powerOff() {
	w.last = 0
}
