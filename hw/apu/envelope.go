package apu

// envelope is the volume envelope of the square and noise channels, driven
// by NRx2: initial volume (bits 4-7), direction (bit 3), period (bits 0-2).
type envelope struct {
	volume uint8
	count  uint8
}

func (env *envelope) trigger(nrx2 uint8) {
	env.volume = nrx2 >> 4
	env.count = 0
}

func (env *envelope) tick(nrx2 uint8) {
	period := nrx2 & 0x07
	if period == 0 {
		return
	}

	env.count++
	if env.count < period {
		return
	}
	env.count = 0
	if nrx2&0x08 == 0 {
		if env.volume > 0 {
			env.volume--
		}
	} else if env.volume < 15 {
		env.volume++
	}
}

// dacEnabled reports whether the DAC driven by NRx2 is powered.
func dacEnabled(nrx2 uint8) bool { return nrx2&0xF8 != 0 }
