package apu

// mix combines the digital outputs of the 4 channels into a stereo sample.
// NR51 routes each channel to the left (bits 4-7) and right (bits 0-3)
// outputs, and NR50 sets the master volume of each side.
func mix(out [4]uint8, nr50, nr51 uint8) Sample {
	var left, right int16
	for ch, v := range out {
		if nr51&(0x10<<ch) != 0 {
			left += int16(v)
		}
		if nr51&(0x01<<ch) != 0 {
			right += int16(v)
		}
	}
	left <<= nr50 >> 4 & 0x07
	right <<= nr50 & 0x07
	return NewSample(left, right)
}
