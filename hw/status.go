package hw

// Flags is the F register. The low nibble always reads as zero.
type Flags uint8

const (
	FlagC Flags = 1 << (iota + 4)
	FlagH
	FlagN
	FlagZ
)

func (f Flags) String() string {
	const bits = "znhcZNHC"

	s := make([]byte, 4)
	for i := range 4 {
		ibit := (uint8(f) >> (7 - i)) & 1
		s[i] = bits[i+int(4*ibit)]
	}
	return string(s)
}

func (f Flags) Z() bool { return f&FlagZ != 0 }
func (f Flags) N() bool { return f&FlagN != 0 }
func (f Flags) H() bool { return f&FlagH != 0 }
func (f Flags) C() bool { return f&FlagC != 0 }

// carry returns the carry flag as 0 or 1.
func (f Flags) carry() uint8 { return nthbit8(uint8(f), 4) }

func (f *Flags) set(flag Flags, on bool) {
	if on {
		*f |= flag
	} else {
		*f &^= flag
	}
}

// setZNHC sets all 4 flags at once.
func (f *Flags) setZNHC(z, n, h, c bool) {
	*f = Flags(b2u8(z)<<7 | b2u8(n)<<6 | b2u8(h)<<5 | b2u8(c)<<4)
}
