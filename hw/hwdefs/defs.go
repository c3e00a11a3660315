package hwdefs

import "strings"

// IRQSource is a bit of the IE and IF registers. Lower bits have higher
// priority.
type IRQSource uint8

const (
	VBlank IRQSource = 1 << iota
	LCDStat
	Timer
	Serial
	Joypad

	NumIRQSources = 5
)

var irqSrcNames = [NumIRQSources]string{
	"vblank",
	"stat",
	"timer",
	"serial",
	"joypad",
}

// Vector returns the address the CPU jumps to when servicing irq, which must
// be a single source.
func (irq IRQSource) Vector() uint16 {
	for i := range NumIRQSources {
		if irq&(1<<i) != 0 {
			return 0x40 + uint16(i)*8
		}
	}
	return 0
}

func (irq IRQSource) String() string {
	var names []string
	for i := range NumIRQSources {
		if irq&(1<<i) != 0 {
			names = append(names, irqSrcNames[i])
		}
	}
	return strings.Join(names, "|")
}

const NumAudioChannels = 4 // Square1 (sweep), Square2, Wave, Noise

const (
	ScreenWidth  = 160
	ScreenHeight = 144
)
