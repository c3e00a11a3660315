package apu

// frameSequencer is clocked by the DIV-APU event (512 Hz) and in turn clocks
// the length counters, the sweep unit and the envelopes.
type frameSequencer struct {
	step uint8
}

type frameEvents uint8

const (
	clockLength frameEvents = 1 << iota
	clockSweep
	clockEnvelope
)

func (fs *frameSequencer) reset() {
	// The first event after power on doesn't clock the length counters.
	fs.step = 1
}

func (fs *frameSequencer) tick() frameEvents {
	fs.step = (fs.step + 1) & 7

	var ev frameEvents
	if fs.step%2 == 0 {
		ev |= clockLength
	}
	if fs.step%4 == 0 {
		ev |= clockSweep
	}
	if fs.step == 0 {
		ev |= clockEnvelope
	}
	return ev
}

// lengthClocked reports whether the last step clocked the length counters,
// in which case enabling a length counter clocks it an extra time.
func (fs *frameSequencer) lengthClocked() bool { return fs.step%2 == 0 }
