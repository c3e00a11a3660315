package apu

// lengthCounter counts up from the value loaded in NRx1 and silences the
// channel when it reaches max.
type lengthCounter struct {
	max      int
	length   int
	unfrozen bool // the last trigger reset an expired counter
}

func (lc *lengthCounter) load(n int) {
	lc.length = n
}

// tick clocks the counter if enabled and reports whether it just expired.
func (lc *lengthCounter) tick(enabled bool) bool {
	if !enabled || lc.length == lc.max {
		return false
	}
	lc.length++
	return lc.length == lc.max
}

func (lc *lengthCounter) expired() bool { return lc.length == lc.max }

func (lc *lengthCounter) trigger() {
	lc.unfrozen = lc.length == lc.max
	if lc.unfrozen {
		lc.length = 0
	}
}

func (lc *lengthCounter) reset() {
	lc.length = 0
	lc.unfrozen = false
}
