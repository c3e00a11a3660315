package apu

// timer is the frequency divider of a channel. It counts up and fires when
// it reaches limit, after which it restarts from the channel period.
type timer struct {
	count int
}

func (t *timer) reload(v int) { t.count = v }

func (t *timer) tick(limit, reload int) bool {
	t.count++
	if t.count < limit {
		return false
	}
	t.count = reload
	return true
}
