package hw

import (
	"dotboy/emu/log"
	"dotboy/hw/hwdefs"
	"dotboy/hw/hwio"
	"dotboy/hw/input"
)

// Joypad maps the pressed buttons onto JOYP. Bits 4 and 5 select the button
// group, active low, as are the 4 input lines.
type Joypad struct {
	bus *Bus

	JOYP hwio.Reg8 `hwio:"romask=0xCF,ormask=0xC0"`

	pressed [input.ButtonCount]bool
}

func NewJoypad(bus *Bus) *Joypad {
	j := &Joypad{bus: bus}
	hwio.MustInitRegs(j)
	bus.MapReg8(int(IO), JOYP&0x7F, &j.JOYP)
	return j
}

func (j *Joypad) Reset() {
	j.pressed = [input.ButtonCount]bool{}
	j.bus.StoreDirect(JOYP, 0x3F)
}

// Signal updates the state of a button.
func (j *Joypad) Signal(sig input.Signal) {
	if sig.Button >= input.ButtonCount {
		return
	}
	switch sig.Action {
	case input.Press:
		j.pressed[sig.Button] = true
	case input.Release:
		j.pressed[sig.Button] = false
	default:
		log.ModInput.PanicZ("unknown action").Stringer("action", sig.Action).Stringer("button", sig.Button).End()
	}
}

// Pressed reports whether a button is currently held.
func (j *Joypad) Pressed(b input.Button) bool { return j.pressed[b] }

// lines returns the 4 input lines for the selected group.
func (j *Joypad) lines(joyp uint8) uint8 {
	var dirs bool
	switch joyp & 0x30 {
	case 0x10:
		dirs = false
	case 0x20:
		dirs = true
	default:
		return 0x0F
	}

	lines := uint8(0x0F)
	for b := range input.ButtonCount {
		if j.pressed[b] && b.IsDirection() == dirs {
			lines &^= b.Mask()
		}
	}
	return lines
}

// Tick refreshes the input lines, which may change at any time.
func (j *Joypad) Tick() {
	old := j.bus.LoadDirect(JOYP)
	lines := j.lines(old)
	j.bus.StoreDirect(JOYP, old&0x30|lines)
	if old&0x0F&^lines != 0 {
		j.bus.RequestIRQ(hwdefs.Joypad)
	}
}
