// Package input defines the console buttons and the signals that press and
// release them.
package input

import (
	"fmt"
	"strings"
)

// A Button identifies one of the 8 buttons of the console.
type Button uint8

const (
	Right Button = iota
	Left
	Up
	Down
	A
	B
	Select
	Start

	ButtonCount
)

var buttonNames = [ButtonCount]string{
	"Right", "Left", "Up", "Down",
	"A", "B", "Select", "Start",
}

func (b Button) String() string {
	if b >= ButtonCount {
		return fmt.Sprintf("Button(%d)", uint8(b))
	}
	return buttonNames[b]
}

// IsDirection reports whether b is one of the d-pad buttons.
func (b Button) IsDirection() bool { return b <= Down }

// Mask is the bit of b in its JOYP group.
func (b Button) Mask() uint8 { return 1 << (b & 3) }

func (b Button) MarshalText() ([]byte, error) {
	if b >= ButtonCount {
		return nil, fmt.Errorf("invalid button %d", uint8(b))
	}
	return []byte(b.String()), nil
}

func (b *Button) UnmarshalText(text []byte) error {
	s := string(text)
	for i, name := range buttonNames {
		if strings.EqualFold(name, s) {
			*b = Button(i)
			return nil
		}
	}
	return fmt.Errorf("unknown button %q", s)
}

// Action is what happens to a button.
type Action uint8

const (
	Press Action = iota
	Release
)

func (a Action) String() string {
	switch a {
	case Press:
		return "press"
	case Release:
		return "release"
	}
	return fmt.Sprintf("Action(%d)", uint8(a))
}

// A Signal presses or releases a button.
type Signal struct {
	Action Action
	Button Button
}

// Config maps each button to the name of a host key.
type Config struct {
	Keys [ButtonCount]string `toml:"keys"`
}

// DefaultConfig returns the default key bindings.
func DefaultConfig() Config {
	return Config{
		Keys: [ButtonCount]string{
			Right:  "ArrowRight",
			Left:   "ArrowLeft",
			Up:     "ArrowUp",
			Down:   "ArrowDown",
			A:      "X",
			B:      "Z",
			Select: "Backspace",
			Start:  "Enter",
		},
	}
}

// Button returns the button bound to the given key name.
func (cfg Config) Button(key string) (Button, bool) {
	for i, k := range cfg.Keys {
		if k != "" && strings.EqualFold(k, key) {
			return Button(i), true
		}
	}
	return ButtonCount, false
}
