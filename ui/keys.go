package ui

import (
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
)

// key names are those of ebiten.Key.String, without the "Key" prefix, plus
// a few aliases that read better in a config file.
var keyAliases = map[string]ebiten.Key{
	"up":     ebiten.KeyArrowUp,
	"down":   ebiten.KeyArrowDown,
	"left":   ebiten.KeyArrowLeft,
	"right":  ebiten.KeyArrowRight,
	"return": ebiten.KeyEnter,
	"ctrl":   ebiten.KeyControl,
	"shift":  ebiten.KeyShift,
	"alt":    ebiten.KeyAlt,
}

var keysByName = func() map[string]ebiten.Key {
	m := make(map[string]ebiten.Key)
	for k := ebiten.Key(0); k <= ebiten.KeyMax; k++ {
		m[strings.ToLower(k.String())] = k
	}
	for name, k := range keyAliases {
		m[name] = k
	}
	return m
}()

// keyByName returns the key named name, ignoring case.
func keyByName(name string) (ebiten.Key, bool) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "Key"))
	k, ok := keysByName[name]
	return k, ok
}
