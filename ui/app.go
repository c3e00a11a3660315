// Package ui is the desktop frontend: a window showing the LCD, keyboard
// input and audio playback.
package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"dotboy/emu"
	"dotboy/emu/log"
	"dotboy/hw"
	"dotboy/hw/hwdefs"
	"dotboy/hw/input"
)

var modUI = log.NewModule("ui")

// Hotkeys handled by the frontend, they can't be rebound.
const (
	keyPause      = ebiten.KeyP
	keyReset      = ebiten.KeyR
	keyScreenshot = ebiten.KeyF12
	keyFast       = ebiten.KeyTab
	keyQuit       = ebiten.KeyEscape
)

// fastFrames is the number of frames emulated per update while keyFast is
// held.
const fastFrames = 4

// App runs an emulator inside an ebiten window. The emulator is stepped one
// frame per ebiten tick.
type App struct {
	emu  *emu.Emulator
	cfg  emu.Config
	keys keymap

	tex    *ebiten.Image
	player *audio.Player

	pressed  []ebiten.Key
	released []ebiten.Key
}

// NewApp returns a frontend for e, configured by cfg.
func NewApp(e *emu.Emulator, cfg emu.Config) (*App, error) {
	keys, err := newKeymap(cfg.Input)
	if err != nil {
		return nil, err
	}
	return &App{
		emu:  e,
		cfg:  cfg,
		keys: keys,
	}, nil
}

// Run opens the window and blocks until it's closed.
func (a *App) Run() error {
	ebiten.SetWindowTitle(fmt.Sprintf("dotboy - %s", a.emu.Rom.Title()))
	ebiten.SetWindowSize(hwdefs.ScreenWidth*a.cfg.Video.Scale, hwdefs.ScreenHeight*a.cfg.Video.Scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(!a.cfg.Video.DisableVSync)
	ebiten.SetTPS(60)

	if a.emu.Audio != nil {
		if err := a.startAudio(); err != nil {
			modUI.WarnZ("audio playback unavailable").Error("err", err).End()
		}
	}

	err := ebiten.RunGame(a)
	if a.player != nil {
		a.player.Close()
	}
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

func (a *App) startAudio() error {
	ctx := audio.CurrentContext()
	if ctx == nil {
		ctx = audio.NewContext(a.cfg.Audio.SampleRate)
	}
	p, err := ctx.NewPlayer(a.emu.Audio)
	if err != nil {
		return err
	}
	p.SetBufferSize(50 * time.Millisecond)
	p.Play()
	a.player = p
	modUI.InfoZ("audio playback started").Int("rate", a.cfg.Audio.SampleRate).End()
	return nil
}

// Update implements ebiten.Game.
func (a *App) Update() error {
	if inpututil.IsKeyJustPressed(keyQuit) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(keyPause) {
		a.emu.SetPause(!a.emu.Paused())
		modUI.InfoZ("pause").Bool("paused", a.emu.Paused()).End()
	}
	if inpututil.IsKeyJustPressed(keyReset) {
		a.emu.Reset()
	}
	if inpututil.IsKeyJustPressed(keyScreenshot) {
		a.screenshot()
	}

	a.pressed = inpututil.AppendJustPressedKeys(a.pressed[:0])
	a.released = inpututil.AppendJustReleasedKeys(a.released[:0])
	for _, sig := range a.keys.signals(a.pressed, a.released) {
		a.emu.Signal(sig)
	}

	if fast := ebiten.IsKeyPressed(keyFast); fast != a.emu.FastForward() {
		a.emu.SetFastForward(fast)
	}
	n := 1
	if a.emu.FastForward() {
		n = fastFrames
	}
	for range n {
		a.emu.RunFrame()
	}
	return nil
}

// Draw implements ebiten.Game.
func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(hwdefs.ScreenWidth, hwdefs.ScreenHeight)
	}
	if frame := a.emu.Screenshot(); frame != nil {
		a.tex.WritePixels(frame.Pix)
	}
	screen.DrawImage(a.tex, nil)
}

// Layout implements ebiten.Game.
func (a *App) Layout(int, int) (int, int) {
	return hwdefs.ScreenWidth, hwdefs.ScreenHeight
}

func (a *App) screenshot() {
	name := fmt.Sprintf("%s_%s.png",
		a.emu.Rom.Title(), time.Now().Format("20060102_150405"))
	path := filepath.Join(a.cfg.General.SaveDir, name)
	if a.cfg.General.SaveDir == "" {
		path = name
	}
	frame := a.emu.Screenshot()
	if frame == nil {
		return
	}
	if err := hw.SavePNG(path, frame); err != nil {
		modUI.WarnZ("screenshot failed").Error("err", err).End()
		return
	}
	fmt.Fprintln(os.Stderr, "screenshot saved to", path)
}

// keymap binds host keys to console buttons.
type keymap map[ebiten.Key]input.Button

func newKeymap(cfg input.Config) (keymap, error) {
	km := make(keymap)
	for b, name := range cfg.Keys {
		if name == "" {
			continue
		}
		k, ok := keyByName(name)
		if !ok {
			return nil, fmt.Errorf("button %s: unknown key %q", input.Button(b), name)
		}
		km[k] = input.Button(b)
	}
	return km, nil
}

func (km keymap) signals(pressed, released []ebiten.Key) []input.Signal {
	var sigs []input.Signal
	for _, k := range released {
		if b, ok := km[k]; ok {
			sigs = append(sigs, input.Signal{Action: input.Release, Button: b})
		}
	}
	for _, k := range pressed {
		if b, ok := km[k]; ok {
			sigs = append(sigs, input.Signal{Action: input.Press, Button: b})
		}
	}
	return sigs
}
