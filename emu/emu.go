package emu

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sync/atomic"

	"dotboy/cart"
	"dotboy/emu/audio"
	"dotboy/emu/clock"
	"dotboy/emu/event"
	"dotboy/emu/log"
	"dotboy/hw"
	"dotboy/hw/input"
	"dotboy/hw/mappers"
)

// Emulator ties a console, its cartridge and the host side sinks to a clock.
type Emulator struct {
	GB     *hw.GameBoy
	Rom    *cart.Rom
	Mapper mappers.Mapper
	Out    *hw.Output
	Mixer  *hw.AudioMixer // nil when audio is disabled
	Audio  *audio.Stream  // nil when audio is disabled
	Clock  *clock.Clock

	// Frames receives the state of each completed frame, on the goroutine
	// running the async frame callbacks. Subscribe before running. The state
	// is only valid during the call.
	Frames event.Hub[*FrameState]

	boot  []byte
	wav   *audio.WAVDump
	trace io.WriteCloser

	frames   frameQueue
	audio    []int16 // mixer output of the current frame
	flushing []*FrameState

	signals chan input.Signal

	// These are accessed concurrently by the emulation and the UI.
	paused atomic.Bool
	reset  atomic.Bool
}

// Launch powers up a console with rom inserted and connects the video, audio
// and trace outputs. It doesn't start the emulation, use Start or RunFrame.
func Launch(rom *cart.Rom, cfg Config) (*Emulator, error) {
	cfg.Check()

	e := &Emulator{
		GB:      hw.NewGameBoy(),
		Rom:     rom,
		Clock:   clock.New(clock.DMG),
		signals: make(chan input.Signal, 64),
	}

	if cfg.General.BootROM != "" {
		boot, err := os.ReadFile(cfg.General.BootROM)
		if err != nil {
			return nil, fmt.Errorf("boot rom: %w", err)
		}
		e.boot = boot
	}

	mapper, err := mappers.Load(rom, e.GB.Bus, cfg.General.saveDir())
	if err != nil {
		return nil, fmt.Errorf("cartridge: %w", err)
	}
	e.Mapper = mapper

	if err := e.powerOn(); err != nil {
		e.Close()
		return nil, err
	}

	// Video.
	e.Out = hw.NewOutput(hw.OutputConfig{Palette: cfg.Video.palette()})
	e.GB.PPU.Pixels.Subscribe(e.Out.Pixel)

	// Audio.
	if !cfg.Audio.DisableAudio || cfg.Audio.WAVDump != "" {
		e.Mixer = hw.NewAudioMixer(cfg.Audio.SampleRate)
		e.Mixer.Clock = func() uint64 { return e.GB.Ticks }
		e.Mixer.Reset()
		e.GB.APU.Sound.Subscribe(e.Mixer.Sample)
		e.Mixer.Out.Subscribe(e.collectAudio)
	}
	if cfg.Audio.DisableAudio {
		log.ModEmu.WarnZ("Audio disabled").End()
	} else {
		// Keep at most ~4 frames of latency.
		e.Audio = audio.NewStream(cfg.Audio.SampleRate / 15)
		log.ModEmu.InfoZ("Audio enabled").Int("rate", cfg.Audio.SampleRate).End()
	}
	if cfg.Audio.WAVDump != "" {
		wav, err := audio.CreateWAV(cfg.Audio.WAVDump, cfg.Audio.SampleRate)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.wav = wav
	}

	// CPU execution trace.
	if cfg.TraceOut != nil {
		e.trace = cfg.TraceOut
		var tracer hw.Tracer = hw.NewTextTracer(cfg.TraceOut)
		if cfg.TraceJSON {
			tracer = hw.NewJSONTracer(cfg.TraceOut)
		}
		e.GB.CPU.State.Subscribe(tracer.Trace)
	}

	e.Clock.OnTick(e.GB.Tick)
	e.Clock.OnFrame(e.endFrame)
	e.Clock.OnAsyncFrame(e.flushFrames)
	return e, nil
}

// powerOn resets the console and runs the boot ROM, or skips it if none was
// provided.
func (e *Emulator) powerOn() error {
	if len(e.boot) == 0 {
		e.GB.SkipBoot()
		return nil
	}
	e.GB.Reset()
	if err := e.GB.Bus.SetBootROM(e.boot); err != nil {
		return fmt.Errorf("boot rom: %w", err)
	}
	log.ModEmu.InfoZ("running boot rom").Int("size", len(e.boot)).End()
	return nil
}

// endFrame runs on frame boundaries, while the console is idle.
func (e *Emulator) endFrame() {
	e.Out.EndFrame()
	if e.Mixer != nil {
		e.Mixer.EndFrame()
	}
	e.captureFrame()

drain:
	for {
		select {
		case sig := <-e.signals:
			e.GB.Joypad.Signal(sig)
		default:
			break drain
		}
	}

	if e.reset.CompareAndSwap(true, false) {
		log.ModEmu.InfoZ("Performing reset").End()
		if err := e.powerOn(); err != nil {
			log.ModEmu.ErrorZ("reset failed").Error("err", err).End()
		}
		if e.Mixer != nil {
			e.Mixer.Reset()
		}
	}
}

// RunFrame runs one frame on the calling goroutine, unless paused.
func (e *Emulator) RunFrame() {
	if e.paused.Load() {
		return
	}
	e.Clock.RunFrame()
}

// Run paces the emulation at the console frame rate until ctx is done or
// Stop is called.
func (e *Emulator) Run(ctx context.Context) error {
	e.Clock.Start(ctx)
	err := e.Clock.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.ModEmu.InfoZ("Emulation loop exited").Uint64("frames", e.Clock.Frames()).End()
	return err
}

// Stop stops an emulation started with Run.
func (e *Emulator) Stop() { e.Clock.Stop() }

// Signal queues a controller event, applied at the next frame boundary.
// Events are dropped if the queue is full.
func (e *Emulator) Signal(sig input.Signal) {
	select {
	case e.signals <- sig:
	default:
		log.ModInput.WarnZ("input queue full, event dropped").
			Stringer("button", sig.Button).
			End()
	}
}

// SetPause and Reset control the emulation in a concurrent-safe way.

func (e *Emulator) SetPause(pause bool) { e.paused.Store(pause) }
func (e *Emulator) Paused() bool        { return e.paused.Load() }
func (e *Emulator) Reset()              { e.reset.Store(true) }

// SetFastForward runs frames as fast as possible, or back at the console
// frame rate.
func (e *Emulator) SetFastForward(on bool) { e.Clock.SetThrottle(!on) }
func (e *Emulator) FastForward() bool      { return !e.Clock.Throttled() }

// Screenshot returns the last completed frame.
func (e *Emulator) Screenshot() *image.RGBA { return e.Out.Frame() }

// Close flushes and closes the battery save and the dump files.
func (e *Emulator) Close() error {
	var errs []error
	if e.Mapper != nil {
		errs = append(errs, e.Mapper.Close())
	}
	if e.wav != nil {
		errs = append(errs, e.wav.Close())
		e.wav = nil
	}
	if e.trace != nil {
		errs = append(errs, e.trace.Close())
		e.trace = nil
	}
	return errors.Join(errs...)
}
