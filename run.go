package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"dotboy/cart"
	"dotboy/emu"
	"dotboy/hw"
	"dotboy/ui"
)

// emuMain runs the emulator with the given rom and returns the process exit
// code.
func emuMain(args Run, cfg emu.Config) int {
	rom, err := cart.Open(args.RomPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading ROM: %s\n", err)
		return 1
	}

	if args.Boot != "" {
		cfg.General.BootROM = args.Boot
	}
	if args.WAV != "" {
		cfg.Audio.WAVDump = args.WAV
	}
	if args.Headless {
		cfg.Audio.DisableAudio = true
	}
	if args.Trace != nil {
		cfg.TraceOut = args.Trace
		cfg.TraceJSON = args.TraceJSON
	}

	emulator, err := emu.Launch(rom, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start emulator: %v\n", err)
		return 1
	}
	defer func() {
		if err := emulator.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing emulator: %v\n", err)
		}
	}()

	if args.CPUProfile != "" {
		f, err := os.Create(args.CPUProfile)
		checkf(err, "failed to create cpu profile file")
		checkf(pprof.StartCPUProfile(f), "failed to start cpu profile")
		defer func() {
			pprof.StopCPUProfile()
			f.Close()
			fmt.Println("CPU profile written to", args.CPUProfile)
		}()
	}

	if !args.Headless {
		app, err := ui.NewApp(emulator, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ui error: %v\n", err)
			return 1
		}
		if err := app.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "ui error: %v\n", err)
			return 1
		}
		return 0
	}

	emulator.SetFastForward(args.Fast)
	if err := runHeadless(emulator, args.Frames); err != nil {
		fmt.Fprintf(os.Stderr, "emulation error: %v\n", err)
		return 1
	}
	if img := emulator.Screenshot(); args.Screenshot != "" && img != nil {
		if err := hw.SavePNG(args.Screenshot, img); err != nil {
			fmt.Fprintf(os.Stderr, "screenshot error: %v\n", err)
			return 1
		}
	}
	return 0
}

// runHeadless runs nframes frames as fast as possible, or, if nframes is 0,
// runs at real-time speed until interrupted.
func runHeadless(e *emu.Emulator, nframes int) error {
	if nframes > 0 {
		for range nframes {
			e.RunFrame()
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return e.Run(ctx)
}
