package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"dotboy/cart"
	"dotboy/emu"
)

func main() {
	cli := parseArgs(os.Args[1:])

	switch cli.mode {
	case versionMode:
		printVersion()
	case romInfosMode:
		rom, err := cart.Open(cli.RomInfos.RomPath)
		checkf(err, "failed to open rom")
		rom.PrintInfos(os.Stdout)
	case runMode:
		cfg := emu.LoadConfigOrDefault()
		os.Exit(emuMain(cli.Run, cfg))
	}
}

func printVersion() {
	version := "(devel)"
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		version = bi.Main.Version
	}
	fmt.Println("dotboy", version)
}
