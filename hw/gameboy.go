package hw

import (
	"dotboy/emu/log"
	"dotboy/hw/apu"
	"dotboy/hw/snapshot"
)

const (
	ClockRate = 4194304 // ticks per second
	FrameRate = 59.7275 // frames per second
)

// GameBoy groups all the components of the console around a shared bus.
type GameBoy struct {
	Bus    *Bus
	CPU    *CPU
	Timer  *Timer
	PPU    *PPU
	APU    *apu.APU
	DMA    *OAMDMA
	Serial *Serial
	Joypad *Joypad

	Ticks uint64
}

// NewGameBoy creates all components and maps them on a new bus. The
// cartridge and boot ROM are loaded separately.
func NewGameBoy() *GameBoy {
	bus := NewBus()
	gb := &GameBoy{
		Bus:    bus,
		CPU:    NewCPU(bus),
		Timer:  NewTimer(bus),
		PPU:    NewPPU(bus),
		APU:    apu.New(bus, int(IO), bus.Mem(IO)),
		DMA:    NewDMA(bus),
		Serial: NewSerial(bus),
		Joypad: NewJoypad(bus),
	}
	gb.Timer.DivAPU = gb.APU.DivAPU
	return gb
}

// Reset puts every component in its power-on state.
func (gb *GameBoy) Reset() {
	gb.CPU.Reset()
	gb.Timer.Reset()
	gb.PPU.Reset()
	gb.APU.Reset()
	gb.DMA.Reset()
	gb.Serial.Reset()
	gb.Joypad.Reset()
	gb.Bus.StoreDirect(IF, 0)
	gb.Bus.StoreDirect(IEA, 0)
	gb.Ticks = 0
}

// postBootIO lists the registers values left by the boot ROM, in the order
// they're written. Sound power comes first so the other sound registers
// accept writes.
var postBootIO = []struct {
	addr uint16
	val  uint8
}{
	{NR52, 0xF1},
	{JOYP, 0xCF},
	{SB, 0x00},
	{SC, 0x7E},
	{TIMA, 0x00},
	{TMA, 0x00},
	{TAC, 0xF8},
	{IF, 0xE1},
	{0xFF10, 0x80},
	{0xFF11, 0xBF},
	{0xFF12, 0xF3},
	{0xFF13, 0xFF},
	{0xFF16, 0x3F},
	{0xFF17, 0x00},
	{0xFF18, 0xFF},
	{0xFF19, 0xBF},
	{0xFF1A, 0x7F},
	{0xFF1B, 0xFF},
	{0xFF1C, 0x9F},
	{0xFF1D, 0xFF},
	{0xFF1E, 0xBF},
	{0xFF20, 0xFF},
	{0xFF21, 0x00},
	{0xFF22, 0x00},
	{0xFF23, 0xBF},
	{0xFF24, 0x77},
	{0xFF25, 0xF3},
	{SCY, 0x00},
	{SCX, 0x00},
	{LYC, 0x00},
	{BGP, 0xFC},
	{OBP0, 0xFF},
	{OBP1, 0xFF},
	{WY, 0x00},
	{WX, 0x00},
	{LCDC, 0x91},
	{BOOT, 0x01},
}

// SkipBoot brings the console in the state the boot ROM leaves it in, right
// before jumping to the cartridge entry point.
func (gb *GameBoy) SkipBoot() {
	gb.Reset()
	for _, r := range postBootIO {
		gb.Bus.Store(r.addr, r.val)
	}
	gb.Bus.StoreDirect(IEA, 0)
	gb.CPU.SkipBoot()
	gb.Timer.SkipBoot()
	log.ModEmu.InfoZ("boot rom skipped").End()
}

// Tick advances the whole console by one clock tick.
func (gb *GameBoy) Tick() {
	gb.Ticks++
	gb.CPU.Tick()
	gb.DMA.Tick()
	gb.Serial.Tick()
	gb.Timer.Tick()
	gb.Joypad.Tick()
	gb.PPU.Tick()
	gb.APU.Tick()
}

// RunFrame runs one frame worth of ticks.
func (gb *GameBoy) RunFrame() {
	for range DotsPerFrame {
		gb.Tick()
	}
}

func (gb *GameBoy) Snapshot() snapshot.GameBoy {
	return snapshot.GameBoy{
		CPU:   gb.CPU.Snapshot(),
		Timer: gb.Timer.Snapshot(),
		PPU:   gb.PPU.Snapshot(),
	}
}
