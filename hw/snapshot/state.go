// Package snapshot holds plain copies of the emulated hardware state, as
// published to tracers and used by tests.
package snapshot

// CPU is the state of the CPU right after an opcode fetch, before it
// executes.
type CPU struct {
	Addr   uint16 // address of the instruction
	Opcode uint16 // 0xCBxx for extended opcodes, see hw.OpcodeName for pseudo opcodes
	A, F   uint8
	B, C   uint8
	D, E   uint8
	H, L   uint8
	SP, PC uint16

	Halt bool
	IME  bool

	Cycles uint64 // ticks since power-on
}

type Timer struct {
	DIV   uint16
	TIMA  uint8
	TMA   uint8
	TAC   uint8
	Phase uint8 // 0: counting, 1: overflowed, 2: reloaded
}

type PPU struct {
	Dot       int // dot within the frame
	LY        uint8
	Mode      uint8
	Enabled   bool
	Suppress  int // frames left with output disabled
	WindowHit bool
}

type GameBoy struct {
	CPU   CPU
	Timer Timer
	PPU   PPU
}
