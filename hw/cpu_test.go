package hw

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"dotboy/hw/snapshot"
)

// newTestCPU returns a CPU executing prog, mapped at $0000.
func newTestCPU(tb testing.TB, prog ...byte) *CPU {
	tb.Helper()

	bus := NewBus()
	rom := make([]byte, ROMA.Size())
	copy(rom, prog)
	bus.SetMem(ROMA, rom)
	c := NewCPU(bus)
	c.SP = 0xFFFE
	return c
}

// runInstr ticks the CPU until the current instruction completes and
// returns the number of ticks it took.
func runInstr(c *CPU) int {
	c.Tick()
	n := 1
	for c.wait > 0 {
		c.Tick()
		n++
	}
	return n
}

func TestNOP(t *testing.T) {
	c := newTestCPU(t, 0x00)
	c.F = FlagZ | FlagC
	before := c.Regs

	if n := runInstr(c); n != 4 {
		t.Errorf("NOP took %d ticks, want 4", n)
	}
	want := before
	want.PC++
	if diff := cmp.Diff(want, c.Regs); diff != "" {
		t.Errorf("regs mismatch (-want +got):\n%s", diff)
	}
}

func TestADD(t *testing.T) {
	tests := []struct {
		a, b  uint8
		wantA uint8
		wantF Flags
	}{
		{0x0F, 0x01, 0x10, FlagH},
		{0xFF, 0x01, 0x00, FlagZ | FlagH | FlagC},
		{0x12, 0x34, 0x46, 0},
		{0x80, 0x80, 0x00, FlagZ | FlagC},
	}
	for _, tt := range tests {
		c := newTestCPU(t, 0x80) // ADD A,B
		c.A, c.B = tt.a, tt.b
		runInstr(c)
		if c.A != tt.wantA || c.F != tt.wantF {
			t.Errorf("%02X+%02X = %02X %s, want %02X %s", tt.a, tt.b, c.A, c.F, tt.wantA, tt.wantF)
		}
	}
}

func TestSUBAndCP(t *testing.T) {
	c := newTestCPU(t,
		0x90, // SUB A,B
		0xB8, // CP A,B
		0x98, // SBC A,B
	)
	c.A, c.B = 0x10, 0x01
	runInstr(c)
	if c.A != 0x0F || c.F != FlagN|FlagH {
		t.Errorf("SUB: A=%02X F=%s", c.A, c.F)
	}
	c.B = 0x0F
	runInstr(c)
	if c.A != 0x0F || c.F != FlagZ|FlagN {
		t.Errorf("CP: A=%02X F=%s", c.A, c.F)
	}
	c.B = 0x10
	c.F |= FlagC
	runInstr(c)
	if c.A != 0xFE || c.F != FlagN|FlagC {
		t.Errorf("SBC: A=%02X F=%s", c.A, c.F)
	}
}

func TestDAA(t *testing.T) {
	tests := []struct {
		name  string
		a     uint8
		f     Flags
		wantA uint8
		wantF Flags
	}{
		{"no adjust", 0x45, 0, 0x45, 0},
		{"low nibble", 0x0A, 0, 0x10, 0},
		{"high nibble", 0xA0, 0, 0x00, FlagZ | FlagC},
		{"half carry", 0x12, FlagH, 0x18, 0},
		{"after sub", 0x0F, FlagN | FlagH, 0x09, FlagN},
		{"after sub carry", 0xA0, FlagN | FlagC, 0x40, FlagN | FlagC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCPU(t, 0x27)
			c.A, c.F = tt.a, tt.f
			runInstr(c)
			if c.A != tt.wantA || c.F != tt.wantF {
				t.Errorf("got A=%02X F=%s, want A=%02X F=%s", c.A, c.F, tt.wantA, tt.wantF)
			}
		})
	}
}

func TestIncDecHL(t *testing.T) {
	c := newTestCPU(t,
		0x34, // INC (HL)
		0x35, // DEC (HL)
		0x35, // DEC (HL)
	)
	c.SetHL(0xC000)
	c.bus.Store(0xC000, 0x0F)

	if n := runInstr(c); n != 12 {
		t.Errorf("INC (HL) took %d ticks, want 12", n)
	}
	if got := c.bus.Load(0xC000); got != 0x10 || c.F != FlagH {
		t.Errorf("INC (HL): %02X %s", got, c.F)
	}
	runInstr(c)
	if got := c.bus.Load(0xC000); got != 0x0F || c.F != FlagN|FlagH {
		t.Errorf("DEC (HL): %02X %s", got, c.F)
	}
	c.bus.Store(0xC000, 0x01)
	runInstr(c)
	if got := c.bus.Load(0xC000); got != 0x00 || c.F != FlagZ|FlagN {
		t.Errorf("DEC (HL): %02X %s", got, c.F)
	}
}

func TestBranchCycles(t *testing.T) {
	tests := []struct {
		name   string
		prog   []byte
		f      Flags
		ticks  int
		wantPC uint16
	}{
		{"JR NZ taken", []byte{0x20, 0x10}, 0, 12, 0x0012},
		{"JR NZ not taken", []byte{0x20, 0x10}, FlagZ, 8, 0x0002},
		{"JR back", []byte{0x18, 0xFE}, 0, 12, 0x0000},
		{"JP C taken", []byte{0xDA, 0x34, 0x12}, FlagC, 16, 0x1234},
		{"JP C not taken", []byte{0xDA, 0x34, 0x12}, 0, 12, 0x0003},
		{"CALL Z taken", []byte{0xCC, 0x00, 0x20}, FlagZ, 24, 0x2000},
		{"CALL Z not taken", []byte{0xCC, 0x00, 0x20}, 0, 12, 0x0003},
		{"RET NC not taken", []byte{0xD0}, FlagC, 8, 0x0001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCPU(t, tt.prog...)
			c.F = tt.f
			if n := runInstr(c); n != tt.ticks {
				t.Errorf("took %d ticks, want %d", n, tt.ticks)
			}
			if c.PC != tt.wantPC {
				t.Errorf("PC = %04X, want %04X", c.PC, tt.wantPC)
			}
		})
	}
}

func TestCallRet(t *testing.T) {
	prog := make([]byte, 0x20)
	copy(prog, []byte{0xCD, 0x10, 0x00}) // CALL $0010
	prog[0x10] = 0xC0                    // RET NZ

	c := newTestCPU(t, prog...)
	runInstr(c)
	if c.SP != 0xFFFC || c.bus.Load16(0xFFFC) != 0x0003 {
		t.Fatalf("after CALL: SP=%04X (SP)=%04X", c.SP, c.bus.Load16(0xFFFC))
	}
	if n := runInstr(c); n != 20 {
		t.Errorf("RET NZ took %d ticks, want 20", n)
	}
	if c.PC != 0x0003 || c.SP != 0xFFFE {
		t.Errorf("after RET: PC=%04X SP=%04X", c.PC, c.SP)
	}
}

func TestPushPopAF(t *testing.T) {
	c := newTestCPU(t,
		0xC5, // PUSH BC
		0xF1, // POP AF
	)
	c.SetBC(0x12FF)
	runInstr(c)
	runInstr(c)
	if c.A != 0x12 || c.F != 0xF0 {
		t.Errorf("AF = %04X, want 12F0", c.AF())
	}
}

func TestCBCycles(t *testing.T) {
	tests := []struct {
		op    byte
		ticks int
	}{
		{0x00, 8},  // RLC B
		{0x06, 16}, // RLC (HL)
		{0x46, 12}, // BIT 0,(HL)
		{0x7F, 8},  // BIT 7,A
		{0x86, 16}, // RES 0,(HL)
		{0xFE, 16}, // SET 7,(HL)
	}
	for _, tt := range tests {
		c := newTestCPU(t, 0xCB, tt.op)
		c.SetHL(0xC000)
		if n := runInstr(c); n != tt.ticks {
			t.Errorf("CB %02X took %d ticks, want %d", tt.op, n, tt.ticks)
		}
	}
}

func TestCBOps(t *testing.T) {
	c := newTestCPU(t,
		0xCB, 0x37, // SWAP A
		0xCB, 0x7F, // BIT 7,A
		0xCB, 0x3F, // SRL A
		0xCB, 0xC6, // SET 0,(HL)
		0xCB, 0x2E, // SRA (HL)
	)
	c.A = 0x1F
	c.SetHL(0xC000)

	runInstr(c)
	if c.A != 0xF1 || c.F != 0 {
		t.Errorf("SWAP: A=%02X F=%s", c.A, c.F)
	}
	runInstr(c)
	if c.F != FlagH {
		t.Errorf("BIT 7: F=%s", c.F)
	}
	runInstr(c)
	if c.A != 0x78 || c.F != FlagC {
		t.Errorf("SRL: A=%02X F=%s", c.A, c.F)
	}
	c.bus.Store(0xC000, 0x80)
	runInstr(c)
	runInstr(c)
	if got := c.bus.Load(0xC000); got != 0xC0 || c.F != FlagC {
		t.Errorf("SRA (HL): %02X F=%s", got, c.F)
	}
}

func TestInterruptDispatch(t *testing.T) {
	c := newTestCPU(t, 0x00, 0x00)
	c.PC = 0x0001
	c.IME = true
	c.bus.Store(IEA, 0x05)
	c.bus.Store(IF, 0x04) // Timer

	if n := runInstr(c); n != 20 {
		t.Errorf("dispatch took %d ticks, want 20", n)
	}
	if c.PC != 0x0050 {
		t.Errorf("PC = %04X, want 0050", c.PC)
	}
	if c.IME {
		t.Error("IME still set")
	}
	if got := c.bus.Load(IF); got != 0xE0 {
		t.Errorf("IF = %02X, want E0", got)
	}
	if c.SP != 0xFFFC || c.bus.Load16(0xFFFC) != 0x0001 {
		t.Errorf("stack: SP=%04X (SP)=%04X", c.SP, c.bus.Load16(0xFFFC))
	}
}

func TestInterruptPriority(t *testing.T) {
	c := newTestCPU(t)
	c.IME = true
	c.bus.Store(IEA, 0x1F)
	c.bus.Store(IF, 0x1A) // STAT, Serial, Joypad
	runInstr(c)
	if c.PC != 0x0048 {
		t.Errorf("PC = %04X, want 0048", c.PC)
	}
	if got := c.bus.Load(IF) & 0x1F; got != 0x18 {
		t.Errorf("IF = %02X, want 18", got)
	}
}

func TestEIDelay(t *testing.T) {
	c := newTestCPU(t,
		0xFB, // EI
		0x00, // NOP
		0x00, // NOP
	)
	c.bus.Store(IEA, 0x01)
	c.bus.Store(IF, 0x01)

	runInstr(c) // EI
	runInstr(c) // NOP, still no interrupt
	if c.PC != 0x0002 {
		t.Fatalf("PC = %04X, want 0002", c.PC)
	}
	runInstr(c)
	if c.PC != 0x0040 {
		t.Errorf("PC = %04X, want 0040", c.PC)
	}
	if got := c.bus.Load16(c.SP); got != 0x0002 {
		t.Errorf("pushed PC = %04X, want 0002", got)
	}
}

func TestDICancelsEI(t *testing.T) {
	c := newTestCPU(t,
		0xFB, // EI
		0xF3, // DI
		0x00, // NOP
		0x00, // NOP
	)
	c.bus.Store(IEA, 0x01)
	c.bus.Store(IF, 0x01)
	for range 4 {
		runInstr(c)
	}
	if c.IME || c.PC != 0x0004 {
		t.Errorf("IME=%t PC=%04X, want false 0004", c.IME, c.PC)
	}
}

func TestHalt(t *testing.T) {
	c := newTestCPU(t,
		0x76, // HALT
		0x00, // NOP
	)
	c.IME = true
	c.bus.Store(IEA, 0x01)

	runInstr(c)
	if !c.Halted() {
		t.Fatal("CPU not halted")
	}
	for range 100 {
		c.Tick()
	}
	if c.PC != 0x0001 || !c.Halted() {
		t.Fatalf("PC = %04X halted=%t", c.PC, c.Halted())
	}

	c.bus.Store(IF, 0x01)
	runInstr(c)
	if c.Halted() || c.PC != 0x0040 {
		t.Errorf("PC = %04X halted=%t, want 0040 false", c.PC, c.Halted())
	}
}

func TestHaltWithoutIME(t *testing.T) {
	c := newTestCPU(t,
		0x76, // HALT
		0x3C, // INC A
	)
	c.bus.Store(IEA, 0x04)

	runInstr(c)
	c.Tick()
	if !c.Halted() {
		t.Fatal("CPU not halted")
	}
	c.bus.Store(IF, 0x04)
	c.Tick() // halt flag re-evaluated
	runInstr(c)
	if c.A != 1 || c.PC != 0x0002 {
		t.Errorf("A=%d PC=%04X, want 1 0002", c.A, c.PC)
	}
}

func TestHaltBug(t *testing.T) {
	c := newTestCPU(t,
		0x76, // HALT
		0x3C, // INC A
		0x00, // NOP
	)
	c.bus.Store(IEA, 0x01)
	c.bus.Store(IF, 0x01)

	runInstr(c)
	if c.Halted() {
		t.Fatal("CPU halted with a pending interrupt")
	}
	runInstr(c)
	runInstr(c)
	if c.A != 2 || c.PC != 0x0002 {
		t.Errorf("A=%d PC=%04X, want 2 0002", c.A, c.PC)
	}
}

func TestCancelledInterrupt(t *testing.T) {
	c := newTestCPU(t)
	c.IME = true
	c.SP = 0x0000 // the high byte of PC lands in IE
	c.PC = 0x00C0
	c.bus.Store(IEA, 0x01)
	c.bus.Store(IF, 0x01)

	var states []snapshot.CPU
	c.State.Subscribe(func(s snapshot.CPU) { states = append(states, s) })

	if n := runInstr(c); n != 20 {
		t.Errorf("took %d ticks, want 20", n)
	}
	if c.PC != 0x0000 || c.IME {
		t.Errorf("PC=%04X IME=%t, want 0000 false", c.PC, c.IME)
	}
	if got := c.bus.Load(IF) & 0x1F; got != 0x01 {
		t.Errorf("IF = %02X, interrupt should stay requested", got)
	}
	if got := c.bus.Load(0xFFFE); got != 0xC0 {
		t.Errorf("low byte = %02X, want C0", got)
	}
	if len(states) != 1 || states[0].Opcode != opCancelled {
		t.Fatalf("states = %+v", states)
	}
	if OpcodeName(states[0].Opcode) != "<CANCELLED>" {
		t.Errorf("name = %q", OpcodeName(states[0].Opcode))
	}
}

func TestUnknownOpcode(t *testing.T) {
	for _, op := range []byte{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("opcode %02X did not panic", op)
				}
			}()
			c := newTestCPU(t, op)
			c.Tick()
		}()
	}
}

func TestOpcodeTableComplete(t *testing.T) {
	unknown := map[int]bool{0xCB: true, 0xD3: true, 0xDB: true, 0xDD: true, 0xE3: true, 0xE4: true, 0xEB: true, 0xEC: true, 0xED: true, 0xF4: true, 0xFC: true, 0xFD: true}
	for i := range 0x100 {
		if got := opcodes[i].exec != nil; got == unknown[i] {
			t.Errorf("opcode %02X: defined=%t", i, got)
		}
		if cbOpcodes[i].exec == nil {
			t.Errorf("opcode CB%02X undefined", i)
		}
	}
	if got := OpcodeName(0xCB7E); got != "BIT 7,(HL)" {
		t.Errorf("OpcodeName(CB7E) = %q", got)
	}
	if got := OpcodeName(0x36); got != "LD (HL),d8" {
		t.Errorf("OpcodeName(36) = %q", got)
	}
}
