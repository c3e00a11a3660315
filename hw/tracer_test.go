package hw

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-faster/jx"
	"github.com/google/go-cmp/cmp"

	"dotboy/hw/snapshot"
)

var traceStates = []snapshot.CPU{
	{
		Addr: 0x0100, Opcode: 0x00,
		A: 0x01, F: 0xB0, B: 0x00, C: 0x13, D: 0x00, E: 0xD8, H: 0x01, L: 0x4D,
		SP: 0xFFFE, PC: 0x0101, Cycles: 0,
	},
	{
		Addr: 0x0150, Opcode: 0xCB7C,
		A: 0x01, F: 0xB0, B: 0x00, C: 0x13, D: 0x00, E: 0xD8, H: 0x01, L: 0x4D,
		SP: 0xFFFE, PC: 0x0152, Cycles: 1234,
	},
}

func TestTextTracer(t *testing.T) {
	want := []string{
		`0100  00    NOP          A:01 F:B0 BC:0013 DE:00D8 HL:014D SP:FFFE CYC:0`,
		`0150  CB7C  BIT 7,H      A:01 F:B0 BC:0013 DE:00D8 HL:014D SP:FFFE CYC:1234`,
	}

	var out bytes.Buffer
	tr := NewTextTracer(&out)
	for _, s := range traceStates {
		tr.Trace(s)
	}

	got := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONTracer(t *testing.T) {
	var out bytes.Buffer
	tr := NewJSONTracer(&out)
	for _, s := range traceStates {
		tr.Trace(s)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != len(traceStates) {
		t.Fatalf("got %d lines, want %d", len(lines), len(traceStates))
	}
	for i, line := range lines {
		got := map[string]string{}
		d := jx.DecodeStr(line)
		err := d.Obj(func(d *jx.Decoder, key string) error {
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			got[key] = raw.String()
			return nil
		})
		if err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		s := traceStates[i]
		want := map[string]string{
			"addr": strconv16(s.Addr), "op": strconv16(s.Opcode),
			"name": `"` + OpcodeName(s.Opcode) + `"`,
			"a": strconv16(uint16(s.A)), "f": strconv16(uint16(s.F)),
			"b": strconv16(uint16(s.B)), "c": strconv16(uint16(s.C)),
			"d": strconv16(uint16(s.D)), "e": strconv16(uint16(s.E)),
			"h": strconv16(uint16(s.H)), "l": strconv16(uint16(s.L)),
			"sp": strconv16(s.SP), "pc": strconv16(s.PC),
			"ime": "false", "halt": "false",
			"cycles": strconv16(uint16(s.Cycles)),
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("line %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func strconv16(v uint16) string {
	var e jx.Encoder
	e.UInt16(v)
	return e.String()
}
