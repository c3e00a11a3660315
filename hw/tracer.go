package hw

import (
	"io"
	"strconv"

	"github.com/go-faster/jx"

	"dotboy/hw/snapshot"
)

// Tracer receives the CPU state before each instruction. Subscribe its
// Trace method to CPU.State.
type Tracer interface {
	Trace(s snapshot.CPU)
}

func hexEncode(dst []byte, v byte) {
	const hextable = "0123456789ABCDEF"
	dst[0] = hextable[v>>4]
	dst[1] = hextable[v&0x0f]
}

func appendHex8(buf []byte, v uint8) []byte {
	var b [2]byte
	hexEncode(b[:], v)
	return append(buf, b[:]...)
}

func appendHex16(buf []byte, v uint16) []byte {
	buf = appendHex8(buf, uint8(v>>8))
	return appendHex8(buf, uint8(v))
}

func appendReg(buf []byte, name string, v uint8) []byte {
	buf = append(buf, name...)
	buf = append(buf, ':')
	buf = appendHex8(buf, v)
	return append(buf, ' ')
}

func appendPair(buf []byte, name string, hi, lo uint8) []byte {
	buf = append(buf, name...)
	buf = append(buf, ':')
	buf = appendHex8(buf, hi)
	buf = appendHex8(buf, lo)
	return append(buf, ' ')
}

// TextTracer writes one line per instruction:
//
//	0150  CB7C  BIT 7,H      A:01 F:B0 BC:0013 DE:00D8 HL:014D SP:FFFE CYC:1234
type TextTracer struct {
	w   io.Writer
	buf []byte
}

func NewTextTracer(w io.Writer) *TextTracer {
	return &TextTracer{w: w, buf: make([]byte, 0, 96)}
}

func (t *TextTracer) Trace(s snapshot.CPU) {
	buf := appendHex16(t.buf[:0], s.Addr)
	buf = append(buf, ' ', ' ')
	if s.Opcode > 0xFF {
		buf = appendHex16(buf, s.Opcode)
	} else {
		buf = appendHex8(buf, uint8(s.Opcode))
		buf = append(buf, ' ', ' ')
	}
	buf = append(buf, ' ', ' ')

	const nameCol = 13
	name := OpcodeName(s.Opcode)
	buf = append(buf, name...)
	for range nameCol - len(name) {
		buf = append(buf, ' ')
	}
	if len(name) >= nameCol {
		buf = append(buf, ' ')
	}

	buf = appendReg(buf, "A", s.A)
	buf = appendReg(buf, "F", s.F)
	buf = appendPair(buf, "BC", s.B, s.C)
	buf = appendPair(buf, "DE", s.D, s.E)
	buf = appendPair(buf, "HL", s.H, s.L)
	buf = append(buf, "SP:"...)
	buf = appendHex16(buf, s.SP)
	buf = append(buf, " CYC:"...)
	buf = strconv.AppendUint(buf, s.Cycles, 10)
	buf = append(buf, '\n')

	t.buf = buf
	t.w.Write(buf)
}

// JSONTracer writes one JSON object per instruction (JSON lines).
type JSONTracer struct {
	w io.Writer
	e jx.Encoder
}

func NewJSONTracer(w io.Writer) *JSONTracer {
	return &JSONTracer{w: w}
}

func (t *JSONTracer) Trace(s snapshot.CPU) {
	e := &t.e
	e.Reset()
	e.ObjStart()
	e.FieldStart("addr")
	e.UInt16(s.Addr)
	e.FieldStart("op")
	e.UInt16(s.Opcode)
	e.FieldStart("name")
	e.Str(OpcodeName(s.Opcode))
	for _, r := range []struct {
		name string
		val  uint8
	}{
		{"a", s.A}, {"f", s.F},
		{"b", s.B}, {"c", s.C},
		{"d", s.D}, {"e", s.E},
		{"h", s.H}, {"l", s.L},
	} {
		e.FieldStart(r.name)
		e.UInt8(r.val)
	}
	e.FieldStart("sp")
	e.UInt16(s.SP)
	e.FieldStart("pc")
	e.UInt16(s.PC)
	e.FieldStart("ime")
	e.Bool(s.IME)
	e.FieldStart("halt")
	e.Bool(s.Halt)
	e.FieldStart("cycles")
	e.UInt64(s.Cycles)
	e.ObjEnd()

	t.w.Write(append(e.Bytes(), '\n'))
}
