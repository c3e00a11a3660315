package audio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/google/go-cmp/cmp"
)

func TestWAVDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	d, err := CreateWAV(path, 44100)
	if err != nil {
		t.Fatal(err)
	}
	d.Write([]int16{1, -1, 100, -100})
	d.Write([]int16{32767, -32768})
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if buf.Format.NumChannels != 2 || buf.Format.SampleRate != 44100 {
		t.Errorf("format = %+v, want 2 channels at 44100Hz", *buf.Format)
	}
	want := []int{1, -1, 100, -100, 32767, -32768}
	if diff := cmp.Diff(want, buf.Data); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
}

func TestStream(t *testing.T) {
	s := NewStream(2)
	s.Push([]int16{0x0102, -2})

	p := make([]byte, 8)
	n, err := s.Read(p)
	if err != nil || n != len(p) {
		t.Fatalf("Read = %d, %v", n, err)
	}
	want := []byte{0x02, 0x01, 0xFE, 0xFF, 0, 0, 0, 0}
	if !bytes.Equal(p, want) {
		t.Errorf("Read data = % X, want % X", p, want)
	}
	if s.Underruns() != 1 {
		t.Errorf("Underruns() = %d, want 1", s.Underruns())
	}
}

func TestStreamDropsOldest(t *testing.T) {
	s := NewStream(2)
	s.Push([]int16{1, 1, 2, 2, 3, 3})
	if got := s.Buffered(); got != 8 {
		t.Fatalf("Buffered() = %d, want 8", got)
	}

	p := make([]byte, 8)
	s.Read(p)
	want := []byte{2, 0, 2, 0, 3, 0, 3, 0}
	if !bytes.Equal(p, want) {
		t.Errorf("Read data = % X, want % X", p, want)
	}
}
