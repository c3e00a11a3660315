package audio

import (
	"encoding/binary"
	"sync"
)

// Stream is a FIFO of little-endian 16-bit stereo PCM. The emulation pushes
// samples at the end of each frame and the host audio player reads them.
// Reads never block: missing samples are played as silence.
type Stream struct {
	mu  sync.Mutex
	buf []byte
	max int // maximum buffered bytes, older samples are dropped beyond

	underruns int
}

// NewStream returns a stream buffering at most maxSamples stereo samples.
func NewStream(maxSamples int) *Stream {
	return &Stream{max: maxSamples * 4}
}

// Push queues interleaved stereo samples.
func (s *Stream) Push(samples []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range samples {
		s.buf = binary.LittleEndian.AppendUint16(s.buf, uint16(v))
	}
	if over := len(s.buf) - s.max; over > 0 {
		over = (over + 3) &^ 3
		s.buf = s.buf[:copy(s.buf, s.buf[over:])]
	}
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := copy(p, s.buf)
	s.buf = s.buf[:copy(s.buf, s.buf[n:])]
	if n < len(p) {
		clear(p[n:])
		s.underruns++
	}
	return len(p), nil
}

// Buffered returns the number of queued bytes.
func (s *Stream) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// Underruns returns how many reads were completed with silence.
func (s *Stream) Underruns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.underruns
}
