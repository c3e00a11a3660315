// Package audio holds the host side sinks of the mixed sound output.
package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"dotboy/emu/log"
)

// WAVDump records interleaved 16-bit stereo samples into a WAV file.
type WAVDump struct {
	f   *os.File
	enc *wav.Encoder
	buf goaudio.IntBuffer

	failed bool
}

func CreateWAV(path string, sampleRate int) (*WAVDump, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wav dump: %w", err)
	}
	const pcm = 1
	d := &WAVDump{
		f:   f,
		enc: wav.NewEncoder(f, sampleRate, 16, 2, pcm),
		buf: goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 2, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}
	return d, nil
}

// Write appends samples to the file, use it as a mixer output subscriber.
// Errors are logged once and further samples are dropped.
func (d *WAVDump) Write(samples []int16) {
	if d.failed {
		return
	}
	d.buf.Data = d.buf.Data[:0]
	for _, s := range samples {
		d.buf.Data = append(d.buf.Data, int(s))
	}
	if err := d.enc.Write(&d.buf); err != nil {
		log.ModSound.ErrorZ("wav dump write failed").
			String("path", d.f.Name()).
			Error("err", err).
			End()
		d.failed = true
	}
}

// Close finalizes the WAV header and closes the file.
func (d *WAVDump) Close() error {
	if err := d.enc.Close(); err != nil {
		d.f.Close()
		return fmt.Errorf("wav dump: %w", err)
	}
	return d.f.Close()
}
