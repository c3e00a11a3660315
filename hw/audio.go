package hw

import (
	"github.com/arl/blip"

	"dotboy/emu/event"
	"dotboy/emu/log"
	"dotboy/hw/apu"
)

// SampleClockRate is the rate at which the APU outputs samples.
const SampleClockRate = ClockRate / apu.TicksPerSample

const (
	maxSampleRate      = 96000
	maxSamplesPerFrame = maxSampleRate / 50 * 2 // with room for slower frames
	AudioChannels      = 2
	BitsPerSample      = 16
)

// AudioMixer resamples the APU output to the host sample rate. It is fed
// with APU sound events and produces interleaved stereo frames.
type AudioMixer struct {
	outbuf   []int16
	bufleft  *blip.Buffer
	bufright *blip.Buffer

	prevOutleft  int16
	prevOutright int16

	time       uint64 // APU samples since the start of the frame
	next       uint64 // time following the last APU sample
	frameStart uint64
	sampleRate int

	// Clock, when set, returns the console tick count. Sample times are then
	// taken from it, so that the output keeps the length of emulated time
	// while the APU is powered off and silent.
	Clock func() uint64

	// Out receives the samples of each frame, interleaved left/right. The
	// slice is reused by the next frame.
	Out event.Hub[[]int16]
}

func NewAudioMixer(sampleRate int) *AudioMixer {
	if sampleRate <= 0 || sampleRate > maxSampleRate {
		log.ModSound.WarnZ("unsupported sample rate, using default").
			Int("rate", sampleRate).
			End()
		sampleRate = 44100
	}
	am := &AudioMixer{
		outbuf:     make([]int16, maxSamplesPerFrame*AudioChannels),
		bufleft:    blip.NewBuffer(maxSamplesPerFrame),
		bufright:   blip.NewBuffer(maxSamplesPerFrame),
		sampleRate: sampleRate,
	}
	am.Reset()
	return am
}

func (am *AudioMixer) SampleRate() int { return am.sampleRate }

func (am *AudioMixer) Reset() {
	am.prevOutleft = 0
	am.prevOutright = 0
	am.time = 0
	am.next = 0
	if am.Clock != nil {
		am.frameStart = am.Clock()
	}
	am.bufleft.Clear()
	am.bufright.Clear()
	am.bufleft.SetRates(SampleClockRate, float64(am.sampleRate))
	am.bufright.SetRates(SampleClockRate, float64(am.sampleRate))
}

// elapsed returns the ticks run since the start of the frame.
func (am *AudioMixer) elapsed() uint64 {
	ticks := am.Clock()
	if ticks < am.frameStart {
		// console reset
		am.frameStart = ticks
	}
	return ticks - am.frameStart
}

// now returns the time of the APU sample produced during the current tick,
// relative to the start of the frame.
func (am *AudioMixer) now() uint64 {
	if am.Clock == nil {
		return am.time
	}
	if n := am.elapsed(); n > 0 {
		return (n - 1) / apu.TicksPerSample
	}
	return 0
}

// silence brings both channels back to 0 at time t.
func (am *AudioMixer) silence(t uint64) {
	if am.prevOutleft != 0 {
		am.bufleft.AddDelta(t, -int32(am.prevOutleft))
		am.prevOutleft = 0
	}
	if am.prevOutright != 0 {
		am.bufright.AddDelta(t, -int32(am.prevOutright))
		am.prevOutright = 0
	}
}

// Sample adds one APU output sample, use it as an APU.Sound subscriber.
func (am *AudioMixer) Sample(s apu.Sample) {
	t := am.now()
	if t > am.next {
		// The APU was off since the last sample.
		am.silence(am.next)
	}

	left, right := s.Left()*4, s.Right()*4
	if d := left - am.prevOutleft; d != 0 {
		am.bufleft.AddDelta(t, int32(d))
		am.prevOutleft = left
	}
	if d := right - am.prevOutright; d != 0 {
		am.bufright.AddDelta(t, int32(d))
		am.prevOutright = right
	}
	am.next = t + 1
	am.time++
}

// EndFrame resamples the samples of the current frame and publishes them.
// With a Clock, a frame without APU samples still produces silence.
func (am *AudioMixer) EndFrame() {
	end := am.time
	if am.Clock != nil {
		end = am.elapsed() / apu.TicksPerSample
		if end > am.next {
			am.silence(am.next)
		}
	}

	am.bufleft.EndFrame(int(end))
	am.bufright.EndFrame(int(end))
	am.time = 0
	am.next = 0
	if am.Clock != nil {
		am.frameStart = am.Clock()
	}

	n := am.bufleft.ReadSamples(am.outbuf, maxSamplesPerFrame, blip.Stereo)
	am.bufright.ReadSamples(am.outbuf[1:], maxSamplesPerFrame, blip.Stereo)
	if n == 0 {
		return
	}
	am.Out.Publish(am.outbuf[:n*AudioChannels])
}
