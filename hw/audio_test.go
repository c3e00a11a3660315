package hw

import (
	"testing"

	"dotboy/hw/apu"
)

func TestAudioMixerResample(t *testing.T) {
	am := NewAudioMixer(44100)

	var frames [][]int16
	cancel := am.Out.Subscribe(func(buf []int16) {
		frames = append(frames, append([]int16(nil), buf...))
	})
	defer cancel()

	// square wave, 128 APU samples period, left only.
	const perFrame = DotsPerFrame / apu.TicksPerSample
	for i := range perFrame {
		var left int16
		if i/64%2 == 0 {
			left = 1000
		}
		am.Sample(apu.NewSample(left, 0))
	}
	am.EndFrame()

	if len(frames) != 1 {
		t.Fatalf("got %d published frames, want 1", len(frames))
	}
	buf := frames[0]
	n := len(buf) / AudioChannels
	if n < 736 || n > 740 {
		t.Errorf("got %d samples for one frame, want ~738", n)
	}

	var leftEnergy, rightEnergy int
	for i := 0; i < len(buf); i += 2 {
		leftEnergy += abs(int(buf[i]))
		rightEnergy += abs(int(buf[i+1]))
	}
	if leftEnergy == 0 {
		t.Error("left channel is silent")
	}
	if rightEnergy != 0 {
		t.Errorf("right channel energy = %d, want silence", rightEnergy)
	}
}

func TestAudioMixerSilence(t *testing.T) {
	am := NewAudioMixer(48000)
	var published int
	cancel := am.Out.Subscribe(func(buf []int16) {
		published++
		for i, v := range buf {
			if v != 0 {
				t.Fatalf("sample %d = %d, want 0", i, v)
			}
		}
	})
	defer cancel()

	for range 1000 {
		am.Sample(0)
	}
	am.EndFrame()
	if published != 1 {
		t.Errorf("published %d frames, want 1", published)
	}
}

func TestAudioMixerPoweredOff(t *testing.T) {
	am := NewAudioMixer(44100)
	var ticks uint64
	am.Clock = func() uint64 { return ticks }
	am.Reset()

	var frames [][]int16
	cancel := am.Out.Subscribe(func(buf []int16) {
		frames = append(frames, append([]int16(nil), buf...))
	})
	defer cancel()

	// Powered on for the first half of the frame only.
	for ticks < DotsPerFrame {
		ticks++
		if ticks%apu.TicksPerSample == 0 && ticks < DotsPerFrame/2 {
			am.Sample(0)
		}
	}
	am.EndFrame()

	// Powered off for a whole frame.
	ticks += DotsPerFrame
	am.EndFrame()

	if len(frames) != 2 {
		t.Fatalf("got %d published frames, want 2", len(frames))
	}
	for i, buf := range frames {
		if n := len(buf) / AudioChannels; n < 736 || n > 740 {
			t.Errorf("frame %d: got %d samples, want ~738", i, n)
		}
		for j, v := range buf {
			if v != 0 {
				t.Fatalf("frame %d: sample %d = %d, want 0", i, j, v)
			}
		}
	}
}

func TestAudioMixerRate(t *testing.T) {
	if got := NewAudioMixer(0).SampleRate(); got != 44100 {
		t.Errorf("SampleRate() = %d, want default 44100", got)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
