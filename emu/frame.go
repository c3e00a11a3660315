package emu

import (
	"image"
	"sync"

	"dotboy/emu/log"
	"dotboy/hw"
	"dotboy/hw/hwdefs"
	"dotboy/hw/snapshot"
)

// FrameState is a copy of the console outputs taken at a frame boundary. The
// frame callback captures it while the console is idle, the async frame
// callback consumes it while the next frame runs.
type FrameState struct {
	Number uint64 // 1 for the first frame
	State  snapshot.GameBoy
	Screen *image.RGBA
	Audio  []int16 // interleaved stereo, at the host sample rate
	VRAM   []byte  // empty unless the debug view has subscribers
}

// maxPendingFrames bounds the frames waiting for the async callback.
const maxPendingFrames = 8

// frameQueue hands frame states over to the async callback and recycles
// them afterwards.
type frameQueue struct {
	mu      sync.Mutex
	pending []*FrameState
	free    []*FrameState
	dropped int
}

// get returns a frame state to fill.
func (q *frameQueue) get() *FrameState {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n := len(q.free); n > 0 {
		st := q.free[n-1]
		q.free = q.free[:n-1]
		return st
	}
	return &FrameState{
		Screen: image.NewRGBA(image.Rect(0, 0, hwdefs.ScreenWidth, hwdefs.ScreenHeight)),
	}
}

// push queues a filled frame state. When the async callback lags too far
// behind, the oldest pending frame is dropped.
func (q *frameQueue) push(st *FrameState) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == maxPendingFrames {
		q.free = append(q.free, q.pending[0])
		q.pending = append(q.pending[:0], q.pending[1:]...)
		q.dropped++
		log.ModEmu.WarnZ("frame dropped, async consumer lagging").
			Uint64("frame", st.Number).
			Int("dropped", q.dropped).
			End()
	}
	q.pending = append(q.pending, st)
}

// take removes and returns the pending frames, oldest first.
func (q *frameQueue) take(buf []*FrameState) []*FrameState {
	q.mu.Lock()
	defer q.mu.Unlock()

	buf = append(buf[:0], q.pending...)
	clear(q.pending)
	q.pending = q.pending[:0]
	return buf
}

func (q *frameQueue) release(st *FrameState) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.free = append(q.free, st)
}

// captureFrame fills a frame state from the console, which is idle.
func (e *Emulator) captureFrame() {
	st := e.frames.get()
	st.Number = e.Clock.Frames() + 1
	st.State = e.GB.Snapshot()
	copy(st.Screen.Pix, e.Out.Frame().Pix)
	st.Audio = append(st.Audio[:0], e.audio...)
	e.audio = e.audio[:0]

	st.VRAM = st.VRAM[:0]
	if e.Out.DebugImage.Active() {
		st.VRAM = append(st.VRAM, e.GB.Bus.Mem(hw.VRAM)...)
	}
	e.frames.push(st)
}

// collectAudio gathers the mixer output of the current frame.
func (e *Emulator) collectAudio(samples []int16) {
	e.audio = append(e.audio, samples...)
}

// flushFrames delivers the captured frames to the audio sinks, the debug
// view and the Frames subscribers. It runs as the async frame callback.
func (e *Emulator) flushFrames() {
	e.flushing = e.frames.take(e.flushing)
	for _, st := range e.flushing {
		if len(st.Audio) > 0 {
			if e.Audio != nil {
				e.Audio.Push(st.Audio)
			}
			if e.wav != nil {
				e.wav.Write(st.Audio)
			}
		}
		if len(st.VRAM) > 0 {
			e.Out.PublishDebug(st.VRAM)
		}
		e.Frames.Publish(st)
		e.frames.release(st)
	}
	clear(e.flushing)
}
