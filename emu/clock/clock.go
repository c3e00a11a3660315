// Package clock drives the emulation at the console frame rate. Callbacks are
// grouped by cadence: tick callbacks run once per clock tick, frame
// callbacks once per frame after its ticks, and async frame callbacks are
// signalled at the end of each frame without being waited for.
package clock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"dotboy/emu/log"
)

// Timing is the rate configuration of a clock.
type Timing struct {
	Frequency int     // ticks per second
	FPS       float64 // frames per second
}

// DMG is the timing of the original handheld.
var DMG = Timing{Frequency: 4194304, FPS: 59.7275}

// TicksPerFrame returns the number of ticks run per frame, 70224 for DMG.
func (t Timing) TicksPerFrame() int {
	return int(float64(t.Frequency) / t.FPS)
}

// FrameInterval returns the duration of a frame.
func (t Timing) FrameInterval() time.Duration {
	return time.Duration(1e9 / t.FPS)
}

var errStopped = errors.New("clock stopped")

// maxLag is how late the pacer can be before it gives up catching up.
const maxLag = 4

type Clock struct {
	timing Timing

	ticks  []func()
	frames []func()
	asyncs []func()

	tickGate  chan struct{}
	tickDone  chan struct{}
	frameGate chan struct{}
	frameDone chan struct{}
	asyncGate []chan struct{}

	throttle atomic.Bool
	running  atomic.Bool
	nframes  atomic.Uint64

	cancel context.CancelCauseFunc
	g      *errgroup.Group
	once   sync.Once
	err    error
}

func New(t Timing) *Clock {
	c := &Clock{
		timing:    t,
		tickGate:  make(chan struct{}, 1),
		tickDone:  make(chan struct{}, 1),
		frameGate: make(chan struct{}, 1),
		frameDone: make(chan struct{}, 1),
	}
	c.throttle.Store(true)
	return c
}

func (c *Clock) Timing() Timing { return c.timing }

// OnTick, OnFrame and OnAsyncFrame register callbacks. They must be called
// before Start.
func (c *Clock) OnTick(fn func())  { c.ticks = append(c.ticks, fn) }
func (c *Clock) OnFrame(fn func()) { c.frames = append(c.frames, fn) }

func (c *Clock) OnAsyncFrame(fn func()) {
	c.asyncs = append(c.asyncs, fn)
	c.asyncGate = append(c.asyncGate, make(chan struct{}, 1))
}

// SetThrottle enables or disables pacing at the frame rate. Without
// throttling, frames are run back to back.
func (c *Clock) SetThrottle(on bool) { c.throttle.Store(on) }

// Throttled reports whether the clock paces frames.
func (c *Clock) Throttled() bool { return c.throttle.Load() }

// Frames returns the number of frames run so far.
func (c *Clock) Frames() uint64 { return c.nframes.Load() }

// Start launches the workers and the pacer. It returns once all workers are
// ready to run; the clock runs until Stop is called or ctx is cancelled. A
// clock can only be started once.
func (c *Clock) Start(ctx context.Context) {
	if c.g != nil || !c.running.CompareAndSwap(false, true) {
		log.ModClock.PanicZ("clock already started").End()
	}

	ctx, c.cancel = context.WithCancelCause(ctx)
	c.g, ctx = errgroup.WithContext(ctx)

	var ready sync.WaitGroup
	worker := func(name string, fn func(context.Context) error) {
		ready.Add(1)
		c.g.Go(func() error {
			ready.Done()
			log.ModClock.DebugZ("worker started").String("name", name).End()
			err := fn(ctx)
			log.ModClock.DebugZ("worker exited").String("name", name).End()
			return err
		})
	}

	worker("tick", c.tickWorker)
	worker("frame", c.frameWorker)
	for i := range c.asyncs {
		worker("async", func(ctx context.Context) error { return c.asyncWorker(ctx, i) })
	}
	ready.Wait()

	c.g.Go(func() error { return c.pace(ctx) })
	log.ModClock.InfoZ("clock started").
		Int("ticks/frame", c.timing.TicksPerFrame()).
		Duration("interval", c.timing.FrameInterval()).
		End()
}

// Stop cancels all workers and waits for them to exit. No callback is
// called once Stop returns.
func (c *Clock) Stop() {
	if !c.running.Load() {
		return
	}
	c.cancel(errStopped)
	c.Wait()
}

// Wait blocks until the clock stops and returns the first worker error.
func (c *Clock) Wait() error {
	if c.g == nil {
		return nil
	}
	c.once.Do(func() {
		err := c.g.Wait()
		if errors.Is(err, errStopped) {
			err = nil
		}
		c.err = err
		c.running.Store(false)
	})
	return c.err
}

func exitErr(ctx context.Context) error {
	return context.Cause(ctx)
}

// send and recv are gate operations that give up when ctx is done.
func send(ctx context.Context, gate chan<- struct{}) bool {
	select {
	case gate <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func recv(ctx context.Context, gate <-chan struct{}) bool {
	select {
	case <-gate:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Clock) pace(ctx context.Context) error {
	interval := c.timing.FrameInterval()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	next := time.Now()
	for {
		if c.throttle.Load() {
			next = next.Add(interval)
			now := time.Now()
			if d := next.Sub(now); d > 0 {
				timer.Reset(d)
				select {
				case <-timer.C:
				case <-ctx.Done():
					return exitErr(ctx)
				}
			} else if -d > maxLag*interval {
				log.ModClock.DebugZ("pacer lagging, resync").Duration("late", -d).End()
				next = now
			}
		} else {
			next = time.Now()
		}

		if !send(ctx, c.tickGate) || !recv(ctx, c.tickDone) {
			return exitErr(ctx)
		}
		if !send(ctx, c.frameGate) || !recv(ctx, c.frameDone) {
			return exitErr(ctx)
		}
		c.nframes.Add(1)

		for _, gate := range c.asyncGate {
			select {
			case gate <- struct{}{}:
			default:
				// still pending
			}
		}
	}
}

func (c *Clock) runTicks() {
	n := c.timing.TicksPerFrame()
	if len(c.ticks) == 1 {
		tick := c.ticks[0]
		for range n {
			tick()
		}
		return
	}
	for range n {
		for _, tick := range c.ticks {
			tick()
		}
	}
}

func (c *Clock) tickWorker(ctx context.Context) error {
	for recv(ctx, c.tickGate) && ctx.Err() == nil {
		c.runTicks()
		if !send(ctx, c.tickDone) {
			break
		}
	}
	return exitErr(ctx)
}

func (c *Clock) frameWorker(ctx context.Context) error {
	for recv(ctx, c.frameGate) && ctx.Err() == nil {
		for _, fn := range c.frames {
			fn()
		}
		if !send(ctx, c.frameDone) {
			break
		}
	}
	return exitErr(ctx)
}

func (c *Clock) asyncWorker(ctx context.Context, i int) error {
	fn, gate := c.asyncs[i], c.asyncGate[i]
	for recv(ctx, gate) && ctx.Err() == nil {
		fn()
	}
	return exitErr(ctx)
}

// RunFrame runs one frame on the calling goroutine: the ticks, then the
// frame callbacks, then the async frame callbacks. It must not be used
// while the clock is started.
func (c *Clock) RunFrame() {
	if c.running.Load() {
		log.ModClock.PanicZ("RunFrame called on a started clock").End()
	}
	c.runTicks()
	for _, fn := range c.frames {
		fn()
	}
	c.nframes.Add(1)
	for _, fn := range c.asyncs {
		fn()
	}
}
