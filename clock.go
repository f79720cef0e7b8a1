package zwebgpu

import "time"

// maxDelta caps the delta reported after a long stall (for example a
// backgrounded tab). Simulations step at most this far per frame.
const maxDelta = 250 * time.Millisecond

// FrameClock tracks frame timing: absolute time, delta since the
// previous frame, a frame counter, and frames-per-second measured
// over a rolling one-second window.
//
// The scheduler mutates the clock on every frame; demo callbacks only
// read it. FrameClock is not safe for concurrent use on its own; the
// scheduler serializes access.
type FrameClock struct {
	last        time.Time
	start       time.Time
	frameCount  uint64
	windowStart time.Time
	windowCount int
	fps         float64
}

// Tick advances the clock to now and returns the elapsed time since
// the first tick and the delta since the previous tick. The first
// tick reports a zero delta. fpsUpdated is true when the one-second
// window just rolled over, meaning FPS holds a fresh value.
func (c *FrameClock) Tick(now time.Time) (elapsed, delta time.Duration, fpsUpdated bool) {
	if c.last.IsZero() {
		c.start = now
		c.windowStart = now
	} else {
		delta = now.Sub(c.last)
		if delta > maxDelta {
			delta = maxDelta
		}
		if delta < 0 {
			delta = 0
		}
	}
	c.last = now
	c.frameCount++
	c.windowCount++

	if window := now.Sub(c.windowStart); window >= time.Second {
		c.fps = float64(c.windowCount) / window.Seconds()
		c.windowStart = now
		c.windowCount = 0
		fpsUpdated = true
	}
	return now.Sub(c.start), delta, fpsUpdated
}

// FPS returns the frame rate measured over the last completed
// one-second window, or 0 before the first window completes.
func (c *FrameClock) FPS() float64 { return c.fps }

// FrameCount returns the number of ticks so far.
func (c *FrameClock) FrameCount() uint64 { return c.frameCount }
