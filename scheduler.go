package zwebgpu

import (
	"errors"
	"sync"
	"time"
)

// ErrSchedulerRunning is returned by Start when the scheduler already
// has an active frame chain.
var ErrSchedulerRunning = errors.New("zwebgpu: scheduler already running")

// FrameFunc is the per-frame demo callback. elapsed is the time since
// the loop started; delta is the time since the previous frame
// (clamped, zero on the first frame). Frame callbacks must not block:
// a callback that suspends stalls the visual loop.
type FrameFunc func(elapsed, delta time.Duration)

// FrameSource schedules a single frame callback, the way a browser's
// per-frame vsync callback does. RequestFrame arranges for fn to be
// called once with the frame timestamp and returns a cancel function
// that prevents the call if it has not happened yet.
type FrameSource interface {
	RequestFrame(fn func(now time.Time)) (cancel func())
}

// TickerSource is a FrameSource backed by a fixed-interval timer, for
// headless and test use where no vsync signal exists.
type TickerSource struct {
	// Interval between frames. Zero defaults to ~60 Hz.
	Interval time.Duration
}

// RequestFrame implements FrameSource.
func (t *TickerSource) RequestFrame(fn func(now time.Time)) (cancel func()) {
	interval := t.Interval
	if interval <= 0 {
		interval = 16667 * time.Microsecond
	}
	timer := time.AfterFunc(interval, func() { fn(time.Now()) })
	return func() { timer.Stop() }
}

// Scheduler drives a continuous frame callback chain on a
// FrameSource. Each frame it advances the FrameClock, invokes the
// demo's FrameFunc with elapsed and delta time, and reschedules
// itself. It lives outside any UI reactivity machinery: the only
// UI-facing re-entry is the optional FPS callback, invoked at most
// once per second.
type Scheduler struct {
	mu      sync.Mutex
	source  FrameSource
	clock   FrameClock
	fn      FrameFunc
	onFPS   func(fps float64)
	running bool
	gen     uint64
	cancel  func()
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// Source supplies per-frame callbacks. Nil defaults to a 60 Hz
	// TickerSource.
	Source FrameSource

	// OnFPS, if set, receives the measured frame rate at most once
	// per second.
	OnFPS func(fps float64)
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Source == nil {
		cfg.Source = &TickerSource{}
	}
	return &Scheduler{source: cfg.Source, onFPS: cfg.OnFPS}
}

// Start begins the frame chain, invoking fn every frame until Stop.
// Returns ErrSchedulerRunning if the chain is already active.
func (s *Scheduler) Start(fn FrameFunc) error {
	if fn == nil {
		return errors.New("zwebgpu: nil frame callback")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerRunning
	}
	s.running = true
	s.gen++
	s.fn = fn
	s.clock = FrameClock{}
	s.cancel = s.request(s.gen)
	return nil
}

// request schedules one chain link stamped with the run it belongs
// to. The caller holds s.mu.
func (s *Scheduler) request(gen uint64) func() {
	return s.source.RequestFrame(func(now time.Time) { s.frame(gen, now) })
}

// Stop cancels the frame chain. After Stop returns, no further frame
// callbacks run. Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.fn = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Running reports whether the frame chain is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// FPS returns the frame rate over the last completed one-second
// window, or 0 before the first window completes.
func (s *Scheduler) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.FPS()
}

// FrameCount returns the number of frames run since Start.
func (s *Scheduler) FrameCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.FrameCount()
}

// frame is one link of the chain. A Stop racing the source's delivery
// is resolved here: a frame arriving after Stop is dropped, and a
// frame left over from a run stopped before a restart fails the
// generation check so it cannot splice itself into the new chain.
func (s *Scheduler) frame(gen uint64, now time.Time) {
	s.mu.Lock()
	if !s.running || s.gen != gen {
		s.mu.Unlock()
		return
	}
	elapsed, delta, fpsUpdated := s.clock.Tick(now)
	fps := s.clock.FPS()
	fn := s.fn
	onFPS := s.onFPS
	s.mu.Unlock()

	// The callback runs outside the lock so it may call Stop.
	fn(elapsed, delta)
	if fpsUpdated && onFPS != nil {
		onFPS(fps)
	}

	s.mu.Lock()
	if s.running && s.gen == gen {
		s.cancel = s.request(gen)
	}
	s.mu.Unlock()
}
