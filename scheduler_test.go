package zwebgpu

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// manualSource delivers frames only when the test calls Fire, so tests
// control the chain deterministically.
type manualSource struct {
	mu       sync.Mutex
	pending  func(now time.Time)
	requests int
	cancels  int
}

func (m *manualSource) RequestFrame(fn func(now time.Time)) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = fn
	m.requests++
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.pending != nil {
			m.pending = nil
			m.cancels++
		}
	}
}

// Fire delivers the pending frame at the given time. Returns false if
// no frame was pending.
func (m *manualSource) Fire(now time.Time) bool {
	m.mu.Lock()
	fn := m.pending
	m.pending = nil
	m.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(now)
	return true
}

func TestSchedulerDeltaTime(t *testing.T) {
	src := &manualSource{}
	s := NewScheduler(SchedulerConfig{Source: src})

	var deltas []time.Duration
	if err := s.Start(func(elapsed, delta time.Duration) {
		deltas = append(deltas, delta)
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	base := time.Now()
	src.Fire(base)
	src.Fire(base.Add(16 * time.Millisecond))
	src.Fire(base.Add(48 * time.Millisecond))

	want := []time.Duration{0, 16 * time.Millisecond, 32 * time.Millisecond}
	if len(deltas) != len(want) {
		t.Fatalf("got %d frames, want %d", len(deltas), len(want))
	}
	for i := range want {
		if deltas[i] != want[i] {
			t.Errorf("delta[%d] = %v, want %v", i, deltas[i], want[i])
		}
	}
}

func TestSchedulerDeltaClamped(t *testing.T) {
	src := &manualSource{}
	s := NewScheduler(SchedulerConfig{Source: src})

	var last time.Duration
	if err := s.Start(func(elapsed, delta time.Duration) { last = delta }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	base := time.Now()
	src.Fire(base)
	// Simulate a long stall, e.g. a backgrounded tab.
	src.Fire(base.Add(5 * time.Second))
	if last != maxDelta {
		t.Errorf("stall delta = %v, want clamp to %v", last, maxDelta)
	}
}

func TestSchedulerStartWhileRunning(t *testing.T) {
	s := NewScheduler(SchedulerConfig{Source: &manualSource{}})
	if err := s.Start(func(elapsed, delta time.Duration) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	err := s.Start(func(elapsed, delta time.Duration) {})
	if !errors.Is(err, ErrSchedulerRunning) {
		t.Errorf("second Start err = %v, want ErrSchedulerRunning", err)
	}
}

func TestSchedulerStopIdempotent(t *testing.T) {
	src := &manualSource{}
	s := NewScheduler(SchedulerConfig{Source: src})

	// Stop before Start must be safe.
	s.Stop()

	calls := 0
	if err := s.Start(func(elapsed, delta time.Duration) { calls++ }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.Fire(time.Now())

	s.Stop()
	s.Stop()

	// A frame delivered after Stop must be dropped.
	if src.Fire(time.Now()) {
		t.Error("frame still pending after Stop")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if s.Running() {
		t.Error("Running() = true after Stop")
	}
}

func TestSchedulerStopFromCallback(t *testing.T) {
	src := &manualSource{}
	s := NewScheduler(SchedulerConfig{Source: src})

	calls := 0
	if err := s.Start(func(elapsed, delta time.Duration) {
		calls++
		s.Stop()
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	src.Fire(time.Now())
	if src.Fire(time.Now()) {
		t.Error("chain rescheduled after Stop from callback")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSchedulerRestart(t *testing.T) {
	src := &manualSource{}
	s := NewScheduler(SchedulerConfig{Source: src})

	if err := s.Start(func(elapsed, delta time.Duration) {}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	src.Fire(time.Now())
	s.Stop()

	if err := s.Start(func(elapsed, delta time.Duration) {}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer s.Stop()

	// The clock resets on restart.
	if got := s.FrameCount(); got != 0 {
		t.Errorf("FrameCount after restart = %d, want 0", got)
	}
	src.Fire(time.Now())
	if got := s.FrameCount(); got != 1 {
		t.Errorf("FrameCount = %d, want 1", got)
	}
}

func TestSchedulerRestartWithFrameInFlight(t *testing.T) {
	src := &manualSource{}
	s := NewScheduler(SchedulerConfig{Source: src})

	// The first run's frame restarts the scheduler from inside the
	// callback, so the old chain link finishes while a new run is
	// already active.
	if err := s.Start(func(elapsed, delta time.Duration) {
		s.Stop()
		if err := s.Start(func(elapsed, delta time.Duration) {}); err != nil {
			t.Errorf("restart: %v", err)
		}
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	src.Fire(time.Now())

	// Exactly one chain link may be outstanding: the new run's. The
	// finished frame belongs to the stopped run and must not
	// reschedule itself into the restarted scheduler.
	src.mu.Lock()
	requests := src.requests
	src.mu.Unlock()
	if requests != 2 {
		t.Errorf("frame requests = %d, want 2 (one per run)", requests)
	}
	if got := s.FrameCount(); got != 0 {
		t.Errorf("FrameCount after restart = %d, want 0", got)
	}

	// The surviving link drives the new run.
	if !src.Fire(time.Now()) {
		t.Fatal("no frame pending for the restarted run")
	}
	if got := s.FrameCount(); got != 1 {
		t.Errorf("FrameCount = %d, want 1", got)
	}
}

func TestSchedulerFPSWindow(t *testing.T) {
	src := &manualSource{}
	var reported []float64
	s := NewScheduler(SchedulerConfig{
		Source: src,
		OnFPS:  func(fps float64) { reported = append(reported, fps) },
	})

	if err := s.Start(func(elapsed, delta time.Duration) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	base := time.Now()
	// 11 frames 100ms apart: the window rolls at the 1s mark.
	for i := range 11 {
		src.Fire(base.Add(time.Duration(i) * 100 * time.Millisecond))
	}

	if len(reported) != 1 {
		t.Fatalf("FPS callbacks = %d, want 1", len(reported))
	}
	// 11 frames over exactly one second.
	if reported[0] < 10.5 || reported[0] > 11.5 {
		t.Errorf("fps = %v, want ~11", reported[0])
	}
	if got := s.FPS(); got != reported[0] {
		t.Errorf("FPS() = %v, want %v", got, reported[0])
	}
}

func TestTickerSourceDelivers(t *testing.T) {
	src := &TickerSource{Interval: time.Millisecond}
	done := make(chan time.Time, 1)
	src.RequestFrame(func(now time.Time) { done <- now })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker frame never delivered")
	}
}

func TestTickerSourceCancel(t *testing.T) {
	src := &TickerSource{Interval: 10 * time.Millisecond}
	fired := make(chan struct{}, 1)
	cancel := src.RequestFrame(func(now time.Time) { fired <- struct{}{} })
	cancel()
	select {
	case <-fired:
		t.Error("frame fired after cancel")
	case <-time.After(50 * time.Millisecond):
	}
}
