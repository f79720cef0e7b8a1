package zwebgpu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZPredou/ZWebGpu/backend"
	"github.com/ZPredou/ZWebGpu/gpu"
	"github.com/ZPredou/ZWebGpu/gpu/gputest"
)

// stubDemo records lifecycle calls.
type stubDemo struct {
	mu         sync.Mutex
	gc         *GraphicsContext
	initSizeW  uint32
	initSizeH  uint32
	initErr    error
	frameErr   error
	frames     int
	resizes    [][2]uint32
	closed     int
}

func (d *stubDemo) Entry() CatalogEntry {
	return CatalogEntry{ID: "stub", Title: "Stub", Category: "test"}
}

func (d *stubDemo) Init(gc *GraphicsContext) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initErr != nil {
		return d.initErr
	}
	d.gc = gc
	d.initSizeW, d.initSizeH = gc.Surface().Size()
	return nil
}

func (d *stubDemo) Frame(elapsed, delta time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames++
	return d.frameErr
}

func (d *stubDemo) Resize(w, h uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resizes = append(d.resizes, [2]uint32{w, h})
}

func (d *stubDemo) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
}

func (d *stubDemo) frameCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

func (d *stubDemo) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// stateRecorder collects transitions and signals each one.
type stateRecorder struct {
	mu     sync.Mutex
	states []State
	ch     chan State
}

func newStateRecorder() *stateRecorder {
	return &stateRecorder{ch: make(chan State, 16)}
}

func (r *stateRecorder) record(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
	r.ch <- s
}

func (r *stateRecorder) wait(t *testing.T, want State) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-r.ch:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %v", want)
		}
	}
}

type fixture struct {
	provider *fakeProvider
	demo     *stubDemo
	canvas   *gputest.Canvas
	obs      *fakeObserver
	src      *manualSource
	rec      *stateRecorder
	ctrl     *Controller
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()
	f := &fixture{
		provider: newFakeProvider(name),
		demo:     &stubDemo{},
		canvas:   gputest.NewCanvas(800, 600, 2),
		obs:      &fakeObserver{},
		src:      &manualSource{},
		rec:      newStateRecorder(),
	}
	f.provider.register(t)
	ctrl, err := NewController(ControllerConfig{
		Canvas:   f.canvas,
		Observer: f.obs,
		Source:   f.src,
		Demo:     f.demo,
		Acquire:  AcquireOptions{Backend: name},
		Acquirer: NewAcquirer(),
		OnState:  f.rec.record,
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	f.ctrl = ctrl
	t.Cleanup(ctrl.Unmount)
	return f
}

func TestControllerMountToReady(t *testing.T) {
	f := newFixture(t, "lc-ready")

	if got := f.ctrl.State(); got != StateUninitialized {
		t.Fatalf("initial state = %v, want uninitialized", got)
	}
	if err := f.ctrl.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	f.rec.wait(t, StateReady)

	// The surface was configured at mount size before Init ran:
	// 800x600 CSS at 2x must be 1600x1200.
	if f.demo.initSizeW != 1600 || f.demo.initSizeH != 1200 {
		t.Errorf("size at Init = %dx%d, want 1600x1200",
			f.demo.initSizeW, f.demo.initSizeH)
	}

	f.src.Fire(time.Now())
	if got := f.demo.frameCount(); got != 1 {
		t.Errorf("frames = %d, want 1", got)
	}
}

func TestControllerMountTwice(t *testing.T) {
	f := newFixture(t, "lc-twice")
	if err := f.ctrl.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	f.rec.wait(t, StateReady)
	if err := f.ctrl.Mount(context.Background()); err == nil {
		t.Error("second Mount should fail while mounted")
	}
}

func TestControllerAcquisitionFailure(t *testing.T) {
	f := newFixture(t, "lc-fail")
	for _, tier := range adapterTiers {
		f.provider.tierErrs[tier] = fmt.Errorf("%w: nope", gpu.ErrAdapterUnavailable)
	}

	if err := f.ctrl.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	f.rec.wait(t, StateError)

	msg := f.ctrl.ErrorMessage()
	if !strings.Contains(msg, "no suitable graphics adapter") {
		t.Errorf("message %q should name the adapter failure", msg)
	}
	if strings.Contains(msg, "not available in this environment") {
		t.Errorf("message %q must not read as capability-absent", msg)
	}
}

func TestControllerCapabilityAbsentMessage(t *testing.T) {
	f := newFixture(t, "lc-absent")
	f.provider.probeErr = fmt.Errorf("%w: no api", gpu.ErrCapabilityAbsent)

	if err := f.ctrl.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	f.rec.wait(t, StateError)

	if msg := f.ctrl.ErrorMessage(); !strings.Contains(msg, "not available in this environment") {
		t.Errorf("message %q should name the missing capability", msg)
	}
}

func TestControllerInitFailure(t *testing.T) {
	f := newFixture(t, "lc-init")
	f.demo.initErr = errors.New("shader compile failed")

	if err := f.ctrl.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	f.rec.wait(t, StateError)

	if got := f.demo.closeCount(); got != 1 {
		t.Errorf("demo closes = %d, want 1 after Init failure", got)
	}
	if !strings.Contains(f.ctrl.ErrorMessage(), "shader compile failed") {
		t.Errorf("message %q should carry the Init error", f.ctrl.ErrorMessage())
	}
}

func TestControllerUnmountFromReady(t *testing.T) {
	f := newFixture(t, "lc-unmount")
	if err := f.ctrl.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	f.rec.wait(t, StateReady)
	f.src.Fire(time.Now())

	f.ctrl.Unmount()

	if got := f.ctrl.State(); got != StateUninitialized {
		t.Errorf("state after Unmount = %v, want uninitialized", got)
	}
	if f.src.Fire(time.Now()) {
		t.Error("frame still scheduled after Unmount")
	}
	if got := f.demo.frameCount(); got != 1 {
		t.Errorf("frames = %d, want 1 (none after Unmount)", got)
	}
	if got := f.obs.Live(); got != 0 {
		t.Errorf("live size subscriptions = %d, want 0", got)
	}
	if got := f.demo.closeCount(); got != 1 {
		t.Errorf("demo closes = %d, want 1", got)
	}
}

func TestControllerUnmountDuringLoading(t *testing.T) {
	f := newFixture(t, "lc-inflight")
	release := make(chan struct{})
	f.provider.block = release

	if err := f.ctrl.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	f.rec.wait(t, StateLoading)

	f.ctrl.Unmount()
	close(release)

	// Whatever the in-flight acquisition resolves to, the controller
	// stays torn down.
	f.rec.wait(t, StateUninitialized)
	if got := f.ctrl.State(); got != StateUninitialized {
		t.Errorf("state = %v, want uninitialized after unmount during loading", got)
	}
	if f.src.Fire(time.Now()) {
		t.Error("frame scheduled by a torn-down mount")
	}
}

func TestControllerUnmountIdempotentAllStates(t *testing.T) {
	f := newFixture(t, "lc-idem")

	// Unmount before any mount.
	f.ctrl.Unmount()

	if err := f.ctrl.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	f.rec.wait(t, StateReady)
	f.ctrl.Unmount()
	f.ctrl.Unmount()

	// The controller is remountable after Unmount.
	if err := f.ctrl.Mount(context.Background()); err != nil {
		t.Fatalf("remount: %v", err)
	}
	f.rec.wait(t, StateReady)
}

func TestControllerDeviceLoss(t *testing.T) {
	f := newFixture(t, "lc-loss")
	if err := f.ctrl.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	f.rec.wait(t, StateReady)
	f.src.Fire(time.Now())

	f.provider.devices[0].Lose("driver crash")
	f.rec.wait(t, StateError)

	if msg := f.ctrl.ErrorMessage(); !strings.Contains(msg, "driver crash") {
		t.Errorf("message %q should carry the loss reason", msg)
	}
	if f.src.Fire(time.Now()) {
		t.Error("frame still scheduled after device loss")
	}
	if got := f.demo.frameCount(); got != 1 {
		t.Errorf("frames = %d, want 1 (scheduler stopped on loss)", got)
	}
}

func TestControllerFrameError(t *testing.T) {
	f := newFixture(t, "lc-framefail")
	if err := f.ctrl.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	f.rec.wait(t, StateReady)

	f.demo.mu.Lock()
	f.demo.frameErr = errors.New("pipeline rebuild failed")
	f.demo.mu.Unlock()

	f.src.Fire(time.Now())
	f.rec.wait(t, StateError)

	if !strings.Contains(f.ctrl.ErrorMessage(), "pipeline rebuild failed") {
		t.Errorf("message %q should carry the frame error", f.ctrl.ErrorMessage())
	}
	if f.src.Fire(time.Now()) {
		t.Error("frame still scheduled after frame error")
	}
}

func TestControllerResizeForwarded(t *testing.T) {
	f := newFixture(t, "lc-resize")
	if err := f.ctrl.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	f.rec.wait(t, StateReady)

	f.canvas.Resize(1024, 768)
	f.obs.Notify()

	f.demo.mu.Lock()
	resizes := append([][2]uint32(nil), f.demo.resizes...)
	f.demo.mu.Unlock()
	if len(resizes) != 1 || resizes[0] != [2]uint32{2048, 1536} {
		t.Errorf("resizes = %v, want [[2048 1536]]", resizes)
	}
}

var _ backend.Provider = (*fakeProvider)(nil)
