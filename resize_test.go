package zwebgpu

import (
	"sync"
	"testing"

	"github.com/ZPredou/ZWebGpu/gpu"
	"github.com/ZPredou/ZWebGpu/gpu/gputest"
)

// fakeObserver lets tests fire size-change notifications and count
// live subscriptions.
type fakeObserver struct {
	mu   sync.Mutex
	subs []func()
}

func (o *fakeObserver) Observe(fn func()) (cancel func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subs = append(o.subs, fn)
	idx := len(o.subs) - 1
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.subs[idx] = nil
	}
}

func (o *fakeObserver) Notify() {
	o.mu.Lock()
	subs := make([]func(), len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()
	for _, fn := range subs {
		if fn != nil {
			fn()
		}
	}
}

func (o *fakeObserver) Live() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, fn := range o.subs {
		if fn != nil {
			n++
		}
	}
	return n
}

func newResizeFixture(t *testing.T, canvas *gputest.Canvas, depth gpu.TextureFormat) (*ResizeCoordinator, *gputest.Device, *gputest.Surface) {
	t.Helper()
	dev := gputest.NewDevice()
	t.Cleanup(func() { dev.Close() })
	surf := gputest.NewSurface(dev)
	r, err := NewResizeCoordinator(ResizeConfig{
		Canvas:      canvas,
		Surface:     surf,
		Device:      dev,
		DepthFormat: depth,
	})
	if err != nil {
		t.Fatalf("NewResizeCoordinator: %v", err)
	}
	return r, dev, surf
}

func TestPhysicalSize(t *testing.T) {
	tests := []struct {
		name         string
		cw, ch, dpr  float64
		wantW, wantH uint32
	}{
		{"exact 2x", 800, 600, 2, 1600, 1200},
		{"identity", 640, 480, 1, 640, 480},
		{"fractional dpr", 100, 100, 1.5, 150, 150},
		{"tiny layout never zero", 0.3, 0.3, 1, 1, 1},
		{"zero layout stays zero", 0, 600, 2, 0, 1200},
		{"dpr below one clamped", 400, 300, 0.5, 400, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := PhysicalSize(gputest.NewCanvas(tt.cw, tt.ch, tt.dpr))
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("PhysicalSize = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestResizeInitialSizeAtMount(t *testing.T) {
	canvas := gputest.NewCanvas(800, 600, 2)
	r, _, surf := newResizeFixture(t, canvas, 0)

	if err := r.Mount(nil); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer r.Unmount()

	w, h := surf.Size()
	if w != 1600 || h != 1200 {
		t.Errorf("surface size = %dx%d, want 1600x1200", w, h)
	}
	if surf.Configures != 1 {
		t.Errorf("configures = %d, want 1", surf.Configures)
	}
}

func TestResizeObserverChange(t *testing.T) {
	canvas := gputest.NewCanvas(400, 300, 1)
	obs := &fakeObserver{}
	r, _, surf := newResizeFixture(t, canvas, 0)

	if err := r.Mount(obs); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer r.Unmount()

	canvas.Resize(500, 400)
	obs.Notify()

	w, h := surf.Size()
	if w != 500 || h != 400 {
		t.Errorf("surface size = %dx%d, want 500x400", w, h)
	}

	// An unchanged size must not reconfigure.
	before := surf.Configures
	obs.Notify()
	if surf.Configures != before {
		t.Errorf("configures = %d, want %d (unchanged size)", surf.Configures, before)
	}
}

func TestResizeSkipsZeroLayout(t *testing.T) {
	canvas := gputest.NewCanvas(0, 0, 2)
	obs := &fakeObserver{}
	r, _, surf := newResizeFixture(t, canvas, 0)

	if err := r.Mount(obs); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer r.Unmount()

	if surf.Configures != 0 {
		t.Errorf("configures = %d, want 0 for zero layout", surf.Configures)
	}

	// Once laid out, the next notification applies the real size.
	canvas.Resize(320, 240)
	obs.Notify()
	w, h := surf.Size()
	if w != 640 || h != 480 {
		t.Errorf("surface size = %dx%d, want 640x480", w, h)
	}
}

func TestDepthTextureLazyRecreate(t *testing.T) {
	canvas := gputest.NewCanvas(400, 300, 1)
	obs := &fakeObserver{}
	r, dev, _ := newResizeFixture(t, canvas, gpu.TextureFormatDepth24Plus)

	if err := r.Mount(obs); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer r.Unmount()

	d1, err := r.DepthTexture()
	if err != nil {
		t.Fatalf("DepthTexture: %v", err)
	}
	// Same size: must return the same texture, no churn.
	d2, err := r.DepthTexture()
	if err != nil {
		t.Fatalf("DepthTexture: %v", err)
	}
	if d1 != d2 {
		t.Error("depth texture recreated without a size change")
	}
	if got := dev.Created.Textures.Load(); got != 1 {
		t.Errorf("created textures = %d, want 1", got)
	}

	canvas.Resize(800, 600)
	obs.Notify()

	d3, err := r.DepthTexture()
	if err != nil {
		t.Fatalf("DepthTexture after resize: %v", err)
	}
	if d3 == d1 {
		t.Error("depth texture not recreated after size change")
	}
	if got := dev.Destroyed.Textures.Load(); got != 1 {
		t.Errorf("destroyed textures = %d, want 1 (old depth destroyed)", got)
	}
}

func TestResizeUnmountReleasesSubscription(t *testing.T) {
	canvas := gputest.NewCanvas(400, 300, 1)
	obs := &fakeObserver{}
	r, dev, _ := newResizeFixture(t, canvas, gpu.TextureFormatDepth32Float)

	if err := r.Mount(obs); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if _, err := r.DepthTexture(); err != nil {
		t.Fatalf("DepthTexture: %v", err)
	}

	r.Unmount()
	r.Unmount()

	if got := obs.Live(); got != 0 {
		t.Errorf("live subscriptions = %d, want 0", got)
	}
	if got := dev.LiveTextures(); got != 0 {
		t.Errorf("live textures = %d, want 0 after unmount", got)
	}
}

func TestNewResizeCoordinatorRejectsNonDepthFormat(t *testing.T) {
	dev := gputest.NewDevice()
	defer dev.Close()
	_, err := NewResizeCoordinator(ResizeConfig{
		Canvas:      gputest.NewCanvas(100, 100, 1),
		Surface:     gputest.NewSurface(dev),
		Device:      dev,
		DepthFormat: gpu.TextureFormatRGBA8Unorm,
	})
	if err == nil {
		t.Error("expected error for non-depth format")
	}
}
