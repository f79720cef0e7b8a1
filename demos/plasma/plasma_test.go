package plasma_test

import (
	"context"
	"testing"
	"time"

	zwebgpu "github.com/ZPredou/ZWebGpu"
	"github.com/ZPredou/ZWebGpu/backend"
	"github.com/ZPredou/ZWebGpu/demos/plasma"
	"github.com/ZPredou/ZWebGpu/gpu"
	"github.com/ZPredou/ZWebGpu/gpu/gputest"
)

type testProvider struct {
	dev *gputest.Device
}

func (p *testProvider) Name() string { return "plasma-test" }
func (p *testProvider) Probe() error { return nil }

func (p *testProvider) Acquire(ctx context.Context, canvas gpu.Canvas, power gpu.PowerPreference) (gpu.Device, gpu.Surface, error) {
	p.dev = gputest.NewDevice()
	return p.dev, gputest.NewSurface(p.dev), nil
}

func newDemo(t *testing.T, pattern string) (*plasma.Demo, *testProvider) {
	t.Helper()

	prov := &testProvider{}
	backend.Register(prov.Name(), func() backend.Provider { return prov })
	t.Cleanup(func() { backend.Unregister(prov.Name()) })

	gc, err := zwebgpu.NewAcquirer().Acquire(context.Background(),
		gputest.NewCanvas(400, 300, 2), zwebgpu.AcquireOptions{Backend: prov.Name()})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	t.Cleanup(func() { _ = gc.Close() })

	if err := gc.Surface().Configure(800, 600); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	d, err := plasma.NewPattern(pattern)
	if err != nil {
		t.Fatalf("NewPattern(%q) error = %v", pattern, err)
	}
	if err := d.Init(gc); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(d.Close)
	return d, prov
}

func TestUnknownPatternRejected(t *testing.T) {
	if _, err := plasma.NewPattern("lava"); err == nil {
		t.Fatal("NewPattern(lava) succeeded, want error")
	}
}

func TestPatternNames(t *testing.T) {
	got := plasma.Patterns()
	want := []string{"cells", "classic", "ripple"}
	if len(got) != len(want) {
		t.Fatalf("Patterns() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Patterns()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFrameDrawsWithoutCompute(t *testing.T) {
	d, prov := newDemo(t, plasma.DefaultPattern)

	if err := d.Frame(time.Second, 16*time.Millisecond); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if got := prov.dev.Draws.Load(); got != 1 {
		t.Errorf("draws = %d, want 1", got)
	}
	if got := prov.dev.Dispatches.Load(); got != 0 {
		t.Errorf("dispatches = %d, want 0", got)
	}
}

func TestUniformParamsNeverRebuild(t *testing.T) {
	d, prov := newDemo(t, plasma.DefaultPattern)

	res := d.Resources()
	before := prov.dev.Created.RenderPipelines.Load()

	if err := d.SetParam("scale", 16); err != nil {
		t.Fatalf("SetParam(scale) error = %v", err)
	}
	if err := d.SetParam("speed", 3); err != nil {
		t.Fatalf("SetParam(speed) error = %v", err)
	}

	if got := d.Resources(); got != res {
		t.Error("resources were rebuilt after uniform-only changes")
	}
	if got := prov.dev.Created.RenderPipelines.Load(); got != before {
		t.Errorf("render pipelines created = %d, want %d", got, before)
	}
}

func TestEachPatternInitializes(t *testing.T) {
	for _, pattern := range plasma.Patterns() {
		t.Run(pattern, func(t *testing.T) {
			d, _ := newDemo(t, pattern)
			if got := d.Pattern(); got != pattern {
				t.Errorf("Pattern() = %q, want %q", got, pattern)
			}
			if err := d.Frame(time.Second, 16*time.Millisecond); err != nil {
				t.Errorf("Frame() error = %v", err)
			}
		})
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	d, prov := newDemo(t, plasma.DefaultPattern)

	if err := d.Frame(time.Second, 16*time.Millisecond); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	d.Close()

	if got := prov.dev.LiveBuffers(); got != 0 {
		t.Errorf("live buffers after Close = %d, want 0", got)
	}
}

func TestCatalogRegistration(t *testing.T) {
	d, err := zwebgpu.NewDemo("plasma")
	if err != nil {
		t.Fatalf("NewDemo(plasma) error = %v", err)
	}
	if got := d.Entry().Category; got != "effects" {
		t.Errorf("Category = %q, want effects", got)
	}
}
