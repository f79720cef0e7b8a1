package backend_test

import (
	"errors"
	"testing"

	"github.com/ZPredou/ZWebGpu/backend"
	"github.com/ZPredou/ZWebGpu/gpu"
	"github.com/ZPredou/ZWebGpu/gpu/gputest"
)

func TestOffscreenSurfaceFrameCycle(t *testing.T) {
	dev := gputest.NewDevice()
	t.Cleanup(func() { _ = dev.Close() })

	surf := backend.NewOffscreenSurface(dev, gpu.TextureFormatRGBA8Unorm)
	if err := surf.Configure(640, 480); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	id, err := surf.AcquireFrame()
	if err != nil {
		t.Fatalf("AcquireFrame() error = %v", err)
	}
	if id == gpu.InvalidID {
		t.Fatal("AcquireFrame() returned InvalidID")
	}
	if got := dev.LiveTextures(); got != 1 {
		t.Errorf("live textures after acquire = %d, want 1", got)
	}

	surf.Present()
	if got := dev.LiveTextures(); got != 0 {
		t.Errorf("live textures after present = %d, want 0", got)
	}
}

func TestOffscreenSurfaceUnconfigured(t *testing.T) {
	dev := gputest.NewDevice()
	t.Cleanup(func() { _ = dev.Close() })

	surf := backend.NewOffscreenSurface(dev, gpu.TextureFormatRGBA8Unorm)
	if _, err := surf.AcquireFrame(); !errors.Is(err, gpu.ErrSurfaceConfig) {
		t.Errorf("AcquireFrame() error = %v, want ErrSurfaceConfig", err)
	}
}

func TestOffscreenSurfaceRejectsZeroSize(t *testing.T) {
	dev := gputest.NewDevice()
	t.Cleanup(func() { _ = dev.Close() })

	surf := backend.NewOffscreenSurface(dev, gpu.TextureFormatBGRA8Unorm)
	if err := surf.Configure(0, 480); !errors.Is(err, gpu.ErrSurfaceConfig) {
		t.Errorf("Configure(0, 480) error = %v, want ErrSurfaceConfig", err)
	}
}

func TestOffscreenSurfaceReplacesMissedFrame(t *testing.T) {
	dev := gputest.NewDevice()
	t.Cleanup(func() { _ = dev.Close() })

	surf := backend.NewOffscreenSurface(dev, gpu.TextureFormatRGBA8Unorm)
	if err := surf.Configure(320, 240); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	first, err := surf.AcquireFrame()
	if err != nil {
		t.Fatalf("AcquireFrame() error = %v", err)
	}
	second, err := surf.AcquireFrame()
	if err != nil {
		t.Fatalf("second AcquireFrame() error = %v", err)
	}
	if first == second {
		t.Error("second acquire reused the missed frame texture")
	}
	if got := dev.LiveTextures(); got != 1 {
		t.Errorf("live textures after double acquire = %d, want 1", got)
	}
}
