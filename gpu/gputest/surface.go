package gputest

import (
	"sync"

	"github.com/ZPredou/ZWebGpu/gpu"
)

// Surface is an in-memory gpu.Surface backed by a Device. Each
// AcquireFrame creates a transient texture which Present destroys.
type Surface struct {
	mu      sync.Mutex
	dev     *Device
	w, h    uint32
	frame   gpu.TextureID
	failCfg error

	// Configures counts Configure calls.
	Configures int

	// Presents counts Present calls.
	Presents int
}

// NewSurface returns a surface presenting into dev.
func NewSurface(dev *Device) *Surface {
	return &Surface{dev: dev}
}

// FailConfigure scripts the next Configure call to return err.
func (s *Surface) FailConfigure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCfg = err
}

// Configure implements gpu.Surface.
func (s *Surface) Configure(w, h uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCfg != nil {
		err := s.failCfg
		s.failCfg = nil
		return err
	}
	if w == 0 || h == 0 {
		return gpu.ErrSurfaceConfig
	}
	s.w, s.h = w, h
	s.Configures++
	return nil
}

// PreferredFormat implements gpu.Surface.
func (s *Surface) PreferredFormat() gpu.TextureFormat {
	return gpu.TextureFormatBGRA8Unorm
}

// AcquireFrame implements gpu.Surface.
func (s *Surface) AcquireFrame() (gpu.TextureID, error) {
	s.mu.Lock()
	w, h := s.w, s.h
	s.mu.Unlock()
	if w == 0 || h == 0 {
		return gpu.InvalidID, gpu.ErrSurfaceConfig
	}
	id, err := s.dev.CreateTexture(&gpu.TextureDescriptor{
		Label:  "frame",
		Width:  w,
		Height: h,
		Format: gpu.TextureFormatBGRA8Unorm,
		Usage:  gpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return gpu.InvalidID, err
	}
	s.mu.Lock()
	s.frame = id
	s.mu.Unlock()
	return id, nil
}

// Present implements gpu.Surface.
func (s *Surface) Present() {
	s.mu.Lock()
	frame := s.frame
	s.frame = gpu.InvalidID
	s.Presents++
	s.mu.Unlock()
	s.dev.DestroyTexture(frame)
}

// Size implements gpu.Surface.
func (s *Surface) Size() (uint32, uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.h
}

// Canvas is a fixed-size gpu.Canvas for headless tests.
type Canvas struct {
	mu  sync.Mutex
	w   float64
	h   float64
	dpr float64
}

// NewCanvas returns a canvas with the given logical size and device
// pixel ratio. A dpr below 1 is clamped to 1.
func NewCanvas(w, h, dpr float64) *Canvas {
	if dpr < 1 {
		dpr = 1
	}
	return &Canvas{w: w, h: h, dpr: dpr}
}

// Resize changes the canvas layout size.
func (c *Canvas) Resize(w, h float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w, c.h = w, h
}

// SetDevicePixelRatio changes the canvas pixel ratio.
func (c *Canvas) SetDevicePixelRatio(dpr float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if dpr < 1 {
		dpr = 1
	}
	c.dpr = dpr
}

// LayoutSize implements gpu.Canvas.
func (c *Canvas) LayoutSize() (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w, c.h
}

// DevicePixelRatio implements gpu.Canvas.
func (c *Canvas) DevicePixelRatio() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dpr
}

// SurfaceHandle implements gpu.Canvas.
func (c *Canvas) SurfaceHandle() any { return nil }
