package backend

import (
	"fmt"
	"sync"

	"github.com/ZPredou/ZWebGpu/gpu"
)

// OffscreenSurface presents frames to ordinary textures instead of a
// window swapchain. Providers return it for canvases without a native
// surface handle, which keeps the frame loop identical between
// windowed and headless runs.
//
// OffscreenSurface is safe for concurrent use.
type OffscreenSurface struct {
	mu     sync.Mutex
	dev    gpu.Device
	format gpu.TextureFormat
	width  uint32
	height uint32
	frame  gpu.TextureID
}

// NewOffscreenSurface creates an offscreen surface that allocates its
// frame textures from dev in the given color format. The surface is
// unusable until Configure is called.
func NewOffscreenSurface(dev gpu.Device, format gpu.TextureFormat) *OffscreenSurface {
	return &OffscreenSurface{dev: dev, format: format}
}

// Configure sets the frame texture size in device pixels.
func (s *OffscreenSurface) Configure(w, h uint32) error {
	if w == 0 || h == 0 {
		return fmt.Errorf("%w: offscreen size %dx%d", gpu.ErrSurfaceConfig, w, h)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = w
	s.height = h
	return nil
}

// PreferredFormat returns the color format frame textures are created in.
func (s *OffscreenSurface) PreferredFormat() gpu.TextureFormat {
	return s.format
}

// AcquireFrame allocates the texture for the current frame. A frame
// still outstanding from a missed Present is destroyed first.
func (s *OffscreenSurface) AcquireFrame() (gpu.TextureID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.width == 0 || s.height == 0 {
		return gpu.InvalidID, fmt.Errorf("%w: surface not configured", gpu.ErrSurfaceConfig)
	}
	if s.frame != gpu.InvalidID {
		s.dev.DestroyTexture(s.frame)
		s.frame = gpu.InvalidID
	}

	id, err := s.dev.CreateTexture(&gpu.TextureDescriptor{
		Label:  "offscreen-frame",
		Width:  s.width,
		Height: s.height,
		Format: s.format,
		Usage:  gpu.TextureUsageRenderAttachment | gpu.TextureUsageCopySrc,
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("%w: frame texture: %w", gpu.ErrSurfaceConfig, err)
	}
	s.frame = id
	return id, nil
}

// Present releases the current frame texture. There is no swapchain to
// flip, so presenting offscreen only recycles the texture.
func (s *OffscreenSurface) Present() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame != gpu.InvalidID {
		s.dev.DestroyTexture(s.frame)
		s.frame = gpu.InvalidID
	}
}

// Size returns the configured size in device pixels.
func (s *OffscreenSurface) Size() (w, h uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}
