package webgpu

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/ZPredou/ZWebGpu/gpu"
)

// Surface implements gpu.Surface over a WebGPU window surface. Frame
// textures from the swapchain are adopted into the device's texture
// table for the duration of one frame.
type Surface struct {
	mu      sync.Mutex
	dev     *Device
	surf    *wgpu.Surface
	format  gpu.TextureFormat
	width   uint32
	height  uint32
	frame   gpu.TextureID
	frameOK bool
}

func newSurface(dev *Device, surf *wgpu.Surface) *Surface {
	return &Surface{dev: dev, surf: surf, format: gpu.TextureFormatBGRA8Unorm}
}

// Configure sizes the surface swapchain to w×h device pixels using the
// adapter's first supported format and alpha mode.
func (s *Surface) Configure(w, h uint32) error {
	if w == 0 || h == 0 {
		return fmt.Errorf("%w: surface size %dx%d", gpu.ErrSurfaceConfig, w, h)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	caps := s.surf.GetCapabilities(s.dev.adapter)
	if len(caps.Formats) == 0 {
		return fmt.Errorf("%w: surface reports no supported formats", gpu.ErrSurfaceConfig)
	}
	alphaMode := wgpu.CompositeAlphaModeAuto
	if len(caps.AlphaModes) > 0 {
		alphaMode = caps.AlphaModes[0]
	}

	s.surf.Configure(s.dev.adapter, s.dev.dev, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       w,
		Height:      h,
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   alphaMode,
	})

	s.format = fromTextureFormat(caps.Formats[0])
	s.width = w
	s.height = h
	return nil
}

// PreferredFormat returns the format chosen during Configure.
func (s *Surface) PreferredFormat() gpu.TextureFormat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

// AcquireFrame acquires the swapchain texture for the current frame.
func (s *Surface) AcquireFrame() (gpu.TextureID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.width == 0 || s.height == 0 {
		return gpu.InvalidID, fmt.Errorf("%w: surface not configured", gpu.ErrSurfaceConfig)
	}

	tex, err := s.surf.GetCurrentTexture()
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("%w: acquire swapchain texture: %w", gpu.ErrSurfaceConfig, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return gpu.InvalidID, fmt.Errorf("%w: swapchain texture view: %w", gpu.ErrSurfaceConfig, err)
	}

	s.frame = s.dev.adoptSurfaceTexture(tex, view)
	s.frameOK = true
	return s.frame, nil
}

// Present presents the current frame and releases its texture.
func (s *Surface) Present() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.frameOK {
		return
	}
	s.surf.Present()
	s.dev.DestroyTexture(s.frame)
	s.frame = gpu.InvalidID
	s.frameOK = false
}

// Size returns the configured size in device pixels.
func (s *Surface) Size() (w, h uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Release frees the native surface handle. Called after the owning
// device is closed.
func (s *Surface) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.surf != nil {
		s.surf.Release()
		s.surf = nil
	}
}
