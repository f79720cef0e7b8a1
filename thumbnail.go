package zwebgpu

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// ErrNoSnapshot is returned when a demo cannot produce a still image.
var ErrNoSnapshot = errors.New("demo does not support snapshots")

// Snapshotter is implemented by demos that can read their current
// state back into a CPU-side image, for catalog thumbnails.
type Snapshotter interface {
	Snapshot() (image.Image, error)
}

// Thumbnail captures a demo's current state and scales it to fit
// within maxW by maxH pixels, preserving aspect ratio. The demo must
// implement Snapshotter.
func Thumbnail(d Demo, maxW, maxH int) (image.Image, error) {
	s, ok := d.(Snapshotter)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, d.Entry().ID)
	}
	src, err := s.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", d.Entry().ID, err)
	}
	return scaleToFit(src, maxW, maxH), nil
}

// SaveThumbnail writes a demo thumbnail as PNG.
func SaveThumbnail(d Demo, path string, maxW, maxH int) error {
	img, err := Thumbnail(d, maxW, maxH)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save thumbnail: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("save thumbnail: %w", err)
	}
	return f.Close()
}

// scaleToFit resamples src so the result fits within maxW by maxH
// without changing aspect ratio. Images already inside the bounds are
// returned unchanged.
func scaleToFit(src image.Image, maxW, maxH int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return src
	}

	scale := float64(maxW) / float64(w)
	if s := float64(maxH) / float64(h); s < scale {
		scale = s
	}
	ow := int(float64(w) * scale)
	oh := int(float64(h) * scale)
	if ow < 1 {
		ow = 1
	}
	if oh < 1 {
		oh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, ow, oh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
