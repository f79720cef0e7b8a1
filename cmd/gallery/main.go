// Command gallery lists and runs the demo catalog from the terminal.
// Demos render offscreen; a thumbnail of the final state can be saved
// for demos that support snapshots.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	zwebgpu "github.com/ZPredou/ZWebGpu"

	_ "github.com/ZPredou/ZWebGpu/backend/gogpu"
	_ "github.com/ZPredou/ZWebGpu/backend/webgpu"
	_ "github.com/ZPredou/ZWebGpu/demos/life"
	_ "github.com/ZPredou/ZWebGpu/demos/particles"
	_ "github.com/ZPredou/ZWebGpu/demos/plasma"
)

func main() {
	var (
		list      = flag.Bool("list", false, "list catalog entries and exit")
		id        = flag.String("demo", "", "demo ID to run")
		backendID = flag.String("backend", "", "backend name (empty selects automatically)")
		width     = flag.Float64("width", 800, "canvas width in logical pixels")
		height    = flag.Float64("height", 600, "canvas height in logical pixels")
		duration  = flag.Duration("duration", 3*time.Second, "how long to run the demo")
		fps       = flag.Int("fps", 60, "target frame rate")
		thumb     = flag.String("thumbnail", "", "save a PNG thumbnail of the final state")
		verbose   = flag.Bool("v", false, "log engine events to stderr")
	)
	flag.Parse()

	if *verbose {
		zwebgpu.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	}

	if *list {
		listCatalog()
		return
	}
	if *id == "" {
		log.Fatal("pass -demo <id>, or -list to see the catalog")
	}

	if err := run(*id, *backendID, *width, *height, *duration, *fps, *thumb); err != nil {
		log.Fatalf("Demo failed: %v", err)
	}
}

func listCatalog() {
	for _, e := range zwebgpu.Entries() {
		fmt.Printf("%-12s %-24s %-12s %s\n", e.ID, e.Title, e.Category, e.Difficulty)
	}
}

func run(id, backendID string, width, height float64, duration time.Duration, fps int, thumb string) error {
	demo, err := zwebgpu.NewDemo(id)
	if err != nil {
		return err
	}

	states := make(chan zwebgpu.State, 8)
	ctrl, err := zwebgpu.NewController(zwebgpu.ControllerConfig{
		Canvas: &headlessCanvas{w: width, h: height},
		Source: &zwebgpu.TickerSource{Interval: time.Second / time.Duration(fps)},
		Demo:   demo,
		Acquire: zwebgpu.AcquireOptions{
			Backend: backendID,
			OnDeviceLost: func(reason string) {
				log.Printf("Device lost: %s", reason)
			},
		},
		OnState: func(s zwebgpu.State) { states <- s },
		OnFPS: func(fps float64) {
			log.Printf("%.1f fps", fps)
		},
	})
	if err != nil {
		return err
	}

	if err := ctrl.Mount(context.Background()); err != nil {
		return err
	}
	defer ctrl.Unmount()

	if err := waitReady(ctrl, states); err != nil {
		return err
	}
	log.Printf("Running %s on %s backend for %v", id, ctrl.Context().Backend(), duration)

	time.Sleep(duration)
	if ctrl.State() == zwebgpu.StateError {
		return fmt.Errorf("%s", ctrl.ErrorMessage())
	}

	if thumb != "" {
		if err := zwebgpu.SaveThumbnail(demo, thumb, 320, 240); err != nil {
			return err
		}
		log.Printf("Thumbnail saved to %s", thumb)
	}
	return nil
}

func waitReady(ctrl *zwebgpu.Controller, states <-chan zwebgpu.State) error {
	for {
		select {
		case s := <-states:
			switch s {
			case zwebgpu.StateReady:
				return nil
			case zwebgpu.StateError:
				return fmt.Errorf("%s", ctrl.ErrorMessage())
			}
		case <-time.After(30 * time.Second):
			return fmt.Errorf("timed out waiting for the demo to become ready")
		}
	}
}

// headlessCanvas is a fixed-size canvas with no native window. Both
// backends present it to an offscreen surface.
type headlessCanvas struct {
	w, h float64
}

func (c *headlessCanvas) LayoutSize() (w, h float64) { return c.w, c.h }
func (c *headlessCanvas) DevicePixelRatio() float64  { return 1 }
func (c *headlessCanvas) SurfaceHandle() any         { return nil }
