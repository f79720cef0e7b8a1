package zwebgpu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZPredou/ZWebGpu/gpu"
)

// State is the lifecycle state of one demo mount.
type State int

// Lifecycle states. Error is terminal for the mount; recovery
// requires unmounting and mounting again.
const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "uninitialized"
	}
}

// ControllerConfig configures a lifecycle Controller.
type ControllerConfig struct {
	// Canvas is the drawing area the demo renders into.
	Canvas gpu.Canvas

	// Observer notifies on canvas size changes. May be nil for a
	// fixed-size canvas.
	Observer SizeObserver

	// Source schedules frames. Nil defaults to a 60 Hz ticker.
	Source FrameSource

	// Demo is the demo instance this mount owns.
	Demo Demo

	// Acquire configures context acquisition.
	Acquire AcquireOptions

	// Acquirer overrides the process-wide acquirer. Nil uses the
	// shared probe cache.
	Acquirer *Acquirer

	// OnState, if set, is notified on every state transition.
	OnState func(s State)

	// OnFPS, if set, receives the measured frame rate at most once
	// per second.
	OnFPS func(fps float64)
}

// Controller drives one demo mount through
// Uninitialized → Loading → {Ready, Error}. Mount starts size
// observation and an asynchronous context acquisition; Unmount
// cancels whatever is in flight and releases everything on every exit
// path. A controller can be remounted after Unmount; each mount is a
// new generation, and a stale acquisition resolving against a newer
// generation is discarded.
type Controller struct {
	cfg      ControllerConfig
	sched    *Scheduler
	acquirer *Acquirer

	mu        sync.Mutex
	state     State
	errMsg    string
	gen       uint64
	cancelAcq context.CancelFunc
	gc        *GraphicsContext
	resize    *ResizeCoordinator
	inited    bool
}

// NewController creates a controller in StateUninitialized.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Canvas == nil {
		return nil, errors.New("zwebgpu: controller needs a canvas")
	}
	if cfg.Demo == nil {
		return nil, errors.New("zwebgpu: controller needs a demo")
	}
	acq := cfg.Acquirer
	if acq == nil {
		acq = defaultAcquirer
	}
	return &Controller{
		cfg:      cfg,
		acquirer: acq,
		sched:    NewScheduler(SchedulerConfig{Source: cfg.Source, OnFPS: cfg.OnFPS}),
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ErrorMessage returns the human-readable failure message, or "" when
// the controller is not in StateError.
func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Context returns the acquired graphics context, or nil before Ready.
func (c *Controller) Context() *GraphicsContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gc
}

// FPS returns the scheduler's measured frame rate.
func (c *Controller) FPS() float64 { return c.sched.FPS() }

// Mount enters Loading and starts the asynchronous acquisition. It
// returns immediately; the transition to Ready or Error is reported
// through OnState. Mounting is only valid from StateUninitialized.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateUninitialized {
		s := c.state
		c.mu.Unlock()
		return fmt.Errorf("zwebgpu: mount from state %v", s)
	}
	c.state = StateLoading
	c.errMsg = ""
	c.gen++
	gen := c.gen
	actx, cancel := context.WithCancel(ctx)
	c.cancelAcq = cancel
	c.mu.Unlock()

	c.notify(StateLoading)
	Logger().Info("demo mounting", "demo", c.cfg.Demo.Entry().ID)

	go func() {
		gc, err := c.acquirer.Acquire(actx, c.cfg.Canvas, c.cfg.Acquire)
		c.finishAcquire(gen, gc, err)
	}()
	return nil
}

// finishAcquire completes the mount on the acquisition goroutine. A
// resolution arriving after Unmount (or for an older generation) is a
// no-op beyond releasing the freshly acquired context.
func (c *Controller) finishAcquire(gen uint64, gc *GraphicsContext, err error) {
	c.mu.Lock()
	stale := c.gen != gen || c.state != StateLoading
	c.mu.Unlock()
	if stale {
		if gc != nil {
			gc.Close()
		}
		Logger().Warn("late acquisition discarded", "generation", gen)
		return
	}
	if err != nil {
		c.fail(gen, acquireMessage(err))
		return
	}

	gc.setLostCallback(func(reason string) { c.handleLost(gen, reason) })

	var depth gpu.TextureFormat
	if dr, ok := c.cfg.Demo.(DepthRequirer); ok {
		depth = dr.DepthFormat()
	}
	resize, rerr := NewResizeCoordinator(ResizeConfig{
		Canvas:      c.cfg.Canvas,
		Surface:     gc.Surface(),
		Device:      gc.Device(),
		DepthFormat: depth,
		OnResize:    func(w, h uint32) { c.forwardResize(gen, w, h) },
	})
	if rerr == nil {
		rerr = resize.Mount(c.cfg.Observer)
	}
	if rerr != nil {
		gc.Close()
		c.fail(gen, acquireMessage(rerr))
		return
	}

	if ierr := c.cfg.Demo.Init(gc); ierr != nil {
		c.cfg.Demo.Close()
		resize.Unmount()
		gc.Close()
		c.fail(gen, "demo setup failed: "+ierr.Error())
		return
	}

	c.mu.Lock()
	if c.gen != gen || c.state != StateLoading {
		// Unmounted while we were initializing.
		c.mu.Unlock()
		c.cfg.Demo.Close()
		resize.Unmount()
		gc.Close()
		return
	}
	c.gc = gc
	c.resize = resize
	c.inited = true
	c.state = StateReady
	c.cancelAcq = nil
	c.mu.Unlock()

	c.notify(StateReady)
	Logger().Info("demo ready", "demo", c.cfg.Demo.Entry().ID, "backend", gc.Backend())

	if serr := c.sched.Start(c.frame); serr != nil {
		c.fail(gen, "frame loop failed to start: "+serr.Error())
	}
}

// Resize returns the coordinator for the current mount, or nil before
// Ready. Demos use it to fetch the depth attachment per frame.
func (c *Controller) Resize() *ResizeCoordinator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resize
}

// frame runs the demo callback; any error tears the loop down the
// same way a surface failure would, instead of failing silently every
// frame.
func (c *Controller) frame(elapsed, delta time.Duration) {
	if err := c.cfg.Demo.Frame(elapsed, delta); err != nil {
		c.mu.Lock()
		gen := c.gen
		c.mu.Unlock()
		c.sched.Stop()
		c.fail(gen, "frame failed: "+err.Error())
	}
}

// forwardResize passes surface reconfigurations to the demo once it
// is initialized. The initial mount-time sizing happens before Init
// and is observed by the demo from the surface directly.
func (c *Controller) forwardResize(gen uint64, w, h uint32) {
	c.mu.Lock()
	ok := c.gen == gen && c.state == StateReady
	c.mu.Unlock()
	if ok {
		c.cfg.Demo.Resize(w, h)
	}
}

// handleLost reacts to asynchronous device loss: leave Ready, stop
// the scheduler, surface the reason. No automatic reacquisition.
func (c *Controller) handleLost(gen uint64, reason string) {
	c.mu.Lock()
	ok := c.gen == gen && c.state == StateReady
	c.mu.Unlock()
	if !ok {
		return
	}
	c.sched.Stop()
	c.fail(gen, "device lost: "+reason)
}

// fail transitions the mount to its terminal error state.
func (c *Controller) fail(gen uint64, msg string) {
	c.mu.Lock()
	if c.gen != gen || c.state == StateError || c.state == StateUninitialized {
		c.mu.Unlock()
		return
	}
	c.state = StateError
	c.errMsg = msg
	c.cancelAcq = nil
	c.mu.Unlock()

	Logger().Warn("demo mount failed", "demo", c.cfg.Demo.Entry().ID, "message", msg)
	c.notify(StateError)
}

// Unmount tears the mount down from any state: cancels an in-flight
// acquisition, stops the scheduler, releases the size subscription,
// closes the demo and the context. Idempotent; after Unmount the
// controller is back in StateUninitialized and may be mounted again.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if c.state == StateUninitialized {
		c.mu.Unlock()
		return
	}
	c.gen++
	cancel := c.cancelAcq
	c.cancelAcq = nil
	gc := c.gc
	c.gc = nil
	resize := c.resize
	c.resize = nil
	inited := c.inited
	c.inited = false
	c.state = StateUninitialized
	c.errMsg = ""
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.sched.Stop()
	if resize != nil {
		resize.Unmount()
	}
	if inited {
		c.cfg.Demo.Close()
	}
	if gc != nil {
		gc.Close()
	}
	c.notify(StateUninitialized)
}

func (c *Controller) notify(s State) {
	if c.cfg.OnState != nil {
		c.cfg.OnState(s)
	}
}

// acquireMessage renders an acquisition failure as the user-facing
// error panel text, keeping the taxonomy distinctions visible.
func acquireMessage(err error) string {
	switch {
	case errors.Is(err, gpu.ErrCapabilityAbsent):
		return "WebGPU is not available in this environment: " + err.Error()
	case errors.Is(err, gpu.ErrAdapterUnavailable):
		return "no suitable graphics adapter found (unsupported hardware): " + err.Error()
	case errors.Is(err, gpu.ErrSurfaceConfig):
		return "could not configure the drawing surface: " + err.Error()
	case errors.Is(err, context.Canceled):
		return "acquisition canceled"
	default:
		return err.Error()
	}
}
