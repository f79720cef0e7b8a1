// Package life implements Conway's Game of Life on ping-pong storage
// buffers. A compute pass steps the automaton, then a render pass
// draws the live cells to the surface.
package life

import (
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"time"

	zwebgpu "github.com/ZPredou/ZWebGpu"
	"github.com/ZPredou/ZWebGpu/gpu"
	"github.com/ZPredou/ZWebGpu/pipeline"
)

func init() {
	zwebgpu.MustRegisterDemo(Entry(), func() zwebgpu.Demo { return New() })
}

// Entry returns the catalog metadata for the demo.
func Entry() zwebgpu.CatalogEntry {
	return zwebgpu.CatalogEntry{
		ID:         "life",
		Title:      "Game of Life",
		Category:   "simulation",
		Difficulty: zwebgpu.DifficultyIntermediate,
		Route:      "/demos/life",
	}
}

// cellBytes is the storage footprint of one cell (u32 alive flag).
const cellBytes = 4

// uniformSize covers grid u32, generation u32, and two pad words to
// satisfy 16-byte uniform alignment.
const uniformSize = 16

// Demo runs the Game of Life.
type Demo struct {
	dev  gpu.Device
	surf gpu.Surface

	builder *pipeline.Builder
	cells   *pipeline.PingPong
	grid    uint32

	uniform     gpu.BufferID
	computePipe gpu.ComputePipelineID
	renderPipe  gpu.RenderPipelineID

	// One bind group per ping-pong phase for each pipeline.
	stepGroups [2]gpu.BindGroupID
	drawGroups [2]gpu.BindGroupID

	// generation resets to zero whenever the grid is rebuilt.
	generation uint64

	stepAcc time.Duration
	rng     *rand.Rand
}

// New creates the demo with default parameters.
func New() *Demo {
	return &Demo{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Entry returns the demo's catalog metadata.
func (d *Demo) Entry() zwebgpu.CatalogEntry { return Entry() }

// Generation returns the number of automaton steps since the last
// grid rebuild.
func (d *Demo) Generation() uint64 { return d.generation }

// Grid returns the current grid side length in cells.
func (d *Demo) Grid() uint32 { return d.grid }

// SetParam adjusts a parameter; a grid change rebuilds the pipeline.
func (d *Demo) SetParam(name string, value float64) error {
	if d.builder == nil {
		return fmt.Errorf("life: demo not initialized")
	}
	_, err := d.builder.SetParam(name, value)
	return err
}

// Init builds the pipelines and seeds the grid.
func (d *Demo) Init(gc *zwebgpu.GraphicsContext) error {
	d.dev = gc.Device()
	d.surf = gc.Surface()
	format := gc.Format()

	params, err := pipeline.NewParams(
		pipeline.ParamSpec{Name: "grid", Kind: pipeline.KindSizing, Min: 16, Max: 1024, Default: 128},
		pipeline.ParamSpec{Name: "speed", Kind: pipeline.KindUniform, Min: 0.1, Max: 10, Default: 1},
	)
	if err != nil {
		return err
	}

	builder, err := pipeline.NewBuilder(pipeline.BuilderConfig{
		Device: d.dev,
		Params: params,
		Build: func(res *pipeline.Resources, p *pipeline.Params) error {
			return d.build(res, p, format)
		},
	})
	if err != nil {
		return err
	}
	d.builder = builder

	return d.builder.Build()
}

// build allocates everything the current grid size needs. The builder
// destroys the previous generation of resources before calling it.
func (d *Demo) build(res *pipeline.Resources, p *pipeline.Params, format gpu.TextureFormat) error {
	grid := uint32(p.Int("grid"))

	if d.cells != nil {
		d.cells.Destroy()
		d.cells = nil
	}
	cells, err := pipeline.NewPingPong(d.dev, &gpu.BufferDescriptor{
		Label: "life-cells",
		Size:  uint64(grid) * uint64(grid) * cellBytes,
		Usage: gpu.BufferUsageStorage | gpu.BufferUsageCopyDst | gpu.BufferUsageCopySrc,
	})
	if err != nil {
		return err
	}
	d.cells = cells
	d.grid = grid
	d.generation = 0

	if err := d.seed(); err != nil {
		return err
	}

	uniform, err := res.Buffer(&gpu.BufferDescriptor{
		Label: "life-uniform",
		Size:  uniformSize,
		Usage: gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	d.uniform = uniform

	module, err := res.ShaderModule(&gpu.ShaderModuleDescriptor{
		Label: "life-shader",
		WGSL:  shaderWGSL,
	})
	if err != nil {
		return err
	}

	stepLayout, err := res.BindGroupLayout(&gpu.BindGroupLayoutDescriptor{
		Label: "life-step-layout",
		Entries: []gpu.BindGroupLayoutEntry{
			{Binding: 0, Type: gpu.BindingTypeUniformBuffer, MinBindingSize: uniformSize},
			{Binding: 1, Type: gpu.BindingTypeReadOnlyStorageBuffer},
			{Binding: 2, Type: gpu.BindingTypeStorageBuffer},
		},
	})
	if err != nil {
		return err
	}
	drawLayout, err := res.BindGroupLayout(&gpu.BindGroupLayoutDescriptor{
		Label: "life-draw-layout",
		Entries: []gpu.BindGroupLayoutEntry{
			{Binding: 0, Type: gpu.BindingTypeUniformBuffer, MinBindingSize: uniformSize},
			{Binding: 1, Type: gpu.BindingTypeReadOnlyStorageBuffer},
		},
	})
	if err != nil {
		return err
	}

	stepPipeLayout, err := res.PipelineLayout("life-step", []gpu.BindGroupLayoutID{stepLayout})
	if err != nil {
		return err
	}
	drawPipeLayout, err := res.PipelineLayout("life-draw", []gpu.BindGroupLayoutID{drawLayout})
	if err != nil {
		return err
	}

	// Phase 0 steps a into b, phase 1 steps b into a.
	bufs := [2]gpu.BufferID{d.cells.Source(), d.cells.Destination()}
	for phase := 0; phase < 2; phase++ {
		src, dst := bufs[phase%2], bufs[(phase+1)%2]

		stepGroup, err := res.BindGroup(&gpu.BindGroupDescriptor{
			Label:  "life-step-group",
			Layout: stepLayout,
			Entries: []gpu.BindGroupEntry{
				{Binding: 0, Buffer: d.uniform},
				{Binding: 1, Buffer: src},
				{Binding: 2, Buffer: dst},
			},
		})
		if err != nil {
			return err
		}
		d.stepGroups[phase] = stepGroup

		drawGroup, err := res.BindGroup(&gpu.BindGroupDescriptor{
			Label:  "life-draw-group",
			Layout: drawLayout,
			Entries: []gpu.BindGroupEntry{
				{Binding: 0, Buffer: d.uniform},
				{Binding: 1, Buffer: dst},
			},
		})
		if err != nil {
			return err
		}
		d.drawGroups[phase] = drawGroup
	}

	computePipe, err := res.ComputePipeline(&gpu.ComputePipelineDescriptor{
		Label:      "life-step",
		Layout:     stepPipeLayout,
		Module:     module,
		EntryPoint: "step",
	})
	if err != nil {
		return err
	}
	d.computePipe = computePipe

	renderPipe, err := res.RenderPipeline(&gpu.RenderPipelineDescriptor{
		Label:              "life-draw",
		Layout:             drawPipeLayout,
		VertexModule:       module,
		VertexEntryPoint:   "vs_main",
		FragmentModule:     module,
		FragmentEntryPoint: "fs_main",
		ColorFormat:        format,
	})
	if err != nil {
		return err
	}
	d.renderPipe = renderPipe

	return nil
}

// seed randomizes the source buffer with roughly one live cell in
// three.
func (d *Demo) seed() error {
	data := make([]byte, uint64(d.grid)*uint64(d.grid)*cellBytes)
	for i := 0; i < len(data); i += cellBytes {
		if d.rng.Intn(3) == 0 {
			data[i] = 1
		}
	}
	return d.dev.WriteBuffer(d.cells.Source(), 0, data)
}

// stepInterval is the base automaton step period at speed 1.
const stepInterval = 100 * time.Millisecond

// Frame steps the simulation when due and draws the current state.
func (d *Demo) Frame(elapsed, delta time.Duration) error {
	speed := d.builder.Params().Get("speed")

	var uniform [uniformSize]byte
	putUint32(uniform[0:], d.grid)
	putUint32(uniform[4:], uint32(d.generation))
	if err := d.dev.WriteBuffer(d.uniform, 0, uniform[:]); err != nil {
		return err
	}

	d.stepAcc += time.Duration(float64(delta) * speed)
	if d.stepAcc >= stepInterval {
		d.stepAcc -= stepInterval

		pass, err := d.dev.BeginComputePass("life-step")
		if err != nil {
			return err
		}
		pass.SetPipeline(d.computePipe)
		pass.SetBindGroup(0, d.stepGroups[d.cells.Phase()])
		groups := (d.grid + 7) / 8
		pass.Dispatch(groups, groups, 1)
		pass.End()

		d.cells.Swap()
		d.generation++
	}

	// drawGroups[p] reads the buffer written at phase p, which is the
	// current Source once the phase advanced past p.
	drawPhase := d.cells.Phase() ^ 1

	frame, err := d.surf.AcquireFrame()
	if err != nil {
		return err
	}
	pass, err := d.dev.BeginRenderPass(&gpu.RenderPassDescriptor{
		Label:       "life-draw",
		ColorTarget: frame,
		Load:        gpu.LoadOpClear,
		ClearColor:  gpu.Color{R: 0.05, G: 0.05, B: 0.08, A: 1},
	})
	if err != nil {
		return err
	}
	pass.SetPipeline(d.renderPipe)
	pass.SetBindGroup(0, d.drawGroups[drawPhase])
	pass.Draw(3, 1)
	pass.End()

	if err := d.dev.Submit(); err != nil {
		return err
	}
	d.surf.Present()
	return nil
}

// Resize needs no work: the fullscreen pass follows the surface size.
func (d *Demo) Resize(w, h uint32) {}

// Snapshot reads the cell state back and renders it as a host-side
// image, live cells white on near-black.
func (d *Demo) Snapshot() (image.Image, error) {
	data, err := d.dev.ReadBuffer(d.cells.Source(), 0, uint64(d.grid)*uint64(d.grid)*cellBytes)
	if err != nil {
		return nil, fmt.Errorf("life: read cells: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(d.grid), int(d.grid)))
	for y := 0; y < int(d.grid); y++ {
		for x := 0; x < int(d.grid); x++ {
			c := color.RGBA{13, 13, 20, 255}
			if data[(y*int(d.grid)+x)*cellBytes] != 0 {
				c = color.RGBA{235, 235, 235, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}

// Close destroys all GPU resources.
func (d *Demo) Close() {
	if d.builder != nil {
		d.builder.Destroy()
		d.builder = nil
	}
	if d.cells != nil {
		d.cells.Destroy()
		d.cells = nil
	}
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

const shaderWGSL = `
struct Uniforms {
    grid: u32,
    generation: u32,
    pad0: u32,
    pad1: u32,
}

@group(0) @binding(0) var<uniform> u: Uniforms;
@group(0) @binding(1) var<storage, read> src: array<u32>;
@group(0) @binding(2) var<storage, read_write> dst: array<u32>;

fn cell(x: i32, y: i32) -> u32 {
    let n = i32(u.grid);
    let wx = (x + n) % n;
    let wy = (y + n) % n;
    return src[u32(wy * n + wx)];
}

@compute @workgroup_size(8, 8)
fn step(@builtin(global_invocation_id) id: vec3<u32>) {
    if (id.x >= u.grid || id.y >= u.grid) {
        return;
    }
    let x = i32(id.x);
    let y = i32(id.y);
    var neighbors = 0u;
    for (var dy = -1; dy <= 1; dy++) {
        for (var dx = -1; dx <= 1; dx++) {
            if (dx != 0 || dy != 0) {
                neighbors += cell(x + dx, y + dy);
            }
        }
    }
    let alive = cell(x, y) == 1u;
    var next = 0u;
    if ((alive && (neighbors == 2u || neighbors == 3u)) || (!alive && neighbors == 3u)) {
        next = 1u;
    }
    dst[id.y * u.grid + id.x] = next;
}

struct VSOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) vi: u32) -> VSOut {
    var out: VSOut;
    let x = f32(i32(vi & 1u) * 4 - 1);
    let y = f32(i32(vi >> 1u) * 4 - 1);
    out.pos = vec4<f32>(x, y, 0.0, 1.0);
    out.uv = vec2<f32>((x + 1.0) * 0.5, (1.0 - y) * 0.5);
    return out;
}

@fragment
fn fs_main(in: VSOut) -> @location(0) vec4<f32> {
    let gx = min(u32(in.uv.x * f32(u.grid)), u.grid - 1u);
    let gy = min(u32(in.uv.y * f32(u.grid)), u.grid - 1u);
    if (src[gy * u.grid + gx] == 1u) {
        return vec4<f32>(0.92, 0.92, 0.92, 1.0);
    }
    return vec4<f32>(0.05, 0.05, 0.08, 1.0);
}
`
