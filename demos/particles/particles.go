// Package particles implements a GPU particle system. Positions and
// velocities live in ping-pong storage buffers; a compute pass
// integrates motion and a render pass draws one triangle per particle.
package particles

import (
	"encoding/binary"
	"fmt"
	"math"
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
		ID:         "particles",
		Title:      "Particles",
		Category:   "simulation",
		Difficulty: zwebgpu.DifficultyBeginner,
		Route:      "/demos/particles",
	}
}

// particleBytes is the storage footprint of one particle: position
// vec2<f32> plus velocity vec2<f32>.
const particleBytes = 16

// uniformSize holds count u32, pad u32, dt f32, gravity f32.
const uniformSize = 16

// Demo runs the particle system.
type Demo struct {
	dev  gpu.Device
	surf gpu.Surface

	builder   *pipeline.Builder
	particles *pipeline.PingPong
	count     uint32

	uniform     gpu.BufferID
	computePipe gpu.ComputePipelineID
	renderPipe  gpu.RenderPipelineID
	stepGroups  [2]gpu.BindGroupID
	drawGroups  [2]gpu.BindGroupID

	rng *rand.Rand
}

// New creates the demo with default parameters.
func New() *Demo {
	return &Demo{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Entry returns the demo's catalog metadata.
func (d *Demo) Entry() zwebgpu.CatalogEntry { return Entry() }

// Count returns the current particle count.
func (d *Demo) Count() uint32 { return d.count }

// SetParam adjusts a parameter; a count change rebuilds the buffers.
func (d *Demo) SetParam(name string, value float64) error {
	if d.builder == nil {
		return fmt.Errorf("particles: demo not initialized")
	}
	_, err := d.builder.SetParam(name, value)
	return err
}

// Init builds the pipelines and seeds the particles.
func (d *Demo) Init(gc *zwebgpu.GraphicsContext) error {
	d.dev = gc.Device()
	d.surf = gc.Surface()
	format := gc.Format()

	params, err := pipeline.NewParams(
		pipeline.ParamSpec{Name: "count", Kind: pipeline.KindSizing, Min: 256, Max: 1 << 20, Default: 4096},
		pipeline.ParamSpec{Name: "gravity", Kind: pipeline.KindUniform, Min: -10, Max: 10, Default: -9.8},
		pipeline.ParamSpec{Name: "speed", Kind: pipeline.KindUniform, Min: 0.1, Max: 4, Default: 1},
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

func (d *Demo) build(res *pipeline.Resources, p *pipeline.Params, format gpu.TextureFormat) error {
	count := uint32(p.Int("count"))

	if d.particles != nil {
		d.particles.Destroy()
		d.particles = nil
	}
	particles, err := pipeline.NewPingPong(d.dev, &gpu.BufferDescriptor{
		Label: "particle-state",
		Size:  uint64(count) * particleBytes,
		Usage: gpu.BufferUsageStorage | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	d.particles = particles
	d.count = count

	if err := d.seed(); err != nil {
		return err
	}

	uniform, err := res.Buffer(&gpu.BufferDescriptor{
		Label: "particle-uniform",
		Size:  uniformSize,
		Usage: gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	d.uniform = uniform

	module, err := res.ShaderModule(&gpu.ShaderModuleDescriptor{
		Label: "particle-shader",
		WGSL:  shaderWGSL,
	})
	if err != nil {
		return err
	}

	stepLayout, err := res.BindGroupLayout(&gpu.BindGroupLayoutDescriptor{
		Label: "particle-step-layout",
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
		Label: "particle-draw-layout",
		Entries: []gpu.BindGroupLayoutEntry{
			{Binding: 0, Type: gpu.BindingTypeUniformBuffer, MinBindingSize: uniformSize},
			{Binding: 1, Type: gpu.BindingTypeReadOnlyStorageBuffer},
		},
	})
	if err != nil {
		return err
	}

	stepPipeLayout, err := res.PipelineLayout("particle-step", []gpu.BindGroupLayoutID{stepLayout})
	if err != nil {
		return err
	}
	drawPipeLayout, err := res.PipelineLayout("particle-draw", []gpu.BindGroupLayoutID{drawLayout})
	if err != nil {
		return err
	}

	bufs := [2]gpu.BufferID{d.particles.Source(), d.particles.Destination()}
	for phase := 0; phase < 2; phase++ {
		src, dst := bufs[phase%2], bufs[(phase+1)%2]

		stepGroup, err := res.BindGroup(&gpu.BindGroupDescriptor{
			Label:  "particle-step-group",
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
			Label:  "particle-draw-group",
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
		Label:      "particle-step",
		Layout:     stepPipeLayout,
		Module:     module,
		EntryPoint: "step",
	})
	if err != nil {
		return err
	}
	d.computePipe = computePipe

	renderPipe, err := res.RenderPipeline(&gpu.RenderPipelineDescriptor{
		Label:              "particle-draw",
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

// seed scatters particles across the top half with random velocities.
func (d *Demo) seed() error {
	data := make([]byte, uint64(d.count)*particleBytes)
	for i := uint32(0); i < d.count; i++ {
		off := int(i) * particleBytes
		putFloat32(data[off+0:], d.rng.Float32()*2-1)
		putFloat32(data[off+4:], d.rng.Float32())
		putFloat32(data[off+8:], (d.rng.Float32()*2-1)*0.3)
		putFloat32(data[off+12:], d.rng.Float32()*0.5)
	}
	return d.dev.WriteBuffer(d.particles.Source(), 0, data)
}

// Frame integrates one time step and draws the particles.
func (d *Demo) Frame(elapsed, delta time.Duration) error {
	p := d.builder.Params()
	dt := float32(delta.Seconds()) * float32(p.Get("speed"))

	var uniform [uniformSize]byte
	binary.LittleEndian.PutUint32(uniform[0:], d.count)
	putFloat32(uniform[8:], dt)
	putFloat32(uniform[12:], float32(p.Get("gravity")))
	if err := d.dev.WriteBuffer(d.uniform, 0, uniform[:]); err != nil {
		return err
	}

	pass, err := d.dev.BeginComputePass("particle-step")
	if err != nil {
		return err
	}
	pass.SetPipeline(d.computePipe)
	pass.SetBindGroup(0, d.stepGroups[d.particles.Phase()])
	pass.Dispatch((d.count+63)/64, 1, 1)
	pass.End()
	d.particles.Swap()

	frame, err := d.surf.AcquireFrame()
	if err != nil {
		return err
	}
	rpass, err := d.dev.BeginRenderPass(&gpu.RenderPassDescriptor{
		Label:       "particle-draw",
		ColorTarget: frame,
		Load:        gpu.LoadOpClear,
		ClearColor:  gpu.Color{R: 0.02, G: 0.02, B: 0.05, A: 1},
	})
	if err != nil {
		return err
	}
	rpass.SetPipeline(d.renderPipe)
	rpass.SetBindGroup(0, d.drawGroups[d.particles.Phase()^1])
	rpass.Draw(3, d.count)
	rpass.End()

	if err := d.dev.Submit(); err != nil {
		return err
	}
	d.surf.Present()
	return nil
}

// Resize needs no work: positions are in normalized device space.
func (d *Demo) Resize(w, h uint32) {}

// Close destroys all GPU resources.
func (d *Demo) Close() {
	if d.builder != nil {
		d.builder.Destroy()
		d.builder = nil
	}
	if d.particles != nil {
		d.particles.Destroy()
		d.particles = nil
	}
}

func putFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

const shaderWGSL = `
struct Uniforms {
    count: u32,
    pad: u32,
    dt: f32,
    gravity: f32,
}

struct Particle {
    pos: vec2<f32>,
    vel: vec2<f32>,
}

@group(0) @binding(0) var<uniform> u: Uniforms;
@group(0) @binding(1) var<storage, read> src: array<Particle>;
@group(0) @binding(2) var<storage, read_write> dst: array<Particle>;

@compute @workgroup_size(64)
fn step(@builtin(global_invocation_id) id: vec3<u32>) {
    if (id.x >= u.count) {
        return;
    }
    var p = src[id.x];
    p.vel.y += u.gravity * u.dt * 0.1;
    p.pos += p.vel * u.dt;
    if (p.pos.y < -1.0) {
        p.pos.y = -1.0;
        p.vel.y = -p.vel.y * 0.8;
    }
    if (p.pos.x < -1.0 || p.pos.x > 1.0) {
        p.vel.x = -p.vel.x;
        p.pos.x = clamp(p.pos.x, -1.0, 1.0);
    }
    dst[id.x] = p;
}

@vertex
fn vs_main(@builtin(vertex_index) vi: u32, @builtin(instance_index) ii: u32) -> @builtin(position) vec4<f32> {
    let p = src[ii].pos;
    let size = 0.004;
    var corner = vec2<f32>(0.0, size);
    if (vi == 1u) {
        corner = vec2<f32>(-size, -size);
    } else if (vi == 2u) {
        corner = vec2<f32>(size, -size);
    }
    return vec4<f32>(p + corner, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(0.9, 0.7, 0.3, 1.0);
}
`
