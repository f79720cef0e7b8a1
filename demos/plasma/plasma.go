// Package plasma implements a full-screen procedural effect. It is
// render-only: every parameter feeds the uniform buffer, so the
// pipeline is built once and never rebuilt. The effect pattern is a
// closed variant set chosen at construction time.
package plasma

import (
	"encoding/binary"
	"fmt"
	"math"
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
		ID:         "plasma",
		Title:      "Plasma",
		Category:   "effects",
		Difficulty: zwebgpu.DifficultyBeginner,
		Route:      "/demos/plasma",
	}
}

// DefaultPattern is the variant used by New.
const DefaultPattern = "classic"

// uniformSize holds time f32, scale f32, speed f32, pad f32.
const uniformSize = 16

// Demo renders the plasma effect.
type Demo struct {
	dev     gpu.Device
	surf    gpu.Surface
	builder *pipeline.Builder
	pattern string

	uniform    gpu.BufferID
	renderPipe gpu.RenderPipelineID
	drawGroup  gpu.BindGroupID
}

// New creates the demo with the default pattern.
func New() *Demo {
	d, _ := NewPattern(DefaultPattern)
	return d
}

// NewPattern creates the demo with the named pattern. Unknown names
// are rejected rather than mapped to a default.
func NewPattern(pattern string) (*Demo, error) {
	variants, err := patternSet()
	if err != nil {
		return nil, err
	}
	if !variants.Has(pattern) {
		return nil, fmt.Errorf("plasma: unknown pattern %q (known: %v)", pattern, variants.Names())
	}
	return &Demo{pattern: pattern}, nil
}

// Entry returns the demo's catalog metadata.
func (d *Demo) Entry() zwebgpu.CatalogEntry { return Entry() }

// Pattern returns the selected pattern name.
func (d *Demo) Pattern() string { return d.pattern }

// Patterns returns the closed set of pattern names.
func Patterns() []string {
	variants, err := patternSet()
	if err != nil {
		return nil
	}
	return variants.Names()
}

// SetParam adjusts a uniform parameter. The pipeline never rebuilds.
func (d *Demo) SetParam(name string, value float64) error {
	if d.builder == nil {
		return fmt.Errorf("plasma: demo not initialized")
	}
	_, err := d.builder.SetParam(name, value)
	return err
}

// Resources exposes the builder's resource set for inspection.
func (d *Demo) Resources() *pipeline.Resources {
	if d.builder == nil {
		return nil
	}
	return d.builder.Resources()
}

// Init builds the render pipeline for the selected pattern.
func (d *Demo) Init(gc *zwebgpu.GraphicsContext) error {
	d.dev = gc.Device()
	d.surf = gc.Surface()
	format := gc.Format()

	variants, err := patternSet()
	if err != nil {
		return err
	}
	source, err := variants.Select(d.pattern)
	if err != nil {
		return err
	}
	wgsl := source()

	params, err := pipeline.NewParams(
		pipeline.ParamSpec{Name: "scale", Kind: pipeline.KindUniform, Min: 0.5, Max: 32, Default: 8},
		pipeline.ParamSpec{Name: "speed", Kind: pipeline.KindUniform, Min: 0.1, Max: 10, Default: 1},
	)
	if err != nil {
		return err
	}

	builder, err := pipeline.NewBuilder(pipeline.BuilderConfig{
		Device: d.dev,
		Params: params,
		Build: func(res *pipeline.Resources, p *pipeline.Params) error {
			return d.build(res, wgsl, format)
		},
	})
	if err != nil {
		return err
	}
	d.builder = builder

	return d.builder.Build()
}

func (d *Demo) build(res *pipeline.Resources, wgsl string, format gpu.TextureFormat) error {
	uniform, err := res.Buffer(&gpu.BufferDescriptor{
		Label: "plasma-uniform",
		Size:  uniformSize,
		Usage: gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	d.uniform = uniform

	module, err := res.ShaderModule(&gpu.ShaderModuleDescriptor{
		Label: "plasma-shader",
		WGSL:  wgsl,
	})
	if err != nil {
		return err
	}

	layout, err := res.BindGroupLayout(&gpu.BindGroupLayoutDescriptor{
		Label: "plasma-layout",
		Entries: []gpu.BindGroupLayoutEntry{
			{Binding: 0, Type: gpu.BindingTypeUniformBuffer, MinBindingSize: uniformSize},
		},
	})
	if err != nil {
		return err
	}
	pipeLayout, err := res.PipelineLayout("plasma", []gpu.BindGroupLayoutID{layout})
	if err != nil {
		return err
	}

	group, err := res.BindGroup(&gpu.BindGroupDescriptor{
		Label:  "plasma-group",
		Layout: layout,
		Entries: []gpu.BindGroupEntry{
			{Binding: 0, Buffer: d.uniform},
		},
	})
	if err != nil {
		return err
	}
	d.drawGroup = group

	renderPipe, err := res.RenderPipeline(&gpu.RenderPipelineDescriptor{
		Label:              "plasma",
		Layout:             pipeLayout,
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

// Frame draws one full-screen triangle with the current uniforms.
func (d *Demo) Frame(elapsed, delta time.Duration) error {
	p := d.builder.Params()

	var uniform [uniformSize]byte
	putFloat32(uniform[0:], float32(elapsed.Seconds()))
	putFloat32(uniform[4:], float32(p.Get("scale")))
	putFloat32(uniform[8:], float32(p.Get("speed")))
	if err := d.dev.WriteBuffer(d.uniform, 0, uniform[:]); err != nil {
		return err
	}

	frame, err := d.surf.AcquireFrame()
	if err != nil {
		return err
	}
	pass, err := d.dev.BeginRenderPass(&gpu.RenderPassDescriptor{
		Label:       "plasma",
		ColorTarget: frame,
		Load:        gpu.LoadOpClear,
		ClearColor:  gpu.Color{A: 1},
	})
	if err != nil {
		return err
	}
	pass.SetPipeline(d.renderPipe)
	pass.SetBindGroup(0, d.drawGroup)
	pass.Draw(3, 1)
	pass.End()

	if err := d.dev.Submit(); err != nil {
		return err
	}
	d.surf.Present()
	return nil
}

// Resize needs no work: the effect is resolution independent.
func (d *Demo) Resize(w, h uint32) {}

// Close destroys all GPU resources.
func (d *Demo) Close() {
	if d.builder != nil {
		d.builder.Destroy()
		d.builder = nil
	}
}

func putFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func patternSet() (*pipeline.Variants, error) {
	return pipeline.NewVariants(map[string]pipeline.SourceFunc{
		"classic": func() string { return shaderFor(classicField) },
		"ripple":  func() string { return shaderFor(rippleField) },
		"cells":   func() string { return shaderFor(cellsField) },
	})
}

// shaderFor splices a field function into the shared shader skeleton.
// Each field maps scaled UV coordinates and time to a scalar that the
// fragment stage turns into a color.
func shaderFor(field string) string {
	return shaderHeader + field + shaderFooter
}

const shaderHeader = `
struct Uniforms {
    time: f32,
    scale: f32,
    speed: f32,
    pad: f32,
}

@group(0) @binding(0) var<uniform> u: Uniforms;

struct VSOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) vi: u32) -> VSOut {
    var out: VSOut;
    let x = f32(i32(vi) / 2) * 4.0 - 1.0;
    let y = f32(i32(vi) % 2) * 4.0 - 1.0;
    out.pos = vec4<f32>(x, y, 0.0, 1.0);
    out.uv = vec2<f32>(x, y) * 0.5 + 0.5;
    return out;
}
`

const classicField = `
fn field(p: vec2<f32>, t: f32) -> f32 {
    return sin(p.x + t) + sin(p.y + t * 0.7)
        + sin((p.x + p.y) * 0.7 + t * 1.3)
        + sin(length(p - vec2<f32>(4.0, 4.0)) + t);
}
`

const rippleField = `
fn field(p: vec2<f32>, t: f32) -> f32 {
    let r = length(p - vec2<f32>(4.0, 4.0));
    return sin(r * 3.0 - t * 2.0) * 2.0 / (1.0 + r * 0.5);
}
`

const cellsField = `
fn field(p: vec2<f32>, t: f32) -> f32 {
    let g = fract(p + vec2<f32>(sin(t * 0.3), cos(t * 0.4))) - 0.5;
    return 2.0 - length(g) * 8.0;
}
`

const shaderFooter = `
@fragment
fn fs_main(in: VSOut) -> @location(0) vec4<f32> {
    let t = u.time * u.speed;
    let p = in.uv * u.scale;
    let v = field(p, t);
    let r = 0.5 + 0.5 * sin(v * 3.14159);
    let g = 0.5 + 0.5 * sin(v * 3.14159 + 2.094);
    let b = 0.5 + 0.5 * sin(v * 3.14159 + 4.188);
    return vec4<f32>(r, g, b, 1.0);
}
`
