package pipeline

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"sync"
)

// Param errors.
var (
	// ErrUnknownParam is returned when a name was never declared.
	ErrUnknownParam = errors.New("pipeline: unknown parameter")

	// ErrParamRange is returned when a value falls outside the
	// declared range.
	ErrParamRange = errors.New("pipeline: parameter out of range")
)

// ParamKind classifies how a parameter change propagates.
type ParamKind int

const (
	// KindUniform marks a parameter that only changes uniform
	// values. Changing it never rebuilds pipelines or buffers.
	KindUniform ParamKind = iota

	// KindSizing marks a parameter that determines buffer sizes
	// (counts, grid dimensions). Changing it forces a full rebuild.
	KindSizing
)

// Change reports what a parameter update requires of the caller.
type Change int

const (
	// ChangeNone: the value did not change.
	ChangeNone Change = iota

	// ChangeUniform: upload new uniform values next frame.
	ChangeUniform

	// ChangeSizing: buffer sizes are stale, a full rebuild is due.
	ChangeSizing
)

// ParamSpec declares one parameter.
type ParamSpec struct {
	// Name identifies the parameter.
	Name string

	// Kind classifies the parameter (see ParamKind).
	Kind ParamKind

	// Min and Max bound the value. Both zero means unbounded.
	Min, Max float64

	// Default is the initial value.
	Default float64
}

// Params holds a demo's declared parameters and their current
// values. Parameter mutation is single-writer (the UI side); reads
// from the frame callback are guarded all the same.
type Params struct {
	mu     sync.Mutex
	specs  map[string]ParamSpec
	values map[string]float64
	order  []string
}

// NewParams declares a parameter set. Duplicate names are an error.
func NewParams(specs ...ParamSpec) (*Params, error) {
	p := &Params{
		specs:  make(map[string]ParamSpec, len(specs)),
		values: make(map[string]float64, len(specs)),
	}
	for _, s := range specs {
		if s.Name == "" {
			return nil, errors.New("pipeline: parameter with empty name")
		}
		if _, ok := p.specs[s.Name]; ok {
			return nil, fmt.Errorf("pipeline: duplicate parameter %q", s.Name)
		}
		if s.Min != 0 || s.Max != 0 {
			if s.Max < s.Min {
				return nil, fmt.Errorf("pipeline: parameter %q has max < min", s.Name)
			}
			if s.Default < s.Min || s.Default > s.Max {
				return nil, fmt.Errorf("pipeline: parameter %q default outside range", s.Name)
			}
		}
		p.specs[s.Name] = s
		p.values[s.Name] = s.Default
		p.order = append(p.order, s.Name)
	}
	return p, nil
}

// Set updates a parameter and reports what the change requires.
// Unknown names and out-of-range values are rejected.
func (p *Params) Set(name string, value float64) (Change, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	spec, ok := p.specs[name]
	if !ok {
		return ChangeNone, fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	if (spec.Min != 0 || spec.Max != 0) && (value < spec.Min || value > spec.Max) {
		return ChangeNone, fmt.Errorf("%w: %q = %v, range [%v, %v]",
			ErrParamRange, name, value, spec.Min, spec.Max)
	}
	if p.values[name] == value {
		return ChangeNone, nil
	}
	p.values[name] = value
	if spec.Kind == KindSizing {
		return ChangeSizing, nil
	}
	return ChangeUniform, nil
}

// Get returns the current value of a declared parameter. Undeclared
// names return 0.
func (p *Params) Get(name string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[name]
}

// Int returns the current value truncated to int.
func (p *Params) Int(name string) int { return int(p.Get(name)) }

// Names returns the declared parameter names in declaration order.
func (p *Params) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Spec returns the declaration for name.
func (p *Params) Spec(name string) (ParamSpec, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.specs[name]
	return s, ok
}

// SizingFingerprint hashes the current values of all sizing
// parameters. The builder compares fingerprints to decide whether a
// generation's buffers are stale.
func (p *Params) SizingFingerprint() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.order))
	for _, n := range p.order {
		if p.specs[n].Kind == KindSizing {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	h := fnv.New64a()
	var buf [8]byte
	for _, n := range names {
		_, _ = h.Write([]byte(n))
		bits := math.Float64bits(p.values[n])
		for i := range buf {
			buf[i] = byte(bits >> (8 * i))
		}
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
