package pipeline

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownVariant is returned when a variant name is not in the
// closed set. Unknown names are rejected at configuration time, never
// silently mapped to a default.
var ErrUnknownVariant = errors.New("pipeline: unknown variant")

// SourceFunc generates WGSL shader source for one variant.
type SourceFunc func() string

// Variants is a closed set of named shader-source generators.
type Variants struct {
	m map[string]SourceFunc
}

// NewVariants builds the closed set. Nil generators are an error.
func NewVariants(m map[string]SourceFunc) (*Variants, error) {
	if len(m) == 0 {
		return nil, errors.New("pipeline: empty variant set")
	}
	v := &Variants{m: make(map[string]SourceFunc, len(m))}
	for name, fn := range m {
		if fn == nil {
			return nil, fmt.Errorf("pipeline: variant %q has nil generator", name)
		}
		v.m[name] = fn
	}
	return v, nil
}

// Select returns the generator for name, or ErrUnknownVariant.
func (v *Variants) Select(name string) (SourceFunc, error) {
	fn, ok := v.m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownVariant, name, v.Names())
	}
	return fn, nil
}

// Has reports whether name is in the set.
func (v *Variants) Has(name string) bool {
	_, ok := v.m[name]
	return ok
}

// Names returns the variant names, sorted.
func (v *Variants) Names() []string {
	names := make([]string, 0, len(v.m))
	for name := range v.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
