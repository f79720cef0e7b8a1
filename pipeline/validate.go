package pipeline

import (
	"fmt"

	"github.com/gogpu/naga"
)

// ValidateWGSL runs wgsl through the naga front-end and reports
// compilation errors. Backends compile on their own; this exists so a
// bad shader fails at configuration time instead of at first build.
func ValidateWGSL(wgsl string) error {
	if _, err := naga.Compile(wgsl); err != nil {
		return fmt.Errorf("pipeline: shader validation: %w", err)
	}
	return nil
}

// Validate compiles every variant's source through the naga
// front-end. The error names the first failing variant.
func (v *Variants) Validate() error {
	for _, name := range v.Names() {
		if err := ValidateWGSL(v.m[name]()); err != nil {
			return fmt.Errorf("variant %q: %w", name, err)
		}
	}
	return nil
}
