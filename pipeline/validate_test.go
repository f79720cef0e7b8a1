package pipeline

import "testing"

const validWGSL = `
@compute @workgroup_size(1)
fn main() {
}
`

func TestValidateWGSL(t *testing.T) {
	if err := ValidateWGSL(validWGSL); err != nil {
		t.Errorf("ValidateWGSL(valid) error = %v", err)
	}
	if err := ValidateWGSL("fn broken {"); err == nil {
		t.Error("ValidateWGSL(broken) succeeded, want error")
	}
}

func TestVariantsValidate(t *testing.T) {
	v, err := NewVariants(map[string]SourceFunc{
		"ok":  func() string { return validWGSL },
		"bad": func() string { return "@@@" },
	})
	if err != nil {
		t.Fatalf("NewVariants() error = %v", err)
	}
	if err := v.Validate(); err == nil {
		t.Error("Validate() succeeded with a broken variant, want error")
	}

	v, err = NewVariants(map[string]SourceFunc{
		"ok": func() string { return validWGSL },
	})
	if err != nil {
		t.Fatalf("NewVariants() error = %v", err)
	}
	if err := v.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
