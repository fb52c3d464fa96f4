// Package formula defines the defect-metric formula definitions and
// the static registry that maps a (test method, defect type) pair to
// the formula that computes it.
package formula

import "fmt"

// Method identifies an electrical test methodology.
type Method string

// Test method constants.
const (
	GateSweep         Method = "GS"
	SubthresholdSweep Method = "SS"
	ChargePumping     Method = "CP"
	FlickerNoise      Method = "1/f"
)

// Name returns the human-readable name of the method.
func (m Method) Name() string {
	switch m {
	case GateSweep:
		return "Gate Sweep"
	case SubthresholdSweep:
		return "Subthreshold Sweep"
	case ChargePumping:
		return "Charge Pumping"
	case FlickerNoise:
		return "1/f Noise"
	default:
		return string(m)
	}
}

// DefectType identifies the defect metric extracted by a formula.
type DefectType string

// Defect type constants.
const (
	OxideTrappedCharge DefectType = "not"
	InterfaceTraps     DefectType = "nit"
	Lifetime           DefectType = "tau"
	Separation         DefectType = "sep"
)

// DefectTypes lists every defect type in display order, whether or not
// a method implements it.
func DefectTypes() []DefectType {
	return []DefectType{OxideTrappedCharge, InterfaceTraps, Lifetime, Separation}
}

// Name returns the human-readable name of the defect type.
func (d DefectType) Name() string {
	switch d {
	case OxideTrappedCharge:
		return "Oxide-trapped charge ΔNot"
	case InterfaceTraps:
		return "Interface-trap density ΔNit"
	case Lifetime:
		return "Minority-carrier lifetime τ"
	case Separation:
		return "Charge separation ΔNot + ΔNit"
	default:
		return string(d)
	}
}

// Values maps an input key to its numeric value.
type Values map[string]float64

// ComputeFunc evaluates a formula. It must be pure: the same Values
// always produce the same result, and it performs no I/O.
type ComputeFunc func(Values) ([]float64, error)

// InputSpec declares one named numeric input of a Definition.
type InputSpec struct {
	// Key is the argument name passed to Compute. Unique within a
	// Definition.
	Key string `json:"key"`

	// Label is the human-readable prompt.
	Label string `json:"label"`

	// Unit is the physical unit shown next to the prompt.
	Unit string `json:"unit,omitempty"`

	// Default is used when the user has not entered a value.
	Default float64 `json:"default"`

	// Format is a fmt verb used for display (e.g. "%g", "%.3e").
	// It never affects the stored value.
	Format string `json:"format,omitempty"`
}

// FormatValue renders v using the spec's display format.
func (s InputSpec) FormatValue(v float64) string {
	f := s.Format
	if f == "" {
		f = "%g"
	}
	return fmt.Sprintf(f, v)
}

// Definition is an immutable description of one computable defect
// metric.
type Definition struct {
	Method     Method     `json:"method"`
	DefectType DefectType `json:"defect_type"`

	// Title is the display name of the metric.
	Title string `json:"title"`

	// Display is the typeset (LaTeX) formula. Opaque to the engine.
	Display string `json:"display"`

	// Plain is a one-line plain-text rendering of the formula.
	Plain string `json:"plain"`

	// Inputs is ordered: it is both the argument contract and the
	// on-screen order.
	Inputs []InputSpec `json:"inputs"`

	// Compute returns exactly len(Columns) values on success.
	Compute ComputeFunc `json:"-"`

	// Columns names the result values in order.
	Columns []string `json:"columns"`

	// TableID selects the result ledger this definition accumulates
	// into.
	TableID string `json:"table_id"`
}

// Keys returns the input keys in declaration order.
func (d Definition) Keys() []string {
	keys := make([]string, len(d.Inputs))
	for i, in := range d.Inputs {
		keys[i] = in.Key
	}
	return keys
}

// Input returns the InputSpec for key.
func (d Definition) Input(key string) (InputSpec, bool) {
	for _, in := range d.Inputs {
		if in.Key == key {
			return in, true
		}
	}
	return InputSpec{}, false
}

// Defaults returns a Values map holding every input's default.
func (d Definition) Defaults() Values {
	v := make(Values, len(d.Inputs))
	for _, in := range d.Inputs {
		v[in.Key] = in.Default
	}
	return v
}

// TableID builds the ledger identity for a method and defect type.
func TableID(m Method, d DefectType) string {
	return string(m) + "/" + string(d)
}
