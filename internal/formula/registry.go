package formula

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is matched by errors.Is for every NotFoundError.
var ErrNotFound = errors.New("formula not implemented")

// NotFoundError reports a (method, defect type) pair with no formula.
type NotFoundError struct {
	Method     string
	DefectType string
}

func (e *NotFoundError) Error() string {
	if e.DefectType == "" {
		return fmt.Sprintf("unknown test method %q", e.Method)
	}
	return fmt.Sprintf("no formula for method %q and defect type %q",
		e.Method, e.DefectType)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Registry maps test methods to defect types to formula definitions.
// It is built once and never mutated.
type Registry struct {
	methods []Method
	defs    []Definition
	index   map[string]int
}

// NewRegistry builds the registry of every supported formula using
// the given physical constants.
func NewRegistry(c Constants) *Registry {
	r := &Registry{index: make(map[string]int)}
	for _, d := range definitions(c) {
		r.register(d)
	}
	return r
}

func (r *Registry) register(d Definition) {
	d.TableID = TableID(d.Method, d.DefectType)
	key := lookupKey(string(d.Method), string(d.DefectType))
	if _, dup := r.index[key]; dup {
		panic(fmt.Sprintf("formula: duplicate registration %s", d.TableID))
	}
	if !r.hasMethod(d.Method) {
		r.methods = append(r.methods, d.Method)
	}
	r.index[key] = len(r.defs)
	r.defs = append(r.defs, d)
}

func (r *Registry) hasMethod(m Method) bool {
	for _, have := range r.methods {
		if have == m {
			return true
		}
	}
	return false
}

func lookupKey(method, defect string) string {
	return strings.ToLower(strings.TrimSpace(method)) + "/" +
		strings.ToLower(strings.TrimSpace(defect))
}

// Resolve returns the definition registered for method and defect.
// Matching ignores case. Unknown pairs return a *NotFoundError.
func (r *Registry) Resolve(method, defect string) (Definition, error) {
	i, ok := r.index[lookupKey(method, defect)]
	if !ok {
		return Definition{}, &NotFoundError{Method: method, DefectType: defect}
	}
	return r.defs[i], nil
}

// Methods returns every registered method in registration order.
func (r *Registry) Methods() []Method {
	out := make([]Method, len(r.methods))
	copy(out, r.methods)
	return out
}

// DefectTypes returns the defect types registered for method.
func (r *Registry) DefectTypes(method string) ([]DefectType, error) {
	var out []DefectType
	for _, d := range r.defs {
		if strings.EqualFold(string(d.Method), strings.TrimSpace(method)) {
			out = append(out, d.DefectType)
		}
	}
	if len(out) == 0 {
		return nil, &NotFoundError{Method: method}
	}
	return out, nil
}

// Pairs returns every registered definition, grouped by method in
// registration order.
func (r *Registry) Pairs() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, m := range r.methods {
		for _, d := range r.defs {
			if d.Method == m {
				out = append(out, d)
			}
		}
	}
	return out
}

// definitions is the static formula table.
func definitions(c Constants) []Definition {
	dVmg := InputSpec{Key: "dVmg", Label: "ΔVmg", Unit: "V", Default: 1.0, Format: "%g"}
	dVth := InputSpec{Key: "dVth", Label: "ΔVth", Unit: "V", Default: 1.0, Format: "%g"}

	return []Definition{
		{
			Method:     GateSweep,
			DefectType: OxideTrappedCharge,
			Title:      "Oxide-trapped charge density ΔNot",
			Display:    `\mathrm{\Delta}N_{ot}=\frac{C_{ox}\cdot\mathrm{\Delta}V_{mg}}{q}`,
			Plain:      "ΔNot = Cox·ΔVmg / q",
			Inputs:     []InputSpec{dVmg},
			Compute:    c.GateSweepNot,
			Columns:    []string{"ΔNot"},
		},
		{
			Method:     GateSweep,
			DefectType: InterfaceTraps,
			Title:      "Interface-trap density ΔNit",
			Display:    `\Delta N_{it}=\frac{2\Delta I_{peak}}{q\cdot S_{peak}\cdot n_i\cdot\sigma\cdot\nu_{th}\exp\left(\frac{qV_{BE}}{2kT}\right)}`,
			Plain:      "ΔNit = 2ΔIpeak / (q·Speak·ni·σ·vth·exp(qVBE/2kT))",
			Inputs: []InputSpec{
				{Key: "dIpeak", Label: "ΔIpeak", Unit: "A", Default: 1.0, Format: "%g"},
				{Key: "Speak", Label: "Speak", Unit: "cm²", Default: 1.0, Format: "%g"},
				{Key: "sigma", Label: "σ", Unit: "cm²", Default: 1.0, Format: "%.3e"},
				{Key: "vth", Label: "vth", Unit: "cm/s", Default: 1.0, Format: "%.3e"},
				{Key: "VBE", Label: "VBE", Unit: "V", Default: 1.0, Format: "%g"},
			},
			Compute: c.GateSweepNit,
			Columns: []string{"ΔNit"},
		},
		{
			Method:     GateSweep,
			DefectType: Lifetime,
			Title:      "Generation lifetime τ",
			Display:    `\tau_g=\frac{q\cdot n_i\cdot W\cdot A}{2I_{gen}}`,
			Plain:      "τ = q·ni·W·A / (2·Igen)",
			Inputs: []InputSpec{
				{Key: "Igen", Label: "Igen", Unit: "A", Default: 1.0, Format: "%.3e"},
				{Key: "W", Label: "Depletion width W", Unit: "cm", Default: 1.0, Format: "%g"},
				{Key: "A", Label: "Gate area A", Unit: "cm²", Default: 1.0, Format: "%g"},
			},
			Compute: c.GateSweepLifetime,
			Columns: []string{"τ"},
		},
		{
			Method:     SubthresholdSweep,
			DefectType: OxideTrappedCharge,
			Title:      "Oxide-trapped charge density ΔNot",
			Display:    `\Delta N_{ot}=-\frac{C_{ox}\cdot\Delta V_{mg}}{q}`,
			Plain:      "ΔNot = −Cox·ΔVmg / q",
			Inputs:     []InputSpec{dVmg},
			Compute:    c.SubthresholdNot,
			Columns:    []string{"ΔNot"},
		},
		{
			Method:     SubthresholdSweep,
			DefectType: InterfaceTraps,
			Title:      "Interface-trap density ΔNit",
			Display:    `\Delta N_{it}=\frac{C_{ox}\left(\Delta V_{th}-\Delta V_{mg}\right)}{q}`,
			Plain:      "ΔNit = Cox·(ΔVth − ΔVmg) / q",
			Inputs:     []InputSpec{dVth, dVmg},
			Compute:    c.SubthresholdNit,
			Columns:    []string{"ΔNit"},
		},
		{
			Method:     SubthresholdSweep,
			DefectType: Separation,
			Title:      "Midgap charge separation",
			Display:    `\Delta N_{ot}=-\frac{C_{ox}\Delta V_{mg}}{q},\;\Delta N_{it}=\frac{C_{ox}\left(\Delta V_{th}-\Delta V_{mg}\right)}{q}`,
			Plain:      "ΔNot = −Cox·ΔVmg / q;  ΔNit = Cox·(ΔVth − ΔVmg) / q",
			Inputs:     []InputSpec{dVth, dVmg},
			Compute:    c.SubthresholdSeparation,
			Columns:    []string{"ΔNot", "ΔNit"},
		},
		{
			Method:     ChargePumping,
			DefectType: InterfaceTraps,
			Title:      "Interface-trap density ΔNit",
			Display:    `\Delta N_{it}=\frac{\Delta I_{cp}}{q\cdot f\cdot A_G}`,
			Plain:      "ΔNit = ΔIcp / (q·f·AG)",
			Inputs: []InputSpec{
				{Key: "dIcp", Label: "ΔIcp", Unit: "A", Default: 1.0, Format: "%.3e"},
				{Key: "f", Label: "Pulse frequency f", Unit: "Hz", Default: 1.0, Format: "%g"},
				{Key: "AG", Label: "Gate area AG", Unit: "cm²", Default: 1.0, Format: "%g"},
			},
			Compute: c.ChargePumpingNit,
			Columns: []string{"ΔNit"},
		},
		{
			Method:     FlickerNoise,
			DefectType: OxideTrappedCharge,
			Title:      "Border-trap density ΔNot",
			Display:    `\Delta N_{ot}=\frac{S_{V_g}\cdot W\cdot L\cdot C_{ox}^2\cdot f}{q^2\cdot kT\cdot\lambda}`,
			Plain:      "ΔNot = S_Vg·W·L·Cox²·f / (q²·k·T·λ)",
			Inputs: []InputSpec{
				{Key: "SVg", Label: "Noise power S_Vg", Unit: "V²/Hz", Default: 1.0, Format: "%.3e"},
				{Key: "f", Label: "Frequency f", Unit: "Hz", Default: 1.0, Format: "%g"},
				{Key: "W", Label: "Channel width W", Unit: "cm", Default: 1.0, Format: "%g"},
				{Key: "L", Label: "Channel length L", Unit: "cm", Default: 1.0, Format: "%g"},
				{Key: "lambda", Label: "Tunnelling length λ", Unit: "cm", Default: 1e-8, Format: "%.3e"},
			},
			Compute: c.FlickerNoiseNot,
			Columns: []string{"ΔNot"},
		},
	}
}
