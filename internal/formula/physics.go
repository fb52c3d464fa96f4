package formula

import (
	"fmt"
	"math"
)

// Constants holds the physical constants shared by every formula.
type Constants struct {
	// Q is the elementary charge (C).
	Q float64 `json:"q"`

	// K is the Boltzmann constant (J/K).
	K float64 `json:"k"`

	// Cox is the oxide capacitance per unit area (F/cm²).
	Cox float64 `json:"cox"`

	// Ni is the intrinsic carrier concentration (cm⁻³).
	Ni float64 `json:"ni"`

	// T is the device temperature (K).
	T float64 `json:"t"`
}

// DefaultConstants returns the constants used when no configuration
// overrides them.
func DefaultConstants() Constants {
	return Constants{
		Q:   1.6e-19,
		K:   1.38e-23,
		Cox: 1,
		Ni:  1,
		T:   300,
	}
}

// quotient divides num by den, failing when den is zero. name
// describes the denominator in the error.
func quotient(num, den float64, name string) (float64, error) {
	if den == 0 {
		return 0, fmt.Errorf("division by zero: %s is 0", name)
	}
	return num / den, nil
}

// GateSweepNot computes ΔNot = Cox·ΔVmg / q.
func (c Constants) GateSweepNot(v Values) ([]float64, error) {
	n, err := quotient(c.Cox*v["dVmg"], c.Q, "q")
	if err != nil {
		return nil, err
	}
	return []float64{n}, nil
}

// GateSweepNit computes
// ΔNit = 2·ΔIpeak / (q·Speak·ni·σ·vth·exp(q·VBE / 2kT)).
func (c Constants) GateSweepNit(v Values) ([]float64, error) {
	x, err := quotient(c.Q*v["VBE"], 2*c.K*c.T, "2kT")
	if err != nil {
		return nil, err
	}
	e := math.Exp(x)
	if math.IsInf(e, 0) {
		return nil, fmt.Errorf("exp overflow: qVBE/2kT = %g", x)
	}
	den := c.Q * v["Speak"] * c.Ni * v["sigma"] * v["vth"] * e
	n, err := quotient(2*v["dIpeak"], den, "q·Speak·ni·σ·vth·exp(qVBE/2kT)")
	if err != nil {
		return nil, err
	}
	return []float64{n}, nil
}

// GateSweepLifetime computes the generation lifetime of a gated diode,
// τ = q·ni·W·A / (2·Igen).
func (c Constants) GateSweepLifetime(v Values) ([]float64, error) {
	tau, err := quotient(c.Q*c.Ni*v["W"]*v["A"], 2*v["Igen"], "Igen")
	if err != nil {
		return nil, err
	}
	return []float64{tau}, nil
}

// SubthresholdNot computes the midgap-shift oxide charge,
// ΔNot = −Cox·ΔVmg / q.
func (c Constants) SubthresholdNot(v Values) ([]float64, error) {
	n, err := quotient(-c.Cox*v["dVmg"], c.Q, "q")
	if err != nil {
		return nil, err
	}
	return []float64{n}, nil
}

// SubthresholdNit computes ΔNit = Cox·(ΔVth − ΔVmg) / q.
func (c Constants) SubthresholdNit(v Values) ([]float64, error) {
	n, err := quotient(c.Cox*(v["dVth"]-v["dVmg"]), c.Q, "q")
	if err != nil {
		return nil, err
	}
	return []float64{n}, nil
}

// SubthresholdSeparation returns ΔNot and ΔNit from one pair of
// threshold and midgap shifts.
func (c Constants) SubthresholdSeparation(v Values) ([]float64, error) {
	not, err := c.SubthresholdNot(v)
	if err != nil {
		return nil, err
	}
	nit, err := c.SubthresholdNit(v)
	if err != nil {
		return nil, err
	}
	return []float64{not[0], nit[0]}, nil
}

// ChargePumpingNit computes ΔNit = ΔIcp / (q·f·AG).
func (c Constants) ChargePumpingNit(v Values) ([]float64, error) {
	n, err := quotient(v["dIcp"], c.Q*v["f"]*v["AG"], "q·f·AG")
	if err != nil {
		return nil, err
	}
	return []float64{n}, nil
}

// FlickerNoiseNot inverts the number-fluctuation noise model,
// ΔNot = S_Vg·W·L·Cox²·f / (q²·k·T·λ).
func (c Constants) FlickerNoiseNot(v Values) ([]float64, error) {
	num := v["SVg"] * v["W"] * v["L"] * c.Cox * c.Cox * v["f"]
	den := c.Q * c.Q * c.K * c.T * v["lambda"]
	n, err := quotient(num, den, "q²·k·T·λ")
	if err != nil {
		return nil, err
	}
	return []float64{n}, nil
}
