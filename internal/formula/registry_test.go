package formula

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestResolve_GateSweepNot(t *testing.T) {
	r := NewRegistry(DefaultConstants())

	def, err := r.Resolve("GS", "not")
	if err != nil {
		t.Fatalf("Resolve(GS, not) failed: %v", err)
	}
	if def.TableID != "GS/not" {
		t.Errorf("TableID = %q, want %q", def.TableID, "GS/not")
	}
	got, err := def.Compute(Values{"dVmg": 1.0})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(got) != 1 || math.Abs(got[0]-6.25e18)/6.25e18 > 1e-12 {
		t.Errorf("Compute = %v, want [6.25e18]", got)
	}
}

func TestResolve_CaseInsensitive(t *testing.T) {
	r := NewRegistry(DefaultConstants())

	def, err := r.Resolve(" gs ", "NIT")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if def.Method != GateSweep || def.DefectType != InterfaceTraps {
		t.Errorf("resolved %s/%s, want GS/nit", def.Method, def.DefectType)
	}
}

func TestResolve_UnknownPair(t *testing.T) {
	r := NewRegistry(DefaultConstants())

	_, err := r.Resolve("XYZ", "foo")
	if err == nil {
		t.Fatal("expected error for unknown pair")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("errors.Is(err, ErrNotFound) = false for %v", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %T", err)
	}
	if nf.Method != "XYZ" || nf.DefectType != "foo" {
		t.Errorf("NotFoundError = %+v, want XYZ/foo", nf)
	}
}

func TestResolve_KnownMethodUnknownDefect(t *testing.T) {
	r := NewRegistry(DefaultConstants())

	if _, err := r.Resolve("CP", "tau"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(CP, tau) error = %v, want ErrNotFound", err)
	}
}

func TestResolve_SameIdentityAcrossCalls(t *testing.T) {
	r := NewRegistry(DefaultConstants())

	a, _ := r.Resolve("SS", "sep")
	b, _ := r.Resolve("ss", "SEP")
	if a.TableID != b.TableID {
		t.Errorf("TableID differs across resolutions: %q vs %q", a.TableID, b.TableID)
	}
}

func TestMethods_Order(t *testing.T) {
	r := NewRegistry(DefaultConstants())

	want := []Method{GateSweep, SubthresholdSweep, ChargePumping, FlickerNoise}
	got := r.Methods()
	if len(got) != len(want) {
		t.Fatalf("Methods() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Methods()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDefectTypes(t *testing.T) {
	r := NewRegistry(DefaultConstants())

	got, err := r.DefectTypes("SS")
	if err != nil {
		t.Fatalf("DefectTypes(SS) failed: %v", err)
	}
	want := []DefectType{OxideTrappedCharge, InterfaceTraps, Separation}
	if len(got) != len(want) {
		t.Fatalf("DefectTypes(SS) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DefectTypes(SS)[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if _, err := r.DefectTypes("XYZ"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DefectTypes(XYZ) error = %v, want ErrNotFound", err)
	}
}

func TestPairs_AllResolvable(t *testing.T) {
	r := NewRegistry(DefaultConstants())

	seen := make(map[string]bool)
	for _, d := range r.Pairs() {
		if seen[d.TableID] {
			t.Errorf("pair %s enumerated twice", d.TableID)
		}
		seen[d.TableID] = true

		got, err := r.Resolve(string(d.Method), string(d.DefectType))
		if err != nil {
			t.Errorf("Resolve(%s, %s) failed: %v", d.Method, d.DefectType, err)
			continue
		}
		if got.TableID != d.TableID {
			t.Errorf("Resolve returned %s, want %s", got.TableID, d.TableID)
		}
	}
	if len(seen) != 8 {
		t.Errorf("expected 8 registered pairs, got %d", len(seen))
	}
}

func TestPairs_InputKeysUnique(t *testing.T) {
	r := NewRegistry(DefaultConstants())

	for _, d := range r.Pairs() {
		keys := make(map[string]bool)
		for _, in := range d.Inputs {
			if keys[in.Key] {
				t.Errorf("%s: duplicate input key %q", d.TableID, in.Key)
			}
			keys[in.Key] = true
		}
	}
}

func TestPairs_ResultArityMatchesColumns(t *testing.T) {
	r := NewRegistry(DefaultConstants())

	for _, d := range r.Pairs() {
		got, err := d.Compute(d.Defaults())
		if err != nil {
			t.Errorf("%s: Compute(defaults) failed: %v", d.TableID, err)
			continue
		}
		if len(got) != len(d.Columns) {
			t.Errorf("%s: Compute returned %d values, want %d (columns %v)",
				d.TableID, len(got), len(d.Columns), d.Columns)
		}
	}
}

// Every declared input must feed the computation: perturbing it
// changes at least one result value.
func TestPairs_EveryInputIsUsed(t *testing.T) {
	r := NewRegistry(DefaultConstants())

	for _, d := range r.Pairs() {
		base, err := d.Compute(d.Defaults())
		if err != nil {
			t.Fatalf("%s: Compute(defaults) failed: %v", d.TableID, err)
		}
		for _, in := range d.Inputs {
			v := d.Defaults()
			v[in.Key] = in.Default * 2
			got, err := d.Compute(v)
			if err != nil {
				t.Errorf("%s: Compute with %s doubled failed: %v", d.TableID, in.Key, err)
				continue
			}
			changed := false
			for i := range got {
				if got[i] != base[i] {
					changed = true
				}
			}
			if !changed {
				t.Errorf("%s: input %q does not affect the result", d.TableID, in.Key)
			}
		}
	}
}

func TestPairs_Deterministic(t *testing.T) {
	r := NewRegistry(DefaultConstants())

	for _, d := range r.Pairs() {
		a, errA := d.Compute(d.Defaults())
		b, errB := d.Compute(d.Defaults())
		if errA != nil || errB != nil {
			t.Fatalf("%s: unexpected errors %v, %v", d.TableID, errA, errB)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Errorf("%s: result %d differs between calls: %g vs %g",
					d.TableID, i, a[i], b[i])
			}
		}
	}
}

func TestPairs_HaveDisplayStrings(t *testing.T) {
	r := NewRegistry(DefaultConstants())

	for _, d := range r.Pairs() {
		if d.Display == "" || d.Plain == "" || d.Title == "" {
			t.Errorf("%s: missing display text", d.TableID)
		}
		if !strings.Contains(d.TableID, "/") {
			t.Errorf("%s: malformed table id", d.TableID)
		}
	}
}

func TestNotFoundError_Message(t *testing.T) {
	err := &NotFoundError{Method: "XYZ"}
	if !strings.Contains(err.Error(), "unknown test method") {
		t.Errorf("unexpected message: %s", err)
	}
	err = &NotFoundError{Method: "GS", DefectType: "foo"}
	if !strings.Contains(err.Error(), `"foo"`) {
		t.Errorf("unexpected message: %s", err)
	}
}

func TestInputSpec_FormatValue(t *testing.T) {
	s := InputSpec{Format: "%.2e"}
	if got := s.FormatValue(12345); got != "1.23e+04" {
		t.Errorf("FormatValue = %q, want %q", got, "1.23e+04")
	}
	if got := (InputSpec{}).FormatValue(0.5); got != "0.5" {
		t.Errorf("FormatValue default = %q, want %q", got, "0.5")
	}
}

func TestMethodAndDefectNames(t *testing.T) {
	if GateSweep.Name() != "Gate Sweep" {
		t.Errorf("GateSweep.Name() = %q", GateSweep.Name())
	}
	if Method("XYZ").Name() != "XYZ" {
		t.Errorf("unknown method name should echo the id")
	}
	if !strings.Contains(InterfaceTraps.Name(), "ΔNit") {
		t.Errorf("InterfaceTraps.Name() = %q", InterfaceTraps.Name())
	}
}
