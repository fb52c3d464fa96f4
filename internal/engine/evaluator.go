package engine

import (
	"fmt"
	"math"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/cmcc2001/quexian/internal/formula"
	"github.com/cmcc2001/quexian/internal/ledger"
)

// Evaluator runs formulas and appends successful results to the
// ledgers of one session.
type Evaluator struct {
	store  *ledger.Store
	logger *log.Logger
}

// NewEvaluator creates an evaluator recording into store. A nil
// logger uses log.Default().
func NewEvaluator(store *ledger.Store, logger *log.Logger) *Evaluator {
	if logger == nil {
		logger = log.Default()
	}
	return &Evaluator{store: store, logger: logger}
}

// Compute evaluates def with values without recording anything.
//
// values must hold exactly the keys declared by def.Inputs; anything
// else is a programming error and panics. Domain failures return a
// *ComputationError.
func Compute(def formula.Definition, values formula.Values) ([]float64, error) {
	checkKeys(def, values)

	out, err := def.Compute(values)
	if err != nil {
		return nil, &ComputationError{Formula: def.TableID, Err: err}
	}
	if len(out) != len(def.Columns) {
		return nil, &ComputationError{
			Formula: def.TableID,
			Err: fmt.Errorf("formula returned %d value(s) for %d column(s)",
				len(out), len(def.Columns)),
		}
	}
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &ComputationError{
				Formula: def.TableID,
				Err:     fmt.Errorf("%s is %v", def.Columns[i], v),
			}
		}
	}
	return out, nil
}

func checkKeys(def formula.Definition, values formula.Values) {
	var missing, extra []string
	for _, in := range def.Inputs {
		if _, ok := values[in.Key]; !ok {
			missing = append(missing, in.Key)
		}
	}
	for k := range values {
		if _, ok := def.Input(k); !ok {
			extra = append(extra, k)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		slices.Sort(extra)
		panic(fmt.Sprintf("engine: %s called with missing inputs %v and undeclared inputs %v",
			def.TableID, missing, extra))
	}
}

// Evaluate computes def with values and, on success, appends a row
// with an empty dose label to def's ledger. On failure the ledger is
// unchanged.
func (e *Evaluator) Evaluate(def formula.Definition, values formula.Values) (ledger.Row, error) {
	out, err := Compute(def, values)
	if err != nil {
		e.logger.Debug("calculation rejected", "formula", def.TableID, "err", err)
		return ledger.Row{}, err
	}

	row := ledger.Row{Dose: "", Values: out}
	l := e.store.For(def)
	if err := l.Append(row); err != nil {
		return ledger.Row{}, fmt.Errorf("recording %s: %w", def.TableID, err)
	}
	e.logger.Debug("calculation recorded", "formula", def.TableID,
		"values", out, "rows", l.Len())
	return row, nil
}

// Ledger returns def's ledger in the evaluator's store.
func (e *Evaluator) Ledger(def formula.Definition) *ledger.Ledger {
	return e.store.For(def)
}
