// Package ledger holds the per-session result tables that successful
// formula evaluations accumulate into, keyed by radiation dose.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmpty is returned by PlotSeries and Trend when the ledger
	// has no rows.
	ErrEmpty = errors.New("empty, nothing to plot")

	// ErrSchema is returned when a row does not match the ledger's
	// columns.
	ErrSchema = errors.New("row does not match ledger columns")

	// ErrNonNumericDose is returned by Trend when a dose label is not
	// a number.
	ErrNonNumericDose = errors.New("dose labels are not all numeric")

	// ErrDegenerateFit is returned by Trend when the rows admit no
	// finite line, e.g. every dose is the same.
	ErrDegenerateFit = errors.New("no finite trend line")
)

// Row is one ledger entry: a free-text dose label plus one value per
// ledger column.
type Row struct {
	Dose   string    `json:"dose" yaml:"dose"`
	Values []float64 `json:"values" yaml:"values"`
}

func (r Row) clone() Row {
	v := make([]float64, len(r.Values))
	copy(v, r.Values)
	return Row{Dose: r.Dose, Values: v}
}

// Ledger is an ordered, user-editable table of rows. Its column set
// is fixed at creation.
type Ledger struct {
	columns []string
	rows    []Row
}

// New creates an empty ledger with the given result columns.
func New(columns []string) *Ledger {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Ledger{columns: cols}
}

// Columns returns the result column names.
func (l *Ledger) Columns() []string {
	out := make([]string, len(l.columns))
	copy(out, l.columns)
	return out
}

// Len returns the number of rows.
func (l *Ledger) Len() int {
	return len(l.rows)
}

// Rows returns a copy of every row in insertion order.
func (l *Ledger) Rows() []Row {
	out := make([]Row, len(l.rows))
	for i, r := range l.rows {
		out[i] = r.clone()
	}
	return out
}

func (l *Ledger) check(r Row) error {
	if len(r.Values) != len(l.columns) {
		return fmt.Errorf("%w: got %d value(s), want %d (%s)",
			ErrSchema, len(r.Values), len(l.columns), strings.Join(l.columns, ", "))
	}
	for i, v := range r.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is %v, want a finite number", ErrSchema, l.columns[i], v)
		}
	}
	return nil
}

// Append adds row at the end of the ledger.
func (l *Ledger) Append(row Row) error {
	if err := l.check(row); err != nil {
		return err
	}
	l.rows = append(l.rows, row.clone())
	return nil
}

// ReplaceAll swaps in rows as the complete ledger contents. Every row
// is validated first; on error the ledger is unchanged.
func (l *Ledger) ReplaceAll(rows []Row) error {
	next := make([]Row, 0, len(rows))
	for i, r := range rows {
		if err := l.check(r); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		next = append(next, r.clone())
	}
	l.rows = next
	return nil
}

// Series is the plot data for one result column.
type Series struct {
	Column string
	Labels []string
	Values []float64
}

// PlotSeries returns one dose-vs-value series per column. It returns
// ErrEmpty when the ledger has no rows.
func (l *Ledger) PlotSeries() ([]Series, error) {
	if len(l.rows) == 0 {
		return nil, ErrEmpty
	}
	out := make([]Series, len(l.columns))
	for c, name := range l.columns {
		s := Series{
			Column: name,
			Labels: make([]string, len(l.rows)),
			Values: make([]float64, len(l.rows)),
		}
		for i, r := range l.rows {
			s.Labels[i] = r.Dose
			s.Values[i] = r.Values[c]
		}
		out[c] = s
	}
	return out, nil
}

// Trend holds a least-squares fit of a column against numeric dose.
type Trend struct {
	Column    string  `json:"column" yaml:"column"`
	Slope     float64 `json:"slope" yaml:"slope"`
	Intercept float64 `json:"intercept" yaml:"intercept"`
	RSquared  float64 `json:"r_squared" yaml:"r_squared"`
}

// Trend fits value = Intercept + Slope·dose for the named column.
// Every dose label must parse as a number and at least two rows must
// exist.
func (l *Ledger) Trend(column string) (Trend, error) {
	c := -1
	for i, name := range l.columns {
		if name == column {
			c = i
		}
	}
	if c < 0 {
		return Trend{}, fmt.Errorf("unknown column %q", column)
	}
	if len(l.rows) == 0 {
		return Trend{}, ErrEmpty
	}
	if len(l.rows) < 2 {
		return Trend{}, fmt.Errorf("trend needs at least 2 rows, have %d", len(l.rows))
	}

	xs := make([]float64, len(l.rows))
	ys := make([]float64, len(l.rows))
	for i, r := range l.rows {
		d, err := strconv.ParseFloat(strings.TrimSpace(r.Dose), 64)
		if err != nil {
			return Trend{}, fmt.Errorf("%w: row %d has %q", ErrNonNumericDose, i+1, r.Dose)
		}
		xs[i] = d
		ys[i] = r.Values[c]
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, intercept, slope)
	if flat(ys) && !math.IsNaN(slope) {
		// Zero total variance: the fitted constant explains everything.
		r2 = 1
	}
	for _, v := range []float64{intercept, slope, r2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Trend{}, fmt.Errorf("%w: column %q", ErrDegenerateFit, column)
		}
	}
	return Trend{
		Column:    column,
		Slope:     slope,
		Intercept: intercept,
		RSquared:  r2,
	}, nil
}

func flat(ys []float64) bool {
	for _, y := range ys[1:] {
		if y != ys[0] {
			return false
		}
	}
	return true
}
