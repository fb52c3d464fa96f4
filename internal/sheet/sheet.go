// Package sheet previews uploaded measurement spreadsheets. It is
// stateless and independent of the formula engine.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/floats"
)

// ErrNoNumericColumns is returned when a table has no numeric column.
var ErrNoNumericColumns = errors.New("no numeric columns detected")

// Table is a header row plus data rows of raw cell text.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Read loads an .xlsx (first sheet) or .csv file. The first row is the
// header.
func Read(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	case ".csv":
		return readCSV(path)
	case ".xls":
		return nil, fmt.Errorf("%s: legacy .xls workbooks are not supported, save it as .xlsx", path)
	default:
		return nil, fmt.Errorf("unsupported file type %q: want .xlsx or .csv", filepath.Ext(path))
	}
}

func readXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no sheets", path)
	}
	// Raw values; formatted text rounds and adds separators.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return fromRecords(rows), nil
}

func readCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return fromRecords(records), nil
}

func fromRecords(records [][]string) *Table {
	t := &Table{}
	if len(records) == 0 {
		return t
	}
	t.Columns = records[0]
	t.Rows = records[1:]
	return t
}

// ColumnMin is the minimum of one numeric column.
type ColumnMin struct {
	Column string  `json:"column"`
	Min    float64 `json:"min"`
}

// Summary holds per-column minima and the global minimum.
type Summary struct {
	Columns   []ColumnMin `json:"columns"`
	Min       float64     `json:"min"`
	MinColumn string      `json:"min_column"`
}

// SummarizeNumericColumns finds the minimum of every numeric column
// and the global minimum. A column is numeric when every non-empty
// cell parses as a number and at least one cell is non-empty. Ties for
// the global minimum go to the leftmost column.
func SummarizeNumericColumns(t *Table) (Summary, error) {
	var s Summary
	var mins []float64
	for c, name := range t.Columns {
		vals, ok := numericColumn(t.Rows, c)
		if !ok {
			continue
		}
		m := floats.Min(vals)
		s.Columns = append(s.Columns, ColumnMin{Column: name, Min: m})
		mins = append(mins, m)
	}
	if len(mins) == 0 {
		return Summary{}, ErrNoNumericColumns
	}
	i := floats.MinIdx(mins)
	s.Min = mins[i]
	s.MinColumn = s.Columns[i].Column
	return s, nil
}

func numericColumn(rows [][]string, c int) ([]float64, bool) {
	var vals []float64
	for _, row := range rows {
		if c >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[c])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, false
		}
		vals = append(vals, v)
	}
	return vals, len(vals) > 0
}
