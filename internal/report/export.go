// Package report provides output formatters for formula listings and
// result ledgers in styled text, JSON, YAML and CSV.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/cmcc2001/quexian/internal/formula"
	"github.com/cmcc2001/quexian/internal/ledger"
	"gopkg.in/yaml.v3"
)

// ExportVersion is the ledger export format version.
const ExportVersion = "1.0.0"

// LedgerExport is the serialized form of one ledger.
type LedgerExport struct {
	Version    string         `json:"version" yaml:"version"`
	Table      string         `json:"table" yaml:"table"`
	Method     string         `json:"method" yaml:"method"`
	DefectType string         `json:"defect_type" yaml:"defect_type"`
	Formula    string         `json:"formula" yaml:"formula"`
	Columns    []string       `json:"columns" yaml:"columns"`
	Rows       []ledger.Row   `json:"rows" yaml:"rows"`
	Trends     []ledger.Trend `json:"trends,omitempty" yaml:"trends,omitempty"`
}

// NewLedgerExport builds the export of def's ledger. Trends are
// included for every column when the dose labels allow a fit.
func NewLedgerExport(def formula.Definition, l *ledger.Ledger) LedgerExport {
	rows := l.Rows()
	if rows == nil {
		rows = []ledger.Row{}
	}
	exp := LedgerExport{
		Version:    ExportVersion,
		Table:      def.TableID,
		Method:     string(def.Method),
		DefectType: string(def.DefectType),
		Formula:    def.Plain,
		Columns:    l.Columns(),
		Rows:       rows,
	}
	for _, col := range exp.Columns {
		tr, err := l.Trend(col)
		if err != nil {
			continue
		}
		exp.Trends = append(exp.Trends, tr)
	}
	return exp
}

// WriteLedgerJSON writes the export as indented JSON.
func WriteLedgerJSON(w io.Writer, exp LedgerExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exp)
}

// WriteLedgerYAML writes the export as YAML.
func WriteLedgerYAML(w io.Writer, exp LedgerExport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(exp); err != nil {
		return err
	}
	return enc.Close()
}

// WriteLedgerCSV writes a header row (dose then result columns) and
// one record per ledger row.
func WriteLedgerCSV(w io.Writer, exp LedgerExport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{DoseColumn}, exp.Columns...)); err != nil {
		return err
	}
	for _, r := range exp.Rows {
		rec := []string{r.Dose}
		for _, v := range r.Values {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLedger writes exp in the named format: json, yaml or csv.
func WriteLedger(w io.Writer, format string, exp LedgerExport) error {
	switch format {
	case "json":
		return WriteLedgerJSON(w, exp)
	case "yaml":
		return WriteLedgerYAML(w, exp)
	case "csv":
		return WriteLedgerCSV(w, exp)
	default:
		return errors.New("unsupported export format " + strconv.Quote(format))
	}
}

// RegistryExport is the JSON listing of every registered formula.
type RegistryExport struct {
	Version  string               `json:"version"`
	Formulas []formula.Definition `json:"formulas"`
}

// WriteMethodsJSON writes every registered definition as JSON.
func WriteMethodsJSON(w io.Writer, defs []formula.Definition) error {
	if defs == nil {
		defs = []formula.Definition{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(RegistryExport{Version: ExportVersion, Formulas: defs})
}
