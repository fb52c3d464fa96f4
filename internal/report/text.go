package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/cmcc2001/quexian/internal/formula"
	"github.com/cmcc2001/quexian/internal/ledger"
)

// DoseColumn is the header of the dose label column.
const DoseColumn = "Dose(krad)"

// FormatValue renders a result value in scientific notation.
func FormatValue(v float64) string {
	return fmt.Sprintf("%.4e", v)
}

// WriteMethods writes every method and its defect types.
func WriteMethods(w io.Writer, defs []formula.Definition) error {
	s := DefaultStyles()

	rows := make([][]string, 0, len(defs))
	for _, d := range defs {
		rows = append(rows, []string{
			string(d.Method),
			d.Method.Name(),
			string(d.DefectType),
			d.Title,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.TableHeader
			}
			return s.TableCell
		}).
		Headers("METHOD", "NAME", "DEFECT", "METRIC").
		Rows(rows...)

	fmt.Fprintln(w, t)
	fmt.Fprintf(w, "\n%s\n", s.Header.Render(
		fmt.Sprintf("%d formula(s) registered", len(defs))))
	return nil
}

// WriteDefinition writes a formula with its inputs. values supplies the
// current input values; nil shows the defaults.
func WriteDefinition(w io.Writer, def formula.Definition, values formula.Values) error {
	s := DefaultStyles()

	fmt.Fprintln(w, s.Header.Render(fmt.Sprintf("=== %s: %s ===", def.Method.Name(), def.Title)))
	fmt.Fprintln(w, s.Formula.Render("    "+def.Plain))
	fmt.Fprintln(w, s.SubHeader.Render("    "+def.Display))
	fmt.Fprintln(w)

	rows := make([][]string, 0, len(def.Inputs))
	for _, in := range def.Inputs {
		v := in.Default
		if values != nil {
			v = values[in.Key]
		}
		rows = append(rows, []string{in.Key, in.Label, in.Unit, in.FormatValue(v)})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.TableHeader
			}
			return s.TableCell
		}).
		Headers("KEY", "INPUT", "UNIT", "VALUE").
		Rows(rows...)

	fmt.Fprintln(w, t)
	fmt.Fprintf(w, "    Results: %s\n", strings.Join(def.Columns, ", "))
	return nil
}

// WriteNotImplemented writes the neutral notice shown for a (method,
// defect type) pair without a formula.
func WriteNotImplemented(w io.Writer, method, defect string) {
	s := DefaultStyles()
	fmt.Fprintln(w, s.Muted.Render(fmt.Sprintf(
		"No formula is implemented for %s / %s yet.", method, defect)))
}

// WriteLedgerText writes a ledger as a styled table.
func WriteLedgerText(w io.Writer, title string, l *ledger.Ledger) error {
	s := DefaultStyles()

	fmt.Fprintln(w, s.Header.Render(fmt.Sprintf("=== %s ===", title)))
	if l.Len() == 0 {
		fmt.Fprintln(w, s.Muted.Render("    No results recorded."))
		return nil
	}

	headers := append([]string{"#", DoseColumn}, l.Columns()...)
	rows := make([][]string, 0, l.Len())
	for i, r := range l.Rows() {
		cells := []string{fmt.Sprintf("%d", i+1), r.Dose}
		for _, v := range r.Values {
			cells = append(cells, FormatValue(v))
		}
		rows = append(rows, cells)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.TableHeader
			}
			if col >= 2 {
				return s.Value
			}
			return s.TableCell
		}).
		Headers(headers...).
		Rows(rows...)

	fmt.Fprintln(w, t)
	fmt.Fprintf(w, "%s\n", s.SubHeader.Render(fmt.Sprintf("%d row(s)", l.Len())))
	return nil
}

// WriteResultText writes one computed row.
func WriteResultText(w io.Writer, def formula.Definition, row ledger.Row) error {
	s := DefaultStyles()
	for i, col := range def.Columns {
		fmt.Fprintf(w, "%s = %s\n", col, s.Value.Render(FormatValue(row.Values[i])))
	}
	if row.Dose != "" {
		fmt.Fprintf(w, "%s\n", s.Muted.Render(fmt.Sprintf("dose: %s krad", row.Dose)))
	}
	return nil
}
