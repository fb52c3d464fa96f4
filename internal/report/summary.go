package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/cmcc2001/quexian/internal/sheet"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteSheetSummary writes the per-column minima of a spreadsheet and
// the global minimum.
func WriteSheetSummary(w io.Writer, s sheet.Summary) error {
	st := DefaultStyles()

	fmt.Fprintln(w, st.Header.Render("Column minima"))
	fmt.Fprintln(w)

	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{
				Left:   tw.Off,
				Right:  tw.Off,
				Top:    tw.Off,
				Bottom: tw.Off,
			},
			Settings: tw.Settings{
				Separators: tw.Separators{
					BetweenColumns: tw.Off,
				},
			},
		}),
	)

	table.Header([]string{"COLUMN", "MIN"})
	for _, c := range s.Columns {
		if err := table.Append([]string{c.Column, strconv.FormatFloat(c.Min, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s %s\n",
		st.Header.Render("Global minimum:"),
		st.Value.Render(strconv.FormatFloat(s.Min, 'g', -1, 64)),
		st.Muted.Render(fmt.Sprintf("(column %s)", s.MinColumn)))
	return nil
}

// WriteSheetSummaryJSON writes the summary as indented JSON.
func WriteSheetSummaryJSON(w io.Writer, s sheet.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
