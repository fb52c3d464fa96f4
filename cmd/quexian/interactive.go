package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/cmcc2001/quexian/internal/config"
	"github.com/cmcc2001/quexian/internal/engine"
	"github.com/cmcc2001/quexian/internal/formula"
	"github.com/cmcc2001/quexian/internal/ledger"
	"github.com/cmcc2001/quexian/internal/plot"
	"github.com/cmcc2001/quexian/internal/report"
	"github.com/cmcc2001/quexian/internal/session"
)

// keyMap defines keybindings for the interactive TUI.
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Switch    key.Binding
	Method    key.Binding
	Defect    key.Binding
	Edit      key.Binding
	Calculate key.Binding
	Delete    key.Binding
	Reset     key.Binding
	ResetAll  key.Binding
	Plot      key.Binding
	Export    key.Binding
	Back      key.Binding
	Quit      key.Binding
	Help      key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Method, k.Defect, k.Edit, k.Calculate, k.Plot, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Switch},
		{k.Method, k.Defect, k.Edit, k.Calculate},
		{k.Delete, k.Reset, k.ResetAll, k.Plot, k.Export},
		{k.Back, k.Quit, k.Help},
	}
}

var defaultKeyMap = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("^/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("v/j", "down")),
	Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("</h", "prev cell")),
	Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp(">/l", "next cell")),
	Switch:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "inputs/ledger")),
	Method:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "method")),
	Defect:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "defect")),
	Edit:      key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "edit")),
	Calculate: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "calculate")),
	Delete:    key.NewBinding(key.WithKeys("D", "delete"), key.WithHelp("D", "delete row")),
	Reset:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "default input")),
	ResetAll:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "default all")),
	Plot:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "plot")),
	Export:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export")),
	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

// Styles for the TUI.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	tuiHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	tuiBorderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))

	formulaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
)

type pane int

const (
	paneInputs pane = iota
	paneLedger
)

// calcModel is the Bubble Tea model for the interactive calculator.
// All state beyond the cursor lives in the session.
type calcModel struct {
	registry  *formula.Registry
	session   *session.Session
	cfg       *config.Config
	exportDir string

	methods   []formula.Method
	defects   []formula.DefectType
	methodIdx int
	defectIdx int

	def    formula.Definition
	hasDef bool

	pane      pane
	inputRow  int
	ledgerRow int
	ledgerCol int

	editing bool
	input   textinput.Model

	plotting bool
	viewport viewport.Model

	status    string
	statusErr bool

	help   help.Model
	keys   keyMap
	width  int
	height int
}

func newCalcModel(reg *formula.Registry, sess *session.Session, cfg *config.Config, exportDir string) calcModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 64

	m := calcModel{
		registry:  reg,
		session:   sess,
		cfg:       cfg,
		exportDir: exportDir,
		methods:   reg.Methods(),
		defects:   formula.DefectTypes(),
		input:     ti,
		help:      help.New(),
		keys:      defaultKeyMap,
		viewport:  viewport.New(80, 20),
	}
	m.selectPair()
	return m
}

func (m *calcModel) method() formula.Method {
	return m.methods[m.methodIdx]
}

func (m *calcModel) defect() formula.DefectType {
	return m.defects[m.defectIdx]
}

// selectPair resolves the current method and defect type. A pair with
// no formula leaves hasDef false and the view shows a notice.
func (m *calcModel) selectPair() {
	m.inputRow, m.ledgerRow, m.ledgerCol = 0, 0, 0
	m.pane = paneInputs
	def, err := m.registry.Resolve(string(m.method()), string(m.defect()))
	if err != nil {
		m.def, m.hasDef = formula.Definition{}, false
		return
	}
	m.def, m.hasDef = def, true
}

func (m *calcModel) setStatus(msg string) {
	m.status, m.statusErr = msg, false
}

func (m *calcModel) setError(err error) {
	m.status, m.statusErr = err.Error(), true
}

func (m calcModel) Init() tea.Cmd {
	return nil
}

func (m calcModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 2
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		if m.plotting {
			return m.updatePlot(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m calcModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Method):
		m.methodIdx = (m.methodIdx + 1) % len(m.methods)
		m.selectPair()
		m.setStatus("")
	case key.Matches(msg, m.keys.Defect):
		m.defectIdx = (m.defectIdx + 1) % len(m.defects)
		m.selectPair()
		m.setStatus("")
	}

	if !m.hasDef {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Switch):
		if m.pane == paneInputs {
			m.pane = paneLedger
		} else {
			m.pane = paneInputs
		}
	case key.Matches(msg, m.keys.Up):
		m.moveRow(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveRow(1)
	case key.Matches(msg, m.keys.Left):
		if m.pane == paneLedger && m.ledgerCol > 0 {
			m.ledgerCol--
		}
	case key.Matches(msg, m.keys.Right):
		if m.pane == paneLedger && m.ledgerCol < len(m.def.Columns) {
			m.ledgerCol++
		}
	case key.Matches(msg, m.keys.Edit):
		return m.startEdit()
	case key.Matches(msg, m.keys.Calculate):
		m.calculate()
	case key.Matches(msg, m.keys.Delete):
		m.deleteRow()
	case key.Matches(msg, m.keys.Reset):
		m.resetInput()
	case key.Matches(msg, m.keys.ResetAll):
		m.session.Inputs(m.def).Reset()
		m.setStatus("All inputs restored to defaults.")
	case key.Matches(msg, m.keys.Plot):
		m.showPlot()
	case key.Matches(msg, m.keys.Export):
		m.export()
	}
	return m, nil
}

func (m *calcModel) moveRow(delta int) {
	if m.pane == paneInputs {
		m.inputRow = clamp(m.inputRow+delta, 0, len(m.def.Inputs)-1)
		return
	}
	m.ledgerRow = clamp(m.ledgerRow+delta, 0, m.session.Ledger(m.def).Len()-1)
}

// resetInput restores the selected input to its declared default.
func (m *calcModel) resetInput() {
	if m.pane != paneInputs {
		return
	}
	in := m.def.Inputs[m.inputRow]
	if err := m.session.Inputs(m.def).SetValue(in.Key, in.Default); err != nil {
		m.setError(err)
		return
	}
	m.setStatus(fmt.Sprintf("%s restored to %s", in.Key, in.FormatValue(in.Default)))
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}

// startEdit opens the text input on the selected input or ledger cell,
// prefilled with its current value.
func (m calcModel) startEdit() (tea.Model, tea.Cmd) {
	if m.pane == paneInputs {
		in := m.def.Inputs[m.inputRow]
		m.input.SetValue(exactText(m.session.Inputs(m.def).Value(in.Key)))
	} else {
		rows := m.session.Ledger(m.def).Rows()
		if len(rows) == 0 {
			m.setStatus("No results recorded.")
			return m, nil
		}
		r := rows[m.ledgerRow]
		if m.ledgerCol == 0 {
			m.input.SetValue(r.Dose)
		} else {
			m.input.SetValue(exactText(r.Values[m.ledgerCol-1]))
		}
	}
	m.input.CursorEnd()
	m.editing = true
	return m, m.input.Focus()
}

// exactText renders v so that parsing it back yields v. Display
// formats round and are kept out of the editor.
func exactText(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (m calcModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.commitEdit(m.input.Value())
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// commitEdit applies text to the cell being edited. On a parse failure
// the editor stays open and the previous value is kept.
func (m *calcModel) commitEdit(text string) {
	if m.pane == paneInputs {
		in := m.def.Inputs[m.inputRow]
		if err := m.session.Inputs(m.def).Set(in.Key, text); err != nil {
			m.setError(err)
			return
		}
		m.setStatus(fmt.Sprintf("%s = %s", in.Key, m.session.Inputs(m.def).Text(in.Key)))
	} else if err := m.editLedgerCell(text); err != nil {
		m.setError(err)
		return
	}
	m.editing = false
	m.input.Blur()
}

// editLedgerCell rewrites the selected cell and submits the whole
// ledger back through ReplaceAll.
func (m *calcModel) editLedgerCell(text string) error {
	l := m.session.Ledger(m.def)
	rows := l.Rows()
	if m.ledgerCol == 0 {
		rows[m.ledgerRow].Dose = strings.TrimSpace(text)
	} else {
		col := m.def.Columns[m.ledgerCol-1]
		v, err := engine.ParseNumber(col, text)
		if err != nil {
			return err
		}
		rows[m.ledgerRow].Values[m.ledgerCol-1] = v
	}
	if err := l.ReplaceAll(rows); err != nil {
		return err
	}
	m.setStatus(fmt.Sprintf("row %d updated", m.ledgerRow+1))
	return nil
}

func (m *calcModel) calculate() {
	row, err := m.session.Calculate(m.def)
	if err != nil {
		m.setError(err)
		return
	}
	parts := make([]string, len(row.Values))
	for i, v := range row.Values {
		parts[i] = fmt.Sprintf("%s = %s", m.def.Columns[i], report.FormatValue(v))
	}
	m.setStatus(strings.Join(parts, ", "))
	m.ledgerRow = m.session.Ledger(m.def).Len() - 1
}

// deleteRow drops the selected ledger row through ReplaceAll.
func (m *calcModel) deleteRow() {
	if m.pane != paneLedger {
		return
	}
	l := m.session.Ledger(m.def)
	rows := l.Rows()
	if len(rows) == 0 {
		return
	}
	rows = append(rows[:m.ledgerRow], rows[m.ledgerRow+1:]...)
	if err := l.ReplaceAll(rows); err != nil {
		m.setError(err)
		return
	}
	m.setStatus(fmt.Sprintf("row %d deleted", m.ledgerRow+1))
	m.ledgerRow = clamp(m.ledgerRow, 0, len(rows)-1)
}

func (m *calcModel) showPlot() {
	series, err := m.session.Ledger(m.def).PlotSeries()
	if errors.Is(err, ledger.ErrEmpty) {
		m.setStatus(fmt.Sprintf("%s is %s", m.def.TableID, err))
		return
	}
	if err != nil {
		m.setError(err)
		return
	}
	chart, err := plot.Terminal(series, m.cfg.Plot.Width, m.cfg.Plot.Height)
	if err != nil {
		m.setError(err)
		return
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s: %s", m.def.TableID, m.def.Title)))
	sb.WriteString("\n")
	sb.WriteString(chart)
	sb.WriteString("\n")
	for _, col := range m.def.Columns {
		tr, err := m.session.Ledger(m.def).Trend(col)
		if err != nil {
			continue
		}
		sb.WriteString(statusStyle.Render(fmt.Sprintf(
			"\n%s trend: slope %s per krad, R² %.4f", col, report.FormatValue(tr.Slope), tr.RSquared)))
	}
	m.viewport.SetContent(sb.String())
	m.viewport.GotoTop()
	m.plotting = true
}

func (m calcModel) updatePlot(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Plot):
		m.plotting = false
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// exportBase returns the file name stem for exports of the current
// ledger, unique per session.
func (m *calcModel) exportBase() string {
	id := strings.NewReplacer("/", "-").Replace(m.def.TableID)
	return filepath.Join(m.exportDir, fmt.Sprintf("quexian-%s-%s", id, m.session.ID[:8]))
}

// export writes the current ledger as JSON and, when it has rows, a
// PNG plot.
func (m *calcModel) export() {
	l := m.session.Ledger(m.def)
	base := m.exportBase()

	f, err := os.Create(base + ".json")
	if err != nil {
		m.setError(err)
		return
	}
	err = report.WriteLedgerJSON(f, report.NewLedgerExport(m.def, l))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		m.setError(fmt.Errorf("exporting %s: %w", m.def.TableID, err))
		return
	}
	logger.Debug("exported ledger", "path", base+".json", "rows", l.Len())

	series, err := l.PlotSeries()
	if errors.Is(err, ledger.ErrEmpty) {
		m.setStatus(fmt.Sprintf("wrote %s.json (no plot: %s)", base, err))
		return
	}
	if err == nil {
		err = plot.SavePNG(series, m.def.TableID, base+".png", m.cfg.Plot.PNGWidth, m.cfg.Plot.PNGHeight)
	}
	if err != nil {
		m.setError(err)
		return
	}
	m.setStatus(fmt.Sprintf("wrote %s.json and %s.png", base, base))
}

func (m calcModel) View() string {
	if m.plotting {
		return m.viewport.View() + "\n" + statusStyle.Render(" esc: back") + " " + m.help.View(m.keys)
	}
	return m.renderContent() + "\n" + m.renderFooter()
}

func (m calcModel) renderContent() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("Quexian session %s", m.session.ID[:8])))
	sb.WriteString("\n")
	sb.WriteString(tuiHeaderStyle.Render(fmt.Sprintf("Method: %s (%s)   Defect: %s",
		m.method().Name(), m.method(), m.defect().Name())))
	sb.WriteString("\n\n")

	if !m.hasDef {
		sb.WriteString(statusStyle.Render(fmt.Sprintf(
			"No formula is implemented for %s / %s yet.", m.method(), m.defect())))
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(formulaStyle.Render("    " + m.def.Plain))
	sb.WriteString("\n\n")
	sb.WriteString(m.renderInputs())
	sb.WriteString("\n\n")
	sb.WriteString(m.renderLedger())
	sb.WriteString("\n")
	if tables := m.renderTables(); tables != "" {
		sb.WriteString(tables)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m calcModel) renderInputs() string {
	c := m.session.Inputs(m.def)
	rows := make([][]string, 0, len(m.def.Inputs))
	for _, in := range m.def.Inputs {
		rows = append(rows, []string{in.Key, in.Label, in.Unit, c.Text(in.Key)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tuiBorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tuiHeaderStyle
			}
			if m.pane == paneInputs && row == m.inputRow {
				return selectedStyle
			}
			return lipgloss.NewStyle()
		}).
		Headers("KEY", "INPUT", "UNIT", "VALUE").
		Rows(rows...)
	return t.String()
}

func (m calcModel) renderLedger() string {
	l := m.session.Ledger(m.def)
	header := tuiHeaderStyle.Render(fmt.Sprintf("Ledger %s: %d row(s)", m.def.TableID, l.Len()))
	if l.Len() == 0 {
		return header + "\n" + statusStyle.Render("    No results recorded.")
	}

	rows := make([][]string, 0, l.Len())
	for i, r := range l.Rows() {
		cells := []string{fmt.Sprintf("%d", i+1), r.Dose}
		for _, v := range r.Values {
			cells = append(cells, report.FormatValue(v))
		}
		rows = append(rows, cells)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tuiBorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tuiHeaderStyle
			}
			if m.pane == paneLedger && row == m.ledgerRow && col == m.ledgerCol+1 {
				return selectedStyle
			}
			return lipgloss.NewStyle()
		}).
		Headers(append([]string{"#", report.DoseColumn}, m.def.Columns...)...).
		Rows(rows...)
	return header + "\n" + t.String()
}

// renderTables lists every ledger the session holds besides the one on
// screen, with its row count.
func (m calcModel) renderTables() string {
	var parts []string
	for _, id := range m.session.Tables() {
		if id == m.def.TableID {
			continue
		}
		if l, ok := m.session.Lookup(id); ok {
			parts = append(parts, fmt.Sprintf("%s (%d)", id, l.Len()))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return statusStyle.Render("Other ledgers: " + strings.Join(parts, ", "))
}

func (m calcModel) renderFooter() string {
	var sb strings.Builder
	if m.editing {
		sb.WriteString(m.input.View())
		sb.WriteString("\n")
	}
	if m.status != "" {
		if m.statusErr {
			sb.WriteString(errorStyle.Render(m.status))
		} else {
			sb.WriteString(statusStyle.Render(m.status))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

// runInteractive launches the Bubble Tea calculator for a new session.
func runInteractive(reg *formula.Registry, cfg *config.Config, exportDir string) error {
	sess := session.New(logger)
	defer sess.Close()

	model := newCalcModel(reg, sess, cfg, exportDir)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
