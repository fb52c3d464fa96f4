package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cmcc2001/quexian/internal/formula"
	"github.com/cmcc2001/quexian/internal/ledger"
	"github.com/cmcc2001/quexian/internal/sheet"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

func testRegistry() *formula.Registry {
	return formula.NewRegistry(formula.DefaultConstants())
}

func mustResolve(t *testing.T, method, defect string) formula.Definition {
	t.Helper()
	def, err := testRegistry().Resolve(method, defect)
	if err != nil {
		t.Fatalf("Resolve(%s, %s) failed: %v", method, defect, err)
	}
	return def
}

// sampleLedger returns an SS/sep ledger with three numeric doses.
func sampleLedger(t *testing.T) (formula.Definition, *ledger.Ledger) {
	t.Helper()
	def := mustResolve(t, "SS", "sep")
	l := ledger.New(def.Columns)
	rows := []ledger.Row{
		{Dose: "0", Values: []float64{1.0e11, 2.0e11}},
		{Dose: "50", Values: []float64{1.5e11, 2.5e11}},
		{Dose: "100", Values: []float64{2.0e11, 3.0e11}},
	}
	for _, r := range rows {
		if err := l.Append(r); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	return def, l
}

func compileLedgerSchema(t *testing.T) *jsonschema.Schema {
	t.Helper()
	sch, err := jsonschema.UnmarshalJSON(strings.NewReader(LedgerSchema))
	if err != nil {
		t.Fatalf("failed to parse schema JSON: %v", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", sch); err != nil {
		t.Fatalf("failed to add schema resource: %v", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		t.Fatalf("failed to compile schema: %v", err)
	}
	return compiled
}

// stripANSI removes ANSI escape sequences from text for width measurement.
var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

// ---------------------------------------------------------------------------
// JSON export
// ---------------------------------------------------------------------------

func TestWriteLedgerJSON_ValidAgainstSchema(t *testing.T) {
	compiled := compileLedgerSchema(t)

	def, l := sampleLedger(t)
	var buf bytes.Buffer
	if err := WriteLedgerJSON(&buf, NewLedgerExport(def, l)); err != nil {
		t.Fatalf("WriteLedgerJSON failed: %v", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if err := compiled.Validate(inst); err != nil {
		t.Errorf("JSON output does not conform to schema:\n%v", err)
	}
}

func TestWriteLedgerJSON_EmptyLedgerValidAgainstSchema(t *testing.T) {
	compiled := compileLedgerSchema(t)

	def := mustResolve(t, "GS", "not")
	var buf bytes.Buffer
	if err := WriteLedgerJSON(&buf, NewLedgerExport(def, ledger.New(def.Columns))); err != nil {
		t.Fatalf("WriteLedgerJSON failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"rows": []`) {
		t.Errorf("expected empty rows array, got:\n%s", buf.String())
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if err := compiled.Validate(inst); err != nil {
		t.Errorf("empty ledger JSON does not conform to schema:\n%v", err)
	}
}

func TestWriteLedgerJSON_Contents(t *testing.T) {
	def, l := sampleLedger(t)
	var buf bytes.Buffer
	if err := WriteLedgerJSON(&buf, NewLedgerExport(def, l)); err != nil {
		t.Fatal(err)
	}

	var got LedgerExport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got.Version != ExportVersion {
		t.Errorf("Version = %q, want %q", got.Version, ExportVersion)
	}
	if got.Table != "SS/sep" {
		t.Errorf("Table = %q, want %q", got.Table, "SS/sep")
	}
	if len(got.Rows) != 3 || got.Rows[1].Dose != "50" {
		t.Errorf("Rows = %+v, want 3 rows with dose 50 second", got.Rows)
	}
	if len(got.Trends) != 2 {
		t.Fatalf("Trends has %d entries, want 2", len(got.Trends))
	}
	if math.Abs(got.Trends[0].Slope-1e9) > 1 {
		t.Errorf("Trends[0].Slope = %g, want 1e9", got.Trends[0].Slope)
	}
}

func TestNewLedgerExport_NonNumericDoseOmitsTrends(t *testing.T) {
	def := mustResolve(t, "GS", "not")
	l := ledger.New(def.Columns)
	_ = l.Append(ledger.Row{Dose: "pre", Values: []float64{1}})
	_ = l.Append(ledger.Row{Dose: "post", Values: []float64{2}})

	exp := NewLedgerExport(def, l)
	if len(exp.Trends) != 0 {
		t.Errorf("Trends = %+v, want none", exp.Trends)
	}
	var buf bytes.Buffer
	if err := WriteLedgerJSON(&buf, exp); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "trends") {
		t.Error("trends key should be omitted when no fit exists")
	}
}

func TestWriteMethodsJSON_ListsEveryPair(t *testing.T) {
	defs := testRegistry().Pairs()
	var buf bytes.Buffer
	if err := WriteMethodsJSON(&buf, defs); err != nil {
		t.Fatal(err)
	}

	var got struct {
		Formulas []struct {
			Method     string `json:"method"`
			DefectType string `json:"defect_type"`
		} `json:"formulas"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(got.Formulas) != len(defs) {
		t.Fatalf("formulas = %d, want %d", len(got.Formulas), len(defs))
	}
	if got.Formulas[0].Method == "" || got.Formulas[0].DefectType == "" {
		t.Errorf("first formula missing identity: %+v", got.Formulas[0])
	}
}

// ---------------------------------------------------------------------------
// YAML and CSV export
// ---------------------------------------------------------------------------

func TestWriteLedgerYAML(t *testing.T) {
	def, l := sampleLedger(t)
	var buf bytes.Buffer
	if err := WriteLedgerYAML(&buf, NewLedgerExport(def, l)); err != nil {
		t.Fatalf("WriteLedgerYAML failed: %v", err)
	}

	var got LedgerExport
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if got.DefectType != "sep" {
		t.Errorf("DefectType = %q, want %q", got.DefectType, "sep")
	}
	if len(got.Rows) != 3 {
		t.Errorf("Rows = %d, want 3", len(got.Rows))
	}
	if !strings.Contains(buf.String(), "r_squared:") {
		t.Error("expected r_squared key in YAML output")
	}
}

func TestWriteLedgerCSV(t *testing.T) {
	def, l := sampleLedger(t)
	var buf bytes.Buffer
	if err := WriteLedgerCSV(&buf, NewLedgerExport(def, l)); err != nil {
		t.Fatalf("WriteLedgerCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want header + 3", len(records))
	}
	if records[0][0] != DoseColumn || len(records[0]) != 3 {
		t.Errorf("header = %v, want %s plus 2 columns", records[0], DoseColumn)
	}
	if records[3][0] != "100" || records[3][1] != "2e+11" {
		t.Errorf("last record = %v, want [100 2e+11 3e+11]", records[3])
	}
}

func TestWriteLedger_Dispatch(t *testing.T) {
	def, l := sampleLedger(t)
	exp := NewLedgerExport(def, l)

	for _, format := range []string{"json", "yaml", "csv"} {
		var buf bytes.Buffer
		if err := WriteLedger(&buf, format, exp); err != nil {
			t.Errorf("WriteLedger(%s) failed: %v", format, err)
		}
		if buf.Len() == 0 {
			t.Errorf("WriteLedger(%s) wrote nothing", format)
		}
	}
	if err := WriteLedger(&bytes.Buffer{}, "xml", exp); err == nil {
		t.Error("expected error for unsupported format")
	}
}

// ---------------------------------------------------------------------------
// Text output
// ---------------------------------------------------------------------------

func TestWriteMethods(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMethods(&buf, testRegistry().Pairs()); err != nil {
		t.Fatal(err)
	}
	out := stripANSI(buf.String())
	for _, want := range []string{"METHOD", "Gate Sweep", "Charge Pumping", "1/f", "8 formula(s) registered"} {
		if !strings.Contains(out, want) {
			t.Errorf("methods output missing %q", want)
		}
	}
}

func TestWriteDefinition_ShowsInputsAndFormula(t *testing.T) {
	def := mustResolve(t, "GS", "nit")
	var buf bytes.Buffer
	if err := WriteDefinition(&buf, def, nil); err != nil {
		t.Fatal(err)
	}
	out := stripANSI(buf.String())
	if !strings.Contains(out, def.Plain) {
		t.Errorf("expected plain formula %q in output", def.Plain)
	}
	for _, in := range def.Inputs {
		if !strings.Contains(out, in.Key) {
			t.Errorf("expected input key %q in output", in.Key)
		}
	}
	if !strings.Contains(out, "Results: "+def.Columns[0]) {
		t.Error("expected results line")
	}
}

func TestWriteDefinition_UsesCurrentValues(t *testing.T) {
	def := mustResolve(t, "GS", "not")
	var buf bytes.Buffer
	if err := WriteDefinition(&buf, def, formula.Values{"dVmg": 0.125}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stripANSI(buf.String()), def.Inputs[0].FormatValue(0.125)) {
		t.Errorf("expected current value in output:\n%s", buf.String())
	}
}

func TestWriteNotImplemented(t *testing.T) {
	var buf bytes.Buffer
	WriteNotImplemented(&buf, "CP", "tau")
	out := stripANSI(buf.String())
	if !strings.Contains(out, "CP / tau") {
		t.Errorf("notice = %q, want method and defect named", out)
	}
	if strings.Contains(strings.ToLower(out), "error") {
		t.Errorf("notice should be neutral, got %q", out)
	}
}

func TestWriteLedgerText_Empty(t *testing.T) {
	def := mustResolve(t, "GS", "not")
	var buf bytes.Buffer
	if err := WriteLedgerText(&buf, def.TableID, ledger.New(def.Columns)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No results recorded.") {
		t.Errorf("expected empty notice, got:\n%s", buf.String())
	}
}

func TestWriteLedgerText_FitsIn80Columns(t *testing.T) {
	def, l := sampleLedger(t)
	var buf bytes.Buffer
	if err := WriteLedgerText(&buf, def.TableID, l); err != nil {
		t.Fatal(err)
	}

	const maxWidth = 80
	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		plain := stripANSI(line)
		width := utf8.RuneCountInString(plain)
		if width > maxWidth {
			t.Errorf("line %d exceeds %d columns (%d runes): %q",
				i+1, maxWidth, width, plain)
		}
	}
	out := stripANSI(buf.String())
	if !strings.Contains(out, "3 row(s)") {
		t.Error("expected row count footer")
	}
	if !strings.Contains(out, FormatValue(2.5e11)) {
		t.Errorf("expected %s in ledger text", FormatValue(2.5e11))
	}
}

func TestWriteResultText(t *testing.T) {
	def := mustResolve(t, "GS", "not")
	var buf bytes.Buffer
	if err := WriteResultText(&buf, def, ledger.Row{Dose: "20", Values: []float64{6.25e18}}); err != nil {
		t.Fatal(err)
	}
	out := stripANSI(buf.String())
	if !strings.Contains(out, "6.2500e+18") {
		t.Errorf("expected formatted value, got %q", out)
	}
	if !strings.Contains(out, "dose: 20 krad") {
		t.Errorf("expected dose line, got %q", out)
	}
}

// ---------------------------------------------------------------------------
// Sheet summary
// ---------------------------------------------------------------------------

func TestWriteSheetSummary(t *testing.T) {
	s := sheet.Summary{
		Columns: []sheet.ColumnMin{
			{Column: "Vg", Min: -1.5},
			{Column: "Id", Min: 2e-9},
		},
		Min:       -1.5,
		MinColumn: "Vg",
	}
	var buf bytes.Buffer
	if err := WriteSheetSummary(&buf, s); err != nil {
		t.Fatalf("WriteSheetSummary failed: %v", err)
	}
	out := stripANSI(buf.String())
	for _, want := range []string{"COLUMN", "Vg", "2e-09", "Global minimum: -1.5", "(column Vg)"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSheetSummaryJSON(t *testing.T) {
	s := sheet.Summary{
		Columns:   []sheet.ColumnMin{{Column: "A", Min: 3}},
		Min:       3,
		MinColumn: "A",
	}
	var buf bytes.Buffer
	if err := WriteSheetSummaryJSON(&buf, s); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"min_column": "A"`) {
		t.Errorf("unexpected JSON:\n%s", buf.String())
	}
}
