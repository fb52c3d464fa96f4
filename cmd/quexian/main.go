package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/cmcc2001/quexian/internal/config"
	"github.com/cmcc2001/quexian/internal/formula"
	"github.com/cmcc2001/quexian/internal/report"
	"github.com/cmcc2001/quexian/internal/scaffold"
	"github.com/cmcc2001/quexian/internal/session"
	"github.com/cmcc2001/quexian/internal/sheet"
	"github.com/spf13/cobra"
)

// logger is the application-wide structured logger (writes to stderr).
var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: false,
})

// Set by build flags.
var version = "dev"

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	gf := &globalFlags{}

	root := &cobra.Command{
		Use:   "quexian",
		Short: "Quexian: radiation-damage defect metrics from device measurements",
		Long: `Quexian computes radiation-induced defect metrics (oxide-trapped
charge ΔNot, interface-trap density ΔNit, minority-carrier lifetime τ)
from measurements taken with the gate sweep, subthreshold sweep,
charge pumping and 1/f noise test methods, and records the results
against radiation dose.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if gf.verbose {
				logger.SetLevel(charmlog.DebugLevel)
			}
		},
	}

	root.PersistentFlags().StringVar(&gf.configPath, "config", "",
		"path to config file (default: search quexian.{toml,yaml,json} in . and .quexian/)")
	root.PersistentFlags().BoolVarP(&gf.verbose, "verbose", "v", false,
		"enable debug logging")

	root.AddCommand(newInitCmd())
	root.AddCommand(newMethodsCmd(gf))
	root.AddCommand(newShowCmd(gf))
	root.AddCommand(newCalcCmd(gf))
	root.AddCommand(newSummarizeCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newInteractiveCmd(gf))

	return root
}

// loadConfig resolves the config file and builds the formula registry
// from its constants.
func loadConfig(path string) (*config.Config, *formula.Registry, error) {
	cfg, used, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, nil, err
	}
	if used != "" {
		logger.Debug("loaded config", "path", used)
	}
	return cfg, formula.NewRegistry(cfg.FormulaConstants()), nil
}

// ---------------------------------------------------------------------------
// init
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default config and a sample measurement sheet",
		Long: `Write quexian.toml (the default constants, output and plot
settings) and measurements.csv (a sample sheet for 'quexian summarize')
into dir, or the current directory. Existing files are skipped unless
--force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := scaffold.Options{
				Force:   force,
				Version: version,
				Stdout:  cmd.OutOrStdout(),
			}
			if len(args) == 1 {
				opts.TargetDir = args[0]
			}
			_, err := scaffold.Run(opts)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false,
		"overwrite existing files")

	return cmd
}

// ---------------------------------------------------------------------------
// methods
// ---------------------------------------------------------------------------

// methodsParams holds the parsed flags for the methods command.
type methodsParams struct {
	configPath string
	format     string
	stdout     io.Writer
}

// runMethods is the extracted, testable body of the methods command.
func runMethods(p methodsParams) error {
	if p.format != "text" && p.format != "json" {
		return fmt.Errorf("invalid format %q: must be 'text' or 'json'", p.format)
	}
	_, reg, err := loadConfig(p.configPath)
	if err != nil {
		return err
	}

	if p.format == "json" {
		return report.WriteMethodsJSON(p.stdout, reg.Pairs())
	}
	return report.WriteMethods(p.stdout, reg.Pairs())
}

func newMethodsCmd(gf *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "methods",
		Short: "List test methods and the defect types they compute",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMethods(methodsParams{
				configPath: gf.configPath,
				format:     format,
				stdout:     cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "text",
		"output format: text or json")

	return cmd
}

// ---------------------------------------------------------------------------
// show
// ---------------------------------------------------------------------------

// showParams holds the arguments for the show command.
type showParams struct {
	configPath string
	method     string
	defect     string
	stdout     io.Writer
}

// runShow prints a formula and its inputs. A pair with no formula
// prints a neutral notice and succeeds.
func runShow(p showParams) error {
	_, reg, err := loadConfig(p.configPath)
	if err != nil {
		return err
	}

	def, err := reg.Resolve(p.method, p.defect)
	if errors.Is(err, formula.ErrNotFound) {
		report.WriteNotImplemented(p.stdout, p.method, p.defect)
		return nil
	}
	if err != nil {
		return err
	}
	return report.WriteDefinition(p.stdout, def, nil)
}

func newShowCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show METHOD DEFECT",
		Short: "Show the formula and inputs for a method and defect type",
		Long: `Show the formula registered for a test method and defect type,
with every input, its unit and its default value.

Methods: GS, SS, CP, 1/f. Defect types: not, nit, tau, sep.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(showParams{
				configPath: gf.configPath,
				method:     args[0],
				defect:     args[1],
				stdout:     cmd.OutOrStdout(),
			})
		},
	}
}

// ---------------------------------------------------------------------------
// calc
// ---------------------------------------------------------------------------

// calcParams holds the parsed flags for the calc command.
type calcParams struct {
	configPath string
	method     string
	defect     string
	sets       []string
	dose       string
	format     string
	stdout     io.Writer
}

// runCalc evaluates one formula with the given inputs. Inputs not set
// keep their defaults.
func runCalc(p calcParams) error {
	cfg, reg, err := loadConfig(p.configPath)
	if err != nil {
		return err
	}
	format := p.format
	if format == "" {
		format = cfg.Output.Format
	}
	if format != "text" && format != "json" && format != "yaml" && format != "csv" {
		return fmt.Errorf("invalid format %q: must be 'text', 'json', 'yaml', or 'csv'", format)
	}

	def, err := reg.Resolve(p.method, p.defect)
	if errors.Is(err, formula.ErrNotFound) {
		report.WriteNotImplemented(p.stdout, p.method, p.defect)
		return nil
	}
	if err != nil {
		return err
	}

	sess := session.New(logger)
	defer sess.Close()

	inputs := sess.Inputs(def)
	for _, kv := range p.sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q: want key=value", kv)
		}
		if err := inputs.Set(strings.TrimSpace(k), v); err != nil {
			return fmt.Errorf("--set %s: %w", k, err)
		}
	}

	logger.Debug("calculating", "formula", def.TableID, "inputs", inputs.Snapshot())
	row, err := sess.Calculate(def)
	if err != nil {
		return err
	}

	l := sess.Ledger(def)
	if p.dose != "" {
		rows := l.Rows()
		rows[len(rows)-1].Dose = p.dose
		if err := l.ReplaceAll(rows); err != nil {
			return err
		}
		row.Dose = p.dose
	}

	if format == "text" {
		if err := report.WriteDefinition(p.stdout, def, inputs.Snapshot()); err != nil {
			return err
		}
		fmt.Fprintln(p.stdout)
		if err := report.WriteResultText(p.stdout, def, row); err != nil {
			return err
		}
		fmt.Fprintln(p.stdout)
		return report.WriteLedgerText(p.stdout, def.TableID, l)
	}
	return report.WriteLedger(p.stdout, format, report.NewLedgerExport(def, l))
}

func newCalcCmd(gf *globalFlags) *cobra.Command {
	var (
		sets   []string
		dose   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "calc METHOD DEFECT",
		Short: "Compute a defect metric from measured inputs",
		Long: `Compute the defect metric for a test method and defect type.
Inputs are given as --set key=value (scientific notation accepted);
inputs not set use their defaults (see 'quexian show').`,
		Example: `  quexian calc GS not --set dVmg=1.0
  quexian calc CP nit --set dIcp=1.6e-9 --set f=1e6 --dose 100 --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalc(calcParams{
				configPath: gf.configPath,
				method:     args[0],
				defect:     args[1],
				sets:       sets,
				dose:       dose,
				format:     format,
				stdout:     cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil,
		"input value as key=value (repeatable)")
	cmd.Flags().StringVar(&dose, "dose", "",
		"dose label (krad) recorded with the result")
	cmd.Flags().StringVar(&format, "format", "",
		"output format: text, json, yaml, or csv (default from config)")

	return cmd
}

// ---------------------------------------------------------------------------
// summarize
// ---------------------------------------------------------------------------

// summarizeParams holds the parsed flags for the summarize command.
type summarizeParams struct {
	path   string
	format string
	stdout io.Writer
}

// runSummarize prints the minimum of every numeric spreadsheet column.
func runSummarize(p summarizeParams) error {
	if p.format != "text" && p.format != "json" {
		return fmt.Errorf("invalid format %q: must be 'text' or 'json'", p.format)
	}

	logger.Debug("reading spreadsheet", "path", p.path)
	t, err := sheet.Read(p.path)
	if err != nil {
		return err
	}
	s, err := sheet.SummarizeNumericColumns(t)
	if err != nil {
		return fmt.Errorf("%s: %w", p.path, err)
	}

	if p.format == "json" {
		return report.WriteSheetSummaryJSON(p.stdout, s)
	}
	return report.WriteSheetSummary(p.stdout, s)
}

func newSummarizeCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "summarize FILE",
		Short: "Summarize the numeric columns of a spreadsheet",
		Long: `Read an .xlsx or .csv file (first row is the header) and print
the minimum of every numeric column and the global minimum.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummarize(summarizeParams{
				path:   args[0],
				format: format,
				stdout: cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "text",
		"output format: text or json")

	return cmd
}

// ---------------------------------------------------------------------------
// schema
// ---------------------------------------------------------------------------

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for ledger exports",
		Long: `Print the JSON Schema (Draft 2020-12) that documents the
structure of quexian calc --format=json output and of the JSON files
written by the interactive export. Useful for validating output or
generating client types.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), report.LedgerSchema)
			return err
		},
	}
}

// ---------------------------------------------------------------------------
// interactive
// ---------------------------------------------------------------------------

func newInteractiveCmd(gf *globalFlags) *cobra.Command {
	var exportDir string

	cmd := &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"tui"},
		Short:   "Open the interactive calculator",
		Long: `Open a terminal UI to pick a test method and defect type, edit
inputs, calculate, edit the result ledger, plot it against dose and
export it as JSON and PNG.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, reg, err := loadConfig(gf.configPath)
			if err != nil {
				return err
			}
			return runInteractive(reg, cfg, exportDir)
		},
	}

	cmd.Flags().StringVar(&exportDir, "export-dir", ".",
		"directory for exported JSON and PNG files")

	return cmd
}
