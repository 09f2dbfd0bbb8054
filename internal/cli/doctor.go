package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/doctor"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/ui"
)

var doctorJSON bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check this machine and the cluster are ready for tests",
	Long: `Run diagnostic checks on the config, the SSH setup, the tools needed on
this machine and, when the config names a cluster, host reachability, the
tools on servers and clients and the installed DAOS versions.

Examples:
  ftest doctor
  ftest doctor --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		checks, closeRunner := collectChecks()
		defer closeRunner()

		out := cmd.OutOrStdout()
		var results []doctor.CheckResult
		switch {
		case doctorJSON:
			results = doctor.RunAllParallel(cmd.Context(), checks)
			if err := WriteJSONResult(out, !doctor.HasFailures(results), doctorOutput(checks, results)); err != nil {
				return err
			}
		case ui.IsTerminal(os.Stdout) && !Quiet():
			var err error
			if results, err = runDoctorChecklist(cmd.Context(), out, checks); err != nil {
				return err
			}
			printDoctorIssues(out, checks, results)
		default:
			results = doctor.RunAllParallel(cmd.Context(), checks)
			printDoctorReport(out, checks, results)
		}

		if doctor.HasFailures(results) {
			return &ExitError{Code: 1}
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output in JSON format")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorOutput is the data of 'ftest doctor --json'.
type DoctorOutput struct {
	Categories []doctor.Category `json:"categories"`
	Summary    SummaryOutput     `json:"summary"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	AllClear bool `json:"all_clear"`
}

// collectChecks builds the checks for the current config. A config that
// fails to load still gets the config checks, which report why.
func collectChecks() ([]doctor.Check, func()) {
	log := logger.Noop()
	opts := doctor.Options{Local: newLocal(log)}
	opts.ConfigPath, _ = config.Find(Config())

	closeRunner := func() {}
	if cfg, err := config.LoadOrDefault(Config()); err == nil {
		opts.Config = cfg
		opts.Runner, closeRunner = newRunner(cfg, log)
	}
	return doctor.NewChecks(opts), closeRunner
}

func doctorOutput(checks []doctor.Check, results []doctor.CheckResult) DoctorOutput {
	out := DoctorOutput{Categories: doctor.Group(checks, results)}
	counts := doctor.CountByStatus(results)
	out.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		AllClear: !doctor.HasIssues(results),
	}
	return out
}

// runDoctorChecklist runs the checks under the live checklist and returns
// their full results in check order.
func runDoctorChecklist(ctx context.Context, w io.Writer, checks []doctor.Check) ([]doctor.CheckResult, error) {
	results := make([]doctor.CheckResult, len(checks))
	tasks := make([]ui.Task, len(checks))
	for i, check := range checks {
		i, check := i, check
		tasks[i] = ui.Task{
			Label: check.Category() + " " + check.Name(),
			Run: func(ctx context.Context) ui.TaskResult {
				results[i] = check.Run(ctx)
				return ui.TaskResult{State: spinnerState(results[i].Status), Detail: results[i].Message}
			},
		}
	}
	if _, err := ui.RunChecklist(ctx, w, tasks); err != nil {
		return nil, err
	}
	return results, nil
}

func spinnerState(s doctor.CheckStatus) ui.SpinnerState {
	switch s {
	case doctor.StatusPass:
		return ui.SpinnerSuccess
	case doctor.StatusWarn:
		return ui.SpinnerWarned
	default:
		return ui.SpinnerFailed
	}
}

func doctorRows(checks []doctor.Check, results []doctor.CheckResult) []ui.DoctorCheckRow {
	rows := make([]ui.DoctorCheckRow, len(results))
	for i, r := range results {
		rows[i] = ui.DoctorCheckRow{
			Status:     r.Status.String(),
			Category:   checks[i].Category(),
			Message:    r.Message,
			Suggestion: r.Suggestion,
		}
	}
	return rows
}

// printDoctorReport prints every result grouped by category, then the
// summary line.
func printDoctorReport(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) {
	fmt.Fprintln(w, ui.RenderDoctorTable(doctorRows(checks, results)))
	printDoctorSummary(w, results)
}

// printDoctorIssues follows the checklist with the suggestions for the
// checks that did not pass.
func printDoctorIssues(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) {
	var issues []ui.DoctorCheckRow
	for _, row := range doctorRows(checks, results) {
		if row.Status != doctor.StatusPass.String() {
			issues = append(issues, row)
		}
	}
	if len(issues) > 0 {
		fmt.Fprintln(w)
		fmt.Fprint(w, ui.RenderDoctorTable(issues))
	}
	printDoctorSummary(w, results)
}

func printDoctorSummary(w io.Writer, results []doctor.CheckResult) {
	symbol := lipgloss.NewStyle().Foreground(ui.ColorSuccess).Render(ui.SymbolSuccess)
	if doctor.HasIssues(results) {
		symbol = lipgloss.NewStyle().Foreground(ui.ColorError).Render(ui.SymbolFail)
	}
	fmt.Fprintf(w, "%s %s\n", symbol, doctor.Summary(results))
}
