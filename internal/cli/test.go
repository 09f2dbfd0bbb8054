package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/ftest/ftest"
	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/suite"
	"github.com/rileyhilliard/ftest/internal/ui"
)

var (
	listJSONFlag bool
	testNoLock   bool
	testJSONFlag bool
)

// suites is the registry behind list, test, interop and space. Tests
// replace it.
var suites = ftest.Suites

var listCmd = &cobra.Command{
	Use:   "list [patterns...]",
	Short: "List the registered tests",
	Long: `List the registered tests as Suite.Method. Patterns are shell globs
matched against the suite name, the method name or the full ID.

Examples:
  ftest list
  ftest list 'UpgradeDowngrade*'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listCommand(cmd.OutOrStdout(), args)
	},
}

var testCmd = &cobra.Command{
	Use:   "test <patterns...>",
	Short: "Run functional tests against the cluster",
	Long: `Run the tests matching the patterns, one after another, against the
cluster described in .ftest.yaml. Each suite's parameters are merged over
the config, and the cluster lock is held while a test runs.

Examples:
  ftest test VerifyPoolSpace
  ftest test 'UpgradeDowngradeTest.*' --verbose
  ftest test TestDiffVersionsAgentServer --no-lock`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cases, err := suite.Select(suites(), args)
		if err != nil {
			return err
		}
		return runCases(cmd, cases, testNoLock, testJSONFlag)
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSONFlag, "json", false, "print the tests as JSON")
	testCmd.Flags().BoolVar(&testNoLock, "no-lock", false, "don't take the cluster lock")
	testCmd.Flags().BoolVar(&testJSONFlag, "json", false, "print the outcomes as JSON")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(testCmd)
}

// ListedTest is one entry of 'ftest list --json'.
type ListedTest struct {
	ID     string `json:"id"`
	Suite  string `json:"suite"`
	Method string `json:"method"`
}

func listCommand(w io.Writer, patterns []string) error {
	cases := suite.Cases(suites())
	if len(patterns) > 0 {
		var err error
		if cases, err = suite.Select(suites(), patterns); err != nil {
			return err
		}
	}

	if listJSONFlag {
		listed := make([]ListedTest, 0, len(cases))
		for _, c := range cases {
			listed = append(listed, ListedTest{ID: c.ID(), Suite: c.Suite.Name(), Method: c.Test.Name})
		}
		return WriteJSONSuccess(w, listed)
	}

	muted := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	for _, c := range cases {
		fmt.Fprintf(w, "%s%s\n", c.Suite.Name(), muted.Render("."+c.Test.Name))
	}
	return nil
}

// runCases runs cases through the suite executor with the session's runner,
// prints the summary and fails with ExitError when any case did not pass.
func runCases(cmd *cobra.Command, cases []suite.Case, noLock, asJSON bool) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	runOut := out
	if asJSON {
		runOut = io.Discard
	}
	x := &suite.Executor{
		ConfigPath: Config(),
		LoadConfig: func(path string, params ...[]byte) (*config.Config, error) {
			cfg, err := config.LoadOrDefault(path, params...)
			if err == nil && verbose {
				cfg.Output.Verbosity = "verbose"
			}
			return cfg, err
		},
		Runner:  s.Runner,
		Out:     runOut,
		Log:     s.Log,
		Version: formatVersion(version),
		NoLock:  noLock,
	}
	outcomes := x.Run(cmd.Context(), cases)

	if asJSON {
		if err := WriteJSONResult(out, !suite.Failed(outcomes), outcomes); err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, ui.RenderSummary(outcomes))
	}
	if suite.Failed(outcomes) {
		return &ExitError{Code: 1}
	}
	return nil
}
