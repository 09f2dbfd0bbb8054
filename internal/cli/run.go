package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/ftest/internal/remote"
	"github.com/rileyhilliard/ftest/internal/ui"
)

var (
	runTimeoutFlag string
	runStderrFlag  bool
	runJSONFlag    bool
)

// runCmd runs an ad-hoc command on a node set, the way tests do.
var runCmd = &cobra.Command{
	Use:   "run <nodeset> <command...>",
	Short: "Run a command on a set of nodes",
	Long: `Run a shell command on every node of a node set in parallel and print
the output grouped by hosts that produced identical results.

Examples:
  ftest run 'wolf-[1-3]' daos version
  ftest run wolf-4,wolf-5 --stderr -- df -h /mnt/daos
  ftest run 'wolf-[1-5]' --timeout 30s --json systemctl is-active daos_agent`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args[0], strings.Join(args[1:], " "))
	},
}

func init() {
	runCmd.Flags().StringVar(&runTimeoutFlag, "timeout", "", "per-host timeout (e.g. 30s, 5m)")
	runCmd.Flags().BoolVar(&runStderrFlag, "stderr", false, "group stderr with stdout")
	runCmd.Flags().BoolVar(&runJSONFlag, "json", false, "print the result as JSON")
	rootCmd.AddCommand(runCmd)
}

// RunGroup is one group of hosts with identical results, as printed by
// 'ftest run --json'.
type RunGroup struct {
	Hosts    string   `json:"hosts"`
	ExitCode int      `json:"exit_code"`
	TimedOut bool     `json:"timed_out,omitempty"`
	Output   []string `json:"output"`
}

func runCommand(cmd *cobra.Command, nodes, command string) error {
	hosts, err := ParseHosts(nodes)
	if err != nil {
		return err
	}
	timeout, err := ParseTimeout(runTimeoutFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	s, err := openSession()
	if err != nil {
		if runJSONFlag {
			_ = WriteJSONFromError(out, err)
			return &ExitError{Code: 1}
		}
		return err
	}
	defer s.Close()

	result, err := s.Runner.Run(cmd.Context(), hosts, command,
		remote.WithTimeout(timeout), remote.WithStderr(runStderrFlag))
	if err != nil {
		if runJSONFlag {
			_ = WriteJSONFromError(out, err)
			return &ExitError{Code: 1}
		}
		return err
	}

	if runJSONFlag {
		if err := WriteJSONResult(out, result.Passed(), runGroups(result)); err != nil {
			return err
		}
	} else {
		printResult(out, result)
	}
	if !result.Passed() {
		return &ExitError{Code: 1}
	}
	return nil
}

func runGroups(result *remote.Result) []RunGroup {
	groups := make([]RunGroup, 0, len(result.Output))
	for _, d := range result.Output {
		lines := d.Stdout
		if lines == nil {
			lines = []string{}
		}
		groups = append(groups, RunGroup{
			Hosts:    d.Hosts.String(),
			ExitCode: d.ExitCode,
			TimedOut: d.TimedOut,
			Output:   lines,
		})
	}
	return groups
}

// printResult writes one block per output group: a header naming the hosts
// and their exit status, then the output indented.
func printResult(w io.Writer, result *remote.Result) {
	ok := lipgloss.NewStyle().Foreground(ui.ColorSuccess)
	bad := lipgloss.NewStyle().Foreground(ui.ColorError)
	muted := lipgloss.NewStyle().Foreground(ui.ColorMuted)

	for _, d := range result.Output {
		header := fmt.Sprintf("%s (rc=%d):", d.Hosts, d.ExitCode)
		switch {
		case d.TimedOut:
			fmt.Fprintln(w, bad.Render(fmt.Sprintf("%s %s timed out", ui.SymbolFail, d.Hosts)))
		case d.Passed():
			fmt.Fprintln(w, ok.Render(ui.SymbolSuccess)+" "+header)
		default:
			fmt.Fprintln(w, bad.Render(ui.SymbolFail+" "+header))
		}
		if len(d.Stdout) == 0 && !d.TimedOut {
			fmt.Fprintln(w, muted.Render("    <no output>"))
		}
		for _, line := range d.Stdout {
			fmt.Fprintln(w, "    "+line)
		}
	}
}
