package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/cores"
	"github.com/rileyhilliard/ftest/internal/distro"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/ui"
)

var (
	coresHostsFlag    string
	coresDeleteFlag   bool
	coresYesFlag      bool
	coresTestFlag     string
	coresTestRPMsFlag bool
)

// detectDistro identifies this machine for debuginfo installs. Tests
// replace it.
var detectDistro = distro.Detect

var coresPatternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "Show where each host writes core files",
	Long: `Read /proc/sys/kernel/core_pattern on the cluster and print the
directory and file glob of each group of hosts.

Examples:
  ftest cores pattern
  ftest cores pattern --hosts 'wolf-[1-3]'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var hosts nodeset.NodeSet
		opts := []config.ValidationOption{config.RequireHosts()}
		if coresHostsFlag != "" {
			var err error
			if hosts, err = ParseHosts(coresHostsFlag); err != nil {
				return err
			}
			opts = nil
		}

		s, err := openSession(opts...)
		if err != nil {
			return err
		}
		defer s.Close()

		if hosts.IsEmpty() {
			servers, err := s.Config.Servers()
			if err != nil {
				return err
			}
			clients, err := s.Config.Clients()
			if err != nil {
				return err
			}
			hosts = servers.Union(clients)
		}

		patterns, err := cores.CorePattern(cmd.Context(), s.Runner, hosts, s.Config.Cores.Enabled, s.Log)
		if err != nil {
			return err
		}
		printPatterns(cmd.OutOrStdout(), patterns)
		return nil
	},
}

var coresProcessCmd = &cobra.Command{
	Use:   "process <dir>",
	Short: "Generate stack traces for collected core files",
	Long: `Find the core files under <dir>/stacktraces*, install the matching
debuginfo packages and write a gdb stack trace next to each core.

Examples:
  ftest cores process ./job-results/latest
  ftest cores process ./job-results/latest --delete --yes
  ftest cores process . --test ./dfuse/daos_build.py`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		remove := coresDeleteFlag || s.Config.Cores.Delete
		if remove {
			ok, err := ui.Confirm("Delete core files after processing?", args[0], coresYesFlag)
			if err != nil {
				return err
			}
			if !ok {
				s.Log.Info("Keeping core files")
				remove = false
			}
		}

		info, err := detectDistro()
		if err != nil {
			return err
		}
		p := cores.NewProcessor(s.Log, s.Local, info)
		p.Ignore = mergeIgnore(cores.DefaultIgnore, s.Config.Cores.Ignore)
		p.TestRPMs = coresTestRPMsFlag

		n, err := p.Process(cmd.Context(), args[0], remove, coresTestFlag)
		fmt.Fprintf(cmd.OutOrStdout(), "%d core file(s) processed\n", n)
		return err
	},
}

func init() {
	coresPatternCmd.Flags().StringVar(&coresHostsFlag, "hosts", "", "node set to query (default: servers and clients)")
	coresProcessCmd.Flags().BoolVarP(&coresDeleteFlag, "delete", "d", false, "delete the core files once processed")
	coresProcessCmd.Flags().BoolVar(&coresYesFlag, "yes", false, "don't ask before deleting")
	coresProcessCmd.Flags().StringVar(&coresTestFlag, "test", "", "test that produced the cores, for the ignore list")
	coresProcessCmd.Flags().BoolVar(&coresTestRPMsFlag, "test-rpms", false, "also install debuginfo for the test packages")
	coresCmd.AddCommand(coresPatternCmd)
	coresCmd.AddCommand(coresProcessCmd)
}

func printPatterns(w io.Writer, patterns map[string]cores.Pattern) {
	if len(patterns) == 0 {
		fmt.Fprintln(w, "Core file collection is disabled")
		return
	}
	keys := make([]string, 0, len(patterns))
	for k := range patterns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		p := patterns[k]
		rows = append(rows, []string{p.Hosts.String(), p.Path, p.Pattern})
	}
	fmt.Fprintln(w, ui.RenderSimpleTable([]ui.TableColumn{
		{Title: "HOSTS"}, {Title: "DIRECTORY"}, {Title: "PATTERN"},
	}, rows))
}

// mergeIgnore layers the config's ignore list over the built-in one
// without changing either.
func mergeIgnore(base, extra map[string][]string) map[string][]string {
	out := make(map[string][]string, len(base)+len(extra))
	for test, exes := range base {
		out[test] = append([]string(nil), exes...)
	}
	for test, exes := range extra {
		out[test] = append(out[test], exes...)
	}
	return out
}
