package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/ftest/internal/errors"
)

// Parent commands; their subcommands register themselves in their own files.
var (
	coresCmd = &cobra.Command{
		Use:   "cores",
		Short: "Find and post-process core files",
	}

	tagsCmd = &cobra.Command{
		Use:   "tags",
		Short: "Lint test tags and recommend commit pragmas",
	}

	interopCmd = &cobra.Command{
		Use:   "interop",
		Short: "Run the version interoperability scenarios",
		Long: `Run the version interoperability scenarios against the cluster in
.ftest.yaml. interop.old_version and interop.new_version must be set.`,
	}

	spaceCmd = &cobra.Command{
		Use:   "space",
		Short: "Run the pool space accounting scenario",
	}
)

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for ftest.

Examples:
  # Bash
  ftest completion bash > /etc/bash_completion.d/ftest

  # Zsh
  ftest completion zsh > "${fpath[1]}/_ftest"

  # Fish
  ftest completion fish > ~/.config/fish/completions/ftest.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(os.Stdout)
		default:
			return errors.New(errors.ErrExec,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

func init() {
	rootCmd.AddCommand(coresCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(interopCmd)
	rootCmd.AddCommand(spaceCmd)
	rootCmd.AddCommand(completionCmd)
}
