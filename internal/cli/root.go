package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/ui"
)

// Global flags
var (
	cfgFile string
	verbose bool
	quiet   bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "ftest",
	Short: "Functional test harness for DAOS clusters",
	Long: `ftest drives a DAOS cluster through dmg, daos and the system services
over SSH. It runs the functional test suites, post-processes core files and
lints the tags of the test sources.

The cluster is described by .ftest.yaml, found in the current directory or
a parent, or given with --config.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureOutput()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .ftest.yaml in this or a parent directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every remote command and its output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print results and errors")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// Config returns the --config flag.
func Config() string { return cfgFile }

// Verbose reports whether --verbose was given.
func Verbose() bool { return verbose }

// Quiet reports whether --quiet was given.
func Quiet() bool { return quiet }

// ExitError ends the process with Code once a command has printed its own
// report, such as a failed remote command or test.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// configureOutput applies --no-color, --verbose and --quiet along with the
// output section of the config, when one can be read.
func configureOutput() {
	mode := ui.ColorAuto
	if cfg, err := config.LoadOrDefault(cfgFile); err == nil && cfg.Output.Color != "" {
		mode = cfg.Output.Color
		if cfg.Output.Verbosity == "verbose" && !quiet {
			verbose = true
		}
	}
	ui.ConfigureColors(mode, noColor)

	switch {
	case quiet:
		logger.SetDefault(logger.Noop())
	case verbose:
		logger.SetDefault(logger.New(os.Stderr, "[ftest]", logger.LevelDebug))
	default:
		logger.SetDefault(logger.New(os.Stderr, "[ftest]", logger.EnvLevel(logger.LevelInfo)))
	}
}

// Execute runs the root command and exits non-zero on error. SIGINT and
// SIGTERM cancel the command's context so remote sessions and locks are
// cleaned up.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	var exit *ExitError
	switch {
	case stderrors.As(err, &exit):
		os.Exit(exit.Code)
	case isUnknownCommandError(err):
		if name := extractUnknownCommand(err); name != "" {
			fmt.Fprintf(os.Stderr, "%s Unknown command %q\n\n  Run 'ftest --help' to see the commands\n", ui.SymbolFail, name)
		} else {
			fmt.Fprintf(os.Stderr, "%s %v\n\n  Run 'ftest --help' to see the flags\n", ui.SymbolFail, err)
		}
	default:
		fmt.Fprint(os.Stderr, err.Error())
		if !strings.HasSuffix(err.Error(), "\n") {
			fmt.Fprintln(os.Stderr)
		}
	}
	os.Exit(1)
}

func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// extractUnknownCommand pulls "foo" out of `unknown command "foo" for "ftest"`.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
