package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/tags"
	"github.com/rileyhilliard/ftest/internal/ui"
)

var tagsBaseFlag string

var tagsLintCmd = &cobra.Command{
	Use:   "lint [paths...]",
	Short: "Check the tags of the test sources",
	Long: `Check the tags of every test method. The linter reports:
  - test classes defined more than once
  - test methods defined more than once
  - tests not tagged with their class name
  - tests not tagged with their method name
  - tests without a hw, vm or manual tag

With no paths every Go file under tags.ftest_dir is linted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault(Config())
		if err != nil {
			return err
		}
		return lintCommand(cmd.OutOrStdout(), cfg.Tags.FtestDir, args)
	},
}

var tagsPragmasCmd = &cobra.Command{
	Use:   "pragmas [paths...]",
	Short: "Recommend the Test-tag commit pragma for changed files",
	Long: `Print the "Test-tag:" pragma that covers the given files, or the
files changed since --base when none are given. Test sources map to their
own tags; other sources map through tags.tag_map.

Examples:
  ftest tags pragmas
  ftest tags pragmas --base origin/release/2.6
  ftest tags pragmas ftest/pool/verify_space.go src/pool/srv.c`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault(Config())
		if err != nil {
			return err
		}
		return pragmasCommand(cmd.OutOrStdout(), cfg.Tags, tagsBaseFlag, args)
	},
}

func init() {
	tagsPragmasCmd.Flags().StringVar(&tagsBaseFlag, "base", "", "branch to diff against (default: tags.base_branch)")
	tagsCmd.AddCommand(tagsLintCmd)
	tagsCmd.AddCommand(tagsPragmasCmd)
}

func lintCommand(w io.Writer, ftestDir string, paths []string) error {
	if len(paths) == 0 {
		all, err := tags.AllGoFiles(ftestDir)
		if err != nil {
			return err
		}
		if len(all) == 0 {
			return errors.New(errors.ErrTags,
				fmt.Sprintf("No test sources under %s", ftestDir),
				"Set tags.ftest_dir in .ftest.yaml or pass the files to lint")
		}
		paths = all
	}
	report, err := tags.Lint(paths)
	if err != nil {
		return err
	}
	report.Print(w)
	if failures := report.Failures(); len(failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, ui.RenderSimpleTable(lintColumns, lintRows(failures)))
	}
	return report.Err()
}

var lintColumns = []ui.TableColumn{{Title: "Check"}, {Title: "Count"}, {Title: "Tests"}}

func lintRows(failures []*tags.LintFailure) [][]string {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		shown := f.Offenders
		if len(shown) > 3 {
			shown = append(append([]string(nil), shown[:3]...), fmt.Sprintf("+%d more", len(f.Offenders)-3))
		}
		rows = append(rows, []string{f.Message, strconv.Itoa(f.Count), strings.Join(shown, ", ")})
	}
	return rows
}

func pragmasCommand(w io.Writer, cfg config.TagsConfig, base string, paths []string) error {
	if base == "" {
		base = cfg.BaseBranch
	}
	opts := tags.PragmaOptions{FtestDir: cfg.FtestDir, Base: base, Paths: paths}
	if cfg.TagMap != "" {
		m, err := tags.LoadCoreTagMap(config.ExpandTilde(cfg.TagMap))
		if err != nil {
			return err
		}
		opts.CoreMap = m
	}
	if len(paths) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrTags, "Can't determine current directory", "")
		}
		opts.WorkDir = wd
	}

	pragma, err := tags.Pragmas(opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, pragma)
	return nil
}
