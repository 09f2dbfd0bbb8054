package cli

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"
)

// Stamped by the release build with -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(w, version)
			return
		}
		fmt.Fprintf(w, "ftest %s\ncommit: %s\nbuilt: %s\n", formatVersion(version), commit, date)
		fmt.Fprintf(w, "go: %s\nos/arch: %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}

// formatVersion shows release builds as v<semver>. Anything that is not
// semver, such as "dev", is shown as is.
func formatVersion(v string) string {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return v
	}
	return "v" + sv.String()
}

// SetVersionInfo records the build stamp; main calls it before Execute.
func SetVersionInfo(v, c, d string) {
	version, commit, date = v, c, d
}

func GetVersion() string { return version }
