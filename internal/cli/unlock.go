package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/lock"
	"github.com/rileyhilliard/ftest/internal/suite"
	"github.com/rileyhilliard/ftest/internal/ui"
)

var unlockYesFlag bool

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Remove a stale cluster lock",
	Long: `Show who holds the cluster lock and remove it. Use this when a run
was killed before it could release the lock.

Examples:
  ftest unlock
  ftest unlock --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(config.RequireHosts())
		if err != nil {
			return err
		}
		defer s.Close()

		servers, err := s.Config.Servers()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		locker := lock.NewLocker(s.Runner, servers, s.Config.Lock, s.Log)

		holder := locker.Holder(cmd.Context(), suite.ClusterLock)
		fmt.Fprintf(out, "Lock %s on %s is held by %s\n", locker.Dir(suite.ClusterLock), servers.First(), holder)
		if holder == "nobody" {
			return nil
		}

		ok, err := ui.Confirm("Remove the cluster lock?", "A run still using the cluster will not notice.", unlockYesFlag)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Lock left in place (use --yes to remove it without asking)")
			return nil
		}
		if err := locker.ForceRelease(cmd.Context(), suite.ClusterLock); err != nil {
			return err
		}
		fmt.Fprintln(out, "Lock removed")
		return nil
	},
}

func init() {
	unlockCmd.Flags().BoolVar(&unlockYesFlag, "yes", false, "remove the lock without asking")
	rootCmd.AddCommand(unlockCmd)
}
