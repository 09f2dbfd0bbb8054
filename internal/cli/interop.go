package cli

import (
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/suite"
)

var (
	interopFaultFlag  bool
	interopNoLockFlag bool
	interopJSONFlag   bool
	spaceNoLockFlag   bool
	spaceJSONFlag     bool
)

var upgradeDowngradeCmd = &cobra.Command{
	Use:   "upgrade-downgrade",
	Short: "Upgrade the cluster to the new version and back",
	Long: `Install interop.new_version on every server and client, verify pool
attributes, container data and pool upgrade, then downgrade to
interop.old_version and verify again.

With --fault (or interop.fault_injection in the config) a fault is injected
into the pool upgrade, when the new client build supports it.

Examples:
  ftest interop upgrade-downgrade
  ftest interop upgrade-downgrade --fault --verbose`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fault := interopFaultFlag
		if !fault {
			cfg, err := config.LoadOrDefault(Config())
			if err != nil {
				return err
			}
			fault = cfg.Interop.FaultInjection
		}
		id := "UpgradeDowngradeTest.TestUpgradeDowngrade"
		if fault {
			id = "UpgradeDowngradeTest.TestUpgradeDowngradeFaultInjection"
		}
		return runByID(cmd, id, interopNoLockFlag, interopJSONFlag)
	},
}

var agentServerCmd = &cobra.Command{
	Use:   "agent-server",
	Short: "Run agents and servers at different versions",
	Long: `Downgrade the clients to interop.old_version while the servers run
interop.new_version, check the old agent still serves pools, then check
libdaos rejects a client build that doesn't match the agent.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runByID(cmd, "AgentServerInteropTest.TestDiffVersionsAgentServer", interopNoLockFlag, interopJSONFlag)
	},
}

var spaceVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check df space accounting as pools are created and filled",
	Long: `Create pools on different ranks of a three server cluster, write data
with IOR and check the tmpfs free space of each rank after every step.
Pool layouts come from pool.namespaces in the config.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runByID(cmd, "VerifyPoolSpace.TestVerifyPoolSpace", spaceNoLockFlag, spaceJSONFlag)
	},
}

func init() {
	upgradeDowngradeCmd.Flags().BoolVar(&interopFaultFlag, "fault", false, "inject a fault into the pool upgrade")
	for _, c := range []*cobra.Command{upgradeDowngradeCmd, agentServerCmd} {
		c.Flags().BoolVar(&interopNoLockFlag, "no-lock", false, "don't take the cluster lock")
		c.Flags().BoolVar(&interopJSONFlag, "json", false, "print the outcome as JSON")
		interopCmd.AddCommand(c)
	}
	spaceVerifyCmd.Flags().BoolVar(&spaceNoLockFlag, "no-lock", false, "don't take the cluster lock")
	spaceVerifyCmd.Flags().BoolVar(&spaceJSONFlag, "json", false, "print the outcome as JSON")
	spaceCmd.AddCommand(spaceVerifyCmd)
}

// runByID runs the single registered test with the given ID.
func runByID(cmd *cobra.Command, id string, noLock, asJSON bool) error {
	cases, err := suite.Select(suites(), []string{id})
	if err != nil {
		return err
	}
	return runCases(cmd, cases, noLock, asJSON)
}
