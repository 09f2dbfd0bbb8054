// Package interoperability holds the tests that mix DAOS versions across
// servers, agents and clients.
package interoperability

import (
	"context"
	_ "embed"

	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/suite"
)

//go:embed upgrade_downgrade.yaml
var upgradeDowngradeParams []byte

//go:embed agent_server.yaml
var agentServerParams []byte

// UpgradeDowngradeTest upgrades the whole cluster from interop.old_version
// to interop.new_version and back, checking pool attributes, IO and
// pool upgrade along the way.
type UpgradeDowngradeTest struct{}

func (t *UpgradeDowngradeTest) Name() string   { return "UpgradeDowngradeTest" }
func (t *UpgradeDowngradeTest) Params() []byte { return upgradeDowngradeParams }

func (t *UpgradeDowngradeTest) Requires() []config.ValidationOption {
	return []config.ValidationOption{config.RequireInterop()}
}

func (t *UpgradeDowngradeTest) Tests() []suite.Test {
	return []suite.Test{
		{Name: "TestUpgradeDowngrade", Run: t.TestUpgradeDowngrade},
		{Name: "TestUpgradeDowngradeFaultInjection", Run: t.TestUpgradeDowngradeFaultInjection},
	}
}

// TestUpgradeDowngrade runs the full upgrade and downgrade cycle.
//
// :avocado: tags=manual
// :avocado: tags=interop
// :avocado: tags=UpgradeDowngradeTest,TestUpgradeDowngrade
func (t *UpgradeDowngradeTest) TestUpgradeDowngrade(ctx context.Context, env *suite.Env) error {
	h, err := env.Interop()
	if err != nil {
		return err
	}
	return h.UpgradeDowngrade(ctx, false)
}

// TestUpgradeDowngradeFaultInjection runs the same cycle with a fault
// injected into the pool upgrade when the new client build supports it.
//
// :avocado: tags=manual
// :avocado: tags=interop
// :avocado: tags=UpgradeDowngradeTest,TestUpgradeDowngradeFaultInjection
func (t *UpgradeDowngradeTest) TestUpgradeDowngradeFaultInjection(ctx context.Context, env *suite.Env) error {
	h, err := env.Interop()
	if err != nil {
		return err
	}
	return h.UpgradeDowngrade(ctx, true)
}

// AgentServerInteropTest runs agents and servers at different versions.
type AgentServerInteropTest struct{}

func (t *AgentServerInteropTest) Name() string   { return "AgentServerInteropTest" }
func (t *AgentServerInteropTest) Params() []byte { return agentServerParams }

func (t *AgentServerInteropTest) Requires() []config.ValidationOption {
	return []config.ValidationOption{config.RequireInterop()}
}

func (t *AgentServerInteropTest) Tests() []suite.Test {
	return []suite.Test{{Name: "TestDiffVersionsAgentServer", Run: t.TestDiffVersionsAgentServer}}
}

// TestDiffVersionsAgentServer checks that an old agent can talk to new
// servers and that libdaos rejects mismatched client versions.
//
// :avocado: tags=manual
// :avocado: tags=interop
// :avocado: tags=AgentServerInteropTest,TestDiffVersionsAgentServer
func (t *AgentServerInteropTest) TestDiffVersionsAgentServer(ctx context.Context, env *suite.Env) error {
	h, err := env.Interop()
	if err != nil {
		return err
	}
	return h.DiffVersionsAgentServer(ctx)
}
