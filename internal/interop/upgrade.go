package interop

import (
	"context"
	"fmt"
	"strings"

	"github.com/rileyhilliard/ftest/internal/daos"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/poll"
)

// daos_debug_set_params values.
const (
	FaultInjectionEnable  = "67174515"
	FaultInjectionDisable = "67108864"
)

// Pool upgrade states reported by the upgrade_status property.
const (
	UpgradeNotStarted = "not started"
	UpgradeInProgress = "in progress"
	UpgradeCompleted  = "completed"
	UpgradeFailed     = "failed"
)

func faultCommand(value string) string {
	return "daos_debug_set_params -v " + value
}

// HasFaultInjection reports whether the installed packages on hosts were
// built with fault injection. Such builds accept the enable call silently.
func (h *Harness) HasFaultInjection(ctx context.Context, hosts nodeset.NodeSet) (bool, error) {
	result, err := h.run(ctx, hosts, faultCommand(FaultInjectionEnable), "Failed to check if fault-injection is enabled")
	if err != nil {
		return false, err
	}
	for _, stdout := range result.AllStdout() {
		if strings.TrimSpace(stdout) == "" {
			return true, nil
		}
	}
	h.Log.Info("#Host client rpms did not have fault-injection")
	return false, nil
}

// EnableFaultInjection turns fault injection on for hosts.
func (h *Harness) EnableFaultInjection(ctx context.Context, hosts nodeset.NodeSet) error {
	_, err := h.run(ctx, hosts, faultCommand(FaultInjectionEnable), "Failed to enable fault injection")
	return err
}

// DisableFaultInjection turns fault injection off for hosts.
func (h *Harness) DisableFaultInjection(ctx context.Context, hosts nodeset.NodeSet) error {
	_, err := h.run(ctx, hosts, faultCommand(FaultInjectionDisable), "Failed to disable fault injection")
	return err
}

// WaitForPoolUpgrade polls the upgrade_status property of pool until it is
// one of statuses.
func (h *Harness) WaitForPoolUpgrade(ctx context.Context, pool *daos.Pool, statuses ...string) error {
	h.Log.Info("Waiting for %s upgrade status to be %v", pool.ID(), statuses)
	what := fmt.Sprintf("pool upgrade status to be %v", statuses)
	label := fmt.Sprintf("Waiting for %s upgrade status to be %v", pool.ID(), statuses)
	sp := h.Steps.Spinner(label)
	return sp.Run(func() error {
		return poll.Until(ctx, what, h.Opts.UpgradePollInterval, h.Opts.PoolUpgradeTimeout,
			func(ctx context.Context) (bool, error) {
				status, err := h.Dmg.PoolProp(ctx, pool.ID(), "upgrade_status")
				if err != nil {
					return false, err
				}
				sp.SetLabel(fmt.Sprintf("%s (currently %s)", label, status))
				for _, s := range statuses {
					if status == s {
						return true, nil
					}
				}
				return false, nil
			})
	})
}

// PoolUpgrade upgrades pool and checks its layout version increased. With
// withFault, fault injection on faultHosts makes the first attempt fail
// before it is disabled and the upgrade resumes.
func (h *Harness) PoolUpgrade(ctx context.Context, pool *daos.Pool, withFault bool, faultHosts nodeset.NodeSet) error {
	if err := h.WaitForPoolUpgrade(ctx, pool, UpgradeNotStarted, UpgradeCompleted); err != nil {
		return err
	}

	h.Log.Info("Check the layout version before upgrading")
	pre, err := h.Dmg.PoolQuery(ctx, pool.ID())
	if err != nil {
		return err
	}

	if withFault {
		if err := h.EnableFaultInjection(ctx, faultHosts); err != nil {
			return err
		}
	}
	if err := h.Dmg.PoolUpgrade(ctx, pool.ID()); err != nil {
		return err
	}
	if withFault {
		if err := h.WaitForPoolUpgrade(ctx, pool, UpgradeFailed); err != nil {
			return err
		}
		if err := h.DisableFaultInjection(ctx, faultHosts); err != nil {
			return err
		}
	}
	if err := h.WaitForPoolUpgrade(ctx, pool, UpgradeCompleted); err != nil {
		return err
	}
	if err := h.settle(ctx, h.Opts.UpgradeSettle, "upgrade is complete"); err != nil {
		return err
	}

	h.Log.Info("Verify the layout version increased after upgrading")
	post, err := h.Dmg.PoolQuery(ctx, pool.ID())
	if err != nil {
		return err
	}
	if post.PoolLayoutVer <= pre.PoolLayoutVer {
		return failf("Expected pool_layout_ver to increase. pre=%d, post=%d",
			pre.PoolLayoutVer, post.PoolLayoutVer)
	}
	return nil
}
