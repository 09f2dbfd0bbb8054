package interop

import (
	"context"
	"fmt"
	"strings"

	"github.com/rileyhilliard/ftest/internal/daos"
	"github.com/rileyhilliard/ftest/internal/nodeset"
)

// UpgradeDowngrade upgrades clients then servers, checks the old pool and
// its data at every combination, upgrades the pool, and finally downgrades
// everything to the old version.
func (h *Harness) UpgradeDowngrade(ctx context.Context, faultOnPoolUpgrade bool) (err error) {
	defer func() { h.Steps.Done(err) }()
	step := h.Steps.Step
	clients, servers := h.Clients, h.Servers
	oldV, newV := h.Opts.OldVersion, h.Opts.NewVersion

	step("Verify RPMs")
	if err := h.VerifyRPMs(ctx); err != nil {
		return err
	}

	step("Setup and show rpm, dmg and daos versions on all hosts")
	allHosts := nodeset.IncludeLocalHost(servers)
	if err := h.ShowVersions(ctx, allHosts, clients); err != nil {
		return err
	}

	step("Create pool with attributes - old client, old server")
	pool, err := h.CreatePool(ctx)
	if err != nil {
		return err
	}
	attrs := h.CreateAttrs(h.Opts.AttrCount)
	if err := h.PoolSetAttrs(ctx, pool, attrs); err != nil {
		return err
	}

	step("Verify pool attributes - old client, old server, old pool")
	if err := h.VerifyPoolAttrs(ctx, pool, attrs); err != nil {
		return err
	}

	step("Verify IOR write/read - old client, old server, old pool, new data")
	cont1, err := h.CreateContainer(ctx, pool)
	if err != nil {
		return err
	}
	if err := h.VerifyWriteRead(ctx, clients, cont1, true, true); err != nil {
		return err
	}

	// checkOldData reads cont1 back and round-trips a throwaway container.
	checkOldData := func(combo string) error {
		step("Verify IOR read - %s, old data", combo)
		if err := h.VerifyWriteRead(ctx, clients, cont1, false, true); err != nil {
			return err
		}
		step("Verify IOR write/read - %s, new data", combo)
		return h.tmpContainerWriteRead(ctx, pool, clients)
	}

	step("Updgrade DAOS clients to version %s", newV)
	if err := h.InstallVersion(ctx, newV, nodeset.New(), clients); err != nil {
		return err
	}

	step("Verify client/server communication - new client, old server, old pool")
	if err := h.VerifyServerClientComm(ctx, pool); err != nil {
		return err
	}
	if err := checkOldData("new client, old server, old pool"); err != nil {
		return err
	}

	step("Upgrade DAOS servers to version %s", newV)
	if err := h.InstallVersion(ctx, newV, servers, nodeset.New()); err != nil {
		return err
	}
	if err := h.ShowVersions(ctx, allHosts, clients); err != nil {
		return err
	}

	step("Verify client/server communication - new client, new server, old pool")
	if err := h.VerifyServerClientComm(ctx, pool); err != nil {
		return err
	}

	step("Verify pool attributes - new client, new server, old pool")
	if err := h.VerifyPoolAttrs(ctx, pool, attrs); err != nil {
		return err
	}

	step("Verify dmg pool get-prop - new client, new server, old pool")
	if _, err := h.Dmg.PoolGetProp(ctx, pool.ID()); err != nil {
		return err
	}
	if err := checkOldData("new client, new server, old pool"); err != nil {
		return err
	}

	step("Downgrade DAOS clients to version %s", oldV)
	if err := h.InstallVersion(ctx, oldV, nodeset.New(), clients); err != nil {
		return err
	}

	step("Verify client/server communication - old client, new server, old pool")
	if err := h.VerifyServerClientComm(ctx, pool); err != nil {
		return err
	}
	if err := checkOldData("old client, new server, old pool"); err != nil {
		return err
	}

	step("Verify old client cannot access new pool")
	if err := h.verifyOldClientRejected(ctx); err != nil {
		return err
	}

	step("Upgrade DAOS clients to version %s", newV)
	if err := h.InstallVersion(ctx, newV, nodeset.New(), clients); err != nil {
		return err
	}

	withFault := false
	if faultOnPoolUpgrade {
		if withFault, err = h.HasFaultInjection(ctx, clients); err != nil {
			return err
		}
	}
	if withFault {
		step("Verify dmg pool upgrade with fault-injection - new server, old pool")
	} else {
		step("Verify dmg pool upgrade - new server, old pool")
	}
	if err := h.PoolUpgrade(ctx, pool, withFault, clients); err != nil {
		return err
	}

	step("Verify dmg pool get-prop - new server, upgraded pool")
	if _, err := h.Dmg.PoolGetProp(ctx, pool.ID()); err != nil {
		return err
	}

	step("Verify client/server communication - new client, new server, upgraded pool")
	if err := h.VerifyServerClientComm(ctx, pool); err != nil {
		return err
	}

	step("Verify pool attributes - new server, upgraded pool")
	if err := h.VerifyPoolAttrs(ctx, pool, attrs); err != nil {
		return err
	}
	if err := checkOldData("new client, new server, upgraded pool"); err != nil {
		return err
	}

	step("Destroy current pool and container")
	if err := h.DestroyContainer(ctx, cont1); err != nil {
		return err
	}
	if err := h.DestroyPool(ctx, pool, true); err != nil {
		return err
	}

	step("Create a new pool after server upgrade")
	if pool, err = h.CreatePool(ctx); err != nil {
		return err
	}

	step("Verify dmg pool get-prop - new server, new pool")
	if _, err := h.Dmg.PoolGetProp(ctx, pool.ID()); err != nil {
		return err
	}

	step("Verify client/server communication - new client, new server, new pool")
	if err := h.VerifyServerClientComm(ctx, pool); err != nil {
		return err
	}

	step("Verify IOR write/read - new client, new server, new pool, new data")
	if err := h.tmpContainerWriteRead(ctx, pool, clients); err != nil {
		return err
	}

	step("Destroy current pool")
	if err := h.DestroyPool(ctx, pool, true); err != nil {
		return err
	}

	step("Downgrade DAOS to %s", oldV)
	if err := h.InstallVersion(ctx, oldV, servers, clients); err != nil {
		return err
	}

	if faultOnPoolUpgrade {
		has, err := h.HasFaultInjection(ctx, clients)
		if err != nil {
			return err
		}
		if !has {
			return failf("Upgraded-rpms did not have fault-injection feature.")
		}
	}
	h.Log.Info("Test passed")
	return nil
}

func (h *Harness) tmpContainerWriteRead(ctx context.Context, pool *daos.Pool, clients nodeset.NodeSet) error {
	tmp, err := h.CreateContainer(ctx, pool)
	if err != nil {
		return err
	}
	if err := h.VerifyWriteRead(ctx, clients, tmp, true, true); err != nil {
		return err
	}
	return h.DestroyContainer(ctx, tmp)
}

// verifyOldClientRejected expects an old client to fail querying a pool
// created by new servers.
func (h *Harness) verifyOldClientRejected(ctx context.Context) (err error) {
	tmp, err := h.CreatePool(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if derr := h.DestroyPool(ctx, tmp, false); derr != nil && err == nil {
			err = derr
		}
	}()

	_, qerr := h.Daos.PoolQuery(ctx, tmp.ID())
	if qerr == nil || !strings.Contains(qerr.Error(), "DER_NOTSUPPORTED") {
		return failf("daos pool query expected to fail with DER_NOTSUPPORTED for v%s client, v%s pool",
			h.CurrentClient, h.CurrentServer)
	}
	return nil
}

// DiffVersionsAgentServer checks daos and libdaos across mixed agent and
// server versions: one upgraded server, old agents against new servers,
// new agents against new servers, then new agents against old servers.
func (h *Harness) DiffVersionsAgentServer(ctx context.Context) (err error) {
	defer func() { h.Steps.Done(err) }()
	clients, servers := h.Clients, h.Servers
	oldV, newV := h.Opts.OldVersion, h.Opts.NewVersion
	allHosts := nodeset.IncludeLocalHost(servers.Union(clients))

	type check struct {
		step     string
		cmd      string
		positive bool
		expErr   string
	}
	verify := func(agentServer string, checks ...check) error {
		for _, c := range checks {
			if err := h.VerifyCommand(ctx, c.step, clients, c.cmd, c.positive, agentServer, c.expErr); err != nil {
				return err
			}
		}
		return nil
	}

	h.Log.Info("==(1)Setup, create pool and container.")
	pool, err := h.CreatePool(ctx)
	if err != nil {
		return err
	}
	poolID := pool.ID()
	if err := verify(fmt.Sprintf("%s agent to %s server", oldV, oldV),
		check{"1.1", "dmg system query", true, ""}); err != nil {
		return err
	}

	h.Steps.Step("Stop all servers and agents")
	if err := h.SystemStop(ctx, true, true); err != nil {
		return err
	}

	h.Log.Info("==(3)Upgrade 1 server to %s.", newV)
	first := servers.Slice(0, 1)
	if err := h.InstallVersion(ctx, newV, first, nodeset.New()); err != nil {
		return err
	}
	h.Log.Info("==(3.1)server %s Upgrade to %s completed.", first, newV)

	h.Log.Info("==(4)Negative test - dmg pool query on mix-version servers.")
	if err := verify(fmt.Sprintf("%s agent to mixed-version servers", oldV),
		check{"4.1", "dmg pool list", false, "unable to contact the DAOS Management Service"}); err != nil {
		return err
	}

	rest := servers.Slice(1, servers.Len())
	h.Log.Info("==(5) Upgrade remaining servers %s to %s.", rest, newV)
	if err := h.InstallVersion(ctx, newV, rest, nodeset.New()); err != nil {
		return err
	}
	h.Log.Info("==(5.1) server %s Upgrade to %s completed.", rest, newV)

	h.Log.Info("==(6)Restart %s agent", oldV)
	if err := h.Services.StartAgents(ctx, clients); err != nil {
		return err
	}
	if err := h.ShowVersions(ctx, allHosts, clients); err != nil {
		return err
	}

	h.Log.Info("==(7)Verify %s agent connect to %s server", oldV, newV)
	if err := verify(fmt.Sprintf("%s agent to %s server", oldV, newV),
		check{"7.1", "daos pool query " + poolID, true, ""},
		check{"7.2", "dmg pool query " + poolID, false, "admin:0.0.0 are not compatible"},
		check{"7.3", "sudo daos_agent dump-attachinfo", true, ""},
		check{"7.4", fmt.Sprintf("daos cont create %s --type POSIX --properties 'rf:2'", poolID), true, ""},
		check{"7.5", "daos pool autotest --pool " + poolID, true, ""},
	); err != nil {
		return err
	}

	h.Log.Info("==(8)Upgrade agent to %s, now %s servers %s agent.", newV, newV, newV)
	if err := h.InstallVersion(ctx, newV, nodeset.New(), clients); err != nil {
		return err
	}
	if err := h.ShowVersions(ctx, allHosts, clients); err != nil {
		return err
	}

	h.Log.Info("==(9)Create new pools and containers on %s agent to %s server", newV, newV)
	if err := verify(fmt.Sprintf("%s agent to %s server", newV, newV),
		check{"9.1", "dmg pool create --size 5G New_pool1", true, ""},
		check{"9.2", "dmg pool list", true, ""},
		check{"9.3", "daos cont create New_pool1 C21 --type POSIX --properties 'rf:2'", true, ""},
		check{"9.4", "daos cont create New_pool1 C22 --type POSIX --properties 'rf:2'", true, ""},
		check{"9.5", "daos container list New_pool1", true, ""},
		check{"9.6", "sudo daos_agent dump-attachinfo", true, ""},
		check{"9.7", "daos pool autotest --pool New_pool1", true, ""},
	); err != nil {
		return err
	}

	h.Log.Info("==(10) Downgrade server to %s, now %s agent to %s server.", oldV, newV, oldV)
	if err := h.InstallVersion(ctx, oldV, servers, nodeset.New()); err != nil {
		return err
	}
	if err := h.ShowVersions(ctx, allHosts, clients); err != nil {
		return err
	}

	if err := verify(fmt.Sprintf("%s agent to %s server", newV, oldV),
		check{"11.1", "daos pool query " + poolID, true, ""},
		check{"11.2", "dmg pool query " + poolID, false, "does not match"},
		check{"11.3", "sudo daos_agent dump-attachinfo", true, ""},
		check{"11.4", fmt.Sprintf("daos cont create %s 'C_oldP' --type POSIX --properties 'rf:2'", poolID), true, ""},
		check{"11.5", "daos cont create New_pool1 'C_newP' --type POSIX --properties 'rf:2'", false, "DER_NO_SERVICE(-2039)"},
		check{"11.6", "daos pool autotest --pool " + poolID, false, "common ERR"},
	); err != nil {
		return err
	}

	h.Log.Info("==(12)Agent %s Downgrade started.", clients)
	if err := h.InstallVersion(ctx, oldV, nodeset.New(), clients); err != nil {
		return err
	}
	h.Steps.Step("Test passed")
	return nil
}
