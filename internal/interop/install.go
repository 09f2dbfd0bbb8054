package interop

import (
	"context"
	"strings"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/pkgmgr"
	"github.com/rileyhilliard/ftest/internal/version"
)

// BasePackages are checked for availability before a scenario starts.
var BasePackages = []string{
	"daos", "daos-admin", "daos-client", "daos-client-tests",
	"daos-server", "daos-server-tests", "daos-tests",
}

// VerifyRPMs checks that the old and new packages are available on every
// host and that the old ones are installed.
func (h *Harness) VerifyRPMs(ctx context.Context) error {
	all := h.Clients.Union(h.Servers)
	oldPkgs := pkgmgr.VersionedPackages(BasePackages, h.Opts.OldVersion)
	newPkgs := pkgmgr.VersionedPackages(BasePackages, h.Opts.NewVersion)

	checks := []struct {
		verify  func() (bool, error)
		message string
	}{
		{func() (bool, error) { return passed(pkgmgr.VerifyAvailable(ctx, h.Runner, all, oldPkgs)) },
			"Old RPMs not available on all nodes"},
		{func() (bool, error) { return passed(pkgmgr.VerifyAvailable(ctx, h.Runner, all, newPkgs)) },
			"New RPMs not available on all nodes"},
		{func() (bool, error) { return passed(pkgmgr.VerifyInstalled(ctx, h.Runner, all, oldPkgs)) },
			"Old RPMs are not installed on all nodes"},
	}
	for _, c := range checks {
		ok, err := c.verify()
		if err != nil {
			return err
		}
		if !ok {
			return errors.New(errors.ErrInstall, c.message,
				"Configure the dnf repos so both versions resolve, and install the old version first")
		}
	}
	return nil
}

// ShowVersions lists the installed packages on allHosts and checks that
// dmg and daos run on clients.
func (h *Harness) ShowVersions(ctx context.Context, allHosts, clients nodeset.NodeSet) error {
	ok, err := passed(pkgmgr.ListInstalled(ctx, h.Runner, allHosts, "daos-"))
	if err != nil {
		return err
	}
	if !ok {
		return failf("Failed to check daos RPMs")
	}
	if _, err := h.run(ctx, clients, "dmg version", "Failed to check dmg version"); err != nil {
		return err
	}
	_, err = h.run(ctx, clients, "daos version", "Failed to check daos version")
	return err
}

// SystemStop stops the engines through dmg, then the agents and servers.
func (h *Harness) SystemStop(ctx context.Context, servers, agents bool) error {
	if servers {
		if err := h.Dmg.SystemStop(ctx, false); err != nil {
			return err
		}
	}
	var errs []error
	if agents {
		errs = append(errs, h.Services.StopAgents(ctx, h.Clients))
	}
	if servers {
		errs = append(errs, h.Services.StopServers(ctx, h.Servers))
	}
	if err := errors.Join(errors.ErrRemote, "Errors stopping servers/agents", errs...); err != nil {
		return err
	}
	return h.settle(ctx, h.Opts.StopSettle, "stopping servers/agents")
}

// InstallVersion stops the affected services, installs ver on servers and
// clients, checks the tools report a consistent version and restarts the
// services.
func (h *Harness) InstallVersion(ctx context.Context, ver string, servers, clients nodeset.NodeSet) error {
	target, err := version.Parse(ver)
	if err != nil {
		return err
	}
	if !servers.IsEmpty() {
		h.Log.Info("Stopping servers before installing version %s", ver)
	}
	if !clients.IsEmpty() {
		h.Log.Info("Stopping agents before installing version %s", ver)
	}
	if err := h.SystemStop(ctx, !servers.IsEmpty(), !clients.IsEmpty()); err != nil {
		return err
	}

	h.Log.Info("RPMs before installing version %s", ver)
	ok, err := passed(pkgmgr.ListInstalled(ctx, h.Runner, servers.Union(clients), "daos-"))
	if err != nil {
		return err
	}
	if !ok {
		return failf("Failed to show current RPMs")
	}

	packages := pkgmgr.VersionedPackages([]string{"daos-server-tests", "daos-client-tests"}, ver)
	serverPackages := append([]string(nil), packages...)
	clientPackages := append(packages, "ior")

	if !servers.IsEmpty() {
		h.Log.Info("Installing version %s on servers, %s", ver, servers)
		if err := h.install(ctx, servers, serverPackages, ver, "servers"); err != nil {
			return err
		}
		h.CurrentServer = target
		for _, host := range servers.Hosts() {
			h.serverVersions[host] = ver
		}
		if err := h.checkToolVersion(ctx, servers.Slice(0, 1), "dmg version", ver, "server"); err != nil {
			return err
		}
		h.Log.Info("Successfully installed version %s on servers", ver)
	}

	if !clients.IsEmpty() {
		h.Log.Info("Installing version %s on clients, %s", ver, clients)
		if err := h.install(ctx, clients, clientPackages, ver, "clients"); err != nil {
			return err
		}
		h.CurrentClient = target
		h.Daos.ClientVersion = target
		if err := h.checkToolVersion(ctx, clients, "daos version", ver, "client"); err != nil {
			return err
		}
		h.Log.Info("Successfully installed version %s on clients", ver)
	}

	if !servers.IsEmpty() {
		h.Log.Info("Restarting servers after installing %s", ver)
		if err := h.restartServers(ctx); err != nil {
			return err
		}
		if err := h.settle(ctx, h.Opts.ServerRestartSettle, "restarting servers"); err != nil {
			return err
		}
	}
	if !clients.IsEmpty() {
		h.Log.Info("Restarting agents after installing %s", ver)
		if err := h.Services.StartAgents(ctx, h.Clients); err != nil {
			return err
		}
	}
	return h.settle(ctx, h.Opts.RestartSettle, "restarting servers/agents")
}

// restartServers starts daos_server on every server host, since SystemStop
// stopped all of them. Ranks only join a single-version system, so the wait
// is skipped while servers run mixed versions.
func (h *Harness) restartServers(ctx context.Context) error {
	if err := h.Services.StartServers(ctx, h.Servers); err != nil {
		return err
	}
	if versions := h.ServerVersions(); len(versions) > 1 {
		h.Log.Info("Servers run mixed versions %v, not waiting for ranks to join", versions)
		return nil
	}
	return h.Services.WaitJoined(ctx, h.Dmg, h.Servers.Len(), h.Opts.JoinTimeout)
}

func (h *Harness) install(ctx context.Context, hosts nodeset.NodeSet, packages []string, ver, role string) error {
	result, err := pkgmgr.InstallPackages(ctx, h.Runner, hosts, packages, "root")
	if err != nil {
		return err
	}
	if !result.Passed() {
		return errors.New(errors.ErrInstall,
			"Failed to install version "+ver+" on "+role,
			"dnf output on "+result.FailedHosts().String()+": "+lastLine(result.AllStdout()))
	}
	return nil
}

func (h *Harness) checkToolVersion(ctx context.Context, hosts nodeset.NodeSet, cmd, ver, role string) error {
	result, err := h.Runner.Run(ctx, hosts, cmd)
	if err != nil {
		return err
	}
	if !result.Passed() {
		return failf("%s failed after installing %s version %s", cmd, role, ver)
	}
	if !result.Homogeneous() {
		return failf("%s inconsistent after installing %s version %s", cmd, role, ver)
	}
	return nil
}

func passed(result interface{ Passed() bool }, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return result.Passed(), nil
}

func lastLine(outputs map[string]string) string {
	for _, out := range outputs {
		lines := strings.Split(strings.TrimSpace(out), "\n")
		return lines[len(lines)-1]
	}
	return ""
}
