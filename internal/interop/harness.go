// Package interop drives upgrade and downgrade scenarios: installing
// different package versions on servers and clients and checking that
// pools, containers, attributes and data survive each transition.
package interop

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rileyhilliard/ftest/internal/daos"
	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
	"github.com/rileyhilliard/ftest/internal/ui"
	"github.com/rileyhilliard/ftest/internal/version"
)

// Options configure a Harness.
type Options struct {
	OldVersion string
	NewVersion string
	// AttrCount is the number of pool attributes to set.
	AttrCount int

	PoolSize            string
	ContainerType       string
	ContainerProperties string

	// Ior holds the API, sizes and test file. Flags are replaced by
	// WriteFlags and ReadFlags.
	Ior        daos.IorParams
	WriteFlags string
	ReadFlags  string

	DfuseMountDir string

	// DmgTool and DaosTool set the path, timeout and bad keywords of the
	// admin and client tools.
	DmgTool  daos.ToolOptions
	DaosTool daos.ToolOptions

	PoolUpgradeTimeout  time.Duration
	UpgradePollInterval time.Duration
	// JoinTimeout bounds the wait for ranks to join after servers start.
	JoinTimeout time.Duration

	// Settle delays after service transitions.
	StopSettle          time.Duration
	ServerRestartSettle time.Duration
	RestartSettle       time.Duration
	UpgradeSettle       time.Duration
}

// DefaultOptions returns the settle delays and timeouts used on real
// clusters.
func DefaultOptions() Options {
	return Options{
		AttrCount:           20,
		PoolSize:            "80%",
		ContainerType:       "POSIX",
		ContainerProperties: "rf:0",
		Ior: daos.IorParams{
			API:          daos.APIDFS,
			BlockSize:    "10M",
			TransferSize: "1M",
			TestFile:     "/testfile",
			PPN:          4,
			Timeout:      10 * time.Minute,
		},
		WriteFlags:          "-w -W -k -G 1",
		ReadFlags:           "-r -R -k -G 1",
		DfuseMountDir:       "/tmp/daos_dfuse",
		PoolUpgradeTimeout:  5 * time.Minute,
		UpgradePollInterval: 3 * time.Second,
		JoinTimeout:         5 * time.Minute,
		StopSettle:          30 * time.Second,
		ServerRestartSettle: 5 * time.Second,
		RestartSettle:       30 * time.Second,
		UpgradeSettle:       5 * time.Second,
	}
}

// Harness holds the cluster, the tools and the versions currently
// installed on servers and clients.
type Harness struct {
	Runner  remote.Runner
	Servers nodeset.NodeSet
	Clients nodeset.NodeSet
	Opts    Options

	Old           version.Version
	New           version.Version
	CurrentServer version.Version
	CurrentClient version.Version

	Dmg      *daos.Dmg
	Daos     *daos.Daos
	Ior      *daos.Ior
	Dfuse    *daos.Dfuse
	Services *daos.Services

	Steps *ui.StepLogger
	Log   logger.Logger

	// Sleep waits out settle delays. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
	Rand  *rand.Rand

	// serverVersions is the version installed on each server host.
	serverVersions map[string]string
}

// New builds a harness with dmg on the first server and daos on the first
// client. Both start at the old version.
func New(runner remote.Runner, servers, clients nodeset.NodeSet, opts Options, dmgConfig string, log logger.Logger) (*Harness, error) {
	if log == nil {
		log = logger.Noop()
	}
	if servers.IsEmpty() || clients.IsEmpty() {
		return nil, errors.New(errors.ErrConfig,
			"Interop scenarios need both server and client hosts",
			"Set hosts.servers and hosts.clients in .ftest.yaml")
	}
	oldVer, err := version.Parse(opts.OldVersion)
	if err != nil {
		return nil, err
	}
	newVer, err := version.Parse(opts.NewVersion)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		Runner:        runner,
		Servers:       servers,
		Clients:       clients,
		Opts:          opts,
		Old:           oldVer,
		New:           newVer,
		CurrentServer: oldVer,
		CurrentClient: oldVer,
		Dmg:           daos.NewDmg(runner, servers, dmgConfig, opts.DmgTool, log),
		Daos:          daos.NewDaos(runner, clients, opts.DaosTool, log),
		Ior:           daos.NewIor(runner, log),
		Dfuse:         daos.NewDfuse(runner, opts.DfuseMountDir, log),
		Services:      daos.NewServices(runner, log),
		Steps:         ui.NewStepLogger(nil, log),
		Log:           log,
		Sleep:         sleepContext,
		Rand:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	h.Daos.ClientVersion = oldVer
	h.serverVersions = make(map[string]string, servers.Len())
	for _, host := range servers.Hosts() {
		h.serverVersions[host] = oldVer.String()
	}
	return h, nil
}

// ServerVersions returns the distinct versions installed across servers.
func (h *Harness) ServerVersions() []string {
	seen := map[string]bool{}
	var versions []string
	for _, host := range h.Servers.Hosts() {
		v := h.serverVersions[host]
		if !seen[v] {
			seen[v] = true
			versions = append(versions, v)
		}
	}
	return versions
}

// FirstServer is the host dmg runs on.
func (h *Harness) FirstServer() nodeset.NodeSet { return h.Servers.Slice(0, 1) }

// FirstClient is the host daos and the symlink checks run on.
func (h *Harness) FirstClient() nodeset.NodeSet { return h.Clients.Slice(0, 1) }

func (h *Harness) settle(ctx context.Context, d time.Duration, what string) error {
	if d <= 0 {
		return nil
	}
	h.Log.Info("Sleeping %s after %s", d, what)
	sp := h.Steps.Spinner(fmt.Sprintf("Settling %s after %s", d, what))
	return sp.Run(func() error { return h.Sleep(ctx, d) })
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return errors.WrapWithCode(ctx.Err(), errors.ErrTimeout, "Interrupted while waiting", "")
	}
}

// run runs command on hosts and fails with message unless every host passed.
func (h *Harness) run(ctx context.Context, hosts nodeset.NodeSet, command, message string) (*remote.Result, error) {
	result, err := h.Runner.Run(ctx, hosts, command, remote.WithVerbose(true))
	if err != nil {
		return nil, err
	}
	if !result.Passed() {
		return result, failf("%s (failed on %s)", message, result.FailedHosts())
	}
	return result, nil
}
