package suite

import (
	"io"

	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/daos"
	"github.com/rileyhilliard/ftest/internal/interop"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
	"github.com/rileyhilliard/ftest/internal/space"
	"github.com/rileyhilliard/ftest/internal/ui"
)

// Env is the cluster and configuration a test runs against.
type Env struct {
	Config  *config.Config
	Runner  remote.Runner
	Servers nodeset.NodeSet
	Clients nodeset.NodeSet
	Steps   *ui.StepLogger
	Log     logger.Logger
	Out     io.Writer
}

// NewEnv resolves the host lists of cfg.
func NewEnv(cfg *config.Config, runner remote.Runner, out io.Writer, log logger.Logger) (*Env, error) {
	if log == nil {
		log = logger.Noop()
	}
	if out == nil {
		out = io.Discard
	}
	servers, err := cfg.Servers()
	if err != nil {
		return nil, err
	}
	clients, err := cfg.Clients()
	if err != nil {
		return nil, err
	}
	return &Env{
		Config:  cfg,
		Runner:  runner,
		Servers: servers,
		Clients: clients,
		Steps:   ui.NewStepLogger(out, log),
		Log:     log,
		Out:     out,
	}, nil
}

// Verbose reports whether command output should be logged at info level.
func (e *Env) Verbose() bool {
	return e.Config.Output.Verbosity == "verbose"
}

// DmgTool returns the invocation settings of dmg.
func (e *Env) DmgTool() daos.ToolOptions {
	return daos.ToolOptions{
		Path:        e.Config.Dmg.Path,
		Timeout:     e.Config.CommandTimeout,
		BadKeywords: e.Config.Dmg.BadKeywords,
		Verbose:     e.Verbose(),
	}
}

// DaosTool returns the invocation settings of daos.
func (e *Env) DaosTool() daos.ToolOptions {
	return daos.ToolOptions{
		Path:    e.Config.Daos.Path,
		Timeout: e.Config.CommandTimeout,
		Verbose: e.Verbose(),
	}
}

// Dmg runs dmg on dmg.run_host, else the first server.
func (e *Env) Dmg() (*daos.Dmg, error) {
	host, err := e.Config.DmgHost()
	if err != nil {
		return nil, err
	}
	return daos.NewDmg(e.Runner, host, e.Config.Dmg.ConfigFile, e.DmgTool(), e.Log), nil
}

// Daos runs daos on the first client.
func (e *Env) Daos() *daos.Daos {
	return daos.NewDaos(e.Runner, e.Clients, e.DaosTool(), e.Log)
}

// Ior runs IOR from the first client.
func (e *Env) Ior() *daos.Ior {
	return daos.NewIor(e.Runner, e.Log)
}

// IorParams returns the ior section as run parameters. Pool, container and
// block size are filled in per run.
func (e *Env) IorParams() daos.IorParams {
	c := e.Config.Ior
	return daos.IorParams{
		API:          c.API,
		BlockSize:    c.BlockSize,
		TransferSize: c.TransferSize,
		TestFile:     c.TestFile,
		Flags:        c.Flags,
		Processes:    c.Processes,
		PPN:          c.PPN,
		PluginPath:   c.PluginPath,
		Timeout:      c.Timeout,
	}
}

// InteropOptions maps the interop, pool, container, ior and dfuse sections
// onto harness options.
func (e *Env) InteropOptions() interop.Options {
	c := e.Config
	opts := interop.DefaultOptions()
	opts.OldVersion = c.Interop.OldVersion
	opts.NewVersion = c.Interop.NewVersion
	opts.AttrCount = c.Interop.AttrCount
	opts.PoolSize = c.Pool.Size
	opts.ContainerType = c.Container.Type
	opts.ContainerProperties = c.Container.Properties
	opts.Ior = e.IorParams()
	opts.WriteFlags = c.Ior.WriteFlags
	opts.ReadFlags = c.Ior.ReadFlags
	opts.DfuseMountDir = c.Dfuse.MountDir
	opts.DmgTool = e.DmgTool()
	opts.DaosTool = e.DaosTool()
	opts.PoolUpgradeTimeout = c.Interop.PoolUpgradeTimeout
	opts.UpgradePollInterval = c.Interop.UpgradePollInterval
	opts.JoinTimeout = c.Interop.JoinTimeout
	opts.StopSettle = c.Interop.StopSettle
	opts.ServerRestartSettle = c.Interop.ServerRestartSettle
	opts.RestartSettle = c.Interop.RestartSettle
	opts.UpgradeSettle = c.Interop.UpgradeSettle
	return opts
}

// Interop returns an upgrade/downgrade harness logging its steps to the
// test's StepLogger.
func (e *Env) Interop() (*interop.Harness, error) {
	h, err := interop.New(e.Runner, e.Servers, e.Clients, e.InteropOptions(), e.Config.Dmg.ConfigFile, e.Log)
	if err != nil {
		return nil, err
	}
	h.Steps = e.Steps
	return h, nil
}

// Space returns the pool space scenario over pool.namespaces.
func (e *Env) Space() (*space.Scenario, error) {
	dmg, err := e.Dmg()
	if err != nil {
		return nil, err
	}
	pools := make(map[string]space.PoolSpec, len(e.Config.Pool.Namespaces))
	for name, ns := range e.Config.Pool.Namespaces {
		pools[name] = space.PoolSpec{Size: ns.Size, Ranks: ns.Ranks}
	}
	return &space.Scenario{
		Runner:    e.Runner,
		Dmg:       dmg,
		Daos:      e.Daos(),
		Ior:       e.Ior(),
		Servers:   e.Servers,
		Clients:   e.Clients,
		Pools:     pools,
		IorParams: e.IorParams(),
		Steps:     e.Steps,
		Log:       e.Log,
	}, nil
}
