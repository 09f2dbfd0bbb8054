package daos

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
)

// IOR APIs the harness drives.
const (
	APIDFS   = "DFS"
	APIPOSIX = "POSIX"
	APIHDF5  = "HDF5"
)

// DefaultHDF5PluginPath is where the HDF5 VOL connector is installed.
const DefaultHDF5PluginPath = "/usr/lib64/hdf5/plugins"

// IorParams describe one IOR run.
type IorParams struct {
	API          string
	BlockSize    string
	TransferSize string
	TestFile     string
	Flags        string
	Processes    int
	PPN          int
	Pool         string
	Container    string
	Group        string
	PluginPath   string
	Timeout      time.Duration
}

// Ior runs IOR under mpirun from the client hosts.
type Ior struct {
	runner remote.Runner
	log    logger.Logger
	// Launcher is the host that starts mpirun. Defaults to the first client.
	Launcher nodeset.NodeSet
}

// NewIor returns an IOR runner.
func NewIor(runner remote.Runner, log logger.Logger) *Ior {
	if log == nil {
		log = logger.Noop()
	}
	return &Ior{runner: runner, log: log}
}

// Env returns the environment IOR needs for p.API.
func (p IorParams) Env() map[string]string {
	env := map[string]string{}
	if p.API == APIHDF5 {
		plugin := p.PluginPath
		if plugin == "" {
			plugin = DefaultHDF5PluginPath
		}
		env["HDF5_VOL_CONNECTOR"] = "daos"
		env["HDF5_PLUGIN_PATH"] = plugin
		env["DAOS_POOL"] = p.Pool
		env["DAOS_CONT"] = p.Container
	}
	return env
}

// Command builds the mpirun command line for clients.
func (p IorParams) Command(clients nodeset.NodeSet) string {
	np := p.Processes
	if np <= 0 {
		np = clients.Len()
	}
	parts := []string{"mpirun", "-np", strconv.Itoa(np)}
	if p.PPN > 0 {
		parts = append(parts, "--map-by", fmt.Sprintf("ppr:%d:node", p.PPN))
	}
	parts = append(parts, "--host", strings.Join(clients.Hosts(), ","))
	for _, name := range sortedKeys(p.Env()) {
		parts = append(parts, "-x", name)
	}
	parts = append(parts, "ior", "-a", p.API)
	if p.BlockSize != "" {
		parts = append(parts, "-b", p.BlockSize)
	}
	if p.TransferSize != "" {
		parts = append(parts, "-t", p.TransferSize)
	}
	if p.TestFile != "" {
		parts = append(parts, "-o", p.TestFile)
	}
	if p.API == APIDFS {
		parts = append(parts, "--dfs.pool", p.Pool, "--dfs.cont", p.Container)
		if p.Group != "" {
			parts = append(parts, "--dfs.group", p.Group)
		}
	}
	if p.Flags != "" {
		parts = append(parts, p.Flags)
	}
	return remote.CommandWithEnv(strings.Join(parts, " "), p.Env())
}

// Run runs IOR from the launcher host against clients.
func (i *Ior) Run(ctx context.Context, clients nodeset.NodeSet, p IorParams) (*remote.Result, error) {
	switch p.API {
	case APIDFS, APIPOSIX, APIHDF5:
	default:
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unsupported IOR api %s", p.API),
			"Use one of DFS, POSIX or HDF5")
	}
	launcher := i.Launcher
	if launcher.IsEmpty() {
		launcher = clients.Slice(0, 1)
	}
	command := p.Command(clients)
	opts := []remote.RunOption{remote.WithStderr(true)}
	if p.Timeout > 0 {
		opts = append(opts, remote.WithTimeout(p.Timeout))
	}
	i.log.Info("Running IOR %s on %s", p.API, clients)
	result, err := i.runner.Run(ctx, launcher, command, opts...)
	if err != nil {
		return nil, err
	}
	if !result.Passed() {
		if !result.TimeoutHosts().IsEmpty() {
			return result, newFailure(command, -1, combinedOutput(result),
				"Timeout detected running '%s' with a %s timeout", command, p.Timeout)
		}
		return result, newFailure(command, exitCode(result), combinedOutput(result), "IOR failed")
	}
	return result, nil
}
