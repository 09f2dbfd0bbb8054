package doctor

import (
	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/remote"
	"github.com/rileyhilliard/ftest/internal/require"
)

// Options selects what NewChecks probes.
type Options struct {
	ConfigPath string
	// Config is nil when it failed to load; cluster checks are skipped.
	Config *config.Config
	Runner remote.Runner
	Local  remote.LocalExecutor
}

// NewChecks assembles the checks run by 'ftest doctor' in display order.
func NewChecks(opts Options) []Check {
	checks := NewConfigChecks(opts.ConfigPath)
	checks = append(checks, NewSSHChecks(opts.Local)...)

	cache := require.NewCache()
	checks = append(checks, &LocalRequirementsCheck{Tools: require.LocalTools, Local: opts.Local, Cache: cache})

	if opts.Config == nil || opts.Runner == nil {
		return checks
	}
	servers, err := opts.Config.Servers()
	if err != nil {
		return checks
	}
	clients, err := opts.Config.Clients()
	if err != nil {
		return checks
	}
	timeout := opts.Config.SSH.Timeout

	checks = append(checks,
		&HostsReachableCheck{Role: "servers", Hosts: servers, Runner: opts.Runner, Timeout: timeout},
		&HostsReachableCheck{Role: "clients", Hosts: clients, Runner: opts.Runner, Timeout: timeout},
		&RequirementsCheck{Role: "servers", Hosts: servers, Tools: require.ServerTools, Runner: opts.Runner, Cache: cache},
		&RequirementsCheck{Role: "clients", Hosts: clients, Tools: require.ClientTools, Runner: opts.Runner, Cache: cache},
		&DaosVersionCheck{Hosts: servers.Union(clients), Runner: opts.Runner},
	)
	return checks
}
