package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
)

// DefaultProbeTimeout bounds the reachability probe on each host.
const DefaultProbeTimeout = 10 * time.Second

// HostsReachableCheck verifies every host of a role accepts commands.
type HostsReachableCheck struct {
	Role    string // "servers" or "clients"
	Hosts   nodeset.NodeSet
	Runner  remote.Runner
	Timeout time.Duration
}

func (c *HostsReachableCheck) Name() string     { return "reachable_" + c.Role }
func (c *HostsReachableCheck) Category() string { return "CLUSTER" }

func (c *HostsReachableCheck) Run(ctx context.Context) CheckResult {
	if c.Hosts.IsEmpty() {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("No %s configured", c.Role),
			Suggestion: fmt.Sprintf("Set hosts.%s in your .ftest.yaml", c.Role),
		}
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultProbeTimeout
	}
	result, err := c.Runner.Run(ctx, c.Hosts, "true", remote.WithTimeout(timeout))
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusFail,
			Message: fmt.Sprintf("%s: %v", c.Role, err),
		}
	}

	if result.Passed() {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: fmt.Sprintf("%s reachable: %s", c.Role, c.Hosts),
		}
	}

	var reasons []string
	if down := result.TimeoutHosts(); !down.IsEmpty() {
		reasons = append(reasons, fmt.Sprintf("%s timed out", down))
	}
	for _, h := range result.Hosts {
		if !h.Passed() && !h.TimedOut && len(h.Stderr) > 0 {
			reasons = append(reasons, fmt.Sprintf("%s: %s", h.Host, h.Stderr[0]))
			break
		}
	}
	return CheckResult{
		Name:       c.Name(),
		Status:     StatusFail,
		Message:    fmt.Sprintf("%s unreachable: %s", c.Role, result.FailedHosts()),
		Suggestion: strings.Join(reasons, "; "),
	}
}

// rpmVersionCommand prints the installed daos version or nothing.
const rpmVersionCommand = "rpm -q --qf '%{version}-%{release}' daos 2>/dev/null"

// DaosVersionCheck reports the installed DAOS version and warns when the
// cluster is mixed. A mixed cluster is expected mid interop run.
type DaosVersionCheck struct {
	Hosts  nodeset.NodeSet
	Runner remote.Runner
}

func (c *DaosVersionCheck) Name() string     { return "daos_version" }
func (c *DaosVersionCheck) Category() string { return "CLUSTER" }

func (c *DaosVersionCheck) Run(ctx context.Context) CheckResult {
	if c.Hosts.IsEmpty() {
		return CheckResult{Name: c.Name(), Status: StatusPass, Message: "No hosts to check"}
	}
	result, err := c.Runner.Run(ctx, c.Hosts, rpmVersionCommand)
	if err != nil {
		return CheckResult{Name: c.Name(), Status: StatusFail, Message: err.Error()}
	}

	var groups []string
	for _, data := range result.Output {
		version := strings.TrimSpace(strings.Join(data.Stdout, ""))
		if !data.Passed() || version == "" {
			version = "not installed"
		}
		groups = append(groups, fmt.Sprintf("%s on %s", version, data.Hosts))
	}

	if len(result.Output) == 1 && result.Passed() {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "daos " + groups[0],
		}
	}
	return CheckResult{
		Name:       c.Name(),
		Status:     StatusWarn,
		Message:    "Mixed daos versions: " + strings.Join(groups, ", "),
		Suggestion: "Run 'ftest interop' to reinstall a single version, or install daos with dnf",
	}
}
