package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
	"github.com/rileyhilliard/ftest/internal/require"
)

// RequirementsCheck verifies that the tools a role drives exist on every
// host of the role.
type RequirementsCheck struct {
	Role   string
	Hosts  nodeset.NodeSet
	Tools  []string
	Runner remote.Runner
	Cache  *require.Cache
}

func (c *RequirementsCheck) Name() string     { return "requirements_" + c.Role }
func (c *RequirementsCheck) Category() string { return "REQUIREMENTS" }

func (c *RequirementsCheck) Run(ctx context.Context) CheckResult {
	if c.Hosts.IsEmpty() || len(c.Tools) == 0 {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: fmt.Sprintf("Requirements (%s): none to check", c.Role),
		}
	}

	byHost, err := require.CheckHosts(ctx, c.Runner, c.Hosts, c.Tools, c.Cache)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Requirements (%s): check failed: %v", c.Role, err),
			Suggestion: "Check SSH connection",
		}
	}

	// Group hosts by what they are missing so the message folds.
	missingOn := make(map[string][]string)
	var order []string
	for _, host := range c.Hosts.Hosts() {
		missing := require.FilterMissing(byHost[host])
		if len(missing) == 0 {
			continue
		}
		text := require.FormatMissing(missing)
		if _, ok := missingOn[text]; !ok {
			order = append(order, text)
		}
		missingOn[text] = append(missingOn[text], host)
	}

	if len(order) == 0 {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: fmt.Sprintf("Requirements (%s): all %d satisfied", c.Role, len(c.Tools)),
		}
	}

	var parts []string
	for _, text := range order {
		parts = append(parts, fmt.Sprintf("%s missing %s", nodeset.New(missingOn[text]...), text))
	}
	return CheckResult{
		Name:       c.Name(),
		Status:     StatusFail,
		Message:    fmt.Sprintf("Requirements (%s): %s", c.Role, strings.Join(parts, "; ")),
		Suggestion: "Install the missing packages on the listed hosts",
	}
}

// LocalRequirementsCheck verifies the tools ftest runs on this machine.
type LocalRequirementsCheck struct {
	Tools []string
	Local remote.LocalExecutor
	Cache *require.Cache
}

func (c *LocalRequirementsCheck) Name() string     { return "requirements_local" }
func (c *LocalRequirementsCheck) Category() string { return "REQUIREMENTS" }

func (c *LocalRequirementsCheck) Run(ctx context.Context) CheckResult {
	results, err := require.CheckLocal(ctx, c.Local, c.Tools, c.Cache)
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusFail,
			Message: fmt.Sprintf("Requirements (local): check failed: %v", err),
		}
	}
	missing := require.FilterMissing(results)
	if len(missing) == 0 {
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: fmt.Sprintf("Requirements (local): all %d satisfied", len(c.Tools)),
		}
	}
	// Core processing and tag linting still work without every tool.
	return CheckResult{
		Name:       c.Name(),
		Status:     StatusWarn,
		Message:    "Requirements (local): missing " + require.FormatMissing(missing),
		Suggestion: "Core stack traces and tag checks need these tools",
	}
}
