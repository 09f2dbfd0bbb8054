package require

import (
	"context"
	"fmt"
	"strings"

	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
)

// LocalHost keys the cache entries of CheckLocal.
const LocalHost = "localhost"

func probe(tool string) string {
	return fmt.Sprintf("command -v %s", tool)
}

// CheckHosts checks every tool on every host with one "command -v" per
// tool across the node set. Cached results are not checked again. The
// returned map is keyed by host, with results in the order of tools.
func CheckHosts(ctx context.Context, r remote.Runner, hosts nodeset.NodeSet, tools []string, cache *Cache) (map[string][]CheckResult, error) {
	out := make(map[string][]CheckResult, hosts.Len())
	for _, tool := range tools {
		var pending []string
		for _, host := range hosts.Hosts() {
			if cached, ok := cache.Get(host, tool); ok {
				out[host] = append(out[host], cached)
			} else {
				pending = append(pending, host)
			}
		}
		if len(pending) == 0 {
			continue
		}
		if !ValidateToolName(tool) {
			for _, host := range pending {
				out[host] = append(out[host], CheckResult{Name: tool})
			}
			continue
		}

		result, err := r.Run(ctx, nodeset.New(pending...), probe(tool))
		if err != nil {
			return nil, err
		}
		for _, h := range result.Hosts {
			res := CheckResult{Name: tool}
			if h.ExitCode == 0 && !h.TimedOut {
				res.Satisfied = true
				res.Path = strings.TrimSpace(strings.Join(h.Stdout, "\n"))
			}
			cache.Set(h.Host, tool, res)
			out[h.Host] = append(out[h.Host], res)
		}
	}
	return out, nil
}

// CheckLocal checks tools on the machine running the harness.
func CheckLocal(ctx context.Context, local remote.LocalExecutor, tools []string, cache *Cache) ([]CheckResult, error) {
	results := make([]CheckResult, 0, len(tools))
	for _, tool := range tools {
		if cached, ok := cache.Get(LocalHost, tool); ok {
			results = append(results, cached)
			continue
		}
		res := CheckResult{Name: tool}
		if ValidateToolName(tool) {
			lr, err := local.RunLocal(ctx, probe(tool), false)
			if err != nil {
				return nil, err
			}
			if lr.Passed() {
				res.Satisfied = true
				res.Path = strings.TrimSpace(lr.Stdout)
			}
		}
		cache.Set(LocalHost, tool, res)
		results = append(results, res)
	}
	return results, nil
}

// FilterMissing returns only the unsatisfied requirements.
func FilterMissing(results []CheckResult) []CheckResult {
	var missing []CheckResult
	for _, r := range results {
		if !r.Satisfied {
			missing = append(missing, r)
		}
	}
	return missing
}

// FormatMissing creates a human-readable list of missing requirements,
// naming the package to install where known.
func FormatMissing(missing []CheckResult) string {
	if len(missing) == 0 {
		return ""
	}
	var parts []string
	for _, m := range missing {
		if pkg := Package(m.Name); pkg != "" {
			parts = append(parts, fmt.Sprintf("%s (dnf install %s)", m.Name, pkg))
		} else {
			parts = append(parts, m.Name)
		}
	}
	return strings.Join(parts, ", ")
}
