// Package doctor diagnoses whether the local machine and the cluster in
// .ftest.yaml are ready to run functional tests.
package doctor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// CheckStatus is the verdict of one check. Higher values are worse.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	}
	return "unknown"
}

// MarshalText encodes the status by name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult is what a check reports back.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Check is a single diagnostic. Category groups checks in the report:
// CONFIG, SSH, LOCAL or CLUSTER.
type Check interface {
	Name() string
	Category() string
	Run(ctx context.Context) CheckResult
}

// Category holds the results of the checks sharing one category.
type Category struct {
	Name    string        `json:"name"`
	Results []CheckResult `json:"results"`
}

// RunAll runs checks one after another.
func RunAll(ctx context.Context, checks []Check) []CheckResult {
	results := make([]CheckResult, 0, len(checks))
	for _, c := range checks {
		results = append(results, c.Run(ctx))
	}
	return results
}

// RunAllParallel runs every check at once. results[i] belongs to checks[i].
func RunAllParallel(ctx context.Context, checks []Check) []CheckResult {
	results := make([]CheckResult, len(checks))
	var g errgroup.Group
	for i, c := range checks {
		i, c := i, c
		g.Go(func() error {
			results[i] = c.Run(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Group pairs checks with their results and buckets them by category,
// keeping categories in the order they first appear.
func Group(checks []Check, results []CheckResult) []Category {
	var out []Category
	index := make(map[string]int)
	for i, c := range checks {
		if i >= len(results) {
			break
		}
		n, ok := index[c.Category()]
		if !ok {
			n = len(out)
			index[c.Category()] = n
			out = append(out, Category{Name: c.Category()})
		}
		out[n].Results = append(out[n].Results, results[i])
	}
	return out
}

// CountByStatus tallies results per status.
func CountByStatus(results []CheckResult) map[CheckStatus]int {
	counts := make(map[CheckStatus]int, 3)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// Worst returns the most severe status among results, StatusPass when empty.
func Worst(results []CheckResult) CheckStatus {
	worst := StatusPass
	for _, r := range results {
		if r.Status > worst {
			worst = r.Status
		}
	}
	return worst
}

// HasFailures reports whether any check failed outright.
func HasFailures(results []CheckResult) bool {
	return Worst(results) >= StatusFail
}

// HasIssues reports whether any check warned or failed.
func HasIssues(results []CheckResult) bool {
	return Worst(results) > StatusPass
}

// Summary is the one-line verdict printed under the report.
func Summary(results []CheckResult) string {
	counts := CountByStatus(results)
	issues := counts[StatusWarn] + counts[StatusFail]
	if issues == 0 {
		return "Everything looks good"
	}
	return fmt.Sprintf("%d issue%s found", issues, pluralize(issues))
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
