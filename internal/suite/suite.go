// Package suite is the minimal test lifecycle behind 'ftest test': suites
// declare their tests and parameter yaml, the Executor merges that yaml
// into the cluster config, takes the cluster lock and records outcomes.
package suite

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/errors"
)

// Test is one test method of a suite.
type Test struct {
	// Name is the method name, e.g. "TestVerifyPoolSpace".
	Name string
	Run  func(ctx context.Context, env *Env) error
}

// Suite groups tests sharing a parameter file.
type Suite interface {
	// Name is the suite type name, e.g. "VerifyPoolSpace".
	Name() string
	// Params is the suite's yaml, merged over the user's config.
	Params() []byte
	Tests() []Test
}

// Requirer is implemented by suites needing more of the config than the
// host lists, such as both interop versions.
type Requirer interface {
	Requires() []config.ValidationOption
}

// Case is one test of one suite.
type Case struct {
	Suite Suite
	Test  Test
}

// ID names the case the way tags and reports do: "Suite.Method".
func (c Case) ID() string {
	return c.Suite.Name() + "." + c.Test.Name
}

// Cases lists every test of suites, sorted by ID.
func Cases(suites []Suite) []Case {
	var out []Case
	for _, s := range suites {
		for _, t := range s.Tests() {
			out = append(out, Case{Suite: s, Test: t})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Select returns the cases matching any pattern. A pattern is a shell glob
// matched against the suite name, the method name or the full ID. No
// patterns selects nothing.
func Select(suites []Suite, patterns []string) ([]Case, error) {
	var out []Case
	for _, c := range Cases(suites) {
		for _, p := range patterns {
			ok, err := matches(p, c)
			if err != nil {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					fmt.Sprintf("Bad test pattern %q", p), "Use names or globs like 'UpgradeDowngrade*'")
			}
			if ok {
				out = append(out, c)
				break
			}
		}
	}
	if len(out) == 0 && len(patterns) > 0 {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("No tests match %s", strings.Join(patterns, " ")),
			"Run 'ftest list' to see the available tests")
	}
	return out, nil
}

func matches(pattern string, c Case) (bool, error) {
	for _, name := range []string{c.ID(), c.Suite.Name(), c.Test.Name} {
		ok, err := path.Match(pattern, name)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}
