// Package cores locates core dumps written by the storage system and turns
// them into gdb stack traces.
package cores

import (
	"context"
	"path"
	"regexp"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
)

// CorePatternFile holds the kernel core file template.
const CorePatternFile = "/proc/sys/kernel/core_pattern"

var specifierRe = regexp.MustCompile(`%[A-Za-z]`)

// Pattern is where a group of hosts writes core files.
type Pattern struct {
	Hosts   nodeset.NodeSet
	Path    string
	Pattern string
}

// CorePattern reads the core pattern from hosts. The result is keyed by the
// folded node set of each group of hosts reporting the same pattern, with
// format specifiers turned into '*' globs. When enabled is false nothing is
// run and the map is empty.
func CorePattern(ctx context.Context, r remote.Runner, hosts nodeset.NodeSet, enabled bool, log logger.Logger) (map[string]Pattern, error) {
	if log == nil {
		log = logger.Noop()
	}
	patterns := make(map[string]Pattern)
	if !enabled {
		log.Debug("Not collecting core files")
		return patterns, nil
	}

	result, err := r.Run(ctx, hosts, "cat "+CorePatternFile)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCore, "Error obtaining the core file pattern", "")
	}
	if !result.Passed() {
		return nil, errors.New(errors.ErrCore,
			"Error obtaining the core file pattern",
			"Check that "+CorePatternFile+" is readable on "+result.FailedHosts().String())
	}

	for _, data := range result.Output {
		if len(data.Stdout) == 0 {
			return nil, errors.New(errors.ErrCore,
				"Error obtaining the core file pattern and directory on "+data.Hosts.String(), "")
		}
		dir, file := path.Split(data.Stdout[len(data.Stdout)-1])
		dir = path.Clean(dir)
		if dir == "." || dir == "" {
			return nil, errors.New(errors.ErrCore,
				"Error obtaining the core file pattern directory on "+data.Hosts.String(),
				"Core files piped to a handler such as systemd-coredump can't be collected")
		}
		p := Pattern{Hosts: data.Hosts, Path: dir, Pattern: specifierRe.ReplaceAllString(file, "*")}
		patterns[data.Hosts.String()] = p
		log.Info("Collecting any '%s' core files written to %s on %s", p.Pattern, p.Path, data.Hosts)
	}
	return patterns, nil
}
