// Package remote runs shell commands on sets of cluster nodes and collects
// per-host results. Runner is the seam every other package talks to;
// SSHRunner is the production implementation and remote/testing provides
// a FakeRunner for unit tests.
package remote

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/util"
)

// Runner executes a command on every host of a node set.
//
// A host that cannot be reached is reported in the Result with exit code -1;
// the returned error is reserved for failures of the call as a whole, such
// as a cancelled context before anything ran.
type Runner interface {
	Run(ctx context.Context, hosts nodeset.NodeSet, command string, opts ...RunOption) (*Result, error)
}

// Options controls a single Run call.
type Options struct {
	// Timeout bounds the command on each host. Zero uses the runner default.
	Timeout time.Duration
	// Stderr merges stderr lines into the output used for grouping.
	Stderr bool
	// Verbose logs every output group at info level instead of debug.
	Verbose bool
}

// RunOption configures a Run call.
type RunOption func(*Options)

// WithTimeout bounds the command on each host.
func WithTimeout(d time.Duration) RunOption {
	return func(o *Options) { o.Timeout = d }
}

// WithStderr merges stderr into the grouped output.
func WithStderr(merge bool) RunOption {
	return func(o *Options) { o.Stderr = merge }
}

// WithVerbose logs command output at info level.
func WithVerbose(verbose bool) RunOption {
	return func(o *Options) { o.Verbose = verbose }
}

// ApplyOptions folds opts over the zero Options. Runner implementations
// outside this package use it to honor the same options.
func ApplyOptions(opts ...RunOption) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CommandAsUser prefixes command so it runs as user through sudo.
// An empty user leaves the command unchanged.
func CommandAsUser(command, user string) string {
	switch user {
	case "":
		return command
	case "root":
		return "sudo -n " + command
	default:
		return fmt.Sprintf("sudo -n -u %s %s", user, command)
	}
}

// CommandWithEnv prefixes command with NAME=value assignments, sorted by name.
func CommandWithEnv(command string, env map[string]string) string {
	if len(env) == 0 {
		return command
	}
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+1)
	for _, name := range names {
		parts = append(parts, name+"="+util.ShellQuote(env[name]))
	}
	return strings.Join(append(parts, command), " ")
}

// FindCommand builds a find invocation for regular files named pattern
// under path.
func FindCommand(path, pattern string, depth int, other ...string) string {
	parts := []string{
		"find", path,
		"-maxdepth", fmt.Sprint(depth),
		"-type", "f",
		"-name", util.ShellQuote(pattern),
	}
	return strings.Join(append(parts, other...), " ")
}
