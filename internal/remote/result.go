package remote

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
)

// HostResult is the outcome of a command on one host.
type HostResult struct {
	Host     string
	ExitCode int
	Stdout   []string
	Stderr   []string
	TimedOut bool
}

// Passed reports a zero exit status without a timeout.
func (h HostResult) Passed() bool {
	return h.ExitCode == 0 && !h.TimedOut
}

// ResultData groups hosts whose command produced identical results.
type ResultData struct {
	Hosts    nodeset.NodeSet
	ExitCode int
	Stdout   []string
	TimedOut bool
}

// Passed reports whether every host in the group passed.
func (d ResultData) Passed() bool {
	return d.ExitCode == 0 && !d.TimedOut
}

// Result is the outcome of a command across a node set.
type Result struct {
	Command string
	Hosts   []HostResult
	Output  []ResultData
	merged  bool
}

// NewResult groups host results by exit code, output and timeout. With
// mergeStderr, each host's stderr lines follow its stdout lines in the
// grouped output.
func NewResult(command string, hosts []HostResult, mergeStderr bool) *Result {
	r := &Result{Command: command, merged: mergeStderr}
	r.Hosts = append(r.Hosts, hosts...)
	sort.SliceStable(r.Hosts, func(i, j int) bool {
		return nodeset.Less(r.Hosts[i].Host, r.Hosts[j].Host)
	})

	type group struct {
		data  ResultData
		hosts []string
	}
	var order []string
	groups := make(map[string]*group)
	for _, h := range r.Hosts {
		lines := r.lines(h)
		key := fmt.Sprintf("%d\x00%t\x00%s", h.ExitCode, h.TimedOut, strings.Join(lines, "\n"))
		g, ok := groups[key]
		if !ok {
			g = &group{data: ResultData{ExitCode: h.ExitCode, Stdout: lines, TimedOut: h.TimedOut}}
			groups[key] = g
			order = append(order, key)
		}
		g.hosts = append(g.hosts, h.Host)
	}
	for _, key := range order {
		g := groups[key]
		g.data.Hosts = nodeset.New(g.hosts...)
		r.Output = append(r.Output, g.data)
	}
	return r
}

func (r *Result) lines(h HostResult) []string {
	if !r.merged || len(h.Stderr) == 0 {
		return h.Stdout
	}
	out := make([]string, 0, len(h.Stdout)+len(h.Stderr))
	return append(append(out, h.Stdout...), h.Stderr...)
}

// Passed reports whether the command passed on every host.
func (r *Result) Passed() bool {
	for _, h := range r.Hosts {
		if !h.Passed() {
			return false
		}
	}
	return len(r.Hosts) > 0
}

// PassedHosts returns the hosts where the command passed.
func (r *Result) PassedHosts() nodeset.NodeSet {
	return r.filter(func(h HostResult) bool { return h.Passed() })
}

// FailedHosts returns the hosts where the command failed or timed out.
func (r *Result) FailedHosts() nodeset.NodeSet {
	return r.filter(func(h HostResult) bool { return !h.Passed() })
}

// TimeoutHosts returns the hosts where the command timed out.
func (r *Result) TimeoutHosts() nodeset.NodeSet {
	return r.filter(func(h HostResult) bool { return h.TimedOut })
}

func (r *Result) filter(keep func(HostResult) bool) nodeset.NodeSet {
	var hosts []string
	for _, h := range r.Hosts {
		if keep(h) {
			hosts = append(hosts, h.Host)
		}
	}
	return nodeset.New(hosts...)
}

// Homogeneous reports whether every host produced the same result.
func (r *Result) Homogeneous() bool {
	return len(r.Output) == 1
}

// AllStdout maps each host to its output joined by newlines.
func (r *Result) AllStdout() map[string]string {
	out := make(map[string]string, len(r.Hosts))
	for _, h := range r.Hosts {
		out[h.Host] = strings.Join(r.lines(h), "\n")
	}
	return out
}

// JoinedStdout joins the output of every group, in group order.
func (r *Result) JoinedStdout() string {
	var lines []string
	for _, d := range r.Output {
		lines = append(lines, d.Stdout...)
	}
	return strings.Join(lines, "\n")
}

// Log writes each output group as "  hosts (rc=N): line".
func (r *Result) Log(log logger.Logger, verbose bool) {
	emit := log.Debug
	if verbose {
		emit = log.Info
	}
	for _, d := range r.Output {
		prefix := fmt.Sprintf("  %s (rc=%d):", d.Hosts, d.ExitCode)
		if d.TimedOut {
			emit("%s timed out", prefix)
		}
		if len(d.Stdout) == 0 && !d.TimedOut {
			emit("%s <no output>", prefix)
		}
		for _, line := range d.Stdout {
			emit("%s %s", prefix, line)
		}
	}
}

// SplitLines turns command output into lines without trailing newline or
// carriage returns. Empty output yields no lines.
func SplitLines(output []byte) []string {
	text := strings.TrimRight(string(output), "\r\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
