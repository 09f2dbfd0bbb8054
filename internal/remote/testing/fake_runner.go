// Package testing provides test doubles for the remote package.
package testing

import (
	"context"
	"regexp"
	"sync"

	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
)

// Response is the canned outcome of a command on some hosts.
type Response struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	// Hosts limits the response to a subset. Empty applies to every host
	// not covered by a more specific response in the same step.
	Hosts nodeset.NodeSet
}

// Out returns a passing response with the given stdout.
func Out(stdout string) Response {
	return Response{Stdout: stdout}
}

// Fail returns a failing response with the given exit code and stdout.
func Fail(exitCode int, stdout string) Response {
	return Response{ExitCode: exitCode, Stdout: stdout}
}

// Timeout returns a timed-out response.
func Timeout() Response {
	return Response{ExitCode: -1, TimedOut: true}
}

// On restricts the response to hosts in ns, given in node-set notation.
func (r Response) On(ns string) Response {
	r.Hosts = nodeset.MustParse(ns)
	return r
}

// Rule matches commands by regular expression and replays a sequence of
// steps. Once the steps run out the last one repeats.
type Rule struct {
	re    *regexp.Regexp
	steps [][]Response
	fn    Handler
	calls int
}

// Handler computes the responses for a matching command. It runs outside
// the runner's lock and may keep state between calls.
type Handler func(command string) []Response

// Then appends the response set for the next matching call.
func (r *Rule) Then(responses ...Response) *Rule {
	r.steps = append(r.steps, responses)
	return r
}

// Call records a Run invocation.
type Call struct {
	Hosts   nodeset.NodeSet
	Command string
	Options remote.Options
}

// FakeRunner is a scripted remote.Runner. Commands matching no rule pass
// with no output on every host.
type FakeRunner struct {
	mu    sync.Mutex
	rules []*Rule
	calls []Call
	// Err, when set, is returned by every Run call.
	Err error
}

var _ remote.Runner = (*FakeRunner)(nil)

// NewFakeRunner creates an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// On registers responses for commands matching pattern. Rules registered
// later take precedence.
func (f *FakeRunner) On(pattern string, responses ...Response) *Rule {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule := &Rule{re: regexp.MustCompile(pattern)}
	rule.Then(responses...)
	f.rules = append(f.rules, rule)
	return rule
}

// Handle routes commands matching pattern to fn. Later rules take
// precedence, as with On.
func (f *FakeRunner) Handle(pattern string, fn Handler) *Rule {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule := &Rule{re: regexp.MustCompile(pattern), fn: fn}
	f.rules = append(f.rules, rule)
	return rule
}

// OnExact registers responses for one literal command.
func (f *FakeRunner) OnExact(command string, responses ...Response) *Rule {
	return f.On("^"+regexp.QuoteMeta(command)+"$", responses...)
}

// Calls returns the recorded Run calls.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Commands returns the recorded commands in call order.
func (f *FakeRunner) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Command)
	}
	return out
}

// CallsMatching returns the recorded calls whose command matches pattern.
func (f *FakeRunner) CallsMatching(pattern string) []Call {
	re := regexp.MustCompile(pattern)
	var out []Call
	for _, c := range f.Calls() {
		if re.MatchString(c.Command) {
			out = append(out, c)
		}
	}
	return out
}

// Run records the call and resolves each host against the newest matching rule.
func (f *FakeRunner) Run(ctx context.Context, hosts nodeset.NodeSet, command string, opts ...remote.RunOption) (*remote.Result, error) {
	o := remote.ApplyOptions(opts...)

	f.mu.Lock()
	f.calls = append(f.calls, Call{Hosts: hosts, Command: command, Options: o})
	if f.Err != nil {
		err := f.Err
		f.mu.Unlock()
		return nil, err
	}
	var step []Response
	var fn Handler
	for i := len(f.rules) - 1; i >= 0; i-- {
		rule := f.rules[i]
		if !rule.re.MatchString(command) {
			continue
		}
		if rule.fn != nil {
			fn = rule.fn
		} else {
			idx := rule.calls
			if idx >= len(rule.steps) {
				idx = len(rule.steps) - 1
			}
			step = rule.steps[idx]
		}
		rule.calls++
		break
	}
	f.mu.Unlock()
	if fn != nil {
		step = fn(command)
	}

	results := make([]remote.HostResult, 0, hosts.Len())
	for _, host := range hosts.Hosts() {
		resp := pick(step, host)
		results = append(results, remote.HostResult{
			Host:     host,
			ExitCode: resp.ExitCode,
			Stdout:   remote.SplitLines([]byte(resp.Stdout)),
			Stderr:   remote.SplitLines([]byte(resp.Stderr)),
			TimedOut: resp.TimedOut,
		})
	}
	return remote.NewResult(command, results, o.Stderr), nil
}

func pick(step []Response, host string) Response {
	for _, r := range step {
		if !r.Hosts.IsEmpty() && r.Hosts.Contains(host) {
			return r
		}
	}
	for _, r := range step {
		if r.Hosts.IsEmpty() {
			return r
		}
	}
	return Response{}
}
