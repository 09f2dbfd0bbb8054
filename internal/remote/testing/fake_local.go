package testing

import (
	"context"
	"regexp"
	"sync"

	"github.com/rileyhilliard/ftest/internal/remote"
)

// LocalHandler produces the outcome of a local command. It may touch the
// filesystem to mimic the command's side effects.
type LocalHandler func(command string) remote.LocalResult

// FakeLocal is a scripted remote.LocalExecutor. Unmatched commands pass
// with no output.
type FakeLocal struct {
	mu       sync.Mutex
	handlers []localRule
	commands []string
}

type localRule struct {
	re *regexp.Regexp
	fn LocalHandler
}

var _ remote.LocalExecutor = (*FakeLocal)(nil)

// NewFakeLocal creates an empty FakeLocal.
func NewFakeLocal() *FakeLocal {
	return &FakeLocal{}
}

// On returns res for commands matching pattern. Later registrations win.
func (f *FakeLocal) On(pattern string, res remote.LocalResult) {
	f.Handle(pattern, func(string) remote.LocalResult { return res })
}

// Handle routes commands matching pattern to fn.
func (f *FakeLocal) Handle(pattern string, fn LocalHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, localRule{re: regexp.MustCompile(pattern), fn: fn})
}

// Commands returns the commands run so far.
func (f *FakeLocal) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

// RunLocal mirrors remote.LocalRunner: check turns a non-zero exit into an
// error built by remote.HandleExecError.
func (f *FakeLocal) RunLocal(ctx context.Context, command string, check bool) (*remote.LocalResult, error) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	var fn LocalHandler
	for i := len(f.handlers) - 1; i >= 0; i-- {
		if f.handlers[i].re.MatchString(command) {
			fn = f.handlers[i].fn
			break
		}
	}
	f.mu.Unlock()

	res := remote.LocalResult{}
	if fn != nil {
		res = fn(command)
	}
	res.Command = command
	if check && res.ExitCode != 0 {
		return &res, remote.HandleExecError(command, res.Stderr, res.ExitCode)
	}
	return &res, nil
}
