package remote

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
)

// LocalResult is the outcome of a command run on this machine.
type LocalResult struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Passed reports a zero exit status.
func (r *LocalResult) Passed() bool { return r.ExitCode == 0 }

// LocalExecutor runs a shell command on the machine executing ftest.
type LocalExecutor interface {
	RunLocal(ctx context.Context, command string, check bool) (*LocalResult, error)
}

// LocalRunner runs commands on the machine executing ftest.
type LocalRunner struct {
	shell string
	log   logger.Logger
}

var _ LocalExecutor = (*LocalRunner)(nil)

// NewLocalRunner creates a runner using /bin/sh.
func NewLocalRunner(log logger.Logger) *LocalRunner {
	if log == nil {
		log = logger.Noop()
	}
	return &LocalRunner{shell: "/bin/sh", log: log}
}

// RunLocal runs command through the shell. With check, a non-zero exit
// becomes an EXEC error naming the command and its stderr.
func (l *LocalRunner) RunLocal(ctx context.Context, command string, check bool) (*LocalResult, error) {
	l.log.Debug("Running locally: %s", command)

	cmd := exec.CommandContext(ctx, l.shell, "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	result := &LocalResult{Command: command}
	runErr := cmd.Run()
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if runErr != nil {
		if ctx.Err() != nil {
			result.ExitCode = -1
			return result, errors.WrapWithCode(ctx.Err(), errors.ErrTimeout,
				fmt.Sprintf("Local command timed out: %s", command), "")
		}
		var exitErr *exec.ExitError
		if !stderrors.As(runErr, &exitErr) {
			result.ExitCode = -1
			return result, errors.WrapWithCode(runErr, errors.ErrExec,
				fmt.Sprintf("Couldn't run %q locally", command),
				"Make sure the command exists and is executable.")
		}
		result.ExitCode = exitErr.ExitCode()
	}

	if check && result.ExitCode != 0 {
		return result, HandleExecError(command, result.Stderr, result.ExitCode)
	}
	return result, nil
}

// Run satisfies Runner for the local machine. The command runs once and its
// result is reported for every host named, which is expected to be this
// machine's own name.
func (l *LocalRunner) Run(ctx context.Context, hosts nodeset.NodeSet, command string, opts ...RunOption) (*Result, error) {
	o := ApplyOptions(opts...)
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	res, err := l.RunLocal(ctx, command, false)
	timedOut := errors.IsCode(err, errors.ErrTimeout)
	if err != nil && !timedOut {
		res.Stderr += firstLine(err.Error())
	}

	names := hosts.Hosts()
	if len(names) == 0 {
		names = []string{LocalHostname()}
	}
	hostResults := make([]HostResult, 0, len(names))
	for _, host := range names {
		hostResults = append(hostResults, HostResult{
			Host:     host,
			ExitCode: res.ExitCode,
			Stdout:   SplitLines([]byte(res.Stdout)),
			Stderr:   SplitLines([]byte(res.Stderr)),
			TimedOut: timedOut,
		})
	}
	result := NewResult(command, hostResults, o.Stderr)
	result.Log(l.log, o.Verbose)
	return result, nil
}

// LocalHostname returns the short host name of this machine.
func LocalHostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "localhost"
	}
	short, _, _ := strings.Cut(name, ".")
	return short
}
