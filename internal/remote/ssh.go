package remote

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
)

// DefaultMaxParallel bounds concurrent SSH sessions when none is configured.
const DefaultMaxParallel = 32

// SSHRunner runs commands over pooled SSH connections.
type SSHRunner struct {
	pool        *Pool
	maxParallel int
	timeout     time.Duration
	log         logger.Logger
}

// NewSSHRunner creates a runner. timeout is the per-host default when a call
// passes no WithTimeout; zero means no limit.
func NewSSHRunner(pool *Pool, maxParallel int, timeout time.Duration, log logger.Logger) *SSHRunner {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	if log == nil {
		log = logger.Noop()
	}
	return &SSHRunner{pool: pool, maxParallel: maxParallel, timeout: timeout, log: log}
}

// Run executes command on every host concurrently and groups the results.
func (r *SSHRunner) Run(ctx context.Context, hosts nodeset.NodeSet, command string, opts ...RunOption) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrRemote, "Command cancelled before it ran", "")
	}
	o := ApplyOptions(opts...)
	if o.Timeout == 0 {
		o.Timeout = r.timeout
	}

	names := hosts.Hosts()
	r.log.Debug("Running on %s: %s", hosts, command)

	results := make([]HostResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxParallel)
	for i, host := range names {
		g.Go(func() error {
			results[i] = r.runOne(gctx, host, command, o.Timeout)
			return nil
		})
	}
	_ = g.Wait()

	result := NewResult(command, results, o.Stderr)
	result.Log(r.log, o.Verbose)
	return result, nil
}

func (r *SSHRunner) runOne(ctx context.Context, host, command string, timeout time.Duration) HostResult {
	hr := HostResult{Host: host}

	client, err := r.pool.Get(host)
	if err != nil {
		hr.ExitCode = -1
		hr.Stderr = []string{firstLine(err.Error())}
		return hr
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	stdout, stderr, code, err := client.ExecContext(ctx, command)
	hr.ExitCode = code
	hr.Stdout = SplitLines(stdout)
	hr.Stderr = SplitLines(stderr)
	if err != nil {
		if errors.IsCode(err, errors.ErrTimeout) {
			hr.TimedOut = true
		} else {
			hr.Stderr = append(hr.Stderr, firstLine(err.Error()))
		}
		// The session was killed or the transport broke; start fresh next time.
		r.pool.Drop(host)
	}
	return hr
}

// firstLine returns the first non-empty line of a rendered error, without
// the leading failure symbol.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "✗"))
		if line != "" {
			return line
		}
	}
	return s
}
