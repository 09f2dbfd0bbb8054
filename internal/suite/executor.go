package suite

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/lock"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/remote"
	"github.com/rileyhilliard/ftest/internal/ui"
)

// ClusterLock is the lock name every test takes on the first server.
const ClusterLock = "cluster"

// SkipError marks a test that could not run on this cluster.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skipped: " + e.Reason }

// Skipf returns a SkipError.
func Skipf(format string, args ...interface{}) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// Executor runs cases one after another.
type Executor struct {
	// ConfigPath is the --config flag; empty searches for .ftest.yaml.
	ConfigPath string
	// LoadConfig replaces config.LoadOrDefault, for tests.
	LoadConfig func(path string, params ...[]byte) (*config.Config, error)
	Runner     remote.Runner
	Out        io.Writer
	Log        logger.Logger
	Version    string
	// NoLock skips the cluster lock.
	NoLock bool
	// LockPoll overrides the wait between attempts on a held lock.
	LockPoll time.Duration
}

// Run executes cases in order and returns one outcome per case.
func (x *Executor) Run(ctx context.Context, cases []Case) []ui.TestOutcome {
	out := make([]ui.TestOutcome, 0, len(cases))
	for _, c := range cases {
		if ctx.Err() != nil {
			out = append(out, ui.TestOutcome{Name: c.ID(), Outcome: ui.OutcomeSkip, Message: ctx.Err().Error()})
			continue
		}
		out = append(out, x.runCase(ctx, c))
	}
	return out
}

func (x *Executor) log() logger.Logger {
	if x.Log == nil {
		return logger.Noop()
	}
	return x.Log
}

func (x *Executor) output() io.Writer {
	if x.Out == nil {
		return io.Discard
	}
	return x.Out
}

func (x *Executor) runCase(ctx context.Context, c Case) ui.TestOutcome {
	start := time.Now()
	outcome := ui.TestOutcome{Name: c.ID()}
	finish := func(err error, step string) ui.TestOutcome {
		outcome.Duration = time.Since(start)
		outcome.Outcome, outcome.Message = classify(err)
		outcome.Step = step
		if err != nil {
			x.log().Error("%s %s: %v", c.ID(), outcome.Outcome, err)
		}
		fmt.Fprintln(x.output())
		return outcome
	}

	env, err := x.prepare(c)
	if err != nil {
		return finish(err, "")
	}

	fmt.Fprint(x.output(), ui.RenderHeader(ui.HeaderInfo{
		Version: x.Version,
		Test:    c.ID(),
		Cluster: fmt.Sprintf("servers %s, clients %s", env.Servers, env.Clients),
	}))

	if env.Config.Lock.Enabled && !x.NoLock {
		locker := lock.NewLocker(x.Runner, env.Servers, env.Config.Lock, x.log())
		if x.LockPoll > 0 {
			locker.PollInterval = x.LockPoll
		}
		held, err := locker.Acquire(ctx, ClusterLock, "ftest test "+c.ID())
		if err != nil {
			return finish(err, "")
		}
		defer func() {
			if err := held.Release(context.WithoutCancel(ctx)); err != nil {
				x.log().Warn("Failed to release cluster lock: %v", err)
			}
		}()
	}

	err = c.Test.Run(ctx, env)
	env.Steps.Done(err)
	return finish(err, env.Steps.Failed())
}

// prepare loads the config with the suite's parameters and validates it
// for the suite.
func (x *Executor) prepare(c Case) (*Env, error) {
	load := x.LoadConfig
	if load == nil {
		load = config.LoadOrDefault
	}
	cfg, err := load(x.ConfigPath, c.Suite.Params())
	if err != nil {
		return nil, err
	}
	opts := []config.ValidationOption{config.RequireHosts()}
	if r, ok := c.Suite.(Requirer); ok {
		opts = append(opts, r.Requires()...)
	}
	if err := config.Validate(cfg, opts...); err != nil {
		return nil, err
	}
	return NewEnv(cfg, x.Runner, x.output(), x.log())
}

// classify maps an error to an outcome: VERIFY errors are test failures,
// SkipErrors are skips, anything else broke the test itself.
func classify(err error) (string, string) {
	var skip *SkipError
	switch {
	case err == nil:
		return ui.OutcomePass, ""
	case stderrors.As(err, &skip):
		return ui.OutcomeSkip, skip.Reason
	case errors.IsCode(err, errors.ErrVerify):
		return ui.OutcomeFail, message(err)
	default:
		return ui.OutcomeError, message(err)
	}
}

// message is the headline of err without its cause and hint.
func message(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Failed reports whether any outcome is a failure or an error.
func Failed(outcomes []ui.TestOutcome) bool {
	for _, o := range outcomes {
		if o.Outcome == ui.OutcomeFail || o.Outcome == ui.OutcomeError {
			return true
		}
	}
	return false
}
