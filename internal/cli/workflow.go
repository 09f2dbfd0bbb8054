package cli

import (
	"time"

	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/remote"
	"github.com/rileyhilliard/ftest/pkg/sshutil"
)

// Session holds what most commands share: the loaded config, the remote
// runner and the local executor. Close releases the SSH connections.
type Session struct {
	Config *config.Config
	Runner remote.Runner
	Local  remote.LocalExecutor
	Log    logger.Logger

	closeRunner func()
}

// newRunner builds the remote runner for cfg. Tests replace it.
var newRunner = func(cfg *config.Config, log logger.Logger) (remote.Runner, func()) {
	sshutil.StrictHostKeyChecking = cfg.SSH.StrictHostKeyChecking
	dial := sshutil.DialClient
	if user := cfg.SSH.User; user != "" {
		dial = func(host string, timeout time.Duration) (sshutil.SSHClient, error) {
			return sshutil.DialClient(user+"@"+host, timeout)
		}
	}
	pool := remote.NewPoolWithDialer(cfg.SSH.Timeout, dial)
	return remote.NewSSHRunner(pool, cfg.SSH.MaxParallel, cfg.CommandTimeout, log), func() {
		pool.Close()
		sshutil.CloseAgent()
	}
}

// newLocal builds the executor for commands run on this machine. Tests
// replace it.
var newLocal = func(log logger.Logger) remote.LocalExecutor {
	return remote.NewLocalRunner(log)
}

// openSession loads and validates the config and connects nothing yet:
// SSH connections are dialed on first use.
func openSession(opts ...config.ValidationOption) (*Session, error) {
	cfg, err := config.LoadOrDefault(Config())
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg, opts...); err != nil {
		return nil, err
	}
	if verbose {
		cfg.Output.Verbosity = "verbose"
	}
	log := logger.Default()
	runner, closeRunner := newRunner(cfg, log)
	return &Session{
		Config:      cfg,
		Runner:      runner,
		Local:       newLocal(log),
		Log:         log,
		closeRunner: closeRunner,
	}, nil
}

// Close releases session resources.
func (s *Session) Close() {
	if s.closeRunner != nil {
		s.closeRunner()
	}
}
