// Package lock keeps two harness runs from reinstalling or restarting the
// same cluster at once. The lock is a directory created with mkdir on the
// first server.
package lock

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/poll"
	"github.com/rileyhilliard/ftest/internal/remote"
	"github.com/rileyhilliard/ftest/internal/util"
)

// DefaultPollInterval is the wait between attempts on a held lock.
const DefaultPollInterval = 2 * time.Second

// Locker acquires locks on one host.
type Locker struct {
	runner remote.Runner
	host   nodeset.NodeSet
	cfg    config.LockConfig
	log    logger.Logger

	PollInterval time.Duration
}

// NewLocker creates a Locker using the first host of hosts.
func NewLocker(runner remote.Runner, hosts nodeset.NodeSet, cfg config.LockConfig, log logger.Logger) *Locker {
	if log == nil {
		log = logger.Noop()
	}
	if cfg.Dir == "" {
		cfg.Dir = "/tmp"
	}
	return &Locker{runner: runner, host: hosts.Slice(0, 1), cfg: cfg, log: log, PollInterval: DefaultPollInterval}
}

// Lock represents an acquired lock.
type Lock struct {
	Dir  string    // The lock directory path on the host
	Info *LockInfo // Info about the lock holder (us)

	locker *Locker
}

// Dir returns the lock directory for name.
func (l *Locker) Dir(name string) string {
	return path.Join(l.cfg.Dir, fmt.Sprintf("ftest-%s.lock", name))
}

func infoFile(dir string) string { return path.Join(dir, "info.json") }

// Acquire takes the lock called name, waiting up to the configured timeout
// while another run holds it. Stale locks are removed.
func (l *Locker) Acquire(ctx context.Context, name, command string) (*Lock, error) {
	if l.host.IsEmpty() {
		return nil, errors.New(errors.ErrLock,
			"Cannot acquire lock: no host",
			"Set hosts.servers in .ftest.yaml")
	}
	dir := l.Dir(name)
	info := NewLockInfo(command)

	var acquired bool
	err := poll.Until(ctx, "lock "+dir, l.PollInterval, l.cfg.Timeout, func(ctx context.Context) (bool, error) {
		ok, err := l.tryOnce(ctx, dir, info)
		acquired = ok
		return ok, err
	})
	if err != nil && !acquired {
		if errors.IsCode(err, errors.ErrTimeout) {
			holder := l.Holder(ctx, name)
			return nil, errors.New(errors.ErrLock,
				fmt.Sprintf("Timed out waiting for lock on %s after %s", l.host, l.cfg.Timeout),
				fmt.Sprintf("Lock held by: %s. Wait for it to release or run 'ftest unlock'.", holder))
		}
		return nil, err
	}
	l.log.Info("Acquired lock %s on %s", dir, l.host)
	return &Lock{Dir: dir, Info: info, locker: l}, nil
}

// TryAcquire makes a single attempt and returns ErrLocked when the lock is
// held.
func (l *Locker) TryAcquire(ctx context.Context, name, command string) (*Lock, error) {
	dir := l.Dir(name)
	info := NewLockInfo(command)
	ok, err := l.tryOnce(ctx, dir, info)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{Dir: dir, Info: info, locker: l}, nil
}

func (l *Locker) tryOnce(ctx context.Context, dir string, info *LockInfo) (bool, error) {
	if held, err := l.read(ctx, dir); err == nil && held != nil && l.cfg.Stale > 0 && held.Age() > l.cfg.Stale {
		l.log.Warn("Removing stale lock %s held by %s", dir, held)
		if err := l.remove(ctx, dir); err != nil {
			return false, err
		}
	}

	result, err := l.runner.Run(ctx, l.host, fmt.Sprintf("mkdir %s 2>/dev/null", util.ShellQuote(dir)))
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrLock,
			"Failed to execute lock command",
			"Check SSH connection")
	}
	if !result.Passed() {
		return false, nil
	}

	data, err := info.Marshal()
	if err != nil {
		_ = l.remove(ctx, dir)
		return false, errors.WrapWithCode(err, errors.ErrLock, "Failed to serialize lock info", "")
	}
	write := fmt.Sprintf("cat > %s << 'LOCKINFO'\n%s\nLOCKINFO", util.ShellQuote(infoFile(dir)), data)
	result, err = l.runner.Run(ctx, l.host, write)
	if err != nil || !result.Passed() {
		_ = l.remove(ctx, dir)
		return false, errors.New(errors.ErrLock,
			"Failed to write lock info file",
			"Check disk space and permissions on "+l.host.String())
	}
	return true, nil
}

// Release removes the lock unless another run has taken it over since.
func (lk *Lock) Release(ctx context.Context) error {
	if lk == nil || lk.locker == nil {
		return nil
	}
	held, err := lk.locker.read(ctx, lk.Dir)
	if err == nil && held != nil && held.ID != lk.Info.ID {
		lk.locker.log.Warn("Lock %s is now held by %s, leaving it", lk.Dir, held)
		return nil
	}
	return lk.locker.remove(ctx, lk.Dir)
}

// ForceRelease removes the lock called name, regardless of who holds it.
func (l *Locker) ForceRelease(ctx context.Context, name string) error {
	return l.remove(ctx, l.Dir(name))
}

// Holder describes who holds the lock called name.
func (l *Locker) Holder(ctx context.Context, name string) string {
	dir := l.Dir(name)
	info, err := l.read(ctx, dir)
	switch {
	case err != nil:
		return "unknown"
	case info == nil:
		return "nobody"
	}
	return info.String()
}

// read returns the lock info in dir, or nil when there is none.
func (l *Locker) read(ctx context.Context, dir string) (*LockInfo, error) {
	result, err := l.runner.Run(ctx, l.host, fmt.Sprintf("cat %s 2>/dev/null", util.ShellQuote(infoFile(dir))))
	if err != nil {
		return nil, err
	}
	out := strings.TrimSpace(result.JoinedStdout())
	if !result.Passed() || out == "" {
		return nil, nil
	}
	return ParseLockInfo([]byte(out))
}

func (l *Locker) remove(ctx context.Context, dir string) error {
	result, err := l.runner.Run(ctx, l.host, "rm -rf "+util.ShellQuote(dir), remote.WithStderr(true))
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrLock,
			fmt.Sprintf("Failed to remove lock directory: %s", dir),
			"Check SSH connection")
	}
	if !result.Passed() {
		return errors.New(errors.ErrLock,
			fmt.Sprintf("Failed to remove lock directory: %s", dir),
			fmt.Sprintf("Error: %s", result.JoinedStdout()))
	}
	return nil
}
