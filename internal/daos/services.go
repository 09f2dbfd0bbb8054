package daos

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/poll"
	"github.com/rileyhilliard/ftest/internal/remote"
)

// Service units.
const (
	ServerService = "daos_server"
	AgentService  = "daos_agent"
)

// JoinedState is the member state of a running engine.
const JoinedState = "joined"

// Services manages the server and agent systemd units.
type Services struct {
	runner remote.Runner
	log    logger.Logger
	// PollInterval is how often WaitJoined queries the system.
	PollInterval time.Duration
}

// NewServices returns a service manager.
func NewServices(runner remote.Runner, log logger.Logger) *Services {
	if log == nil {
		log = logger.Noop()
	}
	return &Services{runner: runner, log: log, PollInterval: 3 * time.Second}
}

func (s *Services) systemctl(ctx context.Context, action, unit string, hosts nodeset.NodeSet) error {
	if hosts.IsEmpty() {
		return nil
	}
	command := remote.CommandAsUser(fmt.Sprintf("systemctl %s %s", action, unit), "root")
	s.log.Info("Running systemctl %s %s on %s", action, unit, hosts)
	result, err := s.runner.Run(ctx, hosts, command, remote.WithStderr(true))
	if err != nil {
		return err
	}
	if !result.Passed() {
		return errors.New(errors.ErrRemote,
			fmt.Sprintf("Failed to %s %s on %s", action, unit, result.FailedHosts()),
			fmt.Sprintf("Check 'journalctl -u %s' on the failed hosts", unit))
	}
	return nil
}

// StartServers starts daos_server on hosts.
func (s *Services) StartServers(ctx context.Context, hosts nodeset.NodeSet) error {
	return s.systemctl(ctx, "start", ServerService, hosts)
}

// StopServers stops daos_server on hosts.
func (s *Services) StopServers(ctx context.Context, hosts nodeset.NodeSet) error {
	return s.systemctl(ctx, "stop", ServerService, hosts)
}

// StartAgents starts daos_agent on hosts.
func (s *Services) StartAgents(ctx context.Context, hosts nodeset.NodeSet) error {
	return s.systemctl(ctx, "start", AgentService, hosts)
}

// StopAgents stops daos_agent on hosts.
func (s *Services) StopAgents(ctx context.Context, hosts nodeset.NodeSet) error {
	return s.systemctl(ctx, "stop", AgentService, hosts)
}

// WaitJoined polls the system until it reports at least count members and
// every one of them is joined.
func (s *Services) WaitJoined(ctx context.Context, dmg *Dmg, count int, timeout time.Duration) error {
	what := fmt.Sprintf("%d joined ranks", count)
	return poll.Until(ctx, what, s.PollInterval, timeout, func(ctx context.Context) (bool, error) {
		members, err := dmg.SystemQuery(ctx)
		if err != nil {
			s.log.Debug("System query failed while waiting: %v", err)
			return false, nil
		}
		joined := 0
		for _, m := range members {
			if m.State == JoinedState {
				joined++
			}
		}
		s.log.Debug("%d/%d ranks joined", joined, count)
		return len(members) >= count && joined == len(members), nil
	})
}
