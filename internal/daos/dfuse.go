package daos

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
	"github.com/rileyhilliard/ftest/internal/util"
)

// Dfuse mounts a container on client hosts.
type Dfuse struct {
	runner   remote.Runner
	log      logger.Logger
	MountDir string
}

// NewDfuse returns a Dfuse for mountDir.
func NewDfuse(runner remote.Runner, mountDir string, log logger.Logger) *Dfuse {
	if log == nil {
		log = logger.Noop()
	}
	return &Dfuse{runner: runner, log: log, MountDir: mountDir}
}

// MountCommand returns the dfuse command line.
func (d *Dfuse) MountCommand(pool, container string) string {
	return fmt.Sprintf("dfuse --mountpoint %s --pool %s --container %s",
		util.ShellQuote(d.MountDir), pool, container)
}

// Mount creates the mount directory and mounts the container on hosts.
func (d *Dfuse) Mount(ctx context.Context, hosts nodeset.NodeSet, pool, container string) error {
	if err := d.exec(ctx, hosts, "mkdir -p "+util.ShellQuote(d.MountDir), "Failed to create dfuse mount directory"); err != nil {
		return err
	}
	d.log.Info("Mounting dfuse at %s on %s", d.MountDir, hosts)
	return d.exec(ctx, hosts, d.MountCommand(pool, container), "Failed to mount dfuse")
}

// Unmount unmounts the container from hosts.
func (d *Dfuse) Unmount(ctx context.Context, hosts nodeset.NodeSet) error {
	d.log.Info("Unmounting dfuse at %s on %s", d.MountDir, hosts)
	return d.exec(ctx, hosts, "fusermount3 -u "+util.ShellQuote(d.MountDir), "Failed to unmount dfuse")
}

func (d *Dfuse) exec(ctx context.Context, hosts nodeset.NodeSet, command, failure string) error {
	result, err := d.runner.Run(ctx, hosts, command, remote.WithStderr(true))
	if err != nil {
		return err
	}
	if !result.Passed() {
		return errors.New(errors.ErrRemote,
			fmt.Sprintf("%s on %s", failure, result.FailedHosts()),
			"Check that the fuse module is loaded and the agent is running")
	}
	return nil
}
