package interop

import (
	"context"
	"fmt"
	"path"

	"github.com/rileyhilliard/ftest/internal/daos"
	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/nodeset"
)

// VerifyWriteRead writes and/or reads c with IOR from clients. POSIX and
// HDF5 go through a dfuse mount, and POSIX also checks a copy read back
// through a symlink.
func (h *Harness) VerifyWriteRead(ctx context.Context, clients nodeset.NodeSet, c *daos.Container, write, read bool) (err error) {
	params := h.Opts.Ior
	params.Pool = c.Pool
	params.Container = c.Label
	api := params.API

	switch api {
	case daos.APIDFS, daos.APIPOSIX, daos.APIHDF5:
	default:
		return errors.New(errors.ErrConfig, fmt.Sprintf("##(3)Unsupported IOR api %s", api),
			"Set ior.api to DFS, POSIX or HDF5")
	}

	mountDir := h.Opts.DfuseMountDir
	testfile := path.Join(mountDir, "testfile")
	testfileSav := path.Join(mountDir, "testfile_sav")
	testfileSav2 := path.Join(mountDir, "testfile_sav2")
	symlink := path.Join(mountDir, "symlink_testfile")

	if api == daos.APIPOSIX || api == daos.APIHDF5 {
		h.Dfuse.MountDir = mountDir
		if err := h.Dfuse.Mount(ctx, clients, c.Pool, c.Label); err != nil {
			return err
		}
		params.TestFile = testfile
		defer func() {
			if uerr := h.Dfuse.Unmount(ctx, clients); uerr != nil && err == nil {
				err = uerr
			}
		}()
	}

	if write {
		h.Log.Info("Running IOR write - %s", api)
		params.Flags = h.Opts.WriteFlags
		if _, err := h.Ior.Run(ctx, clients, params); err != nil {
			return err
		}
	}
	if read {
		h.Log.Info("Running IOR read - %s", api)
		params.Flags = h.Opts.ReadFlags
		if _, err := h.Ior.Run(ctx, clients, params); err != nil {
			return err
		}
	}

	if api != daos.APIPOSIX {
		return nil
	}
	if write {
		h.Log.Info("Verifying dfuse symlink create")
		cmds := []string{
			fmt.Sprintf("cd '%s'", mountDir),
			fmt.Sprintf("ls -l '%s'", testfile),
			fmt.Sprintf("cp '%s' '%s'", testfile, testfileSav),
			fmt.Sprintf("cp '%s' '%s'", testfile, testfileSav2),
			fmt.Sprintf("ln -vs '%s' '%s'", testfileSav2, symlink),
		}
		for _, cmd := range cmds {
			if _, err := h.run(ctx, h.FirstClient(), cmd, "Failed to setup dfuse symlinks"); err != nil {
				return err
			}
		}
	}
	if read {
		h.Log.Info("Verifying dfuse symlink read")
		cmds := []string{
			fmt.Sprintf(`diff "%s" "%s"`, testfile, testfileSav),
			fmt.Sprintf(`diff "%s" "%s"`, symlink, testfileSav2),
			fmt.Sprintf(`ls -l "%s"`, symlink),
		}
		for _, cmd := range cmds {
			if _, err := h.run(ctx, h.FirstClient(), cmd, "Failed to verify dfuse symlinks"); err != nil {
				return err
			}
		}
	}
	return nil
}
