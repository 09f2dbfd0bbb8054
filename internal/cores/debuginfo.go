package cores

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rileyhilliard/ftest/internal/errors"
)

// debuginfoPackages get -debuginfo packages that dnf debuginfo-install
// leaves out. "argobots" is renamed on SUSE.
var debuginfoPackages = []string{
	"systemd", "ndctl", "mercury", "hdf5", "argobots",
	"libfabric", "hdf5-vol-daos", "hdf5-vol-daos-mpich",
	"hdf5-vol-daos-mpich-tests", "hdf5-vol-daos-openmpi",
	"hdf5-vol-daos-openmpi-tests", "ior",
}

// debuginfoOverrides maps packages whose debuginfo package is not
// "<name>-debuginfo".
var debuginfoOverrides = map[string]string{"glibc": "glibc-debuginfo-common"}

// spdkIncludePath is a source-tree symlink that breaks RPM installs.
var spdkIncludePath = "/usr/share/spdk/include"

// Package is an RPM name with an optional version and release.
type Package struct {
	Name    string
	Version string
	Release string
	Epoch   string
}

// String renders name-version-release, or just the name when unversioned.
func (p Package) String() string {
	if p.Version == "" || p.Release == "" {
		return p.Name
	}
	return p.Name + "-" + p.Version + "-" + p.Release
}

// ResolveDebuginfo returns the debuginfo package matching the installed
// version of pkg, or nil when pkg is not installed.
func (p *Processor) ResolveDebuginfo(ctx context.Context, pkg string) (*Package, error) {
	cmd := fmt.Sprintf("rpm -q --qf '%%{name} %%{version} %%{release} %%{epoch}' %s", pkg)
	res, err := p.local.RunLocal(ctx, cmd, false)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(res.Stdout)
	if !res.Passed() || len(fields) != 4 {
		p.log.Debug("Package %s not installed, skipping debuginfo", pkg)
		return nil, nil
	}
	name := fields[0] + "-debuginfo"
	if alt, ok := debuginfoOverrides[fields[0]]; ok {
		name = alt
	}
	return &Package{Name: name, Version: fields[1], Release: fields[2], Epoch: fields[3]}, nil
}

func (p *Processor) isSUSE() bool { return p.distro.IsSUSE() }

// pythonDebuginfo names the python debuginfo package for this distro, or
// "" when none applies.
func (p *Processor) pythonDebuginfo(ctx context.Context) string {
	if !p.distro.IsEL() {
		return ""
	}
	name := strings.ToLower(p.distro.Name)
	if strings.Contains(name, "rocky") {
		// Rocky does not publish python debuginfo.
		return ""
	}
	res, err := p.local.RunLocal(ctx, "python3 --version", false)
	if err != nil || !res.Passed() {
		return ""
	}
	// "Python 3.9.16"
	fields := strings.Fields(res.Stdout + " " + res.Stderr)
	if len(fields) < 2 {
		return ""
	}
	parts := strings.SplitN(fields[1], ".", 3)
	if strings.Contains(name, "almalinux") && len(parts) >= 2 {
		return fmt.Sprintf("python%s.%s-debuginfo", parts[0], parts[1])
	}
	return fmt.Sprintf("python%s-debuginfo", parts[0])
}

// DebuginfoCommands builds the dnf commands that install everything gdb
// needs to symbolize a storage-system core.
func (p *Processor) DebuginfoCommands(ctx context.Context) ([]string, error) {
	install := []Package{{Name: "gdb"}}
	if py := p.pythonDebuginfo(ctx); py != "" {
		install = append(install, Package{Name: py})
	}

	for _, pkg := range debuginfoPackages {
		if pkg == "argobots" && p.isSUSE() {
			pkg = "libabt0"
		}
		debug, err := p.ResolveDebuginfo(ctx, pkg)
		if err != nil {
			return nil, err
		}
		if debug != nil && !containsPackage(install, *debug) {
			install = append(install, *debug)
		}
	}

	var cmds []string
	if fi, err := os.Lstat(spdkIncludePath); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		cmds = append(cmds, "sudo rm -f "+spdkIncludePath)
	}

	dnfArgs := []string{"--exclude", "ompi-debuginfo"}
	if p.TestRPMs {
		switch {
		case p.isSUSE():
			dnfArgs = append(dnfArgs, "libpmemobj1", "python3", "openmpi3")
		case p.distro.IsEL7():
			dnfArgs = append(dnfArgs, "--enablerepo=*-debuginfo", "--exclude", "nvml-debuginfo",
				"libpmemobj", "python36", "openmpi3", "gcc")
		case p.distro.IsEL() && p.distro.MajorVersion() >= 8:
			dnfArgs = append(dnfArgs, "libpmemobj", "python3", "openmpi", "gcc")
		default:
			return nil, errors.Newf(errors.ErrCore, "Unsupported distro: %s", p.distro)
		}
		cmds = append(cmds, "sudo dnf -y install "+strings.Join(dnfArgs, " "))
	}

	res, err := p.local.RunLocal(ctx, "rpm -q --qf '%{evr}' daos", false)
	if err != nil {
		return nil, err
	}
	evr := strings.TrimSpace(res.Stdout)
	cmds = append(cmds, "sudo dnf debuginfo-install -y "+strings.Join(dnfArgs, " ")+
		" daos-"+evr+" daos-*-"+evr)

	last := []string{"sudo", "dnf", "-y"}
	if p.distro.IsEL() || p.isSUSE() {
		last = append(last, "--enablerepo=*debug*")
	}
	last = append(last, "install")
	for _, pkg := range install {
		last = append(last, pkg.String())
	}
	cmds = append(cmds, strings.Join(last, " "))
	return cmds, nil
}

func containsPackage(list []Package, pkg Package) bool {
	for _, p := range list {
		if p == pkg {
			return true
		}
	}
	return false
}

// InstallDebuginfo runs DebuginfoCommands in order. When one fails the
// whole list runs again behind "dnf clean all" and "dnf makecache", and
// failures on that pass are only logged so stacktraces are still attempted.
func (p *Processor) InstallDebuginfo(ctx context.Context) error {
	p.log.Info("Installing debuginfo packages for stacktrace creation")
	cmds, err := p.DebuginfoCommands(ctx)
	if err != nil {
		return err
	}

	failed := false
	for _, cmd := range cmds {
		if _, err := p.local.RunLocal(ctx, cmd, true); err != nil {
			p.log.Debug("Debuginfo install failed: %v", err)
			failed = true
			break
		}
	}
	if !failed {
		return nil
	}

	p.log.Debug("Going to refresh caches and try again")
	prefix := "sudo dnf"
	if p.distro.IsEL() || p.isSUSE() {
		prefix += " --enablerepo=*debug*"
	}
	for _, cmd := range append([]string{prefix + " clean all", prefix + " makecache"}, cmds...) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.local.RunLocal(ctx, cmd, true); err != nil {
			p.log.Warn("Debuginfo install still failing, continuing without it: %v", err)
		}
	}
	return nil
}
