// Package pkgmgr installs and queries RPM packages on cluster hosts through
// dnf and rpm.
package pkgmgr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
	"github.com/rileyhilliard/ftest/internal/util"
)

// InstallTimeout bounds a single dnf transaction.
const InstallTimeout = 10 * time.Minute

// InstallPackages runs "dnf install -y <packages>" on hosts as user.
func InstallPackages(ctx context.Context, r remote.Runner, hosts nodeset.NodeSet, packages []string, user string) (*remote.Result, error) {
	cmd := CommandAsUserJoin("dnf install -y", packages, user)
	return r.Run(ctx, hosts, cmd, remote.WithTimeout(InstallTimeout), remote.WithStderr(true), remote.WithVerbose(true))
}

// RemovePackages runs "dnf remove -y <packages>" on hosts as user.
func RemovePackages(ctx context.Context, r remote.Runner, hosts nodeset.NodeSet, packages []string, user string) (*remote.Result, error) {
	cmd := CommandAsUserJoin("dnf remove -y", packages, user)
	return r.Run(ctx, hosts, cmd, remote.WithTimeout(InstallTimeout), remote.WithStderr(true), remote.WithVerbose(true))
}

// ListInstalled lists installed packages whose name matches pattern.
func ListInstalled(ctx context.Context, r remote.Runner, hosts nodeset.NodeSet, pattern string) (*remote.Result, error) {
	cmd := fmt.Sprintf("rpm -qa | grep %s | sort", util.ShellQuote(pattern))
	return r.Run(ctx, hosts, cmd, remote.WithVerbose(true))
}

// VerifyAvailable checks that every package is offered by a configured repo.
func VerifyAvailable(ctx context.Context, r remote.Runner, hosts nodeset.NodeSet, packages []string) (*remote.Result, error) {
	return r.Run(ctx, hosts, CommandAsUserJoin("dnf list", packages, "root"), remote.WithVerbose(true))
}

// VerifyInstalled checks that every package is installed.
func VerifyInstalled(ctx context.Context, r remote.Runner, hosts nodeset.NodeSet, packages []string) (*remote.Result, error) {
	return r.Run(ctx, hosts, CommandAsUserJoin("dnf list installed", packages, "root"), remote.WithVerbose(true))
}

// QueryFormat runs "rpm -q --qf <format> <pkg>" locally and returns stdout.
// The second return is false when the package is not installed.
func QueryFormat(ctx context.Context, local remote.LocalExecutor, format, pkg string) (string, bool, error) {
	cmd := fmt.Sprintf("rpm -q --qf %s %s", util.ShellQuote(format), util.ShellQuote(pkg))
	res, err := local.RunLocal(ctx, cmd, false)
	if err != nil {
		return "", false, err
	}
	if !res.Passed() || strings.Contains(res.Stdout, "is not installed") {
		return "", false, nil
	}
	return strings.TrimSpace(res.Stdout), true, nil
}

// VersionedPackages returns "name-version" for every name.
func VersionedPackages(names []string, version string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n+"-"+version)
	}
	return out
}

// CommandAsUserJoin appends the packages to base and wraps the result with
// remote.CommandAsUser.
func CommandAsUserJoin(base string, packages []string, user string) string {
	cmd := base
	if len(packages) > 0 {
		cmd += " " + strings.Join(packages, " ")
	}
	return remote.CommandAsUser(cmd, user)
}
