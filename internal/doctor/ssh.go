package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/ftest/internal/remote"
)

var keyNames = []string{"id_ed25519", "id_rsa", "id_ecdsa"}

func sshDir(home string) (string, error) {
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(home, ".ssh"), nil
}

// SSHKeyCheck verifies a public key exists for passwordless logins to the
// cluster.
type SSHKeyCheck struct {
	Home string // Empty uses the user's home directory
}

func (c *SSHKeyCheck) Name() string     { return "ssh_key" }
func (c *SSHKeyCheck) Category() string { return "SSH" }

func (c *SSHKeyCheck) Run(context.Context) CheckResult {
	dir, err := sshDir(c.Home)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Cannot determine home directory",
			Suggestion: "Check HOME environment variable",
		}
	}

	for _, key := range keyNames {
		if _, err := os.Stat(filepath.Join(dir, key+".pub")); err == nil {
			return CheckResult{
				Name:    c.Name(),
				Status:  StatusPass,
				Message: fmt.Sprintf("SSH key found: ~/.ssh/%s.pub", key),
			}
		}
	}

	return CheckResult{
		Name:       c.Name(),
		Status:     StatusFail,
		Message:    "No SSH key found",
		Suggestion: "Generate a key with: ssh-keygen -t ed25519",
	}
}

// SSHAgentCheck verifies the SSH agent is running and holds keys.
type SSHAgentCheck struct {
	Local remote.LocalExecutor
}

func (c *SSHAgentCheck) Name() string     { return "ssh_agent" }
func (c *SSHAgentCheck) Category() string { return "SSH" }

func (c *SSHAgentCheck) Run(ctx context.Context) CheckResult {
	if os.Getenv("SSH_AUTH_SOCK") == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent not running",
			Suggestion: "Fix: eval $(ssh-agent) && ssh-add",
		}
	}

	res, err := c.Local.RunLocal(ctx, "ssh-add -l", false)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Cannot query SSH agent",
			Suggestion: "Check SSH agent: ssh-add -l",
		}
	}
	switch res.ExitCode {
	case 0:
	case 1:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent running but no keys loaded",
			Suggestion: "Add a key with: ssh-add",
		}
	default:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "SSH agent socket not accessible",
			Suggestion: "Fix: eval $(ssh-agent) && ssh-add",
		}
	}

	keys := 0
	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.TrimSpace(line) != "" {
			keys++
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("SSH agent running with %d key%s loaded", keys, pluralize(keys)),
	}
}

// SSHKeyPermissionsCheck flags private keys readable by group or others.
type SSHKeyPermissionsCheck struct {
	Home string
}

func (c *SSHKeyPermissionsCheck) Name() string     { return "ssh_key_permissions" }
func (c *SSHKeyPermissionsCheck) Category() string { return "SSH" }

func (c *SSHKeyPermissionsCheck) Run(context.Context) CheckResult {
	dir, err := sshDir(c.Home)
	if err != nil {
		return CheckResult{Name: c.Name(), Status: StatusPass}
	}

	var badPerms []string
	found := false
	for _, key := range keyNames {
		info, err := os.Stat(filepath.Join(dir, key))
		if err != nil {
			continue
		}
		found = true
		if info.Mode().Perm()&0077 != 0 {
			badPerms = append(badPerms, key)
		}
	}

	switch {
	case !found:
		return CheckResult{
			Name:    c.Name(),
			Status:  StatusPass,
			Message: "No private keys to check",
		}
	case len(badPerms) > 0:
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Insecure permissions on: %s", strings.Join(badPerms, ", ")),
			Suggestion: "Fix: chmod 600 ~/.ssh/<keyfile>",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "SSH key permissions OK",
	}
}

// NewSSHChecks creates all SSH-related checks.
func NewSSHChecks(local remote.LocalExecutor) []Check {
	return []Check{
		&SSHKeyCheck{},
		&SSHAgentCheck{Local: local},
		&SSHKeyPermissionsCheck{},
	}
}
