package config

import (
	"fmt"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/version"
)

// ValidationOption controls validation behavior.
type ValidationOption func(*validationContext)

type validationContext struct {
	requireHosts   bool
	requireInterop bool
}

// RequireHosts fails validation unless servers and clients are set.
func RequireHosts() ValidationOption {
	return func(c *validationContext) { c.requireHosts = true }
}

// RequireInterop fails validation unless both interop versions are set.
func RequireInterop() ValidationOption {
	return func(c *validationContext) { c.requireInterop = true }
}

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config, opts ...ValidationOption) error {
	ctx := &validationContext{}
	for _, opt := range opts {
		opt(ctx)
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but ftest only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Update ftest to a newer build")
	}

	checks := []struct {
		section string
		check   func() error
	}{
		{"hosts", func() error { return validateHosts(cfg.Hosts, ctx.requireHosts) }},
		{"ssh", func() error { return validateSSH(cfg.SSH) }},
		{"interop", func() error { return validateInterop(cfg.Interop, ctx.requireInterop) }},
		{"pool", func() error { return validatePool(cfg.Pool) }},
		{"ior", func() error { return validateIor(cfg.Ior) }},
		{"output", func() error { return validateOutput(cfg.Output) }},
		{"lock", func() error { return validateLock(cfg.Lock) }},
	}
	for _, c := range checks {
		if err := c.check(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
				fmt.Sprintf("Check the '%s' section in your .ftest.yaml.", c.section))
		}
	}
	return nil
}

func validateHosts(h HostsConfig, required bool) error {
	for _, item := range []struct{ name, value string }{{"servers", h.Servers}, {"clients", h.Clients}} {
		if item.value == "" {
			if required {
				return fmt.Errorf("hosts.%s is empty - list the %s like 'wolf-[1-3]'", item.name, item.name)
			}
			continue
		}
		if _, err := nodeset.Parse(item.value); err != nil {
			return fmt.Errorf("hosts.%s '%s' isn't a valid node set", item.name, item.value)
		}
	}
	return nil
}

func validateSSH(s SSHConfig) error {
	if s.Timeout < 0 {
		return fmt.Errorf("ssh.timeout can't be negative")
	}
	if s.MaxParallel < 0 {
		return fmt.Errorf("ssh.max_parallel can't be negative (use 0 for no limit)")
	}
	return nil
}

func validateInterop(i InteropConfig, required bool) error {
	for _, item := range []struct{ name, value string }{{"old_version", i.OldVersion}, {"new_version", i.NewVersion}} {
		if item.value == "" {
			if required {
				return fmt.Errorf("interop.%s is empty - set it to a package version like 2.4.0-1.el8", item.name)
			}
			continue
		}
		if _, err := version.Parse(item.value); err != nil {
			return fmt.Errorf("interop.%s '%s' isn't a package version", item.name, item.value)
		}
	}
	if i.AttrCount < 0 {
		return fmt.Errorf("interop.attr_count can't be negative")
	}
	if i.PoolUpgradeTimeout < 0 || i.UpgradePollInterval < 0 || i.JoinTimeout < 0 {
		return fmt.Errorf("interop timeouts can't be negative")
	}
	return nil
}

func validatePool(p PoolConfig) error {
	for name, ns := range p.Namespaces {
		if ns.Size == "" {
			return fmt.Errorf("pool.namespaces.%s needs a size", name)
		}
		for _, r := range ns.Ranks {
			if r < 0 {
				return fmt.Errorf("pool.namespaces.%s has a negative rank %d", name, r)
			}
		}
	}
	return nil
}

func validateIor(i IorConfig) error {
	switch i.API {
	case "", "DFS", "POSIX", "HDF5":
	default:
		return fmt.Errorf("ior.api '%s' isn't supported - use DFS, POSIX or HDF5", i.API)
	}
	if i.Processes < 0 || i.PPN < 0 {
		return fmt.Errorf("ior.processes and ior.ppn can't be negative")
	}
	return nil
}

// validateOutput checks output configuration.
func validateOutput(out OutputConfig) error {
	validColors := map[string]bool{"auto": true, "always": true, "never": true, "": true}
	if !validColors[out.Color] {
		return fmt.Errorf("output.color '%s' isn't valid - use 'auto', 'always', or 'never'", out.Color)
	}
	validVerbosity := map[string]bool{"quiet": true, "normal": true, "verbose": true, "": true}
	if !validVerbosity[out.Verbosity] {
		return fmt.Errorf("output.verbosity '%s' isn't valid - use 'quiet', 'normal', or 'verbose'", out.Verbosity)
	}
	return nil
}

// validateLock checks lock configuration.
func validateLock(lock LockConfig) error {
	if lock.Timeout < 0 {
		return fmt.Errorf("lock.timeout can't be negative - that doesn't make sense")
	}
	if lock.Stale < 0 {
		return fmt.Errorf("lock.stale can't be negative - that doesn't make sense")
	}
	if lock.Enabled && lock.Timeout > 0 && lock.Stale > 0 && lock.Timeout > lock.Stale {
		return fmt.Errorf("lock.timeout (%v) is longer than lock.stale (%v) - you'd timeout before the lock expires", lock.Timeout, lock.Stale)
	}
	return nil
}
