package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/ftest/internal/errors"
)

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))

	err := Validate(DefaultConfig(), RequireHosts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hosts.servers is empty")

	err = Validate(DefaultConfig(), RequireInterop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interop.old_version is empty")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"future version", func(c *Config) { c.Version = 99 }, "from the future"},
		{"bad node set", func(c *Config) { c.Hosts.Servers = "wolf-[1-" }, "hosts.servers 'wolf-[1-' isn't a valid node set"},
		{"negative parallel", func(c *Config) { c.SSH.MaxParallel = -1 }, "ssh.max_parallel"},
		{"bad version", func(c *Config) { c.Interop.NewVersion = "latest" }, "interop.new_version 'latest'"},
		{"negative attrs", func(c *Config) { c.Interop.AttrCount = -2 }, "interop.attr_count"},
		{"pool without size", func(c *Config) {
			c.Pool.Namespaces = map[string]PoolNamespace{"0": {Ranks: []int{0}}}
		}, "pool.namespaces.0 needs a size"},
		{"bad ior api", func(c *Config) { c.Ior.API = "MPIIO" }, "ior.api 'MPIIO'"},
		{"bad color", func(c *Config) { c.Output.Color = "rainbow" }, "output.color"},
		{"lock timeout past stale", func(c *Config) {
			c.Lock.Timeout = time.Hour
			c.Lock.Stale = time.Minute
		}, "lock.timeout"},
		{"valid cluster", func(c *Config) {}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Hosts = HostsConfig{Servers: "wolf-[1-3]", Clients: "wolf-[4-5]"}
			cfg.Interop.OldVersion = "2.2.0-4.el8"
			cfg.Interop.NewVersion = "2.4.0-1.el8"
			tt.mutate(cfg)
			err := Validate(cfg, RequireHosts(), RequireInterop())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
