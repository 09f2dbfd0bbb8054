package suite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/ftest/internal/config"
	rtesting "github.com/rileyhilliard/ftest/internal/remote/testing"
	"github.com/rileyhilliard/ftest/internal/space"
)

const envYAML = `
hosts:
  servers: wolf-[1-3]
  clients: wolf-[4-5]
command_timeout: 3m
output:
  verbosity: verbose
dmg:
  path: /usr/bin/dmg
  run_host: wolf-9
interop:
  old_version: 2.2.0-4.el8
  new_version: 2.4.0-1.el8
  attr_count: 5
  stop_settle: 1s
pool:
  size: 60%
  namespaces:
    "0":
      size: 10G
      ranks: [0]
    "1_2":
      size: 40G
      ranks: [1, 2]
ior:
  api: POSIX
  write_flags: -w -k
dfuse:
  mount_dir: /tmp/dfuse_x
`

func newEnv(t *testing.T) *Env {
	t.Helper()
	cfg, err := config.LoadBytes([]byte(envYAML))
	require.NoError(t, err)
	env, err := NewEnv(cfg, rtesting.NewFakeRunner(), nil, nil)
	require.NoError(t, err)
	return env
}

func TestNewEnv(t *testing.T) {
	env := newEnv(t)
	assert.Equal(t, "wolf-[1-3]", env.Servers.String())
	assert.Equal(t, "wolf-[4-5]", env.Clients.String())
	assert.True(t, env.Verbose())
	assert.Equal(t, "/usr/bin/dmg", env.DmgTool().Path)
	assert.Equal(t, 3*time.Minute, env.DaosTool().Timeout)
}

func TestEnv_InteropOptions(t *testing.T) {
	opts := newEnv(t).InteropOptions()
	assert.Equal(t, "2.2.0-4.el8", opts.OldVersion)
	assert.Equal(t, "2.4.0-1.el8", opts.NewVersion)
	assert.Equal(t, 5, opts.AttrCount)
	assert.Equal(t, "60%", opts.PoolSize)
	assert.Equal(t, "POSIX", opts.Ior.API)
	assert.Equal(t, "-w -k", opts.WriteFlags)
	assert.Equal(t, "-r -R -k -G 1", opts.ReadFlags)
	assert.Equal(t, "/tmp/dfuse_x", opts.DfuseMountDir)
	assert.Equal(t, time.Second, opts.StopSettle)
	assert.Equal(t, 5*time.Minute, opts.PoolUpgradeTimeout)
	assert.Equal(t, 5*time.Minute, opts.JoinTimeout)
}

func TestEnv_Interop(t *testing.T) {
	env := newEnv(t)
	h, err := env.Interop()
	require.NoError(t, err)
	assert.Same(t, env.Steps, h.Steps)
	assert.Equal(t, "2.2.0-4.el8", h.CurrentServer.String())
}

func TestEnv_Space(t *testing.T) {
	env := newEnv(t)
	s, err := env.Space()
	require.NoError(t, err)
	assert.Equal(t, map[string]space.PoolSpec{
		"0":   {Size: "10G", Ranks: []int{0}},
		"1_2": {Size: "40G", Ranks: []int{1, 2}},
	}, s.Pools)
	assert.Same(t, env.Steps, s.Steps)
	assert.Equal(t, "/testfile", s.IorParams.TestFile)
}
