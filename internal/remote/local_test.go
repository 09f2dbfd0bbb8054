package remote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/nodeset"
)

func TestRunLocal(t *testing.T) {
	l := NewLocalRunner(nil)

	res, err := l.RunLocal(context.Background(), "echo out; echo err >&2", true)
	require.NoError(t, err)
	assert.True(t, res.Passed())
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestRunLocal_Check(t *testing.T) {
	l := NewLocalRunner(nil)

	res, err := l.RunLocal(context.Background(), "echo bad >&2; exit 3", false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)

	res, err = l.RunLocal(context.Background(), "echo bad >&2; exit 3", true)
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.True(t, errors.IsCode(err, errors.ErrExec))
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "bad")
}

func TestRunLocal_Timeout(t *testing.T) {
	l := NewLocalRunner(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := l.RunLocal(ctx, "sleep 5", false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTimeout))
}

func TestLocalRunner_Run(t *testing.T) {
	l := NewLocalRunner(nil)

	result, err := l.Run(context.Background(), nodeset.New(), "echo hello")
	require.NoError(t, err)
	require.Len(t, result.Hosts, 1)
	assert.Equal(t, LocalHostname(), result.Hosts[0].Host)
	assert.True(t, result.Passed())
	assert.Equal(t, []string{"hello"}, result.Output[0].Stdout)

	result, err = l.Run(context.Background(), nodeset.New("me"), "sleep 5", WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, "me", result.TimeoutHosts().String())
}

func TestIsCommandNotFound(t *testing.T) {
	tests := []struct {
		name     string
		stderr   string
		code     int
		wantName string
		want     bool
	}{
		{"bash", "bash: gdb: command not found", 127, "gdb", true},
		{"dash", "sh: 1: lbzip2: not found", 127, "lbzip2", true},
		{"sudo", "sudo: dnf: command not found", 127, "dnf", true},
		{"unknown text", "weird", 127, "", true},
		{"wrong exit code", "bash: gdb: command not found", 1, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, ok := IsCommandNotFound(tt.stderr, tt.code)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestHandleExecError(t *testing.T) {
	err := HandleExecError("gdb -c core", "", 127)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'gdb' not found in PATH")

	err = HandleExecError("dnf install -y foo", "Error: Unable to find a match: foo\n", 1)
	assert.Contains(t, err.Error(), "exit status 1")
	assert.Contains(t, err.Error(), "Unable to find a match")
}
