package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ftesterrors "github.com/rileyhilliard/ftest/internal/errors"
)

func TestMockFS(t *testing.T) {
	fs := NewMockFS()

	require.Error(t, fs.Mkdir("/tmp/a/b"), "parent missing")
	require.NoError(t, fs.MkdirAll("/tmp/a/b"))
	assert.True(t, fs.IsDir("/tmp"))
	assert.True(t, fs.IsDir("/tmp/a/b"))
	require.Error(t, fs.Mkdir("/tmp/a"), "already exists")

	require.NoError(t, fs.WriteFile("/var/log/core.1", []byte("x")))
	assert.True(t, fs.IsDir("/var/log"))
	assert.True(t, fs.IsFile("/var/log/core.1"))
	assert.Equal(t, []string{"/var/log/core.1"}, fs.Files("/var"))

	fs.Remove("/var")
	assert.False(t, fs.IsFile("/var/log/core.1"))
	assert.False(t, fs.IsDir("/var/log"))

	_, err := fs.ReadFile("/var/log/core.1")
	assert.Error(t, err)
}

func TestMockClient_CannedResponses(t *testing.T) {
	m := NewMockClient("wolf-1")
	m.SetCommandResponse("dmg version", Output("dmg version 2.4.0\n"))
	m.SetCommandResponse(`^rpm -q .*daos$`, Failure(1, "package daos is not installed"))
	m.SetCommandResponse("boom", CommandResponse{Error: errors.New("transport")})

	stdout, _, code, err := m.Exec("dmg version")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "dmg version 2.4.0\n", string(stdout))

	_, stderr, code, err := m.Exec("rpm -q --qf '%{evr}' daos")
	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.Contains(t, string(stderr), "not installed")

	_, _, _, err = m.Exec("boom")
	assert.Error(t, err)

	_, _, code, err = m.Exec("unregistered command")
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	assert.Equal(t, []string{"dmg version", "rpm -q --qf '%{evr}' daos", "boom", "unregistered command"}, m.Commands())
}

func TestMockClient_DefaultResponse(t *testing.T) {
	m := NewMockClient("wolf-1")
	m.SetDefaultResponse(Failure(127, "command not found"))

	_, _, code, err := m.Exec("ior -h")
	require.NoError(t, err)
	assert.Equal(t, 127, code)
}

func TestMockClient_FilesystemCommands(t *testing.T) {
	m := NewMockClient("wolf-1")

	_, _, code, _ := m.Exec(`mkdir "/tmp/ftest.lock" 2>/dev/null`)
	assert.Equal(t, 0, code)
	_, _, code, _ = m.Exec(`mkdir "/tmp/ftest.lock" 2>/dev/null`)
	assert.Equal(t, 1, code, "second mkdir must fail")

	_, _, code, _ = m.Exec("cat > \"/tmp/ftest.lock/info.json\" << 'LOCKINFO'\n{\"user\":\"me\"}\nLOCKINFO")
	assert.Equal(t, 0, code)

	stdout, _, code, _ := m.Exec(`cat "/tmp/ftest.lock/info.json" 2>/dev/null`)
	assert.Equal(t, 0, code)
	assert.Equal(t, `{"user":"me"}`, string(stdout))

	_, _, code, _ = m.Exec(`test -d "/tmp/ftest.lock"`)
	assert.Equal(t, 0, code)

	_, _, code, _ = m.Exec(`rm -rf "/tmp/ftest.lock"`)
	assert.Equal(t, 0, code)
	_, _, code, _ = m.Exec(`test -f "/tmp/ftest.lock/info.json"`)
	assert.Equal(t, 1, code)
	_, _, code, _ = m.Exec(`cat /tmp/ftest.lock/info.json`)
	assert.Equal(t, 1, code)
}

func TestMockClient_ContextDeadline(t *testing.T) {
	m := NewMockClient("wolf-1")
	m.SetCommandResponse("sleep", CommandResponse{Delay: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, code, err := m.ExecContext(ctx, "sleep")
	require.Error(t, err)
	assert.Equal(t, -1, code)
	assert.True(t, ftesterrors.IsCode(err, ftesterrors.ErrTimeout))
}

func TestMockClient_Close(t *testing.T) {
	m := NewMockClient("wolf-1")
	assert.True(t, m.Alive())
	assert.Equal(t, "wolf-1", m.GetHost())
	assert.Equal(t, "wolf-1:22", m.GetAddress())

	require.NoError(t, m.Close())
	assert.False(t, m.Alive())
	_, _, code, err := m.Exec("true")
	assert.Error(t, err)
	assert.Equal(t, -1, code)
}

func TestFirstArg(t *testing.T) {
	assert.Equal(t, "/a b/c", firstArg(`"/a b/c" 2>&1`))
	assert.Equal(t, "/a", firstArg(`'/a'`))
	assert.Equal(t, "/plain", firstArg(" /plain rest"))
	assert.Equal(t, "", firstArg("   "))
}
