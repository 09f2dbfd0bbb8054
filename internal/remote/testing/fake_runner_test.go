package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
)

func TestFakeRunner_DefaultPasses(t *testing.T) {
	f := NewFakeRunner()
	r, err := f.Run(context.Background(), nodeset.MustParse("wolf-[1-2]"), "true")
	require.NoError(t, err)
	assert.True(t, r.Passed())
	assert.True(t, r.Homogeneous())
	assert.Equal(t, []string{"true"}, f.Commands())
}

func TestFakeRunner_PerHostResponses(t *testing.T) {
	f := NewFakeRunner()
	f.On(`^daos version$`,
		Out("daos version 2.4.0"),
		Fail(1, "daos: command not found").On("wolf-3"),
	)

	r, err := f.Run(context.Background(), nodeset.MustParse("wolf-[1-3]"), "daos version")
	require.NoError(t, err)
	assert.Equal(t, "wolf-[1-2]", r.PassedHosts().String())
	assert.Equal(t, "wolf-3", r.FailedHosts().String())
}

func TestFakeRunner_Sequence(t *testing.T) {
	f := NewFakeRunner()
	f.On("upgrade_status", Out("in progress")).Then(Out("completed"))

	hosts := nodeset.New("wolf-1")
	for _, want := range []string{"in progress", "completed", "completed"} {
		r, err := f.Run(context.Background(), hosts, "dmg pool get-prop pool1 upgrade_status")
		require.NoError(t, err)
		assert.Equal(t, want, r.JoinedStdout())
	}
}

func TestFakeRunner_LaterRulesWin(t *testing.T) {
	f := NewFakeRunner()
	f.On("rpm", Out("old"))
	f.OnExact("rpm -qa", Out("new"))

	r, _ := f.Run(context.Background(), nodeset.New("wolf-1"), "rpm -qa")
	assert.Equal(t, "new", r.JoinedStdout())
	r, _ = f.Run(context.Background(), nodeset.New("wolf-1"), "rpm -q daos")
	assert.Equal(t, "old", r.JoinedStdout())
}

func TestFakeRunner_OptionsAndErrors(t *testing.T) {
	f := NewFakeRunner()
	f.On("df", Response{Stdout: "out", Stderr: "err"})

	r, err := f.Run(context.Background(), nodeset.New("wolf-1"), "df -h", remote.WithStderr(true))
	require.NoError(t, err)
	assert.Equal(t, "out\nerr", r.JoinedStdout())

	calls := f.CallsMatching("^df")
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Options.Stderr)

	f.On("sleep", Timeout())
	r, _ = f.Run(context.Background(), nodeset.New("wolf-1"), "sleep 9")
	assert.Equal(t, "wolf-1", r.TimeoutHosts().String())

	f.Err = errors.New("boom")
	_, err = f.Run(context.Background(), nodeset.New("wolf-1"), "true")
	assert.Error(t, err)
}

func TestFakeLocal(t *testing.T) {
	f := NewFakeLocal()
	f.On(`^rpm -q`, remote.LocalResult{Stdout: "2.4.0-1.el8"})
	f.On(`^gdb`, remote.LocalResult{ExitCode: 1, Stderr: "no core"})

	res, err := f.RunLocal(context.Background(), "rpm -q --qf '%{evr}' daos", true)
	require.NoError(t, err)
	assert.Equal(t, "2.4.0-1.el8", res.Stdout)

	res, err = f.RunLocal(context.Background(), "gdb -c core.1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)

	_, err = f.RunLocal(context.Background(), "gdb -c core.1", true)
	assert.Error(t, err)

	res, err = f.RunLocal(context.Background(), "true", true)
	require.NoError(t, err)
	assert.True(t, res.Passed())
	assert.Len(t, f.Commands(), 4)
}

func TestFakeRunner_Handle(t *testing.T) {
	f := NewFakeRunner()
	upgraded := false
	f.Handle(`pool upgrade`, func(string) []Response {
		upgraded = true
		return nil
	})
	f.Handle(`pool query`, func(cmd string) []Response {
		if upgraded {
			return []Response{Out("layout 2")}
		}
		return []Response{Out("layout 1")}
	})

	hosts := nodeset.New("wolf-1")
	r, _ := f.Run(context.Background(), hosts, "dmg pool query pool1")
	assert.Equal(t, "layout 1", r.JoinedStdout())
	r, _ = f.Run(context.Background(), hosts, "dmg pool upgrade pool1")
	assert.True(t, r.Passed())
	r, _ = f.Run(context.Background(), hosts, "dmg pool query pool1")
	assert.Equal(t, "layout 2", r.JoinedStdout())
}
