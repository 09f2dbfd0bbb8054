package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
	rtesting "github.com/rileyhilliard/ftest/internal/remote/testing"
)

// newTestCmd returns a command whose output lands in the returned buffer.
func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	return cmd, &buf
}

func setRunFlags(t *testing.T, timeout string, stderr, asJSON bool) {
	t.Helper()
	orig := []interface{}{runTimeoutFlag, runStderrFlag, runJSONFlag}
	runTimeoutFlag, runStderrFlag, runJSONFlag = timeout, stderr, asJSON
	t.Cleanup(func() {
		runTimeoutFlag = orig[0].(string)
		runStderrFlag = orig[1].(bool)
		runJSONFlag = orig[2].(bool)
	})
}

func TestPrintResult(t *testing.T) {
	f := rtesting.NewFakeRunner()
	f.On("daos version",
		rtesting.Out("daos version 2.4.0"),
		rtesting.Fail(127, "bash: daos: command not found").On("wolf-3"),
	)
	f.On("sleep", rtesting.Timeout().On("wolf-2"))
	f.On("true")

	result, err := f.Run(context.Background(), nodeset.MustParse("wolf-[1-3]"), "daos version")
	require.NoError(t, err)
	var buf bytes.Buffer
	printResult(&buf, result)
	out := buf.String()
	assert.Contains(t, out, "wolf-[1-2] (rc=0):\n    daos version 2.4.0\n")
	assert.Contains(t, out, "wolf-3 (rc=127):")
	assert.Contains(t, out, "    bash: daos: command not found")

	result, err = f.Run(context.Background(), nodeset.MustParse("wolf-[1-2]"), "sleep 60")
	require.NoError(t, err)
	buf.Reset()
	printResult(&buf, result)
	assert.Contains(t, buf.String(), "wolf-2 timed out")

	result, err = f.Run(context.Background(), nodeset.New("wolf-1"), "true")
	require.NoError(t, err)
	buf.Reset()
	printResult(&buf, result)
	assert.Contains(t, buf.String(), "<no output>")
}

func TestRunGroups(t *testing.T) {
	result := remote.NewResult("df", []remote.HostResult{
		{Host: "wolf-2", Stdout: []string{"10G"}},
		{Host: "wolf-1", Stdout: []string{"10G"}},
		{Host: "wolf-3", ExitCode: -1, TimedOut: true},
	}, false)

	assert.Equal(t, []RunGroup{
		{Hosts: "wolf-[1-2]", Output: []string{"10G"}},
		{Hosts: "wolf-3", ExitCode: -1, TimedOut: true, Output: []string{}},
	}, runGroups(result))
}

func TestRunCommand(t *testing.T) {
	runner, _ := fakeSession(t, clusterConfig)
	setRunFlags(t, "30s", true, false)
	runner.On(`^systemctl is-active daos_server$`,
		rtesting.Out("active"),
		rtesting.Fail(3, "inactive").On("wolf-3"),
	)

	cmd, buf := newTestCmd()
	err := runCommand(cmd, "wolf-[1-3]", "systemctl is-active daos_server")

	var exit *ExitError
	require.True(t, stderrors.As(err, &exit))
	assert.Equal(t, 1, exit.Code)
	assert.Contains(t, buf.String(), "wolf-[1-2] (rc=0):")
	assert.Contains(t, buf.String(), "wolf-3 (rc=3):")

	calls := runner.CallsMatching("^systemctl")
	require.Len(t, calls, 1)
	assert.Equal(t, "wolf-[1-3]", calls[0].Hosts.String())
	assert.True(t, calls[0].Options.Stderr)
	assert.Equal(t, "30s", calls[0].Options.Timeout.String())
}

func TestRunCommand_JSON(t *testing.T) {
	fakeSession(t, clusterConfig)
	setRunFlags(t, "", false, true)

	cmd, buf := newTestCmd()
	require.NoError(t, runCommand(cmd, "wolf-[4-5]", "hostname -s"))

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.True(t, env.Success)
	groups, ok := env.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, groups, 1)
	assert.Equal(t, "wolf-[4-5]", groups[0].(map[string]interface{})["hosts"])
}

func TestRunCommand_BadArguments(t *testing.T) {
	fakeSession(t, clusterConfig)

	setRunFlags(t, "soon", false, false)
	cmd, _ := newTestCmd()
	err := runCommand(cmd, "wolf-1", "true")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid timeout")

	setRunFlags(t, "", false, false)
	err = runCommand(cmd, "wolf-[3-1", "true")
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "exit status"))
}
