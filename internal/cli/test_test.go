package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/suite"
)

type stubSuite struct {
	name  string
	tests []suite.Test
}

func (s *stubSuite) Name() string        { return s.name }
func (s *stubSuite) Params() []byte      { return nil }
func (s *stubSuite) Tests() []suite.Test { return s.tests }

func useSuites(t *testing.T, ss ...suite.Suite) {
	t.Helper()
	orig := suites
	suites = func() []suite.Suite { return ss }
	t.Cleanup(func() { suites = orig })
}

func TestListCommand_Registry(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, listCommand(&buf, nil))

	assert.Equal(t, "AgentServerInteropTest.TestDiffVersionsAgentServer\n"+
		"UpgradeDowngradeTest.TestUpgradeDowngrade\n"+
		"UpgradeDowngradeTest.TestUpgradeDowngradeFaultInjection\n"+
		"VerifyPoolSpace.TestVerifyPoolSpace\n", buf.String())
}

func TestListCommand_PatternsAndJSON(t *testing.T) {
	orig := listJSONFlag
	listJSONFlag = true
	defer func() { listJSONFlag = orig }()

	var buf bytes.Buffer
	require.NoError(t, listCommand(&buf, []string{"UpgradeDowngrade*"}))

	var env struct {
		Success bool         `json:"success"`
		Data    []ListedTest `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, []ListedTest{
		{ID: "UpgradeDowngradeTest.TestUpgradeDowngrade", Suite: "UpgradeDowngradeTest", Method: "TestUpgradeDowngrade"},
		{ID: "UpgradeDowngradeTest.TestUpgradeDowngradeFaultInjection", Suite: "UpgradeDowngradeTest", Method: "TestUpgradeDowngradeFaultInjection"},
	}, env.Data)

	err := listCommand(&buf, []string{"NoSuchTest"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestRunCases(t *testing.T) {
	runner, _ := fakeSession(t, clusterConfig)
	var sawServers string
	useSuites(t, &stubSuite{name: "StubSuite", tests: []suite.Test{
		{Name: "TestOK", Run: func(_ context.Context, env *suite.Env) error {
			sawServers = env.Servers.String()
			return nil
		}},
		{Name: "TestBroken", Run: func(context.Context, *suite.Env) error {
			return errors.New(errors.ErrVerify, "Pool attributes differ", "")
		}},
	}})

	cases, err := suite.Select(suites(), []string{"StubSuite"})
	require.NoError(t, err)

	cmd, buf := newTestCmd()
	err = runCases(cmd, cases, false, false)

	var exit *ExitError
	require.True(t, stderrors.As(err, &exit))
	assert.Equal(t, "wolf-[1-3]", sawServers)
	assert.Contains(t, buf.String(), "StubSuite.TestBroken")
	assert.Contains(t, buf.String(), "Pool attributes differ")
	assert.Contains(t, buf.String(), "1 pass, 1 fail")
	assert.NotEmpty(t, runner.CallsMatching(`^mkdir '/tmp/ftest-lock/ftest-cluster\.lock'`))
}

func TestRunCases_NoLockJSON(t *testing.T) {
	runner, _ := fakeSession(t, clusterConfig)
	useSuites(t, &stubSuite{name: "StubSuite", tests: []suite.Test{
		{Name: "TestOK", Run: func(context.Context, *suite.Env) error { return nil }},
	}})

	cases, err := suite.Select(suites(), []string{"TestOK"})
	require.NoError(t, err)

	cmd, buf := newTestCmd()
	require.NoError(t, runCases(cmd, cases, true, true))
	assert.Empty(t, runner.CallsMatching("mkdir"))

	var env struct {
		Success bool `json:"success"`
		Data    []struct {
			Name    string `json:"name"`
			Outcome string `json:"outcome"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.True(t, env.Success)
	require.Len(t, env.Data, 1)
	assert.Equal(t, "StubSuite.TestOK", env.Data[0].Name)
	assert.Equal(t, "PASS", env.Data[0].Outcome)
}

func TestRunByID(t *testing.T) {
	fakeSession(t, clusterConfig)
	ran := ""
	record := func(name string) func(context.Context, *suite.Env) error {
		return func(context.Context, *suite.Env) error {
			ran = name
			return nil
		}
	}
	useSuites(t, &stubSuite{name: "UpgradeDowngradeTest", tests: []suite.Test{
		{Name: "TestUpgradeDowngrade", Run: record("plain")},
		{Name: "TestUpgradeDowngradeFaultInjection", Run: record("fault")},
	}})

	cmd, _ := newTestCmd()
	require.NoError(t, runByID(cmd, "UpgradeDowngradeTest.TestUpgradeDowngradeFaultInjection", true, false))
	assert.Equal(t, "fault", ran)

	err := runByID(cmd, "VerifyPoolSpace.TestVerifyPoolSpace", true, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No tests match")
}
