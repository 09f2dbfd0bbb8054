package suite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/errors"
)

// fakeSuite is a Suite whose tests are plain functions.
type fakeSuite struct {
	name     string
	params   string
	tests    []Test
	requires []config.ValidationOption
}

func (s *fakeSuite) Name() string   { return s.name }
func (s *fakeSuite) Params() []byte { return []byte(s.params) }
func (s *fakeSuite) Tests() []Test  { return s.tests }

type requiringSuite struct{ *fakeSuite }

func (s requiringSuite) Requires() []config.ValidationOption { return s.requires }

func noop(context.Context, *Env) error { return nil }

func testSuites() []Suite {
	return []Suite{
		&fakeSuite{name: "UpgradeDowngradeTest", tests: []Test{
			{Name: "TestUpgradeDowngrade", Run: noop},
			{Name: "TestUpgradeDowngradeFaultInjection", Run: noop},
		}},
		&fakeSuite{name: "AgentServerInteropTest", tests: []Test{
			{Name: "TestDiffVersionsAgentServer", Run: noop},
		}},
		&fakeSuite{name: "VerifyPoolSpace", tests: []Test{
			{Name: "TestVerifyPoolSpace", Run: noop},
		}},
	}
}

func ids(cases []Case) []string {
	out := make([]string, len(cases))
	for i, c := range cases {
		out[i] = c.ID()
	}
	return out
}

func TestCases_Sorted(t *testing.T) {
	assert.Equal(t, []string{
		"AgentServerInteropTest.TestDiffVersionsAgentServer",
		"UpgradeDowngradeTest.TestUpgradeDowngrade",
		"UpgradeDowngradeTest.TestUpgradeDowngradeFaultInjection",
		"VerifyPoolSpace.TestVerifyPoolSpace",
	}, ids(Cases(testSuites())))
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{
			name:     "suite name",
			patterns: []string{"VerifyPoolSpace"},
			want:     []string{"VerifyPoolSpace.TestVerifyPoolSpace"},
		},
		{
			name:     "method name",
			patterns: []string{"TestUpgradeDowngrade"},
			want:     []string{"UpgradeDowngradeTest.TestUpgradeDowngrade"},
		},
		{
			name:     "glob on method",
			patterns: []string{"TestUpgrade*"},
			want: []string{
				"UpgradeDowngradeTest.TestUpgradeDowngrade",
				"UpgradeDowngradeTest.TestUpgradeDowngradeFaultInjection",
			},
		},
		{
			name:     "full id and duplicate patterns",
			patterns: []string{"AgentServerInteropTest.TestDiffVersionsAgentServer", "AgentServer*"},
			want:     []string{"AgentServerInteropTest.TestDiffVersionsAgentServer"},
		},
		{
			name:     "everything",
			patterns: []string{"*"},
			want:     ids(Cases(testSuites())),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(testSuites(), tt.patterns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSelect_Errors(t *testing.T) {
	_, err := Select(testSuites(), []string{"NoSuchTest"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "No tests match NoSuchTest")

	_, err = Select(testSuites(), []string{"[bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad test pattern")

	got, err := Select(testSuites(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
