package remote

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/ftest/internal/logger"
)

func TestNewResult_Grouping(t *testing.T) {
	r := NewResult("daos version", []HostResult{
		{Host: "wolf-3", ExitCode: 0, Stdout: []string{"daos version 2.4.0"}},
		{Host: "wolf-1", ExitCode: 0, Stdout: []string{"daos version 2.4.0"}},
		{Host: "wolf-10", ExitCode: 1, Stdout: []string{"ERROR: daos: not installed"}},
		{Host: "wolf-2", ExitCode: 0, Stdout: []string{"daos version 2.4.0"}},
	}, false)

	require.Len(t, r.Output, 2)
	assert.Equal(t, "wolf-[1-3]", r.Output[0].Hosts.String())
	assert.True(t, r.Output[0].Passed())
	assert.Equal(t, "wolf-10", r.Output[1].Hosts.String())
	assert.False(t, r.Output[1].Passed())

	assert.False(t, r.Passed())
	assert.False(t, r.Homogeneous())
	assert.Equal(t, "wolf-[1-3]", r.PassedHosts().String())
	assert.Equal(t, "wolf-10", r.FailedHosts().String())
	assert.True(t, r.TimeoutHosts().IsEmpty())

	hosts := make([]string, 0, len(r.Hosts))
	for _, h := range r.Hosts {
		hosts = append(hosts, h.Host)
	}
	assert.Equal(t, []string{"wolf-1", "wolf-2", "wolf-3", "wolf-10"}, hosts)
}

func TestNewResult_Timeouts(t *testing.T) {
	r := NewResult("sleep 60", []HostResult{
		{Host: "wolf-1", ExitCode: -1, TimedOut: true},
		{Host: "wolf-2", ExitCode: 0},
	}, false)

	assert.False(t, r.Passed())
	assert.Equal(t, "wolf-1", r.TimeoutHosts().String())
	assert.Equal(t, "wolf-1", r.FailedHosts().String())
	assert.Len(t, r.Output, 2)
}

func TestNewResult_Homogeneous(t *testing.T) {
	r := NewResult("true", []HostResult{{Host: "wolf-1"}, {Host: "wolf-2"}}, false)
	assert.True(t, r.Passed())
	assert.True(t, r.Homogeneous())

	empty := NewResult("true", nil, false)
	assert.False(t, empty.Passed(), "no hosts is not a pass")
}

func TestNewResult_MergeStderr(t *testing.T) {
	hosts := []HostResult{
		{Host: "wolf-1", ExitCode: 1, Stdout: []string{"out"}, Stderr: []string{"err a"}},
		{Host: "wolf-2", ExitCode: 1, Stdout: []string{"out"}, Stderr: []string{"err b"}},
	}

	separate := NewResult("cmd", hosts, false)
	assert.True(t, separate.Homogeneous(), "stderr ignored when not merged")

	merged := NewResult("cmd", hosts, true)
	assert.False(t, merged.Homogeneous())
	want := map[string]string{"wolf-1": "out\nerr a", "wolf-2": "out\nerr b"}
	if diff := cmp.Diff(want, merged.AllStdout()); diff != "" {
		t.Errorf("AllStdout mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "out\nerr a\nout\nerr b", merged.JoinedStdout())
}

func TestResult_Log(t *testing.T) {
	log := logger.NewBufferLogger()
	r := NewResult("cat /proc/sys/kernel/core_pattern", []HostResult{
		{Host: "wolf-1", Stdout: []string{"/var/tmp/core.%e.%t.%p"}},
		{Host: "wolf-2", Stdout: []string{"/var/tmp/core.%e.%t.%p"}},
		{Host: "wolf-3", ExitCode: -1, TimedOut: true},
		{Host: "wolf-4", ExitCode: 1},
	}, false)

	r.Log(log, true)
	assert.True(t, log.Contains("  wolf-[1-2] (rc=0): /var/tmp/core.%e.%t.%p"))
	assert.True(t, log.Contains("  wolf-3 (rc=-1): timed out"))
	assert.True(t, log.Contains("  wolf-4 (rc=1): <no output>"))
	assert.False(t, log.HasLevel("debug"))

	log.Clear()
	r.Log(log, false)
	assert.False(t, log.HasLevel("info"))
	assert.True(t, log.HasLevel("debug"))
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"\n", nil},
		{"one\n", []string{"one"}},
		{"one\r\ntwo\r\n", []string{"one", "two"}},
		{"a\n\nb", []string{"a", "", "b"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitLines([]byte(tt.in)), "input %q", tt.in)
	}
}
