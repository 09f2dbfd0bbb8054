package cores

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	rtesting "github.com/rileyhilliard/ftest/internal/remote/testing"
)

func TestCorePattern(t *testing.T) {
	f := rtesting.NewFakeRunner()
	f.On("core_pattern",
		rtesting.Out("/var/tmp/core.%e.%t.%p"),
		rtesting.Out("/localhome/cores/core-%h-%e").On("wolf-3"),
	)
	log := logger.NewBufferLogger()

	got, err := CorePattern(context.Background(), f, nodeset.MustParse("wolf-[1-3]"), true, log)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "/var/tmp", got["wolf-[1-2]"].Path)
	assert.Equal(t, "core.*.*.*", got["wolf-[1-2]"].Pattern)
	assert.Equal(t, "/localhome/cores", got["wolf-3"].Path)
	assert.Equal(t, "core-*-*", got["wolf-3"].Pattern)
	assert.True(t, log.Contains("Collecting any 'core.*.*.*' core files written to /var/tmp on wolf-[1-2]"))
	assert.Equal(t, []string{"cat /proc/sys/kernel/core_pattern"}, f.Commands())
}

func TestCorePattern_Disabled(t *testing.T) {
	f := rtesting.NewFakeRunner()
	got, err := CorePattern(context.Background(), f, nodeset.New("wolf-1"), false, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, f.Commands())
}

func TestCorePattern_Errors(t *testing.T) {
	tests := []struct {
		name string
		resp rtesting.Response
	}{
		{"command fails", rtesting.Fail(1, "cat: permission denied")},
		{"no output", rtesting.Out("")},
		{"no directory", rtesting.Out("core")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := rtesting.NewFakeRunner()
			f.On("core_pattern", tt.resp)
			_, err := CorePattern(context.Background(), f, nodeset.New("wolf-1"), true, nil)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCore))
		})
	}
}
