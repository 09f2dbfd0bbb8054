package logger

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name string
		min  Level
		want []string
		skip []string
	}{
		{
			name: "debug shows everything",
			min:  LevelDebug,
			want: []string{"[remote] dmg system query", "[remote] pool created", "[remote] WARN: rank 2 excluded", "[remote] ERROR: pool destroy failed"},
		},
		{
			name: "info hides debug",
			min:  LevelInfo,
			want: []string{"[remote] pool created", "[remote] WARN: rank 2 excluded"},
			skip: []string{"dmg system query"},
		},
		{
			name: "error only",
			min:  LevelError,
			want: []string{"[remote] ERROR: pool destroy failed"},
			skip: []string{"pool created", "rank 2 excluded"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&buf, "[remote]", tt.min)
			l.Debug("dmg system %s", "query")
			l.Info("pool created")
			l.Warn("rank %d excluded", 2)
			l.Error("pool destroy failed")

			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.skip {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestNew_NoPrefix(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "", LevelInfo).Info("hello")
	assert.Regexp(t, `^\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2} hello\n$`, buf.String())
}

func TestEnvLevel(t *testing.T) {
	t.Setenv(DebugEnv, "")
	assert.Equal(t, LevelWarn, EnvLevel(LevelWarn))

	t.Setenv(DebugEnv, "1")
	assert.Equal(t, LevelDebug, EnvLevel(LevelWarn))
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "level(9)", Level(9).String())
}

func TestBufferLogger(t *testing.T) {
	b := NewBufferLogger()
	b.Info("  wolf-[1-3] (rc=0): %s", "daos version 2.4.0")
	b.Warn("core file on %s", "wolf-2")

	entries := b.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Level: LevelInfo, Message: "  wolf-[1-3] (rc=0): daos version 2.4.0"}, entries[0])
	assert.Equal(t, LevelWarn, entries[1].Level)

	assert.True(t, b.Contains("rc=0"))
	assert.False(t, b.Contains("rc=1"))
	assert.True(t, b.HasLevel("warn"))
	assert.False(t, b.HasLevel("debug"))

	b.Clear()
	assert.Empty(t, b.Entries())
	assert.False(t, b.HasLevel("warn"))
}

func TestBufferLogger_Concurrent(t *testing.T) {
	b := NewBufferLogger()
	var wg sync.WaitGroup
	for i := 1; i <= 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b.Debug("wolf-%d done", n)
		}(i)
	}
	wg.Wait()
	assert.Len(t, b.Entries(), 16)
	for i := 1; i <= 16; i++ {
		assert.True(t, b.Contains(fmt.Sprintf("wolf-%d done", i)))
	}
}

func TestDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	b := NewBufferLogger()
	SetDefault(b)
	Default().Info("through default")
	assert.True(t, b.Contains("through default"))

	SetDefault(Noop())
	Default().Error("dropped")
	assert.False(t, b.Contains("dropped"))
}
