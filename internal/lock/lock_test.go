package lock

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/ftest/internal/config"
	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	rtesting "github.com/rileyhilliard/ftest/internal/remote/testing"
)

// fakeHost emulates mkdir, cat and rm on one host's lock directory.
type fakeHost struct {
	mu   sync.Mutex
	dirs map[string]bool
	info map[string]string
}

func newFakeHost(f *rtesting.FakeRunner) *fakeHost {
	h := &fakeHost{dirs: map[string]bool{}, info: map[string]string{}}
	quoted := func(cmd string) string {
		start := strings.Index(cmd, "'")
		end := strings.Index(cmd[start+1:], "'")
		return cmd[start+1 : start+1+end]
	}
	f.Handle(`^mkdir `, func(cmd string) []rtesting.Response {
		h.mu.Lock()
		defer h.mu.Unlock()
		dir := quoted(cmd)
		if h.dirs[dir] {
			return []rtesting.Response{rtesting.Fail(1, "")}
		}
		h.dirs[dir] = true
		return nil
	})
	f.Handle(`^cat > `, func(cmd string) []rtesting.Response {
		h.mu.Lock()
		defer h.mu.Unlock()
		lines := strings.Split(cmd, "\n")
		h.info[quoted(cmd)] = lines[1]
		return nil
	})
	f.Handle(`^cat '`, func(cmd string) []rtesting.Response {
		h.mu.Lock()
		defer h.mu.Unlock()
		data, ok := h.info[quoted(cmd)]
		if !ok {
			return []rtesting.Response{rtesting.Fail(1, "")}
		}
		return []rtesting.Response{rtesting.Out(data)}
	})
	f.Handle(`^rm -rf `, func(cmd string) []rtesting.Response {
		h.mu.Lock()
		defer h.mu.Unlock()
		dir := quoted(cmd)
		delete(h.dirs, dir)
		delete(h.info, dir+"/info.json")
		return nil
	})
	return h
}

func lockConfig() config.LockConfig {
	return config.LockConfig{Enabled: true, Timeout: 20 * time.Millisecond, Stale: time.Hour, Dir: "/tmp/ftest-locks"}
}

func newLocker(t *testing.T, cfg config.LockConfig) (*Locker, *rtesting.FakeRunner, *fakeHost) {
	t.Helper()
	f := rtesting.NewFakeRunner()
	h := newFakeHost(f)
	l := NewLocker(f, nodeset.MustParse("wolf-[1-3]"), cfg, nil)
	l.PollInterval = 5 * time.Millisecond
	return l, f, h
}

func TestLockInfo(t *testing.T) {
	t.Setenv("USER", "daos_tester")
	info := NewLockInfo("interop upgrade-downgrade")
	assert.Equal(t, "daos_tester", info.User)
	assert.NotEmpty(t, info.ID)
	assert.NotEqual(t, info.ID, NewLockInfo("").ID)
	assert.Less(t, info.Age(), time.Minute)

	data, err := info.Marshal()
	require.NoError(t, err)
	parsed, err := ParseLockInfo(data)
	require.NoError(t, err)
	assert.Equal(t, info.ID, parsed.ID)
	assert.Contains(t, parsed.String(), "daos_tester@")
	assert.Contains(t, parsed.String(), ", interop upgrade-downgrade)")

	_, err = ParseLockInfo([]byte("not json"))
	assert.Error(t, err)
}

func TestAcquireRelease(t *testing.T) {
	l, f, h := newLocker(t, lockConfig())
	ctx := context.Background()

	lk, err := l.Acquire(ctx, "cluster", "space verify")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ftest-locks/ftest-cluster.lock", lk.Dir)
	assert.True(t, h.dirs[lk.Dir])
	for _, call := range f.Calls() {
		assert.Equal(t, "wolf-1", call.Hosts.String())
	}
	assert.Contains(t, l.Holder(ctx, "cluster"), "space verify")

	require.NoError(t, lk.Release(ctx))
	assert.False(t, h.dirs[lk.Dir])
	assert.Equal(t, "nobody", l.Holder(ctx, "cluster"))
}

func TestAcquire_Held(t *testing.T) {
	l, _, _ := newLocker(t, lockConfig())
	ctx := context.Background()

	first, err := l.Acquire(ctx, "cluster", "first")
	require.NoError(t, err)

	_, err = l.TryAcquire(ctx, "cluster", "second")
	assert.ErrorIs(t, err, ErrLocked)

	_, err = l.Acquire(ctx, "cluster", "second")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrLock))
	assert.Contains(t, err.Error(), "Timed out waiting for lock on wolf-1")
	assert.Contains(t, err.Error(), "first")

	require.NoError(t, first.Release(ctx))
	second, err := l.TryAcquire(ctx, "cluster", "second")
	require.NoError(t, err)
	assert.NotNil(t, second)
}

func TestAcquire_StaleLockRemoved(t *testing.T) {
	cfg := lockConfig()
	cfg.Stale = time.Minute
	l, _, h := newLocker(t, cfg)
	dir := l.Dir("cluster")
	old := &LockInfo{ID: "old", User: "gone", Hostname: "elsewhere", Started: time.Now().Add(-time.Hour)}
	data, err := old.Marshal()
	require.NoError(t, err)
	h.dirs[dir] = true
	h.info[dir+"/info.json"] = string(data)

	lk, err := l.Acquire(context.Background(), "cluster", "new")
	require.NoError(t, err)
	assert.NotEqual(t, "old", lk.Info.ID)
}

func TestRelease_TakenOver(t *testing.T) {
	l, _, h := newLocker(t, lockConfig())
	ctx := context.Background()
	lk, err := l.Acquire(ctx, "cluster", "first")
	require.NoError(t, err)

	require.NoError(t, l.ForceRelease(ctx, "cluster"))
	other, err := l.Acquire(ctx, "cluster", "other")
	require.NoError(t, err)

	require.NoError(t, lk.Release(ctx))
	assert.True(t, h.dirs[other.Dir], "a lock taken over by another run is left alone")
	assert.Nil(t, (*Lock)(nil).Release(ctx))
}

func TestAcquire_NoHost(t *testing.T) {
	l := NewLocker(rtesting.NewFakeRunner(), nodeset.New(), lockConfig(), nil)
	_, err := l.Acquire(context.Background(), "cluster", "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrLock))
}
