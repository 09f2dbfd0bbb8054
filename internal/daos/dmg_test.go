package daos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	rtesting "github.com/rileyhilliard/ftest/internal/remote/testing"
)

const systemQueryJSON = `{"response":{"members":[
 {"rank":0,"addr":"10.8.1.11:10001","fault_domain":"/wolf-1.example.com","state":"joined","uuid":"a"},
 {"rank":1,"addr":"10.8.1.11:10001","fault_domain":"/wolf-1.example.com","state":"joined","uuid":"b"},
 {"rank":2,"addr":"10.8.1.12:10001","fault_domain":"/wolf-2","state":"stopped","uuid":"c"}
]},"error":null,"status":0}`

func newTestDmg(f *rtesting.FakeRunner, opts ToolOptions) *Dmg {
	return NewDmg(f, nodeset.MustParse("wolf-[1-3]"), "/etc/daos/daos_control.yml", opts, nil)
}

func TestDmg_RunsOnFirstHost(t *testing.T) {
	f := rtesting.NewFakeRunner()
	f.On(`system query`, rtesting.Out(systemQueryJSON))
	dmg := newTestDmg(f, ToolOptions{})

	members, err := dmg.SystemQuery(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 3)

	calls := f.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "wolf-1", calls[0].Hosts.String())
	assert.Equal(t, "dmg -j -o /etc/daos/daos_control.yml system query --verbose", calls[0].Command)
	assert.Equal(t, "wolf-1", members[0].Host())
	assert.Equal(t, "stopped", members[2].State)
}

func TestDmg_SkipsLogLinesBeforeJSON(t *testing.T) {
	f := rtesting.NewFakeRunner()
	f.On(`pool query`, rtesting.Out("WARNING: insecure mode\n"+
		`{"response":{"uuid":"u1","pool_layout_ver":1,"upgrade_layout_ver":2},"error":null,"status":0}`))
	dmg := newTestDmg(f, ToolOptions{})

	info, err := dmg.PoolQuery(context.Background(), "pool1")
	require.NoError(t, err)
	assert.Equal(t, 1, info.PoolLayoutVer)
	assert.Equal(t, 2, info.UpgradeLayoutVer)
}

func TestDmg_Failures(t *testing.T) {
	tests := []struct {
		name       string
		resp       rtesting.Response
		opts       ToolOptions
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "error status",
			resp:       rtesting.Fail(1, `{"response":null,"error":"DER_BUSY(-1012)","status":-1012}`),
			wantStatus: -1012,
			wantMsg:    "returned status -1012",
		},
		{
			name:       "timeout",
			resp:       rtesting.Timeout(),
			opts:       ToolOptions{Timeout: time.Minute},
			wantStatus: -1,
			wantMsg:    "Timeout detected running 'dmg -j -o /etc/daos/daos_control.yml pool upgrade pool1' with a 1m0s timeout",
		},
		{
			name:       "failed without json",
			resp:       rtesting.Fail(2, "connection refused"),
			wantStatus: 2,
			wantMsg:    "Error occurred running",
		},
		{
			name:    "bad keyword",
			resp:    rtesting.Out(`{"response":{},"error":null,"status":0}` + "\nERROR: engine crashed"),
			opts:    ToolOptions{BadKeywords: []string{"ERROR"}},
			wantMsg: "Error messages detected in output",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := rtesting.NewFakeRunner()
			f.On(`pool upgrade`, tt.resp)
			err := newTestDmg(f, tt.opts).PoolUpgrade(context.Background(), "pool1")
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrRemote))
			assert.Contains(t, err.Error(), tt.wantMsg)

			cf, ok := AsCommandFailure(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, cf.Status)
		})
	}
}

func TestDmg_PoolCreate(t *testing.T) {
	f := rtesting.NewFakeRunner()
	f.On(`pool create`, rtesting.Out(`{"response":{"uuid":"u1","svc_reps":[0],"tgt_ranks":[0,1]},"error":null,"status":0}`))
	dmg := newTestDmg(f, ToolOptions{})

	pool, err := dmg.PoolCreate(context.Background(), "10G", "pool1", []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, "u1", pool.UUID)
	assert.Equal(t, "pool1", pool.ID())
	assert.Equal(t, []int{0, 1}, pool.TgtRanks)
	assert.Equal(t,
		"dmg -j -o /etc/daos/daos_control.yml pool create --size=10G --ranks=0,1 pool1",
		f.Commands()[0])
}

func TestDmg_PoolProp(t *testing.T) {
	f := rtesting.NewFakeRunner()
	f.On(`get-prop pool1 upgrade_status`, rtesting.Out(
		`{"response":[{"name":"upgrade_status","description":"Upgrade Status","value":"in progress"}],"error":null,"status":0}`))
	f.On(`get-prop pool1 rd_fac`, rtesting.Out(
		`{"response":[{"name":"rd_fac","description":"Redundancy Factor","value":2}],"error":null,"status":0}`))
	f.On(`get-prop pool1 label`, rtesting.Out(`{"response":[],"error":null,"status":0}`))
	dmg := newTestDmg(f, ToolOptions{})

	status, err := dmg.PoolProp(context.Background(), "pool1", "upgrade_status")
	require.NoError(t, err)
	assert.Equal(t, "in progress", status)

	rf, err := dmg.PoolProp(context.Background(), "pool1", "rd_fac")
	require.NoError(t, err)
	assert.Equal(t, "2", rf)

	_, err = dmg.PoolProp(context.Background(), "pool1", "label")
	assert.Error(t, err)
}

func TestDmg_PoolListAndDestroy(t *testing.T) {
	f := rtesting.NewFakeRunner()
	f.On(`pool list`, rtesting.Out(`{"response":{"pools":[{"uuid":"u1","label":"pool1"},{"uuid":"u2"}]},"error":null,"status":0}`))
	dmg := newTestDmg(f, ToolOptions{})

	pools, err := dmg.PoolList(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, "pool1", pools[0].ID())
	assert.Equal(t, "u2", pools[1].ID())

	require.NoError(t, dmg.PoolDestroy(context.Background(), "pool1", true, true))
	require.NoError(t, dmg.SystemStop(context.Background(), true))
	assert.Equal(t, []string{
		"dmg -j -o /etc/daos/daos_control.yml pool list --verbose",
		"dmg -j -o /etc/daos/daos_control.yml pool destroy pool1 --force --recursive",
		"dmg -j -o /etc/daos/daos_control.yml system stop --force",
	}, f.Commands())
}

func TestDmg_StorageQueryUsage(t *testing.T) {
	f := rtesting.NewFakeRunner()
	f.On(`storage query usage`, rtesting.Out(`{"response":{"HostStorage":{
		"2":{"hosts":"wolf-2","storage":{"scm_namespaces":[{"mount":{"path":"/mnt/daos","total_bytes":100,"avail_bytes":40}}]}},
		"1":{"hosts":"wolf-1","storage":{"scm_namespaces":[{"mount":{"path":"/mnt/daos","total_bytes":100,"avail_bytes":90}}]}}
	}},"error":null,"status":0}`))

	usage, err := newTestDmg(f, ToolOptions{}).StorageQueryUsage(context.Background())
	require.NoError(t, err)
	require.Len(t, usage, 2)
	assert.Equal(t, "wolf-1", usage[0].Hosts)
	assert.Equal(t, uint64(90), usage[0].Storage.ScmNamespaces[0].Mount.AvailBytes)
}

func TestDmg_Version(t *testing.T) {
	f := rtesting.NewFakeRunner()
	f.On(`dmg version`, rtesting.Out("dmg version 2.4.0"))
	dmg := NewDmg(f, nodeset.New("wolf-1"), "", ToolOptions{User: "root"}, nil)

	v, err := dmg.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.4.0", v)
	assert.Equal(t, "sudo -n dmg version", f.Commands()[0])
}

func TestHostRanks(t *testing.T) {
	members := []Member{
		{Rank: 2, FaultDomain: "/wolf-2"},
		{Rank: 0, FaultDomain: "/wolf-1.example.com"},
		{Rank: 1, FaultDomain: "/wolf-1.example.com"},
		{Rank: 3, Addr: "wolf-3.example.com:10001"},
	}

	assert.Equal(t, map[string][]int{
		"wolf-1": {0, 1},
		"wolf-2": {2},
		"wolf-3": {3},
	}, HostRanks(members, nodeset.New()))
	assert.Equal(t, map[string][]int{"wolf-2": {2}}, HostRanks(members, nodeset.New("wolf-2")))
}
