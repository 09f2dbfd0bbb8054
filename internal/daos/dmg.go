package daos

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
)

// Member is one engine rank reported by "dmg system query".
type Member struct {
	Rank        int    `json:"rank"`
	Addr        string `json:"addr"`
	FaultDomain string `json:"fault_domain"`
	State       string `json:"state"`
	UUID        string `json:"uuid"`
}

// Host returns the short host name of the member, from its fault domain
// when present and otherwise from its address.
func (m Member) Host() string {
	if m.FaultDomain != "" {
		fd := strings.TrimRight(m.FaultDomain, "/")
		if i := strings.LastIndex(fd, "/"); i >= 0 {
			fd = fd[i+1:]
		}
		if fd != "" {
			return shortHost(fd)
		}
	}
	host := m.Addr
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return shortHost(host)
}

func shortHost(h string) string {
	if i := strings.IndexByte(h, '.'); i > 0 {
		return h[:i]
	}
	return h
}

// Pool is the response of "dmg pool create" and an entry of "dmg pool list".
type Pool struct {
	UUID     string `json:"uuid"`
	Label    string `json:"label"`
	SvcReps  []int  `json:"svc_reps"`
	TgtRanks []int  `json:"tgt_ranks"`
	State    string `json:"state,omitempty"`
}

// ID returns the label, or the UUID for unlabeled pools.
func (p Pool) ID() string {
	if p.Label != "" {
		return p.Label
	}
	return p.UUID
}

// PoolInfo is the part of "dmg pool query" the harness asserts on.
type PoolInfo struct {
	UUID             string `json:"uuid"`
	Label            string `json:"label"`
	TotalTargets     int    `json:"total_targets"`
	ActiveTargets    int    `json:"active_targets"`
	PoolLayoutVer    int    `json:"pool_layout_ver"`
	UpgradeLayoutVer int    `json:"upgrade_layout_ver"`
}

// Property is one pool property from "dmg pool get-prop".
type Property struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Value       interface{} `json:"value"`
}

// StringValue renders the property value as text.
func (p Property) StringValue() string {
	switch v := p.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// HostStorage is one host's entry of "dmg storage query usage".
type HostStorage struct {
	Hosts   string `json:"hosts"`
	Storage struct {
		ScmNamespaces []struct {
			Mount struct {
				Path       string `json:"path"`
				TotalBytes uint64 `json:"total_bytes"`
				AvailBytes uint64 `json:"avail_bytes"`
			} `json:"mount"`
		} `json:"scm_namespaces"`
	} `json:"storage"`
}

// Dmg runs the administrative tool on a single host.
type Dmg struct {
	tool
	// ConfigFile is passed with -o when set.
	ConfigFile string
}

// NewDmg returns a Dmg running on the first host of hosts.
func NewDmg(runner remote.Runner, hosts nodeset.NodeSet, configFile string, opts ToolOptions, log logger.Logger) *Dmg {
	if log == nil {
		log = logger.Noop()
	}
	if opts.Path == "" {
		opts.Path = "dmg"
	}
	return &Dmg{
		tool:       tool{runner: runner, host: hosts.Slice(0, 1), opts: opts, log: log},
		ConfigFile: configFile,
	}
}

// Host is the node set the commands run on.
func (d *Dmg) Host() nodeset.NodeSet { return d.host }

// Command builds a full dmg command line.
func (d *Dmg) Command(jsonOut bool, args ...string) string {
	parts := []string{d.opts.Path}
	if jsonOut {
		parts = append(parts, "-j")
	}
	if d.ConfigFile != "" {
		parts = append(parts, "-o", d.ConfigFile)
	}
	return strings.Join(append(parts, args...), " ")
}

func (d *Dmg) query(ctx context.Context, out interface{}, args ...string) error {
	return d.runJSON(ctx, d.Command(true, args...), out)
}

// SystemQuery returns the system members.
func (d *Dmg) SystemQuery(ctx context.Context) ([]Member, error) {
	var resp struct {
		Members []Member `json:"members"`
	}
	if err := d.query(ctx, &resp, "system", "query", "--verbose"); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

// SystemStop stops every engine.
func (d *Dmg) SystemStop(ctx context.Context, force bool) error {
	args := []string{"system", "stop"}
	if force {
		args = append(args, "--force")
	}
	return d.query(ctx, nil, args...)
}

// SystemStart starts every engine.
func (d *Dmg) SystemStart(ctx context.Context) error {
	return d.query(ctx, nil, "system", "start")
}

// PoolCreate creates a pool of size with label, optionally limited to ranks.
func (d *Dmg) PoolCreate(ctx context.Context, size, label string, ranks []int) (*Pool, error) {
	args := []string{"pool", "create", "--size=" + size}
	if len(ranks) > 0 {
		args = append(args, "--ranks="+JoinRanks(ranks))
	}
	if label != "" {
		args = append(args, label)
	}
	var pool Pool
	if err := d.query(ctx, &pool, args...); err != nil {
		return nil, err
	}
	if pool.Label == "" {
		pool.Label = label
	}
	return &pool, nil
}

// PoolQuery queries pool state and layout versions.
func (d *Dmg) PoolQuery(ctx context.Context, pool string) (*PoolInfo, error) {
	var info PoolInfo
	if err := d.query(ctx, &info, "pool", "query", pool); err != nil {
		return nil, err
	}
	return &info, nil
}

// PoolList lists pools.
func (d *Dmg) PoolList(ctx context.Context, verbose bool) ([]Pool, error) {
	args := []string{"pool", "list"}
	if verbose {
		args = append(args, "--verbose")
	}
	var resp struct {
		Pools []Pool `json:"pools"`
	}
	if err := d.query(ctx, &resp, args...); err != nil {
		return nil, err
	}
	return resp.Pools, nil
}

// PoolGetProp returns pool properties, all of them when names is empty.
func (d *Dmg) PoolGetProp(ctx context.Context, pool string, names ...string) ([]Property, error) {
	args := []string{"pool", "get-prop", pool}
	if len(names) > 0 {
		args = append(args, strings.Join(names, ","))
	}
	var props []Property
	if err := d.query(ctx, &props, args...); err != nil {
		return nil, err
	}
	return props, nil
}

// PoolProp returns the value of a single pool property.
func (d *Dmg) PoolProp(ctx context.Context, pool, name string) (string, error) {
	props, err := d.PoolGetProp(ctx, pool, name)
	if err != nil {
		return "", err
	}
	for _, p := range props {
		if p.Name == name {
			return p.StringValue(), nil
		}
	}
	return "", newFailure(d.Command(true, "pool", "get-prop", pool, name), 0, "",
		"Property '%s' missing from pool %s", name, pool)
}

// PoolUpgrade starts a pool layout upgrade.
func (d *Dmg) PoolUpgrade(ctx context.Context, pool string) error {
	return d.query(ctx, nil, "pool", "upgrade", pool)
}

// PoolDestroy destroys a pool.
func (d *Dmg) PoolDestroy(ctx context.Context, pool string, force, recursive bool) error {
	args := []string{"pool", "destroy", pool}
	if force {
		args = append(args, "--force")
	}
	if recursive {
		args = append(args, "--recursive")
	}
	return d.query(ctx, nil, args...)
}

// StorageQueryUsage reports per-host storage usage.
func (d *Dmg) StorageQueryUsage(ctx context.Context) ([]HostStorage, error) {
	var resp struct {
		HostStorage map[string]HostStorage `json:"HostStorage"`
	}
	if err := d.query(ctx, &resp, "storage", "query", "usage"); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(resp.HostStorage))
	for k := range resp.HostStorage {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]HostStorage, 0, len(keys))
	for _, k := range keys {
		out = append(out, resp.HostStorage[k])
	}
	return out, nil
}

// Version returns the tool version from "dmg version".
func (d *Dmg) Version(ctx context.Context) (string, error) {
	result, err := d.run(ctx, d.Command(false, "version"))
	if err != nil {
		return "", err
	}
	return versionFromOutput(result), nil
}

// HostRanks maps each host in hosts to its sorted ranks.
func HostRanks(members []Member, hosts nodeset.NodeSet) map[string][]int {
	out := make(map[string][]int)
	for _, m := range members {
		h := m.Host()
		if hosts.IsEmpty() || hosts.Contains(h) {
			out[h] = append(out[h], m.Rank)
		}
	}
	for _, ranks := range out {
		sort.Ints(ranks)
	}
	return out
}

// JoinRanks renders ranks as "0,1,2".
func JoinRanks(ranks []int) string {
	parts := make([]string, len(ranks))
	for i, r := range ranks {
		parts[i] = strconv.Itoa(r)
	}
	return strings.Join(parts, ",")
}

