package daos

import (
	"context"
	"sort"
	"strings"

	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
	"github.com/rileyhilliard/ftest/internal/version"
)

// Client versions at which the tools changed their command line.
const (
	AttrListVersion         = "2.3.107"
	DestroyRecursiveVersion = "2.3.101"
)

// SupportsAttrList reports whether "daos pool set-attr" accepts a
// name:value list.
func SupportsAttrList(client version.Version) bool {
	return client.AtLeast(AttrListVersion)
}

// SupportsDestroyRecursive reports whether pools are destroyed with
// --recursive.
func SupportsDestroyRecursive(client version.Version) bool {
	return client.AtLeast(DestroyRecursiveVersion)
}

// SupportsPositionalLabel reports whether "daos container create" takes
// the label as a positional argument.
func SupportsPositionalLabel(client version.Version) bool {
	return client.Between("2.2.1", "2.3.0") || client.AtLeast("2.3.101")
}

// Container describes a container to create.
type Container struct {
	Pool       string
	Label      string
	Type       string
	Properties string
	UUID       string
}

// Daos runs the client tool on a single host.
type Daos struct {
	tool
	// ClientVersion selects between command-line forms. A zero version
	// uses the newest forms.
	ClientVersion version.Version
}

// NewDaos returns a Daos running on the first host of hosts.
func NewDaos(runner remote.Runner, hosts nodeset.NodeSet, opts ToolOptions, log logger.Logger) *Daos {
	if log == nil {
		log = logger.Noop()
	}
	if opts.Path == "" {
		opts.Path = "daos"
	}
	return &Daos{tool: tool{runner: runner, host: hosts.Slice(0, 1), opts: opts, log: log}}
}

// Host is the node set the commands run on.
func (d *Daos) Host() nodeset.NodeSet { return d.host }

func (d *Daos) newest() bool { return d.ClientVersion.IsZero() }

// Command builds a full daos command line.
func (d *Daos) Command(jsonOut bool, args ...string) string {
	parts := []string{d.opts.Path}
	if jsonOut {
		parts = append(parts, "-j")
	}
	return strings.Join(append(parts, args...), " ")
}

// PoolQuery queries a pool from the client side.
func (d *Daos) PoolQuery(ctx context.Context, pool string) (*PoolInfo, error) {
	var info PoolInfo
	if err := d.runJSON(ctx, d.Command(true, "pool", "query", pool), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SetAttrCommands returns the commands setting attrs on pool, a single
// sorted name:value list when supported and one command per attribute
// otherwise.
func (d *Daos) SetAttrCommands(pool string, attrs map[string]string) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	if d.newest() || SupportsAttrList(d.ClientVersion) {
		pairs := make([]string, len(names))
		for i, name := range names {
			pairs[i] = name + ":" + attrs[name]
		}
		return []string{d.Command(false, "pool", "set-attr", pool, strings.Join(pairs, ","))}
	}
	cmds := make([]string, len(names))
	for i, name := range names {
		cmds[i] = d.Command(false, "pool", "set-attr", pool, `"`+name+`"`, `"`+attrs[name]+`"`)
	}
	return cmds
}

// PoolSetAttrs sets pool attributes.
func (d *Daos) PoolSetAttrs(ctx context.Context, pool string, attrs map[string]string) error {
	for _, cmd := range d.SetAttrCommands(pool, attrs) {
		if _, err := d.run(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// PoolListAttrs lists pool attributes from the verbose text output. The
// JSON form is not stable across versions.
func (d *Daos) PoolListAttrs(ctx context.Context, pool string) (map[string]string, error) {
	cmd := d.Command(false, "pool", "list-attrs", pool, "--verbose")
	command := remote.CommandAsUser(cmd, d.opts.User)
	result, err := d.runner.Run(ctx, d.host, command, d.runOpts()...)
	if err != nil {
		return nil, err
	}
	if !result.Passed() {
		return nil, newFailure(command, exitCode(result), combinedOutput(result), "Failed to list pool attributes")
	}
	attrs := make(map[string]string)
	for _, h := range result.Hosts {
		for k, v := range ParseAttrs(h.Stdout) {
			attrs[k] = v
		}
	}
	return attrs, nil
}

// ParseAttrs parses "daos pool list-attrs --verbose" output: three header
// lines followed by "name value" rows.
func ParseAttrs(lines []string) map[string]string {
	attrs := make(map[string]string)
	if len(lines) <= 3 {
		return attrs
	}
	for _, line := range lines[3:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, val, _ := strings.Cut(line, " ")
		attrs[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return attrs
}

// ContainerCreateCommand builds the create command for c, passing the
// label in the properties for clients without positional labels.
func (d *Daos) ContainerCreateCommand(c Container) string {
	args := []string{"container", "create", c.Pool}
	props := c.Properties
	if d.newest() || SupportsPositionalLabel(d.ClientVersion) {
		if c.Label != "" {
			args = append(args, c.Label)
		}
	} else if c.Label != "" {
		props = strings.Join(nonEmpty(props, "label:"+c.Label), ",")
	}
	if c.Type != "" {
		args = append(args, "--type", c.Type)
	}
	if props != "" {
		args = append(args, "--properties", "'"+props+"'")
	}
	return d.Command(true, args...)
}

// ContainerCreate creates c and records its UUID.
func (d *Daos) ContainerCreate(ctx context.Context, c *Container) error {
	var resp struct {
		UUID string `json:"container_uuid"`
	}
	if err := d.runJSON(ctx, d.ContainerCreateCommand(*c), &resp); err != nil {
		return err
	}
	c.UUID = resp.UUID
	return nil
}

// ContainerDestroy destroys a container.
func (d *Daos) ContainerDestroy(ctx context.Context, pool, container string, force bool) error {
	args := []string{"container", "destroy", pool, container}
	if force {
		args = append(args, "--force")
	}
	return d.runJSON(ctx, d.Command(true, args...), nil)
}

// Version returns the tool version from "daos version".
func (d *Daos) Version(ctx context.Context) (string, error) {
	result, err := d.run(ctx, d.Command(false, "version"))
	if err != nil {
		return "", err
	}
	return versionFromOutput(result), nil
}

func nonEmpty(items ...string) []string {
	var out []string
	for _, s := range items {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
