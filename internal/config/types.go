package config

import (
	"time"

	"github.com/rileyhilliard/ftest/internal/nodeset"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .ftest.yaml configuration file.
type Config struct {
	Version        int             `yaml:"version" mapstructure:"version"`
	Hosts          HostsConfig     `yaml:"hosts" mapstructure:"hosts"`
	SSH            SSHConfig       `yaml:"ssh" mapstructure:"ssh"`
	CommandTimeout time.Duration   `yaml:"command_timeout" mapstructure:"command_timeout"`
	Dmg            DmgConfig       `yaml:"dmg" mapstructure:"dmg"`
	Daos           DaosConfig      `yaml:"daos" mapstructure:"daos"`
	Interop        InteropConfig   `yaml:"interop" mapstructure:"interop"`
	Pool           PoolConfig      `yaml:"pool" mapstructure:"pool"`
	Container      ContainerConfig `yaml:"container" mapstructure:"container"`
	Ior            IorConfig       `yaml:"ior" mapstructure:"ior"`
	Dfuse          DfuseConfig     `yaml:"dfuse" mapstructure:"dfuse"`
	Cores          CoresConfig     `yaml:"cores" mapstructure:"cores"`
	Tags           TagsConfig      `yaml:"tags" mapstructure:"tags"`
	Lock           LockConfig      `yaml:"lock" mapstructure:"lock"`
	Output         OutputConfig    `yaml:"output" mapstructure:"output"`
}

// HostsConfig names the cluster in node-set notation, e.g. "wolf-[1-3]".
type HostsConfig struct {
	Servers string `yaml:"servers" mapstructure:"servers"`
	Clients string `yaml:"clients" mapstructure:"clients"`
}

// SSHConfig controls the connections behind remote commands.
type SSHConfig struct {
	// User to log in as. Empty uses ~/.ssh/config or the local user.
	User string `yaml:"user" mapstructure:"user"`

	// Timeout bounds connection setup.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// StrictHostKeyChecking rejects hosts missing from known_hosts.
	StrictHostKeyChecking bool `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`

	// MaxParallel caps concurrent sessions per command. Zero is unlimited.
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel"`
}

// DmgConfig locates the admin tool.
type DmgConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	ConfigFile string `yaml:"config_file" mapstructure:"config_file"`
	// RunHost overrides the host dmg runs on. Defaults to the first server.
	RunHost     string   `yaml:"run_host" mapstructure:"run_host"`
	BadKeywords []string `yaml:"bad_keywords" mapstructure:"bad_keywords"`
}

// DaosConfig locates the client tool.
type DaosConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// InteropConfig drives the upgrade and downgrade scenarios.
type InteropConfig struct {
	OldVersion          string        `yaml:"old_version" mapstructure:"old_version"`
	NewVersion          string        `yaml:"new_version" mapstructure:"new_version"`
	AttrCount           int           `yaml:"attr_count" mapstructure:"attr_count"`
	FaultInjection      bool          `yaml:"fault_injection" mapstructure:"fault_injection"`
	PoolUpgradeTimeout  time.Duration `yaml:"pool_upgrade_timeout" mapstructure:"pool_upgrade_timeout"`
	UpgradePollInterval time.Duration `yaml:"upgrade_poll_interval" mapstructure:"upgrade_poll_interval"`
	JoinTimeout         time.Duration `yaml:"join_timeout" mapstructure:"join_timeout"`
	StopSettle          time.Duration `yaml:"stop_settle" mapstructure:"stop_settle"`
	ServerRestartSettle time.Duration `yaml:"server_restart_settle" mapstructure:"server_restart_settle"`
	RestartSettle       time.Duration `yaml:"restart_settle" mapstructure:"restart_settle"`
	UpgradeSettle       time.Duration `yaml:"upgrade_settle" mapstructure:"upgrade_settle"`
}

// PoolConfig holds the default pool size and the per-namespace pools of
// the space scenario.
type PoolConfig struct {
	Size       string                   `yaml:"size" mapstructure:"size"`
	Namespaces map[string]PoolNamespace `yaml:"namespaces" mapstructure:"namespaces"`
}

// PoolNamespace is one pool created on a subset of ranks.
type PoolNamespace struct {
	Size  string `yaml:"size" mapstructure:"size"`
	Ranks []int  `yaml:"ranks" mapstructure:"ranks"`
}

// ContainerConfig sets how test containers are created.
type ContainerConfig struct {
	Type       string `yaml:"type" mapstructure:"type"`
	Properties string `yaml:"properties" mapstructure:"properties"`
}

// IorConfig sets the IOR runs of the scenarios.
type IorConfig struct {
	API          string        `yaml:"api" mapstructure:"api"`
	BlockSize    string        `yaml:"block_size" mapstructure:"block_size"`
	TransferSize string        `yaml:"transfer_size" mapstructure:"transfer_size"`
	Processes    int           `yaml:"processes" mapstructure:"processes"`
	PPN          int           `yaml:"ppn" mapstructure:"ppn"`
	Flags        string        `yaml:"flags" mapstructure:"flags"`
	WriteFlags   string        `yaml:"write_flags" mapstructure:"write_flags"`
	ReadFlags    string        `yaml:"read_flags" mapstructure:"read_flags"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	TestFile     string        `yaml:"test_file" mapstructure:"test_file"`
	PluginPath   string        `yaml:"plugin_path" mapstructure:"plugin_path"`
}

// DfuseConfig sets where containers are mounted on clients.
type DfuseConfig struct {
	MountDir string `yaml:"mount_dir" mapstructure:"mount_dir"`
}

// CoresConfig controls core file collection after a run.
type CoresConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	Delete  bool `yaml:"delete" mapstructure:"delete"`
	// Ignore maps a test name to executables whose cores it may leave.
	Ignore map[string][]string `yaml:"ignore" mapstructure:"ignore"`
}

// TagsConfig locates the test suites and the core tag map.
type TagsConfig struct {
	FtestDir   string `yaml:"ftest_dir" mapstructure:"ftest_dir"`
	TagMap     string `yaml:"tag_map" mapstructure:"tag_map"`
	BaseBranch string `yaml:"base_branch" mapstructure:"base_branch"`
}

// LockConfig controls the cluster lock that keeps two runs from
// reinstalling the same servers at once.
type LockConfig struct {
	// Enabled toggles locking on/off.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Timeout is how long to wait for a lock before giving up.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Stale is when to consider a lock stale (holder probably crashed).
	Stale time.Duration `yaml:"stale" mapstructure:"stale"`

	// Dir is the directory where lock files are stored on the first server.
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	// "auto" disables color when output is piped.
	Color string `yaml:"color" mapstructure:"color"`

	// Verbosity level: "quiet", "normal", or "verbose".
	Verbosity string `yaml:"verbosity" mapstructure:"verbosity"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:        CurrentConfigVersion,
		CommandTimeout: 2 * time.Minute,
		SSH: SSHConfig{
			Timeout:               10 * time.Second,
			StrictHostKeyChecking: false,
			MaxParallel:           32,
		},
		Dmg:  DmgConfig{Path: "dmg", ConfigFile: "/etc/daos/daos_control.yml"},
		Daos: DaosConfig{Path: "daos"},
		Interop: InteropConfig{
			AttrCount:           20,
			PoolUpgradeTimeout:  5 * time.Minute,
			UpgradePollInterval: 3 * time.Second,
			JoinTimeout:         5 * time.Minute,
			StopSettle:          30 * time.Second,
			ServerRestartSettle: 5 * time.Second,
			RestartSettle:       30 * time.Second,
			UpgradeSettle:       5 * time.Second,
		},
		Pool:      PoolConfig{Size: "80%", Namespaces: map[string]PoolNamespace{}},
		Container: ContainerConfig{Type: "POSIX", Properties: "rf:0"},
		Ior: IorConfig{
			API:          "DFS",
			BlockSize:    "10M",
			TransferSize: "1M",
			PPN:          4,
			WriteFlags:   "-w -W -k -G 1",
			ReadFlags:    "-r -R -k -G 1",
			Timeout:      10 * time.Minute,
			TestFile:     "/testfile",
			PluginPath:   "/usr/lib64/hdf5/plugins",
		},
		Dfuse: DfuseConfig{MountDir: "/tmp/daos_dfuse"},
		Cores: CoresConfig{Enabled: true, Ignore: map[string][]string{}},
		Tags: TagsConfig{
			FtestDir:   "ftest",
			BaseBranch: "origin/master",
		},
		Lock: LockConfig{
			Enabled: true,
			Timeout: 5 * time.Minute,
			Stale:   2 * time.Hour,
			Dir:     "/tmp/ftest-locks",
		},
		Output: OutputConfig{
			Color:     "auto",
			Verbosity: "normal",
		},
	}
}

// Servers parses hosts.servers.
func (c *Config) Servers() (nodeset.NodeSet, error) {
	return nodeset.Parse(c.Hosts.Servers)
}

// Clients parses hosts.clients.
func (c *Config) Clients() (nodeset.NodeSet, error) {
	return nodeset.Parse(c.Hosts.Clients)
}

// DmgHost returns the host dmg runs on: dmg.run_host, else the first server.
func (c *Config) DmgHost() (nodeset.NodeSet, error) {
	if c.Dmg.RunHost != "" {
		return nodeset.Parse(c.Dmg.RunHost)
	}
	servers, err := c.Servers()
	if err != nil {
		return nodeset.NodeSet{}, err
	}
	return servers.Slice(0, 1), nil
}
