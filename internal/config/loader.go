package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/rileyhilliard/ftest/internal/errors"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".ftest.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/ftest"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
)

// Load reads config from the specified path. Each params document is merged
// on top of the file, in order; test suites use this for their own yaml.
func Load(path string, params ...[]byte) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Create .ftest.yaml, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}
	if err := mergeParams(v, params); err != nil {
		return nil, err
	}
	return parseConfig(v, path)
}

// LoadBytes reads config from an in-memory YAML document plus params.
func LoadBytes(data []byte, params ...[]byte) (*Config, error) {
	v := newViper()
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to parse config",
			"Check the YAML syntax")
	}
	if err := mergeParams(v, params); err != nil {
		return nil, err
	}
	return parseConfig(v, "<memory>")
}

// keyDelimiter replaces viper's "." so map keys such as test paths in
// cores.ignore survive decoding.
const keyDelimiter = "::"

func key(parts ...string) string { return strings.Join(parts, keyDelimiter) }

func newViper() *viper.Viper {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	v.SetConfigType("yaml")
	setDefaults(v)
	return v
}

func mergeParams(v *viper.Viper, params [][]byte) error {
	for _, p := range params {
		if len(p) == 0 {
			continue
		}
		if err := v.MergeConfig(bytes.NewReader(p)); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to merge test parameters",
				"Check the YAML syntax of the suite's parameter file")
		}
	}
	return nil
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .ftest.yaml in current directory
// 3. .ftest.yaml in parent directories (stops at git root or home)
// 4. ~/.config/ftest/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}
	home, _ := os.UserHomeDir()
	if path := findUpward(cwd, home); path != "" {
		return path, nil
	}

	if home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}
	return "", nil
}

// findUpward looks for ConfigFileName in dir and its parents, stopping at
// a git root, at home, or at the filesystem root.
func findUpward(dir, home string) string {
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		if isGitRoot(dir) {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir || (home != "" && parent == home) {
			return ""
		}
		dir = parent
	}
}

// LoadOrDefault loads config from the found path, or returns defaults if
// none exists.
func LoadOrDefault(explicit string, params ...[]byte) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}
	if path == "" {
		if len(params) == 0 {
			return DefaultConfig(), nil
		}
		return LoadBytes(nil, params...)
	}
	return Load(path, params...)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	// viper's default decode hooks turn "30s" into a time.Duration.
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	cfg.Dmg.ConfigFile = Expand(cfg.Dmg.ConfigFile)
	cfg.Tags.FtestDir = Expand(cfg.Tags.FtestDir)
	cfg.Tags.TagMap = Expand(cfg.Tags.TagMap)
	cfg.Lock.Dir = ExpandRemote(cfg.Lock.Dir)
	cfg.Dfuse.MountDir = ExpandRemote(cfg.Dfuse.MountDir)
	return cfg, nil
}

// setDefaults registers the scalar defaults so merged parameter files only
// override what they name.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(key("version"), d.Version)
	v.SetDefault(key("command_timeout"), d.CommandTimeout.String())
	v.SetDefault(key("ssh", "timeout"), d.SSH.Timeout.String())
	v.SetDefault(key("ssh", "max_parallel"), d.SSH.MaxParallel)
	v.SetDefault(key("lock", "enabled"), d.Lock.Enabled)
	v.SetDefault(key("lock", "timeout"), d.Lock.Timeout.String())
	v.SetDefault(key("lock", "stale"), d.Lock.Stale.String())
	v.SetDefault(key("lock", "dir"), d.Lock.Dir)
	v.SetDefault(key("cores", "enabled"), d.Cores.Enabled)
	v.SetDefault(key("output", "color"), d.Output.Color)
	v.SetDefault(key("output", "verbosity"), d.Output.Verbosity)
}

// isGitRoot checks if a directory is a git repository root.
func isGitRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	if err != nil {
		return false
	}
	return info.IsDir()
}
