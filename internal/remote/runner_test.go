package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyOptions(t *testing.T) {
	o := ApplyOptions(WithTimeout(time.Minute), WithStderr(true), WithVerbose(true))
	assert.Equal(t, Options{Timeout: time.Minute, Stderr: true, Verbose: true}, o)
	assert.Equal(t, Options{}, ApplyOptions())
}

func TestCommandAsUser(t *testing.T) {
	tests := []struct {
		user string
		want string
	}{
		{"", "dmg system query"},
		{"root", "sudo -n dmg system query"},
		{"daos_server", "sudo -n -u daos_server dmg system query"},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			assert.Equal(t, tt.want, CommandAsUser("dmg system query", tt.user))
		})
	}
}

func TestCommandWithEnv(t *testing.T) {
	assert.Equal(t, "ior -a HDF5", CommandWithEnv("ior -a HDF5", nil))
	assert.Equal(t,
		"HDF5_PLUGIN_PATH='/usr/lib64/hdf5/plugins' HDF5_VOL_CONNECTOR='daos' ior -a HDF5",
		CommandWithEnv("ior -a HDF5", map[string]string{
			"HDF5_VOL_CONNECTOR": "daos",
			"HDF5_PLUGIN_PATH":   "/usr/lib64/hdf5/plugins",
		}))
}

func TestFindCommand(t *testing.T) {
	assert.Equal(t,
		"find /var/tmp -maxdepth 1 -type f -name 'core.gdb.*.*' -print -delete",
		FindCommand("/var/tmp", "core.gdb.*.*", 1, "-print", "-delete"))
}
