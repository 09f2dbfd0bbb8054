package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandRemote(t *testing.T) {
	t.Setenv("USER", "daos_tester")
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"HOME expands to tilde", "${HOME}/ftest/locks", "~/ftest/locks"},
		{"PROJECT expands", "/tmp/${PROJECT}", "/tmp/" + getProject()},
		{"USER expands", "/tmp/ftest-${USER}", "/tmp/ftest-daos_tester"},
		{"tilde unchanged", "~/locks", "~/locks"},
		{"absolute path unchanged", "/var/tmp/daos_testing", "/var/tmp/daos_testing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpandRemote(tt.input))
		})
	}
}

func TestExpand(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv("USER", "daos_tester")

	assert.Equal(t, home+"/ftest", Expand("${HOME}/ftest"))
	assert.Equal(t, "/tmp/daos_tester/"+getProject(), Expand("/tmp/${USER}/${PROJECT}"))
	assert.Equal(t, "no variables", Expand("no variables"))
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	assert.Equal(t, home, ExpandTilde("~"))
	assert.Equal(t, filepath.Join(home, "tags.yaml"), ExpandTilde("~/tags.yaml"))
	assert.Equal(t, "~other/tags.yaml", ExpandTilde("~other/tags.yaml"))
	assert.Equal(t, "/abs", ExpandTilde("/abs"))
}
