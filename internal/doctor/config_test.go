package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".ftest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestConfigFileCheck(t *testing.T) {
	path := writeConfig(t, "version: 1\n")

	res := (&ConfigFileCheck{ConfigPath: path}).Run(context.Background())
	assert.Equal(t, StatusPass, res.Status)
	assert.Equal(t, "Config file: .ftest.yaml", res.Message)

	res = (&ConfigFileCheck{ConfigPath: filepath.Join(t.TempDir(), "nope.yaml")}).Run(context.Background())
	assert.Equal(t, StatusFail, res.Status)
	assert.Contains(t, res.Message, "Specified config file not found")
}

func TestConfigValidCheck(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus CheckStatus
		wantMsg    string
	}{
		{
			name:       "valid cluster",
			body:       "hosts:\n  servers: wolf-[1-3]\n  clients: wolf-[4-5]\n",
			wantStatus: StatusPass,
			wantMsg:    "Servers wolf-[1-3], clients wolf-[4-5]",
		},
		{
			name:       "no clients",
			body:       "hosts:\n  servers: wolf-[1-3]\n",
			wantStatus: StatusFail,
			wantMsg:    "hosts.clients is empty - list the clients like 'wolf-[1-3]'",
		},
		{
			name:       "broken yaml",
			body:       "hosts: [\n",
			wantStatus: StatusFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := &ConfigValidCheck{ConfigPath: writeConfig(t, tt.body)}
			res := check.Run(context.Background())
			assert.Equal(t, tt.wantStatus, res.Status)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, res.Message)
			}
		})
	}
}
