package cores

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExeNameFromGDB(t *testing.T) {
	tests := []struct {
		line    string
		want    string
		wantErr bool
	}{
		{"Core was generated by `/usr/bin/daos_engine -o /etc/daos/daos_server.yml'.", "/usr/bin/daos_engine", false},
		{"Core was generated by `/usr/bin/dfuse'.", "/usr/bin/dfuse", false},
		{"exe = '/usr/bin/daos_agent'", "/usr/bin/daos_agent", false},
		{"exe = '/usr/bin/ior -a DFS'", "/usr/bin/ior", false},
		{"Program terminated with signal SIGSEGV", "", true},
		{"exe = ''", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ExeNameFromGDB(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
