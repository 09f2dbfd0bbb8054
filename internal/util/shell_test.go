package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellQuote(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "''"},
		{"/tmp/ftest-lock/ftest-cluster.lock", "'/tmp/ftest-lock/ftest-cluster.lock'"},
		{"pool_rank_1_a", "'pool_rank_1_a'"},
		{"/mnt/daos 0", "'/mnt/daos 0'"},
		{"it's", `'it'\''s'`},
		{"$HOME/core.*", "'$HOME/core.*'"},
		{"$(rm -rf /)", "'$(rm -rf /)'"},
		{"`id`", "'`id`'"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ShellQuote(tt.input))
		})
	}
}
