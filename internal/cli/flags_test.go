package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/ftest/internal/errors"
)

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		want    time.Duration
		wantErr bool
	}{
		{name: "empty string returns zero", flag: "", want: 0},
		{name: "valid seconds", flag: "5s", want: 5 * time.Second},
		{name: "valid minutes", flag: "2m", want: 2 * time.Minute},
		{name: "valid complex duration", flag: "1m30s", want: 90 * time.Second},
		{name: "missing unit", flag: "5", wantErr: true},
		{name: "invalid string", flag: "fast", wantErr: true},
		{name: "negative duration", flag: "-5s", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeout(tt.flag)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHosts(t *testing.T) {
	hosts, err := ParseHosts("wolf-[1-3],boro-7")
	require.NoError(t, err)
	assert.Equal(t, 4, hosts.Len())

	_, err = ParseHosts("")
	assert.Error(t, err)

	_, err = ParseHosts("wolf-[3-1")
	assert.Error(t, err)
}
