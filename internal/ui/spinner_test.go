package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpinner_Run(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "Waiting for pool upgrade", false)

	err := s.Run(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, SpinnerSuccess, s.State())
	assert.True(t, strings.HasPrefix(buf.String(), SymbolComplete+" Waiting for pool upgrade "))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))

	buf.Reset()
	s = NewSpinner(&buf, "Generating stack traces", false)
	err = s.Run(func() error { return errors.New("gdb failed") })
	assert.EqualError(t, err, "gdb failed")
	assert.Equal(t, SpinnerFailed, s.State())
	assert.Contains(t, buf.String(), SymbolFail+" Generating stack traces")
}

func TestSpinner_Animated(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "Installing", true)
	s.Start()
	s.Start()
	s.SetLabel("Installed")
	s.Skip()

	assert.Equal(t, SpinnerSkipped, s.State())
	out := buf.String()
	assert.Contains(t, out, "Installing...")
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Contains(t, out, SymbolSkipped+" Installed")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{50 * time.Millisecond, "0.05s"},
		{1200 * time.Millisecond, "1.2s"},
		{72 * time.Second, "1m12s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.d))
		})
	}
}
