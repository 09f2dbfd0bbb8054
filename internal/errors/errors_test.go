package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrSSH,
		ErrExec,
		ErrLock,
		ErrRemote,
		ErrCore,
		ErrTags,
		ErrInstall,
		ErrVerify,
		ErrTimeout,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		message    string
		suggestion string
	}{
		{
			name:       "config error",
			code:       ErrConfig,
			message:    "Invalid configuration in .ftest.yaml",
			suggestion: "Check your configuration file syntax",
		},
		{
			name:       "install error",
			code:       ErrInstall,
			message:    "Failed to install version 2.4.0 on servers",
			suggestion: "Check the dnf repositories on the servers",
		},
		{
			name:       "core error",
			code:       ErrCore,
			message:    "Errors detected processing core files",
			suggestion: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.suggestion)

			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.suggestion, err.Suggestion)
			assert.Nil(t, err.Cause)
		})
	}
}

func TestError_Format(t *testing.T) {
	cause := fmt.Errorf("exit status 1")
	err := WrapWithCode(cause, ErrRemote, "dmg pool query failed", "Check the servers are running")

	msg := err.Error()
	lines := strings.Split(msg, "\n")
	assert.Equal(t, "✗ dmg pool query failed", lines[0])
	assert.Contains(t, msg, "exit status 1")
	assert.Contains(t, msg, "Check the servers are running")
}

func TestWrap_DefaultsToExec(t *testing.T) {
	err := Wrap(fmt.Errorf("boom"), "failed")
	assert.Equal(t, ErrExec, err.Code)
	assert.True(t, IsCode(err, ErrExec))
}

func TestVerify(t *testing.T) {
	err := Verify("pool attrs do not match: %d != %d", 3, 4)
	assert.Equal(t, ErrVerify, err.Code)
	assert.Equal(t, "pool attrs do not match: 3 != 4", err.Message)
}

func TestIsCode(t *testing.T) {
	base := New(ErrTimeout, "timed out", "")
	wrapped := fmt.Errorf("outer: %w", base)

	assert.True(t, IsCode(base, ErrTimeout))
	assert.True(t, IsCode(wrapped, ErrTimeout))
	assert.False(t, IsCode(wrapped, ErrConfig))
	assert.False(t, IsCode(nil, ErrTimeout))
	assert.False(t, IsCode(errors.New("plain"), ErrTimeout))
}

func TestUnwrap(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := WrapWithCode(sentinel, ErrSSH, "dial failed", "")
	assert.True(t, errors.Is(err, sentinel))
}

func TestJoin(t *testing.T) {
	assert.Nil(t, Join(ErrCore, "nothing", nil, nil))

	a := errors.New("a failed")
	b := errors.New("b failed")
	err := Join(ErrCore, "two failures", a, nil, b)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCore))
	assert.True(t, errors.Is(err, a))
	assert.True(t, errors.Is(err, b))
}
