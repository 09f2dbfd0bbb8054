package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/ftest/internal/errors"
)

func decodeEnvelope(t *testing.T, buf *bytes.Buffer) JSONEnvelope {
	t.Helper()
	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	return env
}

func TestWriteJSONSuccess_BasicData(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONSuccess(&buf, map[string]string{"key": "value"}))

	env := decodeEnvelope(t, &buf)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	dataMap, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "value", dataMap["key"])
}

func TestWriteJSONResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONResult(&buf, false, []string{"wolf-3"}))

	env := decodeEnvelope(t, &buf)
	assert.False(t, env.Success)
	assert.Nil(t, env.Error)
	assert.Equal(t, []interface{}{"wolf-3"}, env.Data)
}

func TestWriteJSONFromError_NilError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONFromError(&buf, nil))

	env := decodeEnvelope(t, &buf)
	assert.False(t, env.Success)
	assert.Nil(t, env.Error)
}

func TestWriteJSONFromError_StructuredError(t *testing.T) {
	var buf bytes.Buffer
	ftErr := errors.New(errors.ErrConfig, "Config file not found", "Create .ftest.yaml, or specify one with --config")
	require.NoError(t, WriteJSONFromError(&buf, ftErr))

	env := decodeEnvelope(t, &buf)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeConfigNotFound, env.Error.Code)
	assert.Equal(t, "Config file not found", env.Error.Message)
	assert.Equal(t, "Create .ftest.yaml, or specify one with --config", env.Error.Suggestion)
}

func TestWriteJSONFromError_WrappedStructuredError(t *testing.T) {
	var buf bytes.Buffer
	inner := errors.New(errors.ErrSSH, "Connection refused", "Check if SSH server is running")
	require.NoError(t, WriteJSONFromError(&buf, fmt.Errorf("failed to connect: %w", inner)))

	env := decodeEnvelope(t, &buf)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeSSHConnectionFail, env.Error.Code)
}

func TestErrorToJSON_GenericError(t *testing.T) {
	assert.Nil(t, ErrorToJSON(nil))

	result := ErrorToJSON(fmt.Errorf("generic error message"))
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeUnknown, result.Code)
	assert.Equal(t, "generic error message", result.Message)
	assert.Empty(t, result.Suggestion)
}

func TestErrorToJSON_AllInternalErrorCodes(t *testing.T) {
	tests := []struct {
		internalCode string
		message      string
		wantCode     string
	}{
		{errors.ErrConfig, "Config file not found", ErrCodeConfigNotFound},
		{errors.ErrConfig, "Couldn't find config file", ErrCodeConfigNotFound},
		{errors.ErrConfig, "Failed to parse config", ErrCodeConfigInvalid},
		{errors.ErrSSH, "SSH connection failed", ErrCodeSSHConnectionFail},
		{errors.ErrLock, "Timed out waiting for lock", ErrCodeLockHeld},
		{errors.ErrExec, "Command failed", ErrCodeCommandFailed},
		{errors.ErrRemote, "dmg pool create failed", ErrCodeCommandFailed},
		{errors.ErrVerify, "Pool attributes differ", ErrCodeVerifyFailed},
		{errors.ErrTimeout, "TIMEOUT detected after 5m0s", ErrCodeTimeout},
		{errors.ErrInstall, "dnf install failed", ErrCodeDependencyMissing},
		{errors.ErrTags, "Can't parse file", ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.internalCode+"/"+tt.message, func(t *testing.T) {
			result := ErrorToJSON(errors.New(tt.internalCode, tt.message, "some suggestion"))
			require.NotNil(t, result)
			assert.Equal(t, tt.wantCode, result.Code)
			assert.Equal(t, tt.message, result.Message)
		})
	}
}

func TestJSONError_OmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(JSONError{Code: ErrCodeUnknown, Message: "boom"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "suggestion")
}

func TestWriteJSONEnvelope_Formatting(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONSuccess(&buf, map[string]string{"test": "value"}))

	output := buf.String()
	assert.Contains(t, output, "\n  ")
	assert.True(t, output[len(output)-1] == '\n')
}

func TestErrorCodes_AreUnique(t *testing.T) {
	codes := []string{
		ErrCodeConfigNotFound,
		ErrCodeConfigInvalid,
		ErrCodeSSHConnectionFail,
		ErrCodeLockHeld,
		ErrCodeCommandFailed,
		ErrCodeVerifyFailed,
		ErrCodeTimeout,
		ErrCodeDependencyMissing,
		ErrCodeUnknown,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.False(t, seen[code], "duplicate error code: %s", code)
		seen[code] = true
		for _, r := range code {
			if r >= 'a' && r <= 'z' {
				t.Errorf("error code %q contains lowercase letter", code)
				break
			}
		}
	}
}
