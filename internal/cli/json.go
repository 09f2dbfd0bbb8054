package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/rileyhilliard/ftest/internal/errors"
)

// JSONEnvelope is the shape of every --json document: success, then
// either data or error.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound    = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid     = "CONFIG_INVALID"
	ErrCodeSSHConnectionFail = "SSH_CONNECTION_FAILED"
	ErrCodeLockHeld          = "LOCK_HELD"
	ErrCodeCommandFailed     = "COMMAND_FAILED"
	ErrCodeVerifyFailed      = "VERIFY_FAILED"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeDependencyMissing = "DEPENDENCY_MISSING"
	ErrCodeUnknown           = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONResult writes data with success set by passed.
func WriteJSONResult(w io.Writer, passed bool, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: passed, Data: data})
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: false, Error: ErrorToJSON(err)})
}

func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON keeps the message and suggestion of an *errors.Error. Other
// errors come out as UNKNOWN.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var ftErr *errors.Error
	if stderrors.As(err, &ftErr) {
		return &JSONError{
			Code:       mapErrorCode(ftErr.Code, ftErr.Message),
			Message:    ftErr.Message,
			Suggestion: ftErr.Suggestion,
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// jsonCodes maps internal error codes onto the codes scripts match on.
// ErrConfig is split by mapErrorCode.
var jsonCodes = map[string]string{
	errors.ErrSSH:     ErrCodeSSHConnectionFail,
	errors.ErrLock:    ErrCodeLockHeld,
	errors.ErrExec:    ErrCodeCommandFailed,
	errors.ErrRemote:  ErrCodeCommandFailed,
	errors.ErrVerify:  ErrCodeVerifyFailed,
	errors.ErrTimeout: ErrCodeTimeout,
	errors.ErrInstall: ErrCodeDependencyMissing,
}

func mapErrorCode(internalCode, message string) string {
	if internalCode == errors.ErrConfig {
		msg := strings.ToLower(message)
		if strings.Contains(msg, "not found") || strings.Contains(msg, "couldn't find") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	}
	if code, ok := jsonCodes[internalCode]; ok {
		return code
	}
	return ErrCodeUnknown
}
