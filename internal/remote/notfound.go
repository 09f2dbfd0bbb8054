package remote

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rileyhilliard/ftest/internal/errors"
)

// commandNotFoundPatterns extract the missing program from shell errors.
// They apply only to exit status 127.
var commandNotFoundPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bash: (\S+): command not found`),
	regexp.MustCompile(`(?i)sh: \d+: (\S+): not found`),
	regexp.MustCompile(`(?i)sh: (\S+): not found`),
	regexp.MustCompile(`(?i)sudo: (\S+): command not found`),
	regexp.MustCompile(`(?i)(\S+): command not found`),
}

// IsCommandNotFound reports whether the output of a failed command means the
// program itself was missing, and which program it was if that can be told.
func IsCommandNotFound(stderr string, exitCode int) (string, bool) {
	if exitCode != 127 {
		return "", false
	}
	for _, pattern := range commandNotFoundPatterns {
		if m := pattern.FindStringSubmatch(stderr); len(m) > 1 {
			return strings.TrimSuffix(m[1], ":"), true
		}
	}
	return "", true
}

// HandleExecError turns a failed command into an EXEC error. A missing
// program gets an install hint; anything else carries the exit status and
// the last stderr line.
func HandleExecError(command, stderr string, exitCode int) error {
	if name, missing := IsCommandNotFound(stderr, exitCode); missing {
		if name == "" {
			if fields := strings.Fields(command); len(fields) > 0 {
				name = fields[0]
			} else {
				name = "command"
			}
		}
		return errors.New(errors.ErrExec,
			fmt.Sprintf("'%s' not found in PATH", name),
			fmt.Sprintf("Install the package providing '%s' or check the PATH of the non-interactive shell. `ftest doctor` lists missing tools.", name))
	}

	detail := ""
	if lines := SplitLines([]byte(stderr)); len(lines) > 0 {
		detail = lines[len(lines)-1]
	}
	err := errors.Newf(errors.ErrExec, "Command failed with exit status %d: %s", exitCode, command)
	if detail != "" {
		err.Suggestion = detail
	}
	return err
}
