// Package daos drives the storage system through its command-line tools:
// dmg for administration, daos for clients, plus ior, dfuse and the
// systemd units of the server and agent.
package daos

import (
	stderrors "errors"
	"fmt"

	"github.com/rileyhilliard/ftest/internal/errors"
)

// CommandFailure describes a tool invocation that did not succeed: it
// failed or timed out on a host, its JSON status was non-zero, or its
// output held a bad keyword.
type CommandFailure struct {
	Command string
	Status  int
	Reason  string
	Output  string
}

func (e *CommandFailure) Error() string {
	if e.Output == "" {
		return e.Reason
	}
	return e.Reason + ": " + e.Output
}

func newFailure(command string, status int, output, format string, args ...interface{}) error {
	cf := &CommandFailure{
		Command: command,
		Status:  status,
		Reason:  fmt.Sprintf(format, args...),
		Output:  output,
	}
	return errors.WrapWithCode(cf, errors.ErrRemote, cf.Reason, "")
}

// AsCommandFailure extracts the CommandFailure from err.
func AsCommandFailure(err error) (*CommandFailure, bool) {
	var cf *CommandFailure
	if stderrors.As(err, &cf) {
		return cf, true
	}
	return nil, false
}
