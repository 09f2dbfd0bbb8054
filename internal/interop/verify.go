package interop

import (
	"context"
	"fmt"
	"strings"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
)

func failf(format string, args ...interface{}) error {
	return errors.New(errors.ErrVerify, fmt.Sprintf(format, args...), "")
}

// VerifyCommand runs cmd on hosts. A positive check needs every host to
// pass. A negative check needs every host to fail with expErr in its output.
func (h *Harness) VerifyCommand(ctx context.Context, step string, hosts nodeset.NodeSet, cmd string, positive bool, agentServer, expErr string) error {
	kind := "Positive_test"
	if !positive {
		kind = "Negative_test"
	}
	h.Log.Info("==(%s)%s: %s, on %s", step, kind, cmd, agentServer)

	result, err := h.Runner.Run(ctx, hosts, cmd, remote.WithVerbose(true))
	if err != nil {
		return err
	}
	if positive {
		if !result.Passed() {
			return failf("##(%s)Test failed, %s, on %s", step, cmd, agentServer)
		}
	} else {
		if !result.PassedHosts().IsEmpty() {
			return failf("##(%s)Test failed, %s, on %s", step, cmd, agentServer)
		}
		for _, stdout := range result.AllStdout() {
			if !strings.Contains(stdout, expErr) {
				return failf("##(%s)Test failed, %s, on %s, expect_err %s not shown on stdout",
					step, cmd, agentServer, expErr)
			}
		}
	}
	h.Log.Info("==(%s)Test passed, %s, on %s", step, cmd, agentServer)
	return nil
}
