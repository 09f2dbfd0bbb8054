package daos

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/nodeset"
	"github.com/rileyhilliard/ftest/internal/remote"
)

// ToolOptions configure how a command-line tool is invoked.
type ToolOptions struct {
	// Path to the executable. Defaults to the tool name.
	Path string
	// User runs the tool through sudo when set.
	User    string
	Timeout time.Duration
	// BadKeywords fail a command whose output contains any of them.
	BadKeywords []string
	Verbose     bool
}

// tool runs one CLI on a fixed host.
type tool struct {
	runner remote.Runner
	host   nodeset.NodeSet
	opts   ToolOptions
	log    logger.Logger
}

// envelope is the JSON wrapper printed by "-j".
type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *string         `json:"error"`
	Status   int             `json:"status"`
}

func (t *tool) runOpts() []remote.RunOption {
	opts := []remote.RunOption{remote.WithStderr(true), remote.WithVerbose(t.opts.Verbose)}
	if t.opts.Timeout > 0 {
		opts = append(opts, remote.WithTimeout(t.opts.Timeout))
	}
	return opts
}

// run executes command and fails unless every host passed and no bad
// keyword appears in the output.
func (t *tool) run(ctx context.Context, command string) (*remote.Result, error) {
	command = remote.CommandAsUser(command, t.opts.User)
	result, err := t.runner.Run(ctx, t.host, command, t.runOpts()...)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrRemote, "Error running '"+command+"'", "")
	}
	output := combinedOutput(result)
	if !result.Passed() {
		if !result.TimeoutHosts().IsEmpty() {
			return result, newFailure(command, -1, output,
				"Timeout detected running '%s' with a %s timeout", command, t.opts.Timeout)
		}
		return result, newFailure(command, exitCode(result), output, "Error occurred running '%s'", command)
	}
	for _, word := range t.opts.BadKeywords {
		if strings.Contains(output, word) {
			return result, newFailure(command, 0, output,
				"<%s> command failed: Error messages detected in output", command)
		}
	}
	return result, nil
}

// runJSON runs a "-j" command and decodes the response into out, which may
// be nil. A non-zero status or error in the envelope is a CommandFailure.
func (t *tool) runJSON(ctx context.Context, command string, out interface{}) error {
	result, runErr := t.run(ctx, command)
	if result == nil {
		return runErr
	}

	env, parseErr := parseEnvelope(result.JoinedStdout())
	if parseErr == nil && (env.Status != 0 || env.Error != nil) {
		msg := ""
		if env.Error != nil {
			msg = *env.Error
		}
		return newFailure(command, env.Status, msg, "'%s' returned status %d", command, env.Status)
	}
	if runErr != nil {
		return runErr
	}
	if parseErr != nil {
		return newFailure(command, 0, result.JoinedStdout(), "Can't decode JSON from '%s': %v", command, parseErr)
	}
	if out == nil || len(env.Response) == 0 || string(env.Response) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return newFailure(command, 0, string(env.Response), "Unexpected response from '%s': %v", command, err)
	}
	return nil
}

// parseEnvelope decodes the first JSON object in text, skipping any log
// lines printed before it.
func parseEnvelope(text string) (envelope, error) {
	var env envelope
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return env, errors.New(errors.ErrRemote, "no JSON object in output", "")
	}
	dec := json.NewDecoder(strings.NewReader(text[start:]))
	if err := dec.Decode(&env); err != nil {
		return env, err
	}
	return env, nil
}

func combinedOutput(r *remote.Result) string {
	var lines []string
	for _, h := range r.Hosts {
		lines = append(lines, h.Stdout...)
		lines = append(lines, h.Stderr...)
	}
	return strings.Join(lines, "\n")
}

func exitCode(r *remote.Result) int {
	for _, h := range r.Hosts {
		if h.ExitCode != 0 {
			return h.ExitCode
		}
	}
	return 0
}

// versionFromOutput returns the last field of "<tool> version 2.4.0".
func versionFromOutput(r *remote.Result) string {
	fields := strings.Fields(r.JoinedStdout())
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
