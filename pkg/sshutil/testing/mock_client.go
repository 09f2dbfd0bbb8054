package testing

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	ftesterrors "github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/pkg/sshutil"
)

// CommandResponse is a canned result for commands matching a pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
	// Delay holds the command open, so ExecContext deadlines can be tested.
	Delay time.Duration
}

// Output is a convenience constructor for a successful response.
func Output(stdout string) CommandResponse {
	return CommandResponse{Stdout: []byte(stdout)}
}

// Failure is a convenience constructor for a failed response.
func Failure(exitCode int, stderr string) CommandResponse {
	return CommandResponse{ExitCode: exitCode, Stderr: []byte(stderr)}
}

type patternResponse struct {
	pattern string
	re      *regexp.Regexp
	resp    CommandResponse
}

// MockClient simulates an SSH connection. Commands are matched against
// registered responses (exact text first, then regex in registration
// order); unmatched mkdir/cat/rm/test commands run against the MockFS; any
// other command succeeds with no output.
type MockClient struct {
	mu       sync.Mutex
	host     string
	fs       *MockFS
	closed   bool
	exact    map[string]CommandResponse
	patterns []patternResponse
	commands []string
	fallback *CommandResponse
}

var _ sshutil.SSHClient = (*MockClient)(nil)

// NewMockClient creates a mock connection to host with an empty filesystem.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:  host,
		fs:    NewMockFS(),
		exact: make(map[string]CommandResponse),
	}
}

// SetCommandResponse registers resp for a command. pattern is tried as an
// exact command first and as a regular expression otherwise.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exact[pattern] = resp
	if re, err := regexp.Compile(pattern); err == nil {
		m.patterns = append(m.patterns, patternResponse{pattern: pattern, re: re, resp: resp})
	}
}

// SetDefaultResponse replaces the filesystem fallback for unmatched commands.
func (m *MockClient) SetDefaultResponse(resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &resp
}

// Commands returns every command executed so far.
func (m *MockClient) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

// FS returns the virtual filesystem.
func (m *MockClient) FS() *MockFS {
	return m.fs
}

// Exec runs cmd with no deadline.
func (m *MockClient) Exec(cmd string) ([]byte, []byte, int, error) {
	return m.ExecContext(context.Background(), cmd)
}

// ExecContext resolves cmd to a response, honoring Delay and ctx.
func (m *MockClient) ExecContext(ctx context.Context, cmd string) ([]byte, []byte, int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, -1, errors.New("connection closed")
	}
	m.commands = append(m.commands, cmd)
	resp, matched := m.lookupLocked(cmd)
	m.mu.Unlock()

	if !matched {
		resp = m.runFS(cmd)
	}

	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, nil, -1, ftesterrors.WrapWithCode(ctx.Err(), ftesterrors.ErrTimeout,
				fmt.Sprintf("Command timed out on %s: %s", m.host, cmd), "")
		}
	}
	return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
}

func (m *MockClient) lookupLocked(cmd string) (CommandResponse, bool) {
	if resp, ok := m.exact[cmd]; ok {
		return resp, true
	}
	for _, p := range m.patterns {
		if p.re.MatchString(cmd) {
			return p.resp, true
		}
	}
	if m.fallback != nil {
		return *m.fallback, true
	}
	return CommandResponse{}, false
}

// Alive reports false once the client is closed.
func (m *MockClient) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Close marks the connection closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string { return m.host }

// GetAddress returns host:22.
func (m *MockClient) GetAddress() string { return m.host + ":22" }

// runFS interprets the handful of commands the lock package sends.
func (m *MockClient) runFS(cmd string) CommandResponse {
	cmd = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(cmd), "2>/dev/null"))

	switch {
	case strings.HasPrefix(cmd, "mkdir -p "):
		if err := m.fs.MkdirAll(firstArg(cmd[len("mkdir -p "):])); err != nil {
			return Failure(1, "mkdir: "+err.Error())
		}
	case strings.HasPrefix(cmd, "mkdir "):
		path := firstArg(cmd[len("mkdir "):])
		if err := m.fs.Mkdir(path); err != nil {
			return Failure(1, fmt.Sprintf("mkdir: cannot create directory '%s': %s", path, err))
		}
	case strings.HasPrefix(cmd, "cat >"):
		return m.writeHeredoc(cmd)
	case strings.HasPrefix(cmd, "cat "):
		path := firstArg(cmd[len("cat "):])
		content, err := m.fs.ReadFile(path)
		if err != nil {
			return Failure(1, fmt.Sprintf("cat: %s: No such file or directory", path))
		}
		return CommandResponse{Stdout: content}
	case strings.HasPrefix(cmd, "rm -rf "):
		m.fs.Remove(firstArg(cmd[len("rm -rf "):]))
	case strings.HasPrefix(cmd, "test -d "):
		if !m.fs.IsDir(firstArg(cmd[len("test -d "):])) {
			return CommandResponse{ExitCode: 1}
		}
	case strings.HasPrefix(cmd, "test -f "):
		if !m.fs.IsFile(firstArg(cmd[len("test -f "):])) {
			return CommandResponse{ExitCode: 1}
		}
	}
	return CommandResponse{}
}

// writeHeredoc handles: cat > "path" << 'MARKER'\ncontent\nMARKER
func (m *MockClient) writeHeredoc(cmd string) CommandResponse {
	rest := strings.TrimSpace(strings.TrimPrefix(cmd, "cat >"))
	target, body, hasBody := strings.Cut(rest, "<<")
	path := firstArg(target)
	if path == "" {
		return Failure(1, "cat: missing output file")
	}
	if !hasBody {
		_ = m.fs.WriteFile(path, nil)
		return CommandResponse{}
	}

	header, content, _ := strings.Cut(body, "\n")
	marker := strings.Trim(strings.TrimSpace(header), `'"`)
	if marker != "" {
		if idx := strings.LastIndex(content, marker); idx != -1 {
			content = content[:idx]
		}
	}
	_ = m.fs.WriteFile(path, []byte(strings.TrimSuffix(content, "\n")))
	return CommandResponse{}
}

// firstArg returns the first shell word of s, unquoting "..." or '...'.
func firstArg(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range []string{`"`, `'`} {
		if strings.HasPrefix(s, q) {
			if end := strings.Index(s[1:], q); end != -1 {
				return s[1 : end+1]
			}
		}
	}
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
