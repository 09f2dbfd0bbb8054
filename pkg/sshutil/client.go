package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rileyhilliard/ftest/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Environment overrides used by CI, where no ~/.ssh/config entry exists for
// the test cluster.
const (
	EnvSSHUser = "FTEST_SSH_USER"
	EnvSSHKey  = "FTEST_SSH_KEY"
)

// Client wraps an SSH connection with the names used to reach it.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)
}

// Dial connects to host, which may be an ~/.ssh/config alias, a bare
// hostname, user@hostname, or hostname:port. Settings from ~/.ssh/config
// fill in anything the host string leaves out.
func Dial(host string, timeout time.Duration) (*Client, error) {
	settings := resolveSSHSettings(host)

	config, err := buildClientConfig(settings, timeout)
	if err != nil {
		var ftErr *errors.Error
		if stderrors.As(err, &ftErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't set up SSH for '%s'", host),
			"Check your keys are loaded: ssh-add -l")
	}

	address := settings.address()
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrSSH, hostKeyErr.Error(), hostKeyErr.Suggestion())
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' failed", host),
			suggestionForHandshakeError(err, settings.encryptedKeys))
	}

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    host,
		Address: address,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the original host/alias used to connect.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port address.
func (c *Client) GetAddress() string {
	return c.Address
}

// Alive sends a global keepalive request. Any reply, including a refusal,
// means the transport is still up.
func (c *Client) Alive() bool {
	if c == nil || c.Client == nil {
		return false
	}
	_, _, err := c.Client.SendRequest("keepalive@openssh.com", true, nil)
	return err == nil
}

// sshSettings holds resolved SSH connection parameters.
type sshSettings struct {
	hostname      string
	port          string
	user          string
	identityFile  string
	encryptedKeys []string
}

func (s *sshSettings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSSHSettings splits user@host:port and layers ~/.ssh/config on top.
func resolveSSHSettings(host string) *sshSettings {
	settings := &sshSettings{
		port: "22",
		user: currentUser(),
	}

	explicitUser := false
	if user, rest, found := strings.Cut(host, "@"); found {
		settings.user = user
		host = rest
		explicitUser = true
	}
	if !explicitUser {
		if envUser := os.Getenv(EnvSSHUser); envUser != "" {
			settings.user = envUser
		}
	}

	if idx := strings.LastIndex(host, ":"); idx != -1 && isDigits(host[idx+1:]) {
		settings.port = host[idx+1:]
		host = host[:idx]
	}
	settings.hostname = host

	entry, err := LookupHost(host)
	if err != nil {
		return settings
	}
	if entry.Hostname != "" {
		settings.hostname = entry.Hostname
	}
	if entry.Port != "" {
		settings.port = entry.Port
	}
	if entry.User != "" && !explicitUser {
		settings.user = entry.User
	}
	settings.identityFile = entry.IdentityFile
	return settings
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func suggestionForDialError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Is sshd running on that node? Try: ssh <host>"
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "Can't route to the host. Check the cluster network."
	case strings.Contains(msg, "timeout"):
		return "Connection timed out. The node may be down or still rebooting."
	case strings.Contains(msg, "no such host"):
		return "Host name does not resolve. Check hosts.servers / hosts.clients in .ftest.yaml."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error, encryptedKeys []string) string {
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "no supported methods") {
		if len(encryptedKeys) > 0 {
			return addKeysSuggestion("Your key(s) are encrypted. Add them to the agent:", encryptedKeys)
		}
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	}
	if strings.Contains(msg, "host key") {
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	return "SSH setup failed. Try: ssh -v <host>"
}
