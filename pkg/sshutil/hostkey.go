package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/ftest/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// StrictHostKeyChecking controls known_hosts verification. Test clusters
// that are reimaged often run with ssh.strict_host_key_checking: false.
var StrictHostKeyChecking = true

func hostKeyCallback() (ssh.HostKeyCallback, error) {
	if !StrictHostKeyChecking {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // disabled in .ftest.yaml
	}
	path := filepath.Join(homeDir(), ".ssh", "known_hosts")
	callback, err := knownHostsCallback(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to load known_hosts",
			fmt.Sprintf("Check %s is readable, or set ssh.strict_host_key_checking: false", path))
	}
	return callback, nil
}

// knownHostsCallback wraps knownhosts so a changed key surfaces as a
// HostKeyMismatchError with a fix-it suggestion.
func knownHostsCallback(path string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, nil, 0600); err != nil {
			return nil, err
		}
	}

	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if err != nil && stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   path,
				Want:         keyErr.Want,
			}
		}
		return err
	}, nil
}

// HostKeyMismatchError is returned when a node presents a key that differs
// from the one in known_hosts, typically after a reimage.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns the commands that refresh the known_hosts entry.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	known := make([]string, 0, len(e.Want))
	for _, k := range e.Want {
		known = append(known, k.Key.Type())
	}
	knownStr := "unknown"
	if len(known) > 0 {
		knownStr = strings.Join(known, ", ")
	}

	return fmt.Sprintf(
		"The node's host key doesn't match known_hosts (known: %s, sent: %s).\n"+
			"  If the node was reimaged, remove the old entry:\n"+
			"    ssh-keygen -R %s\n"+
			"  then record the new keys:\n"+
			"    ssh-keyscan -t rsa,ecdsa,ed25519 %s >> %s",
		knownStr, e.ReceivedType, host, host, e.KnownHosts)
}
