package sshutil

import (
	"context"
	"time"
)

// SSHClient is an open connection to one remote host. The real Client and
// the mock in pkg/sshutil/testing both satisfy it.
type SSHClient interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	Exec(cmd string) (stdout, stderr []byte, exitCode int, err error)

	// ExecContext is Exec bounded by ctx. When ctx ends first the remote
	// process is killed, the output gathered so far is returned and err
	// carries the TIMEOUT code.
	ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error)

	// Alive reports whether the connection still answers requests.
	Alive() bool

	// Close closes the SSH connection.
	Close() error

	// GetHost returns the original host/alias used to connect.
	GetHost() string

	// GetAddress returns the resolved host:port address.
	GetAddress() string
}

// DialFunc opens a connection to host. DialClient is the production value;
// tests substitute a function returning mocks.
type DialFunc func(host string, timeout time.Duration) (SSHClient, error)

// DialClient is Dial returning the SSHClient interface.
func DialClient(host string, timeout time.Duration) (SSHClient, error) {
	client, err := Dial(host, timeout)
	if err != nil {
		return nil, err
	}
	return client, nil
}
