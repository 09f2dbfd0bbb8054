package remote

import (
	"sync"
	"time"

	"github.com/rileyhilliard/ftest/pkg/sshutil"
)

// Pool keeps one SSH connection per host so the many short commands of a
// test step reuse the same transport.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*poolEntry
	timeout time.Duration
	dial    sshutil.DialFunc
}

type poolEntry struct {
	mu       sync.Mutex
	client   sshutil.SSHClient
	lastUsed time.Time
}

// NewPool creates a pool that dials with sshutil.DialClient.
func NewPool(timeout time.Duration) *Pool {
	return NewPoolWithDialer(timeout, sshutil.DialClient)
}

// NewPoolWithDialer creates a pool with a custom dial function.
func NewPoolWithDialer(timeout time.Duration, dial sshutil.DialFunc) *Pool {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Pool{
		entries: make(map[string]*poolEntry),
		timeout: timeout,
		dial:    dial,
	}
}

// Get returns a live connection to host, dialing a new one when there is
// none or the cached one stopped answering. Concurrent calls for the same
// host share a single dial.
func (p *Pool) Get(host string) (sshutil.SSHClient, error) {
	p.mu.Lock()
	entry, ok := p.entries[host]
	if !ok {
		entry = &poolEntry{}
		p.entries[host] = entry
	}
	p.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.client != nil {
		if entry.client.Alive() {
			entry.lastUsed = time.Now()
			return entry.client, nil
		}
		_ = entry.client.Close()
		entry.client = nil
	}

	client, err := p.dial(host, p.timeout)
	if err != nil {
		return nil, err
	}
	entry.client = client
	entry.lastUsed = time.Now()
	return client, nil
}

// Drop closes and forgets the connection to host.
func (p *Pool) Drop(host string) {
	p.mu.Lock()
	entry, ok := p.entries[host]
	delete(p.entries, host)
	p.mu.Unlock()

	if ok {
		entry.mu.Lock()
		if entry.client != nil {
			_ = entry.client.Close()
		}
		entry.mu.Unlock()
	}
}

// Size returns the number of hosts with a connection.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.entries {
		e.mu.Lock()
		if e.client != nil {
			n++
		}
		e.mu.Unlock()
	}
	return n
}

// Close closes every connection.
func (p *Pool) Close() {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[string]*poolEntry)
	p.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		if e.client != nil {
			_ = e.client.Close()
		}
		e.mu.Unlock()
	}
}
