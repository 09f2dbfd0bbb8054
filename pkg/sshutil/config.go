package sshutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// HostEntry is what ~/.ssh/config says about one alias.
type HostEntry struct {
	Alias        string
	Hostname     string
	User         string
	Port         string
	IdentityFile string
	// MatchLine is the 1-based line of the first Match directive, or 0.
	// Entries after it are invisible to the parser.
	MatchLine int
}

// Description summarizes the entry for doctor output.
func (h HostEntry) Description() string {
	var parts []string
	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}
	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}
	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}
	if len(parts) == 0 {
		return h.Alias
	}
	return strings.Join(parts, ", ")
}

// LookupHost resolves alias against ~/.ssh/config.
func LookupHost(alias string) (HostEntry, error) {
	return LookupHostFile(filepath.Join(homeDir(), ".ssh", "config"), alias)
}

// LookupHostFile resolves alias against the given ssh config file. A missing
// file yields an entry with only the alias set.
func LookupHostFile(path, alias string) (HostEntry, error) {
	entry := HostEntry{Alias: alias}

	content, matchLine, err := stripMatchBlocks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return entry, nil
		}
		return entry, err
	}
	entry.MatchLine = matchLine

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return entry, err
	}

	entry.Hostname, _ = cfg.Get(alias, "HostName")
	entry.User, _ = cfg.Get(alias, "User")
	entry.Port, _ = cfg.Get(alias, "Port")
	if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" {
		entry.IdentityFile = expandPath(identity)
	}
	return entry, nil
}

// stripMatchBlocks returns the config up to the first Match directive,
// which kevinburke/ssh_config cannot parse.
func stripMatchBlocks(path string) ([]byte, int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			return []byte(strings.Join(lines[:i], "\n")), i + 1, nil
		}
	}
	return content, 0, nil
}
