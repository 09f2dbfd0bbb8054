package config

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/ftest/internal/gitdiff"
)

// ExpandTilde replaces ~ or ~/path with the user's home directory.
// Use this for LOCAL paths only. Remote paths should keep ~ for the remote shell.
func ExpandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}

// Expand replaces variables in a string with their values.
// Supported variables:
//   - ${PROJECT} - git root directory name, else the current directory name
//   - ${USER}    - current username
//   - ${HOME}    - user's home directory (LOCAL - use ExpandRemote for remote paths)
func Expand(s string) string {
	if s == "" {
		return s
	}
	result := s
	if strings.Contains(result, "${PROJECT}") {
		result = strings.ReplaceAll(result, "${PROJECT}", getProject())
	}
	if strings.Contains(result, "${USER}") {
		result = strings.ReplaceAll(result, "${USER}", getUser())
	}
	if strings.Contains(result, "${HOME}") {
		result = strings.ReplaceAll(result, "${HOME}", getHome())
	}
	return result
}

// ExpandRemote is Expand for paths on a cluster host: ${HOME} becomes ~ so
// the remote shell expands it.
func ExpandRemote(s string) string {
	return Expand(strings.ReplaceAll(s, "${HOME}", "~"))
}

func getProject() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "project"
	}
	if root, err := gitdiff.Root(cwd); err == nil {
		return filepath.Base(root)
	}
	return filepath.Base(cwd)
}

func getUser() string {
	for _, env := range []string{"USER", "LOGNAME"} {
		if u := os.Getenv(env); u != "" {
			return u
		}
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "user"
}

func getHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "~"
}
