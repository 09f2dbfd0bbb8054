// Package require checks that the tools the harness drives exist on the
// cluster and on the machine running it.
package require

import (
	"regexp"
)

// validToolName matches safe tool names: alphanumeric, hyphens, underscores, and periods.
var validToolName = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._+-]*$`)

// ValidateToolName checks if a tool name is safe to use in shell commands.
func ValidateToolName(name string) bool {
	return validToolName.MatchString(name)
}

// Tools each role needs.
var (
	ServerTools = []string{"dmg", "dnf", "rpm", "systemctl"}
	ClientTools = []string{"daos", "dfuse", "ior", "mpirun"}
	LocalTools  = []string{"gdb", "git", "lbzip2"}
)

// packages names the package providing a tool when it differs from the tool.
var packages = map[string]string{
	"dmg":    "daos-admin",
	"daos":   "daos-client",
	"dfuse":  "daos-client",
	"mpirun": "mpich",
	"ior":    "ior",
	"gdb":    "gdb",
	"lbzip2": "lbzip2",
}

// Package returns the package to install for tool, or "" when unknown.
func Package(tool string) string {
	return packages[tool]
}

// CheckResult represents the result of checking a single requirement.
type CheckResult struct {
	// Name is the tool/requirement name.
	Name string
	// Satisfied is true if the tool is available.
	Satisfied bool
	// Path is where the tool was found (if satisfied).
	Path string
}

// Merge combines requirement lists, dropping duplicates and keeping the
// order of first occurrence.
func Merge(sources ...[]string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, source := range sources {
		for _, req := range source {
			if req != "" && !seen[req] {
				seen[req] = true
				result = append(result, req)
			}
		}
	}
	return result
}
