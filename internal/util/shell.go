// Package util holds small helpers for building remote shell commands.
package util

import "strings"

// ShellQuote single-quotes s for a POSIX shell. Embedded single quotes
// become '\''.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
