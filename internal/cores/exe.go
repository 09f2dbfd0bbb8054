package cores

import (
	"strings"

	"github.com/rileyhilliard/ftest/internal/errors"
)

// ExeNameFromGDB extracts the executable path from the last line gdb
// printed for a core. Both the "Core was generated by `cmd args'." banner
// and the "exe = '/path'" reply to 'info proc exe' are understood.
func ExeNameFromGDB(lastLine string) (string, error) {
	line := strings.TrimSpace(lastLine)
	var cmd string
	switch {
	case strings.Contains(line, "`"):
		_, cmd, _ = strings.Cut(line, "`")
	case strings.HasPrefix(line, "exe = "):
		cmd = strings.TrimPrefix(strings.TrimPrefix(line, "exe = "), "'")
	default:
		return "", errors.Newf(errors.ErrCore, "Can't find an executable name in gdb output %q", lastLine)
	}

	end := strings.IndexByte(cmd, ' ')
	if end < 0 {
		end = strings.IndexByte(cmd, '\'')
	}
	if end >= 0 {
		cmd = cmd[:end]
	}
	if cmd == "" {
		return "", errors.Newf(errors.ErrCore, "Empty executable name in gdb output %q", lastLine)
	}
	return cmd, nil
}
