package cli

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/nodeset"
)

// ParseTimeout parses a --timeout flag. Returns zero duration if the flag
// is empty.
func ParseTimeout(flag string) (time.Duration, error) {
	if flag == "" {
		return 0, nil
	}

	duration, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid timeout", flag),
			"Try something like 5s, 2m, or 500ms.")
	}
	if duration < 0 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("Timeout can't be negative: %s", flag),
			"Try something like 5s, 2m, or 500ms.")
	}
	return duration, nil
}

// ParseHosts parses a node set argument such as "wolf-[1-3],boro-7".
func ParseHosts(flag string) (nodeset.NodeSet, error) {
	hosts, err := nodeset.Parse(flag)
	if err != nil {
		return nodeset.NodeSet{}, err
	}
	if hosts.IsEmpty() {
		return hosts, errors.New(errors.ErrConfig, "No hosts given", "Name the hosts like 'wolf-[1-3]'.")
	}
	return hosts, nil
}
