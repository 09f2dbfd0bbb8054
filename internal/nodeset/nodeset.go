// Package nodeset implements compact host-set notation such as
// "wolf-[181-183,185],boro-1". A NodeSet is an immutable set of host names;
// String folds it back into bracket notation.
package nodeset

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rileyhilliard/ftest/internal/errors"
)

// NodeSet is an immutable set of host names.
type NodeSet struct {
	hosts map[string]struct{}
}

// New builds a NodeSet from individual host names. Empty names are ignored.
func New(hosts ...string) NodeSet {
	ns := NodeSet{hosts: make(map[string]struct{}, len(hosts))}
	for _, h := range hosts {
		h = strings.TrimSpace(h)
		if h != "" {
			ns.hosts[h] = struct{}{}
		}
	}
	return ns
}

// MustParse is Parse for literals; it panics on malformed input.
func MustParse(s string) NodeSet {
	ns, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return ns
}

// Parse expands bracket notation into a NodeSet. Elements are separated by
// top-level commas; each element may carry several bracket groups, which are
// expanded as a cartesian product. Ranges keep the zero padding of their
// lower bound ("node[01-10]" yields node01..node10).
func Parse(s string) (NodeSet, error) {
	ns := New()
	for _, elem := range splitTopLevel(s) {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			continue
		}
		expanded, err := expand(elem)
		if err != nil {
			return NodeSet{}, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Invalid node set %q", s),
				"Use host names or bracket ranges, e.g. wolf-[1-3,5]")
		}
		for _, h := range expanded {
			ns.hosts[h] = struct{}{}
		}
	}
	return ns, nil
}

func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// MaxHosts bounds how many hosts one bracket expression may expand to.
const MaxHosts = 100000

func expand(elem string) ([]string, error) {
	open := strings.IndexByte(elem, '[')
	if open < 0 {
		if strings.ContainsRune(elem, ']') {
			return nil, fmt.Errorf("unbalanced ']' in %q", elem)
		}
		return []string{elem}, nil
	}
	closing := strings.IndexByte(elem[open:], ']')
	if closing < 0 {
		return nil, fmt.Errorf("missing ']' in %q", elem)
	}
	closing += open

	prefix := elem[:open]
	values, err := expandRanges(elem[open+1 : closing])
	if err != nil {
		return nil, err
	}
	tails, err := expand(elem[closing+1:])
	if err != nil {
		return nil, err
	}

	if len(values)*len(tails) > MaxHosts {
		return nil, fmt.Errorf("%q expands to more than %d hosts", elem, MaxHosts)
	}
	out := make([]string, 0, len(values)*len(tails))
	for _, v := range values {
		for _, tail := range tails {
			out = append(out, prefix+v+tail)
		}
	}
	return out, nil
}

func expandRanges(body string) ([]string, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("empty range")
	}
	var out []string
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		lo, hi, found := strings.Cut(part, "-")
		if !found {
			hi = lo
		}
		start, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("bad range bound %q", lo)
		}
		end, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("bad range bound %q", hi)
		}
		if end < start {
			return nil, fmt.Errorf("descending range %q", part)
		}
		if end-start >= MaxHosts-len(out) {
			return nil, fmt.Errorf("range %q expands to more than %d hosts", part, MaxHosts)
		}
		width := 0
		if len(lo) > 1 && lo[0] == '0' {
			width = len(lo)
		}
		for i := start; i <= end; i++ {
			out = append(out, fmt.Sprintf("%0*d", width, i))
		}
	}
	return out, nil
}

// IncludeLocalHost returns ns with the short name of the local host added.
func IncludeLocalHost(ns NodeSet) NodeSet {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return ns
	}
	short, _, _ := strings.Cut(name, ".")
	return ns.Union(New(short))
}

// Len returns the number of hosts.
func (ns NodeSet) Len() int { return len(ns.hosts) }

// IsEmpty reports whether the set has no hosts.
func (ns NodeSet) IsEmpty() bool { return len(ns.hosts) == 0 }

// Contains reports whether host is a member.
func (ns NodeSet) Contains(host string) bool {
	_, ok := ns.hosts[host]
	return ok
}

// Hosts returns the members in natural order.
func (ns NodeSet) Hosts() []string {
	out := make([]string, 0, len(ns.hosts))
	for h := range ns.hosts {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return naturalLess(out[i], out[j]) })
	return out
}

// First returns the first host in natural order, or "" for an empty set.
func (ns NodeSet) First() string {
	hosts := ns.Hosts()
	if len(hosts) == 0 {
		return ""
	}
	return hosts[0]
}

// Slice returns the hosts in [i, j) of the natural ordering. Bounds are clamped.
func (ns NodeSet) Slice(i, j int) NodeSet {
	hosts := ns.Hosts()
	if i < 0 {
		i = 0
	}
	if j > len(hosts) {
		j = len(hosts)
	}
	if i >= j {
		return New()
	}
	return New(hosts[i:j]...)
}

// Union returns the hosts present in either set.
func (ns NodeSet) Union(other NodeSet) NodeSet {
	out := New(ns.Hosts()...)
	for h := range other.hosts {
		out.hosts[h] = struct{}{}
	}
	return out
}

// Difference returns the hosts of ns not present in other.
func (ns NodeSet) Difference(other NodeSet) NodeSet {
	out := New()
	for h := range ns.hosts {
		if !other.Contains(h) {
			out.hosts[h] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets hold the same hosts.
func (ns NodeSet) Equal(other NodeSet) bool {
	if ns.Len() != other.Len() {
		return false
	}
	for h := range ns.hosts {
		if !other.Contains(h) {
			return false
		}
	}
	return true
}

// String folds the set back into bracket notation.
func (ns NodeSet) String() string {
	return strings.Join(fold(ns.Hosts()), ",")
}

// MarshalText lets a NodeSet be used directly in yaml/json output.
func (ns NodeSet) MarshalText() ([]byte, error) {
	return []byte(ns.String()), nil
}

// UnmarshalText parses bracket notation.
func (ns *NodeSet) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*ns = parsed
	return nil
}
