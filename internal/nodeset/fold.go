package nodeset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// hostParts splits a host name around its last run of digits.
type hostParts struct {
	prefix string
	digits string
	suffix string
	index  int
}

func split(host string) hostParts {
	end := -1
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] >= '0' && host[i] <= '9' {
			end = i + 1
			break
		}
	}
	if end < 0 {
		return hostParts{prefix: host, index: -1}
	}
	start := end
	for start > 0 && host[start-1] >= '0' && host[start-1] <= '9' {
		start--
	}
	digits := host[start:end]
	n, err := strconv.Atoi(digits)
	if err != nil {
		return hostParts{prefix: host, index: -1}
	}
	return hostParts{prefix: host[:start], digits: digits, suffix: host[end:], index: n}
}

// Less orders host names by prefix, suffix, then numeric index, so wolf-9
// sorts before wolf-10.
func Less(a, b string) bool {
	return naturalLess(a, b)
}

func naturalLess(a, b string) bool {
	pa, pb := split(a), split(b)
	if pa.prefix != pb.prefix {
		return pa.prefix < pb.prefix
	}
	if pa.suffix != pb.suffix {
		return pa.suffix < pb.suffix
	}
	if pa.index != pb.index {
		return pa.index < pb.index
	}
	return a < b
}

func padWidth(digits string) int {
	if len(digits) > 1 && digits[0] == '0' {
		return len(digits)
	}
	return 0
}

type foldGroup struct {
	prefix, suffix string
	width          int
	indexes        []int
}

// fold compresses naturally ordered hosts into bracket notation.
func fold(hosts []string) []string {
	parts := make([]hostParts, len(hosts))
	padded := make(map[string]map[int]bool)
	for i, h := range hosts {
		parts[i] = split(h)
		p := parts[i]
		if w := padWidth(p.digits); w > 0 {
			key := p.prefix + "\x00" + p.suffix
			if padded[key] == nil {
				padded[key] = make(map[int]bool)
			}
			padded[key][w] = true
		}
	}

	var order []string
	groups := make(map[string]*foldGroup)
	var out []string

	for _, p := range parts {
		if p.index < 0 {
			order = append(order, "")
			out = append(out, p.prefix)
			continue
		}
		width := padWidth(p.digits)
		if width == 0 && padded[p.prefix+"\x00"+p.suffix][len(p.digits)] {
			width = len(p.digits)
		}
		key := fmt.Sprintf("%s\x00%s\x00%d", p.prefix, p.suffix, width)
		g, ok := groups[key]
		if !ok {
			g = &foldGroup{prefix: p.prefix, suffix: p.suffix, width: width}
			groups[key] = g
			order = append(order, key)
			out = append(out, "")
		}
		g.indexes = append(g.indexes, p.index)
	}

	for i, key := range order {
		if key == "" {
			continue
		}
		out[i] = groups[key].String()
	}
	return out
}

func (g *foldGroup) String() string {
	sort.Ints(g.indexes)
	format := func(n int) string { return fmt.Sprintf("%0*d", g.width, n) }
	if len(g.indexes) == 1 {
		return g.prefix + format(g.indexes[0]) + g.suffix
	}

	var ranges []string
	start, prev := g.indexes[0], g.indexes[0]
	flush := func() {
		if start == prev {
			ranges = append(ranges, format(start))
		} else {
			ranges = append(ranges, format(start)+"-"+format(prev))
		}
	}
	for _, n := range g.indexes[1:] {
		if n == prev+1 {
			prev = n
			continue
		}
		flush()
		start, prev = n, n
	}
	flush()
	return g.prefix + "[" + strings.Join(ranges, ",") + "]" + g.suffix
}
