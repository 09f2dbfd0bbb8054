package tags

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/rileyhilliard/ftest/internal/errors"
)

// FtestPathMarker identifies functional-test sources among changed files.
const FtestPathMarker = "src/tests/ftest"

type coreTagFile struct {
	Default string            `yaml:"default"`
	PerPath map[string]string `yaml:"per_path"`
}

type pathRule struct {
	re   *regexp.Regexp
	tags sets.Set[string]
}

// CoreTagMap maps changes to non-test source files to the tags that
// exercise them.
type CoreTagMap struct {
	Default sets.Set[string]
	rules   []pathRule
}

// LoadCoreTagMap reads a tag map such as
//
//	default: "pr daily_regression"
//	per_path:
//	  src/client/dfuse: "dfuse"
func LoadCoreTagMap(path string) (*CoreTagMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig, "Can't read tag map "+path,
			"Set tags.tag_map to the core tag map file")
	}
	return ParseCoreTagMap(data)
}

// ParseCoreTagMap parses tag map YAML. Per-path keys are regular
// expressions searched for in each changed path.
func ParseCoreTagMap(data []byte) (*CoreTagMap, error) {
	var raw coreTagFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig, "Invalid tag map", "")
	}

	m := &CoreTagMap{Default: splitTags(raw.Default)}
	patterns := make([]string, 0, len(raw.PerPath))
	for p := range raw.PerPath {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig, "Invalid tag map pattern "+p, "")
		}
		m.rules = append(m.rules, pathRule{re: re, tags: splitTags(raw.PerPath[p])})
	}
	return m, nil
}

func splitTags(s string) sets.Set[string] {
	return sets.New(strings.Fields(s)...)
}

// RecommendedCoreTags returns the union of tags for every non-test path:
// the per-path tags that match it, or the defaults when none do.
func (m *CoreTagMap) RecommendedCoreTags(paths []string) sets.Set[string] {
	out := sets.New[string]()
	for _, p := range paths {
		if strings.Contains(p, FtestPathMarker) {
			continue
		}
		matched := sets.New[string]()
		for _, r := range m.rules {
			if r.re.MatchString(p) {
				matched = matched.Union(r.tags)
			}
		}
		if matched.Len() == 0 {
			matched = m.Default
		}
		out = out.Union(matched)
	}
	return out
}
