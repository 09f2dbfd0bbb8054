package tags

import (
	"path/filepath"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/rileyhilliard/ftest/internal/gitdiff"
)

// RecommendedFtestTags indexes every suite under ftestDir and returns the
// minimal tag expressions covering the test files among paths. With no
// paths every suite is covered.
func RecommendedFtestTags(ftestDir string, paths []string) (sets.Set[string], error) {
	files, err := AllGoFiles(ftestDir)
	if err != nil {
		return nil, err
	}
	m, err := NewTagMap(files...)
	if err != nil {
		return nil, err
	}
	return m.MinimalTags(paths...), nil
}

// PragmaOptions locate the inputs of Pragmas.
type PragmaOptions struct {
	FtestDir string
	CoreMap  *CoreTagMap
	// WorkDir and Base are used to list changed files when Paths is empty.
	WorkDir string
	Base    string
	Paths   []string
}

// Pragmas returns the "Test-tag:" commit pragma recommended for the
// changed files.
func Pragmas(opts PragmaOptions) (string, error) {
	paths := opts.Paths
	if len(paths) == 0 {
		changed, err := gitdiff.ChangedFiles(opts.WorkDir, opts.Base)
		if err != nil {
			return "", err
		}
		paths = changed
	}

	all, err := RecommendedFtestTags(opts.FtestDir, paths)
	if err != nil {
		return "", err
	}
	if opts.CoreMap != nil {
		all = all.Union(opts.CoreMap.RecommendedCoreTags(outside(opts.FtestDir, paths)))
	}
	return "Test-tag: " + strings.Join(sets.List(all), " "), nil
}

// outside drops the paths under dir.
func outside(dir string, paths []string) []string {
	root := realPath(dir)
	var out []string
	for _, p := range paths {
		if rel, err := filepath.Rel(root, realPath(p)); err == nil && filepath.IsLocal(rel) {
			continue
		}
		out = append(out, p)
	}
	return out
}
