// Package tags reads the ":avocado: tags=" markers from the doc comments of
// functional test methods, lints them and recommends CI test tags for a set
// of changed files.
package tags

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/rileyhilliard/ftest/internal/errors"
)

var tagLineRe = regexp.MustCompile(`:avocado: tags=(.*)`)

// Mapping is file -> suite type -> test method -> tags.
type Mapping map[string]map[string]map[string]sets.Set[string]

// TagMap indexes the tags of every test method in a set of source files.
type TagMap struct {
	mapping Mapping
}

// NewTagMap builds a TagMap from paths.
func NewTagMap(paths ...string) (*TagMap, error) {
	m := &TagMap{mapping: make(Mapping)}
	if len(paths) > 0 {
		if err := m.UpdateFromPaths(paths); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AllGoFiles returns every non-test .go file under dir, sorted.
func AllGoFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isSourceFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTags, "Can't list test sources in "+dir,
			"Set tags.ftest_dir to the directory holding the test suites")
	}
	sort.Strings(files)
	return files, nil
}

func isSourceFile(path string) bool {
	return strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go")
}

// realPath resolves symlinks and makes path absolute. Paths that do not
// exist are only made absolute.
func realPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// sourceFor maps a test parameter file to the source file declaring the
// suite: verify_space.yaml -> verify_space.go.
func sourceFor(path string) string {
	if strings.HasSuffix(path, ".yaml") {
		return strings.TrimSuffix(path, ".yaml") + ".go"
	}
	return path
}

// UpdateFromPaths parses the test sources among paths. Every path must be a
// regular file. A .yaml file stands for its sibling .go file; other files
// are ignored.
func (m *TagMap) UpdateFromPaths(paths []string) error {
	unique := sets.New[string]()
	for _, p := range paths {
		p = realPath(p)
		fi, err := os.Stat(p)
		if err != nil || !fi.Mode().IsRegular() {
			return errors.New(errors.ErrTags, "Expected file: "+p, "Pass test source or parameter files")
		}
		src := sourceFor(p)
		if src != p {
			if _, err := os.Stat(src); err != nil {
				continue
			}
		}
		if isSourceFile(src) {
			unique.Insert(src)
		}
	}

	for _, file := range sets.List(unique) {
		if err := m.parseFile(file); err != nil {
			return err
		}
	}
	return nil
}

func (m *TagMap) parseFile(file string) error {
	fset := token.NewFileSet()
	parsed, err := parser.ParseFile(fset, file, nil, parser.ParseComments)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrTags, "Can't parse "+file, "")
	}
	for _, decl := range parsed.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 || !strings.HasPrefix(fn.Name.Name, "Test") {
			continue
		}
		suite := receiverName(fn.Recv.List[0].Type)
		if suite == "" || fn.Doc == nil {
			continue
		}
		m.update(file, suite, fn.Name.Name, ParseTags(fn.Doc.Text()))
	}
	return nil
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	}
	return ""
}

// ParseTags collects the tags from every ":avocado: tags=" line in text.
func ParseTags(text string) sets.Set[string] {
	out := sets.New[string]()
	for _, match := range tagLineRe.FindAllStringSubmatch(text, -1) {
		for _, tag := range strings.Split(match[1], ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				out.Insert(tag)
			}
		}
	}
	return out
}

func (m *TagMap) update(file, suite, test string, tags sets.Set[string]) {
	if tags.Len() == 0 {
		return
	}
	if m.mapping[file] == nil {
		m.mapping[file] = make(map[string]map[string]sets.Set[string])
	}
	if m.mapping[file][suite] == nil {
		m.mapping[file][suite] = make(map[string]sets.Set[string])
	}
	if m.mapping[file][suite][test] == nil {
		m.mapping[file][suite][test] = sets.New[string]()
	}
	m.mapping[file][suite][test].Insert(tags.UnsortedList()...)
}

// Mapping returns a deep copy of the index.
func (m *TagMap) Mapping() Mapping {
	out := make(Mapping, len(m.mapping))
	for file, suites := range m.mapping {
		out[file] = make(map[string]map[string]sets.Set[string], len(suites))
		for suite, tests := range suites {
			out[file][suite] = make(map[string]sets.Set[string], len(tests))
			for test, tags := range tests {
				out[file][suite][test] = tags.Clone()
			}
		}
	}
	return out
}

// Files returns the indexed files, sorted.
func (m *TagMap) Files() []string {
	files := make([]string, 0, len(m.mapping))
	for f := range m.mapping {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// UniqueTags returns every tag used outside the excluded files.
func (m *TagMap) UniqueTags(exclude ...string) sets.Set[string] {
	skip := sets.New[string]()
	for _, e := range exclude {
		skip.Insert(realPath(e))
	}
	out := sets.New[string]()
	for file, suites := range m.mapping {
		if skip.Has(file) {
			continue
		}
		for _, tests := range suites {
			for _, tags := range tests {
				out = out.Union(tags)
			}
		}
	}
	return out
}

// MinimalTags returns an approximately minimal collection of tag
// expressions that together select every test in includePaths (all files
// when empty). Each expression is a sorted, comma-joined tag list; a test
// runs when it carries every tag of some expression.
func (m *TagMap) MinimalTags(includePaths ...string) sets.Set[string] {
	include := sets.New[string]()
	for _, p := range includePaths {
		p = realPath(p)
		if strings.Contains(p, "ftest") {
			p = sourceFor(p)
		}
		include.Insert(p)
	}

	var minimal []sets.Set[string]
	for _, file := range m.Files() {
		if include.Len() > 0 && !include.Has(file) {
			continue
		}
		others := m.UniqueTags(file)

		var recommended []sets.Set[string]
		for _, suite := range sortedKeys(m.mapping[file]) {
			tests := m.mapping[file][suite]
			for _, test := range sortedKeys(tests) {
				tags := tests[test]
				switch {
				case tags.Has(suite):
					recommended = append(recommended, sets.New(suite))
				case tags.Has(test):
					recommended = append(recommended, sets.New(test))
				default:
					if own := tags.Difference(others); own.Len() > 0 {
						recommended = append(recommended, own)
					} else {
						recommended = append(recommended, tags.Clone())
					}
				}
			}
		}
		if len(recommended) == 0 {
			continue
		}

		common := recommended[0].Clone()
		for _, r := range recommended[1:] {
			common = common.Intersection(r)
		}
		if common.Len() > 0 {
			minimal = append(minimal, common)
			continue
		}
		for i, r := range recommended {
			if !containsSet(recommended[:i], r) {
				minimal = append(minimal, r)
			}
		}
	}

	out := sets.New[string]()
	for _, s := range minimal {
		out.Insert(strings.Join(sets.List(s), ","))
	}
	return out
}

func containsSet(list []sets.Set[string], s sets.Set[string]) bool {
	for _, l := range list {
		if l.Equal(s) {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
