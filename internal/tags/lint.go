package tags

import (
	"fmt"
	"io"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// platformTags says where a test can run; every test needs one.
var platformTags = sets.New("vm", "hw", "manual")

// LintFailure reports one class of tagging problem.
type LintFailure struct {
	Count     int
	Message   string
	Offenders []string
}

func (e *LintFailure) Error() string {
	shown := e.Offenders
	if len(shown) > 3 {
		shown = append(append([]string(nil), shown[:3]...), fmt.Sprintf("... (+%d)", len(shown)-3))
	}
	return fmt.Sprintf("%d %s: %s", e.Count, e.Message, strings.Join(shown, ", "))
}

// LintCheck is one rule and the tests or suites breaking it.
type LintCheck struct {
	Message   string
	Offenders []string
}

// LintReport is the outcome of linting a set of test sources.
type LintReport struct {
	Files  int
	Checks []LintCheck
}

// Lint checks that suite and method names are unique and that every test
// is tagged with its suite name, its method name and a platform tag.
func Lint(paths []string) (*LintReport, error) {
	m, err := NewTagMap(paths...)
	if err != nil {
		return nil, err
	}

	suiteCount := map[string]int{}
	methodCount := map[string]int{}
	var suiteOrder, methodOrder []string
	var noSuiteTag, noMethodTag, noPlatform []string

	files := m.Files()
	for _, file := range files {
		suites := m.mapping[file]
		for _, suite := range sortedKeys(suites) {
			if suiteCount[suite] == 0 {
				suiteOrder = append(suiteOrder, suite)
			}
			suiteCount[suite]++
			for _, method := range sortedKeys(suites[suite]) {
				tags := suites[suite][method]
				if methodCount[method] == 0 {
					methodOrder = append(methodOrder, method)
				}
				methodCount[method]++
				if !tags.Has(suite) {
					noSuiteTag = append(noSuiteTag, method)
				}
				if !tags.Has(method) {
					noMethodTag = append(noMethodTag, method)
				}
				if !tags.HasAny(platformTags.UnsortedList()...) {
					noPlatform = append(noPlatform, method)
				}
			}
		}
	}

	return &LintReport{
		Files: len(files),
		Checks: []LintCheck{
			{"non-unique test classes", duplicates(suiteOrder, suiteCount)},
			{"non-unique test methods", duplicates(methodOrder, methodCount)},
			{"tests without class as tag", noSuiteTag},
			{"tests without method name as tag", noMethodTag},
			{"tests without HW, VM, or manual tag", noPlatform},
		},
	}, nil
}

func duplicates(order []string, count map[string]int) []string {
	var out []string
	for _, name := range order {
		if count[name] > 1 {
			out = append(out, name)
		}
	}
	return out
}

// Failures returns a LintFailure for every check with offenders.
func (r *LintReport) Failures() []*LintFailure {
	var out []*LintFailure
	for _, c := range r.Checks {
		if len(c.Offenders) > 0 {
			out = append(out, &LintFailure{Count: len(c.Offenders), Message: c.Message, Offenders: c.Offenders})
		}
	}
	return out
}

// Err returns the first failure, or nil when the sources are clean.
func (r *LintReport) Err() error {
	if f := r.Failures(); len(f) > 0 {
		return f[0]
	}
	return nil
}

// Print writes the plain-text overview.
func (r *LintReport) Print(w io.Writer) {
	fmt.Fprintln(w, "ftest overview")
	fmt.Fprintf(w, "  %d test files\n\n", r.Files)
	for _, c := range r.Checks {
		if len(c.Offenders) == 0 {
			fmt.Fprintf(w, "  0 %s\n", c.Message)
			continue
		}
		fmt.Fprintf(w, "  %d %s:\n", len(c.Offenders), c.Message)
		for _, o := range c.Offenders {
			fmt.Fprintf(w, "    %s\n", o)
		}
	}
}
