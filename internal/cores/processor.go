package cores

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rileyhilliard/ftest/internal/distro"
	"github.com/rileyhilliard/ftest/internal/errors"
	"github.com/rileyhilliard/ftest/internal/logger"
	"github.com/rileyhilliard/ftest/internal/remote"
	"github.com/rileyhilliard/ftest/internal/util"
)

// DefaultIgnore lists executables whose cores are expected while running a
// given test and so are not counted. An executable matches when its name is
// part of an entry, so "conftest" and "./conftest" are both ignored.
var DefaultIgnore = map[string][]string{
	"./dfuse/daos_build.py": {"./conftest"},
}

// Processor turns archived core files into stack traces with gdb on the
// machine running the harness.
type Processor struct {
	log    logger.Logger
	local  remote.LocalExecutor
	distro distro.Info

	// Ignore maps a test name to executables whose cores it may leave.
	Ignore map[string][]string
	// TestRPMs adds the test-build dependencies to the debuginfo install.
	TestRPMs bool
}

// NewProcessor creates a Processor for the given distribution.
func NewProcessor(log logger.Logger, local remote.LocalExecutor, info distro.Info) *Processor {
	if log == nil {
		log = logger.Noop()
	}
	return &Processor{log: log, local: local, distro: info, Ignore: DefaultIgnore}
}

// coreGlobs match archived core files, compressed or not.
var coreGlobs = []string{"core.*[0-9]", "core.*.bz2"}

func isCoreFile(name string) bool {
	for _, g := range coreGlobs {
		if ok, _ := path.Match(g, name); ok {
			return true
		}
	}
	return false
}

// FindCores returns the core files under dir/stacktraces*, keyed by
// directory, each list sorted.
func FindCores(dir string) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCore,
			"Can't list "+dir, "Pass the directory holding the stacktraces* archives")
	}
	found := make(map[string][]string)
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "stacktraces") {
			continue
		}
		coreDir := filepath.Join(dir, e.Name())
		files, err := os.ReadDir(coreDir)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrCore, "Can't list "+coreDir, "")
		}
		for _, f := range files {
			if !f.IsDir() && isCoreFile(f.Name()) {
				found[coreDir] = append(found[coreDir], f.Name())
			}
		}
		sort.Strings(found[coreDir])
	}
	return found, nil
}

// Process generates a stack trace for every core file in the stacktraces*
// subdirectories of dir and returns how many were processed, not counting
// cores the Ignore map expects from test. With remove the cores are deleted
// afterwards. Failures on one core do not stop the others; they are joined
// into the returned CORE error.
func (p *Processor) Process(ctx context.Context, dir string, remove bool, test string) (int, error) {
	var errs []error
	createStacktrace := true
	processed := 0

	p.log.Info("Processing core files in %s", filepath.Join(dir, "stacktraces*"))
	if p.distro.IsEL7() {
		p.log.Info("Generating a stacktrace is currently not supported on EL7")
		createStacktrace = false
	}

	found, err := FindCores(dir)
	if err != nil {
		return 0, err
	}

	if len(found) > 0 {
		if err := p.InstallDebuginfo(ctx); err != nil {
			p.log.Error("%v", err)
			errs = append(errs, err)
			createStacktrace = false
		}
	} else {
		p.log.Debug("No core files found in %s", filepath.Join(dir, "stacktraces*"))
	}

	dirs := make([]string, 0, len(found))
	for d := range found {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	for _, coreDir := range dirs {
		for _, name := range found[coreDir] {
			counted, final, err := p.processOne(ctx, coreDir, name, test, createStacktrace)
			if err != nil {
				p.log.Error("Failed to process core file %s: %v", filepath.Join(coreDir, final), err)
				errs = append(errs, err)
			} else if counted {
				processed++
			}
			if remove {
				full := filepath.Join(coreDir, final)
				p.log.Debug("Removing %s", full)
				if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
					errs = append(errs, errors.WrapWithCode(err, errors.ErrCore, "Can't remove "+full, ""))
				}
			}
		}
	}

	if err := p.DeleteGDBCores(ctx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return processed, errors.Join(errors.ErrCore, "Errors detected processing core files", errs...)
	}
	return processed, nil
}

// processOne returns whether the core counts, the core's name after any
// decompression, and the first error.
func (p *Processor) processOne(ctx context.Context, coreDir, name, test string, create bool) (bool, string, error) {
	if !create {
		return false, name, nil
	}
	if strings.HasSuffix(name, ".bz2") {
		cmd := "lbzip2 -d -v " + util.ShellQuote(filepath.Join(coreDir, name))
		if _, err := p.local.RunLocal(ctx, cmd, true); err != nil {
			return false, name, err
		}
		name = strings.TrimSuffix(name, ".bz2")
	}

	full := filepath.Join(coreDir, name)
	exe, err := p.exeName(ctx, full)
	if err != nil {
		return false, name, err
	}
	if err := p.createStacktrace(ctx, coreDir, name, exe); err != nil {
		return false, name, err
	}

	for _, ignored := range p.Ignore[test] {
		if exe != "" && strings.Contains(ignored, exe) {
			p.log.Debug("Excluding the %s core file (%s) detected while running %s from the processed core count",
				name, exe, test)
			return false, name, nil
		}
	}
	p.log.Debug("Successfully processed core file %s", full)
	return true, name, nil
}

func (p *Processor) exeName(ctx context.Context, coreFile string) (string, error) {
	p.log.Debug("Extracting the executable name from %s", coreFile)
	cmd := fmt.Sprintf("gdb -c %s -ex 'info proc exe' -ex quit", util.ShellQuote(coreFile))
	res, err := p.local.RunLocal(ctx, cmd, true)
	if err != nil {
		return "", err
	}
	lines := remote.SplitLines([]byte(res.Stdout))
	if len(lines) == 0 {
		return "", errors.Newf(errors.ErrCore, "gdb printed nothing for %s", coreFile)
	}
	last := lines[len(lines)-1]
	p.log.Debug("  last line:       %s", last)
	exe, err := ExeNameFromGDB(last)
	if err != nil {
		return "", err
	}
	p.log.Debug("  executable name: %s", exe)
	return exe, nil
}

// StacktraceCommand is the gdb invocation that dumps every thread of a core.
func StacktraceCommand(coreDir, coreName, exe string) string {
	return strings.Join([]string{
		"gdb", "-cd=" + util.ShellQuote(coreDir),
		"-ex", "'set pagination off'",
		"-ex", "'thread apply all bt full'",
		"-ex", "detach",
		"-ex", "quit",
		util.ShellQuote(exe), util.ShellQuote(coreName),
	}, " ")
}

func (p *Processor) createStacktrace(ctx context.Context, coreDir, coreName, exe string) error {
	host := filepath.Base(coreDir)
	if i := strings.LastIndexByte(host, '.'); i >= 0 {
		host = host[i+1:]
	}
	full := filepath.Join(coreDir, coreName)
	out := full + ".stacktrace"
	p.log.Debug("Generating a stacktrace from the %s core file from %s", full, host)

	// gdb exits non-zero on truncated cores but still prints what it can.
	res, err := p.local.RunLocal(ctx, StacktraceCommand(coreDir, coreName, exe), false)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCore, "Error creating "+out, "")
	}
	if err := os.WriteFile(out, []byte(res.Stdout), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrCore, "Error writing "+out, "")
	}
	return nil
}

// DeleteGDBCores removes core.gdb.*.* files that gdb itself may have dumped
// into the local core directory while processing.
func (p *Processor) DeleteGDBCores(ctx context.Context) error {
	p.log.Debug("Checking core files generated by core file processing")
	res, err := p.local.RunLocal(ctx, "cat "+CorePatternFile, true)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrCore, "Unable to find local core file pattern", "")
	}
	lines := remote.SplitLines([]byte(res.Stdout))
	if len(lines) == 0 {
		return errors.New(errors.ErrCore, "Unable to find local core file pattern", "")
	}
	corePath := path.Dir(lines[len(lines)-1])

	p.log.Debug("Deleting core.gdb.*.* core files located in %s", corePath)
	cmd := remote.FindCommand(corePath, "core.gdb.*.*", 1,
		`-printf '%M %n %-12u %-12g %12k %t %p\n'`, "-delete")
	if _, err := p.local.RunLocal(ctx, cmd, true); err != nil {
		return errors.WrapWithCode(err, errors.ErrCore, "core.gdb.*.* files could not be removed", "")
	}
	return nil
}
