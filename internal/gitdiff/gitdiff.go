// Package gitdiff lists the files a branch changes so the harness can pick
// which tests to run for it.
package gitdiff

import (
	"bufio"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/ftest/internal/errors"
)

// DefaultBase is the ref changes are measured against when none is given.
const DefaultBase = "origin/master"

// Root returns the top-level directory of the repository containing workDir.
func Root(workDir string) (string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExec,
			"git not found in PATH", "Install git or pass the changed files explicitly")
	}
	root, err := gitOutput(workDir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Not a git repository: "+workDir, "Run from inside the source tree or pass paths explicitly")
	}
	return root, nil
}

// ChangedFiles returns the absolute paths of files that differ between the
// working tree and base. An empty base means DefaultBase, falling back to the
// remote's default branch when that ref is missing.
func ChangedFiles(workDir, base string) ([]string, error) {
	root, err := Root(workDir)
	if err != nil {
		return nil, err
	}

	if base == "" {
		base = DefaultBase
		if _, err := resolveRef(root, base); err != nil {
			base = detectBaseBranch(root)
		}
	}
	ref, err := resolveRef(root, base)
	if err != nil {
		return nil, err
	}

	lines, err := gitLines(root, "diff", ref, "--name-only", "--relative")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrExec, "git diff against "+ref+" failed", "")
	}
	files := make([]string, 0, len(lines))
	for _, l := range lines {
		files = append(files, filepath.Join(root, l))
	}
	return files, nil
}

// detectBaseBranch asks for the remote's default branch, e.g.
// refs/remotes/origin/main -> origin/main. Falls back to "master".
func detectBaseBranch(workDir string) string {
	ref, err := gitOutput(workDir, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err == nil {
		if name := strings.TrimPrefix(ref, "refs/remotes/"); name != ref {
			return name
		}
	}
	return "master"
}

// resolveRef verifies ref exists, trying origin/<ref> when the bare name
// does not.
func resolveRef(workDir, ref string) (string, error) {
	if _, err := gitOutput(workDir, "rev-parse", "--verify", "--quiet", ref); err == nil {
		return ref, nil
	}
	originRef := "origin/" + ref
	if _, err := gitOutput(workDir, "rev-parse", "--verify", "--quiet", originRef); err == nil {
		return originRef, nil
	}
	return "", errors.Newf(errors.ErrConfig, "Base ref %q does not exist (tried %q and %q)", ref, ref, originRef)
}

// gitOutput runs a git command and returns trimmed stdout.
func gitOutput(workDir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = workDir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// gitLines runs a git command and returns non-empty lines from stdout.
func gitLines(workDir string, args ...string) ([]string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = workDir
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
