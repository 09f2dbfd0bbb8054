// Package testing provides an in-memory stand-in for an SSH connection to a
// cluster node: canned command responses plus a small virtual filesystem
// for the mkdir/cat/rm commands the lock package issues.
package testing

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// MockFS is an in-memory remote filesystem.
type MockFS struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
}

// NewMockFS creates an empty filesystem containing "/" and "/tmp".
func NewMockFS() *MockFS {
	return &MockFS{
		files: make(map[string][]byte),
		dirs:  map[string]struct{}{"/": {}, "/tmp": {}},
	}
}

// Mkdir creates one directory, failing when the path exists or the parent
// is missing, like mkdir without -p.
func (fs *MockFS) Mkdir(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path = filepath.Clean(path)
	if fs.existsLocked(path) {
		return errors.New("file exists")
	}
	if parent := filepath.Dir(path); parent != "." {
		if _, ok := fs.dirs[parent]; !ok {
			return errors.New("no such file or directory")
		}
	}
	fs.dirs[path] = struct{}{}
	return nil
}

// MkdirAll creates path and its parents, like mkdir -p.
func (fs *MockFS) MkdirAll(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for p := filepath.Clean(path); p != "/" && p != "."; p = filepath.Dir(p) {
		if _, ok := fs.files[p]; ok {
			return errors.New("not a directory")
		}
		fs.dirs[p] = struct{}{}
	}
	return nil
}

// WriteFile stores content, creating parent directories.
func (fs *MockFS) WriteFile(path string, content []byte) error {
	path = filepath.Clean(path)
	if err := fs.MkdirAll(filepath.Dir(path)); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = content
	return nil
}

// ReadFile returns the content of a file.
func (fs *MockFS) ReadFile(path string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	content, ok := fs.files[filepath.Clean(path)]
	if !ok {
		return nil, errors.New("no such file or directory")
	}
	return content, nil
}

// Remove deletes path and everything below it, like rm -rf.
func (fs *MockFS) Remove(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path = filepath.Clean(path)
	prefix := path + "/"
	for p := range fs.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(fs.files, p)
		}
	}
	for p := range fs.dirs {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(fs.dirs, p)
		}
	}
}

// IsDir reports whether path is a directory.
func (fs *MockFS) IsDir(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.dirs[filepath.Clean(path)]
	return ok
}

// IsFile reports whether path is a regular file.
func (fs *MockFS) IsFile(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.files[filepath.Clean(path)]
	return ok
}

// Files lists file paths under dir, sorted.
func (fs *MockFS) Files(dir string) []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	prefix := filepath.Clean(dir) + "/"
	var out []string
	for p := range fs.files {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (fs *MockFS) existsLocked(path string) bool {
	if _, ok := fs.dirs[path]; ok {
		return true
	}
	_, ok := fs.files[path]
	return ok
}
