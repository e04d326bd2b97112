// Package testutil provides common test utilities for brickmass.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestEnv is a sandboxed temporary directory. Every path handed out is
// checked to stay inside it, and it is removed when the test completes.
type TestEnv struct {
	t       *testing.T
	rootDir string
}

// NewTestEnv creates a new sandboxed test environment.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return &TestEnv{
		t:       t,
		rootDir: t.TempDir(),
	}
}

// Path returns an absolute path within the test environment.
func (e *TestEnv) Path(elem ...string) string {
	e.t.Helper()

	cleanPath := filepath.Clean(filepath.Join(append([]string{e.rootDir}, elem...)...))
	cleanRoot := filepath.Clean(e.rootDir)

	if cleanPath != cleanRoot && !strings.HasPrefix(cleanPath, cleanRoot+string(filepath.Separator)) {
		e.t.Fatalf("path %q escapes test sandbox %q", cleanPath, e.rootDir)
	}

	return cleanPath
}

// WriteFile writes content to a file, creating parent directories.
func (e *TestEnv) WriteFile(path string, content []byte) {
	e.t.Helper()

	absPath := e.Path(path)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		e.t.Fatalf("failed to create directory for %q: %v", absPath, err)
	}
	if err := os.WriteFile(absPath, content, 0o644); err != nil {
		e.t.Fatalf("failed to write file %q: %v", absPath, err)
	}
}

// WriteFileString writes a string to a file within the test environment.
func (e *TestEnv) WriteFileString(path, content string) {
	e.t.Helper()
	e.WriteFile(path, []byte(content))
}

// ReadFile reads a file from within the test environment.
func (e *TestEnv) ReadFile(path string) []byte {
	e.t.Helper()

	absPath := e.Path(path)
	content, err := os.ReadFile(absPath)
	if err != nil {
		e.t.Fatalf("failed to read file %q: %v", absPath, err)
	}
	return content
}

// ReadFileString reads a file as a string.
func (e *TestEnv) ReadFileString(path string) string {
	e.t.Helper()
	return string(e.ReadFile(path))
}

// MkdirAll creates a directory and its parents within the test environment.
func (e *TestEnv) MkdirAll(path string) {
	e.t.Helper()

	absPath := e.Path(path)
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		e.t.Fatalf("failed to create directory %q: %v", absPath, err)
	}
}

// FileExists checks if a file exists within the test environment.
func (e *TestEnv) FileExists(path string) bool {
	e.t.Helper()

	_, err := os.Stat(e.Path(path))
	return err == nil
}

// RequireFileExists fails the test if the file does not exist.
func (e *TestEnv) RequireFileExists(path string) {
	e.t.Helper()

	if !e.FileExists(path) {
		e.t.Fatalf("expected file %q to exist", e.Path(path))
	}
}

// RequireFileNotExists fails the test if the file exists.
func (e *TestEnv) RequireFileNotExists(path string) {
	e.t.Helper()

	if e.FileExists(path) {
		e.t.Fatalf("expected file %q to not exist", e.Path(path))
	}
}

// ListFiles returns the names of the entries in a directory.
func (e *TestEnv) ListFiles(path string) []string {
	e.t.Helper()

	entries, err := os.ReadDir(e.Path(path))
	if err != nil {
		e.t.Fatalf("failed to read directory %q: %v", path, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	return files
}
