// Package testutils builds site fixtures for tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// Files maps slash-separated paths to file contents.
type Files map[string]string

// With returns a copy of f with the given entries added or replaced.
func (f Files) With(overrides Files) Files {
	out := make(Files, len(f)+len(overrides))
	for name, content := range f {
		out[name] = content
	}
	for name, content := range overrides {
		out[name] = content
	}
	return out
}

// CreateTempSite writes files below a fresh temporary directory and
// returns its path.
func CreateTempSite(t *testing.T, files Files) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// MemSite writes files into an in-memory filesystem. Paths are used as
// given, so callers usually pass absolute ones.
func MemSite(t *testing.T, files Files) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

// ReadFile returns the content of name, failing the test when it cannot be
// read.
func ReadFile(t *testing.T, fs afero.Fs, name string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, name)
	require.NoError(t, err)
	return string(data)
}
