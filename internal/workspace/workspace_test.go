package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestAcquireClonesIntoUniqueDirectory(t *testing.T) {
	base := filepath.Join(t.TempDir(), "repos")
	cloner := new(contract.MockCloner)
	cloner.On("Clone", mock.Anything, "https://github.com/o/r", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			writeFile(t, filepath.Join(args.String(2), "README.md"))
		}).Return(nil)

	m := New(base, cloner)
	first, err := m.Acquire(context.Background(), "https://github.com/o/r")
	require.NoError(t, err)
	second, err := m.Acquire(context.Background(), "https://github.com/o/r")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, base, filepath.Dir(first))
	assert.FileExists(t, filepath.Join(first, "README.md"))
	cloner.AssertNumberOfCalls(t, "Clone", 2)
}

func TestAcquireConcurrentPathsNeverCollide(t *testing.T) {
	cloner := new(contract.MockCloner)
	cloner.On("Clone", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m := New(t.TempDir(), cloner)

	var mu sync.Mutex
	seen := map[string]bool{}
	var wg sync.WaitGroup
	for range 16 {
		wg.Go(func() {
			dir, err := m.Acquire(context.Background(), "https://github.com/o/r")
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[dir])
			seen[dir] = true
		})
	}
	wg.Wait()
	assert.Len(t, seen, 16)
}

func TestAcquireRemovesPartialCloneOnFailure(t *testing.T) {
	base := t.TempDir()
	cloner := new(contract.MockCloner)
	cloner.On("Clone", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			writeFile(t, filepath.Join(args.String(2), ".git", "HEAD"))
		}).Return(errors.New("network down"))

	m := New(base, cloner)
	dir, err := m.Acquire(context.Background(), "https://github.com/o/r")
	assert.Empty(t, dir)
	assert.ErrorIs(t, err, ErrClone)
	assert.ErrorContains(t, err, "network down")

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGoGitClonerFailure(t *testing.T) {
	base := t.TempDir()
	m := New(base, NewGoGitCloner("", "github.com", 1))

	_, err := m.Acquire(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrClone)

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReleaseReadOnlyTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")
	locked := filepath.Join(root, "pack", "locked")
	writeFile(t, filepath.Join(locked, "objects.pack"))
	require.NoError(t, os.Chmod(filepath.Join(locked, "objects.pack"), 0o400))
	require.NoError(t, os.Chmod(locked, 0o500))

	m := New(filepath.Dir(root), nil)
	require.NoError(t, m.Release(root))
	assert.NoDirExists(t, root)
}

func TestReleaseMissingPath(t *testing.T) {
	m := New(t.TempDir(), nil)
	assert.NoError(t, m.Release(filepath.Join(m.Base(), "never-created")))
}

func TestMakeWritable(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "d")
	file := filepath.Join(dir, "f")
	writeFile(t, file)
	require.NoError(t, os.Chmod(file, 0o400))
	require.NoError(t, os.Chmod(dir, 0o500))

	require.NoError(t, makeWritable(root))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	info, err = os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestPurge(t *testing.T) {
	base := filepath.Join(t.TempDir(), "repos")
	stale := filepath.Join(base, "0b7c6a52-5d2f-4a8e-9a53-1f0f4c3e9d21")
	writeFile(t, filepath.Join(stale, "src", "file.go"))
	writeFile(t, filepath.Join(base, "thesis.tex"))
	writeFile(t, filepath.Join(base, "notes", "todo.md"))
	writeFile(t, filepath.Join(base, "0B7C6A52-5D2F-4A8E-9A53-1F0F4C3E9D21", "keep"))

	m := New(base, nil)
	require.NoError(t, m.Purge())

	assert.NoDirExists(t, stale)
	assert.FileExists(t, filepath.Join(base, "thesis.tex"))
	assert.FileExists(t, filepath.Join(base, "notes", "todo.md"))
	assert.FileExists(t, filepath.Join(base, "0B7C6A52-5D2F-4A8E-9A53-1F0F4C3E9D21", "keep"))
	assert.NoError(t, m.Purge())
}

func TestPurgeRemovesAcquiredWorkspaces(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "thesis.tex"))
	cloner := new(contract.MockCloner)
	cloner.On("Clone", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			writeFile(t, filepath.Join(args.String(2), "README.md"))
		}).Return(nil)

	m := New(base, cloner)
	dir, err := m.Acquire(context.Background(), "https://github.com/o/r")
	require.NoError(t, err)

	require.NoError(t, m.Purge())
	assert.NoDirExists(t, dir)
	assert.FileExists(t, filepath.Join(base, "thesis.tex"))
}

func TestPurgeMissingBase(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "never-created"), nil)
	assert.NoError(t, m.Purge())
}

func TestNewCloner(t *testing.T) {
	assert.IsType(t, &GoGitCloner{}, NewCloner(schema.GoGitClone, "t", "github.com", 1))
	assert.IsType(t, &contract.LocalGitCloner{}, NewCloner(schema.ExecClone, "t", "github.com", 1))
	assert.IsType(t, &GoGitCloner{}, NewCloner("", "t", "github.com", 1))
}

func TestGoGitClonerAuth(t *testing.T) {
	c := NewGoGitCloner("secret", "github.com", 1)

	auth := c.auth("https://github.com/owner/repo")
	require.NotNil(t, auth)
	assert.Equal(t, "secret", auth.Password)

	assert.Nil(t, c.auth("https://evil.example/owner/repo"))
	assert.Nil(t, c.auth("http://github.com/owner/repo"))
	assert.Nil(t, NewGoGitCloner("", "github.com", 1).auth("https://github.com/owner/repo"))
}
