// Package workspace owns the lifecycle of cloned repositories on disk.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/uuid"
	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/schema"
)

// ErrClone wraps every failed clone.
var ErrClone = errors.New("clone failed")

// GoGitCloner clones in-process with go-git.
type GoGitCloner struct {
	token string
	host  string
	depth int
}

var _ contract.Cloner = &GoGitCloner{} // Compile-time check

// NewGoGitCloner creates a cloner authenticating with token against https remotes on host.
// A depth of 0 clones the full history.
func NewGoGitCloner(token, host string, depth int) *GoGitCloner {
	return &GoGitCloner{token: token, host: host, depth: depth}
}

// Clone implements the Cloner interface.
func (c *GoGitCloner) Clone(ctx context.Context, url, dir string) error {
	opts := &git.CloneOptions{
		URL:          url,
		Depth:        c.depth,
		SingleBranch: true,
	}
	if auth := c.auth(url); auth != nil {
		opts.Auth = auth
	} else if c.token != "" {
		contract.LoggerFrom(ctx).Warn("cloning without credentials", "url", url, "host", c.host)
	}
	_, err := git.PlainCloneContext(ctx, dir, false, opts)
	return err
}

// auth returns the credentials for url, or nil when url is not a trusted remote.
func (c *GoGitCloner) auth(url string) *http.BasicAuth {
	if c.token == "" || !contract.TrustedRemote(url, c.host) {
		return nil
	}
	return &http.BasicAuth{Username: "x-access-token", Password: c.token}
}

// NewCloner returns the cloner for backend. Credentials only go to https remotes on host.
func NewCloner(backend schema.CloneBackend, token, host string, depth int) contract.Cloner {
	if backend == schema.ExecClone {
		return contract.NewLocalGitCloner(token, host, depth)
	}
	return NewGoGitCloner(token, host, depth)
}

// Manager hands out exclusive clone directories below a base directory.
type Manager struct {
	base   string
	cloner contract.Cloner
}

// New creates a manager rooted at base.
func New(base string, cloner contract.Cloner) *Manager {
	return &Manager{base: base, cloner: cloner}
}

// Base returns the directory that holds every workspace.
func (m *Manager) Base() string {
	return m.base
}

// Acquire clones url into a fresh base/<uuid> directory and returns its path.
// A failed clone leaves nothing behind.
func (m *Manager) Acquire(ctx context.Context, url string) (string, error) {
	if err := os.MkdirAll(m.base, 0o755); err != nil {
		return "", fmt.Errorf("create workspace base: %w", err)
	}
	dir := filepath.Join(m.base, uuid.NewString())

	contract.LoggerFrom(ctx).Debug("cloning", "url", url, "dir", dir)
	if err := m.cloner.Clone(ctx, url, dir); err != nil {
		if rerr := m.Release(dir); rerr != nil {
			contract.LoggerFrom(ctx).Warn("could not remove partial clone", "dir", dir, "err", rerr)
		}
		return "", fmt.Errorf("%w: %s: %w", ErrClone, url, err)
	}
	return dir, nil
}

// Release removes path. Entries that block removal are made owner-writable and the
// removal is retried once. A nil error means path no longer exists.
func (m *Manager) Release(path string) error {
	if err := os.RemoveAll(path); err == nil {
		return nil
	}
	if err := makeWritable(path); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// Purge removes the workspaces left in the base directory by an earlier run.
// Only uuid-named directories are workspaces; every other entry is left alone.
func (m *Manager) Purge() error {
	entries, err := os.ReadDir(m.base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read workspace base: %w", err)
	}
	var errs []error
	for _, e := range entries {
		if !e.IsDir() || !isWorkspaceName(e.Name()) {
			continue
		}
		if err := m.Release(filepath.Join(m.base, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// isWorkspaceName reports whether name is in the canonical form Acquire creates.
func isWorkspaceName(name string) bool {
	id, err := uuid.Parse(name)
	return err == nil && id.String() == name
}

func makeWritable(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		mode := info.Mode().Perm() | 0o600
		if d.IsDir() {
			mode |= 0o100
		}
		return os.Chmod(path, mode)
	})
}
