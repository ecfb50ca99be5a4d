package contract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
)

// LocalGitCloner implements the Cloner interface by executing the
// local 'git' binary installed on the machine.
type LocalGitCloner struct {
	token string
	host  string
	depth int
}

var _ Cloner = &LocalGitCloner{} // Compile-time check

// NewLocalGitCloner creates a cloner that embeds token in https remotes on host.
// A depth of 0 clones the full history.
func NewLocalGitCloner(token, host string, depth int) *LocalGitCloner {
	return &LocalGitCloner{token: token, host: host, depth: depth}
}

// Run executes a git command and returns its stdout output.
func (c *LocalGitCloner) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := c.redact(strings.TrimSpace(string(exitErr.Stderr)))
		return nil, fmt.Errorf("git %s failed: %s", args[0], stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// Clone implements the Cloner interface.
func (c *LocalGitCloner) Clone(ctx context.Context, rawURL, dir string) error {
	remote, err := AuthenticatedURL(rawURL, c.token, c.host)
	if err != nil {
		return err
	}
	if c.token != "" && !TrustedRemote(rawURL, c.host) {
		LoggerFrom(ctx).Warn("cloning without credentials", "url", rawURL, "host", c.host)
	}
	args := []string{"clone", "--quiet"}
	if c.depth > 0 {
		args = append(args, fmt.Sprintf("--depth=%d", c.depth))
	}
	args = append(args, remote, dir)
	_, err = c.Run(ctx, args...)
	return err
}

func (c *LocalGitCloner) redact(s string) string {
	if c.token == "" {
		return s
	}
	return strings.ReplaceAll(s, c.token, "***")
}

// TrustedRemote reports whether credentials may be sent to rawURL: the scheme must be
// https and the host must be host.
func TrustedRemote(rawURL, host string) bool {
	if host == "" {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	return u.Scheme == "https" && strings.EqualFold(u.Host, host)
}

// AuthenticatedURL embeds token as the user info of an http(s) repository URL when
// the URL is a TrustedRemote of host. Any other URL is returned without credentials.
func AuthenticatedURL(rawURL, token, host string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse repository url: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", fmt.Errorf("repository url must be http(s): %q", rawURL)
	}
	u.User = nil
	if token != "" && TrustedRemote(rawURL, host) {
		u.User = url.User(token)
	}
	return u.String(), nil
}
