// Package githubapi issues authenticated GitHub REST requests and waits out rate limits.
package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/huangsam/logscan/internal/contract"
	"golang.org/x/time/rate"
)

// Resource classes tracked by the remote rate limiter.
const (
	CoreResource   = "core"
	SearchResource = "search"
)

// Wait kinds reported to the wait observer.
const (
	WaitAbuse     = "abuse"
	WaitExhausted = "exhausted"
)

const (
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
	contributorsPerPage = 100
)

// ErrMissingToken is returned by New when Config.Token is empty.
var ErrMissingToken = errors.New("github token is required")

// Config holds the client settings. There is no process-wide client state.
type Config struct {
	Token             string
	BaseURL           string        // Defaults to https://api.github.com/
	PollInterval      time.Duration // Sleep between /rate_limit polls, defaults to 30s
	AbuseMargin       time.Duration // Added to the reset time after an abuse response, defaults to 2s, negative means none
	RequestsPerSecond float64       // Client-side pacing, 0 disables
	HTTPClient        *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithSleep replaces the context-aware sleep used while waiting on rate limits.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithClock replaces the clock used to compute waits from reset timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithWaitObserver registers a callback invoked before every rate-limit wait.
func WithWaitObserver(observe func(kind string, d time.Duration)) Option {
	return func(c *Client) { c.observe = observe }
}

// Client wraps the GitHub API client with rate-limit recovery and pacing.
type Client struct {
	gh      *github.Client
	cfg     Config
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
	observe func(kind string, d time.Duration)
}

// New creates a client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingToken
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.AbuseMargin < 0 {
		cfg.AbuseMargin = 0
	} else if cfg.AbuseMargin == 0 {
		cfg.AbuseMargin = 2 * time.Second
	}

	gh := github.NewClient(cfg.HTTPClient).WithAuthToken(cfg.Token)
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse api url: %w", err)
		}
		gh.BaseURL = u
	}

	c := &Client{
		gh:      gh,
		cfg:     cfg,
		sleep:   sleepContext,
		now:     time.Now,
		observe: func(string, time.Duration) {},
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get issues GET path with params and decodes the JSON body into v.
func (c *Client) Get(ctx context.Context, path string, params url.Values, v any) error {
	u := strings.TrimPrefix(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	return c.call(ctx, resourceFor(u), func() (*github.Response, error) {
		return c.gh.Do(ctx, req, v)
	})
}

// Repository fetches repository metadata.
func (c *Client) Repository(ctx context.Context, owner, repo string) (*github.Repository, error) {
	var out *github.Repository
	err := c.call(ctx, CoreResource, func() (*github.Response, error) {
		r, resp, err := c.gh.Repositories.Get(ctx, owner, repo)
		out = r
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch repository %s/%s: %w", owner, repo, err)
	}
	return out, nil
}

// ContributorsPage returns the contribution counts of one contributors page,
// anonymous contributors included. An empty page means there are no more pages.
func (c *Client) ContributorsPage(ctx context.Context, owner, repo string, page int) ([]int, error) {
	params := url.Values{}
	params.Set("anon", "1")
	params.Set("per_page", strconv.Itoa(contributorsPerPage))
	params.Set("page", strconv.Itoa(page))

	var contributors []*github.Contributor
	path := fmt.Sprintf("repos/%s/%s/contributors", owner, repo)
	if err := c.Get(ctx, path, params, &contributors); err != nil {
		return nil, fmt.Errorf("fetch contributors %s/%s page %d: %w", owner, repo, page, err)
	}
	counts := make([]int, 0, len(contributors))
	for _, ct := range contributors {
		counts = append(counts, ct.GetContributions())
	}
	return counts, nil
}

// RateLimits returns the current remote rate-limit state.
func (c *Client) RateLimits(ctx context.Context) (*github.RateLimits, error) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch rate limits: %w", err)
	}
	return limits, nil
}

// call runs fn, waits out an abuse response and retries it once, then makes sure
// the resource class has capacity before returning.
func (c *Client) call(ctx context.Context, resource string, fn func() (*github.Response, error)) error {
	if err := c.pace(ctx); err != nil {
		return err
	}
	resp, err := fn()
	if wait, ok := c.abuseWait(err); ok {
		contract.LoggerFrom(ctx).Warn("rate limited by remote, waiting", "resource", resource, "wait", wait)
		c.observe(WaitAbuse, wait)
		if serr := c.sleep(ctx, wait); serr != nil {
			return serr
		}
		if perr := c.pace(ctx); perr != nil {
			return perr
		}
		resp, err = fn()
	}
	if err != nil {
		return err
	}
	return c.checkRemaining(ctx, resource, resp)
}

func (c *Client) pace(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// abuseWait reports how long to wait when err is a rate-limit or abuse rejection.
func (c *Client) abuseWait(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		if abuse.RetryAfter != nil {
			return *abuse.RetryAfter, true
		}
		return c.untilReset(resetFromHeader(abuse.Response)), true
	}
	var limited *github.RateLimitError
	if errors.As(err, &limited) {
		return c.untilReset(limited.Rate.Reset.Time), true
	}
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil &&
		errResp.Response.StatusCode == http.StatusForbidden && errResp.Message != "" {
		return c.untilReset(resetFromHeader(errResp.Response)), true
	}
	return 0, false
}

// untilReset returns reset - now + margin, clamped at zero. An unknown reset waits one poll interval.
func (c *Client) untilReset(reset time.Time) time.Duration {
	if reset.IsZero() {
		return c.cfg.PollInterval
	}
	return max(reset.Sub(c.now())+c.cfg.AbuseMargin, 0)
}

// checkRemaining blocks while the resource class is exhausted.
func (c *Client) checkRemaining(ctx context.Context, resource string, resp *github.Response) error {
	if resp == nil || resp.Header.Get(headerRateRemaining) == "" || resp.Rate.Remaining > 1 {
		return nil
	}
	return c.waitForCapacity(ctx, resource)
}

// waitForCapacity polls /rate_limit until the resource class has remaining > 0.
func (c *Client) waitForCapacity(ctx context.Context, resource string) error {
	logger := contract.LoggerFrom(ctx)
	for {
		limits, _, err := c.gh.RateLimit.Get(ctx)
		if err != nil {
			return fmt.Errorf("poll rate limit: %w", err)
		}
		r := limits.GetCore()
		if resource == SearchResource {
			r = limits.GetSearch()
		}
		if r != nil && r.Remaining > 0 {
			logger.Debug("rate limit recovered", "resource", resource, "remaining", r.Remaining)
			return nil
		}
		logger.Info("rate limit exhausted, polling", "resource", resource, "wait", c.cfg.PollInterval)
		c.observe(WaitExhausted, c.cfg.PollInterval)
		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return err
		}
	}
}

func resetFromHeader(resp *http.Response) time.Time {
	if resp == nil {
		return time.Time{}
	}
	v, err := strconv.ParseInt(resp.Header.Get(headerRateReset), 10, 64)
	if err != nil || v <= 0 {
		return time.Time{}
	}
	return time.Unix(v, 0)
}

func resourceFor(path string) string {
	if strings.HasPrefix(path, "search/") || strings.Contains(path, "/search/") {
		return SearchResource
	}
	return CoreResource
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
