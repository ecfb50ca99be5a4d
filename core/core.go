// Package core runs repository scans and drives a batch of them across a worker pool.
package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/huangsam/logscan/core/classes"
	"github.com/huangsam/logscan/core/logs"
	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/internal/githubapi"
	"github.com/huangsam/logscan/internal/metrics"
	"github.com/huangsam/logscan/internal/outwriter"
	"github.com/huangsam/logscan/internal/rules"
	"github.com/huangsam/logscan/internal/workspace"
	"github.com/huangsam/logscan/schema"
)

// Per-job failures.
var (
	ErrInsufficientFiles = classes.ErrInsufficientFiles
	ErrExtractionPanic   = errors.New("extractor panicked")
	ErrInvalidURL        = schema.ErrInvalidURL
)

// ParseJobs reads one repository URL per line. Blank lines and lines starting with # are
// skipped; the index of a job is its position among the kept lines.
func ParseJobs(r io.Reader) ([]schema.RepositoryJob, error) {
	var jobs []schema.RepositoryJob
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		jobs = append(jobs, schema.RepositoryJob{URL: line, Index: len(jobs)})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read repository list: %w", err)
	}
	return jobs, nil
}

// LoadJobs parses the repository list at path.
func LoadJobs(path string) ([]schema.RepositoryJob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open repository list: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseJobs(f)
}

// session bundles everything a batch or a single scan needs.
type session struct {
	scanner    *Scanner
	workspaces *workspace.Manager
	recorder   *metrics.Recorder
}

// newSession builds the API client, workspace manager and scanner from cfg.
func newSession(cfg *contract.Config, mgr contract.CacheManager) (*session, error) {
	r, err := rules.LoadCompiled(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	rec := metrics.New()
	api, err := githubapi.New(githubapi.Config{
		Token:             cfg.Token,
		BaseURL:           cfg.APIURL,
		PollInterval:      cfg.RatePollInterval,
		RequestsPerSecond: cfg.APIRate,
	}, githubapi.WithWaitObserver(rec.RateWait))
	if err != nil {
		return nil, err
	}
	ws := workspace.New(cfg.CloneDir, workspace.NewCloner(cfg.CloneBackend, cfg.Token, cfg.GitHost(), cfg.CloneDepth))

	var cache contract.CacheStore
	if mgr != nil {
		cache = mgr.GetCacheStore()
	}
	return &session{
		scanner:    NewScanner(cfg, api, ws, r, cache),
		workspaces: ws,
		recorder:   rec,
	}, nil
}

// ExecuteScan runs the whole batch described by cfg and writes the final table.
func ExecuteScan(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	logger := contract.LoggerFrom(ctx)

	if err := cfg.RequireToken(); err != nil {
		return err
	}
	jobs, err := LoadJobs(cfg.InputFile)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return errors.New("repository list is empty")
	}
	s, err := newSession(cfg, mgr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := s.recorder.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Warn("metrics endpoint stopped", "addr", cfg.MetricsAddr, "err", err)
			}
		}()
	}

	// Leftovers of an interrupted run
	if err := s.workspaces.Purge(); err != nil {
		logger.Warn("could not purge clone directory", "dir", s.workspaces.Base(), "err", err)
	}
	defer func() {
		if err := s.workspaces.Purge(); err != nil {
			logger.Warn("could not purge clone directory", "dir", s.workspaces.Base(), "err", err)
		}
	}()

	runID := beginRun(ctx, cfg, mgr, start)
	logger.Info("batch started", "jobs", len(jobs), "workers", cfg.Workers, "pipelines", cfg.Pipelines)
	batch := RunBatch(ctx, jobs, cfg.Workers, Instrument(s.scanner, s.recorder))
	endRun(ctx, mgr, runID, batch)
	logger.Info("batch finished", "succeeded", len(batch.Records), "skipped", len(batch.Failures), "took", time.Since(start).Round(time.Millisecond))

	if cfg.HistogramDir != "" {
		words, lines := logs.BuildHistograms(batch.Templates, cfg.HistogramMin)
		if err := outwriter.WriteHistograms(cfg.HistogramDir, words, lines); err != nil {
			contract.LogWarn(ctx, "Could not write template histograms", err)
		}
	}
	if err := outwriter.PrintBatchResults(batch, cfg, time.Since(start)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("scan interrupted: %w", err)
	}
	return nil
}

// ScanRepository scans a single repository URL with the pipelines of cfg.
func ScanRepository(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, url string) (schema.JobResult, error) {
	if err := cfg.RequireToken(); err != nil {
		return schema.JobResult{}, err
	}
	s, err := newSession(cfg, mgr)
	if err != nil {
		return schema.JobResult{}, err
	}
	return runSafely(ctx, s.scanner, schema.RepositoryJob{URL: strings.TrimSpace(url)}), nil
}

// beginRun opens a run in the results store, returning 0 when tracking is off or fails.
func beginRun(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, start time.Time) int64 {
	store := resultsStore(mgr)
	if store == nil {
		return 0
	}
	runID, err := store.BeginRun(start, cfg.Params())
	if err != nil {
		contract.LogWarn(ctx, "Results tracking initialization failed", err)
		return 0
	}
	return runID
}

// endRun stores every successful record and closes the run.
func endRun(ctx context.Context, mgr contract.CacheManager, runID int64, batch schema.BatchResult) {
	store := resultsStore(mgr)
	if store == nil || runID <= 0 {
		return
	}
	for _, r := range batch.Records {
		if err := store.RecordRepo(runID, r); err != nil {
			contract.LogWarn(ctx, fmt.Sprintf("Results tracking failed for %s", r.ID()), err)
		}
	}
	if err := store.EndRun(runID, time.Now(), len(batch.Records), len(batch.Failures)); err != nil {
		contract.LogWarn(ctx, "Failed to finalize results tracking", err)
	}
}

func resultsStore(mgr contract.CacheManager) contract.ResultsStore {
	if mgr == nil {
		return nil
	}
	return mgr.GetResultsStore()
}
