package core

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"
	"github.com/huangsam/logscan/core/classes"
	"github.com/huangsam/logscan/core/contrib"
	"github.com/huangsam/logscan/core/logs"
	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/internal/lang"
	"github.com/huangsam/logscan/internal/rules"
	"github.com/huangsam/logscan/schema"
	"golang.org/x/sync/errgroup"
)

// API is the part of the hosting API a scan needs.
type API interface {
	contrib.PageFetcher
	Repository(ctx context.Context, owner, repo string) (*github.Repository, error)
}

// Workspaces hands out and reclaims clone directories.
type Workspaces interface {
	Acquire(ctx context.Context, url string) (string, error)
	Release(path string) error
}

// Scanner runs the configured pipelines against one repository at a time.
// It is safe for concurrent use by the workers of a batch.
type Scanner struct {
	cfg        *contract.Config
	api        API
	workspaces Workspaces
	rules      *rules.Compiled
	extractor  *logs.Extractor
	classifier *lang.Classifier
	cache      contract.CacheStore
}

// NewScanner wires a scanner. A nil cache disables API caching.
func NewScanner(cfg *contract.Config, api API, workspaces Workspaces, r *rules.Compiled, cache contract.CacheStore) *Scanner {
	return &Scanner{
		cfg:        cfg,
		api:        api,
		workspaces: workspaces,
		rules:      r,
		extractor:  logs.NewExtractor(r),
		classifier: lang.NewClassifier(r.Languages, cfg.SkipVendor),
		cache:      cache,
	}
}

// Run clones the repository of job, runs every configured pipeline and merges the
// sections into one record. The clone is released on every exit path, and a panic
// inside an extractor becomes ErrExtractionPanic.
func (s *Scanner) Run(ctx context.Context, job schema.RepositoryJob) (res schema.JobResult) {
	res.Job = job
	if err := job.Validate(); err != nil {
		res.Err = fmt.Errorf("%w: %q", err, job.URL)
		return res
	}

	dir, err := s.workspaces.Acquire(ctx, job.URL)
	if err != nil {
		res.Err = err
		return res
	}
	logger := contract.LoggerFrom(ctx)
	logger.Debug("workspace ready", "job", jobNumber(ctx), "repo", job.ID(), "dir", dir)
	defer func() {
		if err := s.workspaces.Release(dir); err != nil {
			logger.Warn("could not release workspace", "dir", dir, "err", err)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			res.Record, res.Templates = nil, nil
			res.Err = fmt.Errorf("%w: %v", ErrExtractionPanic, r)
		}
	}()

	record, templates, err := s.scan(ctx, job, dir)
	if err != nil {
		res.Err = err
		return res
	}
	res.Record, res.Templates = record, templates
	return res
}

// scan fetches the remote sections concurrently while the local pipelines run on
// the calling goroutine.
func (s *Scanner) scan(ctx context.Context, job schema.RepositoryJob, dir string) (*schema.RepoMetricRecord, []string, error) {
	owner, name := job.Owner(), job.Name()
	rec := &schema.RepoMetricRecord{RepoURL: job.URL, Project: name, Creator: owner}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(fetchCtx)
	defer func() {
		if r := recover(); r != nil {
			cancel()
			_ = g.Wait()
			panic(r)
		}
	}()

	var counts []int
	g.Go(func() error {
		var err error
		counts, err = cached(s.cache, contributorsKeyPrefix+job.ID(), s.cfg.CacheTTL, func() ([]int, error) {
			return contrib.Fetch(gctx, s.api, owner, name)
		})
		if err != nil {
			return fmt.Errorf("fetch contributors: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		meta, err := cached(s.cache, metadataKeyPrefix+job.ID(), s.cfg.CacheTTL, func() (schema.RepoMetadata, error) {
			repo, err := s.api.Repository(gctx, owner, name)
			if err != nil {
				return schema.RepoMetadata{}, err
			}
			return BuildMetadata(repo, s.rules), nil
		})
		if err != nil {
			return fmt.Errorf("fetch metadata: %w", err)
		}
		rec.Metadata = meta
		return nil
	})

	templates, err := s.scanLocal(ctx, job, dir, rec)
	if err != nil {
		cancel()
		_ = g.Wait()
		return nil, nil, err
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	rec.Metadata.Contributors = len(counts)
	if s.cfg.HasPipeline(schema.ContributorsPipeline) {
		d := contrib.Distribution(counts)
		rec.Contributors = &d
	}
	return rec, templates, nil
}

// scanLocal runs the pipelines that only read the clone.
func (s *Scanner) scanLocal(ctx context.Context, job schema.RepositoryJob, dir string, rec *schema.RepoMetricRecord) ([]string, error) {
	logger := contract.LoggerFrom(ctx)

	used, other, err := s.classifier.Histogram(dir)
	if err != nil {
		return nil, fmt.Errorf("language histogram: %w", err)
	}
	rec.UsedLangs, rec.OtherLangs = used, other

	var templates []string
	if s.cfg.HasPipeline(schema.LogsPipeline) {
		res, err := s.extractor.Scan(ctx, dir, s.classifier)
		if err != nil {
			return nil, fmt.Errorf("log pipeline: %w", err)
		}
		rec.Logs = &res.Metrics
		templates = res.Templates
		if s.cfg.LogRecordsDir != "" {
			if _, err := logs.WriteRecords(s.cfg.LogRecordsDir, job.Owner(), job.Name(), res.Lines); err != nil {
				logger.Warn("could not write log records", "repo", job.ID(), "err", err)
			}
		}
	}

	if s.cfg.HasPipeline(schema.ClassesPipeline) {
		m, err := classes.Scan(ctx, dir, s.cfg.ClassLanguage, s.cfg.MinSourceFiles, s.classifier)
		if err != nil {
			return nil, fmt.Errorf("class pipeline: %w", err)
		}
		rec.Classes = m
	}

	if s.cfg.HasPipeline(schema.ContributorsPipeline) {
		f := Friendliness(dir, s.rules.Keywords)
		rec.Friendliness = &f
	}
	return templates, nil
}
