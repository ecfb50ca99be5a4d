package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/internal/metrics"
	"github.com/huangsam/logscan/schema"
)

// Runner processes a single job to completion.
type Runner interface {
	Run(ctx context.Context, job schema.RepositoryJob) schema.JobResult
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, job schema.RepositoryJob) schema.JobResult

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, job schema.RepositoryJob) schema.JobResult {
	return f(ctx, job)
}

// Instrument reports the start, outcome and wall time of every job to rec.
func Instrument(runner Runner, rec *metrics.Recorder) Runner {
	if rec == nil {
		return runner
	}
	return RunnerFunc(func(ctx context.Context, job schema.RepositoryJob) schema.JobResult {
		start := time.Now()
		rec.JobStarted()
		res := runner.Run(ctx, job)
		status := metrics.StatusSucceeded
		if !res.OK() {
			status = metrics.StatusSkipped
		}
		rec.JobFinished(status, time.Since(start))
		return res
	})
}

// RunBatch processes jobs with a fixed pool of workers pulling from a channel.
// A failing job never stops the batch; its result lands in Failures. Records,
// failures and templates are ordered by job index.
func RunBatch(ctx context.Context, jobs []schema.RepositoryJob, workers int, runner Runner) schema.BatchResult {
	logger := contract.LoggerFrom(ctx)
	workers = max(workers, 1)
	total := len(jobs)

	jobCh := make(chan schema.RepositoryJob, total)
	resultCh := make(chan schema.JobResult, total)
	var picked atomic.Int64
	var wg sync.WaitGroup

	// Start worker pool
	for range workers {
		wg.Go(func() {
			for job := range jobCh {
				n := picked.Add(1)
				progress := fmt.Sprintf("%d/%d", n, total)
				if err := ctx.Err(); err != nil {
					resultCh <- schema.JobResult{Job: job, Err: err}
					continue
				}

				logger.Info("job started", "job", progress, "url", job.URL)
				res := runSafely(withJobNumber(ctx, n), runner, job)
				if res.OK() {
					logger.Info("job finished", "job", progress, "url", job.URL)
				} else {
					logger.Warn("job skipped", "job", progress, "url", job.URL, "err", res.Err)
				}
				resultCh <- res
			}
		})
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	// Single barrier for the whole batch
	wg.Wait()
	close(resultCh)

	results := make([]schema.JobResult, 0, total)
	for r := range resultCh {
		results = append(results, r)
	}
	return collect(results)
}

// runSafely turns a panic escaping the runner into a failed result.
func runSafely(ctx context.Context, runner Runner, job schema.RepositoryJob) (res schema.JobResult) {
	defer func() {
		if r := recover(); r != nil {
			res = schema.JobResult{Job: job, Err: fmt.Errorf("%w: %v", ErrExtractionPanic, r)}
		}
	}()
	res = runner.Run(ctx, job)
	res.Job = job
	if res.Err == nil && res.Record == nil {
		res.Err = fmt.Errorf("job %d produced no record", job.Index)
	}
	return res
}

// collect orders results by job index and splits them into records and failures.
func collect(results []schema.JobResult) schema.BatchResult {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Job.Index < results[j].Job.Index
	})

	var batch schema.BatchResult
	for _, r := range results {
		if !r.OK() {
			batch.Failures = append(batch.Failures, r)
			continue
		}
		batch.Records = append(batch.Records, *r.Record)
		batch.Templates = append(batch.Templates, r.Templates...)
	}
	return batch
}
