// Package metrics exposes batch progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Job outcomes used as the status label.
const (
	StatusSucceeded = "succeeded"
	StatusSkipped   = "skipped"
)

// Recorder holds the batch collectors on a private registry.
type Recorder struct {
	registry  *prometheus.Registry
	jobs      *prometheus.CounterVec
	duration  prometheus.Histogram
	inFlight  prometheus.Gauge
	rateWaits *prometheus.CounterVec
	waited    *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, so independent recorders never collide.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logscan",
			Name:      "jobs_total",
			Help:      "Repository jobs by outcome.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "logscan",
			Name:      "job_duration_seconds",
			Help:      "Wall time of one repository job.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "logscan",
			Name:      "jobs_in_flight",
			Help:      "Jobs currently held by a worker.",
		}),
		rateWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logscan",
			Name:      "rate_limit_waits_total",
			Help:      "Rate-limit waits by kind.",
		}, []string{"kind"}),
		waited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logscan",
			Name:      "rate_limit_wait_seconds_total",
			Help:      "Seconds spent waiting on rate limits by kind.",
		}, []string{"kind"}),
	}
	r.registry.MustRegister(r.jobs, r.duration, r.inFlight, r.rateWaits, r.waited)
	return r
}

// JobStarted marks a job as picked by a worker.
func (r *Recorder) JobStarted() {
	if r == nil {
		return
	}
	r.inFlight.Inc()
}

// JobFinished records the outcome and wall time of a job.
func (r *Recorder) JobFinished(status string, d time.Duration) {
	if r == nil {
		return
	}
	r.inFlight.Dec()
	r.jobs.WithLabelValues(status).Inc()
	r.duration.Observe(d.Seconds())
}

// RateWait records one rate-limit sleep. Its signature matches githubapi.WithWaitObserver.
func (r *Recorder) RateWait(kind string, d time.Duration) {
	if r == nil {
		return
	}
	r.rateWaits.WithLabelValues(kind).Inc()
	r.waited.WithLabelValues(kind).Add(d.Seconds())
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the scrape endpoint.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
