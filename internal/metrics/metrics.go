package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the Prometheus metrics of one indexing run.
//
// Each Recorder owns its registry so that runs (and tests) never collide on
// registration. A nil *Recorder is valid and records nothing.
//
// Metrics:
//   - githistory_pipeline_repositories_total{state} - repositories by terminal state
//   - githistory_pipeline_commits_indexed_total - commits written to the index
//   - githistory_pipeline_parse_errors_total - malformed log lines
//   - githistory_pipeline_documents_failed_total - documents rejected by the index
//   - githistory_pipeline_extraction_duration_seconds - git log wall time per repository
type Recorder struct {
	registry *prometheus.Registry

	RepositoriesTotal  *prometheus.CounterVec
	CommitsIndexed     prometheus.Counter
	ParseErrors        prometheus.Counter
	DocumentsFailed    prometheus.Counter
	ExtractionDuration prometheus.Histogram
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		RepositoriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "githistory_pipeline_repositories_total",
				Help: "Total number of repositories processed, by terminal state",
			},
			[]string{"state"}, // "DONE", "EMPTY" or "FAILED"
		),
		CommitsIndexed: factory.NewCounter(prometheus.CounterOpts{
			Name: "githistory_pipeline_commits_indexed_total",
			Help: "Total number of commits written to the index",
		}),
		ParseErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "githistory_pipeline_parse_errors_total",
			Help: "Total number of log lines that could not be parsed",
		}),
		DocumentsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "githistory_pipeline_documents_failed_total",
			Help: "Total number of documents rejected by the index",
		}),
		ExtractionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "githistory_pipeline_extraction_duration_seconds",
			Help:    "Duration of history extraction per repository in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// Registry returns the registry holding the run's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RepositoryFinished counts a repository reaching a terminal state.
func (r *Recorder) RepositoryFinished(state string) {
	if r == nil {
		return
	}
	r.RepositoriesTotal.WithLabelValues(state).Inc()
}

func (r *Recorder) AddCommitsIndexed(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.CommitsIndexed.Add(float64(n))
}

func (r *Recorder) AddParseErrors(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.ParseErrors.Add(float64(n))
}

func (r *Recorder) AddDocumentsFailed(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.DocumentsFailed.Add(float64(n))
}

func (r *Recorder) ObserveExtraction(d time.Duration) {
	if r == nil {
		return
	}
	r.ExtractionDuration.Observe(d.Seconds())
}

// WriteTextfile writes the registry in the text exposition format,
// suitable for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.Registry()); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
