package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jbruggem/personal-git-history/internal/domain"
	"github.com/jbruggem/personal-git-history/internal/gitlog"
	"github.com/jbruggem/personal-git-history/internal/index"
	"github.com/jbruggem/personal-git-history/internal/metrics"
)

// DefaultWorkers is the default number of repositories processed concurrently
const DefaultWorkers = 4

// State is a step of the per-repository state machine.
type State string

const (
	StatePending    State = "PENDING"
	StateExtracting State = "EXTRACTING"
	StateEmpty      State = "EMPTY"
	StateParsing    State = "PARSING"
	StateIndexing   State = "INDEXING"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// Extractor produces the raw log lines of one repository.
type Extractor interface {
	Extract(ctx context.Context, repoRoot, authorPattern string) ([]string, error)
}

// Indexer receives the parsed commits.
type Indexer interface {
	Reset(ctx context.Context) error
	UpsertBatch(ctx context.Context, batch domain.IngestionBatch) (index.BulkReport, error)
}

// Config holds everything a run needs. There is no process-wide state.
type Config struct {
	AuthorPattern string
	Workers       int
	// Reset recreates the index once before any repository is processed.
	Reset   bool
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// RepoResult is the outcome of one repository.
type RepoResult struct {
	Repository      string        `json:"repository"`
	State           State         `json:"state"`
	Empty           bool          `json:"empty,omitempty"`
	Lines           int           `json:"lines"`
	Commits         int           `json:"commits"`
	ParseErrors     int           `json:"parse_errors"`
	DocumentsFailed int           `json:"documents_failed"`
	Duration        time.Duration `json:"duration_ns"`
	FailedIn        State         `json:"failed_in,omitempty"`
	Error           string        `json:"error,omitempty"`
	Err             error         `json:"-"`
}

// RepoFailure identifies a FAILED repository and the state it failed in.
type RepoFailure struct {
	Repository string `json:"repository"`
	Stage      State  `json:"stage"`
	Error      string `json:"error"`
	Err        error  `json:"-"`
}

// Summary aggregates a run.
type Summary struct {
	RepositoriesScanned int           `json:"repositories_scanned"`
	RepositoriesFailed  int           `json:"repositories_failed"`
	CommitsIndexed      int           `json:"commits_indexed"`
	ParseErrorsTotal    int           `json:"parse_errors_total"`
	DocumentsFailed     int           `json:"documents_failed"`
	Failures            []RepoFailure `json:"failures,omitempty"`
	Results             []RepoResult  `json:"results"`
}

// Pipeline drives every repository through extraction, parsing and indexing.
type Pipeline struct {
	cfg       Config
	extractor Extractor
	indexer   Indexer
	logger    *slog.Logger

	mu      sync.Mutex
	summary Summary
}

// New creates a Pipeline.
func New(cfg Config, extractor Extractor, indexer Indexer) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:       cfg,
		extractor: extractor,
		indexer:   indexer,
		logger:    logger,
	}
}

// Run processes refs and returns the aggregated summary.
//
// A failing repository never stops the others. The returned error is non-nil
// only when the reset fails, in which case nothing is processed, or when ctx
// is cancelled; repositories not started by then are absent from the summary.
func (p *Pipeline) Run(ctx context.Context, refs []domain.RepositoryRef) (Summary, error) {
	p.mu.Lock()
	p.summary = Summary{Results: []RepoResult{}}
	p.mu.Unlock()

	if p.cfg.Reset {
		p.logger.Info("Resetting commit index")
		if err := p.indexer.Reset(ctx); err != nil {
			return p.snapshot(), fmt.Errorf("index reset failed: %w", err)
		}
	}

	sem := make(chan struct{}, p.cfg.Workers)
	var wg sync.WaitGroup

loop:
	for _, ref := range refs {
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}: // Acquire
		}
		// Both cases may be ready at once; cancellation wins.
		if ctx.Err() != nil {
			<-sem
			break
		}

		wg.Add(1)
		go func(ref domain.RepositoryRef) {
			defer wg.Done()
			defer func() { <-sem }() // Release

			p.record(p.processRepository(ctx, ref))
		}(ref)
	}

	wg.Wait()

	summary := p.snapshot()
	if err := ctx.Err(); err != nil {
		p.logger.Warn("Run cancelled", "processed", summary.RepositoriesScanned, "total", len(refs))
		return summary, err
	}
	return summary, nil
}

// processRepository runs the state machine for one repository.
func (p *Pipeline) processRepository(ctx context.Context, ref domain.RepositoryRef) RepoResult {
	start := time.Now()
	result := RepoResult{Repository: ref.Root, State: StatePending}
	logger := p.logger.With("repo", ref.Root)

	transition := func(s State) {
		logger.Debug("Repository state", "from", result.State, "to", s)
		result.State = s
	}
	finish := func() RepoResult {
		result.Duration = time.Since(start)
		return result
	}

	transition(StateExtracting)
	extractStart := time.Now()
	lines, err := p.extractor.Extract(ctx, ref.Root, p.cfg.AuthorPattern)
	p.cfg.Metrics.ObserveExtraction(time.Since(extractStart))
	if err != nil {
		p.fail(&result, logger, err)
		transition(StateFailed)
		return finish()
	}
	result.Lines = len(lines)

	if len(lines) == 0 {
		transition(StateEmpty)
		result.Empty = true
		transition(StateDone)
		logger.Debug("No matching commits")
		return finish()
	}

	transition(StateParsing)
	batch := gitlog.Parse(ref.Root, lines)
	result.ParseErrors = batch.ParseErrors
	for _, pe := range batch.Errors {
		logger.Debug("Skipping malformed log line", "line", pe.Line, "reason", pe.Reason)
	}

	if len(batch.Commits) == 0 {
		logger.Warn("All log lines malformed, nothing to index", "lines", len(lines))
		transition(StateEmpty)
		result.Empty = true
		transition(StateDone)
		return finish()
	}

	transition(StateIndexing)
	report, err := p.indexer.UpsertBatch(ctx, batch)
	result.Commits = report.Succeeded
	result.DocumentsFailed = report.Failed
	if err != nil {
		p.fail(&result, logger, err)
		transition(StateFailed)
		return finish()
	}
	for _, de := range report.Errors {
		logger.Warn("Document rejected by index", "hash", de.ID, "reason", de.Reason)
	}

	transition(StateDone)
	logger.Info("Number of matching commits",
		"commits", result.Commits,
		"parse_errors", result.ParseErrors,
		"documents_failed", result.DocumentsFailed,
	)
	return finish()
}

func (p *Pipeline) fail(result *RepoResult, logger *slog.Logger, err error) {
	result.FailedIn = result.State
	result.Error = err.Error()
	result.Err = err

	var extractErr *gitlog.ExtractionError
	if errors.As(err, &extractErr) {
		logger.Error("History extraction failed", "exit_code", extractErr.ExitCode, "error", err)
		logger.Debug("git output", "output", extractErr.Output)
		return
	}
	logger.Error("Indexing failed", "error", err)
}

// record folds one repository result into the summary.
func (p *Pipeline) record(result RepoResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &p.summary
	s.RepositoriesScanned++
	s.CommitsIndexed += result.Commits
	s.ParseErrorsTotal += result.ParseErrors
	s.DocumentsFailed += result.DocumentsFailed
	s.Results = append(s.Results, result)

	label := string(result.State)
	if result.State == StateFailed {
		s.RepositoriesFailed++
		s.Failures = append(s.Failures, RepoFailure{
			Repository: result.Repository,
			Stage:      result.FailedIn,
			Error:      result.Error,
			Err:        result.Err,
		})
	} else if result.Empty {
		label = string(StateEmpty)
	}

	p.cfg.Metrics.RepositoryFinished(label)
	p.cfg.Metrics.AddCommitsIndexed(result.Commits)
	p.cfg.Metrics.AddParseErrors(result.ParseErrors)
	p.cfg.Metrics.AddDocumentsFailed(result.DocumentsFailed)
}

// snapshot returns a copy of the summary sorted by repository.
func (p *Pipeline) snapshot() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.summary
	s.Results = append([]RepoResult{}, p.summary.Results...)
	s.Failures = append([]RepoFailure(nil), p.summary.Failures...)
	sort.Slice(s.Results, func(i, j int) bool { return s.Results[i].Repository < s.Results[j].Repository })
	sort.Slice(s.Failures, func(i, j int) bool { return s.Failures[i].Repository < s.Failures[j].Repository })
	return s
}
