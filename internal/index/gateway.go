package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/jbruggem/personal-git-history/internal/domain"
)

const (
	// IndexSuffix is the suffix for index directories
	IndexSuffix = ".bleve"

	// LockSuffix is the suffix for the writer lock file next to the index
	LockSuffix = ".lock"

	// MaxBatchSize is the maximum number of documents per Bleve batch
	MaxBatchSize = 500

	// readOnlyOpenTimeout bounds the wait on a store held by a running indexer
	readOnlyOpenTimeout = "5s"
)

var (
	// ErrIndexConnection wraps failures to open the index at startup. Run-fatal.
	ErrIndexConnection = errors.New("cannot open commit index")

	// ErrReadOnly is returned by write operations on a read-only gateway
	ErrReadOnly = errors.New("index opened read-only")

	// ErrNotFound indicates no commit with the requested hash
	ErrNotFound = errors.New("commit not found")
)

// IndexWriteError reports a bulk write that failed as a whole.
// Individual document failures are reported in BulkReport instead.
type IndexWriteError struct {
	Repository string
	Err        error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("bulk write for %s failed: %v", e.Repository, e.Err)
}

func (e *IndexWriteError) Unwrap() error {
	return e.Err
}

// DocumentError describes one document rejected inside a bulk write.
type DocumentError struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkReport counts the outcome of individual document writes.
type BulkReport struct {
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Errors    []DocumentError `json:"errors,omitempty"`
}

// Options locates the index on disk.
type Options struct {
	Dir  string
	Name string
	// LockTimeout is how long to wait for another writer to finish. Zero fails fast.
	LockTimeout time.Duration
	Logger      *slog.Logger
}

// Path returns the index directory for the options.
func (o Options) Path() string {
	return filepath.Join(o.Dir, o.Name+IndexSuffix)
}

// LockPath returns the writer lock file for the options.
func (o Options) LockPath() string {
	return filepath.Join(o.Dir, o.Name+LockSuffix)
}

// Gateway owns the commit index: its lifecycle, bulk upserts and queries.
// It is safe for concurrent use.
type Gateway struct {
	path     string
	lock     *FileLock
	logger   *slog.Logger
	readOnly bool

	mu    sync.RWMutex
	index bleve.Index
}

// Open acquires the writer lock and opens the index, creating it with
// CommitMapping when it does not exist yet.
func Open(ctx context.Context, opts Options) (*Gateway, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexConnection, err)
	}

	lock := NewFileLock(opts.LockPath())
	if err := lock.Acquire(ctx, opts.LockTimeout); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIndexConnection, lock.Path(), err)
	}

	path := opts.Path()
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		logger.Info("Creating commit index", "path", path)
		idx, err = bleve.New(path, CommitMapping())
	}
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("%w: %s: %w", ErrIndexConnection, path, err)
	}

	return &Gateway{
		path:   path,
		lock:   lock,
		logger: logger,
		index:  idx,
	}, nil
}

// OpenReadOnly opens an existing index for queries only. It takes no writer lock.
func OpenReadOnly(opts Options) (*Gateway, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	path := opts.Path()
	idx, err := bleve.OpenUsing(path, map[string]interface{}{
		"read_only":    true,
		"bolt_timeout": readOnlyOpenTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIndexConnection, path, err)
	}

	return &Gateway{
		path:     path,
		logger:   logger,
		readOnly: true,
		index:    idx,
	}, nil
}

// Path returns the index directory.
func (g *Gateway) Path() string {
	return g.path
}

// Reset deletes the index and recreates it empty with CommitMapping.
// A missing index is not an error.
func (g *Gateway) Reset(ctx context.Context) error {
	if g.readOnly {
		return ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.index != nil {
		if err := g.index.Close(); err != nil {
			return fmt.Errorf("failed to close index: %w", err)
		}
		g.index = nil
	}

	if err := os.RemoveAll(g.path); err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}

	idx, err := bleve.New(g.path, CommitMapping())
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	g.index = idx

	g.logger.Info("Commit index reset", "path", g.path)
	return nil
}

// UpsertBatch writes every commit of batch keyed by its hash, replacing any
// stored document with the same hash. Documents Bleve rejects are counted in
// the report; a failing batch write returns an *IndexWriteError.
func (g *Gateway) UpsertBatch(ctx context.Context, batch domain.IngestionBatch) (BulkReport, error) {
	var report BulkReport
	if g.readOnly {
		return report, ErrReadOnly
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.index == nil {
		return report, &IndexWriteError{Repository: batch.RepositoryRoot, Err: errors.New("index is closed")}
	}

	b := g.index.NewBatch()
	pending := 0

	flush := func() error {
		if pending == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.index.Batch(b); err != nil {
			return err
		}
		report.Succeeded += pending
		pending = 0
		b = g.index.NewBatch()
		return nil
	}

	for _, commit := range batch.Commits {
		if err := b.Index(commit.Hash, commit); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, DocumentError{ID: commit.Hash, Reason: err.Error()})
			continue
		}
		pending++

		if pending >= MaxBatchSize {
			if err := flush(); err != nil {
				return report, &IndexWriteError{Repository: batch.RepositoryRoot, Err: err}
			}
		}
	}

	if err := flush(); err != nil {
		return report, &IndexWriteError{Repository: batch.RepositoryRoot, Err: err}
	}

	return report, nil
}

// DocCount returns the number of documents in the index.
func (g *Gateway) DocCount() (uint64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.index == nil {
		return 0, errors.New("index is closed")
	}
	return g.index.DocCount()
}

// Close closes the index and releases the writer lock.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var err error
	if g.index != nil {
		if cerr := g.index.Close(); cerr != nil {
			err = fmt.Errorf("failed to close index: %w", cerr)
		}
		g.index = nil
	}
	if g.lock != nil {
		if uerr := g.lock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}
