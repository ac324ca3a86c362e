package locator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/jbruggem/personal-git-history/internal/domain"
)

// DefaultSentinel is the name of the directory marking a repository.
const DefaultSentinel = ".git"

// ErrDiscovery wraps every run-fatal discovery failure (cache I/O, unusable search root).
var ErrDiscovery = errors.New("repository discovery failed")

// UnreadablePolicy decides what traversal does with directories the user cannot read.
type UnreadablePolicy int

const (
	// ExcludeUnreadable prunes directories failing a read+execute access check.
	ExcludeUnreadable UnreadablePolicy = iota
	// IncludeUnreadable descends anyway and skips whatever cannot be listed.
	IncludeUnreadable
)

// Options configures Discover.
type Options struct {
	SearchRoot string
	CachePath  string
	Sentinel   string
	Policy     UnreadablePolicy
	// Prune lists glob patterns matched against directory base names; matches are not descended into.
	Prune  []string
	Logger *slog.Logger
}

// Discover returns the repositories to scan.
//
// When the cache file exists it is authoritative and no traversal happens.
// Otherwise SearchRoot is walked and the result is written to the cache before
// being returned. The result is sorted by metadata directory and has no duplicates.
func Discover(ctx context.Context, opts Options) ([]domain.RepositoryRef, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Sentinel == "" {
		opts.Sentinel = DefaultSentinel
	}

	if opts.CachePath != "" {
		paths, err := ReadCache(opts.CachePath)
		if err == nil {
			logger.Info("Using cached repository list", "cache", opts.CachePath, "count", len(paths))
			return toRefs(paths), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	logger.Info("Finding all repositories", "search_root", opts.SearchRoot)
	paths, err := Walk(ctx, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("Repository search done", "count", len(paths))

	if opts.CachePath != "" {
		if err := WriteCache(opts.CachePath, paths); err != nil {
			return nil, err
		}
	}

	return toRefs(paths), nil
}

// Walk traverses SearchRoot and returns the sorted set of sentinel directories.
// Permission problems below the root are never reported as errors.
func Walk(ctx context.Context, opts Options) ([]string, error) {
	if opts.Sentinel == "" {
		opts.Sentinel = DefaultSentinel
	}

	root := filepath.Clean(opts.SearchRoot)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: search root: %w", ErrDiscovery, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: search root %s is not a directory", ErrDiscovery, root)
	}

	found := make(map[string]struct{})
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			// Unreadable entry; skip it (and its subtree if it is a directory).
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if opts.Policy == ExcludeUnreadable && !readable(path) {
			return filepath.SkipDir
		}

		if path == root {
			return nil
		}
		if d.Name() == opts.Sentinel {
			found[path] = struct{}{}
			return filepath.SkipDir
		}
		if matchesAny(opts.Prune, d.Name()) {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(found))
	for path := range found {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadCache reads the cached list of metadata directories.
// Lines are trimmed, blank lines dropped and duplicates removed.
// A missing cache returns an error satisfying errors.Is(err, fs.ErrNotExist).
func ReadCache(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: read cache: %w", ErrDiscovery, err)
	}
	defer func() { _ = f.Close() }()

	seen := make(map[string]struct{})
	var paths []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read cache: %w", ErrDiscovery, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// WriteCache writes one path per line, newline-terminated, atomically.
func WriteCache(path string, paths []string) error {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte('\n')
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: create cache directory: %w", ErrDiscovery, err)
		}
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("%w: write cache: %w", ErrDiscovery, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("%w: write cache: %w", ErrDiscovery, err)
	}
	return nil
}

// readable reports whether the current user may list and enter dir.
func readable(dir string) bool {
	return syscall.Access(dir, 0x4|0x1) == nil // R_OK|X_OK
}

func matchesAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

func toRefs(paths []string) []domain.RepositoryRef {
	refs := make([]domain.RepositoryRef, 0, len(paths))
	for _, p := range paths {
		refs = append(refs, domain.NewRepositoryRef(p))
	}
	return refs
}
