package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/jbruggem/personal-git-history/internal/config"
	"github.com/jbruggem/personal-git-history/internal/domain"
	"github.com/jbruggem/personal-git-history/internal/index"
	"github.com/spf13/pflag"
)

func init() {
	color.NoColor = true
}

// seedIndex writes commits into the index described by settings.
func seedIndex(t *testing.T, settings *config.Settings, commits ...domain.Commit) {
	t.Helper()
	g, err := index.Open(context.Background(), indexOptions(settings, nil))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = g.Close() }()

	byRepo := map[string][]domain.Commit{}
	for _, c := range commits {
		byRepo[c.RepositoryRoot] = append(byRepo[c.RepositoryRoot], c)
	}
	for repo, cs := range byRepo {
		if _, err := g.UpsertBatch(context.Background(), domain.IngestionBatch{RepositoryRoot: repo, Commits: cs}); err != nil {
			t.Fatalf("UpsertBatch failed: %v", err)
		}
	}
}

func searchCommits() []domain.Commit {
	return []domain.Commit{
		{
			Hash: "1111111111111111aaaa", AuthorName: "Jane", AuthorEmail: "jane@x.com",
			AuthorDate: "2020-01-02T03:04:05+05:00", CommitterName: "Jane", CommitterEmail: "jane@x.com",
			CommitterDate: "2020-01-02T03:04:05+05:00", Message: "Fix parser crash", RepositoryRoot: "/src/alpha",
		},
		{
			Hash: "2222222222222222bbbb", AuthorName: "Jane", AuthorEmail: "jane@work.com",
			AuthorDate: "2022-03-04T10:00:00Z", CommitterName: "Jane", CommitterEmail: "jane@work.com",
			CommitterDate: "2022-03-04T10:00:00Z", Message: "Add search command", RepositoryRoot: "/src/beta",
		},
	}
}

func newSearchFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterPersistentFlags(flags)
	RegisterSearchFlags(flags)
	if err := flags.Parse(args); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return flags
}

func TestRunSearchWithDeps(t *testing.T) {
	env := newTestEnv(t)
	seedIndex(t, env.settings, searchCommits()...)

	tests := []struct {
		name    string
		query   string
		args    []string
		want    []string
		notWant []string
	}{
		{
			name:    "full text",
			query:   "parser",
			want:    []string{"111111111111 ", "Fix parser crash", "(/src/alpha)"},
			notWant: []string{"Add search command"},
		},
		{
			name:    "email filter",
			args:    []string{"--author-email", "jane@work.com"},
			want:    []string{"222222222222 ", "Add search command"},
			notWant: []string{"Fix parser crash"},
		},
		{
			name:    "date range",
			args:    []string{"--since", "2021-01-01"},
			want:    []string{"Add search command"},
			notWant: []string{"Fix parser crash"},
		},
		{
			name: "limit",
			args: []string{"-n", "1"},
			want: []string{"Add search command", "... and 1 more commits"},
		},
		{
			name:  "no match",
			query: "nonexistent",
			want:  []string{"No matching commits"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.stdout.Reset()
			err := RunSearchWithDeps(context.Background(), env.params(), newSearchFlags(t, tt.args...), tt.query)
			if err != nil {
				t.Fatalf("RunSearchWithDeps failed: %v", err)
			}

			out := env.stdout.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("Expected %q in output:\n%s", w, out)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(out, nw) {
					t.Errorf("Did not expect %q in output:\n%s", nw, out)
				}
			}
		})
	}
}

func TestRunSearchWithDeps_WhileIndexerHoldsLock(t *testing.T) {
	env := newTestEnv(t)
	seedIndex(t, env.settings, searchCommits()...)

	lock := index.NewFileLock(indexOptions(env.settings, nil).LockPath())
	if err := lock.Acquire(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := RunSearchWithDeps(context.Background(), env.params(), newSearchFlags(t), "search"); err != nil {
		t.Fatalf("Search should not need the writer lock: %v", err)
	}
	if !strings.Contains(env.stdout.String(), "Add search command") {
		t.Errorf("Unexpected output:\n%s", env.stdout.String())
	}
}

func TestRunSearchWithDeps_Errors(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing index", func(t *testing.T) {
		err := RunSearchWithDeps(context.Background(), env.params(), newSearchFlags(t), "x")
		if !errors.Is(err, index.ErrIndexConnection) {
			t.Errorf("Expected ErrIndexConnection, got %v", err)
		}
	})

	t.Run("invalid date", func(t *testing.T) {
		err := RunSearchWithDeps(context.Background(), env.params(), newSearchFlags(t, "--since", "yesterday"), "x")
		if err == nil || !strings.Contains(err.Error(), "--since") {
			t.Errorf("Expected --since error, got %v", err)
		}
	})

	t.Run("load settings", func(t *testing.T) {
		params := env.params()
		params.LoadSettings = func(*pflag.FlagSet) (*config.Settings, error) {
			return nil, errors.New("boom")
		}
		err := RunSearchWithDeps(context.Background(), params, nil, "x")
		if err == nil || !strings.Contains(err.Error(), "failed to load settings") {
			t.Errorf("Expected load error, got %v", err)
		}
	})

	t.Run("invalid index settings", func(t *testing.T) {
		params := env.params()
		params.LoadSettings = func(*pflag.FlagSet) (*config.Settings, error) {
			return &config.Settings{}, nil
		}
		err := RunSearchWithDeps(context.Background(), params, nil, "x")
		if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
			t.Errorf("Expected validation error, got %v", err)
		}
	})
}

func TestSearchRequest(t *testing.T) {
	req, err := searchRequest(newSearchFlags(t,
		"--author-email", "a@b.c",
		"--repository", "/src/x",
		"--since", "2020-01-01",
		"--until", "2021-01-01T00:00:00Z",
		"--limit", "5",
	), "  fix  ", 20)
	if err != nil {
		t.Fatalf("searchRequest failed: %v", err)
	}

	if req.Query != "fix" || req.AuthorEmail != "a@b.c" || req.Repository != "/src/x" || req.Size != 5 {
		t.Errorf("Unexpected request: %+v", req)
	}
	if req.Since.Year() != 2020 || req.Until.Year() != 2021 {
		t.Errorf("Unexpected dates: %v %v", req.Since, req.Until)
	}

	req, err = searchRequest(nil, "q", 7)
	if err != nil || req.Size != 7 || req.Query != "q" {
		t.Errorf("Unexpected request without flags: %+v, %v", req, err)
	}
}

func TestPrintSearchResult_ShortHash(t *testing.T) {
	var buf bytes.Buffer
	PrintSearchResult(&buf, &index.SearchResult{
		Total: 1,
		Hits:  []index.Hit{{Commit: domain.Commit{Hash: "abc", Message: "m"}}},
	})
	if !strings.HasPrefix(buf.String(), "abc ") {
		t.Errorf("Unexpected output: %q", buf.String())
	}
}
