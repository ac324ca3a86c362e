package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jbruggem/personal-git-history/internal/config"
	"github.com/jbruggem/personal-git-history/internal/domain"
	"github.com/jbruggem/personal-git-history/internal/gitlog"
	"github.com/jbruggem/personal-git-history/internal/index"
	"github.com/jbruggem/personal-git-history/internal/locator"
	"github.com/jbruggem/personal-git-history/internal/metrics"
	"github.com/jbruggem/personal-git-history/internal/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"
)

// RunParams contains dependencies for the run functions
type RunParams struct {
	LoadSettings  func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings func(*config.Settings) error
	Discover      func(context.Context, locator.Options) ([]domain.RepositoryRef, error)
	OpenIndex     func(context.Context, index.Options) (*index.Gateway, error)
	OpenReadOnly  func(index.Options) (*index.Gateway, error)
	NewExtractor  func(*config.Settings) pipeline.Extractor
	NewRunID      func() string

	Stdout            io.Writer     // Optional: defaults to os.Stdout
	LogOutput         io.Writer     // Optional: defaults to os.Stderr
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:  config.LoadSettingsWithFlags,
		ValidSettings: config.ValidateSettings,
		Discover:      locator.Discover,
		OpenIndex:     index.Open,
		OpenReadOnly:  index.OpenReadOnly,
		NewExtractor:  NewExtractor,
		NewRunID:      func() string { return uuid.New().String() },
	}
}

// NewExtractor creates the git log extractor configured by settings
func NewExtractor(settings *config.Settings) pipeline.Extractor {
	return gitlog.NewGitClient(settings.GitBinary, settings.ExtractTimeout)
}

// RunIndexWithDeps runs the indexing pipeline with the provided dependencies.
// Failed repositories are reported in the summary and do not make it return an error.
func RunIndexWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	// Load settings
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// Validate settings
	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configureLogging(params.logOutput(), settings)

	runID := params.NewRunID()
	logger := slog.Default().With("run_id", runID)
	logger.Info("Starting git history indexing", "version", version, "settings", config.SettingsLogValue(*settings))
	config.LogWithLogger(settings, logger)

	startedAt := time.Now()

	// A locked or unusable index fails the run before the search root is walked.
	gateway, err := params.OpenIndex(ctx, indexOptions(settings, logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			logger.Error("Failed to close index", "error", err)
		}
	}()

	policy := locator.ExcludeUnreadable
	if settings.Discovery.IncludeUnreadable {
		policy = locator.IncludeUnreadable
	}
	refs, err := params.Discover(ctx, locator.Options{
		SearchRoot: settings.Discovery.SearchRoot,
		CachePath:  settings.Discovery.CachePath,
		Sentinel:   settings.Discovery.Sentinel,
		Policy:     policy,
		Prune:      settings.Discovery.Prune,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	p := pipeline.New(pipeline.Config{
		AuthorPattern: settings.AuthorPattern,
		Workers:       settings.Workers,
		Reset:         settings.Reset,
		Logger:        logger,
		Metrics:       recorder,
	}, params.NewExtractor(settings), gateway)

	logger.Info("Parsing logs", "repositories", len(refs))
	summary, runErr := p.Run(ctx, refs)

	PrintSummary(params.stdout(), summary, settings.Verbose)

	if settings.ReportFile != "" {
		report := pipeline.Report{
			RunID:         runID,
			StartedAt:     startedAt,
			FinishedAt:    time.Now(),
			SearchRoot:    settings.Discovery.SearchRoot,
			AuthorPattern: settings.AuthorPattern,
			Reset:         settings.Reset,
			Cancelled:     ctx.Err() != nil,
			Summary:       summary,
		}
		if err := pipeline.SaveReport(settings.ReportFile, report); err != nil {
			logger.Error("Failed to save run report", "error", err)
		} else {
			logger.Info("Run report saved", "path", settings.ReportFile)
		}
	}

	if settings.MetricsFile != "" {
		if err := recorder.WriteTextfile(settings.MetricsFile); err != nil {
			logger.Error("Failed to write metrics", "error", err)
		}
	}

	return runErr
}

// configureLogging installs the default slog handler. Logs always go to
// stderr so that stdout carries only command output.
func configureLogging(w io.Writer, settings *config.Settings) {
	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func indexOptions(settings *config.Settings, logger *slog.Logger) index.Options {
	return index.Options{
		Dir:         settings.Index.Dir,
		Name:        settings.Index.Name,
		LockTimeout: settings.Index.LockTimeout,
		Logger:      logger,
	}
}

func (p RunParams) stdout() io.Writer {
	if p.Stdout != nil {
		return p.Stdout
	}
	return os.Stdout
}

func (p RunParams) logOutput() io.Writer {
	if p.LogOutput != nil {
		return p.LogOutput
	}
	return os.Stderr
}
