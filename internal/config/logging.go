package config

import (
	"context"
	"log/slog"
)

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: author_pattern", "value", s.AuthorPattern)
	logger.InfoContext(ctx, "Config: discovery.search_root", "value", s.Discovery.SearchRoot)
	logger.InfoContext(ctx, "Config: discovery.cache_path", "value", s.Discovery.CachePath)
	if s.Discovery.Sentinel != ".git" {
		logger.InfoContext(ctx, "Config: discovery.sentinel", "value", s.Discovery.Sentinel)
	}
	if s.Discovery.IncludeUnreadable {
		logger.InfoContext(ctx, "Config: discovery.include_unreadable", "value", true)
	}
	if len(s.Discovery.Prune) > 0 {
		logger.InfoContext(ctx, "Config: discovery.prune", "value", s.Discovery.Prune)
	}

	logger.InfoContext(ctx, "Config: index", "dir", s.Index.Dir, "name", s.Index.Name)
	if s.Index.LockTimeout > 0 {
		logger.InfoContext(ctx, "Config: index.lock_timeout", "value", s.Index.LockTimeout)
	}
	logger.InfoContext(ctx, "Config: reset", "value", s.Reset)
	logger.InfoContext(ctx, "Config: workers", "value", s.Workers)
	logger.InfoContext(ctx, "Config: extract_timeout", "value", s.ExtractTimeout)

	if s.ReportFile != "" {
		logger.InfoContext(ctx, "Config: report_file", "value", s.ReportFile)
	}
	if s.MetricsFile != "" {
		logger.InfoContext(ctx, "Config: metrics_file", "value", s.MetricsFile)
	}
}

// SettingsLogValue returns a slog.Value grouping the settings of a run
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("author_pattern", s.AuthorPattern),
		slog.Bool("reset", s.Reset),
		slog.Int("workers", s.Workers),
		slog.Duration("extract_timeout", s.ExtractTimeout),
		slog.Any("discovery", DiscoverySettingsLogValue(s.Discovery)),
		slog.Any("index", IndexSettingsLogValue(s.Index)),
	)
}

// DiscoverySettingsLogValue returns a slog.Value for DiscoverySettings
func DiscoverySettingsLogValue(d DiscoverySettings) slog.Value {
	return slog.GroupValue(
		slog.String("search_root", d.SearchRoot),
		slog.String("cache_path", d.CachePath),
		slog.String("sentinel", d.Sentinel),
		slog.Bool("include_unreadable", d.IncludeUnreadable),
		slog.Any("prune", d.Prune),
	)
}

// IndexSettingsLogValue returns a slog.Value for IndexSettings
func IndexSettingsLogValue(i IndexSettings) slog.Value {
	return slog.GroupValue(
		slog.String("dir", i.Dir),
		slog.String("name", i.Name),
		slog.Duration("lock_timeout", i.LockTimeout),
	)
}
