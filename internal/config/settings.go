package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the settings loader
const EnvPrefix = "GITHISTORY"

// DiscoverySettings configures how repositories are found
type DiscoverySettings struct {
	SearchRoot        string   `mapstructure:"search_root"`
	CachePath         string   `mapstructure:"cache_path"`
	Sentinel          string   `mapstructure:"sentinel"`
	IncludeUnreadable bool     `mapstructure:"include_unreadable"`
	Prune             []string `mapstructure:"prune"`
}

// IndexSettings locates the commit index
type IndexSettings struct {
	Dir         string        `mapstructure:"dir"`
	Name        string        `mapstructure:"name"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// Settings application settings
type Settings struct {
	AuthorPattern  string            `mapstructure:"author_pattern"`
	Reset          bool              `mapstructure:"reset"`
	Verbose        bool              `mapstructure:"verbose"`
	Debug          bool              `mapstructure:"debug"`
	Workers        int               `mapstructure:"workers"`
	ExtractTimeout time.Duration     `mapstructure:"extract_timeout"`
	GitBinary      string            `mapstructure:"git_binary"`
	MaxResults     int               `mapstructure:"max_results"`
	ReportFile     string            `mapstructure:"report_file"`
	MetricsFile    string            `mapstructure:"metrics_file"`
	Discovery      DiscoverySettings `mapstructure:"discovery"`
	Index          IndexSettings     `mapstructure:"index"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("author_pattern", "")
	v.SetDefault("reset", false)
	v.SetDefault("verbose", false)
	v.SetDefault("debug", false)
	v.SetDefault("workers", 4)
	v.SetDefault("extract_timeout", 60*time.Second)
	v.SetDefault("git_binary", "git")
	v.SetDefault("max_results", 20)
	v.SetDefault("report_file", "")
	v.SetDefault("metrics_file", "")

	// Discovery defaults
	v.SetDefault("discovery.search_root", "~")
	v.SetDefault("discovery.cache_path", filepath.Join(defaultBaseDir(), "cache-dirs"))
	v.SetDefault("discovery.sentinel", ".git")
	v.SetDefault("discovery.include_unreadable", false)
	v.SetDefault("discovery.prune", []string{})

	// Index defaults
	v.SetDefault("index.dir", filepath.Join(defaultBaseDir(), "indexes"))
	v.SetDefault("index.name", "personal-git-history")
	v.SetDefault("index.lock_timeout", time.Duration(0))

	// Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	_ = v.BindEnv("discovery.search_root", "GITHISTORY_SEARCH_ROOT")
	_ = v.BindEnv("discovery.cache_path", "GITHISTORY_CACHE_PATH")
	_ = v.BindEnv("discovery.sentinel", "GITHISTORY_SENTINEL")
	_ = v.BindEnv("discovery.include_unreadable", "GITHISTORY_INCLUDE_UNREADABLE")
	_ = v.BindEnv("discovery.prune", "GITHISTORY_PRUNE")
	_ = v.BindEnv("index.dir", "GITHISTORY_INDEX_DIR")
	_ = v.BindEnv("index.name", "GITHISTORY_INDEX_NAME")
	_ = v.BindEnv("index.lock_timeout", "GITHISTORY_LOCK_TIMEOUT")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		bindFlag(v, flags, "author_pattern", "author-pattern")
		bindFlag(v, flags, "reset", "reset")
		bindFlag(v, flags, "verbose", "verbose")
		bindFlag(v, flags, "debug", "debug")
		bindFlag(v, flags, "workers", "workers")
		bindFlag(v, flags, "extract_timeout", "extract-timeout")
		bindFlag(v, flags, "git_binary", "git-binary")
		bindFlag(v, flags, "max_results", "max-results")
		bindFlag(v, flags, "report_file", "report-file")
		bindFlag(v, flags, "metrics_file", "metrics-file")

		bindFlag(v, flags, "discovery.search_root", "search-root")
		bindFlag(v, flags, "discovery.cache_path", "cache-path")
		bindFlag(v, flags, "discovery.sentinel", "sentinel")
		bindFlag(v, flags, "discovery.include_unreadable", "include-unreadable")
		bindFlag(v, flags, "discovery.prune", "prune")

		bindFlag(v, flags, "index.dir", "index-dir")
		bindFlag(v, flags, "index.name", "index-name")
		bindFlag(v, flags, "index.lock_timeout", "lock-timeout")
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of prune patterns if provided via env var as comma-separated string
	pruneEnv := os.Getenv("GITHISTORY_PRUNE")
	if pruneEnv != "" {
		if len(settings.Discovery.Prune) == 0 || (len(settings.Discovery.Prune) == 1 && strings.Contains(settings.Discovery.Prune[0], ",")) {
			settings.Discovery.Prune = strings.Split(pruneEnv, ",")
		}
	}
	for i := range settings.Discovery.Prune {
		settings.Discovery.Prune[i] = strings.TrimSpace(settings.Discovery.Prune[i])
	}
	settings.Discovery.Prune = filterEmptyStrings(settings.Discovery.Prune)

	// Expand home directory in paths
	settings.Discovery.SearchRoot = expandHomeDir(settings.Discovery.SearchRoot)
	settings.Discovery.CachePath = expandHomeDir(settings.Discovery.CachePath)
	settings.Index.Dir = expandHomeDir(settings.Index.Dir)
	settings.ReportFile = expandHomeDir(settings.ReportFile)
	settings.MetricsFile = expandHomeDir(settings.MetricsFile)

	if strings.TrimSpace(settings.AuthorPattern) == "" {
		settings.AuthorPattern = GlobalAuthorPattern()
	}

	return &settings, nil
}

// bindFlag binds a flag when it is registered on the set.
func bindFlag(v *viper.Viper, flags *pflag.FlagSet, key, name string) {
	if f := flags.Lookup(name); f != nil {
		_ = v.BindPFlag(key, f)
	}
}

// GlobalAuthorPattern derives an author filter from user.name and user.email
// in the global git configuration. Returns "" when neither is set.
func GlobalAuthorPattern() string {
	cfg, err := gitconfig.LoadConfig(gitconfig.GlobalScope)
	if err != nil {
		return ""
	}
	return AuthorPattern(cfg.User.Name, cfg.User.Email)
}

// AuthorPattern builds an extended regex matching any of the given identities literally,
// e.g. "(Jane Doe|jane@example\.com)".
func AuthorPattern(identities ...string) string {
	var parts []string
	for _, id := range identities {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		parts = append(parts, regexp.QuoteMeta(id))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, "|") + ")"
}

// defaultBaseDir returns the default directory for the cache and the index
func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".githistory"
	}
	return filepath.Join(home, ".githistory")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks the settings needed by an indexing run.
func ValidateSettings(s *Settings) error {
	if strings.TrimSpace(s.AuthorPattern) == "" {
		return errors.New("author-pattern is required (set it, or configure user.name/user.email in the global git config)")
	}
	if _, err := regexp.Compile(s.AuthorPattern); err != nil {
		return fmt.Errorf("author-pattern is not a valid regular expression: %w", err)
	}

	if s.Workers <= 0 {
		return errors.New("workers must be positive")
	}

	if s.ExtractTimeout <= 0 {
		return errors.New("extract-timeout must be positive")
	}

	if s.GitBinary == "" {
		return errors.New("git-binary cannot be empty")
	}

	if err := validateDiscoverySettings(&s.Discovery); err != nil {
		return err
	}

	return ValidateIndexSettings(&s.Index)
}

// validateDiscoverySettings validates the discovery configuration
func validateDiscoverySettings(d *DiscoverySettings) error {
	if strings.TrimSpace(d.SearchRoot) == "" {
		return errors.New("search-root cannot be empty")
	}

	if d.Sentinel == "" || strings.ContainsRune(d.Sentinel, os.PathSeparator) {
		return errors.New("sentinel must be a plain directory name")
	}

	for _, pattern := range d.Prune {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid prune pattern %q: %w", pattern, err)
		}
	}

	return nil
}

// ValidateIndexSettings validates the index configuration. The query commands
// only need this part of the settings.
func ValidateIndexSettings(i *IndexSettings) error {
	if i.Dir == "" {
		return errors.New("index-dir cannot be empty")
	}

	if i.Name == "" || strings.ContainsRune(i.Name, os.PathSeparator) || i.Name == "." || i.Name == ".." {
		return errors.New("index-name must be a plain file name")
	}

	if i.LockTimeout < 0 {
		return errors.New("lock-timeout cannot be negative")
	}

	return nil
}
