package app

import "github.com/spf13/pflag"

// RegisterPersistentFlags registers the flags shared by every command
func RegisterPersistentFlags(flags *pflag.FlagSet) {
	flags.String("index-dir", "", "Directory holding the commit index")
	flags.String("index-name", "", "Name of the commit index")
	flags.BoolP("verbose", "v", false, "List every failed repository with its error")
	flags.Bool("debug", false, "Enable debug logging")
}

// RegisterFlags registers the indexing flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("search-root", "r", "", "Directory searched for repositories")
	flags.StringP("cache-path", "c", "", "File caching the list of discovered repositories")
	flags.StringP("author-pattern", "a", "", "Extended regex matched against commit author and committer (default: global git user.name and user.email)")
	flags.Bool("reset", false, "Delete and recreate the index before indexing")
	flags.IntP("workers", "w", 0, "Number of repositories processed concurrently")
	flags.Duration("extract-timeout", 0, "Maximum duration of git log per repository")
	flags.String("git-binary", "", "Path to the git executable")
	flags.String("sentinel", "", "Directory name marking a repository")
	flags.Bool("include-unreadable", false, "Attempt directories that fail the permission check instead of pruning them")
	flags.StringSlice("prune", nil, "Directory name patterns not to descend into (comma-separated)")
	flags.Duration("lock-timeout", 0, "How long to wait for another indexing run to release the index")
	flags.String("report-file", "", "Write a JSON run report to this file")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file (textfile collector format)")
}

// RegisterSearchFlags registers the flags of the search command
func RegisterSearchFlags(flags *pflag.FlagSet) {
	flags.String("author-email", "", "Only commits by this author email")
	flags.String("repository", "", "Only commits from this repository root")
	flags.String("since", "", "Only commits authored at or after this date (YYYY-MM-DD or RFC 3339)")
	flags.String("until", "", "Only commits authored before this date (YYYY-MM-DD or RFC 3339)")
	flags.IntP("limit", "n", 0, "Maximum number of results (default: max-results setting)")
}

// RegisterServeFlags registers the flags of the serve command
func RegisterServeFlags(flags *pflag.FlagSet) {
	flags.Int("max-results", 0, "Maximum number of results returned by search_commits")
}
