package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jbruggem/personal-git-history/internal/config"
	"github.com/jbruggem/personal-git-history/internal/index"
	"github.com/spf13/pflag"
)

var hashColor = warnColor

// RunSearchWithDeps queries the commit index and prints the matching commits.
func RunSearchWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, query string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := config.ValidateIndexSettings(&settings.Index); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configureLogging(params.logOutput(), settings)
	slog.Debug("Searching commit index", "index", config.IndexSettingsLogValue(settings.Index))

	req, err := searchRequest(flags, query, settings.MaxResults)
	if err != nil {
		return err
	}

	gateway, err := params.OpenReadOnly(indexOptions(settings, slog.Default()))
	if err != nil {
		return err
	}
	defer func() { _ = gateway.Close() }()

	result, err := gateway.Search(ctx, req)
	if err != nil {
		return err
	}

	PrintSearchResult(params.stdout(), result)
	return nil
}

// searchRequest builds the index request from the search flags.
func searchRequest(flags *pflag.FlagSet, query string, defaultLimit int) (index.SearchRequest, error) {
	req := index.SearchRequest{Query: strings.TrimSpace(query), Size: defaultLimit}
	if flags == nil {
		return req, nil
	}

	req.AuthorEmail, _ = flags.GetString("author-email")
	req.Repository, _ = flags.GetString("repository")
	if limit, _ := flags.GetInt("limit"); limit > 0 {
		req.Size = limit
	}

	since, _ := flags.GetString("since")
	until, _ := flags.GetString("until")
	var err error
	if req.Since, err = index.ParseDate(since); err != nil {
		return req, fmt.Errorf("--since: %w", err)
	}
	if req.Until, err = index.ParseDate(until); err != nil {
		return req, fmt.Errorf("--until: %w", err)
	}
	return req, nil
}

// PrintSearchResult writes one line per commit, newest first.
func PrintSearchResult(w io.Writer, result *index.SearchResult) {
	if result.Total == 0 {
		_, _ = dimColor.Fprintln(w, "No matching commits")
		return
	}

	for _, hit := range result.Hits {
		c := hit.Commit
		hash := c.Hash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		_, _ = hashColor.Fprint(w, hash)
		_, _ = fmt.Fprintf(w, " %s %s ", c.AuthorDate, c.AuthorName)
		_, _ = dimColor.Fprintf(w, "(%s)", c.RepositoryRoot)
		_, _ = fmt.Fprintf(w, " %s\n", c.Message)
	}

	if result.Total > uint64(len(result.Hits)) {
		_, _ = dimColor.Fprintf(w, "... and %d more commits\n", result.Total-uint64(len(result.Hits)))
	}
}
