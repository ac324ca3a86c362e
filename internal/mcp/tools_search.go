package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/jbruggem/personal-git-history/internal/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query       string `json:"query,omitempty" jsonschema:"Full-text query over commit messages and author and committer names"`
	AuthorEmail string `json:"author_email,omitempty" jsonschema:"Only commits by this exact author email"`
	Repository  string `json:"repository,omitempty" jsonschema:"Only commits from this repository root path"`
	Since       string `json:"since,omitempty" jsonschema:"Only commits authored at or after this date (YYYY-MM-DD or RFC 3339)"`
	Until       string `json:"until,omitempty" jsonschema:"Only commits authored before this date (YYYY-MM-DD or RFC 3339)"`
	Limit       int    `json:"limit,omitempty" jsonschema:"Maximum number of commits to return"`
}

// SearchHandler handles the search_commits MCP tool.
type SearchHandler struct {
	index      CommitIndex
	maxResults int
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(idx CommitIndex, maxResults int) *SearchHandler {
	return &SearchHandler{
		index:      idx,
		maxResults: maxResults,
	}
}

// Handle executes the search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	since, err := index.ParseDate(args.Since)
	if err != nil {
		return errorResult(fmt.Sprintf("Invalid since: %s", err)), nil, nil
	}
	until, err := index.ParseDate(args.Until)
	if err != nil {
		return errorResult(fmt.Sprintf("Invalid until: %s", err)), nil, nil
	}

	if strings.TrimSpace(args.Query) == "" && args.AuthorEmail == "" && args.Repository == "" && since.IsZero() && until.IsZero() {
		return errorResult("At least one of query, author_email, repository, since or until is required"), nil, nil
	}

	size := h.maxResults
	if args.Limit > 0 && args.Limit < size {
		size = args.Limit
	}

	results, err := h.index.Search(ctx, index.SearchRequest{
		Query:       args.Query,
		AuthorEmail: strings.TrimSpace(args.AuthorEmail),
		Repository:  strings.TrimSpace(args.Repository),
		Since:       since,
		Until:       until,
		Size:        size,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	return h.formatResults(results, args), nil, nil
}

// formatResults formats search results for MCP response.
func (h *SearchHandler) formatResults(results *index.SearchResult, args SearchArgument) *mcp.CallToolResult {
	if results.Total == 0 {
		return textResult(fmt.Sprintf("No commits found for %s", describe(args)))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d commits for %s:\n\n", results.Total, describe(args)))

	for i, hit := range results.Hits {
		c := hit.Commit
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, c.Message))
		sb.WriteString(fmt.Sprintf("- **Hash**: %s\n", c.Hash))
		sb.WriteString(fmt.Sprintf("- **Author**: %s <%s> on %s\n", c.AuthorName, c.AuthorEmail, c.AuthorDate))
		if c.CommitterEmail != c.AuthorEmail {
			sb.WriteString(fmt.Sprintf("- **Committer**: %s <%s> on %s\n", c.CommitterName, c.CommitterEmail, c.CommitterDate))
		}
		sb.WriteString(fmt.Sprintf("- **Repository**: %s\n\n", c.RepositoryRoot))
	}

	if results.Total > uint64(len(results.Hits)) {
		sb.WriteString(fmt.Sprintf("... and %d more commits\n", results.Total-uint64(len(results.Hits))))
	}

	return textResult(sb.String())
}

// describe renders the filters of args for result headers.
func describe(args SearchArgument) string {
	var parts []string
	if q := strings.TrimSpace(args.Query); q != "" {
		parts = append(parts, fmt.Sprintf("'%s'", q))
	}
	if args.AuthorEmail != "" {
		parts = append(parts, "author "+args.AuthorEmail)
	}
	if args.Repository != "" {
		parts = append(parts, "repository "+args.Repository)
	}
	if args.Since != "" {
		parts = append(parts, "since "+args.Since)
	}
	if args.Until != "" {
		parts = append(parts, "until "+args.Until)
	}
	return strings.Join(parts, ", ")
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_commits",
		Description: "Search your indexed git commit history by text, author email, repository and date range",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, idx CommitIndex, maxResults int) {
	handler := NewSearchHandler(idx, maxResults)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
