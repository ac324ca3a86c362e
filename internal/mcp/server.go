package mcp

import (
	"context"

	"github.com/jbruggem/personal-git-history/internal/domain"
	"github.com/jbruggem/personal-git-history/internal/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultMaxResults is used when ServerConfig.MaxResults is not positive
const DefaultMaxResults = 20

// CommitIndex is the read side of the commit index used by the tools.
type CommitIndex interface {
	Search(ctx context.Context, req index.SearchRequest) (*index.SearchResult, error)
	Get(ctx context.Context, hash string) (*domain.Commit, error)
}

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name       string
	Version    string
	Index      CommitIndex
	MaxResults int
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Index != nil {
		maxResults := cfg.MaxResults
		if maxResults <= 0 {
			maxResults = DefaultMaxResults
		}
		RegisterSearchTool(s, cfg.Index, maxResults)
		RegisterGetTool(s, cfg.Index)
	}

	return s
}

// errorResult builds a tool result reporting a failure to the client.
func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
