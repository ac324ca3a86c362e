package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jbruggem/personal-git-history/internal/index"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GetArgument defines get_commit parameters.
type GetArgument struct {
	Hash string `json:"hash" jsonschema:"Full commit hash"`
}

// GetHandler handles the get_commit MCP tool.
type GetHandler struct {
	index CommitIndex
}

// NewGetHandler creates a new get handler.
func NewGetHandler(idx CommitIndex) *GetHandler {
	return &GetHandler{
		index: idx,
	}
}

// Handle looks up one commit by hash.
func (h *GetHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args GetArgument) (*mcp.CallToolResult, any, error) {
	hash := strings.TrimSpace(args.Hash)
	if hash == "" {
		return errorResult("Hash cannot be empty"), nil, nil
	}

	commit, err := h.index.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return errorResult(fmt.Sprintf("Commit not found: %s", hash)), nil, nil
		}
		return errorResult(fmt.Sprintf("Lookup failed: %s", err)), nil, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", commit.Message))
	sb.WriteString(fmt.Sprintf("- **Hash**: %s\n", commit.Hash))
	sb.WriteString(fmt.Sprintf("- **Author**: %s <%s>\n", commit.AuthorName, commit.AuthorEmail))
	sb.WriteString(fmt.Sprintf("- **Author date**: %s\n", commit.AuthorDate))
	sb.WriteString(fmt.Sprintf("- **Committer**: %s <%s>\n", commit.CommitterName, commit.CommitterEmail))
	sb.WriteString(fmt.Sprintf("- **Committer date**: %s\n", commit.CommitterDate))
	sb.WriteString(fmt.Sprintf("- **Repository**: %s\n", commit.RepositoryRoot))

	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *GetHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_commit",
		Description: "Get the indexed details of one commit by its hash",
	}
}

// RegisterGetTool registers the get tool with an MCP server.
func RegisterGetTool(server *mcp.Server, idx CommitIndex) {
	handler := NewGetHandler(idx)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
