package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jbruggem/personal-git-history/internal/config"
	mcputil "github.com/jbruggem/personal-git-history/internal/mcp"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"
)

// RunServeWithDeps serves the commit index over MCP on stdio until ctx ends
// or the client disconnects.
func RunServeWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := config.ValidateIndexSettings(&settings.Index); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configureLogging(params.logOutput(), settings)
	slog.Info("Starting git history MCP server", "version", version, "index", config.IndexSettingsLogValue(settings.Index))

	gateway, err := params.OpenReadOnly(indexOptions(settings, slog.Default()))
	if err != nil {
		return err
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			slog.Error("Failed to close index", "error", err)
		}
	}()

	if count, err := gateway.DocCount(); err == nil {
		slog.Info("Serving commit index", "path", gateway.Path(), "commits", count)
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:       "githistory",
		Version:    version,
		Index:      gateway,
		MaxResults: settings.MaxResults,
	})

	// Use custom transport if provided (for testing), otherwise use stdio
	transport := params.CustomIOTransport
	if transport == nil {
		transport = &mcp.StdioTransport{}
	}
	return server.Run(ctx, transport)
}
