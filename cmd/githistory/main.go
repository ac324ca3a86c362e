package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jbruggem/personal-git-history/internal/app"
	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "githistory"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   programName,
		Short: "Personal git history indexer",
		Long: "Finds every git repository under a search root, extracts the commits you authored " +
			"or committed and indexes them for full-text search.",
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunIndexWithDeps(cmd.Context(), app.DefaultRunParams(), cmd.Flags(), version)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}} (build ` + build + `)
`)

	app.RegisterPersistentFlags(rootCmd.PersistentFlags())
	app.RegisterFlags(rootCmd.Flags())

	searchCmd := &cobra.Command{
		Use:          "search <query>",
		Short:        "Search indexed commits",
		Long:         "Full-text search over indexed commit messages and names. Pass an empty query to list by filters only.",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunSearchWithDeps(cmd.Context(), app.DefaultRunParams(), cmd.Flags(), args[0])
		},
	}
	app.RegisterSearchFlags(searchCmd.Flags())

	serveCmd := &cobra.Command{
		Use:          "serve",
		Short:        "Serve the commit index over MCP (stdio)",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunServeWithDeps(cmd.Context(), app.DefaultRunParams(), cmd.Flags(), version)
		},
	}
	app.RegisterServeFlags(serveCmd.Flags())

	rootCmd.AddCommand(searchCmd, serveCmd)
	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(ctx)
}
