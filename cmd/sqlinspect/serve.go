package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shakram02/go-sql-inspect/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the database to MCP clients over stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout.

Each line on stdin is a JSON-RPC 2.0 request; each response is written as one
line on stdout. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, cfg, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	server := mcpserver.New(ctx, db, mcpserver.Options{
		QueryTimeout:     cfg.Query.Timeout,
		MaxRows:          cfg.Query.MaxRows,
		QueryRowsPerPage: cfg.Pagination.QueryRowsPerPage,
	}, slog.Default())
	defer server.Shutdown()

	slog.Info("mcp server started",
		"dialect", db.Descriptor().Dialect().String(),
		"read_only", db.Descriptor().ReadOnly(),
	)

	if err := server.Run(os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("server shutdown gracefully")
			return nil
		}
		return err
	}
	return nil
}
