package main

import (
	"context"
	"errors"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/plagiaguard/plagctl/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server over stdio",
	Long: `Run a Model Context Protocol server over stdio, exposing PlagiaGuard
operations (list reports, compare documents, run checks) as tools for
MCP-speaking agents. Requires a saved login session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if !client.Authenticated() {
			return errors.New("not logged in: run 'plagctl login' first")
		}

		srv := mcp.NewServer(mcp.Deps{Backend: client, Version: version})
		stdioSrv := server.NewStdioServer(srv)
		if err := stdioSrv.Listen(cmd.Context(), os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
