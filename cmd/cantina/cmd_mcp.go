package main

import (
	"context"
	"fmt"
	"os"

	"cantina/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the catalog over the Model Context Protocol",
		Long: `Serve catalog tools over MCP on stdio.

The server exposes read-only search, suggestion, diff and duplicate
tools plus a catalog summary resource. stdout carries the protocol;
diagnostics go to stderr.

Example client configuration:
  {"mcpServers": {"cantina": {"command": "cantina", "args": ["mcp"]}}}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			srv, err := mcp.NewServer(&mcp.Config{
				Name:    "cantina",
				Version: version,
				Root:    root,
			})
			if err != nil {
				return fmt.Errorf("failed to start MCP server: %w", err)
			}

			fmt.Fprintln(os.Stderr, "cantina MCP server listening on stdio")
			return srv.Run(context.Background())
		},
	}

	return cmd
}
