package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tomorrownow/PyFCM/internal/logging"
	"github.com/tomorrownow/PyFCM/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run an MCP server on stdio",
		Long: `Serve the fcm_steady_state, fcm_scenario, fcm_sensitivity and fcm_graph
tools over the Model Context Protocol on stdin/stdout.

Matrix paths in tool calls are resolved against --root and must stay
inside it or ~/.fcm. Engine settings a call leaves unset come from the
config file and environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			root, _ := cmd.Flags().GetString("root")
			absRoot, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("failed to resolve root: %w", err)
			}

			// stdout carries the protocol; logs go to stderr.
			logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
			runs := logging.NewRunLogger(cfg.RunLogDir(), cfg.Logging.Level)

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "fcm",
				Version:  version,
				Root:     absRoot,
				Defaults: cfg,
				Observer: &logging.SolveObserver{Logger: logger, Runs: runs},
				Runs:     runs,
			})
			if err != nil {
				runs.Close()
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			logger.Info("mcp server starting", "root", absRoot, "version", version)
			return server.Run(context.Background())
		},
	}

	cmd.Flags().String("root", ".", "Directory tool calls may read maps from")

	return cmd
}
