package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"iacrules/internal/mcp"
	"iacrules/internal/telemetry"

	"github.com/spf13/cobra"
)

const telemetryShutdownTimeout = 5 * time.Second

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the rule catalog to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd)
		},
	}
}

func (a *app) serve(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, a.cfg.Telemetry, a.cfg.Server.Name, a.cfg.Server.Version)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			a.logger.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	observer, err := telemetry.NewGlobalToolObserver()
	if err != nil {
		return fmt.Errorf("telemetry observer: %w", err)
	}

	m := a.newManager()
	registry, err := mcp.NewToolRegistry(m, m.Templates())
	if err != nil {
		return fmt.Errorf("building tool registry: %w", err)
	}

	srv := mcp.NewServer(a.cfg, a.logger, registry, observer)
	return srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}
