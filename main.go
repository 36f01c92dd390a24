package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"github.com/sandraschi/notion-mcp/internal/automation"
	"github.com/sandraschi/notion-mcp/internal/config"
	mcpserver "github.com/sandraschi/notion-mcp/internal/mcp"
	"github.com/sandraschi/notion-mcp/internal/notion"
	"github.com/sandraschi/notion-mcp/internal/service"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Logs go to stderr: stdout belongs to the MCP stdio protocol.
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "notion-mcp",
		Level:  hclog.LevelFromString(envOr("LOG_LEVEL", "info")),
		Output: os.Stderr,
	})

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	transport := notion.NewTransport(cfg.Credential(), notion.TransportOptions{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
	client := notion.NewClient(transport, logger)

	pages := service.NewPageService(client, logger)
	databases := service.NewDatabaseService(client, logger)
	collab := service.NewCollabService(client, logger)

	scheduler := automation.NewScheduler(databases, logger)
	scheduler.Start()
	defer scheduler.Stop()

	srv := mcpserver.New(mcpserver.Deps{
		Client:      client,
		Pages:       pages,
		Databases:   databases,
		Collab:      collab,
		Automations: scheduler,
		Logger:      logger,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
