package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sandraschi/notion-mcp/internal/automation"
	"github.com/sandraschi/notion-mcp/internal/notion"
	"github.com/sandraschi/notion-mcp/internal/service"
)

// Server is the MCP server for the workspace integration. It exposes
// tools so AI agents can manage pages, databases, comments, and
// scheduled automations over stdio.
type Server struct {
	mcp *server.MCPServer
	log hclog.Logger

	// Services (injected from main)
	client      *notion.Client
	pages       *service.PageService
	databases   *service.DatabaseService
	collab      *service.CollabService
	automations *automation.Scheduler
}

// Deps holds all dependencies passed to the MCP server.
type Deps struct {
	Client      *notion.Client
	Pages       *service.PageService
	Databases   *service.DatabaseService
	Collab      *service.CollabService
	Automations *automation.Scheduler
	Logger      hclog.Logger
}

// New creates and configures an MCP server with all tools registered.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &Server{
		log:         logger.Named("mcp"),
		client:      deps.Client,
		pages:       deps.Pages,
		databases:   deps.Databases,
		collab:      deps.Collab,
		automations: deps.Automations,
	}

	s.mcp = server.NewMCPServer(
		"notion-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerPageTools()
	s.registerDatabaseTools()
	s.registerBulkTools()
	s.registerCollabTools()
	s.registerWorkspaceTools()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
