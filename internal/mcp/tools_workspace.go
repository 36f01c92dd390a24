package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sandraschi/notion-mcp/internal/automation"
)

func (s *Server) registerWorkspaceTools() {
	s.mcp.AddTool(mcp.NewTool("test_connection",
		mcp.WithDescription("Verify the integration credential by fetching the bot user"),
	), s.handleTestConnection)

	s.mcp.AddTool(mcp.NewTool("get_usage_stats",
		mcp.WithDescription("Report request and error counters for this process"),
	), s.handleGetUsageStats)

	s.mcp.AddTool(mcp.NewTool("setup_automation",
		mcp.WithDescription("Register a scheduled automation that runs a saved database query on a cron schedule and logs the match count"),
		mcp.WithString("name", mcp.Description("Automation name, unique per process"), mcp.Required()),
		mcp.WithString("schedule", mcp.Description(`Standard 5-field cron expression, e.g. "0 9 * * 1"`), mcp.Required()),
		mcp.WithString("database_id", mcp.Description("Database the query runs against"), mcp.Required()),
		mcp.WithString("filter", mcp.Description("Filter tree as a JSON object (optional)")),
		mcp.WithString("trigger", mcp.Description(`Trigger kind, only "schedule" is supported (optional)`)),
	), s.handleSetupAutomation)

	s.mcp.AddTool(mcp.NewTool("list_automations",
		mcp.WithDescription("List registered automations with their run counters"),
	), s.handleListAutomations)

	s.mcp.AddTool(mcp.NewTool("remove_automation",
		mcp.WithDescription("Unregister an automation by name"),
		mcp.WithString("name", mcp.Description("Automation name"), mcp.Required()),
	), s.handleRemoveAutomation)
}

func (s *Server) handleTestConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.client.TestConnection(ctx))
}

func (s *Server) handleGetUsageStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.client.Stats())
}

func (s *Server) handleSetupAutomation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	filter, err := getMap(args, "filter")
	if err != nil {
		return nil, err
	}
	auto, err := s.automations.Setup(automation.SetupInput{
		Name:       req.GetString("name", ""),
		Trigger:    req.GetString("trigger", ""),
		Schedule:   req.GetString("schedule", ""),
		DatabaseID: req.GetString("database_id", ""),
		Filter:     filter,
	})
	if err != nil {
		return nil, fmt.Errorf("setup automation: %w", err)
	}
	return jsonResult(auto)
}

func (s *Server) handleListAutomations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.automations.List())
}

func (s *Server) handleRemoveAutomation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.automations.Remove(req.GetString("name", "")); err != nil {
		return nil, fmt.Errorf("remove automation: %w", err)
	}
	return textResult(fmt.Sprintf("automation %q removed", req.GetString("name", ""))), nil
}
