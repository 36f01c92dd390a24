package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sandraschi/notion-mcp/internal/service"
)

func (s *Server) registerBulkTools() {
	s.mcp.AddTool(mcp.NewTool("bulk_import_data",
		mcp.WithDescription(`Import flat records into a database. Data is a JSON array of objects or CSV text with a header row. The mapping maps source field names to target property names; when omitted, identically named fields are mapped. Strategy "strict" aborts on the first bad row, "best_effort" skips bad rows and reports them.`),
		mcp.WithString("database_id", mcp.Description("Target database ID"), mcp.Required()),
		mcp.WithString("data", mcp.Description("JSON array or CSV text"), mcp.Required()),
		mcp.WithString("merge_strategy", mcp.Description(`"strict" or "best_effort"`), mcp.Required()),
		mcp.WithString("mapping", mcp.Description("Source field to property name mapping as a JSON object (optional)")),
		mcp.WithBoolean("allow_new_options", mcp.Description("Accept select/status values outside the schema's known options")),
	), s.handleBulkImport)

	s.mcp.AddTool(mcp.NewTool("bulk_export_data",
		mcp.WithDescription(`Export database entries as CSV or JSON. CSV joins multi-valued properties with "; " inside quoted cells; JSON keeps arrays and numbers native.`),
		mcp.WithString("database_id", mcp.Description("Source database ID"), mcp.Required()),
		mcp.WithString("format", mcp.Description(`"csv" or "json" (default json)`)),
		mcp.WithString("filter", mcp.Description("Filter tree as a JSON object (optional)")),
		mcp.WithString("columns", mcp.Description("Column names as a JSON array; defaults to all properties sorted (optional)")),
	), s.handleBulkExport)
}

func (s *Server) handleBulkImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	mapping, err := getStringMap(args, "mapping")
	if err != nil {
		return nil, err
	}
	report, err := s.databases.BulkImport(ctx, service.BulkImportInput{
		DatabaseID:      req.GetString("database_id", ""),
		Data:            req.GetString("data", ""),
		Mapping:         mapping,
		Strategy:        req.GetString("merge_strategy", ""),
		AllowNewOptions: getBool(args, "allow_new_options"),
	})
	if err != nil {
		return nil, fmt.Errorf("bulk import: %w", err)
	}
	return jsonResult(report)
}

func (s *Server) handleBulkExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	filter, err := getMap(args, "filter")
	if err != nil {
		return nil, err
	}
	columns, err := getStringSlice(args, "columns")
	if err != nil {
		return nil, err
	}
	report, err := s.databases.BulkExport(ctx, service.BulkExportInput{
		DatabaseID: req.GetString("database_id", ""),
		Filter:     filter,
		Format:     req.GetString("format", ""),
		Columns:    columns,
	})
	if err != nil {
		return nil, fmt.Errorf("bulk export: %w", err)
	}
	return jsonResult(report)
}
