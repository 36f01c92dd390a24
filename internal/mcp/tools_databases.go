package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sandraschi/notion-mcp/internal/service"
)

func (s *Server) registerDatabaseTools() {
	s.mcp.AddTool(mcp.NewTool("create_database",
		mcp.WithDescription(`Create a database under a parent page. The schema maps property names to a type shorthand ("text", "number", "select", ...) or a detailed definition object ({"type":"select","options":["A","B"]}). A title property is added when the schema has none.`),
		mcp.WithString("title", mcp.Description("Database title"), mcp.Required()),
		mcp.WithString("parent_id", mcp.Description("Parent page ID"), mcp.Required()),
		mcp.WithString("schema", mcp.Description("Property definitions as a JSON object"), mcp.Required()),
		mcp.WithString("icon", mcp.Description("Emoji icon (optional)")),
		mcp.WithString("cover", mcp.Description("Cover image URL (optional)")),
	), s.handleCreateDatabase)

	s.mcp.AddTool(mcp.NewTool("get_database_schema",
		mcp.WithDescription("Fetch a database's property names, types, and select options"),
		mcp.WithString("database_id", mcp.Description("Database ID"), mcp.Required()),
	), s.handleGetDatabaseSchema)

	s.mcp.AddTool(mcp.NewTool("query_database",
		mcp.WithDescription(`Query database entries with filtering and sorting. Filters are validated against the schema before any request is sent. A filter is a leaf {"property":"Status","op":"equals","value":"Done"} or a group {"and":[...]} / {"or":[...]} / {"not":{...}}. Sorts accept property names or {"property":...,"descending":true}.`),
		mcp.WithString("database_id", mcp.Description("Database ID"), mcp.Required()),
		mcp.WithString("filter", mcp.Description("Filter tree as a JSON object (optional)")),
		mcp.WithString("sorts", mcp.Description("Sort list as a JSON array (optional)")),
		mcp.WithNumber("page_size", mcp.Description("Entries per page, max 100 (optional)")),
		mcp.WithString("cursor", mcp.Description("Cursor from a previous page (optional)")),
		mcp.WithBoolean("fetch_all", mcp.Description("Follow cursors until every entry is returned")),
	), s.handleQueryDatabase)

	s.mcp.AddTool(mcp.NewTool("create_database_entry",
		mcp.WithDescription("Add one entry to a database. Values are coerced against the schema: dates in common formats, lists as arrays or delimited strings, checkboxes as true/yes/1."),
		mcp.WithString("database_id", mcp.Description("Database ID"), mcp.Required()),
		mcp.WithString("values", mcp.Description("Property values as a JSON object"), mcp.Required()),
		mcp.WithString("content", mcp.Description("Plain text body for the entry page (optional)")),
	), s.handleCreateDatabaseEntry)

	s.mcp.AddTool(mcp.NewTool("update_database_entry",
		mcp.WithDescription("Update properties of an existing database entry"),
		mcp.WithString("page_id", mcp.Description("Entry page ID"), mcp.Required()),
		mcp.WithString("values", mcp.Description("Property values as a JSON object"), mcp.Required()),
	), s.handleUpdateDatabaseEntry)
}

func (s *Server) handleCreateDatabase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	dbSchema, err := getMap(args, "schema")
	if err != nil {
		return nil, err
	}
	info, err := s.databases.CreateDatabase(ctx, service.CreateDatabaseInput{
		Title:    req.GetString("title", ""),
		ParentID: req.GetString("parent_id", ""),
		Schema:   dbSchema,
		Icon:     req.GetString("icon", ""),
		Cover:    req.GetString("cover", ""),
	})
	if err != nil {
		return nil, fmt.Errorf("create database: %w", err)
	}
	return jsonResult(info)
}

func (s *Server) handleGetDatabaseSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.databases.GetSchema(ctx, req.GetString("database_id", ""))
	if err != nil {
		return nil, fmt.Errorf("get database schema: %w", err)
	}
	return jsonResult(info)
}

func (s *Server) handleQueryDatabase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	filter, err := getMap(args, "filter")
	if err != nil {
		return nil, err
	}
	sorts, err := getList(args, "sorts")
	if err != nil {
		return nil, err
	}
	result, err := s.databases.Query(ctx, service.QueryInput{
		DatabaseID: req.GetString("database_id", ""),
		Filter:     filter,
		Sorts:      sorts,
		PageSize:   getInt(args, "page_size", 0),
		Cursor:     req.GetString("cursor", ""),
		All:        getBool(args, "fetch_all"),
	})
	if err != nil {
		return nil, fmt.Errorf("query database: %w", err)
	}
	return jsonResult(result)
}

func (s *Server) handleCreateDatabaseEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	values, err := getMap(args, "values")
	if err != nil {
		return nil, err
	}
	info, err := s.databases.CreateEntry(ctx,
		req.GetString("database_id", ""), values, req.GetString("content", ""))
	if err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return jsonResult(info)
}

func (s *Server) handleUpdateDatabaseEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	values, err := getMap(args, "values")
	if err != nil {
		return nil, err
	}
	info, err := s.databases.UpdateEntry(ctx, req.GetString("page_id", ""), values, nil)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	return jsonResult(info)
}
