package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sandraschi/notion-mcp/internal/service"
)

func (s *Server) registerPageTools() {
	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a page under a parent page or database. Content supports #/##/### headings and -/* bullet lists; paragraphs are split on blank lines."),
		mcp.WithString("title", mcp.Description("Page title"), mcp.Required()),
		mcp.WithString("parent_id", mcp.Description("Parent page or database ID"), mcp.Required()),
		mcp.WithString("content", mcp.Description("Plain text body (optional)")),
		mcp.WithString("properties", mcp.Description("Property values as a JSON object when the parent is a database (optional)")),
	), s.handleCreatePage)

	s.mcp.AddTool(mcp.NewTool("update_page",
		mcp.WithDescription("Update a page's title or properties, and optionally append content blocks"),
		mcp.WithString("page_id", mcp.Description("Page ID"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title (optional)")),
		mcp.WithString("content", mcp.Description("Plain text to append as blocks (optional)")),
		mcp.WithString("properties", mcp.Description("Property values as a JSON object (optional)")),
	), s.handleUpdatePage)

	s.mcp.AddTool(mcp.NewTool("get_page_content",
		mcp.WithDescription("Fetch a page and the plain text of its block tree"),
		mcp.WithString("page_id", mcp.Description("Page ID"), mcp.Required()),
	), s.handleGetPageContent)

	s.mcp.AddTool(mcp.NewTool("search_pages",
		mcp.WithDescription("Search workspace pages by title"),
		mcp.WithString("query", mcp.Description("Search text"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	), s.handleSearchPages)

	s.mcp.AddTool(mcp.NewTool("archive_page",
		mcp.WithDescription("Move a page to the trash, or restore it"),
		mcp.WithString("page_id", mcp.Description("Page ID"), mcp.Required()),
		mcp.WithBoolean("restore", mcp.Description("Restore instead of archiving")),
	), s.handleArchivePage)
}

func (s *Server) handleCreatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	props, err := getMap(args, "properties")
	if err != nil {
		return nil, err
	}
	info, err := s.pages.CreatePage(ctx, service.CreatePageInput{
		Title:      req.GetString("title", ""),
		ParentID:   req.GetString("parent_id", ""),
		Content:    req.GetString("content", ""),
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return jsonResult(info)
}

func (s *Server) handleUpdatePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	props, err := getMap(args, "properties")
	if err != nil {
		return nil, err
	}
	info, err := s.pages.UpdatePage(ctx, service.UpdatePageInput{
		PageID:     req.GetString("page_id", ""),
		Title:      req.GetString("title", ""),
		Content:    req.GetString("content", ""),
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("update page: %w", err)
	}
	return jsonResult(info)
}

func (s *Server) handleGetPageContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := s.pages.GetPageContent(ctx, req.GetString("page_id", ""))
	if err != nil {
		return nil, fmt.Errorf("get page content: %w", err)
	}
	return jsonResult(content)
}

func (s *Server) handleSearchPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	limit := getInt(args, "limit", 20)
	results, err := s.pages.SearchPages(ctx, req.GetString("query", ""), limit)
	if err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}
	return jsonResult(results)
}

func (s *Server) handleArchivePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	restore := getBool(req.GetArguments(), "restore")
	info, err := s.pages.ArchivePage(ctx, req.GetString("page_id", ""), !restore)
	if err != nil {
		return nil, fmt.Errorf("archive page: %w", err)
	}
	return jsonResult(info)
}
