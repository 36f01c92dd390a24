package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerCollabTools() {
	s.mcp.AddTool(mcp.NewTool("add_comment",
		mcp.WithDescription("Add a comment to a page (new discussion) or to an existing discussion thread. Provide exactly one of page_id and discussion_id."),
		mcp.WithString("text", mcp.Description("Comment text"), mcp.Required()),
		mcp.WithString("page_id", mcp.Description("Page to comment on (optional)")),
		mcp.WithString("discussion_id", mcp.Description("Discussion thread to reply to (optional)")),
	), s.handleAddComment)

	s.mcp.AddTool(mcp.NewTool("get_comments",
		mcp.WithDescription("List the comments on a page or block"),
		mcp.WithString("page_id", mcp.Description("Page or block ID"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Maximum comments to return, 0 for all (optional)")),
	), s.handleGetComments)

	s.mcp.AddTool(mcp.NewTool("get_workspace_users",
		mcp.WithDescription("List workspace members and bots"),
	), s.handleGetWorkspaceUsers)
}

func (s *Server) handleAddComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	comment, err := s.collab.AddComment(ctx,
		req.GetString("page_id", ""),
		req.GetString("discussion_id", ""),
		req.GetString("text", ""))
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	return jsonResult(comment)
}

func (s *Server) handleGetComments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := getInt(req.GetArguments(), "limit", 0)
	comments, err := s.collab.GetComments(ctx, req.GetString("page_id", ""), limit)
	if err != nil {
		return nil, fmt.Errorf("get comments: %w", err)
	}
	return jsonResult(comments)
}

func (s *Server) handleGetWorkspaceUsers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	users, err := s.collab.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return jsonResult(users)
}
