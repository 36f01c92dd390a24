package service

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/sandraschi/notion-mcp/internal/notion"
)

// ─────────────────────────────────────────────────────────────
// Collaboration Service — comments and workspace members
// ─────────────────────────────────────────────────────────────

// CollabService wraps comment and user operations.
type CollabService struct {
	client *notion.Client
	log    hclog.Logger
}

// NewCollabService creates a CollabService.
func NewCollabService(client *notion.Client, logger hclog.Logger) *CollabService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &CollabService{client: client, log: logger.Named("collab")}
}

// Comment is a decoded discussion comment.
type Comment struct {
	ID           string `json:"id"`
	DiscussionID string `json:"discussion_id,omitempty"`
	Author       string `json:"author,omitempty"`
	Text         string `json:"text"`
	CreatedTime  string `json:"created_time,omitempty"`
}

// AddComment posts a comment. Exactly one of pageID and discussionID
// must be set: page comments start a new discussion, discussion
// comments continue one.
func (s *CollabService) AddComment(ctx context.Context, pageID, discussionID, text string) (*Comment, error) {
	if text == "" {
		return nil, notion.NewError(notion.KindValidation, "comment text is required")
	}
	richText := []notion.Object{
		{"type": "text", "text": notion.Object{"content": text}},
	}
	raw, err := s.client.CreateComment(ctx, pageID, discussionID, richText)
	if err != nil {
		return nil, err
	}
	comment := decodeComment(raw)
	s.log.Info("comment added", "id", comment.ID)
	return &comment, nil
}

// GetComments lists the comments on a page or block, following the
// cursor until limit comments are collected (0 means all).
func (s *CollabService) GetComments(ctx context.Context, blockID string, limit int) ([]Comment, error) {
	comments := []Comment{}
	cursor := ""
	for {
		list, err := s.client.ListComments(ctx, blockID, cursor, 0)
		if err != nil {
			return nil, err
		}
		for _, raw := range list.Results {
			comments = append(comments, decodeComment(raw))
			if limit > 0 && len(comments) >= limit {
				return comments, nil
			}
		}
		if !list.HasMore {
			return comments, nil
		}
		cursor = list.NextCursor
	}
}

// User is a workspace member or bot.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
	Email string `json:"email,omitempty"`
}

// ListUsers returns every workspace member, draining pagination.
func (s *CollabService) ListUsers(ctx context.Context) ([]User, error) {
	users := []User{}
	cursor := ""
	for {
		list, err := s.client.ListUsers(ctx, cursor, 0)
		if err != nil {
			return nil, err
		}
		for _, raw := range list.Results {
			users = append(users, decodeUser(raw))
		}
		if !list.HasMore {
			return users, nil
		}
		cursor = list.NextCursor
	}
}

// GetUser fetches one workspace member by ID.
func (s *CollabService) GetUser(ctx context.Context, userID string) (*User, error) {
	raw, err := s.client.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user := decodeUser(raw)
	return &user, nil
}

// ── Decoding ───────────────────────────────────────────────

func decodeComment(raw notion.Object) Comment {
	c := Comment{}
	c.ID, _ = raw["id"].(string)
	c.DiscussionID, _ = raw["discussion_id"].(string)
	c.CreatedTime, _ = raw["created_time"].(string)
	if createdBy, ok := raw["created_by"].(map[string]any); ok {
		if name, ok := createdBy["name"].(string); ok && name != "" {
			c.Author = name
		} else {
			c.Author, _ = createdBy["id"].(string)
		}
	}
	spans, _ := raw["rich_text"].([]any)
	for _, s := range spans {
		span, _ := s.(map[string]any)
		if pt, ok := span["plain_text"].(string); ok {
			c.Text += pt
			continue
		}
		if inner, ok := span["text"].(map[string]any); ok {
			if content, ok := inner["content"].(string); ok {
				c.Text += content
			}
		}
	}
	return c
}

func decodeUser(raw notion.Object) User {
	u := User{}
	u.ID, _ = raw["id"].(string)
	u.Name, _ = raw["name"].(string)
	u.Type, _ = raw["type"].(string)
	if person, ok := raw["person"].(map[string]any); ok {
		u.Email, _ = person["email"].(string)
	}
	return u
}
