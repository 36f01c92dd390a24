package service

import (
	"context"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/sandraschi/notion-mcp/internal/notion"
	"github.com/sandraschi/notion-mcp/internal/schema"
)

// ─────────────────────────────────────────────────────────────
// Page Service — page CRUD, content rendering, search
// ─────────────────────────────────────────────────────────────

// PageService wraps page operations over the API client.
type PageService struct {
	client *notion.Client
	log    hclog.Logger
}

// NewPageService creates a PageService.
func NewPageService(client *notion.Client, logger hclog.Logger) *PageService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &PageService{client: client, log: logger.Named("pages")}
}

// PageInfo is the caller-facing summary of a created/updated page.
type PageInfo struct {
	ID    string `json:"id"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// CreatePageInput describes a page to create. ParentID is required:
// the remote service does not allow parentless pages for
// integrations. When Properties is set the parent is treated as a
// database and values are coerced against its schema.
type CreatePageInput struct {
	Title      string
	Content    string
	ParentID   string
	Properties map[string]any
	Children   []notion.Object
}

func (s *PageService) CreatePage(ctx context.Context, in CreatePageInput) (*PageInfo, error) {
	if in.ParentID == "" {
		return nil, notion.NewError(notion.KindValidation, "parent_id is required to create a page")
	}
	parentID, err := notion.NormalizeID(in.ParentID)
	if err != nil {
		return nil, err
	}

	body := notion.Object{}
	if len(in.Properties) > 0 {
		// Database parent: coerce and validate values against the
		// database schema, then add the title property.
		recordSchema, err := s.fetchSchema(ctx, parentID)
		if err != nil {
			return nil, err
		}
		props, err := buildEntryProperties(recordSchema, in.Properties, false)
		if err != nil {
			return nil, err
		}
		if in.Title != "" {
			if name, ok := titlePropertyName(recordSchema); ok {
				payload, err := schema.Encode(schema.Title(in.Title))
				if err != nil {
					return nil, err
				}
				props[name] = payload
			}
		}
		body["parent"] = notion.Object{"database_id": parentID}
		body["properties"] = props
	} else {
		titlePayload, err := schema.Encode(schema.Title(in.Title))
		if err != nil {
			return nil, err
		}
		body["parent"] = notion.Object{"page_id": parentID}
		body["properties"] = notion.Object{"title": titlePayload}
	}

	children := in.Children
	if len(children) == 0 && in.Content != "" {
		children = BuildContentBlocks(in.Content)
	}
	if len(children) > 0 {
		body["children"] = children
	}

	page, err := s.client.CreatePage(ctx, body)
	if err != nil {
		return nil, err
	}
	info := pageInfo(page)
	info.Title = in.Title
	s.log.Info("page created", "id", info.ID)
	return info, nil
}

// UpdatePageInput carries the mutable fields of a page. Nil pointers
// leave the corresponding field untouched.
type UpdatePageInput struct {
	PageID     string
	Title      string
	Content    string
	Properties map[string]any
	Archived   *bool
}

func (s *PageService) UpdatePage(ctx context.Context, in UpdatePageInput) (*PageInfo, error) {
	body := notion.Object{}

	if len(in.Properties) > 0 || in.Title != "" {
		page, err := s.client.GetPage(ctx, in.PageID)
		if err != nil {
			return nil, err
		}
		props := notion.Object{}
		if len(in.Properties) > 0 {
			recordSchema, err := s.schemaForPage(ctx, page)
			if err != nil {
				return nil, err
			}
			props, err = buildEntryProperties(recordSchema, in.Properties, false)
			if err != nil {
				return nil, err
			}
		}
		if in.Title != "" {
			name := pageTitleProperty(page)
			payload, err := schema.Encode(schema.Title(in.Title))
			if err != nil {
				return nil, err
			}
			props[name] = payload
		}
		body["properties"] = props
	}
	if in.Archived != nil {
		body["archived"] = *in.Archived
	}

	updated, err := s.client.UpdatePage(ctx, in.PageID, body)
	if err != nil {
		return nil, err
	}
	if in.Content != "" {
		blocks := BuildContentBlocks(in.Content)
		if _, err := s.client.AppendBlockChildren(ctx, in.PageID, blocks); err != nil {
			return nil, err
		}
	}
	s.log.Info("page updated", "id", in.PageID)
	return pageInfo(updated), nil
}

// ArchivePage moves a page to the trash (or restores it).
func (s *PageService) ArchivePage(ctx context.Context, pageID string, archived bool) (*PageInfo, error) {
	archivedCopy := archived
	return s.UpdatePage(ctx, UpdatePageInput{PageID: pageID, Archived: &archivedCopy})
}

// PageContent is a page plus its flattened block text.
type PageContent struct {
	ID     string   `json:"id"`
	URL    string   `json:"url,omitempty"`
	Title  string   `json:"title,omitempty"`
	Blocks []string `json:"blocks"`
}

// maxBlockDepth bounds the recursive child-block walk.
const maxBlockDepth = 10

// GetPageContent fetches a page and walks its block tree, returning
// the plain text of every block in document order.
func (s *PageService) GetPageContent(ctx context.Context, pageID string) (*PageContent, error) {
	page, err := s.client.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	content := &PageContent{Blocks: []string{}}
	content.ID, _ = page["id"].(string)
	content.URL, _ = page["url"].(string)
	if rec, err := schema.DecodeRecord(page); err == nil {
		content.Title = rec.PlainTitle()
	}

	if err := s.collectBlocks(ctx, content.ID, 0, &content.Blocks); err != nil {
		return nil, err
	}
	return content, nil
}

func (s *PageService) collectBlocks(ctx context.Context, blockID string, depth int, out *[]string) error {
	if depth >= maxBlockDepth {
		return nil
	}
	cursor := ""
	for {
		list, err := s.client.GetBlockChildren(ctx, blockID, cursor, 0)
		if err != nil {
			return err
		}
		for _, block := range list.Results {
			if text := BlockPlainText(block); text != "" {
				*out = append(*out, text)
			}
			hasChildren, _ := block["has_children"].(bool)
			if hasChildren {
				id, _ := block["id"].(string)
				if err := s.collectBlocks(ctx, id, depth+1, out); err != nil {
					return err
				}
			}
		}
		if !list.HasMore {
			return nil
		}
		cursor = list.NextCursor
	}
}

// SearchResult is one workspace search hit.
type SearchResult struct {
	ID     string `json:"id"`
	Object string `json:"object"`
	Title  string `json:"title,omitempty"`
	URL    string `json:"url,omitempty"`
}

// SearchPages runs a workspace search scoped to pages.
func (s *PageService) SearchPages(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	list, err := s.client.Search(ctx, notion.SearchParams{
		Query:      query,
		ObjectType: "page",
		PageSize:   limit,
	})
	if err != nil {
		return nil, err
	}
	results := make([]SearchResult, 0, len(list.Results))
	for _, obj := range list.Results {
		r := SearchResult{}
		r.ID, _ = obj["id"].(string)
		r.Object, _ = obj["object"].(string)
		r.URL, _ = obj["url"].(string)
		if rec, err := schema.DecodeRecord(obj); err == nil {
			r.Title = rec.PlainTitle()
		}
		results = append(results, r)
	}
	return results, nil
}

// ── Helpers ────────────────────────────────────────────────

func (s *PageService) fetchSchema(ctx context.Context, databaseID string) (*schema.RecordSchema, error) {
	db, err := s.client.GetDatabase(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	return schema.ParseRecordSchema(db)
}

// schemaForPage resolves the database schema of a database entry.
func (s *PageService) schemaForPage(ctx context.Context, page notion.Object) (*schema.RecordSchema, error) {
	parent, _ := page["parent"].(map[string]any)
	dbID, _ := parent["database_id"].(string)
	if dbID == "" {
		return nil, notion.NewError(notion.KindValidation,
			"page is not a database entry; it has no typed properties to update")
	}
	return s.fetchSchema(ctx, dbID)
}

func pageInfo(page notion.Object) *PageInfo {
	info := &PageInfo{}
	info.ID, _ = page["id"].(string)
	info.URL, _ = page["url"].(string)
	return info
}

// pageTitleProperty finds the name of the page's title property.
func pageTitleProperty(page notion.Object) string {
	props, _ := page["properties"].(map[string]any)
	for name, raw := range props {
		def, _ := raw.(map[string]any)
		if t, _ := def["type"].(string); t == "title" {
			return name
		}
	}
	return "title"
}

func titlePropertyName(s *schema.RecordSchema) (string, bool) {
	for _, name := range s.Names() {
		if def, ok := s.Lookup(name); ok && def.Kind == schema.KindTitle {
			return name, true
		}
	}
	return "", false
}

// ── Content blocks ─────────────────────────────────────────
// Markdown-lite rendering of plain text into remote blocks:
// paragraphs split on blank lines, #/##/### headings, -/* bullets.

// BuildContentBlocks converts plain text into block objects.
func BuildContentBlocks(content string) []notion.Object {
	if content == "" {
		return nil
	}
	var blocks []notion.Object
	for _, paragraph := range strings.Split(content, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		switch {
		case strings.HasPrefix(paragraph, "### "):
			blocks = append(blocks, textBlock("heading_3", paragraph[4:]))
		case strings.HasPrefix(paragraph, "## "):
			blocks = append(blocks, textBlock("heading_2", paragraph[3:]))
		case strings.HasPrefix(paragraph, "# "):
			blocks = append(blocks, textBlock("heading_1", paragraph[2:]))
		case strings.HasPrefix(paragraph, "- "), strings.HasPrefix(paragraph, "* "):
			// Each line of the run becomes one list item.
			for _, line := range strings.Split(paragraph, "\n") {
				line = strings.TrimSpace(line)
				if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
					blocks = append(blocks, textBlock("bulleted_list_item", line[2:]))
				}
			}
		default:
			blocks = append(blocks, textBlock("paragraph", paragraph))
		}
	}
	return blocks
}

func textBlock(blockType, text string) notion.Object {
	return notion.Object{
		"object": "block",
		"type":   blockType,
		blockType: notion.Object{
			"rich_text": []any{
				notion.Object{"type": "text", "text": notion.Object{"content": strings.TrimSpace(text)}},
			},
		},
	}
}

// BlockPlainText flattens one block's rich text to a plain string.
func BlockPlainText(block notion.Object) string {
	typ, _ := block["type"].(string)
	payload, _ := block[typ].(map[string]any)
	spans, _ := payload["rich_text"].([]any)
	var b strings.Builder
	for _, s := range spans {
		span, _ := s.(map[string]any)
		if pt, ok := span["plain_text"].(string); ok {
			b.WriteString(pt)
			continue
		}
		if inner, ok := span["text"].(map[string]any); ok {
			if content, ok := inner["content"].(string); ok {
				b.WriteString(content)
			}
		}
	}
	return b.String()
}
