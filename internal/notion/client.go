package notion

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// ── Client ─────────────────────────────────────────────────
// Thin, typed surface over the transport: one method per remote
// endpoint. Responses are returned as raw JSON objects; decoding
// into the internal value model is the schema codec's job, so the
// client stays free of property-type knowledge.

// Object is a raw JSON object returned by the remote service.
type Object = map[string]any

// List is the common shape of paginated responses.
type List struct {
	Results    []Object `json:"results"`
	HasMore    bool     `json:"has_more"`
	NextCursor string   `json:"next_cursor"`
}

// Client wraps a Transport with the Notion endpoint set.
type Client struct {
	transport *Transport
	log       hclog.Logger
}

// NewClient builds a client on top of an existing transport.
func NewClient(transport *Transport, logger hclog.Logger) *Client {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Client{transport: transport, log: logger.Named("client")}
}

// Transport exposes the underlying transport (for counters and tests).
func (c *Client) Transport() *Transport { return c.transport }

// maxPageSize is the remote service's hard cap on page_size.
const maxPageSize = 100

// ClampPageSize bounds a requested page size to the API limit.
func ClampPageSize(n int) int {
	if n <= 0 {
		return maxPageSize
	}
	if n > maxPageSize {
		return maxPageSize
	}
	return n
}

// NormalizeID validates a page/database/block ID and returns it in
// canonical hyphenated form. IDs are 32 hex characters, optionally
// hyphenated 8-4-4-4-12.
func NormalizeID(id string) (string, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(id), "-", "")
	if len(clean) != 32 {
		return "", NewError(KindValidation, "invalid page or database ID %q: expected 32 hex characters", id)
	}
	for _, r := range clean {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F') {
			return "", NewError(KindValidation, "invalid page or database ID %q: non-hex character %q", id, r)
		}
	}
	clean = strings.ToLower(clean)
	return clean[:8] + "-" + clean[8:12] + "-" + clean[12:16] + "-" + clean[16:20] + "-" + clean[20:], nil
}

// ── Pages ──────────────────────────────────────────────────

func (c *Client) GetPage(ctx context.Context, pageID string) (Object, error) {
	id, err := NormalizeID(pageID)
	if err != nil {
		return nil, err
	}
	var out Object
	env := NewEnvelope(http.MethodGet, "/v1/pages/"+id)
	return out, c.transport.Do(ctx, env, &out)
}

// CreatePage creates a page under a page or database parent. The body
// follows the remote schema: parent, properties, optional children.
func (c *Client) CreatePage(ctx context.Context, body Object) (Object, error) {
	var out Object
	env := NewEnvelope(http.MethodPost, "/v1/pages")
	env.Body = body
	return out, c.transport.Do(ctx, env, &out)
}

func (c *Client) UpdatePage(ctx context.Context, pageID string, body Object) (Object, error) {
	id, err := NormalizeID(pageID)
	if err != nil {
		return nil, err
	}
	var out Object
	env := NewEnvelope(http.MethodPatch, "/v1/pages/"+id)
	env.Body = body
	return out, c.transport.Do(ctx, env, &out)
}

// ── Blocks ─────────────────────────────────────────────────

func (c *Client) GetBlockChildren(ctx context.Context, blockID, cursor string, pageSize int) (*List, error) {
	id, err := NormalizeID(blockID)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("page_size", itoa(ClampPageSize(pageSize)))
	if cursor != "" {
		q.Set("start_cursor", cursor)
	}
	var out List
	env := NewEnvelope(http.MethodGet, "/v1/blocks/"+id+"/children")
	env.Query = q
	return &out, c.transport.Do(ctx, env, &out)
}

func (c *Client) AppendBlockChildren(ctx context.Context, blockID string, children []Object) (Object, error) {
	id, err := NormalizeID(blockID)
	if err != nil {
		return nil, err
	}
	var out Object
	env := NewEnvelope(http.MethodPatch, "/v1/blocks/"+id+"/children")
	env.Body = Object{"children": children}
	return out, c.transport.Do(ctx, env, &out)
}

// ── Databases ──────────────────────────────────────────────

func (c *Client) GetDatabase(ctx context.Context, databaseID string) (Object, error) {
	id, err := NormalizeID(databaseID)
	if err != nil {
		return nil, err
	}
	var out Object
	env := NewEnvelope(http.MethodGet, "/v1/databases/"+id)
	return out, c.transport.Do(ctx, env, &out)
}

func (c *Client) CreateDatabase(ctx context.Context, body Object) (Object, error) {
	var out Object
	env := NewEnvelope(http.MethodPost, "/v1/databases")
	env.Body = body
	return out, c.transport.Do(ctx, env, &out)
}

func (c *Client) UpdateDatabase(ctx context.Context, databaseID string, body Object) (Object, error) {
	id, err := NormalizeID(databaseID)
	if err != nil {
		return nil, err
	}
	var out Object
	env := NewEnvelope(http.MethodPatch, "/v1/databases/"+id)
	env.Body = body
	return out, c.transport.Do(ctx, env, &out)
}

// QueryDatabase runs one page of a database query. The body is built
// by the query package; the caller owns cursor continuation.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, body Object) (*List, error) {
	id, err := NormalizeID(databaseID)
	if err != nil {
		return nil, err
	}
	var out List
	env := NewEnvelope(http.MethodPost, "/v1/databases/"+id+"/query")
	env.Body = body
	return &out, c.transport.Do(ctx, env, &out)
}

// ── Search ─────────────────────────────────────────────────

// SearchParams narrows a workspace-wide search.
type SearchParams struct {
	Query      string
	ObjectType string // "page" | "database" | "" for both
	SortAsc    bool   // sort by last_edited_time ascending when true
	Cursor     string
	PageSize   int
}

func (c *Client) Search(ctx context.Context, p SearchParams) (*List, error) {
	body := Object{
		"query":     p.Query,
		"page_size": ClampPageSize(p.PageSize),
	}
	if p.ObjectType != "" {
		body["filter"] = Object{"property": "object", "value": p.ObjectType}
	}
	direction := "descending"
	if p.SortAsc {
		direction = "ascending"
	}
	body["sort"] = Object{"timestamp": "last_edited_time", "direction": direction}
	if p.Cursor != "" {
		body["start_cursor"] = p.Cursor
	}
	var out List
	env := NewEnvelope(http.MethodPost, "/v1/search")
	env.Body = body
	return &out, c.transport.Do(ctx, env, &out)
}

// ── Users ──────────────────────────────────────────────────

func (c *Client) ListUsers(ctx context.Context, cursor string, pageSize int) (*List, error) {
	q := url.Values{}
	q.Set("page_size", itoa(ClampPageSize(pageSize)))
	if cursor != "" {
		q.Set("start_cursor", cursor)
	}
	var out List
	env := NewEnvelope(http.MethodGet, "/v1/users")
	env.Query = q
	return &out, c.transport.Do(ctx, env, &out)
}

func (c *Client) GetUser(ctx context.Context, userID string) (Object, error) {
	var out Object
	env := NewEnvelope(http.MethodGet, "/v1/users/"+url.PathEscape(userID))
	return out, c.transport.Do(ctx, env, &out)
}

// Me returns the bot user the credential belongs to.
func (c *Client) Me(ctx context.Context) (Object, error) {
	var out Object
	env := NewEnvelope(http.MethodGet, "/v1/users/me")
	return out, c.transport.Do(ctx, env, &out)
}

// ── Comments ───────────────────────────────────────────────

func (c *Client) ListComments(ctx context.Context, blockID, cursor string, pageSize int) (*List, error) {
	id, err := NormalizeID(blockID)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("block_id", id)
	q.Set("page_size", itoa(ClampPageSize(pageSize)))
	if cursor != "" {
		q.Set("start_cursor", cursor)
	}
	var out List
	env := NewEnvelope(http.MethodGet, "/v1/comments")
	env.Query = q
	return &out, c.transport.Do(ctx, env, &out)
}

// CreateComment adds a comment to a page or to an existing discussion
// thread. Exactly one of pageID / discussionID must be set.
func (c *Client) CreateComment(ctx context.Context, pageID, discussionID string, richText []Object) (Object, error) {
	body := Object{"rich_text": richText}
	switch {
	case pageID != "" && discussionID != "":
		return nil, NewError(KindValidation, "provide either a page ID or a discussion ID, not both")
	case pageID != "":
		id, err := NormalizeID(pageID)
		if err != nil {
			return nil, err
		}
		body["parent"] = Object{"page_id": id}
	case discussionID != "":
		body["discussion_id"] = discussionID
	default:
		return nil, NewError(KindValidation, "a page ID or discussion ID is required to create a comment")
	}
	var out Object
	env := NewEnvelope(http.MethodPost, "/v1/comments")
	env.Body = body
	return out, c.transport.Do(ctx, env, &out)
}

// ── Diagnostics ────────────────────────────────────────────

// ConnectionInfo summarizes a connection test.
type ConnectionInfo struct {
	OK       bool   `json:"ok"`
	BotName  string `json:"bot_name,omitempty"`
	Requests int64  `json:"requests_made"`
	Error    string `json:"error,omitempty"`
}

// TestConnection verifies the credential by fetching the bot user.
func (c *Client) TestConnection(ctx context.Context) ConnectionInfo {
	me, err := c.Me(ctx)
	info := ConnectionInfo{Requests: c.transport.Counters().Requests()}
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.OK = true
	if name, ok := me["name"].(string); ok {
		info.BotName = name
	}
	return info
}

// Stats reports process-wide usage counters.
type Stats struct {
	Requests    int64   `json:"total_requests"`
	Errors      int64   `json:"total_errors"`
	SuccessRate float64 `json:"success_rate"`
}

func (c *Client) Stats() Stats {
	counters := c.transport.Counters()
	return Stats{
		Requests:    counters.Requests(),
		Errors:      counters.Errors(),
		SuccessRate: counters.SuccessRate(),
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
