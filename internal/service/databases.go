package service

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/sandraschi/notion-mcp/internal/bulk"
	"github.com/sandraschi/notion-mcp/internal/notion"
	"github.com/sandraschi/notion-mcp/internal/query"
	"github.com/sandraschi/notion-mcp/internal/schema"
)

// ─────────────────────────────────────────────────────────────
// Database Service — schema management, queries, entries, bulk I/O
// ─────────────────────────────────────────────────────────────

// DatabaseService wraps database operations over the API client.
type DatabaseService struct {
	client *notion.Client
	log    hclog.Logger
}

// NewDatabaseService creates a DatabaseService.
func NewDatabaseService(client *notion.Client, logger hclog.Logger) *DatabaseService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &DatabaseService{client: client, log: logger.Named("databases")}
}

// DatabaseInfo summarizes a created database.
type DatabaseInfo struct {
	ID    string `json:"id"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title"`
}

// CreateDatabaseInput describes a database to create. Schema maps
// property names to either a type shorthand string or a detailed
// definition object.
type CreateDatabaseInput struct {
	Title    string
	ParentID string
	Schema   map[string]any
	Icon     string
	Cover    string
}

func (s *DatabaseService) CreateDatabase(ctx context.Context, in CreateDatabaseInput) (*DatabaseInfo, error) {
	if in.Title == "" {
		return nil, notion.NewError(notion.KindValidation, "database title is required")
	}
	if in.ParentID == "" {
		return nil, notion.NewError(notion.KindValidation, "parent_id is required to create a database")
	}
	parentID, err := notion.NormalizeID(in.ParentID)
	if err != nil {
		return nil, err
	}
	props, err := schema.BuildPropertyDefinitions(in.Schema)
	if err != nil {
		return nil, err
	}

	body := notion.Object{
		"parent": notion.Object{"type": "page_id", "page_id": parentID},
		"title": []any{
			notion.Object{"type": "text", "text": notion.Object{"content": in.Title}},
		},
		"properties": props,
	}
	if in.Icon != "" {
		body["icon"] = notion.Object{"type": "emoji", "emoji": in.Icon}
	}
	if in.Cover != "" {
		body["cover"] = notion.Object{"type": "external", "external": notion.Object{"url": in.Cover}}
	}

	db, err := s.client.CreateDatabase(ctx, body)
	if err != nil {
		return nil, err
	}
	info := &DatabaseInfo{Title: in.Title}
	info.ID, _ = db["id"].(string)
	info.URL, _ = db["url"].(string)
	s.log.Info("database created", "id", info.ID, "properties", len(props))
	return info, nil
}

// SchemaProperty is one property in a schema report.
type SchemaProperty struct {
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
}

// SchemaInfo is the caller-facing view of a database schema.
type SchemaInfo struct {
	ID         string                    `json:"id"`
	Title      string                    `json:"title,omitempty"`
	Properties map[string]SchemaProperty `json:"properties"`
}

// GetSchema fetches and simplifies a database schema.
func (s *DatabaseService) GetSchema(ctx context.Context, databaseID string) (*SchemaInfo, error) {
	db, err := s.client.GetDatabase(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	recordSchema, err := schema.ParseRecordSchema(db)
	if err != nil {
		return nil, err
	}
	info := &SchemaInfo{Properties: make(map[string]SchemaProperty, recordSchema.Len())}
	info.ID, _ = db["id"].(string)
	info.Title = databaseTitle(db)
	for _, name := range recordSchema.Names() {
		def, _ := recordSchema.Lookup(name)
		info.Properties[name] = SchemaProperty{Type: string(def.Kind), Options: def.Options}
	}
	return info, nil
}

// ── Queries ────────────────────────────────────────────────

// QueryInput is one database query request. Filter and Sorts arrive in
// the loose wire shape and are validated against the schema before any
// request is sent. All drains every result page.
type QueryInput struct {
	DatabaseID string
	Filter     map[string]any
	Sorts      []any
	PageSize   int
	Cursor     string
	All        bool
}

// QueryResult is one page (or the full drain) of decoded entries.
type QueryResult struct {
	Records    []schema.DecodedRecord `json:"records"`
	HasMore    bool                   `json:"has_more"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

func (s *DatabaseService) Query(ctx context.Context, in QueryInput) (*QueryResult, error) {
	databaseID, err := notion.NormalizeID(in.DatabaseID)
	if err != nil {
		return nil, err
	}
	recordSchema, err := s.fetchSchema(ctx, databaseID)
	if err != nil {
		return nil, err
	}

	q := query.Query{Cursor: in.Cursor, PageSize: in.PageSize}
	if len(in.Filter) > 0 {
		q.Filter, err = query.ParseFilter(in.Filter)
		if err != nil {
			return nil, err
		}
	}
	if len(in.Sorts) > 0 {
		q.Sorts, err = query.ParseSorts(in.Sorts)
		if err != nil {
			return nil, err
		}
	}

	result := &QueryResult{Records: []schema.DecodedRecord{}}
	for {
		body, err := q.Build(recordSchema)
		if err != nil {
			return nil, err
		}
		list, err := s.client.QueryDatabase(ctx, databaseID, body)
		if err != nil {
			return nil, err
		}
		for _, page := range list.Results {
			rec, err := schema.DecodeRecord(page)
			if err != nil {
				return nil, err
			}
			result.Records = append(result.Records, rec)
		}
		result.HasMore = list.HasMore
		result.NextCursor = list.NextCursor
		if !in.All || !list.HasMore {
			return result, nil
		}
		q.Cursor = list.NextCursor
	}
}

// ── Entries ────────────────────────────────────────────────

// EntryInfo summarizes a created or updated entry.
type EntryInfo struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

// CreateEntry adds one row to a database. Values are loose source
// values coerced against the schema; Content, when set, is appended
// as body blocks.
func (s *DatabaseService) CreateEntry(ctx context.Context, databaseID string, values map[string]any, content string) (*EntryInfo, error) {
	databaseID, err := notion.NormalizeID(databaseID)
	if err != nil {
		return nil, err
	}
	recordSchema, err := s.fetchSchema(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	props, err := buildEntryProperties(recordSchema, values, false)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, notion.NewError(notion.KindValidation, "entry has no values to set")
	}

	body := notion.Object{
		"parent":     notion.Object{"database_id": databaseID},
		"properties": props,
	}
	if content != "" {
		body["children"] = BuildContentBlocks(content)
	}
	page, err := s.client.CreatePage(ctx, body)
	if err != nil {
		return nil, err
	}
	info := &EntryInfo{}
	info.ID, _ = page["id"].(string)
	info.URL, _ = page["url"].(string)
	s.log.Info("entry created", "database", databaseID, "id", info.ID)
	return info, nil
}

// UpdateEntry patches the properties of an existing entry. The schema
// is resolved from the entry's parent database.
func (s *DatabaseService) UpdateEntry(ctx context.Context, pageID string, values map[string]any, archived *bool) (*EntryInfo, error) {
	page, err := s.client.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	parent, _ := page["parent"].(map[string]any)
	databaseID, _ := parent["database_id"].(string)
	if databaseID == "" {
		return nil, notion.NewError(notion.KindValidation, "page %s is not a database entry", pageID)
	}

	body := notion.Object{}
	if len(values) > 0 {
		recordSchema, err := s.fetchSchema(ctx, databaseID)
		if err != nil {
			return nil, err
		}
		props, err := buildEntryProperties(recordSchema, values, false)
		if err != nil {
			return nil, err
		}
		body["properties"] = props
	}
	if archived != nil {
		body["archived"] = *archived
	}
	if len(body) == 0 {
		return nil, notion.NewError(notion.KindValidation, "nothing to update")
	}

	updated, err := s.client.UpdatePage(ctx, pageID, body)
	if err != nil {
		return nil, err
	}
	info := &EntryInfo{}
	info.ID, _ = updated["id"].(string)
	info.URL, _ = updated["url"].(string)
	s.log.Info("entry updated", "id", info.ID)
	return info, nil
}

// ── Bulk import / export ───────────────────────────────────

// BulkImportInput carries one import batch. Data is JSON or CSV text;
// Mapping maps source field names to target property names.
type BulkImportInput struct {
	DatabaseID      string
	Data            string
	Mapping         map[string]string
	Strategy        string
	AllowNewOptions bool
}

// RowFailure reports one skipped row in a best-effort import.
type RowFailure struct {
	Row   int    `json:"row"`
	Field string `json:"field,omitempty"`
	Error string `json:"error"`
}

// ImportReport is the outcome of a bulk import.
type ImportReport struct {
	Total    int          `json:"total"`
	Imported int          `json:"imported"`
	Failed   []RowFailure `json:"failed,omitempty"`
}

// BulkImport parses the payload, maps every row against the schema,
// then creates one entry per mapped record. Mapping and validation
// complete before any entry is created, so a strict import that fails
// mapping writes nothing.
func (s *DatabaseService) BulkImport(ctx context.Context, in BulkImportInput) (*ImportReport, error) {
	databaseID, err := notion.NormalizeID(in.DatabaseID)
	if err != nil {
		return nil, err
	}
	strategy, err := bulk.ParseStrategy(in.Strategy)
	if err != nil {
		return nil, err
	}
	rows, err := bulk.ParseRows(in.Data)
	if err != nil {
		return nil, err
	}
	recordSchema, err := s.fetchSchema(ctx, databaseID)
	if err != nil {
		return nil, err
	}

	mapper := bulk.Mapper{Schema: recordSchema, AllowNewOptions: in.AllowNewOptions}
	result, err := mapper.ImportRecords(rows, in.Mapping, strategy)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{Total: len(rows)}
	for _, f := range result.Failed {
		report.Failed = append(report.Failed, RowFailure{Row: f.Row, Field: f.Field, Error: f.Err.Error()})
	}
	for _, record := range result.Records {
		body := notion.Object{
			"parent":     notion.Object{"database_id": databaseID},
			"properties": record.Properties,
		}
		if _, err := s.client.CreatePage(ctx, body); err != nil {
			if strategy == bulk.Strict {
				return nil, err
			}
			report.Failed = append(report.Failed, RowFailure{Row: record.Index, Error: err.Error()})
			continue
		}
		report.Imported++
	}
	s.log.Info("bulk import finished",
		"database", databaseID, "total", report.Total,
		"imported", report.Imported, "failed", len(report.Failed))
	return report, nil
}

// BulkExportInput selects what to export and how.
type BulkExportInput struct {
	DatabaseID string
	Filter     map[string]any
	Format     string
	Columns    []string
}

// ExportReport carries the serialized payload and its row count.
type ExportReport struct {
	Format Format `json:"format"`
	Rows   int    `json:"rows"`
	Data   string `json:"data"`
}

// Format re-exports the bulk format type for callers of the service.
type Format = bulk.Format

// BulkExport drains the matching entries and serializes them.
func (s *DatabaseService) BulkExport(ctx context.Context, in BulkExportInput) (*ExportReport, error) {
	format, err := bulk.ParseFormat(in.Format)
	if err != nil {
		return nil, err
	}
	result, err := s.Query(ctx, QueryInput{
		DatabaseID: in.DatabaseID,
		Filter:     in.Filter,
		All:        true,
	})
	if err != nil {
		return nil, err
	}
	records := make([]map[string]schema.Value, 0, len(result.Records))
	for _, rec := range result.Records {
		records = append(records, rec.Properties)
	}
	data, err := bulk.ExportRecords(records, format, in.Columns)
	if err != nil {
		return nil, err
	}
	s.log.Info("bulk export finished", "database", in.DatabaseID, "rows", len(records), "format", format)
	return &ExportReport{Format: format, Rows: len(records), Data: string(data)}, nil
}

// ── Helpers ────────────────────────────────────────────────

func (s *DatabaseService) fetchSchema(ctx context.Context, databaseID string) (*schema.RecordSchema, error) {
	db, err := s.client.GetDatabase(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	return schema.ParseRecordSchema(db)
}

// buildEntryProperties coerces loose values against the schema and
// encodes them to wire payloads. Unknown property names fail the whole
// build.
func buildEntryProperties(recordSchema *schema.RecordSchema, values map[string]any, allowNewOptions bool) (notion.Object, error) {
	encoder := schema.Encoder{Schema: recordSchema, AllowNewOptions: allowNewOptions}
	props := notion.Object{}
	for name, raw := range values {
		def, ok := recordSchema.Lookup(name)
		if !ok {
			return nil, notion.NewError(notion.KindValidation,
				"property %q does not exist in the database schema", name)
		}
		if raw == nil {
			continue
		}
		value, err := bulk.Coerce(def, raw)
		if err != nil {
			return nil, notion.NewError(notion.KindValidation, "property %q: %v", name, err)
		}
		payload, err := encoder.Encode(name, value)
		if err != nil {
			return nil, err
		}
		props[name] = payload
	}
	return props, nil
}

// databaseTitle flattens a database object's title rich text.
func databaseTitle(db notion.Object) string {
	spans, _ := db["title"].([]any)
	title := ""
	for _, s := range spans {
		span, _ := s.(map[string]any)
		if pt, ok := span["plain_text"].(string); ok {
			title += pt
		}
	}
	return title
}
