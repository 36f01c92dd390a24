package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandraschi/notion-mcp/internal/notion"
)

const testDBID = "59833787-2cf9-4fdf-8782-e53db20768a5"

// fakeAPI is an in-memory stand-in for the remote service: one
// database with a fixed schema and a fixed set of entries, served
// with real cursor pagination.
type fakeAPI struct {
	entries []notion.Object
	created atomic.Int64
	queries atomic.Int64
}

func newFakeAPI(entryCount int) *fakeAPI {
	f := &fakeAPI{}
	for i := 0; i < entryCount; i++ {
		f.entries = append(f.entries, notion.Object{
			"object": "page",
			"id":     fmt.Sprintf("page-%03d", i),
			"url":    fmt.Sprintf("https://notion.so/page-%03d", i),
			"properties": map[string]any{
				"Name": map[string]any{"type": "title", "title": []any{
					map[string]any{"plain_text": fmt.Sprintf("entry %d", i)},
				}},
				"Amount": map[string]any{"type": "number", "number": float64(i)},
			},
		})
	}
	return f
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/databases/"+testDBID, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(notion.Object{
			"object": "database",
			"id":     testDBID,
			"title":  []any{map[string]any{"plain_text": "Ledger"}},
			"properties": map[string]any{
				"Name":   map[string]any{"type": "title", "title": map[string]any{}},
				"Amount": map[string]any{"type": "number", "number": map[string]any{}},
			},
		})
	})
	mux.HandleFunc("POST /v1/databases/"+testDBID+"/query", func(w http.ResponseWriter, r *http.Request) {
		f.queries.Add(1)
		var body struct {
			PageSize    int    `json:"page_size"`
			StartCursor string `json:"start_cursor"`
		}
		json.NewDecoder(r.Body).Decode(&body)

		start := 0
		if body.StartCursor != "" {
			fmt.Sscanf(body.StartCursor, "cursor-%d", &start)
		}
		end := start + body.PageSize
		if end > len(f.entries) {
			end = len(f.entries)
		}
		resp := notion.Object{
			"results":  f.entries[start:end],
			"has_more": end < len(f.entries),
		}
		if end < len(f.entries) {
			resp["next_cursor"] = fmt.Sprintf("cursor-%d", end)
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("POST /v1/pages", func(w http.ResponseWriter, r *http.Request) {
		var body notion.Object
		json.NewDecoder(r.Body).Decode(&body)
		props, _ := body["properties"].(map[string]any)
		if len(props) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(notion.Object{"code": "validation_error", "message": "properties required"})
			return
		}
		n := f.created.Add(1)
		json.NewEncoder(w).Encode(notion.Object{
			"object": "page",
			"id":     fmt.Sprintf("created-%03d", n),
			"url":    fmt.Sprintf("https://notion.so/created-%03d", n),
		})
	})
	return mux
}

func newTestService(t *testing.T, api *fakeAPI) *DatabaseService {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	tr := notion.NewTransport(notion.Credential{Token: "tok", Version: "2022-06-28"}, notion.TransportOptions{
		BaseURL: srv.URL,
		Policy:  notion.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond},
	})
	return NewDatabaseService(notion.NewClient(tr, nil), nil)
}

func TestQueryDrainIsIdempotentAcrossPageSizes(t *testing.T) {
	api := newFakeAPI(23)
	svc := newTestService(t, api)

	var baseline []string
	for _, pageSize := range []int{1, 7, 0} {
		result, err := svc.Query(context.Background(), QueryInput{
			DatabaseID: testDBID,
			PageSize:   pageSize,
			All:        true,
		})
		if err != nil {
			t.Fatalf("page size %d: %v", pageSize, err)
		}
		ids := make([]string, 0, len(result.Records))
		for _, rec := range result.Records {
			ids = append(ids, rec.ID)
		}
		if len(ids) != 23 {
			t.Fatalf("page size %d: drained %d entries, want 23", pageSize, len(ids))
		}
		if baseline == nil {
			baseline = ids
			continue
		}
		for i := range ids {
			if ids[i] != baseline[i] {
				t.Fatalf("page size %d: order diverged at %d (%s vs %s)", pageSize, i, ids[i], baseline[i])
			}
		}
	}
}

func TestQuerySinglePageReturnsCursor(t *testing.T) {
	api := newFakeAPI(10)
	svc := newTestService(t, api)

	result, err := svc.Query(context.Background(), QueryInput{
		DatabaseID: testDBID,
		PageSize:   4,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 4 {
		t.Errorf("records = %d, want 4", len(result.Records))
	}
	if !result.HasMore || result.NextCursor == "" {
		t.Errorf("expected a continuation cursor, got %+v", result)
	}

	// Resume from the cursor.
	next, err := svc.Query(context.Background(), QueryInput{
		DatabaseID: testDBID,
		PageSize:   100,
		Cursor:     result.NextCursor,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(next.Records) != 6 || next.HasMore {
		t.Errorf("resumed page = %d records, has_more %v", len(next.Records), next.HasMore)
	}
	if next.Records[0].ID != "page-004" {
		t.Errorf("resume started at %s", next.Records[0].ID)
	}
}

func TestQueryRejectsBadFilterWithoutNetworkQuery(t *testing.T) {
	api := newFakeAPI(5)
	svc := newTestService(t, api)

	_, err := svc.Query(context.Background(), QueryInput{
		DatabaseID: testDBID,
		Filter:     map[string]any{"property": "Ghost", "op": "equals", "value": 1},
	})
	if !notion.IsKind(err, notion.KindValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
	if got := api.queries.Load(); got != 0 {
		t.Errorf("invalid filter still reached the query endpoint %d times", got)
	}
}

func TestCreateEntryCoercesValues(t *testing.T) {
	api := newFakeAPI(0)
	svc := newTestService(t, api)

	info, err := svc.CreateEntry(context.Background(), testDBID,
		map[string]any{"Name": "coffee", "Amount": "4.50"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if info.ID == "" {
		t.Error("no entry ID returned")
	}
	if api.created.Load() != 1 {
		t.Errorf("created %d pages, want 1", api.created.Load())
	}

	_, err = svc.CreateEntry(context.Background(), testDBID,
		map[string]any{"Ghost": "x"}, "")
	if !notion.IsKind(err, notion.KindValidation) {
		t.Errorf("unknown property: got %v, want validation error", err)
	}
}

func TestBulkImportStrictWritesNothingOnBadRow(t *testing.T) {
	api := newFakeAPI(0)
	svc := newTestService(t, api)

	data := "Name,Amount\nok,1\nbad,not-a-number\nok2,3\n"
	_, err := svc.BulkImport(context.Background(), BulkImportInput{
		DatabaseID: testDBID,
		Data:       data,
		Strategy:   "strict",
	})
	if err == nil {
		t.Fatal("expected strict import to fail")
	}
	if got := api.created.Load(); got != 0 {
		t.Errorf("strict import with a bad row created %d entries, want 0", got)
	}
}

func TestBulkImportBestEffortImportsGoodRows(t *testing.T) {
	api := newFakeAPI(0)
	svc := newTestService(t, api)

	var rows []string
	rows = append(rows, "Name,Amount")
	for i := 0; i < 10; i++ {
		if i == 5 {
			rows = append(rows, "broken,not-a-number")
			continue
		}
		rows = append(rows, fmt.Sprintf("item %d,%d", i, i))
	}
	report, err := svc.BulkImport(context.Background(), BulkImportInput{
		DatabaseID: testDBID,
		Data:       strings.Join(rows, "\n"),
		Strategy:   "best_effort",
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 10 || report.Imported != 9 {
		t.Errorf("report = %+v, want 10 total / 9 imported", report)
	}
	if len(report.Failed) != 1 || report.Failed[0].Row != 5 {
		t.Errorf("failed = %+v, want exactly row 5", report.Failed)
	}
	if api.created.Load() != 9 {
		t.Errorf("created %d entries, want 9", api.created.Load())
	}
}

func TestBulkExport(t *testing.T) {
	api := newFakeAPI(3)
	svc := newTestService(t, api)

	report, err := svc.BulkExport(context.Background(), BulkExportInput{
		DatabaseID: testDBID,
		Format:     "csv",
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Rows != 3 {
		t.Errorf("rows = %d, want 3", report.Rows)
	}
	lines := strings.Split(strings.TrimSpace(report.Data), "\n")
	if len(lines) != 4 {
		t.Errorf("csv lines = %d, want header + 3", len(lines))
	}
	if lines[0] != "Amount,Name" {
		t.Errorf("header = %q", lines[0])
	}
}
