package query

import (
	"reflect"
	"testing"

	"github.com/sandraschi/notion-mcp/internal/notion"
)

func TestBuildClampsPageSize(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 100},
		{7, 7},
		{100, 100},
		{500, 100},
	}
	for _, tt := range tests {
		body, err := Query{PageSize: tt.in}.Build(testSchema())
		if err != nil {
			t.Fatal(err)
		}
		if body["page_size"] != tt.want {
			t.Errorf("page_size(%d) = %v, want %d", tt.in, body["page_size"], tt.want)
		}
	}
}

func TestBuildIncludesCursorAndSorts(t *testing.T) {
	q := Query{
		Sorts:  []Sort{{Property: "Count", Descending: true}, {Timestamp: "created_time"}},
		Cursor: "cur-1",
	}
	body, err := q.Build(testSchema())
	if err != nil {
		t.Fatal(err)
	}
	if body["start_cursor"] != "cur-1" {
		t.Errorf("start_cursor = %v", body["start_cursor"])
	}
	sorts := body["sorts"].([]notion.Object)
	want := []notion.Object{
		{"property": "Count", "direction": "descending"},
		{"timestamp": "created_time", "direction": "ascending"},
	}
	if !reflect.DeepEqual(sorts, want) {
		t.Errorf("sorts = %v, want %v", sorts, want)
	}
}

func TestBuildRejectsBadSorts(t *testing.T) {
	tests := []struct {
		name  string
		sorts []Sort
	}{
		{"unknown property", []Sort{{Property: "Ghost"}}},
		{"bad timestamp", []Sort{{Timestamp: "updated_at"}}},
		{"empty entry", []Sort{{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Query{Sorts: tt.sorts}.Build(testSchema())
			if !notion.IsKind(err, notion.KindValidation) {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}
}

func TestBuildRejectsBadFilterBeforeAnyRequest(t *testing.T) {
	q := Query{Filter: Leaf{Property: "Ghost", Op: OpEquals, Operand: 1}}
	if _, err := q.Build(testSchema()); !notion.IsKind(err, notion.KindValidation) {
		t.Errorf("got %v, want validation error", err)
	}
}

func TestParseSorts(t *testing.T) {
	sorts, err := ParseSorts([]any{
		"Name",
		map[string]any{"property": "Count", "descending": true},
		map[string]any{"timestamp": "last_edited_time", "direction": "descending"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []Sort{
		{Property: "Name"},
		{Property: "Count", Descending: true},
		{Timestamp: "last_edited_time", Descending: true},
	}
	if !reflect.DeepEqual(sorts, want) {
		t.Errorf("sorts = %+v, want %+v", sorts, want)
	}

	if _, err := ParseSorts([]any{42}); !notion.IsKind(err, notion.KindValidation) {
		t.Errorf("numeric sort entry: got %v, want validation error", err)
	}
}
